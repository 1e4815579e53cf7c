package offlinerr

import (
	"errors"
	"fmt"
)

type Code string

const (
	// CodeStorageFull means a local store write was rejected for lack of space.
	CodeStorageFull Code = "storage_full"
	// CodeNetwork means a fetch or upload failed in transit. Always retryable.
	CodeNetwork Code = "network_error"
	// CodeServerRejected means the sync API refused the record (4xx). Not
	// retried automatically.
	CodeServerRejected Code = "server_rejected"
	// CodeInsufficientStorage means the pre-flight budget check failed before
	// a download started.
	CodeInsufficientStorage Code = "insufficient_storage"
)

type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

func CodeOf(err error) Code {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Code
	}
	return ""
}

func IsStorageFull(err error) bool         { return CodeOf(err) == CodeStorageFull }
func IsNetwork(err error) bool             { return CodeOf(err) == CodeNetwork }
func IsServerRejected(err error) bool      { return CodeOf(err) == CodeServerRejected }
func IsInsufficientStorage(err error) bool { return CodeOf(err) == CodeInsufficientStorage }

// Retryable reports whether a later attempt may succeed without a fix.
func Retryable(err error) bool {
	return CodeOf(err) == CodeNetwork
}
