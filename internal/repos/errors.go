package repos

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/gramshiksha/gramshiksha-client/internal/offlinerr"
)

// writeErr maps sqlite quota failures to StorageFull so callers can react
// (evict and retry) instead of silently losing the record.
func writeErr(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database or disk is full") || strings.Contains(msg, "disk i/o error") {
		return offlinerr.New(offlinerr.CodeStorageFull, err)
	}
	return err
}

// isUniqueViolation reports whether err came from a unique index rejecting
// an insert. The sqlite driver surfaces this as a plain message, so the
// check matches the text as well as gorm's translated sentinel.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
