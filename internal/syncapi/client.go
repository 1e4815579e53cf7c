package syncapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/gramshiksha/gramshiksha-client/internal/logger"
	"github.com/gramshiksha/gramshiksha-client/internal/offlinerr"
	"github.com/gramshiksha/gramshiksha-client/internal/types"
)

// LessonMeta mirrors the content API's lesson payload.
type LessonMeta struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	SubjectID string              `json:"subject_id"`
	Grade     int                 `json:"grade"`
	Language  string              `json:"language"`
	UpdatedAt time.Time           `json:"updated_at"`
	Assets    types.AssetManifest `json:"assets"`
}

// GameMeta mirrors the content API's game payload.
type GameMeta struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	Subject    string              `json:"subject"`
	Grade      int                 `json:"grade"`
	Difficulty string              `json:"difficulty"`
	UpdatedAt  time.Time           `json:"updated_at"`
	Assets     types.AssetManifest `json:"assets"`
}

// Client talks to the content and sync APIs. Uploads are keyed by the
// record's client-generated id; the server deduplicates resubmissions, so
// retrying an ambiguous outcome is safe.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
	maxRetries uint64
}

func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With("service", "SyncAPIClient"),
		maxRetries: 2,
	}
}

func (c *Client) GetLesson(ctx context.Context, id string) (*LessonMeta, error) {
	var envelope struct {
		Data LessonMeta `json:"data"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/content/lessons/%s", c.baseURL, id), &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

func (c *Client) GetGame(ctx context.Context, id string) (*GameMeta, error) {
	var envelope struct {
		Data GameMeta `json:"data"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/content/games/%s", c.baseURL, id), &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// PushProgress submits one progress entry and returns once the server has
// acknowledged it. The entry id is the idempotency key.
func (c *Client) PushProgress(ctx context.Context, entry *types.ProgressEntry) error {
	body := map[string]interface{}{
		"entries": []*types.ProgressEntry{entry},
	}
	return c.postJSON(ctx, c.baseURL+"/progress/sync", body)
}

// PushScore submits one game score and returns once acknowledged.
func (c *Client) PushScore(ctx context.Context, score *types.GameScore) error {
	return c.postJSON(ctx, fmt.Sprintf("%s/games/%s/score", c.baseURL, score.GameID), score)
}

// FetchAsset downloads one binary asset from its source URL.
func (c *Client) FetchAsset(ctx context.Context, url string) ([]byte, string, error) {
	var blob []byte
	var mimeType string
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return offlinerr.New(offlinerr.CodeNetwork, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(offlinerr.Newf(offlinerr.CodeServerRejected, "asset fetch %s: status %d", url, resp.StatusCode))
		}
		if resp.StatusCode >= 500 {
			return offlinerr.Newf(offlinerr.CodeNetwork, "asset fetch %s: status %d", url, resp.StatusCode)
		}
		blob, err = io.ReadAll(resp.Body)
		if err != nil {
			return offlinerr.New(offlinerr.CodeNetwork, err)
		}
		mimeType = resp.Header.Get("Content-Type")
		return nil
	}
	if err := backoff.Retry(operation, c.retryPolicy(ctx)); err != nil {
		return nil, "", err
	}
	return blob, mimeType, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return offlinerr.New(offlinerr.CodeNetwork, err)
		}
		defer resp.Body.Close()
		if err := classifyStatus(resp.StatusCode); err != nil {
			return err
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s: %w", url, err))
		}
		return nil
	}
	return backoff.Retry(operation, c.retryPolicy(ctx))
}

func (c *Client) postJSON(ctx context.Context, url string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", url, err)
	}
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return offlinerr.New(offlinerr.CodeNetwork, err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		return classifyStatus(resp.StatusCode)
	}
	return backoff.Retry(operation, c.retryPolicy(ctx))
}

func (c *Client) retryPolicy(ctx context.Context) backoff.BackOffContext {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx)
}

// classifyStatus maps a response code to the error taxonomy: 4xx is a
// rejection (permanent, surfaced to the caller), 5xx is transient.
func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status >= 400 && status < 500:
		return backoff.Permanent(offlinerr.Newf(offlinerr.CodeServerRejected, "status %d", status))
	default:
		return offlinerr.Newf(offlinerr.CodeNetwork, "status %d", status)
	}
}
