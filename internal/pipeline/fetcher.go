package pipeline

import (
	"context"
	"errors"
	"fmt"

	"quickelt/internal/model"
)

// Fetcher is the single-method capability a source kind exposes to the
// driver: produce one batch. Implementations must be re-entrant and
// side-effect-free on their inputs; the driver never shares a fetcher's
// batch across runs.
type Fetcher interface {
	// Origin identifies the source type, e.g. "api", "csv", "database".
	Origin() string

	// Framework identifies the processing engine recorded in artifact names.
	Framework() string

	// Fetch produces a fresh batch. Blocking calls must honor ctx.
	Fetch(ctx context.Context) (*model.Batch, error)

	// Extra returns source-specific sidecar entries such as query or
	// scraping_url.
	Extra() map[string]interface{}
}

// FetchError wraps a failure to produce a batch. Transient failures (HTTP
// 5xx, connection resets, database unavailable) are retried; permanent ones
// (4xx, auth failures, malformed response bodies) fail immediately.
type FetchError struct {
	Op        string
	Err       error
	Transient bool
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transient reports an error that is worth retrying.
func Transient(op string, err error) error {
	return &FetchError{Op: op, Err: err, Transient: true}
}

// Permanent reports an error that will not improve with retries.
func Permanent(op string, err error) error {
	return &FetchError{Op: op, Err: err, Transient: false}
}

// IsTransient reports whether err is a retryable fetch failure.
func IsTransient(err error) bool {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Transient
	}
	return false
}
