package source

import (
	"errors"
	"fmt"
	"time"
)

// ErrBodyTooLarge is wrapped when a payload exceeds MaxBodyBytes.
var ErrBodyTooLarge = errors.New("payload exceeds size limit")

// TransportError reports a failed fetch: a network failure (StatusCode 0) or
// a non-2xx response that survived every retry.
type TransportError struct {
	URL        string
	StatusCode int
	Attempts   int
	RetryAfter time.Duration
	Err        error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "transport error"
	}
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("fetch %s: status=%d: %v", e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: status=%d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether the status is worth another attempt.
func (e *TransportError) Retryable() bool {
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode <= 599)
}

// NotFoundError indicates a local source path that does not exist.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("source not found: %s", e.Path) }

func (e *NotFoundError) Unwrap() error { return e.Err }
