package pipeline

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"
)

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// TransportError wraps a network failure before any response was read.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// IsRetryable checks if an error is worth retrying: network failures,
// 429 and 5xx responses.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return false
}

// Backoff returns a duration for attempt n (0-indexed) with jitter, doubling
// from base and capped at 30s.
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base << uint(attempt)
	if d > 30*time.Second || d < base {
		d = 30 * time.Second
	}
	if d < 2 {
		return d
	}
	jitter := time.Duration(rand.Int64N(int64(d) / 2))
	return d + jitter
}

const DefaultRetries = 3
