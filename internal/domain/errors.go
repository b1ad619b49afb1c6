package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrCacheMiss           = errors.New("cache miss")
	ErrRateLimited         = errors.New("rate limited")
	ErrRefreshInFlight     = errors.New("refresh already in flight")
	ErrAllSourcesExhausted = errors.New("live fetch, cache, and store all exhausted")
)

// StatusError is a non-2xx response from an upstream venue API. The retryable
// subset (408/429/5xx) is retried by the resilient transport; every other
// status is surfaced immediately.
type StatusError struct {
	Platform Platform
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: upstream status %d: %s", e.Platform, e.Code, e.Body)
}

// Retryable reports whether the status indicates a transient upstream
// condition worth retrying.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusRequestTimeout ||
		e.Code == http.StatusTooManyRequests ||
		e.Code >= http.StatusInternalServerError
}
