// Package resilient wraps upstream HTTP calls with per-attempt timeouts,
// retry classification, and exponential backoff with jitter. Both venue
// clients issue every request through it.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/polyarb/arbscan/internal/domain"
)

// Policy controls the retry behavior of a Client.
type Policy struct {
	// RetryAttempts is the number of retries after the initial attempt.
	RetryAttempts int
	// BackoffBase is the delay before the first retry; retry i waits
	// base·2^i plus up to 100ms of jitter.
	BackoffBase time.Duration
	// Timeout bounds each individual attempt.
	Timeout time.Duration
}

// DefaultPolicy returns the policy used when the config does not override it.
func DefaultPolicy() Policy {
	return Policy{
		RetryAttempts: 3,
		BackoffBase:   500 * time.Millisecond,
		Timeout:       10 * time.Second,
	}
}

// RequestFunc builds a fresh request for one attempt. It is invoked once per
// attempt because a request body cannot be replayed.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Client issues HTTP requests under a retry policy.
type Client struct {
	platform   domain.Platform
	policy     Policy
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a resilient Client for the given platform.
func New(platform domain.Platform, policy Policy, logger *slog.Logger) *Client {
	return &Client{
		platform:   platform,
		policy:     policy,
		httpClient: &http.Client{},
		logger:     logger.With(slog.String("component", "resilient"), slog.String("platform", string(platform))),
	}
}

// Do issues the request built by newReq, retrying transient failures per the
// policy, and returns the response body. After the attempts are exhausted it
// surfaces the last observed error.
func (c *Client) Do(ctx context.Context, newReq RequestFunc) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.policy.RetryAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt - 1)
			c.logger.Debug("retrying upstream request",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, err := c.attempt(ctx, newReq)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, lastErr
		}
		if !retryable(err) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// attempt runs a single bounded request.
func (c *Client) attempt(ctx context.Context, newReq RequestFunc) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	req, err := newReq(attemptCtx)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.StatusError{
			Platform: c.platform,
			Code:     resp.StatusCode,
			Body:     truncate(body, 256),
		}
	}
	return body, nil
}

// backoff computes the delay before retry i: base·2^i + jitter(0,100ms).
func (c *Client) backoff(i int) time.Duration {
	base := c.policy.BackoffBase
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	delay := base << uint(i)
	jitter := time.Duration(rand.Int63n(int64(100 * time.Millisecond)))
	return delay + jitter
}

// retryable classifies an attempt error. Upstream statuses 408/429/5xx and
// transport failures (timeout, connection reset, DNS) are retried; everything
// else surfaces immediately.
func retryable(err error) bool {
	var statusErr *domain.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}

	// Attempt timeout shows up as context.DeadlineExceeded through the
	// transport.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
