package resilient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyarb/arbscan/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPolicy() Policy {
	return Policy{
		RetryAttempts: 3,
		BackoffBase:   time.Millisecond,
		Timeout:       time.Second,
	}
}

func getReq(url string) RequestFunc {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func TestDoRecoversFromTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(domain.PlatformKalshi, testPolicy(), testLogger())
	body, err := c.Do(context.Background(), getReq(srv.URL))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("no such market"))
	}))
	defer srv.Close()

	c := New(domain.PlatformKalshi, testPolicy(), testLogger())
	_, err := c.Do(context.Background(), getReq(srv.URL))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx other than 408/429 must not retry")

	var statusErr *domain.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.False(t, statusErr.Retryable())
	assert.Contains(t, statusErr.Body, "no such market")
}

func TestDoRetriesTooManyRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(domain.PlatformKalshi, testPolicy(), testLogger())
	_, err := c.Do(context.Background(), getReq(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDoExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	policy := testPolicy()
	policy.RetryAttempts = 1

	c := New(domain.PlatformPolymarket, policy, testLogger())
	_, err := c.Do(context.Background(), getReq(srv.URL))
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load(), "initial attempt plus one retry")

	var statusErr *domain.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.Equal(t, domain.PlatformPolymarket, statusErr.Platform)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	policy := testPolicy()
	policy.BackoffBase = time.Minute // cancellation must win the backoff wait

	ctx, cancel := context.WithCancel(context.Background())
	c := New(domain.PlatformKalshi, policy, testLogger())

	done := make(chan error, 1)
	go func() {
		_, err := c.Do(ctx, getReq(srv.URL))
		done <- err
	}()

	// Let the first attempt fail and the client park in its backoff wait.
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
}

func TestRetryableClassification(t *testing.T) {
	assert.True(t, retryable(&domain.StatusError{Code: http.StatusServiceUnavailable}))
	assert.True(t, retryable(&domain.StatusError{Code: http.StatusRequestTimeout}))
	assert.True(t, retryable(&domain.StatusError{Code: http.StatusTooManyRequests}))
	assert.False(t, retryable(&domain.StatusError{Code: http.StatusBadRequest}))
	assert.False(t, retryable(&domain.StatusError{Code: http.StatusUnauthorized}))
	assert.True(t, retryable(context.DeadlineExceeded))
	assert.True(t, retryable(io.ErrUnexpectedEOF))
	assert.False(t, retryable(errors.New("schema mismatch")))
}
