package governance

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldRetryRespectsMaxRetries(t *testing.T) {
	p := NewRetryPolicy(DefaultRetryConfig())

	assert.True(t, p.ShouldRetry(0, http.StatusServiceUnavailable))
	assert.False(t, p.ShouldRetry(1, http.StatusServiceUnavailable), "default allows one retry")
}

func TestShouldRetryStatusFilter(t *testing.T) {
	p := NewRetryPolicy(DefaultRetryConfig())

	assert.True(t, p.ShouldRetry(0, http.StatusTooManyRequests))
	assert.True(t, p.ShouldRetry(0, 0), "transport failure is always retryable")
	assert.False(t, p.ShouldRetry(0, http.StatusNotFound))
	assert.False(t, p.ShouldRetry(0, http.StatusBadRequest))
}

func TestBackoffGrowsWithAttempt(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Millisecond,
		BackoffMultiplier: 2.0,
	})

	ctx := context.Background()
	start := time.Now()
	assert.NoError(t, p.Backoff(ctx, 2)) // 1ms * 2 * 2 = 4ms
	assert.GreaterOrEqual(t, time.Since(start), 4*time.Millisecond)
}

func TestBackoffCancelledContext(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{
		MaxRetries:     1,
		InitialBackoff: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Backoff(ctx, 0), context.Canceled)
}
