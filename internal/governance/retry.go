package governance

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrMaxRetriesExceeded is returned when all retry attempts have been
// exhausted.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// RetryConfig defines retry behavior for outbound requests.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (0 = no retries).
	MaxRetries int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// BackoffMultiplier is the factor by which backoff increases.
	BackoffMultiplier float64
	// RetryableStatusCodes defines which HTTP status codes trigger retries.
	RetryableStatusCodes map[int]bool
}

// DefaultRetryConfig allows a single retry: the breach lookup surfaces an
// inconclusive outcome rather than hammering the corpus.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        1,
		InitialBackoff:    500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		RetryableStatusCodes: map[int]bool{
			http.StatusRequestTimeout:      true, // 408
			http.StatusTooManyRequests:     true, // 429
			http.StatusInternalServerError: true, // 500
			http.StatusBadGateway:          true, // 502
			http.StatusServiceUnavailable:  true, // 503
			http.StatusGatewayTimeout:      true, // 504
		},
	}
}

// RetryPolicy determines if a request should be retried and waits out the
// backoff between attempts.
type RetryPolicy struct {
	config RetryConfig
}

// NewRetryPolicy creates a retry policy with the given configuration.
func NewRetryPolicy(config RetryConfig) *RetryPolicy {
	return &RetryPolicy{config: config}
}

// ShouldRetry reports whether another attempt is allowed for the given
// attempt number (0-based) and HTTP status. A status of 0 means the
// request failed before receiving a response and is always retryable.
func (p *RetryPolicy) ShouldRetry(attempt, status int) bool {
	if attempt >= p.config.MaxRetries {
		return false
	}
	if status == 0 {
		return true
	}
	return p.config.RetryableStatusCodes[status]
}

// Backoff blocks for the delay preceding the given retry attempt, or
// until the context is cancelled.
func (p *RetryPolicy) Backoff(ctx context.Context, attempt int) error {
	delay := p.config.InitialBackoff
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * p.config.BackoffMultiplier)
	}
	return sleepContext(ctx, delay)
}
