// Package breach checks passwords against a remote breach corpus using the
// k-anonymity range protocol: only the first five hex characters of the
// password's SHA-1 leave the process; the full hash is compared locally
// against the suffixes returned for that prefix range.
package breach

import (
	"bufio"
	"context"
	"crypto/sha1" //nolint:gosec // SHA-1 is mandated by the range-query protocol, not used for integrity
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/passguard/passguard-oss/internal/governance"
	"github.com/passguard/passguard-oss/pkg/domain"
)

const (
	// prefixLen is the number of leading hex characters transmitted to the
	// remote corpus. Five characters cover 2^20 hash buckets, wide enough
	// that the server cannot isolate the queried password.
	prefixLen = 5

	defaultBaseURL     = "https://api.pwnedpasswords.com/range/"
	defaultUserAgent   = "passguard"
	defaultMinInterval = 1500 * time.Millisecond
	defaultTimeout     = 10 * time.Second
)

// Config holds breach client settings.
type Config struct {
	BaseURL     string
	UserAgent   string
	MinInterval time.Duration
	Timeout     time.Duration
	Retry       governance.RetryConfig
}

// DefaultConfig returns the settings used against the public corpus.
func DefaultConfig() Config {
	return Config{
		BaseURL:     defaultBaseURL,
		UserAgent:   defaultUserAgent,
		MinInterval: defaultMinInterval,
		Timeout:     defaultTimeout,
		Retry:       governance.DefaultRetryConfig(),
	}
}

// Client performs rate-limited, cached breach lookups. All outbound
// requests across the process share one limiter, so concurrent batch
// items never race the remote corpus.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *governance.IntervalLimiter
	retry     *governance.RetryPolicy
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string]domain.BreachRecord // keyed by full hash, process lifetime only
}

// NewClient creates a breach client. A nil httpClient selects a default
// with the configured timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		http:      httpClient,
		limiter:   governance.NewIntervalLimiter(cfg.MinInterval),
		retry:     governance.NewRetryPolicy(cfg.Retry),
		logger:    logger,
		cache:     make(map[string]domain.BreachRecord),
	}
}

// Check looks the password up in the breach corpus. Network failures,
// timeouts and malformed responses never propagate as errors: they yield
// an explicit Unavailable record, which is inconclusive rather than
// reassuring.
func (c *Client) Check(ctx context.Context, password string) domain.BreachRecord {
	sum := sha1.Sum([]byte(password)) //nolint:gosec // protocol hash, see package doc
	full := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix, suffix := full[:prefixLen], full[prefixLen:]

	c.mu.Lock()
	if rec, ok := c.cache[full]; ok {
		c.mu.Unlock()
		return rec
	}
	c.mu.Unlock()

	suffixes, err := c.fetchRange(ctx, prefix)
	if err != nil {
		// Log the debug digest, never any part of the protocol hash.
		c.logger.Warn("breach lookup unavailable", "digest", domain.DebugDigest(password), "error", err)
		return domain.BreachRecord{
			Outcome: domain.BreachUnavailable,
			Message: "breach check temporarily unavailable",
		}
	}

	rec := domain.BreachRecord{
		Outcome: domain.BreachNotFound,
		Message: "password not found in known breaches",
	}
	if count, ok := suffixes[suffix]; ok {
		rec = domain.BreachRecord{
			Outcome: domain.BreachFound,
			Count:   count,
			Message: fmt.Sprintf("password found in %d breaches", count),
		}
	}

	c.mu.Lock()
	c.cache[full] = rec
	c.mu.Unlock()
	return rec
}

// fetchRange retrieves the (suffix, count) list for a hash prefix,
// honoring the interval limiter and at most the configured retries.
func (c *Client) fetchRange(ctx context.Context, prefix string) (map[string]int, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		suffixes, status, err := c.doRequest(ctx, prefix)
		if err == nil {
			return suffixes, nil
		}
		lastErr = err

		if !c.retry.ShouldRetry(attempt, status) {
			return nil, lastErr
		}
		c.logger.Debug("retrying breach lookup", "attempt", attempt+1, "status", status)
		if err := c.retry.Backoff(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

func (c *Client) doRequest(ctx context.Context, prefix string) (map[string]int, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+prefix, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build range request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("range request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, resp.StatusCode, fmt.Errorf("range request: %w: HTTP %d", domain.ErrBreachUnavailable, resp.StatusCode)
	}

	suffixes, err := parseRange(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return suffixes, resp.StatusCode, nil
}

// parseRange reads the plain-text "SUFFIX:COUNT" lines of a range
// response. Blank lines are skipped; a line without a separator makes the
// whole response malformed.
func parseRange(r io.Reader) (map[string]int, error) {
	suffixes := make(map[string]int)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sep := strings.IndexByte(line, ':')
		if sep < 0 {
			return nil, fmt.Errorf("malformed range line %q: %w", line, domain.ErrBreachUnavailable)
		}
		count, err := strconv.Atoi(strings.TrimSpace(line[sep+1:]))
		if err != nil {
			return nil, fmt.Errorf("malformed breach count in %q: %w", line, domain.ErrBreachUnavailable)
		}
		suffixes[strings.ToUpper(line[:sep])] = count
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read range response: %w", err)
	}
	return suffixes, nil
}
