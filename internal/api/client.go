package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rickgao/perp-research/internal/version"
)

// Client is a JSON REST client shared by every exchange package.
// It serializes request starts to honour the venue's rate limit and retries
// transient failures with exponential backoff.
type Client struct {
	name       string
	baseURL    string
	headers    http.Header
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration

	rateLimit time.Duration
	rateMu    sync.Mutex
	lastReq   time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a REST client. name identifies the venue in logs and errors.
func NewClient(name, baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		name:    name,
		baseURL: baseURL,
		headers: http.Header{},
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: 2 * time.Second,
		rateLimit:    200 * time.Millisecond,
	}
	c.headers.Set("User-Agent", version.UserAgent())

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry count and the initial backoff.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithRateLimit sets the minimum spacing between request starts.
// Zero disables spacing.
func WithRateLimit(d time.Duration) ClientOption {
	return func(c *Client) {
		c.rateLimit = d
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Name returns the venue name.
func (c *Client) Name() string {
	return c.name
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// wait blocks until rateLimit has elapsed since the previous request start.
func (c *Client) wait(ctx context.Context) error {
	if c.rateLimit <= 0 {
		return nil
	}

	c.rateMu.Lock()
	defer c.rateMu.Unlock()

	if elapsed := time.Since(c.lastReq); elapsed < c.rateLimit {
		timer := time.NewTimer(c.rateLimit - elapsed)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	c.lastReq = time.Now()
	return nil
}
