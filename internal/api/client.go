// Package api provides the HTTP client for the FairLens platform backend.
//
// All calls resolve to an Envelope; the client never panics across its own
// boundary and callers only ever inspect Success/Error or use Envelope.Err.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/fairlensai/fairlens/internal/cache"
)

// DefaultTimeout bounds a request when no per-call timeout is given.
const DefaultTimeout = 30 * time.Second

// defaultMaxRetries is used when retry is enabled without an explicit bound.
const defaultMaxRetries = 3

// retryBaseDelay is the first backoff step; each subsequent attempt doubles it.
const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 8 * time.Second
)

// Recorder receives request-level metrics from the client.
type Recorder interface {
	ObserveRequest(method string, statusCode int, duration time.Duration)
	ObserveRetry(method string)
}

// Client is the HTTP client for the FairLens backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	recorder   Recorder
	limiter    *rate.Limiter
	userAgent  string
	cache      cache.Cache
	cacheTTL   time.Duration

	mu          sync.RWMutex
	accessToken string
	offline     bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Tests use this to
// inject a fake transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "api_client").Logger()
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithRateLimit throttles outbound requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithOffline puts the client in offline mode: every call resolves to a
// failure envelope without performing network I/O.
func WithOffline(offline bool) Option {
	return func(c *Client) { c.offline = offline }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithCache caches successful GET responses for ttl. Cached entries are
// served without network I/O, including in offline mode; mutations never
// consult the cache. A ttl of 0 uses the cache's default.
func WithCache(store cache.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = store
		c.cacheTTL = ttl
	}
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zerolog.Nop(),
		userAgent:  "fairlens-client/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// SetAccessToken attaches the bearer credential used on subsequent requests.
// An empty token detaches it.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// SetOffline toggles offline mode at runtime.
func (c *Client) SetOffline(offline bool) {
	c.mu.Lock()
	c.offline = offline
	c.mu.Unlock()
}

// Offline reports whether the client is in offline mode.
func (c *Client) Offline() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offline
}

// RequestOptions are per-call knobs. The zero value means no retry, the
// default timeout, and default headers.
type RequestOptions struct {
	// EnableRetry reattempts transient failures (network errors, HTTP 429,
	// and 5xx except 501) with exponential backoff.
	EnableRetry bool
	// MaxRetries bounds reattempts; at most MaxRetries+1 requests are issued.
	// Defaults to 3 when retry is enabled.
	MaxRetries int
	// Timeout bounds the whole call, retries included.
	Timeout time.Duration
	// Headers override default headers. An entry with an empty value removes
	// the header entirely (used to let multipart bodies set their own
	// Content-Type).
	Headers map[string]string
}

// Get issues a GET request and decodes the response into an envelope.
func Get[T any](ctx context.Context, c *Client, path string, opts *RequestOptions) Envelope[T] {
	return call[T](ctx, c, http.MethodGet, path, nil, "", opts)
}

// Post issues a POST request with a JSON body.
func Post[T any](ctx context.Context, c *Client, path string, body any, opts *RequestOptions) Envelope[T] {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return failure[T](0, "marshal request: %v", err)
		}
	}
	return call[T](ctx, c, http.MethodPost, path, payload, "application/json", opts)
}

// Put issues a PUT request with a JSON body.
func Put[T any](ctx context.Context, c *Client, path string, body any, opts *RequestOptions) Envelope[T] {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return failure[T](0, "marshal request: %v", err)
		}
	}
	return call[T](ctx, c, http.MethodPut, path, payload, "application/json", opts)
}

// Delete issues a DELETE request.
func Delete[T any](ctx context.Context, c *Client, path string, opts *RequestOptions) Envelope[T] {
	return call[T](ctx, c, http.MethodDelete, path, nil, "", opts)
}

// GetRaw issues a GET request and returns the response body without envelope
// decoding. Used for document downloads (report and BOM exports), which are
// not JSON envelopes.
func (c *Client) GetRaw(ctx context.Context, path string, opts *RequestOptions) ([]byte, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	statusCode, body, err := c.roundTrip(ctx, http.MethodGet, path, nil, "", opts)
	if err != nil {
		return nil, err
	}
	if statusCode < 200 || statusCode > 299 {
		return nil, &APIError{StatusCode: statusCode, Message: errorFromBody(statusCode, body)}
	}
	return body, nil
}

// call performs the request/retry/decode cycle shared by all verbs.
func call[T any](ctx context.Context, c *Client, method, path string, body []byte, contentType string, opts *RequestOptions) Envelope[T] {
	if opts == nil {
		opts = &RequestOptions{}
	}

	statusCode, respBody, err := c.roundTrip(ctx, method, path, body, contentType, opts)
	if err != nil {
		return failure[T](0, "%v", err)
	}

	if statusCode < 200 || statusCode > 299 {
		return failure[T](statusCode, "%s", errorFromBody(statusCode, respBody))
	}

	return decodeEnvelope[T](statusCode, respBody)
}

// errOffline is returned for any call made while the client is offline.
var errOffline = fmt.Errorf("client is offline")

// roundTrip runs the transport side of a call: offline guard, throttling,
// timeout, and the retry loop. The body is carried as bytes so it can be
// replayed across attempts.
func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte, contentType string, opts *RequestOptions) (int, []byte, error) {
	// Cached GETs are served before the offline guard so previously fetched
	// reads keep working without a network.
	cacheKey := ""
	if c.cache != nil && method == http.MethodGet {
		cacheKey = cache.Key(path, nil)
		if data, ok, err := c.cache.Get(ctx, cacheKey); err == nil && ok {
			c.logger.Debug().Str("path", path).Msg("cache hit")
			return http.StatusOK, data, nil
		}
	}

	if c.Offline() {
		return 0, nil, errOffline
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("request throttled: %w", err)
		}
	}

	maxAttempts := 1
	if opts.EnableRetry {
		retries := opts.MaxRetries
		if retries <= 0 {
			retries = defaultMaxRetries
		}
		maxAttempts = retries + 1
	}

	start := time.Now()
	var (
		statusCode int
		respBody   []byte
		lastErr    error
	)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := retryDelay(attempt)
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
			if ctx.Err() != nil {
				lastErr = ctx.Err()
				break
			}
			if c.recorder != nil {
				c.recorder.ObserveRetry(method)
			}
			c.logger.Debug().
				Str("method", method).
				Str("path", path).
				Int("attempt", attempt+1).
				Msg("retrying request")
		}

		statusCode, respBody, lastErr = c.doOnce(ctx, method, path, body, contentType, opts.Headers)
		if lastErr == nil && !retryableStatus(statusCode) {
			break
		}
		if lastErr != nil && ctx.Err() != nil {
			break
		}
	}

	if c.recorder != nil {
		c.recorder.ObserveRequest(method, statusCode, time.Since(start))
	}

	if lastErr != nil {
		c.logger.Debug().Err(lastErr).Str("method", method).Str("path", path).Msg("request failed")
		return 0, nil, lastErr
	}

	if cacheKey != "" && statusCode >= 200 && statusCode <= 299 {
		if err := c.cache.Set(ctx, cacheKey, respBody, c.cacheTTL); err != nil {
			c.logger.Debug().Err(err).Str("path", path).Msg("cache store failed")
		}
	}

	return statusCode, respBody, nil
}

// doOnce issues a single HTTP request and reads the whole response body.
func (c *Client) doOnce(ctx context.Context, method, path string, body []byte, contentType string, headers map[string]string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for k, v := range headers {
		if v == "" {
			req.Header.Del(k)
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

// retryDelay returns the backoff before reattempt number attempt (1-based).
// The shift is clamped so huge attempt counts cannot overflow the duration
// into a negative value.
func retryDelay(attempt int) time.Duration {
	delay := retryBaseDelay << min(attempt-1, 10)
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// retryableStatus reports whether an HTTP status is worth reattempting.
// 501 is excluded: a backend that does not implement the endpoint will not
// start implementing it on the next attempt.
func retryableStatus(status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && status != http.StatusNotImplemented
}
