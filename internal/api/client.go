// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jeranaias/studyhall/internal/auth"
)

// Configuration constants for the backend client.
const (
	// DefaultBaseURL is the backend address used when none is configured.
	DefaultBaseURL = "http://localhost:8787/api"

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 30 * time.Second

	// UploadTimeout bounds a single file upload.
	UploadTimeout = 10 * time.Minute

	// DefaultMaxRetries is the default number of attempts for idempotent requests.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024

	// RequestIDHeader carries the per-request correlation id.
	RequestIDHeader = "X-Request-ID"

	userAgent = "studyhall/1.0"
)

// Client is a client for the studyhall backend.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	tokens     auth.TokenProvider
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	maxRetries int
	retryBase  time.Duration
}

// NewClient creates a client for the backend at baseURL.
// tokens is read on every request; a nil provider makes every call fail
// with auth.ErrAuthMissing.
func NewClient(baseURL string, tokens auth.TokenProvider) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		limiter:    rate.NewLimiter(rate.Inf, 0),
		logger:     slog.Default(),
		maxRetries: DefaultMaxRetries,
		retryBase:  retryBaseDelay,
	}
}

// WithTimeout sets the per-request timeout for non-upload calls.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = 0
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithMaxRetries sets the maximum number of attempts for GET requests.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	c.maxRetries = maxRetries
	return c
}

// WithRateLimit limits outgoing requests to rps per second with the given
// burst. A non-positive rps disables limiting.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithLogger sets the logger used for request logging.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// REQUEST PIPELINE
// =============================================================================

// request describes one logical call.
type request struct {
	method      string
	path        string
	body        any
	contentType string
	// rawBody is used instead of body when set; it must only be consumed once,
	// so requests carrying it are never retried.
	rawBody io.Reader
	// long selects UploadTimeout instead of the client timeout.
	long bool
}

// do performs req and decodes a successful JSON response into out.
// out may be nil when the response body is not needed.
func (c *Client) do(ctx context.Context, req request, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var payload []byte
	if req.body != nil {
		payload, err = json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	attempts := 1
	if req.method == http.MethodGet {
		attempts = c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.calculateBackoff(attempt)):
			}
		}

		body, err := c.send(ctx, req, token, payload)
		if err == nil {
			if out == nil || len(bytes.TrimSpace(body)) == 0 {
				return nil
			}
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			return nil
		}

		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	if attempts > 1 {
		return fmt.Errorf("max retries exceeded: %w", lastErr)
	}
	return lastErr
}

// send performs a single HTTP round trip and returns the body of a 2xx response.
func (c *Client) send(ctx context.Context, req request, token string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body io.Reader
	contentType := req.contentType
	switch {
	case req.rawBody != nil:
		body = req.rawBody
	case payload != nil:
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set(RequestIDHeader, requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	hc := c.httpClient
	if req.long {
		upload := *c.httpClient
		upload.Timeout = UploadTimeout
		hc = &upload
	}

	c.logRequest(httpReq, requestID)
	start := time.Now()
	resp, err := hc.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("api transport error", "method", req.method, "path", req.path,
			"request_id", requestID, "error", err)
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()
	c.logResponse(resp, requestID, time.Since(start))

	respBody, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, handleErrorResponse(resp.StatusCode, respBody, requestID)
	}
	return respBody, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", auth.ErrAuthMissing
	}
	return c.tokens.Token(ctx)
}

// calculateBackoff returns the delay to wait before the next retry.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := c.retryBase * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// logRequest logs a request without headers or body, which may carry the
// token or user content.
func (c *Client) logRequest(req *http.Request, requestID string) {
	c.logger.Debug("api request", "method", req.Method, "path", req.URL.Path, "request_id", requestID)
}

func (c *Client) logResponse(resp *http.Response, requestID string, duration time.Duration) {
	level := slog.LevelDebug
	if resp.StatusCode >= 400 {
		level = slog.LevelWarn
	}
	c.logger.Log(context.Background(), level, "api response",
		"status", resp.StatusCode, "request_id", requestID, "duration", duration)
}

// IsAuthError reports whether err means the user has to sign in again.
func IsAuthError(err error) bool {
	return errors.Is(err, auth.ErrAuthMissing) || errors.Is(err, ErrUnauthorized)
}
