// Package api implements the authenticated request client for the
// remote agent service: typed error classification, exponential retry
// backoff, and paginated listings.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/jules-cli/internal/domain"
	"github.com/bnema/jules-cli/internal/ports"
	"github.com/bnema/jules-cli/internal/version"
)

const (
	DefaultBaseURL = "https://jules.googleapis.com/v1alpha"

	defaultMaxAttempts    = 3
	defaultRequestTimeout = 30 * time.Second
	retryBaseDelay        = 100 * time.Millisecond
	maxResponseBytes      = 1 << 20

	apiKeyHeader = "X-Goog-Api-Key"
)

var userAgent = "jules-cli/" + version.Version

// Config carries everything the client needs; there is no process-wide
// key singleton. The zero value of every optional field selects a
// default.
type Config struct {
	BaseURL        string
	APIKey         string
	MaxAttempts    int
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	// Debug logs attempt numbers and URLs only, never payloads.
	Debug  bool
	Logger *log.Logger
}

type Client struct {
	baseURL        string
	apiKey         string
	maxAttempts    int
	requestTimeout time.Duration
	httpClient     *http.Client
	debug          bool
	logger         *log.Logger
}

var _ ports.RemoteAPI = (*Client)(nil)

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Client{
		baseURL:        baseURL,
		apiKey:         cfg.APIKey,
		maxAttempts:    maxAttempts,
		requestTimeout: requestTimeout,
		httpClient:     httpClient,
		debug:          cfg.Debug,
		logger:         logger,
	}
}

// do runs one authenticated request with the retry/backoff policy and
// returns the raw response payload. Auth and validation failures
// surface immediately; server and transport failures are retried with
// delays of 100ms, 200ms, 400ms, ... until the attempt budget runs out.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	if c.apiKey == "" {
		return nil, &domain.AuthError{Message: "API key not set"}
	}

	endpoint := c.baseURL + "/" + strings.TrimPrefix(path, "/")

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if c.debug && attempt > 0 {
			c.logger.Printf("api: retry attempt %d for %s", attempt, endpoint)
		}

		payload, err := c.doOnce(ctx, method, endpoint, body)
		if err == nil {
			return payload, nil
		}
		if !domain.Retryable(err) {
			return nil, err
		}
		lastErr = err

		if attempt == c.maxAttempts-1 {
			break
		}

		delay := retryBaseDelay * time.Duration(1<<attempt)
		if c.debug {
			c.logger.Printf("api: attempt %d failed, retrying in %s", attempt+1, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, &domain.NetworkError{
		Message: fmt.Sprintf("request failed after %d attempts", c.maxAttempts),
		Cause:   lastErr,
	}
}

func (c *Client) doOnce(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Message: "request " + method + " failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domain.NetworkError{Message: "read response body", Cause: err}
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return data, nil
	}

	return nil, classifyStatus(resp.StatusCode, decodeErrorMessage(data))
}

func classifyStatus(statusCode int, message string) error {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &domain.AuthError{Message: "authentication failed: " + orStatus(message, statusCode)}
	case statusCode == http.StatusBadRequest:
		return &domain.ValidationError{Message: "invalid request: " + orStatus(message, statusCode)}
	case statusCode == http.StatusNotFound:
		return &domain.NotFoundError{Message: "not found: " + orStatus(message, statusCode)}
	case statusCode >= 500 && statusCode <= 599:
		return &domain.ServerError{StatusCode: statusCode, Message: message}
	default:
		return &domain.NetworkError{Message: "request failed: " + orStatus(message, statusCode)}
	}
}

// decodeErrorMessage pulls the human-readable message out of a
// {"error":{"message":...}} body, tolerating anything else.
func decodeErrorMessage(data []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.Error.Message
}

func orStatus(message string, statusCode int) string {
	if message != "" {
		return message
	}
	return fmt.Sprintf("status %d", statusCode)
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

// request decodes a response payload into the declared shape.
func request[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var out T

	data, err := c.do(ctx, method, path, body)
	if err != nil {
		return out, err
	}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// requestEmpty is the fire-and-forget variant for endpoints that
// return no body on success.
func requestEmpty(ctx context.Context, c *Client, method, path string, body any) error {
	_, err := c.do(ctx, method, path, body)
	return err
}
