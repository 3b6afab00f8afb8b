package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/openbanking-labs/consent-admin-api/internal/system/config"
	"github.com/openbanking-labs/consent-admin-api/internal/system/constants"
)

// Client talks to the consent backend. The base URL is not assumed known in
// advance: candidates from configuration are probed in order and the first
// one that answers is remembered for subsequent calls. An explicit
// api_base_override in configuration disables the probing entirely.
type Client struct {
	httpClient    *http.Client
	candidates    []string
	authToken     string
	retryAttempts int
	logger        *logrus.Logger

	mu           sync.Mutex
	resolvedBase string
}

func NewClient(cfg *config.UpstreamConfig, logger *logrus.Logger) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		candidates:    cfg.Candidates(),
		authToken:     cfg.AuthToken,
		retryAttempts: cfg.RetryAttempts,
		logger:        logger,
	}
}

// bases returns the base URLs to try, resolved base first.
func (c *Client) bases() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolvedBase == "" {
		return c.candidates
	}
	ordered := make([]string, 0, len(c.candidates)+1)
	ordered = append(ordered, c.resolvedBase)
	for _, b := range c.candidates {
		if b != c.resolvedBase {
			ordered = append(ordered, b)
		}
	}
	return ordered
}

func (c *Client) rememberBase(base string) {
	c.mu.Lock()
	c.resolvedBase = base
	c.mu.Unlock()
}

// getJSON issues a GET against the first responsive base URL and hands the
// body to the supplied decoder.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, decode func([]byte) error) error {
	return c.do(ctx, http.MethodGet, path, query, nil, decode)
}

// postJSON issues a POST with a JSON body.
func (c *Client) postJSON(ctx context.Context, path string, body any, decode func([]byte) error) error {
	return c.do(ctx, http.MethodPost, path, nil, body, decode)
}

// patchJSON issues a PATCH with an optional JSON body.
func (c *Client) patchJSON(ctx context.Context, path string, body any, decode func([]byte) error) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, decode)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, decode func([]byte) error) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = encoded
	}

	var lastErr error
	for _, base := range c.bases() {
		data, err := c.attempt(ctx, method, base, path, query, payload)
		if err != nil {
			// A 4xx means the base answered; the request itself is bad.
			// Surface it as-is instead of replaying against other bases.
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				c.rememberBase(base)
				return err
			}
			lastErr = err
			if c.logger != nil {
				c.logger.WithError(err).WithFields(logrus.Fields{
					"base": base,
					"path": path,
				}).Debug("Upstream base did not answer, trying next candidate")
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		c.rememberBase(base)
		if decode == nil {
			return nil
		}
		return decode(data)
	}
	return fmt.Errorf("all upstream base URLs failed: %w", lastErr)
}

// attempt runs one request against one base, with bounded retry on
// transport errors and 5xx responses. Client errors (4xx) are not retried
// and not treated as a reason to fall over to another base URL candidate.
func (c *Client) attempt(ctx context.Context, method, base, path string, query url.Values, payload []byte) ([]byte, error) {
	target := base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var lastErr error
	for i := 0; i <= c.retryAttempts; i++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set(constants.ContentTypeHeaderName, constants.ContentTypeJSON)
		}
		if c.authToken != "" {
			req.Header.Set(constants.AuthorizationHeaderName, constants.TokenTypeBearer+" "+c.authToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("upstream returned %d for %s %s", resp.StatusCode, method, path)
			continue
		}
		if readErr != nil {
			lastErr = readErr
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, &StatusError{Code: resp.StatusCode, Body: string(data)}
		}
		return data, nil
	}
	return nil, lastErr
}

// StatusError is a non-retryable upstream response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Body)
}
