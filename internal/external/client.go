// Package external holds the HTTP clients for the collaborator services
// that supply display names, audience expansion, and token validation.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// TokenProvider supplies the service credential attached to outbound calls.
type TokenProvider func() (string, error)

// Client is the shared HTTP transport for collaborator services. All calls
// go through a single rate limiter so a burst of name lookups cannot
// hammer a downstream service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	token      TokenProvider
}

// NewClient creates a rate-limited client rooted at baseURL.
func NewClient(baseURL string, token TokenProvider) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(20), 40),
		token:   token,
	}
}

// WithToken returns a client that shares this client's transport and rate
// limiter but attaches a different credential.
func (c *Client) WithToken(token TokenProvider) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// GetJSON performs a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// PostJSON performs a POST with a JSON body and decodes the response.
func (c *Client) PostJSON(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		token, err := c.token()
		if err != nil {
			return fmt.Errorf("failed to obtain service token: %w", err)
		}
		req.Header.Set("Authorization", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Status: resp.StatusCode, Body: string(snippet)}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// StatusError is a non-2xx response from a collaborator service.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}

// IsUnauthorized reports whether err is an upstream 401 or 403.
func IsUnauthorized(err error) bool {
	if se, ok := err.(*StatusError); ok {
		return se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden
	}
	return false
}
