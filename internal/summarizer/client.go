// Package summarizer hands a finished report to an external summarization
// service and returns the prose it produces.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 60 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
	userAgent      = "github.com/theirongolddev/cbill/1.0"
)

var (
	// ErrUnauthorized indicates the API key is missing, expired or invalid.
	ErrUnauthorized = errors.New("summarizer: unauthorized (api key expired or invalid)")
	// ErrRateLimited indicates the service rate limit was hit.
	ErrRateLimited = errors.New("summarizer: rate limited")
	// ErrEmptySummary indicates the service answered without any prose.
	ErrEmptySummary = errors.New("summarizer: empty summary")
)

// Client posts report payloads to a summarization endpoint.
type Client struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	http     *http.Client
}

// NewClient creates a client for endpoint. Returns nil if endpoint is empty.
// A non-positive timeout selects the default of one minute.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   strings.TrimSpace(apiKey),
		timeout:  timeout,
		http:     &http.Client{},
	}
}

// Endpoint returns the URL reports are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Summarize sends p and returns the service's summary.
func (c *Client) Summarize(ctx context.Context, p Payload) (*Result, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("summarizer: encoding payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("summarizer: creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	//nolint:gosec // endpoint comes from local configuration
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("summarizer: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("summarizer: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("summarizer: reading response: %w", err)
	}

	text, err := parseSummary(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	return &Result{
		Text:       text,
		RequestID:  resp.Header.Get("X-Request-Id"),
		ReceivedAt: time.Now(),
	}, nil
}

// parseSummary extracts the prose from a response body. JSON bodies may be
// an object with "summary" or "text", or a bare string; anything else is
// taken as plain text.
func parseSummary(raw []byte, contentType string) (string, error) {
	var text string
	if strings.Contains(contentType, "json") {
		var r response
		var s string
		switch {
		case json.Unmarshal(raw, &s) == nil:
			text = s
		case json.Unmarshal(raw, &r) == nil:
			text = firstString(r.Summary, r.Text)
		default:
			return "", fmt.Errorf("summarizer: parsing response: invalid JSON")
		}
	} else {
		text = string(raw)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptySummary
	}
	return text, nil
}

func firstString(fields ...json.RawMessage) string {
	for _, f := range fields {
		var s string
		if len(f) > 0 && json.Unmarshal(f, &s) == nil && s != "" {
			return s
		}
	}
	return ""
}
