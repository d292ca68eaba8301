package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultUserAgent = "pufferwatch/0.1"
	headerTimeout    = 15 * time.Second
)

// Opener returns a connected stream for a remote log. *Client implements it;
// tests substitute their own.
type Opener interface {
	Open(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

var _ Opener = (*Client)(nil)

// Client fetches remote logs over HTTP.
type Client struct {
	http      *http.Client
	userAgent string
}

// NewClient returns a Client. The response body is streamed, so there is no
// overall request timeout; only waiting for response headers is bounded.
func NewClient() *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &Client{
		http:      &http.Client{Transport: transport},
		userAgent: defaultUserAgent,
	}
}

// Open issues a GET for rawURL and returns the response body once the server
// answers with a 2xx status. The body is bound to ctx: cancelling ctx aborts
// any pending read.
func (c *Client) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	u, err := parseLogURL(rawURL)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain, */*")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("remote log %s returned status %d", u.Redacted(), resp.StatusCode)
	}
	return resp.Body, nil
}

func parseLogURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("remote log url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse remote url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse remote url %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse remote url %q: missing host", raw)
	}
	u.Fragment = ""
	return u, nil
}
