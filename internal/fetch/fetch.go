// Package fetch downloads text documents (feeds and web pages) with a
// bounded timeout.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout   = 20 * time.Second
	DefaultUserAgent = "folio/1.0 (+https://github.com/folio/reader)"

	// maxBodyBytes caps how much of a response is read into memory.
	maxBodyBytes = 16 << 20
)

// ErrNotText is returned when the response Content-Type is not a textual type.
var ErrNotText = errors.New("response is not text")

// Client fetches documents over HTTP.
type Client struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header sent with each request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a Client with a 20 second timeout unless overridden.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		userAgent:  DefaultUserAgent,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// FetchText downloads url and returns the body as a string. Transport errors,
// timeouts, non-2xx statuses and non-text responses are all errors.
func (c *Client) FetchText(ctx context.Context, url string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html;q=0.9, */*;q=0.8")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP error fetching %s: %s", url, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !IsText(contentType) {
		return "", fmt.Errorf("fetch %s: %w (content type %q)", url, ErrNotText, contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body of %s: %w", url, err)
	}

	log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Dur("duration", time.Since(start)).
		Msg("Fetched document")

	return string(data), nil
}

// IsText reports whether a Content-Type header value names a textual
// document. A missing header is accepted.
func IsText(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	switch {
	case strings.HasPrefix(mediaType, "text/"):
		return true
	case strings.Contains(mediaType, "xml"),
		strings.Contains(mediaType, "json"),
		strings.Contains(mediaType, "html"):
		return true
	}
	return false
}
