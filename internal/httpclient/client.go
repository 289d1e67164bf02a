// Package httpclient provides the JSON/multipart transport shared by the
// vendor API clients. Requests are never retried: a non-2xx response is
// returned as a *StatusError carrying the vendor's response body.
package httpclient

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

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 4096

// ErrBaseURLRequired is returned when a client is created without a base URL.
var ErrBaseURLRequired = errors.New("httpclient: base URL is required")

// StatusError is returned when a vendor responds with a non-2xx status code.
type StatusError struct {
	Vendor     string
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s %s returned status %d: %s", e.Vendor, e.Method, e.URL, e.StatusCode, e.Body)
}

// Client performs authenticated requests against a single vendor API.
type Client struct {
	vendor     string
	baseURL    string
	httpClient *http.Client
	auth       Authorizer
	headers    map[string]string

	// secretHeaders are dropped when a redirect leaves the original host.
	secretHeaders []string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithAuthorizer sets the authentication scheme applied to every request.
func WithAuthorizer(a Authorizer) Option {
	return func(c *Client) {
		c.auth = a
	}
}

// WithSecretHeader marks a credential header that must not follow a redirect
// to another host. net/http only strips Authorization, Cookie and
// WWW-Authenticate on its own.
func WithSecretHeader(name string) Option {
	return func(c *Client) {
		c.secretHeaders = append(c.secretHeaders, name)
	}
}

// WithHeader adds a static header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// New creates a Client for the named vendor rooted at baseURL.
func New(vendor, baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w (%s)", ErrBaseURLRequired, vendor)
	}
	c := &Client{
		vendor:     vendor,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		headers:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.secretHeaders) > 0 {
		c.httpClient = stripOnRedirect(c.httpClient, c.secretHeaders)
	}
	return c, nil
}

// maxRedirects matches the net/http default policy.
const maxRedirects = 10

// stripOnRedirect returns a copy of hc that removes headers from requests
// redirected to a host other than the first request's. The caller's client
// is left untouched because it may be shared between vendors.
func stripOnRedirect(hc *http.Client, headers []string) *http.Client {
	next := hc.CheckRedirect
	wrapped := *hc
	wrapped.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > 0 && req.URL.Host != via[0].URL.Host {
			for _, h := range headers {
				req.Header.Del(h)
			}
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
	return &wrapped
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL resolves path against the base URL. Absolute URLs are returned as is.
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Request describes a single vendor call.
type Request struct {
	Method      string
	Path        string
	Body        io.Reader
	ContentType string
	// SkipAuth leaves out the vendor credentials, e.g. for presigned upload slots.
	SkipAuth bool
}

// DoJSON marshals in (when non-nil), sends it and decodes the response into out.
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any) error {
	req := Request{Method: method, Path: path}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", c.vendor, err)
		}
		req.Body = bytes.NewReader(body)
		req.ContentType = "application/json"
	}
	return c.Do(ctx, req, out)
}

// Do sends r and decodes a JSON response into out when out is non-nil.
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", c.vendor, err)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%s: unmarshal response: %w", c.vendor, err)
		}
	}
	return nil
}

// Stream sends r and returns the raw response body for the caller to consume.
// The caller must close the returned reader.
func (c *Client) Stream(ctx context.Context, r Request) (io.ReadCloser, error) {
	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// send performs the request and converts non-2xx responses into *StatusError.
func (c *Client) send(ctx context.Context, r Request) (*http.Response, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	url := c.URL(r.Path)

	req, err := http.NewRequestWithContext(ctx, method, url, r.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", c.vendor, err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.auth != nil && !r.SkipAuth {
		if err := c.auth.Authorize(req); err != nil {
			return nil, fmt.Errorf("%s: authorize request: %w", c.vendor, err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %s %s: %w", c.vendor, method, url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Vendor:     c.vendor,
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return resp, nil
}
