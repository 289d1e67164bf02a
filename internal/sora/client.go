package sora

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/maauso/concepto-video-api/internal/httpclient"
)

// DefaultBaseURL is the OpenAI API root.
const DefaultBaseURL = "https://api.openai.com/v1"

// Static errors for Sora client operations.
var (
	// ErrAPIKeyRequired is returned when the OpenAI API key is not provided.
	ErrAPIKeyRequired = errors.New("sora: API key is required")
	// ErrVideoIDRequired is returned when the video ID is not provided.
	ErrVideoIDRequired = errors.New("sora: video ID is required")
	// ErrNoVideoIDReturned is returned when the submit response contains no ID.
	ErrNoVideoIDReturned = errors.New("sora: submit failed: no video ID returned")
)

// Client defines the interface for interacting with the Sora videos API.
type Client interface {
	// Submit creates a video job and returns its ID.
	Submit(ctx context.Context, opts SubmitOptions) (videoID string, err error)

	// Poll checks the status of a video job.
	Poll(ctx context.Context, videoID string) (PollResult, error)

	// ContentURL returns the authenticated download URL of a finished job.
	ContentURL(videoID string) string

	// DownloadOutput opens the produced video of a finished job.
	DownloadOutput(ctx context.Context, videoID string) (io.ReadCloser, error)
}

// HTTPClient is the HTTP implementation of the Sora Client interface.
type HTTPClient struct {
	api *httpclient.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*clientConfig)

type clientConfig struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL overrides the API root.
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// NewClient creates a new Sora HTTP client.
func NewClient(apiKey string, opts ...ClientOption) (*HTTPClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	cfg := clientConfig{baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(&cfg)
	}

	api, err := httpclient.New("sora", cfg.baseURL,
		httpclient.WithHTTPClient(cfg.httpClient),
		httpclient.WithAuthorizer(httpclient.Bearer(apiKey)),
	)
	if err != nil {
		return nil, err
	}
	return &HTTPClient{api: api}, nil
}

// Submit creates a video job with a multipart form body.
func (c *HTTPClient) Submit(ctx context.Context, opts SubmitOptions) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"model", opts.Model},
		{"prompt", opts.Prompt},
		{"size", opts.Size},
	}
	if opts.Seconds > 0 {
		fields = append(fields, [2]string{"seconds", strconv.Itoa(opts.Seconds)})
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := w.WriteField(f[0], f[1]); err != nil {
			return "", fmt.Errorf("sora: write field %s: %w", f[0], err)
		}
	}

	if ref := opts.InputReference; ref != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="input_reference"; filename="%s"`, ref.Filename))
		h.Set("Content-Type", ref.ContentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return "", fmt.Errorf("sora: create input_reference part: %w", err)
		}
		if _, err := part.Write(ref.Data); err != nil {
			return "", fmt.Errorf("sora: write input_reference: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("sora: close form: %w", err)
	}

	var resp videoResponse
	if err := c.api.Do(ctx, httpclient.Request{
		Method:      http.MethodPost,
		Path:        "/videos",
		Body:        &buf,
		ContentType: w.FormDataContentType(),
	}, &resp); err != nil {
		return "", fmt.Errorf("sora: submit: %w", err)
	}
	if resp.ID == "" {
		return "", ErrNoVideoIDReturned
	}
	return resp.ID, nil
}

// Poll checks the status of a video job.
func (c *HTTPClient) Poll(ctx context.Context, videoID string) (PollResult, error) {
	if videoID == "" {
		return PollResult{}, ErrVideoIDRequired
	}

	var resp videoResponse
	if err := c.api.DoJSON(ctx, http.MethodGet, "/videos/"+videoID, nil, &resp); err != nil {
		return PollResult{}, fmt.Errorf("sora: poll: %w", err)
	}

	result := PollResult{
		Status:   Status(resp.Status),
		Progress: resp.Progress,
	}
	if result.Status == StatusFailed {
		result.Error = "video generation failed"
		if resp.Error != nil && resp.Error.Message != "" {
			result.Error = resp.Error.Message
		}
	}
	return result, nil
}

// ContentURL returns the authenticated download URL of a finished job.
func (c *HTTPClient) ContentURL(videoID string) string {
	return c.api.URL("/videos/" + videoID + "/content")
}

// DownloadOutput opens the produced video of a finished job.
func (c *HTTPClient) DownloadOutput(ctx context.Context, videoID string) (io.ReadCloser, error) {
	if videoID == "" {
		return nil, ErrVideoIDRequired
	}
	body, err := c.api.Stream(ctx, httpclient.Request{Method: http.MethodGet, Path: "/videos/" + videoID + "/content"})
	if err != nil {
		return nil, fmt.Errorf("sora: download: %w", err)
	}
	return body, nil
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
