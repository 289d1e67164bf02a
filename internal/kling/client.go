package kling

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/maauso/concepto-video-api/internal/httpclient"
)

// DefaultBaseURL is the public Kling API root.
const DefaultBaseURL = "https://api-singapore.klingai.com"

// Static errors for Kling client operations.
var (
	// ErrTaskIDRequired is returned when the task ID is not provided.
	ErrTaskIDRequired = errors.New("kling: task ID is required")
	// ErrNoTaskIDReturned is returned when the submit response contains no task ID.
	ErrNoTaskIDReturned = errors.New("kling: submit failed: no task ID returned")
	// ErrAPIError is returned when the response envelope carries a non-zero code.
	ErrAPIError = errors.New("kling: api error")
	// ErrNoOutputURL is returned when a download is requested without a URL.
	ErrNoOutputURL = errors.New("kling: no output URL")
)

// Client defines the interface for interacting with the Kling API.
type Client interface {
	// Submit creates a generation task and returns its reference.
	Submit(ctx context.Context, opts SubmitOptions) (TaskRef, error)

	// Poll checks the status of a task.
	Poll(ctx context.Context, ref TaskRef) (PollResult, error)

	// DownloadOutput opens the produced video.
	DownloadOutput(ctx context.Context, outputURL string) (io.ReadCloser, error)
}

// HTTPClient is the HTTP implementation of the Kling Client interface.
type HTTPClient struct {
	api *httpclient.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*clientConfig)

type clientConfig struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL overrides the API root (KLING_API_BASE_URL).
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

// NewClient creates a new Kling HTTP client with the given credentials.
func NewClient(creds Credentials, opts ...ClientOption) (*HTTPClient, error) {
	cfg := clientConfig{baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(&cfg)
	}

	auth, err := NewAuthorizer(creds)
	if err != nil {
		return nil, err
	}

	api, err := httpclient.New("kling", cfg.baseURL,
		httpclient.WithHTTPClient(cfg.httpClient),
		httpclient.WithAuthorizer(auth),
	)
	if err != nil {
		return nil, err
	}
	return &HTTPClient{api: api}, nil
}

// Submit creates a generation task and returns its reference.
func (c *HTTPClient) Submit(ctx context.Context, opts SubmitOptions) (TaskRef, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = EndpointImage2Video
	}

	var body any
	switch endpoint {
	case EndpointOmniVideo:
		req := omniVideoRequest{
			ModelName:   opts.ModelName,
			Prompt:      opts.Prompt,
			Mode:        opts.Mode,
			Duration:    durationString(opts.Duration),
			AspectRatio: opts.AspectRatio,
		}
		if opts.Image != "" {
			req.ImageList = append(req.ImageList, omniImage{ImageURL: opts.Image, Type: "first_frame"})
		}
		if opts.ImageTail != "" {
			req.ImageList = append(req.ImageList, omniImage{ImageURL: opts.ImageTail, Type: "end_frame"})
		}
		body = req
	default:
		body = image2VideoRequest{
			ModelName:   opts.ModelName,
			Image:       opts.Image,
			ImageTail:   opts.ImageTail,
			Prompt:      opts.Prompt,
			Mode:        opts.Mode,
			Duration:    durationString(opts.Duration),
			AspectRatio: opts.AspectRatio,
		}
	}

	var resp apiResponse
	if err := c.api.DoJSON(ctx, http.MethodPost, "/v1/videos/"+string(endpoint), body, &resp); err != nil {
		return TaskRef{}, fmt.Errorf("kling: submit: %w", err)
	}
	if resp.Code != 0 {
		return TaskRef{}, fmt.Errorf("%w %d: %s", ErrAPIError, resp.Code, resp.Message)
	}
	if resp.Data.TaskID == "" {
		return TaskRef{}, ErrNoTaskIDReturned
	}

	return TaskRef{Endpoint: endpoint, ID: resp.Data.TaskID}, nil
}

// Poll checks the status of a task.
func (c *HTTPClient) Poll(ctx context.Context, ref TaskRef) (PollResult, error) {
	if ref.ID == "" {
		return PollResult{}, ErrTaskIDRequired
	}

	var resp apiResponse
	path := fmt.Sprintf("/v1/videos/%s/%s", ref.Endpoint, ref.ID)
	if err := c.api.DoJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return PollResult{}, fmt.Errorf("kling: poll: %w", err)
	}
	if resp.Code != 0 {
		return PollResult{}, fmt.Errorf("%w %d: %s", ErrAPIError, resp.Code, resp.Message)
	}

	result := PollResult{
		Status:  Status(resp.Data.TaskStatus),
		Message: resp.Data.TaskStatusMsg,
	}
	if result.Status == StatusSucceed {
		if u, ok := resp.Data.videoURL(); ok {
			result.VideoURL = u
		} else {
			result.Message = "task_result.videos[0].url missing from response"
		}
	}
	return result, nil
}

// DownloadOutput opens the produced video. Kling result URLs are public.
func (c *HTTPClient) DownloadOutput(ctx context.Context, outputURL string) (io.ReadCloser, error) {
	if outputURL == "" {
		return nil, ErrNoOutputURL
	}
	body, err := c.api.Stream(ctx, httpclient.Request{Method: http.MethodGet, Path: outputURL, SkipAuth: true})
	if err != nil {
		return nil, fmt.Errorf("kling: download: %w", err)
	}
	return body, nil
}

// durationString renders the duration the way the API expects it ("5", "10").
func durationString(d int) string {
	if d <= 0 {
		return ""
	}
	return strconv.Itoa(d)
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
