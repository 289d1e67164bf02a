package veo

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/maauso/concepto-video-api/internal/httpclient"
)

// DefaultBaseURL is the Gemini API root.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const apiKeyHeader = "x-goog-api-key"

// Static errors for Veo client operations.
var (
	// ErrAPIKeyRequired is returned when no Veo/Gemini key is provided.
	ErrAPIKeyRequired = errors.New("veo: API key is required")
	// ErrOperationRequired is returned when the operation name is not provided.
	ErrOperationRequired = errors.New("veo: operation name is required")
	// ErrNoOperationReturned is returned when the submit response names no operation.
	ErrNoOperationReturned = errors.New("veo: submit failed: no operation name returned")
	// ErrLastFrameWithoutImage is returned when a last frame is sent without a first frame.
	ErrLastFrameWithoutImage = errors.New("veo: lastFrame requires image")
	// ErrNoOutputURL is returned when a download is requested without a URI.
	ErrNoOutputURL = errors.New("veo: no output URI")
)

// Client defines the interface for interacting with the Veo API.
type Client interface {
	// Submit starts a generation and returns the operation name.
	Submit(ctx context.Context, model string, opts SubmitOptions) (operationName string, err error)

	// Poll fetches the operation state.
	Poll(ctx context.Context, operationName string) (PollResult, error)

	// DownloadOutput opens the produced video. Veo file URIs require the API key.
	DownloadOutput(ctx context.Context, videoURI string) (io.ReadCloser, error)
}

// HTTPClient is the HTTP implementation of the Veo Client interface.
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

// NewClient creates a new Veo HTTP client.
func NewClient(apiKey string, opts ...ClientOption) (*HTTPClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	cfg := clientConfig{baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(&cfg)
	}

	api, err := httpclient.New("veo", cfg.baseURL,
		httpclient.WithHTTPClient(cfg.httpClient),
		httpclient.WithAuthorizer(httpclient.APIKeyHeader(apiKeyHeader, apiKey)),
		httpclient.WithSecretHeader(apiKeyHeader),
	)
	if err != nil {
		return nil, err
	}
	return &HTTPClient{api: api}, nil
}

// Submit starts a generation and returns the operation name.
func (c *HTTPClient) Submit(ctx context.Context, model string, opts SubmitOptions) (string, error) {
	if opts.LastFrame != nil && opts.Image == nil {
		return "", ErrLastFrameWithoutImage
	}

	inst := instance{
		Prompt:    opts.Prompt,
		Image:     encode(opts.Image),
		LastFrame: encode(opts.LastFrame),
	}
	body := predictRequest{
		Instances: []instance{inst},
		Parameters: parameters{
			AspectRatio:     opts.AspectRatio,
			Resolution:      opts.Resolution,
			DurationSeconds: opts.DurationSeconds,
		},
	}

	var op operation
	path := fmt.Sprintf("/models/%s:predictLongRunning", model)
	if err := c.api.DoJSON(ctx, http.MethodPost, path, body, &op); err != nil {
		return "", fmt.Errorf("veo: submit: %w", err)
	}
	if op.Name == "" {
		return "", ErrNoOperationReturned
	}
	return op.Name, nil
}

// Poll fetches the operation state.
func (c *HTTPClient) Poll(ctx context.Context, operationName string) (PollResult, error) {
	if operationName == "" {
		return PollResult{}, ErrOperationRequired
	}

	var op operation
	if err := c.api.DoJSON(ctx, http.MethodGet, "/"+strings.TrimLeft(operationName, "/"), nil, &op); err != nil {
		return PollResult{}, fmt.Errorf("veo: poll: %w", err)
	}

	result := PollResult{Done: op.Done}
	if !op.Done {
		return result, nil
	}

	if op.Error != nil {
		result.Failed = true
		result.Error = fmt.Sprintf("%s (code %d)", op.Error.Message, op.Error.Code)
		return result, nil
	}

	if uri, ok := op.videoURI(); ok {
		result.VideoURI = uri
		return result, nil
	}

	result.Error = "response.generateVideoResponse.generatedSamples[0].video.uri missing from response"
	if op.Response != nil && op.Response.GenerateVideoResponse != nil {
		if reasons := op.Response.GenerateVideoResponse.RaiMediaFilteredReasons; len(reasons) > 0 {
			result.Error = "filtered by safety policy: " + strings.Join(reasons, "; ")
		}
	}
	return result, nil
}

// DownloadOutput opens the produced video with the API key attached.
func (c *HTTPClient) DownloadOutput(ctx context.Context, videoURI string) (io.ReadCloser, error) {
	if videoURI == "" {
		return nil, ErrNoOutputURL
	}
	body, err := c.api.Stream(ctx, httpclient.Request{Method: http.MethodGet, Path: videoURI})
	if err != nil {
		return nil, fmt.Errorf("veo: download: %w", err)
	}
	return body, nil
}

// encode converts an inline image into its wire form.
func encode(img *InlineImage) *encodedBlob {
	if img == nil {
		return nil
	}
	return &encodedBlob{
		BytesBase64Encoded: base64.StdEncoding.EncodeToString(img.Data),
		MimeType:           img.MimeType,
	}
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
