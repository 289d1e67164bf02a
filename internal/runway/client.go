package runway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/maauso/concepto-video-api/internal/httpclient"
)

// Defaults for the Runway developer API.
const (
	DefaultBaseURL    = "https://api.dev.runwayml.com/v1"
	DefaultAPIVersion = "2024-11-06"
)

// Static errors for Runway client operations.
var (
	// ErrAPIKeyRequired is returned when RUNWAY_API_KEY is not provided.
	ErrAPIKeyRequired = errors.New("runway: API key is required")
	// ErrTaskIDRequired is returned when the task ID is not provided.
	ErrTaskIDRequired = errors.New("runway: task ID is required")
	// ErrNoTaskIDReturned is returned when the submit response contains no task ID.
	ErrNoTaskIDReturned = errors.New("runway: submit failed: no task ID returned")
	// ErrNoImages is returned when image_to_video is submitted without images.
	ErrNoImages = errors.New("runway: at least one prompt image is required")
	// ErrUploadSlot is returned when the upload endpoint returns an unusable slot.
	ErrUploadSlot = errors.New("runway: upload slot missing uploadUrl or runwayUri")
	// ErrNoOutputURL is returned when a download is requested without a URL.
	ErrNoOutputURL = errors.New("runway: no output URL")
)

// Client defines the interface for interacting with the Runway API.
type Client interface {
	ImageToVideo(ctx context.Context, opts ImageToVideoOptions) (taskID string, err error)
	CharacterPerformance(ctx context.Context, opts CharacterPerformanceOptions) (taskID string, err error)
	VideoUpscale(ctx context.Context, opts VideoUpscaleOptions) (taskID string, err error)

	// Poll checks the status of a task.
	Poll(ctx context.Context, taskID string) (PollResult, error)

	// UploadEphemeral pushes media into Runway's temporary storage and returns
	// the runway:// URI that task bodies can reference.
	UploadEphemeral(ctx context.Context, filename, contentType string, data []byte) (string, error)

	// DownloadOutput opens the produced video.
	DownloadOutput(ctx context.Context, outputURL string) (io.ReadCloser, error)
}

// HTTPClient is the HTTP implementation of the Runway Client interface.
type HTTPClient struct {
	api *httpclient.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*clientConfig)

type clientConfig struct {
	baseURL    string
	apiVersion string
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

// WithAPIVersion overrides the X-Runway-Version header.
func WithAPIVersion(v string) ClientOption {
	return func(c *clientConfig) {
		if v != "" {
			c.apiVersion = v
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// NewClient creates a new Runway HTTP client.
func NewClient(apiKey string, opts ...ClientOption) (*HTTPClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	cfg := clientConfig{baseURL: DefaultBaseURL, apiVersion: DefaultAPIVersion}
	for _, opt := range opts {
		opt(&cfg)
	}

	api, err := httpclient.New("runway", cfg.baseURL,
		httpclient.WithHTTPClient(cfg.httpClient),
		httpclient.WithAuthorizer(httpclient.Bearer(apiKey)),
		httpclient.WithHeader("X-Runway-Version", cfg.apiVersion),
	)
	if err != nil {
		return nil, err
	}
	return &HTTPClient{api: api}, nil
}

// ImageToVideo starts an image_to_video task. A single image is sent as a
// plain URI; keyframe pairs are sent with their positions.
func (c *HTTPClient) ImageToVideo(ctx context.Context, opts ImageToVideoOptions) (string, error) {
	if len(opts.Images) == 0 {
		return "", ErrNoImages
	}

	var promptImage any = opts.Images
	if len(opts.Images) == 1 && opts.Images[0].Position != PositionLast {
		promptImage = opts.Images[0].URI
	}

	return c.createTask(ctx, "/image_to_video", imageToVideoRequest{
		Model:       opts.Model,
		PromptImage: promptImage,
		PromptText:  opts.PromptText,
		Ratio:       opts.Ratio,
		Duration:    opts.Duration,
	})
}

// CharacterPerformance starts a character_performance task.
func (c *HTTPClient) CharacterPerformance(ctx context.Context, opts CharacterPerformanceOptions) (string, error) {
	return c.createTask(ctx, "/character_performance", characterPerformanceRequest{
		Model:     opts.Model,
		Character: mediaRef{Type: "image", URI: opts.CharacterURI},
		Reference: mediaRef{Type: "video", URI: opts.ReferenceURI},
		Ratio:     opts.Ratio,
	})
}

// VideoUpscale starts a video_upscale task.
func (c *HTTPClient) VideoUpscale(ctx context.Context, opts VideoUpscaleOptions) (string, error) {
	return c.createTask(ctx, "/video_upscale", videoUpscaleRequest{
		Model:    opts.Model,
		VideoURI: opts.VideoURI,
	})
}

// createTask posts a task body and extracts the task ID.
func (c *HTTPClient) createTask(ctx context.Context, path string, body any) (string, error) {
	var resp taskResponse
	if err := c.api.DoJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", fmt.Errorf("runway: submit %s: %w", path, err)
	}
	if resp.ID == "" {
		return "", ErrNoTaskIDReturned
	}
	return resp.ID, nil
}

// Poll checks the status of a task.
func (c *HTTPClient) Poll(ctx context.Context, taskID string) (PollResult, error) {
	if taskID == "" {
		return PollResult{}, ErrTaskIDRequired
	}

	var resp statusResponse
	if err := c.api.DoJSON(ctx, http.MethodGet, "/tasks/"+taskID, nil, &resp); err != nil {
		return PollResult{}, fmt.Errorf("runway: poll: %w", err)
	}

	result := PollResult{
		Status:   Status(resp.Status),
		Progress: resp.Progress,
	}

	switch result.Status {
	case StatusSucceeded:
		if len(resp.Output) > 0 && resp.Output[0] != "" {
			result.OutputURL = resp.Output[0]
		} else {
			result.Error = "output[0] missing from response"
		}
	case StatusFailed, StatusCancelled:
		result.Error = resp.Failure
		if resp.FailureCode != "" {
			result.Error = fmt.Sprintf("%s (%s)", resp.Failure, resp.FailureCode)
		}
	}

	return result, nil
}

// UploadEphemeral requests an upload slot, posts the file to it and returns
// the runway URI of the uploaded media.
func (c *HTTPClient) UploadEphemeral(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	var slot uploadResponse
	if err := c.api.DoJSON(ctx, http.MethodPost, "/uploads", uploadRequest{Filename: filename, Type: "ephemeral"}, &slot); err != nil {
		return "", fmt.Errorf("runway: request upload slot: %w", err)
	}
	if slot.UploadURL == "" || slot.RunwayURI == "" {
		return "", ErrUploadSlot
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range slot.Fields {
		if err := w.WriteField(k, v); err != nil {
			return "", fmt.Errorf("runway: write upload field: %w", err)
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("runway: create upload part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("runway: write upload part: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("runway: close upload form: %w", err)
	}

	if err := c.api.Do(ctx, httpclient.Request{
		Method:      http.MethodPost,
		Path:        slot.UploadURL,
		Body:        &buf,
		ContentType: w.FormDataContentType(),
		SkipAuth:    true,
	}, nil); err != nil {
		return "", fmt.Errorf("runway: upload %s: %w", filename, err)
	}

	return slot.RunwayURI, nil
}

// DownloadOutput opens the produced video.
func (c *HTTPClient) DownloadOutput(ctx context.Context, outputURL string) (io.ReadCloser, error) {
	if outputURL == "" {
		return nil, ErrNoOutputURL
	}
	body, err := c.api.Stream(ctx, httpclient.Request{Method: http.MethodGet, Path: outputURL, SkipAuth: true})
	if err != nil {
		return nil, fmt.Errorf("runway: download: %w", err)
	}
	return body, nil
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
