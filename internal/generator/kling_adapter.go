package generator

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/maauso/concepto-video-api/internal/kling"
)

const (
	klingDefaultDuration = 5
	// klingTailDuration is the only duration that accepts an end frame.
	klingTailDuration = 10
)

// KlingAdapter adapts the Kling client to the Generator interface.
// Task handles are kling.TaskRef strings so polling hits the right endpoint.
type KlingAdapter struct {
	client   kling.Client
	interval time.Duration
}

// NewKlingAdapter creates a new Kling generator adapter.
func NewKlingAdapter(client kling.Client) *KlingAdapter {
	return &KlingAdapter{
		client:   client,
		interval: DefaultPollInterval,
	}
}

// WithPollInterval overrides the delay between polls.
func (a *KlingAdapter) WithPollInterval(d time.Duration) *KlingAdapter {
	if d > 0 {
		a.interval = d
	}
	return a
}

// Vendor implements Generator.
func (a *KlingAdapter) Vendor() Vendor { return VendorKling }

// PollPolicy implements Generator.
func (a *KlingAdapter) PollPolicy() PollPolicy {
	return PollPolicy{Interval: a.interval, MaxAttempts: LongPollAttempts}
}

// Validate checks the Kling rules.
func (a *KlingAdapter) Validate(req Request) error {
	if err := validateCommon(req); err != nil {
		return err
	}
	d := req.DurationOr(klingDefaultDuration)
	switch req.Type {
	case TypeImageToVideo:
		if req.ImageURL == "" {
			return fmt.Errorf("%w: kling image-to-video requires an image", ErrMissingInput)
		}
		if !slices.Contains([]int{5, 10}, d) {
			return fmt.Errorf("%w: kling accepts 5 or 10 seconds, got %d", ErrInvalidDuration, d)
		}
	case TypeFramesToVideo:
		if req.Mode != ModePro || d != klingTailDuration {
			return fmt.Errorf("%w: kling frames-to-video (end frame) requires pro mode and 10-second duration, got mode=%s duration=%d",
				ErrInvalidParameter, req.Mode, d)
		}
	default:
		return fmt.Errorf("%w: kling does not support %s", ErrUnsupportedType, req.Type)
	}
	return nil
}

// Submit creates the Kling task on the endpoint family of the model.
func (a *KlingAdapter) Submit(ctx context.Context, req Request) (string, error) {
	opts := kling.SubmitOptions{
		Endpoint:    klingEndpoint(req.Model),
		ModelName:   req.Model,
		Image:       req.ImageURL,
		Prompt:      req.Prompt,
		Mode:        req.Mode,
		Duration:    req.DurationOr(klingDefaultDuration),
		AspectRatio: req.AspectRatio,
	}
	if req.Type == TypeFramesToVideo {
		opts.Image = req.StartFrameURL
		opts.ImageTail = req.EndFrameURL
	}

	ref, err := a.client.Submit(ctx, opts)
	if err != nil {
		return "", fmt.Errorf("kling adapter submit: %w", err)
	}
	return ref.String(), nil
}

// Poll checks the status of a Kling task.
func (a *KlingAdapter) Poll(ctx context.Context, taskID string) (PollResult, error) {
	ref, err := kling.ParseTaskRef(taskID)
	if err != nil {
		return PollResult{}, fmt.Errorf("kling adapter poll: %w", err)
	}

	result, err := a.client.Poll(ctx, ref)
	if err != nil {
		return PollResult{}, fmt.Errorf("kling adapter poll: %w", err)
	}

	out := PollResult{TaskID: taskID, Error: result.Message}
	switch result.Status {
	case kling.StatusSubmitted, kling.StatusSubmit:
		out.Status = StatusPending
	case kling.StatusProcessing:
		out.Status = StatusRunning
	case kling.StatusSucceed:
		out.Status = StatusSucceeded
		out.VideoURL = result.VideoURL
	case kling.StatusFailed:
		out.Status = StatusFailed
	default:
		out.Status = StatusRunning
	}
	return out, nil
}

// DownloadOutput opens the Kling result URL.
func (a *KlingAdapter) DownloadOutput(ctx context.Context, result PollResult) (io.ReadCloser, error) {
	rc, err := a.client.DownloadOutput(ctx, result.VideoURL)
	if err != nil {
		return nil, fmt.Errorf("kling adapter download: %w", err)
	}
	return rc, nil
}

// klingEndpoint routes omni models to the omni-video family.
func klingEndpoint(model string) kling.Endpoint {
	m := strings.ToLower(model)
	if strings.Contains(m, "omni") || strings.HasPrefix(m, "kling-video-o1") {
		return kling.EndpointOmniVideo
	}
	return kling.EndpointImage2Video
}

// Compile-time check that KlingAdapter implements Generator.
var _ Generator = (*KlingAdapter)(nil)
