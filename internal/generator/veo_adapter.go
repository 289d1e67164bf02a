package generator

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/maauso/concepto-video-api/internal/veo"
)

const (
	veoDefaultDuration = 8
	// veoFramesDuration is the only length Veo accepts for first/last frame interpolation.
	veoFramesDuration = 8
)

// VeoAdapter adapts the Veo client to the Generator interface.
type VeoAdapter struct {
	client   veo.Client
	fetcher  MediaFetcher
	interval time.Duration
}

// NewVeoAdapter creates a new Veo generator adapter.
// Veo takes images inline, so the fetcher is required for image inputs.
func NewVeoAdapter(client veo.Client, fetcher MediaFetcher) *VeoAdapter {
	return &VeoAdapter{
		client:   client,
		fetcher:  fetcher,
		interval: DefaultPollInterval,
	}
}

// WithPollInterval overrides the delay between polls.
func (a *VeoAdapter) WithPollInterval(d time.Duration) *VeoAdapter {
	if d > 0 {
		a.interval = d
	}
	return a
}

// Vendor implements Generator.
func (a *VeoAdapter) Vendor() Vendor { return VendorVeo }

// PollPolicy implements Generator.
func (a *VeoAdapter) PollPolicy() PollPolicy {
	return PollPolicy{Interval: a.interval, MaxAttempts: VeoPollAttempts}
}

// Validate checks the Veo rules. Unknown model names end up here through
// the router fallthrough and are rejected as unsupported.
func (a *VeoAdapter) Validate(req Request) error {
	if !veo.IsSupportedModel(req.Model) {
		return fmt.Errorf("%w %q: known Veo models are %s",
			ErrUnsupportedModel, req.Model, strings.Join(veo.SupportedModels(), ", "))
	}
	if err := validateCommon(req); err != nil {
		return err
	}
	switch req.Type {
	case TypeImageToVideo:
		if d := req.DurationOr(veoDefaultDuration); !slices.Contains([]int{4, 6, 8}, d) {
			return fmt.Errorf("%w: veo accepts 4, 6 or 8 seconds, got %d", ErrInvalidDuration, d)
		}
		if req.ImageURL == "" && req.Prompt == "" {
			return fmt.Errorf("%w: veo image-to-video requires an image or a prompt", ErrMissingInput)
		}
	case TypeFramesToVideo:
		// duration is forced on submit
	default:
		return fmt.Errorf("%w: veo does not support %s", ErrUnsupportedType, req.Type)
	}
	return nil
}

// Submit fetches the input frames and starts the long-running operation.
func (a *VeoAdapter) Submit(ctx context.Context, req Request) (string, error) {
	opts := veo.SubmitOptions{
		Prompt:          req.Prompt,
		AspectRatio:     req.AspectRatio,
		Resolution:      req.Resolution,
		DurationSeconds: req.DurationOr(veoDefaultDuration),
	}

	var err error
	switch req.Type {
	case TypeImageToVideo:
		if req.ImageURL != "" {
			if opts.Image, err = a.inline(ctx, req.ImageURL); err != nil {
				return "", err
			}
		}
	case TypeFramesToVideo:
		if opts.Image, err = a.inline(ctx, req.StartFrameURL); err != nil {
			return "", err
		}
		if opts.LastFrame, err = a.inline(ctx, req.EndFrameURL); err != nil {
			return "", err
		}
		opts.DurationSeconds = veoFramesDuration
	}

	name, err := a.client.Submit(ctx, req.Model, opts)
	if err != nil {
		return "", fmt.Errorf("veo adapter submit: %w", err)
	}
	return name, nil
}

func (a *VeoAdapter) inline(ctx context.Context, rawURL string) (*veo.InlineImage, error) {
	if a.fetcher == nil {
		return nil, fmt.Errorf("veo adapter: no fetcher configured for %s", rawURL)
	}
	m, err := a.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("veo adapter fetch image: %w", err)
	}
	return &veo.InlineImage{Data: m.Data, MimeType: m.ContentType}, nil
}

// Poll checks the state of a Veo operation.
func (a *VeoAdapter) Poll(ctx context.Context, operationName string) (PollResult, error) {
	result, err := a.client.Poll(ctx, operationName)
	if err != nil {
		return PollResult{}, fmt.Errorf("veo adapter poll: %w", err)
	}

	out := PollResult{TaskID: operationName, Error: result.Error}
	switch {
	case !result.Done:
		out.Status = StatusRunning
	case result.Failed:
		out.Status = StatusFailed
	case result.VideoURI != "":
		out.Status = StatusSucceeded
		out.VideoURL = result.VideoURI
	default:
		// done without a sample: the poller reports no media produced
		out.Status = StatusSucceeded
	}
	return out, nil
}

// DownloadOutput opens the Veo video URI with the API key.
func (a *VeoAdapter) DownloadOutput(ctx context.Context, result PollResult) (io.ReadCloser, error) {
	rc, err := a.client.DownloadOutput(ctx, result.VideoURL)
	if err != nil {
		return nil, fmt.Errorf("veo adapter download: %w", err)
	}
	return rc, nil
}

// Compile-time check that VeoAdapter implements Generator.
var _ Generator = (*VeoAdapter)(nil)
