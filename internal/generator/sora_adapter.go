package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/maauso/concepto-video-api/internal/media"
	"github.com/maauso/concepto-video-api/internal/sora"
)

// Sora models.
const (
	SoraModel    = "sora-2"
	SoraProModel = "sora-2-pro"

	soraDefaultDuration = 4
)

// ErrProcessorRequired is returned when an input image must be re-encoded
// but no media processor or temp store is configured.
var ErrProcessorRequired = errors.New("sora input reference requires media processor and temp store")

// TempStore stages files on disk for external tools.
type TempStore interface {
	SaveTemp(ctx context.Context, name string, data io.Reader) (string, error)
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)
	CleanupTemp(ctx context.Context, paths []string) error
}

// SoraAdapter adapts the Sora client to the Generator interface.
type SoraAdapter struct {
	client    sora.Client
	fetcher   MediaFetcher
	processor media.Processor
	temp      TempStore
	interval  time.Duration
}

// NewSoraAdapter creates a new Sora generator adapter.
// Input images are resized through processor using temp files in temp.
func NewSoraAdapter(client sora.Client, fetcher MediaFetcher, processor media.Processor, temp TempStore) *SoraAdapter {
	return &SoraAdapter{
		client:    client,
		fetcher:   fetcher,
		processor: processor,
		temp:      temp,
		interval:  DefaultPollInterval,
	}
}

// WithPollInterval overrides the delay between polls.
func (a *SoraAdapter) WithPollInterval(d time.Duration) *SoraAdapter {
	if d > 0 {
		a.interval = d
	}
	return a
}

// Vendor implements Generator.
func (a *SoraAdapter) Vendor() Vendor { return VendorSora }

// PollPolicy implements Generator.
func (a *SoraAdapter) PollPolicy() PollPolicy {
	return PollPolicy{Interval: a.interval, MaxAttempts: LongPollAttempts}
}

// Validate checks the Sora rules.
func (a *SoraAdapter) Validate(req Request) error {
	model := soraModel(req.Model)
	if model != SoraModel && model != SoraProModel {
		return fmt.Errorf("%w %q: sora models are %s and %s", ErrUnsupportedModel, req.Model, SoraModel, SoraProModel)
	}
	if err := validateCommon(req); err != nil {
		return err
	}
	if req.Type != TypeImageToVideo {
		return fmt.Errorf("%w: sora does not support %s", ErrUnsupportedType, req.Type)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return fmt.Errorf("%w: sora requires a prompt", ErrMissingInput)
	}
	if d := req.DurationOr(soraDefaultDuration); !slices.Contains([]int{4, 6, 8}, d) {
		return fmt.Errorf("%w: sora accepts 4, 6 or 8 seconds, got %d", ErrInvalidDuration, d)
	}
	if req.Resolution == Resolution1080p && model != SoraProModel {
		return fmt.Errorf("%w: 1080p requires %s", ErrInvalidParameter, SoraProModel)
	}
	return nil
}

// Submit re-encodes the optional input image to the output size and
// creates the Sora job.
func (a *SoraAdapter) Submit(ctx context.Context, req Request) (string, error) {
	w, h := soraSize(req)
	opts := sora.SubmitOptions{
		Model:   soraModel(req.Model),
		Prompt:  req.Prompt,
		Seconds: req.DurationOr(soraDefaultDuration),
		Size:    fmt.Sprintf("%dx%d", w, h),
	}

	if req.ImageURL != "" {
		ref, err := a.inputReference(ctx, req.ImageURL, w, h)
		if err != nil {
			return "", err
		}
		opts.InputReference = ref
	}

	id, err := a.client.Submit(ctx, opts)
	if err != nil {
		return "", fmt.Errorf("sora adapter submit: %w", err)
	}
	return id, nil
}

// inputReference fetches the image and fits it to exactly w x h.
func (a *SoraAdapter) inputReference(ctx context.Context, rawURL string, w, h int) (*sora.File, error) {
	if a.fetcher == nil || a.processor == nil || a.temp == nil {
		return nil, ErrProcessorRequired
	}

	m, err := a.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("sora adapter fetch image: %w", err)
	}

	var tempFiles []string
	defer func() {
		if len(tempFiles) > 0 {
			_ = a.temp.CleanupTemp(context.WithoutCancel(ctx), tempFiles)
		}
	}()

	src, err := a.temp.SaveTemp(ctx, "sora_input", bytes.NewReader(m.Data))
	if err != nil {
		return nil, fmt.Errorf("save input image: %w", err)
	}
	tempFiles = append(tempFiles, src)

	dst := src + "_fit.png"
	tempFiles = append(tempFiles, dst)
	if err := a.processor.FitImage(ctx, src, dst, w, h); err != nil {
		return nil, fmt.Errorf("fit input image to %dx%d: %w", w, h, err)
	}

	rc, err := a.temp.LoadTemp(ctx, dst)
	if err != nil {
		return nil, fmt.Errorf("load fitted image: %w", err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read fitted image: %w", err)
	}

	return &sora.File{
		Data:        data,
		Filename:    strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".png",
		ContentType: "image/png",
	}, nil
}

// Poll checks the status of a Sora job.
func (a *SoraAdapter) Poll(ctx context.Context, videoID string) (PollResult, error) {
	result, err := a.client.Poll(ctx, videoID)
	if err != nil {
		return PollResult{}, fmt.Errorf("sora adapter poll: %w", err)
	}

	out := PollResult{TaskID: videoID, Progress: result.Progress, Error: result.Error}
	switch result.Status {
	case sora.StatusQueued:
		out.Status = StatusPending
	case sora.StatusCompleted:
		out.Status = StatusSucceeded
		out.VideoURL = a.client.ContentURL(videoID)
	case sora.StatusFailed:
		out.Status = StatusFailed
	default:
		out.Status = StatusRunning
	}
	return out, nil
}

// DownloadOutput streams the job content; the URL alone needs the bearer key.
func (a *SoraAdapter) DownloadOutput(ctx context.Context, result PollResult) (io.ReadCloser, error) {
	rc, err := a.client.DownloadOutput(ctx, result.TaskID)
	if err != nil {
		return nil, fmt.Errorf("sora adapter download: %w", err)
	}
	return rc, nil
}

// soraModel maps "sora" to the base model and keeps explicit names.
func soraModel(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	if m == "sora" {
		return SoraModel
	}
	return m
}

// soraSize returns the output frame size for resolution and aspect ratio.
func soraSize(req Request) (w, h int) {
	portrait := req.AspectRatio == AspectPortrait
	if req.Resolution == Resolution1080p {
		if portrait {
			return 1024, 1792
		}
		return 1792, 1024
	}
	if portrait {
		return 720, 1280
	}
	return 1280, 720
}

// Compile-time check that SoraAdapter implements Generator.
var _ Generator = (*SoraAdapter)(nil)
