package generator

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/maauso/concepto-video-api/internal/runway"
)

// Runway models per generation type.
const (
	RunwayDefaultImageModel     = "gen4_turbo"
	RunwayDefaultFramesModel    = "gen3a_turbo"
	RunwayDefaultCharacterModel = "act_two"
	RunwayDefaultUpscaleModel   = "upscale_v1"
	runwayDefaultDuration       = 5
	runwayMinDuration           = 2
	runwayMaxDuration           = 10
)

// RunwayAdapter adapts the Runway client to the Generator interface.
type RunwayAdapter struct {
	client   runway.Client
	fetcher  MediaFetcher
	interval time.Duration
}

// NewRunwayAdapter creates a new Runway generator adapter.
// The fetcher downloads media that Runway cannot reach by itself.
func NewRunwayAdapter(client runway.Client, fetcher MediaFetcher) *RunwayAdapter {
	return &RunwayAdapter{
		client:   client,
		fetcher:  fetcher,
		interval: DefaultPollInterval,
	}
}

// WithPollInterval overrides the delay between polls.
func (a *RunwayAdapter) WithPollInterval(d time.Duration) *RunwayAdapter {
	if d > 0 {
		a.interval = d
	}
	return a
}

// Vendor implements Generator.
func (a *RunwayAdapter) Vendor() Vendor { return VendorRunway }

// PollPolicy implements Generator.
func (a *RunwayAdapter) PollPolicy() PollPolicy {
	return PollPolicy{Interval: a.interval, MaxAttempts: LongPollAttempts}
}

// Validate checks the Runway rules.
func (a *RunwayAdapter) Validate(req Request) error {
	if err := validateCommon(req); err != nil {
		return err
	}
	if req.Type == TypeImageToVideo && req.ImageURL == "" {
		return fmt.Errorf("%w: runway image-to-video requires an image", ErrMissingInput)
	}
	if req.Type == TypeImageToVideo || req.Type == TypeFramesToVideo {
		d := req.DurationOr(runwayDefaultDuration)
		if d < runwayMinDuration || d > runwayMaxDuration {
			return fmt.Errorf("%w: runway accepts %d to %d seconds, got %d",
				ErrInvalidDuration, runwayMinDuration, runwayMaxDuration, d)
		}
	}
	return nil
}

// Submit uploads unreachable media and creates the Runway task.
func (a *RunwayAdapter) Submit(ctx context.Context, req Request) (string, error) {
	model := runwayModel(req)

	var (
		taskID string
		err    error
	)
	switch req.Type {
	case TypeImageToVideo:
		var uri string
		if uri, err = a.reachable(ctx, req.ImageURL); err != nil {
			return "", err
		}
		taskID, err = a.client.ImageToVideo(ctx, runway.ImageToVideoOptions{
			Model:      model,
			Images:     []runway.PromptImage{{URI: uri, Position: runway.PositionFirst}},
			PromptText: req.Prompt,
			Ratio:      runwayRatio(req),
			Duration:   req.DurationOr(runwayDefaultDuration),
		})
	case TypeFramesToVideo:
		var first, last string
		if first, err = a.reachable(ctx, req.StartFrameURL); err != nil {
			return "", err
		}
		if last, err = a.reachable(ctx, req.EndFrameURL); err != nil {
			return "", err
		}
		taskID, err = a.client.ImageToVideo(ctx, runway.ImageToVideoOptions{
			Model: model,
			Images: []runway.PromptImage{
				{URI: first, Position: runway.PositionFirst},
				{URI: last, Position: runway.PositionLast},
			},
			PromptText: req.Prompt,
			Ratio:      runwayRatio(req),
			Duration:   req.DurationOr(runwayDefaultDuration),
		})
	case TypeCharacterPerformance:
		var character, reference string
		if character, err = a.reachable(ctx, req.ImageURL); err != nil {
			return "", err
		}
		if reference, err = a.reachable(ctx, req.ReferenceVideoURL); err != nil {
			return "", err
		}
		taskID, err = a.client.CharacterPerformance(ctx, runway.CharacterPerformanceOptions{
			Model:        model,
			CharacterURI: character,
			ReferenceURI: reference,
			Ratio:        runwayRatio(req),
		})
	case TypeVideoUpscale:
		var source string
		if source, err = a.reachable(ctx, req.VideoURL); err != nil {
			return "", err
		}
		taskID, err = a.client.VideoUpscale(ctx, runway.VideoUpscaleOptions{
			Model:    model,
			VideoURI: source,
		})
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, req.Type)
	}
	if err != nil {
		return "", fmt.Errorf("runway adapter submit: %w", err)
	}
	return taskID, nil
}

// reachable returns a URI Runway can read: public https URLs pass through,
// anything else goes through an ephemeral upload.
func (a *RunwayAdapter) reachable(ctx context.Context, rawURL string) (string, error) {
	if IsPubliclyReachable(rawURL) {
		return rawURL, nil
	}
	if a.fetcher == nil {
		return "", fmt.Errorf("runway adapter: %s is not publicly reachable and no fetcher is configured", rawURL)
	}

	m, err := a.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("runway adapter fetch media: %w", err)
	}

	name := m.Filename
	if name == "" {
		name = path.Base(rawURL)
	}
	uri, err := a.client.UploadEphemeral(ctx, name, m.ContentType, m.Data)
	if err != nil {
		return "", fmt.Errorf("runway adapter upload media: %w", err)
	}
	return uri, nil
}

// Poll checks the status of a Runway task.
func (a *RunwayAdapter) Poll(ctx context.Context, taskID string) (PollResult, error) {
	result, err := a.client.Poll(ctx, taskID)
	if err != nil {
		return PollResult{}, fmt.Errorf("runway adapter poll: %w", err)
	}

	var status Status
	switch result.Status {
	case runway.StatusPending, runway.StatusThrottled:
		status = StatusPending
	case runway.StatusRunning:
		status = StatusRunning
	case runway.StatusSucceeded:
		status = StatusSucceeded
	case runway.StatusFailed:
		status = StatusFailed
	case runway.StatusCancelled:
		status = StatusCancelled
	default:
		status = StatusRunning
	}

	return PollResult{
		TaskID:   taskID,
		Status:   status,
		VideoURL: result.OutputURL,
		Error:    result.Error,
		Progress: int(result.Progress * 100),
	}, nil
}

// DownloadOutput opens the Runway output URL.
func (a *RunwayAdapter) DownloadOutput(ctx context.Context, result PollResult) (io.ReadCloser, error) {
	rc, err := a.client.DownloadOutput(ctx, result.VideoURL)
	if err != nil {
		return nil, fmt.Errorf("runway adapter download: %w", err)
	}
	return rc, nil
}

// runwayModel strips the "runway-" prefix; a bare "runway" selects the
// default model of the generation type.
func runwayModel(req Request) string {
	m := strings.TrimPrefix(strings.TrimPrefix(req.Model, "runway"), "-")
	if m != "" {
		return m
	}
	switch req.Type {
	case TypeFramesToVideo:
		return RunwayDefaultFramesModel
	case TypeCharacterPerformance:
		return RunwayDefaultCharacterModel
	case TypeVideoUpscale:
		return RunwayDefaultUpscaleModel
	default:
		return RunwayDefaultImageModel
	}
}

// runwayRatio converts resolution and aspect ratio into Runway's "W:H" pixel ratio.
func runwayRatio(req Request) string {
	portrait := req.AspectRatio == AspectPortrait
	if req.Resolution == Resolution1080p {
		if portrait {
			return "1080:1920"
		}
		return "1920:1080"
	}
	if portrait {
		return "720:1280"
	}
	return "1280:720"
}

// IsPubliclyReachable reports whether a vendor can fetch rawURL by itself:
// it must be https and must not point at a loopback, private or local host.
func IsPubliclyReachable(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "https" || u.Hostname() == "" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") ||
		strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return false
	}

	if ip := net.ParseIP(host); ip != nil {
		return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified())
	}
	return true
}

// Compile-time check that RunwayAdapter implements Generator.
var _ Generator = (*RunwayAdapter)(nil)
