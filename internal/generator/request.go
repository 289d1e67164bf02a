package generator

import (
	"errors"
	"fmt"
	"strings"
)

// GenerationType selects which inputs a request carries.
type GenerationType string

// Supported generation types.
const (
	TypeImageToVideo         GenerationType = "image-to-video"
	TypeFramesToVideo        GenerationType = "frames-to-video"
	TypeCharacterPerformance GenerationType = "character-performance"
	TypeVideoUpscale         GenerationType = "video-upscale"
)

// IsValid returns true if the generation type is known.
func (t GenerationType) IsValid() bool {
	switch t {
	case TypeImageToVideo, TypeFramesToVideo, TypeCharacterPerformance, TypeVideoUpscale:
		return true
	default:
		return false
	}
}

// Output resolutions.
const (
	Resolution720p  = "720p"
	Resolution1080p = "1080p"
)

// Aspect ratios.
const (
	AspectLandscape = "16:9"
	AspectPortrait  = "9:16"
)

// Quality modes (Kling).
const (
	ModeStandard = "std"
	ModePro      = "pro"
)

// Validation errors. All of them wrap ErrInvalidRequest.
var (
	// ErrInvalidRequest marks a request rejected before any network call.
	ErrInvalidRequest = errors.New("invalid generation request")
	// ErrUnsupportedModel is returned when the vendor does not know the model.
	ErrUnsupportedModel = fmt.Errorf("%w: unsupported model", ErrInvalidRequest)
	// ErrUnsupportedType is returned when the vendor cannot run the generation type.
	ErrUnsupportedType = fmt.Errorf("%w: unsupported generation type", ErrInvalidRequest)
	// ErrMissingInput is returned when a required media reference is absent.
	ErrMissingInput = fmt.Errorf("%w: missing input", ErrInvalidRequest)
	// ErrInvalidDuration is returned when the duration is outside the vendor's set.
	ErrInvalidDuration = fmt.Errorf("%w: invalid duration", ErrInvalidRequest)
	// ErrInvalidParameter is returned for any other out-of-range parameter.
	ErrInvalidParameter = fmt.Errorf("%w: invalid parameter", ErrInvalidRequest)
)

// ErrNoMediaProduced is returned when a task succeeded but carried no video.
var ErrNoMediaProduced = errors.New("no media produced")

// Request is the normalized, vendor-agnostic generation request.
type Request struct {
	// Model is the vendor model identifier as sent by the caller.
	Model string
	// Vendor is decided once from Model by ResolveVendor.
	Vendor Vendor
	// Type selects the inputs in use.
	Type GenerationType
	// EpisodeID scopes the stored artifact.
	EpisodeID string

	// ImageURL is the single image (image-to-video) or the character image
	// (character-performance).
	ImageURL string
	// StartFrameURL and EndFrameURL are the frames-to-video pair.
	StartFrameURL string
	EndFrameURL   string
	// ReferenceVideoURL drives a character performance.
	ReferenceVideoURL string
	// VideoURL is the source of a video upscale.
	VideoURL string

	Prompt      string
	Resolution  string
	AspectRatio string
	// Duration is in seconds; zero selects the vendor default.
	Duration int
	// Mode is the quality mode (std or pro).
	Mode string
}

// Normalize fills defaults: vendor, generation type, resolution, aspect ratio and mode.
func (r Request) Normalize() Request {
	r.Model = strings.TrimSpace(r.Model)
	if r.Vendor == "" {
		r.Vendor = ResolveVendor(r.Model)
	}
	if r.Type == "" {
		r.Type = TypeImageToVideo
		if r.StartFrameURL != "" && r.EndFrameURL != "" {
			r.Type = TypeFramesToVideo
		}
	}
	if r.Type == TypeFramesToVideo && r.StartFrameURL == "" && r.ImageURL != "" {
		r.StartFrameURL = r.ImageURL
	}
	if r.Resolution == "" {
		r.Resolution = Resolution720p
	}
	if r.AspectRatio == "" {
		r.AspectRatio = AspectLandscape
	}
	if r.Mode == "" {
		r.Mode = ModeStandard
	}
	return r
}

// DurationOr returns the requested duration or def when none was requested.
func (r Request) DurationOr(def int) int {
	if r.Duration <= 0 {
		return def
	}
	return r.Duration
}

// validateCommon checks the vendor-independent rules shared by all adapters.
func validateCommon(req Request) error {
	if !req.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, req.Type)
	}
	if req.Resolution != Resolution720p && req.Resolution != Resolution1080p {
		return fmt.Errorf("%w: resolution %q must be 720p or 1080p", ErrInvalidParameter, req.Resolution)
	}
	if req.AspectRatio != AspectLandscape && req.AspectRatio != AspectPortrait {
		return fmt.Errorf("%w: aspect ratio %q must be 16:9 or 9:16", ErrInvalidParameter, req.AspectRatio)
	}
	if req.Mode != ModeStandard && req.Mode != ModePro {
		return fmt.Errorf("%w: mode %q must be std or pro", ErrInvalidParameter, req.Mode)
	}
	if req.Duration < 0 {
		return fmt.Errorf("%w: %d seconds", ErrInvalidDuration, req.Duration)
	}
	return requireInputs(req)
}

// requireInputs checks that the media references demanded by the type are present.
func requireInputs(req Request) error {
	switch req.Type {
	case TypeImageToVideo:
		// Image is optional for some vendors; adapters enforce it.
	case TypeFramesToVideo:
		if req.StartFrameURL == "" || req.EndFrameURL == "" {
			return fmt.Errorf("%w: frames-to-video requires a start frame and an end frame", ErrMissingInput)
		}
	case TypeCharacterPerformance:
		if req.ImageURL == "" || req.ReferenceVideoURL == "" {
			return fmt.Errorf("%w: character-performance requires a character image and a reference video", ErrMissingInput)
		}
	case TypeVideoUpscale:
		if req.VideoURL == "" {
			return fmt.Errorf("%w: video-upscale requires a source video", ErrMissingInput)
		}
	}
	return nil
}
