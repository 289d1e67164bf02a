package generator

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/maauso/concepto-video-api/internal/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   bool
	}{
		{"pending not terminal", StatusPending, false},
		{"running not terminal", StatusRunning, false},
		{"succeeded is terminal", StatusSucceeded, true},
		{"failed is terminal", StatusFailed, true},
		{"cancelled is terminal", StatusCancelled, true},
		{"timed_out is terminal", StatusTimedOut, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.want {
				t.Errorf("Status.IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveVendor(t *testing.T) {
	tests := []struct {
		model string
		want  Vendor
	}{
		{"runway-gen4_turbo", VendorRunway},
		{"runway", VendorRunway},
		{"Runway-Act_Two", VendorRunway},
		{"sora-2", VendorSora},
		{"sora-2-pro", VendorSora},
		{"kling-v2-5-turbo", VendorKling},
		{"kling-video-o1", VendorKling},
		{"veo-3.1-generate-preview", VendorVeo},
		{"unknown-model", VendorVeo},
		{"", VendorVeo},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveVendor(tt.model))
		})
	}
}

func TestRequest_Normalize(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		req := Request{Model: " kling-v2-5-turbo ", ImageURL: "https://x/img.png"}.Normalize()

		assert.Equal(t, "kling-v2-5-turbo", req.Model)
		assert.Equal(t, VendorKling, req.Vendor)
		assert.Equal(t, TypeImageToVideo, req.Type)
		assert.Equal(t, Resolution720p, req.Resolution)
		assert.Equal(t, AspectLandscape, req.AspectRatio)
		assert.Equal(t, ModeStandard, req.Mode)
	})

	t.Run("infers frames-to-video from frame pair", func(t *testing.T) {
		req := Request{Model: "veo-3.1-generate-preview", StartFrameURL: "a", EndFrameURL: "b"}.Normalize()
		assert.Equal(t, TypeFramesToVideo, req.Type)
	})

	t.Run("uses image as start frame", func(t *testing.T) {
		req := Request{Type: TypeFramesToVideo, ImageURL: "a", EndFrameURL: "b"}.Normalize()
		assert.Equal(t, "a", req.StartFrameURL)
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		req := Request{Model: "sora-2-pro", Resolution: Resolution1080p, AspectRatio: AspectPortrait, Mode: ModePro}.Normalize()
		assert.Equal(t, Resolution1080p, req.Resolution)
		assert.Equal(t, AspectPortrait, req.AspectRatio)
		assert.Equal(t, ModePro, req.Mode)
	})
}

func TestValidateCommon(t *testing.T) {
	base := Request{Type: TypeImageToVideo, Resolution: Resolution720p, AspectRatio: AspectLandscape, Mode: ModeStandard}

	tests := []struct {
		name    string
		mutate  func(r *Request)
		wantErr error
	}{
		{"valid", func(r *Request) {}, nil},
		{"unknown type", func(r *Request) { r.Type = "text-to-video" }, ErrUnsupportedType},
		{"bad resolution", func(r *Request) { r.Resolution = "4k" }, ErrInvalidParameter},
		{"bad aspect", func(r *Request) { r.AspectRatio = "1:1" }, ErrInvalidParameter},
		{"bad mode", func(r *Request) { r.Mode = "ultra" }, ErrInvalidParameter},
		{"negative duration", func(r *Request) { r.Duration = -1 }, ErrInvalidDuration},
		{"frames missing end", func(r *Request) { r.Type = TypeFramesToVideo; r.StartFrameURL = "a" }, ErrMissingInput},
		{"character missing video", func(r *Request) { r.Type = TypeCharacterPerformance; r.ImageURL = "a" }, ErrMissingInput},
		{"upscale missing video", func(r *Request) { r.Type = TypeVideoUpscale }, ErrMissingInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			err := validateCommon(req)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestRegistry(t *testing.T) {
	kl := NewKlingAdapter(&mockKlingClient{})
	reg := NewRegistry(kl)

	t.Run("get registered", func(t *testing.T) {
		g, err := reg.Get(VendorKling)
		require.NoError(t, err)
		assert.Same(t, kl, g)
	})

	t.Run("get unregistered", func(t *testing.T) {
		_, err := reg.Get(VendorSora)
		assert.ErrorIs(t, err, ErrVendorUnavailable)
	})

	t.Run("resolve by model", func(t *testing.T) {
		g, v, err := reg.Resolve("kling-v2-5-turbo")
		require.NoError(t, err)
		assert.Equal(t, VendorKling, v)
		assert.Same(t, kl, g)
	})

	t.Run("resolve unknown model falls through to veo", func(t *testing.T) {
		_, v, err := reg.Resolve("unknown-model")
		assert.Equal(t, VendorVeo, v)
		assert.ErrorIs(t, err, ErrVendorUnavailable)
	})

	t.Run("vendors", func(t *testing.T) {
		assert.Equal(t, []Vendor{VendorKling}, reg.Vendors())
	})
}

// mockFetcher is a testify mock of MediaFetcher.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, rawURL string) (*httpclient.Media, error) {
	args := m.Called(ctx, rawURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*httpclient.Media), args.Error(1)
}

func pngMedia() *httpclient.Media {
	return &httpclient.Media{Data: []byte("\x89PNG"), ContentType: "image/png", Filename: "img.png"}
}

var errBoom = errors.New("boom")

func nopReadCloser(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}
