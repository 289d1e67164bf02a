package generator

import (
	"context"
	"io"
	"testing"

	"github.com/maauso/concepto-video-api/internal/kling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockKlingClient is a testify mock of kling.Client.
type mockKlingClient struct {
	mock.Mock
}

func (m *mockKlingClient) Submit(ctx context.Context, opts kling.SubmitOptions) (kling.TaskRef, error) {
	args := m.Called(ctx, opts)
	return args.Get(0).(kling.TaskRef), args.Error(1)
}

func (m *mockKlingClient) Poll(ctx context.Context, ref kling.TaskRef) (kling.PollResult, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(kling.PollResult), args.Error(1)
}

func (m *mockKlingClient) DownloadOutput(ctx context.Context, outputURL string) (io.ReadCloser, error) {
	args := m.Called(ctx, outputURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func TestKlingAdapter_Validate(t *testing.T) {
	a := NewKlingAdapter(&mockKlingClient{})

	tests := []struct {
		name    string
		req     Request
		wantErr error
		wantMsg string
	}{
		{
			name: "image-to-video 5s std",
			req:  Request{Model: "kling-v2-5-turbo", ImageURL: "https://x/img.png", Duration: 5},
		},
		{
			name: "image-to-video default duration",
			req:  Request{Model: "kling-v2-5-turbo", ImageURL: "https://x/img.png"},
		},
		{
			name:    "image-to-video without image",
			req:     Request{Model: "kling-v2-5-turbo"},
			wantErr: ErrMissingInput,
		},
		{
			name:    "image-to-video 7s",
			req:     Request{Model: "kling-v2-5-turbo", ImageURL: "https://x/img.png", Duration: 7},
			wantErr: ErrInvalidDuration,
		},
		{
			name: "frames-to-video pro 10s",
			req:  Request{Model: "kling-v2-5-turbo", Type: TypeFramesToVideo, StartFrameURL: "a", EndFrameURL: "b", Mode: ModePro, Duration: 10},
		},
		{
			name:    "frames-to-video std mode",
			req:     Request{Model: "kling-v2-5-turbo", Type: TypeFramesToVideo, StartFrameURL: "a", EndFrameURL: "b", Mode: ModeStandard, Duration: 10},
			wantErr: ErrInvalidRequest,
			wantMsg: "pro mode and 10-second duration",
		},
		{
			name:    "frames-to-video 5s",
			req:     Request{Model: "kling-v2-5-turbo", Type: TypeFramesToVideo, StartFrameURL: "a", EndFrameURL: "b", Mode: ModePro, Duration: 5},
			wantErr: ErrInvalidRequest,
			wantMsg: "pro mode and 10-second duration",
		},
		{
			name:    "character performance unsupported",
			req:     Request{Model: "kling-v2-5-turbo", Type: TypeCharacterPerformance, ImageURL: "a", ReferenceVideoURL: "b"},
			wantErr: ErrUnsupportedType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Validate(tt.req.Normalize())
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestKlingAdapter_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("image2video", func(t *testing.T) {
		client := &mockKlingClient{}
		a := NewKlingAdapter(client)

		client.On("Submit", ctx, kling.SubmitOptions{
			Endpoint:    kling.EndpointImage2Video,
			ModelName:   "kling-v2-5-turbo",
			Image:       "https://x/img.png",
			Prompt:      "a cat",
			Mode:        ModeStandard,
			Duration:    5,
			AspectRatio: AspectLandscape,
		}).Return(kling.TaskRef{Endpoint: kling.EndpointImage2Video, ID: "t-1"}, nil)

		req := Request{Model: "kling-v2-5-turbo", ImageURL: "https://x/img.png", Prompt: "a cat"}.Normalize()
		id, err := a.Submit(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "image2video/t-1", id)
		client.AssertExpectations(t)
	})

	t.Run("frames uses image tail", func(t *testing.T) {
		client := &mockKlingClient{}
		a := NewKlingAdapter(client)

		client.On("Submit", ctx, mock.MatchedBy(func(o kling.SubmitOptions) bool {
			return o.Image == "https://x/a.png" && o.ImageTail == "https://x/b.png" && o.Mode == ModePro && o.Duration == 10
		})).Return(kling.TaskRef{Endpoint: kling.EndpointImage2Video, ID: "t-2"}, nil)

		req := Request{
			Model: "kling-v2-5-turbo", Type: TypeFramesToVideo,
			StartFrameURL: "https://x/a.png", EndFrameURL: "https://x/b.png",
			Mode: ModePro, Duration: 10,
		}.Normalize()
		_, err := a.Submit(ctx, req)
		require.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("omni model", func(t *testing.T) {
		client := &mockKlingClient{}
		a := NewKlingAdapter(client)

		client.On("Submit", ctx, mock.MatchedBy(func(o kling.SubmitOptions) bool {
			return o.Endpoint == kling.EndpointOmniVideo && o.ModelName == "kling-video-o1"
		})).Return(kling.TaskRef{Endpoint: kling.EndpointOmniVideo, ID: "t-3"}, nil)

		id, err := a.Submit(ctx, Request{Model: "kling-video-o1", ImageURL: "https://x/img.png"}.Normalize())
		require.NoError(t, err)
		assert.Equal(t, "omni-video/t-3", id)
	})

	t.Run("error", func(t *testing.T) {
		client := &mockKlingClient{}
		a := NewKlingAdapter(client)
		client.On("Submit", ctx, mock.Anything).Return(kling.TaskRef{}, errBoom)

		_, err := a.Submit(ctx, Request{Model: "kling-v2-5-turbo", ImageURL: "x"}.Normalize())
		assert.ErrorIs(t, err, errBoom)
	})
}

func TestKlingAdapter_Poll(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		status     kling.Status
		wantStatus Status
	}{
		{"submitted", kling.StatusSubmitted, StatusPending},
		{"submit", kling.StatusSubmit, StatusPending},
		{"processing", kling.StatusProcessing, StatusRunning},
		{"succeed", kling.StatusSucceed, StatusSucceeded},
		{"failed", kling.StatusFailed, StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockKlingClient{}
			a := NewKlingAdapter(client)

			client.On("Poll", ctx, kling.TaskRef{Endpoint: kling.EndpointOmniVideo, ID: "t-1"}).
				Return(kling.PollResult{Status: tt.status, VideoURL: "https://vendor/out.mp4", Message: "msg"}, nil)

			result, err := a.Poll(ctx, "omni-video/t-1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, "omni-video/t-1", result.TaskID)
			if tt.wantStatus == StatusSucceeded {
				assert.Equal(t, "https://vendor/out.mp4", result.VideoURL)
			} else {
				assert.Empty(t, result.VideoURL)
			}
		})
	}

	t.Run("bad handle", func(t *testing.T) {
		a := NewKlingAdapter(&mockKlingClient{})
		_, err := a.Poll(ctx, "text2video/t-1")
		assert.Error(t, err)
	})
}

func TestKlingAdapter_DownloadOutput(t *testing.T) {
	ctx := context.Background()
	client := &mockKlingClient{}
	a := NewKlingAdapter(client)

	client.On("DownloadOutput", ctx, "https://vendor/out.mp4").Return(nopReadCloser("video"), nil)

	rc, err := a.DownloadOutput(ctx, PollResult{VideoURL: "https://vendor/out.mp4"})
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "video", string(data))
}

func TestKlingAdapter_PollPolicy(t *testing.T) {
	a := NewKlingAdapter(&mockKlingClient{})
	assert.Equal(t, PollPolicy{Interval: DefaultPollInterval, MaxAttempts: LongPollAttempts}, a.PollPolicy())
	assert.Equal(t, VendorKling, a.Vendor())

	a.WithPollInterval(0)
	assert.Equal(t, DefaultPollInterval, a.PollPolicy().Interval)
}
