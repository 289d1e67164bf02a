// Package generator provides the vendor-agnostic contract for video generation.
// Runway, Veo, Sora and Kling adapters implement the Generator interface.
package generator

import (
	"context"
	"io"
	"time"

	"github.com/maauso/concepto-video-api/internal/httpclient"
)

// Status represents the status of a vendor generation task in the shared vocabulary.
type Status string

// Common task statuses across vendors.
const (
	StatusPending   Status = "PENDING"   // Task accepted but not started
	StatusRunning   Status = "RUNNING"   // Task is being generated
	StatusSucceeded Status = "SUCCEEDED" // Task produced a video
	StatusFailed    Status = "FAILED"    // Vendor reported a failure
	StatusCancelled Status = "CANCELLED" // Vendor reported a cancellation
	StatusTimedOut  Status = "TIMED_OUT" // Local attempt budget exhausted
)

// IsTerminal returns true if the status represents a final state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled, StatusTimedOut:
		return true
	default:
		return false
	}
}

// PollResult contains the result of polling a task's status.
type PollResult struct {
	TaskID   string // Handle the result belongs to
	Status   Status // Current task status
	VideoURL string // Vendor-hosted result (only when succeeded)
	Error    string // Vendor message (failed/cancelled, or why no URL was found)
	Progress int    // Vendor-reported progress percentage, when available
}

// PollPolicy bounds how long a task is polled.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// Default polling budgets.
const (
	DefaultPollInterval = 10 * time.Second
	// LongPollAttempts gives Runway, Sora and Kling roughly 20 minutes.
	LongPollAttempts = 120
	// VeoPollAttempts gives Veo roughly 10 minutes.
	VeoPollAttempts = 60
)

// Generator defines the interface for video generation vendors.
type Generator interface {
	// Vendor identifies the adapter.
	Vendor() Vendor

	// Validate checks the request against the vendor's rules without any I/O.
	// Every returned error wraps ErrInvalidRequest.
	Validate(req Request) error

	// Submit creates the vendor job and returns its opaque handle.
	Submit(ctx context.Context, req Request) (taskID string, err error)

	// Poll checks the status of a task once.
	Poll(ctx context.Context, taskID string) (PollResult, error)

	// DownloadOutput opens the produced video of a succeeded task.
	// The caller must close the returned reader.
	DownloadOutput(ctx context.Context, result PollResult) (io.ReadCloser, error)

	// PollPolicy returns the polling budget for this vendor.
	PollPolicy() PollPolicy
}

// MediaFetcher downloads input media referenced by the caller.
type MediaFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*httpclient.Media, error)
}
