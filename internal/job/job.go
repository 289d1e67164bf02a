// Package job provides the Job aggregate for video generation requests and the
// use cases that drive a vendor task from submission to a stored artifact.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/maauso/concepto-video-api/internal/generator"
	"github.com/maauso/concepto-video-api/internal/job/id"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusCreated indicates the request was accepted and validated.
	StatusCreated Status = "CREATED"
	// StatusSubmitted indicates the vendor returned a task handle.
	StatusSubmitted Status = "SUBMITTED"
	// StatusPolling indicates the vendor task is being polled.
	StatusPolling Status = "POLLING"
	// StatusDownloading indicates the produced video is being fetched from the vendor.
	StatusDownloading Status = "DOWNLOADING"
	// StatusUploading indicates the video is being written to the artifact store.
	StatusUploading Status = "UPLOADING"
	// StatusCompleted indicates the video is stored and addressable.
	StatusCompleted Status = "COMPLETED"
	// StatusUnmaterialized indicates the vendor produced a video that could not be stored.
	// VendorVideoURL still points at the vendor copy.
	StatusUnmaterialized Status = "UNMATERIALIZED"
	// StatusFailed indicates the vendor or a local step reported an error.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the vendor or the caller cancelled the job.
	StatusCancelled Status = "CANCELLED"
	// StatusTimedOut indicates the polling budget ran out.
	StatusTimedOut Status = "TIMED_OUT"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusCreated:        {StatusSubmitted, StatusFailed, StatusCancelled},
	StatusSubmitted:      {StatusPolling, StatusFailed, StatusCancelled},
	StatusPolling:        {StatusDownloading, StatusFailed, StatusCancelled, StatusTimedOut},
	StatusDownloading:    {StatusUploading, StatusUnmaterialized},
	StatusUploading:      {StatusCompleted, StatusUnmaterialized},
	StatusCompleted:      {},
	StatusUnmaterialized: {},
	StatusFailed:         {},
	StatusCancelled:      {},
	StatusTimedOut:       {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no transition leaves the status.
func (s Status) IsTerminal() bool {
	allowed, ok := validTransitions[s]
	return ok && len(allowed) == 0
}

// Job represents one video generation request and its progress.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Vendor is the provider the model resolved to.
	Vendor generator.Vendor
	// Request is the normalized request the job was created from.
	Request generator.Request
	// Status is the current job state.
	Status Status
	// TaskID is the vendor handle returned by Submit.
	TaskID string
	// Progress is the vendor-reported percentage (0-100).
	Progress int
	// Attempts counts the polls made so far.
	Attempts int
	// VendorVideoURL is where the vendor hosts the produced video.
	VendorVideoURL string
	// VideoURL is the primary artifact URL.
	VideoURL string
	// BackupURL is the backup artifact URL, empty when the backup failed.
	BackupURL string
	// Error contains the failure message for FAILED, TIMED_OUT and UNMATERIALIZED jobs.
	Error string
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// SubmittedAt is when the vendor accepted the task.
	SubmittedAt time.Time
	// CompletedAt is when the job reached a terminal state.
	CompletedAt time.Time
}

// New creates a new Job in CREATED status for a normalized request.
func New(req generator.Request) *Job {
	return NewWithID(id.Generate(), req)
}

// NewWithID creates a new Job with the specified ID in CREATED status.
// Useful for testing or when ID needs to be externally generated.
func NewWithID(jobID string, req generator.Request) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Vendor:    req.Vendor,
		Request:   req,
		Status:    StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(status)
}

func (j *Job) transitionLocked(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch {
	case status == StatusSubmitted:
		j.SubmittedAt = j.UpdatedAt
	case status.IsTerminal():
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// MarkSubmitted records the vendor handle and moves the job to SUBMITTED.
func (j *Job) MarkSubmitted(taskID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusSubmitted); err != nil {
		return err
	}
	j.TaskID = taskID
	return nil
}

// StartPolling moves the job to POLLING.
func (j *Job) StartPolling() error {
	return j.TransitionTo(StatusPolling)
}

// RecordPoll stores the outcome of one poll.
func (j *Job) RecordPoll(attempt int, res generator.PollResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Attempts = attempt
	if res.Progress > 0 {
		j.Progress = clampProgress(res.Progress)
	}
	j.UpdatedAt = time.Now()
}

// StartDownloading records the vendor result URL and moves the job to DOWNLOADING.
func (j *Job) StartDownloading(vendorURL string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusDownloading); err != nil {
		return err
	}
	j.VendorVideoURL = vendorURL
	return nil
}

// StartUploading moves the job to UPLOADING.
func (j *Job) StartUploading() error {
	return j.TransitionTo(StatusUploading)
}

// Complete records the stored artifact URLs and moves the job to COMPLETED.
func (j *Job) Complete(videoURL, backupURL string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusCompleted); err != nil {
		return err
	}
	j.VideoURL = videoURL
	j.BackupURL = backupURL
	j.Progress = 100
	return nil
}

// Unmaterialize marks a produced video that could not be stored.
// The vendor URL recorded by StartDownloading is kept.
func (j *Job) Unmaterialize(errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusUnmaterialized); err != nil {
		return err
	}
	j.Error = errMsg
	return nil
}

// Fail transitions the job to FAILED state with an error message.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusFailed); err != nil {
		return err
	}
	j.Error = errMsg
	return nil
}

// Cancel transitions the job to CANCELLED state, recording reason when set.
func (j *Job) Cancel(reason string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusCancelled); err != nil {
		return err
	}
	if reason != "" {
		j.Error = reason
	}
	return nil
}

// Timeout transitions the job to TIMED_OUT state with an error message.
func (j *Job) Timeout(errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusTimedOut); err != nil {
		return err
	}
	j.Error = errMsg
	return nil
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	return j.GetStatus().IsTerminal()
}

// Clone creates a copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:             j.ID,
		Vendor:         j.Vendor,
		Request:        j.Request,
		Status:         j.Status,
		TaskID:         j.TaskID,
		Progress:       j.Progress,
		Attempts:       j.Attempts,
		VendorVideoURL: j.VendorVideoURL,
		VideoURL:       j.VideoURL,
		BackupURL:      j.BackupURL,
		Error:          j.Error,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
		SubmittedAt:    j.SubmittedAt,
		CompletedAt:    j.CompletedAt,
	}
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
