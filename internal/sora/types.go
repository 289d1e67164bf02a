// Package sora provides an HTTP client for the OpenAI Sora videos API.
package sora

// Status represents the status of a Sora video job.
type Status string

// Sora job statuses aligned with the videos API.
const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// File is an in-memory file sent as a multipart part.
type File struct {
	Data        []byte
	Filename    string
	ContentType string
}

// SubmitOptions contains the parameters of a Sora video job.
type SubmitOptions struct {
	Model          string // "sora-2" or "sora-2-pro"
	Prompt         string
	Seconds        int
	Size           string // "WIDTHxHEIGHT", e.g. "1280x720"
	InputReference *File  // Must match Size exactly
}

// videoResponse represents a video job resource.
type videoResponse struct {
	ID       string     `json:"id"`
	Object   string     `json:"object"`
	Model    string     `json:"model"`
	Status   string     `json:"status"`
	Progress int        `json:"progress"`
	Seconds  string     `json:"seconds,omitempty"`
	Size     string     `json:"size,omitempty"`
	Error    *videoFail `json:"error,omitempty"`
}

type videoFail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PollResult contains the result of polling a job's status.
type PollResult struct {
	Status   Status
	Progress int
	Error    string // Only set when Status is StatusFailed
}
