// Package runway provides an HTTP client for the Runway developer API.
package runway

// Status represents the status of a Runway task.
type Status string

// Runway task statuses aligned with the Runway API.
const (
	StatusPending   Status = "PENDING"
	StatusThrottled Status = "THROTTLED" // Queued behind the account's concurrency limit
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Image positions for keyframe-driven generation.
const (
	PositionFirst = "first"
	PositionLast  = "last"
)

// PromptImage is a keyframe reference.
type PromptImage struct {
	URI      string `json:"uri"`
	Position string `json:"position"`
}

// ImageToVideoOptions contains the parameters of an image_to_video task.
type ImageToVideoOptions struct {
	Model      string
	Images     []PromptImage // One image, or first/last keyframes
	PromptText string
	Ratio      string // e.g. "1280:720"
	Duration   int    // Seconds
}

// CharacterPerformanceOptions contains the parameters of a character_performance task.
type CharacterPerformanceOptions struct {
	Model        string
	CharacterURI string // Image of the character to animate
	ReferenceURI string // Video of the performance to transfer
	Ratio        string
}

// VideoUpscaleOptions contains the parameters of a video_upscale task.
type VideoUpscaleOptions struct {
	Model    string
	VideoURI string
}

// imageToVideoRequest represents the request body for /image_to_video.
// PromptImage is either a single URI string or a list of PromptImage.
type imageToVideoRequest struct {
	Model       string `json:"model"`
	PromptImage any    `json:"promptImage"`
	PromptText  string `json:"promptText,omitempty"`
	Ratio       string `json:"ratio,omitempty"`
	Duration    int    `json:"duration,omitempty"`
}

// mediaRef is a typed media reference of a character performance.
type mediaRef struct {
	Type string `json:"type"`
	URI  string `json:"uri"`
}

// characterPerformanceRequest represents the request body for /character_performance.
type characterPerformanceRequest struct {
	Model     string   `json:"model"`
	Character mediaRef `json:"character"`
	Reference mediaRef `json:"reference"`
	Ratio     string   `json:"ratio,omitempty"`
}

// videoUpscaleRequest represents the request body for /video_upscale.
type videoUpscaleRequest struct {
	Model    string `json:"model"`
	VideoURI string `json:"videoUri"`
}

// taskResponse represents the response from any task creation endpoint.
type taskResponse struct {
	ID string `json:"id"`
}

// statusResponse represents the response from /tasks/{id}.
type statusResponse struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"`
	Output      []string `json:"output,omitempty"`
	Failure     string   `json:"failure,omitempty"`
	FailureCode string   `json:"failureCode,omitempty"`
	Progress    float64  `json:"progress,omitempty"`
}

// uploadRequest asks for an ephemeral upload slot.
type uploadRequest struct {
	Filename string `json:"filename"`
	Type     string `json:"type"`
}

// uploadResponse describes the presigned slot and the resulting runway URI.
type uploadResponse struct {
	UploadURL string            `json:"uploadUrl"`
	Fields    map[string]string `json:"fields"`
	RunwayURI string            `json:"runwayUri"`
}

// PollResult contains the result of polling a task's status.
type PollResult struct {
	Status    Status
	OutputURL string  // First output URL (only when succeeded)
	Error     string  // Failure message, or why no output was found
	Progress  float64 // 0..1
}
