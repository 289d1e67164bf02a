// Package kling provides an HTTP client for the Kling video generation API.
package kling

import (
	"fmt"
	"strings"
)

// Status represents the status of a Kling task.
type Status string

// Kling task statuses aligned with the Kling API.
const (
	StatusSubmitted  Status = "submitted"
	StatusSubmit     Status = "submit" // Older API revisions report "submit"
	StatusProcessing Status = "processing"
	StatusSucceed    Status = "succeed"
	StatusFailed     Status = "failed"
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusSucceed || s == StatusFailed
}

// Endpoint is the task family a job was created under. Status queries must
// use the same family.
type Endpoint string

// Task families.
const (
	EndpointImage2Video Endpoint = "image2video"
	EndpointOmniVideo   Endpoint = "omni-video"
)

// TaskRef identifies a Kling task together with its endpoint family.
type TaskRef struct {
	Endpoint Endpoint
	ID       string
}

// String encodes the reference as "<endpoint>/<id>".
func (r TaskRef) String() string {
	return string(r.Endpoint) + "/" + r.ID
}

// ParseTaskRef decodes a reference produced by TaskRef.String. A bare id is
// taken to be an image2video task.
func ParseTaskRef(s string) (TaskRef, error) {
	if s == "" {
		return TaskRef{}, ErrTaskIDRequired
	}
	endpoint, id, found := strings.Cut(s, "/")
	if !found {
		return TaskRef{Endpoint: EndpointImage2Video, ID: s}, nil
	}
	switch Endpoint(endpoint) {
	case EndpointImage2Video, EndpointOmniVideo:
	default:
		return TaskRef{}, fmt.Errorf("kling: unknown task endpoint %q", endpoint)
	}
	if id == "" {
		return TaskRef{}, ErrTaskIDRequired
	}
	return TaskRef{Endpoint: Endpoint(endpoint), ID: id}, nil
}

// SubmitOptions contains the parameters of a Kling generation task.
type SubmitOptions struct {
	Endpoint    Endpoint
	ModelName   string // e.g. "kling-v2-5-turbo"
	Image       string // URL or base64 of the first frame
	ImageTail   string // URL or base64 of the last frame (pro mode, 10s only)
	Prompt      string
	Mode        string // "std" or "pro"
	Duration    int    // 5 or 10 seconds
	AspectRatio string // e.g. "16:9"
}

// image2VideoRequest represents the request body for the image2video endpoint.
type image2VideoRequest struct {
	ModelName   string `json:"model_name"`
	Image       string `json:"image"`
	ImageTail   string `json:"image_tail,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Duration    string `json:"duration,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
}

// omniVideoRequest represents the request body for the omni-video endpoint.
type omniVideoRequest struct {
	ModelName   string      `json:"model_name"`
	Prompt      string      `json:"prompt,omitempty"`
	ImageList   []omniImage `json:"image_list,omitempty"`
	Mode        string      `json:"mode,omitempty"`
	Duration    string      `json:"duration,omitempty"`
	AspectRatio string      `json:"aspect_ratio,omitempty"`
}

// omniImage is a single reference image of an omni-video request.
type omniImage struct {
	ImageURL string `json:"image_url"`
	Type     string `json:"type,omitempty"` // "first_frame" or "end_frame"
}

// apiResponse is the envelope shared by every Kling endpoint.
type apiResponse struct {
	Code      int      `json:"code"`
	Message   string   `json:"message"`
	RequestID string   `json:"request_id"`
	Data      taskData `json:"data"`
}

// taskData is the task payload of an apiResponse.
type taskData struct {
	TaskID        string      `json:"task_id"`
	TaskStatus    string      `json:"task_status"`
	TaskStatusMsg string      `json:"task_status_msg"`
	TaskResult    *taskResult `json:"task_result,omitempty"`
}

// taskResult holds the produced videos.
type taskResult struct {
	Videos []taskVideo `json:"videos"`
}

// taskVideo is a single produced video.
type taskVideo struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Duration string `json:"duration"`
}

// videoURL returns the first produced video URL.
func (d taskData) videoURL() (string, bool) {
	if d.TaskResult == nil || len(d.TaskResult.Videos) == 0 || d.TaskResult.Videos[0].URL == "" {
		return "", false
	}
	return d.TaskResult.Videos[0].URL, true
}

// PollResult contains the result of polling a task's status.
type PollResult struct {
	Status   Status
	VideoURL string // Only set when Status is StatusSucceed and a video was returned
	Message  string // Vendor status message
}
