// Package server provides the HTTP server for the video generation API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/maauso/concepto-video-api/internal/generator"
	"github.com/maauso/concepto-video-api/internal/job"
)

// GenerateRequest is the HTTP request body shared by POST /api/video/generate
// and POST /jobs.
type GenerateRequest struct {
	// Model selects the vendor by prefix (runway*, sora*, kling*, otherwise Veo).
	Model string `json:"model" validate:"required,max=128"`
	// EpisodeID scopes the stored video.
	EpisodeID string `json:"episodeId" validate:"required,max=128"`
	// Type is inferred from the frames when empty.
	Type string `json:"type" validate:"omitempty,oneof=image-to-video frames-to-video character-performance video-upscale"`

	ImageURL          string `json:"imageUrl" validate:"omitempty,url"`
	StartFrameURL     string `json:"startFrameUrl" validate:"omitempty,url"`
	EndFrameURL       string `json:"endFrameUrl" validate:"omitempty,url"`
	ReferenceVideoURL string `json:"referenceVideoUrl" validate:"omitempty,url"`
	VideoURL          string `json:"videoUrl" validate:"omitempty,url"`

	Prompt      string `json:"prompt" validate:"max=4000"`
	Resolution  string `json:"resolution" validate:"omitempty,oneof=720p 1080p"`
	AspectRatio string `json:"aspectRatio" validate:"omitempty,oneof=16:9 9:16"`

	// Duration applies to every vendor; the vendor-specific fields win for their vendor.
	Duration       int    `json:"duration" validate:"omitempty,min=1,max=60"`
	RunwayDuration int    `json:"runwayDuration" validate:"omitempty,min=1,max=60"`
	KlingDuration  int    `json:"klingDuration" validate:"omitempty,min=1,max=60"`
	KlingMode      string `json:"klingMode" validate:"omitempty,oneof=std pro"`
}

// toDomain converts the DTO into a generator request.
func (r GenerateRequest) toDomain() generator.Request {
	vendor := generator.ResolveVendor(r.Model)

	duration := r.Duration
	switch {
	case vendor == generator.VendorRunway && r.RunwayDuration > 0:
		duration = r.RunwayDuration
	case vendor == generator.VendorKling && r.KlingDuration > 0:
		duration = r.KlingDuration
	}

	return generator.Request{
		Model:             r.Model,
		Vendor:            vendor,
		Type:              generator.GenerationType(r.Type),
		EpisodeID:         r.EpisodeID,
		ImageURL:          r.ImageURL,
		StartFrameURL:     r.StartFrameURL,
		EndFrameURL:       r.EndFrameURL,
		ReferenceVideoURL: r.ReferenceVideoURL,
		VideoURL:          r.VideoURL,
		Prompt:            r.Prompt,
		Resolution:        r.Resolution,
		AspectRatio:       r.AspectRatio,
		Duration:          duration,
		Mode:              r.KlingMode,
	}
}

// GenerateResponse is the HTTP response of a completed synchronous generation.
type GenerateResponse struct {
	VideoURL  string `json:"videoUrl"`
	TaskID    string `json:"taskId,omitempty"`
	JobID     string `json:"jobId,omitempty"`
	BackupURL string `json:"backupUrl,omitempty"`
}

// CreateJobResponse is the HTTP response after creating a job.
type CreateJobResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Vendor    string `json:"vendor"`
	Model     string `json:"model"`
	Type      string `json:"type"`
	EpisodeID string `json:"episodeId"`
	TaskID    string `json:"taskId,omitempty"`
	// Progress is the vendor-reported percentage (0-100).
	Progress int `json:"progress"`
	Attempts int `json:"attempts"`
	// VendorVideoURL is only exposed when the video could not be stored.
	VendorVideoURL string     `json:"vendorVideoUrl,omitempty"`
	VideoURL       string     `json:"videoUrl,omitempty"`
	BackupURL      string     `json:"backupUrl,omitempty"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// newJobResponse maps a job onto its HTTP representation.
func newJobResponse(j *job.Job) JobResponse {
	resp := JobResponse{
		ID:        j.ID,
		Status:    string(j.Status),
		Vendor:    string(j.Vendor),
		Model:     j.Request.Model,
		Type:      string(j.Request.Type),
		EpisodeID: j.Request.EpisodeID,
		TaskID:    j.TaskID,
		Progress:  j.Progress,
		Attempts:  j.Attempts,
		VideoURL:  j.VideoURL,
		BackupURL: j.BackupURL,
		Error:     j.Error,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if j.Status == job.StatusUnmaterialized {
		resp.VendorVideoURL = j.VendorVideoURL
	}
	if !j.CompletedAt.IsZero() {
		completed := j.CompletedAt
		resp.CompletedAt = &completed
	}
	return resp
}

// ListJobsResponse is the HTTP response for listing jobs.
type ListJobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
	// Details carries the underlying cause when it helps the caller.
	Details string `json:"details,omitempty"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
