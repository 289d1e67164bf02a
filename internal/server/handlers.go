package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/maauso/concepto-video-api/internal/generator"
	"github.com/maauso/concepto-video-api/internal/job"
)

// GenerationService is the subset of job.GenerationService used by the handlers.
type GenerationService interface {
	Generate(ctx context.Context, req generator.Request) (*job.Result, error)
	Start(ctx context.Context, req generator.Request) (*job.Job, error)
	GetJob(ctx context.Context, id string) (*job.Job, error)
	ListJobs(ctx context.Context) ([]*job.Job, error)
	Cancel(ctx context.Context, id string) error
}

var _ GenerationService = (*job.GenerationService)(nil)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service   GenerationService
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service GenerationService, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Generate handles POST /api/video/generate. It blocks until the video is
// stored or the generation fails.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	// The poll budget outlasts the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn("failed to clear write deadline",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()),
		)
	}

	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	res, err := h.service.Generate(r.Context(), req.toDomain())
	if err != nil {
		h.writeServiceError(w, r, "video generation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		VideoURL:  res.VideoURL,
		TaskID:    res.TaskID,
		JobID:     res.JobID,
		BackupURL: res.BackupURL,
	})
}

// CreateJob handles POST /jobs requests.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	// The pipeline outlives the request, so the service runs it on its own context.
	created, err := h.service.Start(r.Context(), req.toDomain())
	if err != nil {
		h.writeServiceError(w, r, "failed to create job", err)
		return
	}

	h.logger.Info("job created",
		slog.String("job_id", created.ID),
		slog.String("vendor", string(created.Vendor)),
		slog.String("model", created.Request.Model),
	)

	writeJSON(w, http.StatusAccepted, CreateJobResponse{
		ID:     created.ID,
		Status: string(created.Status),
	})
}

// ListJobs handles GET /jobs requests.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListJobs(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "failed to list jobs", err)
		return
	}

	resp := ListJobsResponse{Jobs: make([]JobResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, newJobResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	found, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		h.writeServiceError(w, r, "failed to get job", err)
		return
	}

	writeJSON(w, http.StatusOK, newJobResponse(found))
}

// CancelJob handles POST /jobs/{id}/cancel requests.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	if err := h.service.Cancel(r.Context(), jobID); err != nil {
		h.writeServiceError(w, r, "failed to cancel job", err)
		return
	}

	writeJSON(w, http.StatusAccepted, CreateJobResponse{
		ID:     jobID,
		Status: "CANCELLING",
	})
}

// decodeRequest reads and validates a generation request body. On failure it
// writes the 400 response and returns false.
func (h *Handlers) decodeRequest(w http.ResponseWriter, r *http.Request) (GenerateRequest, bool) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return req, false
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return req, false
	}
	return req, true
}

// writeServiceError maps service errors onto HTTP responses. Validation
// errors are the caller's fault; everything else is a 500 carrying the cause.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case errors.Is(err, generator.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	case errors.Is(err, job.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
		return
	case errors.Is(err, job.ErrJobNotRunning):
		writeError(w, http.StatusConflict, "job is not running", "JOB_NOT_RUNNING")
		return
	}

	code := "GENERATION_FAILED"
	switch {
	case errors.Is(err, generator.ErrVendorUnavailable):
		code = "VENDOR_UNAVAILABLE"
	case errors.Is(err, job.ErrPollTimeout):
		code = "GENERATION_TIMEOUT"
	case errors.Is(err, job.ErrArtifactNotStored):
		code = "STORAGE_FAILED"
	case errors.Is(err, context.Canceled):
		code = "CANCELLED"
	}

	h.logger.Error(message,
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("code", code),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: err.Error(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
