package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/wanvideo-api/internal/enhance"
	"github.com/maauso/wanvideo-api/internal/generation"
	"github.com/maauso/wanvideo-api/internal/job"
	"github.com/maauso/wanvideo-api/internal/job/id"
	"github.com/maauso/wanvideo-api/internal/storage"
	"github.com/maauso/wanvideo-api/internal/wan"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	jobs               *job.Service
	enhancer           *enhance.Enhancer
	images             storage.ImageStore
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background tracking.
// When disabled, CreateJob only submits and stores the job.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// WithImageStore enables POST /api/upload-image.
func WithImageStore(store storage.ImageStore) HandlerOption {
	return func(h *Handlers) {
		h.images = store
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(jobs *job.Service, enhancer *enhance.Enhancer, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		jobs:               jobs,
		enhancer:           enhancer,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// GenerateVideo handles POST /api/generate-video requests.
func (h *Handlers) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req GenerateVideoRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	handle, err := h.jobs.SubmitGeneration(r.Context(), req.toDomain())
	if err != nil {
		h.writeDomainError(w, err, http.StatusInternalServerError, "INTERNAL_ERROR")
		return
	}

	writeJSON(w, http.StatusOK, GenerateVideoResponse{
		TaskID:  handle.TaskID,
		PollURL: handle.PollURL,
		Status:  string(generation.StatePending),
	})
}

// PollVideo handles POST /api/poll-video requests.
// Poll failures are reported through the status field, never as HTTP errors.
func (h *Handlers) PollVideo(w http.ResponseWriter, r *http.Request) {
	var req PollVideoRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	handle := wan.TaskHandle{TaskID: req.TaskID, PollURL: req.PollURL}
	if handle.IsZero() {
		writeError(w, http.StatusBadRequest, "taskId or pollUrl is required", "VALIDATION_ERROR")
		return
	}

	st := h.jobs.PollOnce(r.Context(), handle)
	writeJSON(w, http.StatusOK, PollVideoResponse{
		Status: string(st.State),
		URL:    st.VideoURL,
		Error:  st.Message,
		TaskID: req.TaskID,
	})
}

// EnhancePrompt handles POST /api/enhance-prompt requests.
func (h *Handlers) EnhancePrompt(w http.ResponseWriter, r *http.Request) {
	var req EnhancePromptRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	mode := wan.Mode(req.Mode)
	if mode == "" {
		mode = wan.ModeText
	}

	res, err := h.enhancer.Enhance(r.Context(), req.Prompt, mode)
	if err != nil {
		h.writeDomainError(w, err, http.StatusBadGateway, "ENHANCEMENT_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, EnhancePromptResponse{
		EnhancedPrompt: res.EnhancedPrompt,
		NegativePrompt: res.NegativePrompt,
	})
}

// UploadImage handles POST /api/upload-image multipart requests with a "file" part.
func (h *Handlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		writeError(w, http.StatusServiceUnavailable, "image upload is not configured", "STORAGE_DISABLED")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxImageSize+(1<<20))
	file, _, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "image exceeds 10MB", "FILE_TOO_LARGE")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required", "VALIDATION_ERROR")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxImageSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload", "VALIDATION_ERROR")
		return
	}

	url, err := h.images.UploadImage(r.Context(), data)
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error(), "FILE_TOO_LARGE")
		return
	case errors.Is(err, storage.ErrUnsupportedType):
		writeError(w, http.StatusUnsupportedMediaType, err.Error(), "UNSUPPORTED_MEDIA_TYPE")
		return
	case err != nil:
		h.logger.Error("image upload failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "failed to store image", "UPLOAD_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, UploadImageResponse{ImageURL: url})
}

// CreateJob handles POST /jobs requests.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req GenerateVideoRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	// Submit and store synchronously
	createdJob, err := h.jobs.CreateJob(r.Context(), req.toDomain())
	if err != nil {
		h.writeDomainError(w, err, http.StatusInternalServerError, "INTERNAL_ERROR")
		return
	}

	// Track in background with a detached context
	if h.enableAsyncProcess {
		go func(ctx context.Context, jobID string) {
			if _, trackErr := h.jobs.Track(ctx, jobID); trackErr != nil {
				h.logger.Error("background tracking failed",
					slog.String("job_id", jobID),
					slog.String("error", trackErr.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), createdJob.ID)
	}

	writeJSON(w, http.StatusAccepted, CreateJobResponse{
		ID:      createdJob.ID,
		Status:  string(createdJob.Status),
		TaskID:  createdJob.Handle.TaskID,
		PollURL: createdJob.Handle.PollURL,
	})
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}
	if !id.Valid(jobID) {
		writeError(w, http.StatusBadRequest, "malformed job ID", "INVALID_JOB_ID")
		return
	}

	foundJob, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, toJobResponse(foundJob))
}

// DeleteJob handles DELETE /jobs/{id} requests.
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}
	if !id.Valid(jobID) {
		writeError(w, http.StatusBadRequest, "malformed job ID", "INVALID_JOB_ID")
		return
	}

	if err := h.jobs.DeleteJob(r.Context(), jobID); err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to delete job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete job", "JOB_DELETE_FAILED")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListUserJobs handles GET /users/{id}/jobs requests.
func (h *Handlers) ListUserJobs(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user ID is required", "MISSING_USER_ID")
		return
	}

	jobs, err := h.jobs.ListJobs(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list jobs",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_FETCH_FAILED")
		return
	}

	resp := UserJobsResponse{UserID: userID, Jobs: make([]JobResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, toJobResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeAndValidate decodes the JSON body into dst and validates it.
// It writes the error response and returns false on failure.
func (h *Handlers) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return false
	}
	return true
}

// writeDomainError maps wan and enhance errors to HTTP responses.
// Errors of no known kind are reported with fallbackStatus and fallbackCode.
func (h *Handlers) writeDomainError(w http.ResponseWriter, err error, fallbackStatus int, fallbackCode string) {
	status, code := classifyError(err)
	if status == 0 {
		status, code = fallbackStatus, fallbackCode
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
	}
	writeError(w, status, err.Error(), code)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, wan.ErrValidation), errors.Is(err, enhance.ErrEmptyPrompt):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, wan.ErrConfiguration), errors.Is(err, enhance.ErrConfiguration):
		return http.StatusInternalServerError, "CONFIGURATION_ERROR"
	case errors.Is(err, wan.ErrSubmission):
		return http.StatusBadGateway, "SUBMISSION_ERROR"
	case errors.Is(err, wan.ErrContract):
		return http.StatusBadGateway, "CONTRACT_ERROR"
	case errors.Is(err, enhance.ErrFormat):
		return http.StatusBadGateway, "FORMAT_ERROR"
	default:
		return 0, ""
	}
}

func (r GenerateVideoRequest) toDomain() wan.GenerationRequest {
	return wan.GenerationRequest{
		Mode:           wan.Mode(r.Mode),
		Prompt:         r.Prompt,
		NegativePrompt: r.NegativePrompt,
		Resolution:     wan.Resolution(r.Resolution),
		AspectRatio:    wan.AspectRatio(r.AspectRatio),
		ImageURL:       r.ImageURL,
		UserID:         r.UserID,
	}
}

func toJobResponse(j *job.Job) JobResponse {
	resp := JobResponse{
		ID:        j.ID,
		UserID:    j.UserID,
		Status:    string(j.Status),
		Progress:  j.Progress,
		Attempts:  j.Attempts,
		Mode:      string(j.Mode),
		Prompt:    j.Prompt,
		TaskID:    j.Handle.TaskID,
		PollURL:   j.Handle.PollURL,
		VideoURL:  j.VideoURL,
		Error:     j.Error,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if !j.CompletedAt.IsZero() {
		completed := j.CompletedAt
		resp.CompletedAt = &completed
	}
	return resp
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
