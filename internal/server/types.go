// Package server provides the HTTP server for the Wan video API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// GenerateVideoRequest is the HTTP request body for submitting a generation task.
// It is shared by POST /api/generate-video and POST /jobs.
type GenerateVideoRequest struct {
	// Mode is "text" (text-to-video) or "image" (image-to-video).
	Mode string `json:"mode" validate:"required,oneof=text image"`
	// Prompt describes the video. Required in text mode.
	Prompt string `json:"prompt"`
	// NegativePrompt lists things to avoid.
	NegativePrompt string `json:"negativePrompt"`
	// Resolution is the output tier.
	Resolution string `json:"resolution" validate:"required,oneof=480P 1080P"`
	// AspectRatio applies to text mode only.
	AspectRatio string `json:"aspectRatio" validate:"omitempty,oneof=16:9 9:16 1:1 4:3 3:4"`
	// ImageURL is the source image. Required in image mode.
	ImageURL string `json:"imageUrl" validate:"omitempty,url"`
	// UserID is an opaque owner id used for session history.
	UserID string `json:"userId" validate:"omitempty,max=128"`
}

// GenerateVideoResponse is returned after a task was accepted by the provider.
type GenerateVideoResponse struct {
	TaskID  string `json:"taskId,omitempty"`
	PollURL string `json:"pollUrl,omitempty"`
	Status  string `json:"status"`
}

// PollVideoRequest identifies the task to check. At least one field is required.
type PollVideoRequest struct {
	TaskID  string `json:"taskId"`
	PollURL string `json:"pollUrl" validate:"omitempty,url"`
}

// PollVideoResponse is the classified result of one status check.
type PollVideoResponse struct {
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
	TaskID string `json:"taskId,omitempty"`
}

// EnhancePromptRequest is the HTTP request body for prompt enhancement.
type EnhancePromptRequest struct {
	Prompt string `json:"prompt" validate:"required"`
	// Mode selects the system instruction; defaults to text.
	Mode string `json:"mode" validate:"omitempty,oneof=text image"`
}

// EnhancePromptResponse carries the rewritten prompt pair.
type EnhancePromptResponse struct {
	EnhancedPrompt string `json:"enhancedPrompt"`
	NegativePrompt string `json:"negativePrompt"`
}

// UploadImageResponse is returned after a source image was stored.
type UploadImageResponse struct {
	// ImageURL is a presigned GET URL the provider can fetch.
	ImageURL string `json:"imageUrl"`
}

// CreateJobResponse is the HTTP response after creating a job.
type CreateJobResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// Status is the initial job status.
	Status  string `json:"status"`
	TaskID  string `json:"taskId,omitempty"`
	PollURL string `json:"pollUrl,omitempty"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	ID     string `json:"id"`
	UserID string `json:"userId,omitempty"`
	Status string `json:"status"`
	// Progress is the percentage of completion (0-100).
	Progress int    `json:"progress"`
	Attempts int    `json:"attempts"`
	Mode     string `json:"mode"`
	Prompt   string `json:"prompt,omitempty"`
	TaskID   string `json:"taskId,omitempty"`
	PollURL  string `json:"pollUrl,omitempty"`
	// VideoURL is the provider URL of the finished video.
	VideoURL string `json:"videoUrl,omitempty"`
	// Error contains any error message if the job did not succeed.
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// UserJobsResponse lists a user's jobs, newest first.
type UserJobsResponse struct {
	UserID string        `json:"userId"`
	Jobs   []JobResponse `json:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
