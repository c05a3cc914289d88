package dto

import (
	"time"

	"app/internal/model"
)

// UploadInitiateRequest starts an enhancement job for one image.
type UploadInitiateRequest struct {
	Filename      string `json:"filename" validate:"required"`
	FileSizeBytes int64  `json:"file_size_bytes" validate:"required,gt=0"`
}

// UploadInitiateResponse carries the created job and the presigned URL the
// client PUTs the original image to.
type UploadInitiateResponse struct {
	Job       JobResponse `json:"job"`
	UploadURL string      `json:"upload_url"`
}

// JobResponse is the API view of an enhancement job.
type JobResponse struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	Status         string    `json:"status"`
	Progress       int       `json:"progress"`
	Scale          int       `json:"scale"`
	Quality        string    `json:"quality"`
	FileSizeBytes  int64     `json:"file_size_bytes"`
	EnhancedURL    string    `json:"enhanced_url,omitempty"`
	Simulated      bool      `json:"simulated"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	ProcessingTime int64     `json:"processing_time_ms"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewJobResponse maps a job model to its API representation.
func NewJobResponse(j *model.EnhancementJob) JobResponse {
	return JobResponse{
		ID:             j.ID,
		Filename:       j.Filename,
		Status:         j.Status,
		Progress:       j.Progress,
		Scale:          j.Scale,
		Quality:        string(j.Quality),
		FileSizeBytes:  j.FileSizeBytes,
		EnhancedURL:    j.EnhancedURL,
		Simulated:      j.Simulated,
		ErrorMessage:   j.ErrorMessage,
		ProcessingTime: j.ProcessingTime,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
	}
}

// EnhanceResponse is the terminal result of a run, including the credits
// remaining after the charge.
type EnhanceResponse struct {
	Result           *model.EnhancementResult `json:"result"`
	CreditsRemaining int                      `json:"credits_remaining"`
}
