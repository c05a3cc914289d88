package model

import "time"

// Enhancement job statuses. A job moves queued -> starting -> uploading ->
// processing -> completed, or to failed from any non-terminal state after
// starting. No transition skips starting.
const (
	JobStatusQueued     = "queued"
	JobStatusStarting   = "starting"
	JobStatusUploading  = "uploading"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// EnhancementJob tracks one enhancement request from upload to result.
type EnhancementJob struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	Filename       string    `db:"filename" json:"filename"`
	StoragePath    string    `db:"storage_path" json:"storage_path"`
	Status         string    `db:"status" json:"status"`
	Progress       int       `db:"progress" json:"progress"`
	Scale          int       `db:"scale" json:"scale"`
	Quality        Quality   `db:"quality" json:"quality"`
	FileSizeBytes  int64     `db:"file_size_bytes" json:"file_size_bytes"`
	EnhancedURL    string    `db:"enhanced_url" json:"enhanced_url,omitempty"`
	Simulated      bool      `db:"simulated" json:"simulated"`
	ErrorMessage   string    `db:"error_message" json:"error_message,omitempty"`
	ProcessingTime int64     `db:"processing_time_ms" json:"processing_time_ms"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// EnhancementResult is the terminal outcome returned to the caller.
type EnhancementResult struct {
	OriginalURL    string  `json:"original_url"`
	EnhancedURL    string  `json:"enhanced_url"`
	Scale          int     `json:"scale"`
	Quality        Quality `json:"quality"`
	Simulated      bool    `json:"simulated"`
	ProcessingTime int64   `json:"processing_time_ms"`
}
