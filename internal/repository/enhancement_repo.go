package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ErrJobNotFound is returned when an enhancement job does not exist.
var ErrJobNotFound = errors.New("enhancement_job_not_found")

// EnhancementRepository persists enhancement jobs and their state machine.
type EnhancementRepository interface {
	Create(ctx context.Context, job *model.EnhancementJob) (*model.EnhancementJob, error)
	GetByID(ctx context.Context, jobID string) (*model.EnhancementJob, error)
	// SetProgress records a status transition with its progress percentage.
	SetProgress(ctx context.Context, jobID, status string, progress int) error
	// UpdateParameters persists the scale and quality resolved from the
	// user's plan once the run starts.
	UpdateParameters(ctx context.Context, jobID string, scale int, quality model.Quality) error
	MarkCompleted(ctx context.Context, jobID, enhancedURL string, simulated bool, processingTimeMS int64) error
	MarkFailed(ctx context.Context, jobID, message string) error
	// UpdateStoragePath sets the object key once the upload target is known.
	UpdateStoragePath(ctx context.Context, jobID, storagePath string, fileSizeBytes int64) error
	Delete(ctx context.Context, jobID string) error
}

type enhancementRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewEnhancementRepo creates a new EnhancementRepository.
func NewEnhancementRepo(pool *pgxpool.Pool, logger zerolog.Logger) EnhancementRepository {
	return &enhancementRepo{pool: pool, logger: logger.With().Str("repository", "EnhancementRepository").Logger()}
}

const jobColumns = `
        id, user_id, filename, storage_path, status, progress, scale, quality,
        file_size_bytes, enhanced_url, simulated, error_message,
        processing_time_ms, created_at, updated_at
`

func scanJob(row pgx.Row) (*model.EnhancementJob, error) {
	var j model.EnhancementJob
	err := row.Scan(
		&j.ID, &j.UserID, &j.Filename, &j.StoragePath, &j.Status, &j.Progress,
		&j.Scale, &j.Quality, &j.FileSizeBytes, &j.EnhancedURL, &j.Simulated,
		&j.ErrorMessage, &j.ProcessingTime, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *enhancementRepo) Create(ctx context.Context, job *model.EnhancementJob) (*model.EnhancementJob, error) {
	const q = `
        INSERT INTO enhancement_jobs
            (user_id, filename, storage_path, status, progress, scale, quality,
             file_size_bytes, enhanced_url, simulated, error_message,
             processing_time_ms, created_at, updated_at)
        VALUES ($1, $2, $3, 'queued', 0, $4, $5, $6, '', FALSE, '', 0, NOW(), NOW())
        RETURNING ` + jobColumns
	created, err := scanJob(r.pool.QueryRow(ctx, q,
		job.UserID, job.Filename, job.StoragePath, job.Scale, job.Quality, job.FileSizeBytes,
	))
	if err != nil {
		return nil, fmt.Errorf("create enhancement job: %w", err)
	}
	return created, nil
}

func (r *enhancementRepo) GetByID(ctx context.Context, jobID string) (*model.EnhancementJob, error) {
	q := `SELECT ` + jobColumns + ` FROM enhancement_jobs WHERE id = $1`
	job, err := scanJob(r.pool.QueryRow(ctx, q, jobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("fetch enhancement job %s: %w", jobID, ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch enhancement job %s: %w", jobID, err)
	}
	return job, nil
}

func (r *enhancementRepo) SetProgress(ctx context.Context, jobID, status string, progress int) error {
	const q = `
        UPDATE enhancement_jobs
        SET status = $2, progress = GREATEST(progress, $3), updated_at = NOW()
        WHERE id = $1
    `
	if _, err := r.pool.Exec(ctx, q, jobID, status, progress); err != nil {
		return fmt.Errorf("update progress for job %s: %w", jobID, err)
	}
	return nil
}

func (r *enhancementRepo) UpdateParameters(ctx context.Context, jobID string, scale int, quality model.Quality) error {
	const q = `
        UPDATE enhancement_jobs
        SET scale = $2, quality = $3, updated_at = NOW()
        WHERE id = $1
    `
	if _, err := r.pool.Exec(ctx, q, jobID, scale, quality); err != nil {
		return fmt.Errorf("update parameters for job %s: %w", jobID, err)
	}
	return nil
}

func (r *enhancementRepo) MarkCompleted(ctx context.Context, jobID, enhancedURL string, simulated bool, processingTimeMS int64) error {
	const q = `
        UPDATE enhancement_jobs
        SET status = 'completed', progress = 100, enhanced_url = $2,
            simulated = $3, processing_time_ms = $4, updated_at = NOW()
        WHERE id = $1
    `
	if _, err := r.pool.Exec(ctx, q, jobID, enhancedURL, simulated, processingTimeMS); err != nil {
		return fmt.Errorf("mark job %s completed: %w", jobID, err)
	}
	return nil
}

func (r *enhancementRepo) MarkFailed(ctx context.Context, jobID, message string) error {
	const q = `
        UPDATE enhancement_jobs
        SET status = 'failed', error_message = $2, updated_at = NOW()
        WHERE id = $1
    `
	if _, err := r.pool.Exec(ctx, q, jobID, message); err != nil {
		return fmt.Errorf("mark job %s failed: %w", jobID, err)
	}
	return nil
}

func (r *enhancementRepo) UpdateStoragePath(ctx context.Context, jobID, storagePath string, fileSizeBytes int64) error {
	const q = `
        UPDATE enhancement_jobs
        SET storage_path = $2, file_size_bytes = $3, updated_at = NOW()
        WHERE id = $1
    `
	if _, err := r.pool.Exec(ctx, q, jobID, storagePath, fileSizeBytes); err != nil {
		return fmt.Errorf("update storage path for job %s: %w", jobID, err)
	}
	return nil
}

func (r *enhancementRepo) Delete(ctx context.Context, jobID string) error {
	const q = `DELETE FROM enhancement_jobs WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, jobID); err != nil {
		return fmt.Errorf("delete enhancement job %s: %w", jobID, err)
	}
	return nil
}
