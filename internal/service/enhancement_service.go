package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/catalog"
	"app/internal/model"
	"app/internal/replicate"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// providerMaxScale is the largest scale the inference provider accepts in a
// single call, regardless of plan. This is an upstream constraint, not ours.
const providerMaxScale = 4

// EnhancementService coordinates one enhancement request: quota check,
// provider invocation, credit charge, telemetry.
type EnhancementService interface {
	// Enhance runs the job to a terminal state and returns the result.
	Enhance(ctx context.Context, userID, jobID string) (*model.EnhancementResult, error)
	GetJob(ctx context.Context, userID, jobID string) (*model.EnhancementJob, error)
}

// SourceURLResolver turns a job's storage path into a URL the provider can
// fetch. StorageService implements it.
type SourceURLResolver interface {
	SourceURL(ctx context.Context, storagePath string) (string, error)
}

type enhancementService struct {
	jobs      repository.EnhancementRepository
	ledger    LedgerService
	telemetry TelemetryService
	users     repository.UserRepository
	provider  replicate.Provider
	urls      SourceURLResolver
	now       func() time.Time
	logger    zerolog.Logger
}

// NewEnhancementService creates a new EnhancementService. The provider is
// fixed at construction: real when credentials are configured, simulated
// otherwise.
func NewEnhancementService(
	jobs repository.EnhancementRepository,
	ledger LedgerService,
	telemetry TelemetryService,
	users repository.UserRepository,
	provider replicate.Provider,
	urls SourceURLResolver,
	logger zerolog.Logger,
) EnhancementService {
	return &enhancementService{
		jobs:      jobs,
		ledger:    ledger,
		telemetry: telemetry,
		users:     users,
		provider:  provider,
		urls:      urls,
		now:       time.Now,
		logger:    logger.With().Str("service", "EnhancementService").Logger(),
	}
}

// Enhance runs the orchestration sequence. Telemetry is recorded for every
// terminal outcome, success or failure, even when the credit charge fails.
func (s *enhancementService) Enhance(ctx context.Context, userID, jobID string) (*model.EnhancementResult, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, fmt.Errorf("fetch enhancement job %s: %w", jobID, repository.ErrJobNotFound)
	}
	if job.Status == model.JobStatusCompleted || job.Status == model.JobStatusFailed {
		return nil, fmt.Errorf("job %s already terminal (%s)", jobID, job.Status)
	}

	// 1. Quota pre-check. No provider call and no cost when the user is
	// already out of credits.
	sub, err := s.ledger.GetSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.ImagesRemaining <= 0 {
		return nil, fmt.Errorf("enhance job %s: %w", jobID, ErrQuotaExceeded)
	}

	// 2. Resolve scale and quality from the plan. The provider caps
	// single-call scale at providerMaxScale, below every plan's own cap.
	plan, err := catalog.Get(sub.PlanID)
	if err != nil {
		s.failJob(ctx, jobID, "subscription references unknown plan: "+sub.PlanID)
		return nil, err
	}
	scale := plan.MaxScale
	if scale > providerMaxScale {
		scale = providerMaxScale
	}
	quality := plan.Quality

	started := s.now()
	// The job row carries the resolved parameters so status reads report the
	// values the run actually used.
	if err := s.jobs.UpdateParameters(ctx, jobID, scale, quality); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to persist resolved scale and quality")
	}
	s.setProgress(ctx, jobID, model.JobStatusStarting, 0)

	sourceURL, err := s.urls.SourceURL(ctx, job.StoragePath)
	if err != nil {
		s.failJob(ctx, jobID, "source image unavailable")
		s.record(ctx, quality, scale, job.FileSizeBytes, userID, sub.PlanID)
		return nil, fmt.Errorf("resolve source URL for job %s: %w", jobID, err)
	}

	// 3./4. Provider invocation. Progress checkpoints are persisted on the
	// job row; a caller that abandoned the request stops seeing them but the
	// call itself runs to termination.
	result, err := s.provider.Enhance(ctx, sourceURL, scale, quality, func(p replicate.Progress) {
		s.setProgress(ctx, jobID, jobStatusForProgress(p.Status), p.Percent)
	})

	// 6. Telemetry reflects true call volume: recorded on every terminal
	// outcome, detached from the request context so an abandoned caller
	// still gets counted.
	recordCtx := context.WithoutCancel(ctx)
	if err != nil {
		s.record(recordCtx, quality, scale, job.FileSizeBytes, userID, sub.PlanID)
		s.failJob(recordCtx, jobID, err.Error())
		return nil, err
	}
	s.record(recordCtx, quality, scale, job.FileSizeBytes, userID, sub.PlanID)

	// 5. Charge the credit. A concurrent request may have spent the last one
	// after the pre-check; the ledger never goes negative, so the provider
	// cost is sunk and the caller sees QuotaExceeded.
	if _, err := s.ledger.ConsumeCredit(recordCtx, userID); err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			s.logger.Warn().Str("user_id", userID).Str("job_id", jobID).Msg("Enhancement succeeded but quota was exhausted by a concurrent request; usage goes uncharged")
			s.failJob(recordCtx, jobID, "quota exhausted")
			return nil, err
		}
		return nil, err
	}

	processingTime := s.now().Sub(started).Milliseconds()
	if err := s.jobs.MarkCompleted(recordCtx, jobID, result.OutputURL, result.Simulated, processingTime); err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to mark job completed")
	}
	if err := s.users.IncrementUploads(recordCtx, userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to increment upload counter")
	}

	return &model.EnhancementResult{
		OriginalURL:    sourceURL,
		EnhancedURL:    result.OutputURL,
		Scale:          scale,
		Quality:        quality,
		Simulated:      result.Simulated,
		ProcessingTime: processingTime,
	}, nil
}

func (s *enhancementService) GetJob(ctx context.Context, userID, jobID string) (*model.EnhancementJob, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, fmt.Errorf("fetch enhancement job %s: %w", jobID, repository.ErrJobNotFound)
	}
	return job, nil
}

// jobStatusForProgress maps provider checkpoint statuses onto the job state
// machine: the provider's boot phase is our uploading state, everything
// after is processing.
func jobStatusForProgress(providerStatus string) string {
	switch providerStatus {
	case "starting":
		return model.JobStatusUploading
	case "completed":
		return model.JobStatusProcessing // MarkCompleted owns the terminal transition
	default:
		return model.JobStatusProcessing
	}
}

// setProgress persists a state transition. Failures only lose UI feedback,
// so they are logged and swallowed.
func (s *enhancementService) setProgress(ctx context.Context, jobID, status string, progress int) {
	if err := s.jobs.SetProgress(ctx, jobID, status, progress); err != nil {
		s.logger.Debug().Err(err).Str("job_id", jobID).Msg("Failed to persist job progress")
	}
}

func (s *enhancementService) failJob(ctx context.Context, jobID, message string) {
	if err := s.jobs.MarkFailed(ctx, jobID, message); err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to mark job failed")
	}
}

func (s *enhancementService) record(ctx context.Context, quality model.Quality, scale int, fileSizeBytes int64, userID, planID string) {
	s.telemetry.Record(ctx, quality, scale, fileSizeBytes, userID, planID)
}
