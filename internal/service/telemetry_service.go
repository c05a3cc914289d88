package service

import (
	"context"
	"encoding/json"
	"time"

	"app/internal/model"
	"app/internal/pubsub"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// ModelCosts is the estimated cost per enhancement call by quality tier,
// in EUR.
var ModelCosts = map[model.Quality]float64{
	model.QualityBasic:   0.003,
	model.QualityPremium: 0.004,
	model.QualityUltra:   0.006,
}

// TelemetryService appends immutable usage records and derives cost
// summaries from them. Recording never fails the caller's flow: persistence
// and fan-out errors are logged and swallowed.
type TelemetryService interface {
	Record(ctx context.Context, quality model.Quality, scale int, fileSizeBytes int64, userID, planID string)
	Summarize(ctx context.Context, userID string) (*model.CostSummary, error)
	// Trim removes records older than retentionDays. Records exactly at the
	// cutoff are retained.
	Trim(ctx context.Context, retentionDays int) (int64, error)
}

type telemetryService struct {
	repo      repository.UsageRepository
	publisher pubsub.Publisher // nil when event fan-out is disabled
	topic     string
	now       func() time.Time
	logger    zerolog.Logger
}

// NewTelemetryService creates a new TelemetryService with a scoped logger.
func NewTelemetryService(repo repository.UsageRepository, publisher pubsub.Publisher, topic string, logger zerolog.Logger) TelemetryService {
	return &telemetryService{
		repo:      repo,
		publisher: publisher,
		topic:     topic,
		now:       time.Now,
		logger:    logger.With().Str("service", "TelemetryService").Logger(),
	}
}

// Record appends one usage record and fans it out to the usage events topic
// when configured. Both writes are best-effort.
func (s *telemetryService) Record(ctx context.Context, quality model.Quality, scale int, fileSizeBytes int64, userID, planID string) {
	rec := &model.UsageRecord{
		CreatedAt:     s.now(),
		Quality:       quality,
		Scale:         scale,
		FileSizeMB:    float64(fileSizeBytes) / 1024 / 1024,
		EstimatedCost: ModelCosts[quality],
		UserID:        userID,
		PlanID:        planID,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to persist usage record")
		return
	}

	if s.publisher != nil && s.topic != "" {
		data, err := json.Marshal(rec)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to marshal usage event")
			return
		}
		if _, err := s.publisher.Publish(ctx, s.topic, data); err != nil {
			s.logger.Error().Err(err).Str("topic", s.topic).Msg("Failed to publish usage event")
		}
	}
}

// Summarize folds the user's usage log into aggregates. The summary is
// recomputed from the log on every call; nothing is cached.
func (s *telemetryService) Summarize(ctx context.Context, userID string) (*model.CostSummary, error) {
	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list usage records")
		return nil, err
	}
	return foldSummary(records, s.now()), nil
}

// foldSummary is the pure aggregation over the log. Separated so tests can
// exercise it with a fixed clock.
func foldSummary(records []model.UsageRecord, now time.Time) *model.CostSummary {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	summary := &model.CostSummary{
		TotalImages: len(records),
		Breakdown: map[model.Quality]model.QualityBucket{
			model.QualityBasic:   {},
			model.QualityPremium: {},
			model.QualityUltra:   {},
		},
	}
	for _, rec := range records {
		summary.TotalCost += rec.EstimatedCost
		if !rec.CreatedAt.Before(today) {
			summary.TodayCost += rec.EstimatedCost
		}
		if !rec.CreatedAt.Before(thisMonth) {
			summary.ThisMonthCost += rec.EstimatedCost
		}
		bucket := summary.Breakdown[rec.Quality]
		bucket.Count++
		bucket.Cost += rec.EstimatedCost
		summary.Breakdown[rec.Quality] = bucket
	}
	if summary.TotalImages > 0 {
		summary.AverageCost = summary.TotalCost / float64(summary.TotalImages)
	}
	return summary
}

func (s *telemetryService) Trim(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	n, err := s.repo.Trim(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Int("retention_days", retentionDays).Msg("Failed to trim usage records")
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int64("deleted", n).Int("retention_days", retentionDays).Msg("Trimmed old usage records")
	}
	return n, nil
}
