package repository

import (
	"context"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageRepository is the append-only usage log. Inserts are single atomic
// writes; readers never lock against appenders. The only permitted delete is
// the retention trim.
type UsageRepository interface {
	Insert(ctx context.Context, rec *model.UsageRecord) error
	// ListByUser returns the user's records, newest first.
	ListByUser(ctx context.Context, userID string) ([]model.UsageRecord, error)
	// Trim deletes records strictly older than the cutoff. Records created
	// exactly at the cutoff are retained. Returns the number deleted.
	Trim(ctx context.Context, cutoff time.Time) (int64, error)
}

type usageRepo struct {
	pool *pgxpool.Pool
}

// NewUsageRepo creates a new UsageRepository.
func NewUsageRepo(pool *pgxpool.Pool) UsageRepository {
	return &usageRepo{pool: pool}
}

// Insert appends one record to the usage log.
func (r *usageRepo) Insert(ctx context.Context, rec *model.UsageRecord) error {
	const q = `
        INSERT INTO usage_records
            (created_at, quality, scale, file_size_mb, estimated_cost, user_id, plan_id)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''))
        RETURNING id
    `
	err := r.pool.QueryRow(ctx, q,
		rec.CreatedAt, rec.Quality, rec.Scale, rec.FileSizeMB,
		rec.EstimatedCost, rec.UserID, rec.PlanID,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

// ListByUser returns the user's usage records, newest first.
func (r *usageRepo) ListByUser(ctx context.Context, userID string) ([]model.UsageRecord, error) {
	const q = `
        SELECT id, created_at, quality, scale, file_size_mb, estimated_cost,
               COALESCE(user_id, ''), COALESCE(plan_id, '')
        FROM usage_records
        WHERE user_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list usage records for user %s: %w", userID, err)
	}
	defer rows.Close()

	var records []model.UsageRecord
	for rows.Next() {
		var rec model.UsageRecord
		if err := rows.Scan(
			&rec.ID, &rec.CreatedAt, &rec.Quality, &rec.Scale,
			&rec.FileSizeMB, &rec.EstimatedCost, &rec.UserID, &rec.PlanID,
		); err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage records: %w", err)
	}
	return records, nil
}

// Trim deletes records strictly older than the cutoff.
func (r *usageRepo) Trim(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM usage_records WHERE created_at < $1`
	tag, err := r.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("trim usage records before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}
