package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInsufficientCredits is returned when a user has no image credits left.
var ErrInsufficientCredits = errors.New("insufficient_credits")

// ErrSubscriptionNotFound is returned when a user has never been provisioned.
var ErrSubscriptionNotFound = errors.New("subscription_not_found")

const subscriptionColumns = `
        id, user_id, plan_id, status, period_start, period_end,
        images_total, images_used, images_remaining, billing_cycle,
        stripe_subscription_id, created_at, updated_at, canceled_at
`

// LedgerRepository owns the per-user subscription/credits ledger.
type LedgerRepository interface {
	GetSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	// ProvisionTrial creates a trial ledger record for a new user if none
	// exists. Safe to call repeatedly.
	ProvisionTrial(ctx context.Context, userID string, imagesTotal, periodDays int) error
	// ApplyPayment replaces the plan and resets the quota for a confirmed
	// payment. The Stripe event ID is recorded in the same transaction;
	// a replayed event leaves the ledger untouched.
	ApplyPayment(ctx context.Context, p PaymentApplication) (*model.Subscription, error)
	// ConsumeCredit decrements images_remaining and increments images_used
	// in a single conditional update. Returns ErrInsufficientCredits without
	// mutating anything when no credits remain.
	ConsumeCredit(ctx context.Context, userID string) (remaining int, err error)
	// Downgrade resets a user to the trial-tier quota when their paid
	// subscription is deleted upstream.
	Downgrade(ctx context.Context, userID string, imagesTotal, periodDays int) error
	// RolloverExpired refills quotas for active subscriptions whose billing
	// period has ended, advancing the period by its billing cycle. Returns
	// the number of rows rolled over.
	RolloverExpired(ctx context.Context, now time.Time) (int64, error)
}

// PaymentApplication carries everything needed to apply one payment
// confirmation to the ledger.
type PaymentApplication struct {
	UserID               string
	PlanID               string
	ImagesTotal          int
	BillingCycle         string
	PeriodStart          time.Time
	PeriodEnd            time.Time
	Status               string
	StripeSubscriptionID string
	StripeEventID        string
}

type ledgerRepo struct {
	pool *pgxpool.Pool
}

// NewLedgerRepo creates a new LedgerRepository.
func NewLedgerRepo(pool *pgxpool.Pool) LedgerRepository {
	return &ledgerRepo{pool: pool}
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var s model.Subscription
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.PlanID,
		&s.Status,
		&s.PeriodStart,
		&s.PeriodEnd,
		&s.ImagesTotal,
		&s.ImagesUsed,
		&s.ImagesRemaining,
		&s.BillingCycle,
		&s.StripeSubscriptionID,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.CanceledAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSubscription returns the user's ledger record regardless of status.
func (r *ledgerRepo) GetSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`
	sub, err := scanSubscription(r.pool.QueryRow(ctx, q, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("fetch subscription for user %s: %w", userID, ErrSubscriptionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch subscription for user %s: %w", userID, err)
	}
	return sub, nil
}

// ProvisionTrial creates a trial ledger record for a new user if none exists.
func (r *ledgerRepo) ProvisionTrial(ctx context.Context, userID string, imagesTotal, periodDays int) error {
	const q = `
        INSERT INTO subscriptions
            (user_id, plan_id, status, period_start, period_end,
             images_total, images_used, images_remaining, billing_cycle, created_at, updated_at)
        VALUES ($1, 'trial', 'trial', NOW(), NOW() + make_interval(days => $2),
                $3, 0, $3, 'monthly', NOW(), NOW())
        ON CONFLICT (user_id) DO NOTHING
    `
	if _, err := r.pool.Exec(ctx, q, userID, periodDays, imagesTotal); err != nil {
		return fmt.Errorf("provision trial for user %s: %w", userID, err)
	}
	return nil
}

// ApplyPayment applies one payment confirmation inside a transaction guarded
// by the processed_events table, so at-least-once webhook delivery cannot
// double-reset the quota.
func (r *ledgerRepo) ApplyPayment(ctx context.Context, p PaymentApplication) (*model.Subscription, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting transaction for payment application: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if p.StripeEventID != "" {
		const guardQ = `INSERT INTO processed_events (event_id, received_at) VALUES ($1, NOW()) ON CONFLICT (event_id) DO NOTHING`
		tag, err := tx.Exec(ctx, guardQ, p.StripeEventID)
		if err != nil {
			return nil, fmt.Errorf("recording processed event %s: %w", p.StripeEventID, err)
		}
		if tag.RowsAffected() == 0 {
			// Replayed delivery: return the current ledger state unchanged.
			q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`
			sub, err := scanSubscription(tx.QueryRow(ctx, q, p.UserID))
			if err != nil {
				return nil, fmt.Errorf("fetch subscription after replayed event %s: %w", p.StripeEventID, err)
			}
			return sub, nil
		}
	}

	q := `
        INSERT INTO subscriptions
            (user_id, plan_id, status, period_start, period_end,
             images_total, images_used, images_remaining, billing_cycle,
             stripe_subscription_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, 0, $6, $7, NULLIF($8, ''), NOW(), NOW())
        ON CONFLICT (user_id) DO UPDATE
        SET plan_id = EXCLUDED.plan_id,
            status = EXCLUDED.status,
            period_start = EXCLUDED.period_start,
            period_end = EXCLUDED.period_end,
            images_total = EXCLUDED.images_total,
            images_used = 0,
            images_remaining = EXCLUDED.images_total,
            billing_cycle = EXCLUDED.billing_cycle,
            stripe_subscription_id = EXCLUDED.stripe_subscription_id,
            updated_at = NOW()
        RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(tx.QueryRow(ctx, q,
		p.UserID, p.PlanID, p.Status, p.PeriodStart, p.PeriodEnd,
		p.ImagesTotal, p.BillingCycle, p.StripeSubscriptionID,
	))
	if err != nil {
		return nil, fmt.Errorf("apply payment for user %s: %w", p.UserID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing payment application for user %s: %w", p.UserID, err)
	}
	return sub, nil
}

// ConsumeCredit charges exactly one credit. The conditional update is the
// compare-and-swap: two concurrent calls with one credit left serialize on
// the row and only one sees images_remaining > 0.
func (r *ledgerRepo) ConsumeCredit(ctx context.Context, userID string) (int, error) {
	const q = `
        UPDATE subscriptions
        SET images_remaining = images_remaining - 1,
            images_used = images_used + 1,
            updated_at = NOW()
        WHERE user_id = $1 AND images_remaining > 0
        RETURNING images_remaining
    `
	var remaining int
	err := r.pool.QueryRow(ctx, q, userID).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		const existsQ = `SELECT EXISTS (SELECT 1 FROM subscriptions WHERE user_id = $1)`
		var exists bool
		if err := r.pool.QueryRow(ctx, existsQ, userID).Scan(&exists); err != nil {
			return 0, fmt.Errorf("checking subscription for user %s: %w", userID, err)
		}
		if !exists {
			return 0, fmt.Errorf("consume credit for user %s: %w", userID, ErrSubscriptionNotFound)
		}
		return 0, ErrInsufficientCredits
	}
	if err != nil {
		return 0, fmt.Errorf("consume credit for user %s: %w", userID, err)
	}
	return remaining, nil
}

// Downgrade resets a user to trial-tier quota when their paid subscription
// is deleted upstream.
func (r *ledgerRepo) Downgrade(ctx context.Context, userID string, imagesTotal, periodDays int) error {
	const q = `
        UPDATE subscriptions
        SET plan_id = 'trial',
            status = 'trial',
            period_start = NOW(),
            period_end = NOW() + make_interval(days => $2),
            images_total = $3,
            images_used = 0,
            images_remaining = $3,
            stripe_subscription_id = NULL,
            updated_at = NOW()
        WHERE user_id = $1
    `
	if _, err := r.pool.Exec(ctx, q, userID, periodDays, imagesTotal); err != nil {
		return fmt.Errorf("downgrade user %s to trial: %w", userID, err)
	}
	return nil
}

// RolloverExpired refills quota and advances the period for active
// subscriptions past their period end.
func (r *ledgerRepo) RolloverExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `
        UPDATE subscriptions
        SET images_remaining = images_total,
            images_used = 0,
            period_start = period_end,
            period_end = period_end + CASE billing_cycle
                WHEN 'yearly' THEN INTERVAL '1 year'
                ELSE INTERVAL '1 month'
            END,
            updated_at = NOW()
        WHERE status = 'active' AND period_end <= $1
    `
	tag, err := r.pool.Exec(ctx, q, now)
	if err != nil {
		return 0, fmt.Errorf("rolling over expired subscriptions: %w", err)
	}
	return tag.RowsAffected(), nil
}
