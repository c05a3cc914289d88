package model

import "time"

// Subscription statuses.
const (
	SubscriptionStatusTrial    = "trial"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusExpired  = "expired"
)

// Billing cycles accepted by checkout and payment application.
const (
	BillingCycleMonthly = "monthly"
	BillingCycleYearly  = "yearly"
)

// Subscription is the per-user ledger record: plan, billing period and
// remaining image credits. ImagesUsed + ImagesRemaining == ImagesTotal holds
// at all times; the repository enforces it by mutating both counters in a
// single statement.
type Subscription struct {
	ID                   string     `db:"id" json:"id"`
	UserID               string     `db:"user_id" json:"user_id"`
	PlanID               string     `db:"plan_id" json:"plan_id"`
	Status               string     `db:"status" json:"status"`
	PeriodStart          time.Time  `db:"period_start" json:"period_start"`
	PeriodEnd            time.Time  `db:"period_end" json:"period_end"`
	ImagesTotal          int        `db:"images_total" json:"images_total"`
	ImagesUsed           int        `db:"images_used" json:"images_used"`
	ImagesRemaining      int        `db:"images_remaining" json:"images_remaining"`
	BillingCycle         string     `db:"billing_cycle" json:"billing_cycle"`
	StripeSubscriptionID *string    `db:"stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
	CanceledAt           *time.Time `db:"canceled_at" json:"canceled_at,omitempty"`
}
