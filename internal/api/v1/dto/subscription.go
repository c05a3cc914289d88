package dto

import (
	"time"

	"app/internal/model"
)

// SubscriptionCheckoutRequest selects the paid plan and billing cycle for a
// Stripe Checkout session.
type SubscriptionCheckoutRequest struct {
	PlanID       string `json:"plan_id" validate:"required,oneof=basic pro premium"`
	BillingCycle string `json:"billing_cycle" validate:"required,oneof=monthly yearly"`
}

// SubscriptionResponse is the API view of the user's ledger entry.
type SubscriptionResponse struct {
	PlanID          string    `json:"plan_id"`
	Status          string    `json:"status"`
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	ImagesTotal     int       `json:"images_total"`
	ImagesUsed      int       `json:"images_used"`
	ImagesRemaining int       `json:"images_remaining"`
	BillingCycle    string    `json:"billing_cycle"`
}

// NewSubscriptionResponse maps a subscription model to its API
// representation.
func NewSubscriptionResponse(s *model.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		PlanID:          s.PlanID,
		Status:          s.Status,
		PeriodStart:     s.PeriodStart,
		PeriodEnd:       s.PeriodEnd,
		ImagesTotal:     s.ImagesTotal,
		ImagesUsed:      s.ImagesUsed,
		ImagesRemaining: s.ImagesRemaining,
		BillingCycle:    s.BillingCycle,
	}
}
