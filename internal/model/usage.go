package model

import "time"

// UsageRecord is one immutable entry in the append-only usage log. Records
// are never updated after insertion; retention trimming is the only delete.
type UsageRecord struct {
	ID            string    `db:"id" json:"id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	Quality       Quality   `db:"quality" json:"quality"`
	Scale         int       `db:"scale" json:"scale"`
	FileSizeMB    float64   `db:"file_size_mb" json:"file_size_mb"`
	EstimatedCost float64   `db:"estimated_cost" json:"estimated_cost"`
	UserID        string    `db:"user_id" json:"user_id,omitempty"`
	PlanID        string    `db:"plan_id" json:"plan_id,omitempty"`
}

// QualityBucket aggregates count and cost for one quality tier.
type QualityBucket struct {
	Count int     `json:"count"`
	Cost  float64 `json:"cost"`
}

// CostSummary is derived by folding the usage log. It is computed on every
// read and never persisted, so it cannot drift from the log.
type CostSummary struct {
	TotalCost     float64                   `json:"total_cost"`
	TotalImages   int                       `json:"total_images"`
	AverageCost   float64                   `json:"average_cost"`
	TodayCost     float64                   `json:"today_cost"`
	ThisMonthCost float64                   `json:"this_month_cost"`
	Breakdown     map[Quality]QualityBucket `json:"breakdown"`
}
