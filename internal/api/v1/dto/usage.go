package dto

import "app/internal/model"

// UsageSummaryResponse aggregates the user's usage log by cost.
type UsageSummaryResponse struct {
	TotalCost     float64                 `json:"total_cost"`
	TotalImages   int                     `json:"total_images"`
	AverageCost   float64                 `json:"average_cost"`
	TodayCost     float64                 `json:"today_cost"`
	ThisMonthCost float64                 `json:"this_month_cost"`
	Breakdown     map[string]QualityUsage `json:"breakdown"`
}

// QualityUsage is the per-tier slice of the summary.
type QualityUsage struct {
	Count int     `json:"count"`
	Cost  float64 `json:"cost"`
}

// NewUsageSummaryResponse maps a cost summary to its API representation.
func NewUsageSummaryResponse(s *model.CostSummary) UsageSummaryResponse {
	resp := UsageSummaryResponse{
		TotalCost:     s.TotalCost,
		TotalImages:   s.TotalImages,
		AverageCost:   s.AverageCost,
		TodayCost:     s.TodayCost,
		ThisMonthCost: s.ThisMonthCost,
		Breakdown:     make(map[string]QualityUsage, len(s.Breakdown)),
	}
	for quality, bucket := range s.Breakdown {
		resp.Breakdown[string(quality)] = QualityUsage{Count: bucket.Count, Cost: bucket.Cost}
	}
	return resp
}
