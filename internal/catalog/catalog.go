package catalog

import (
	"errors"
	"fmt"

	"app/internal/model"
)

// ErrPlanNotFound is returned for plan IDs outside the fixed catalog. Callers
// treat it as a configuration error, not a user error.
var ErrPlanNotFound = errors.New("plan_not_found")

// TrialPlanID is the plan provisioned for every new user at signup.
const TrialPlanID = "trial"

// plans is the fixed tier catalog matching the Stripe pricing pages.
var plans = map[string]model.Plan{
	"trial": {
		ID:             "trial",
		Name:           "Free Trial",
		ImagesPerMonth: 3,
		MaxScale:       4,
		Quality:        model.QualityBasic,
		Priority:       "low",
		Features:       []string{"3 images total", "4x upscaling", "Basic AI model"},
	},
	"basic": {
		ID:             "basic",
		Name:           "Basic",
		ImagesPerMonth: 150,
		MaxScale:       4,
		Quality:        model.QualityBasic,
		Priority:       "low",
		Features:       []string{"150 images/month", "4x upscaling", "Basic quality enhancement", "Email support", "Standard processing speed"},
	},
	"pro": {
		ID:             "pro",
		Name:           "Pro",
		ImagesPerMonth: 400,
		MaxScale:       8,
		Quality:        model.QualityPremium,
		Priority:       "medium",
		Features:       []string{"400 images/month", "8x upscaling", "Premium quality enhancement", "Priority support", "Batch processing"},
	},
	"premium": {
		ID:             "premium",
		Name:           "Premium",
		ImagesPerMonth: 1300,
		MaxScale:       16,
		Quality:        model.QualityUltra,
		Priority:       "high",
		Features:       []string{"1,300 images/month", "16x upscaling", "Ultra quality enhancement", "24/7 priority support", "API access & integrations"},
	},
}

// Get returns the plan for the given ID.
func Get(planID string) (model.Plan, error) {
	p, ok := plans[planID]
	if !ok {
		return model.Plan{}, fmt.Errorf("lookup plan %q: %w", planID, ErrPlanNotFound)
	}
	return p, nil
}

// IDs lists every plan ID in the catalog.
func IDs() []string {
	out := make([]string, 0, len(plans))
	for id := range plans {
		out = append(out, id)
	}
	return out
}
