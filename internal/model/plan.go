package model

// Quality identifies the enhancement model tier used for a call.
type Quality string

const (
	QualityBasic   Quality = "basic"
	QualityPremium Quality = "premium"
	QualityUltra   Quality = "ultra"
)

// Plan is a static pricing tier with its monthly quota and enhancement limits.
type Plan struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	ImagesPerMonth int      `json:"images_per_month"`
	MaxScale       int      `json:"max_scale"` // 4, 8 or 16
	Quality        Quality  `json:"quality"`
	Priority       string   `json:"priority"` // low, medium, high
	Features       []string `json:"features"`
}
