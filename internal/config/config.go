package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port               string `envconfig:"PORT" default:"8080"`
	Environment        string `envconfig:"ENV" default:"development"`
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" required:"true"`
	JWTSecret          string `envconfig:"SUPABASE_JWT_SECRET" required:"true"`

	// Storage settings (Supabase S3-compatible bucket)
	S3URL       string `envconfig:"SUPABASE_S3_URL" required:"true"`
	S3Bucket    string `envconfig:"SUPABASE_S3_BUCKET" default:"uploads"`
	S3Region    string `envconfig:"SUPABASE_S3_REGION" required:"true"`
	S3AccessKey string `envconfig:"SUPABASE_S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"SUPABASE_S3_SECRET_KEY" required:"true"`

	// Inference provider settings. An empty token switches the orchestrator
	// to the deterministic simulation provider.
	ReplicateAPIToken     string `envconfig:"REPLICATE_API_TOKEN"`
	ReplicateBaseURL      string `envconfig:"REPLICATE_BASE_URL" default:"https://api.replicate.com/v1"`
	ReplicatePollInterval int    `envconfig:"REPLICATE_POLL_INTERVAL_SEC" default:"1"`
	ReplicateMaxPolls     int    `envconfig:"REPLICATE_MAX_POLLS" default:"300"`

	// Stripe settings
	StripeSecretKey       string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret   string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	StripePortalReturnURL string `envconfig:"STRIPE_PORTAL_RETURN_URL" default:"http://localhost:5173/dashboard"`
	StripePriceBasic      string `envconfig:"STRIPE_PRICE_BASIC"`
	StripePriceBasicYear  string `envconfig:"STRIPE_PRICE_BASIC_YEARLY"`
	StripePricePro        string `envconfig:"STRIPE_PRICE_PRO"`
	StripePriceProYear    string `envconfig:"STRIPE_PRICE_PRO_YEARLY"`
	StripePricePremium    string `envconfig:"STRIPE_PRICE_PREMIUM"`
	StripePricePremYear   string `envconfig:"STRIPE_PRICE_PREMIUM_YEARLY"`

	// Pub/Sub settings for usage event fan-out. Empty project ID disables it.
	// The client library honors PUBSUB_EMULATOR_HOST on its own.
	GCPProjectID     string `envconfig:"GCP_PROJECT_ID"`
	UsageEventsTopic string `envconfig:"USAGE_EVENTS_TOPIC" default:"usage_events"`

	// Redis settings for rate limiting. Empty address disables the limiter.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`

	// Maintenance worker settings
	UsageRetentionDays   int `envconfig:"USAGE_RETENTION_DAYS" default:"90"`
	WorkerIntervalMin    int `envconfig:"WORKER_INTERVAL_MIN" default:"60"`
	TrialPeriodDays      int `envconfig:"TRIAL_PERIOD_DAYS" default:"30"`
	WorkerRequestTimeout int `envconfig:"WORKER_REQUEST_TIMEOUT_SEC" default:"120"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PlanForPrice maps a Stripe price ID to the internal plan ID. Unknown price
// IDs return an empty string; callers treat that as a configuration error.
func (c *Config) PlanForPrice(priceID string) string {
	switch priceID {
	case c.StripePriceBasic, c.StripePriceBasicYear:
		return "basic"
	case c.StripePricePro, c.StripePriceProYear:
		return "pro"
	case c.StripePricePremium, c.StripePricePremYear:
		return "premium"
	}
	return ""
}

// PriceForPlan resolves the Stripe price ID for a plan and billing cycle.
func (c *Config) PriceForPlan(planID, cycle string) string {
	yearly := cycle == "yearly"
	switch planID {
	case "basic":
		if yearly {
			return c.StripePriceBasicYear
		}
		return c.StripePriceBasic
	case "pro":
		if yearly {
			return c.StripePriceProYear
		}
		return c.StripePricePro
	case "premium":
		if yearly {
			return c.StripePricePremYear
		}
		return c.StripePricePremium
	}
	return ""
}
