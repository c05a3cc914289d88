package config

import "testing"

func TestLoadWithRequiredEnv(t *testing.T) {
	t.Setenv("DB_CONNECTION_STRING", "postgres://localhost:5432/app")
	t.Setenv("SUPABASE_JWT_SECRET", "jwt-secret")
	t.Setenv("SUPABASE_S3_URL", "http://localhost:54321/storage/v1/s3")
	t.Setenv("SUPABASE_S3_REGION", "us-east-1")
	t.Setenv("SUPABASE_S3_ACCESS_KEY", "access")
	t.Setenv("SUPABASE_S3_SECRET_KEY", "secret")
	t.Setenv("SUPABASE_S3_BUCKET", "uploads")
	t.Setenv("REPLICATE_MAX_POLLS", "300")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.DBConnectionString != "postgres://localhost:5432/app" {
		t.Errorf("DBConnectionString = %q", cfg.DBConnectionString)
	}
	if cfg.S3Bucket != "uploads" {
		t.Errorf("S3Bucket = %q, want uploads", cfg.S3Bucket)
	}
	if cfg.ReplicateMaxPolls != 300 {
		t.Errorf("ReplicateMaxPolls = %d, want 300", cfg.ReplicateMaxPolls)
	}
}

func TestPlanPriceMappingRoundTrips(t *testing.T) {
	cfg := &Config{
		StripePriceBasic:     "price_basic_m",
		StripePriceBasicYear: "price_basic_y",
		StripePricePro:       "price_pro_m",
		StripePriceProYear:   "price_pro_y",
		StripePricePremium:   "price_prem_m",
		StripePricePremYear:  "price_prem_y",
	}

	cases := []struct {
		plan, cycle, price string
	}{
		{"basic", "monthly", "price_basic_m"},
		{"basic", "yearly", "price_basic_y"},
		{"pro", "monthly", "price_pro_m"},
		{"pro", "yearly", "price_pro_y"},
		{"premium", "monthly", "price_prem_m"},
		{"premium", "yearly", "price_prem_y"},
	}
	for _, tc := range cases {
		if got := cfg.PriceForPlan(tc.plan, tc.cycle); got != tc.price {
			t.Errorf("PriceForPlan(%s, %s) = %q, want %q", tc.plan, tc.cycle, got, tc.price)
		}
		if got := cfg.PlanForPrice(tc.price); got != tc.plan {
			t.Errorf("PlanForPrice(%s) = %q, want %q", tc.price, got, tc.plan)
		}
	}

	if got := cfg.PlanForPrice("price_unknown"); got != "" {
		t.Errorf("PlanForPrice(unknown) = %q, want empty", got)
	}
	if got := cfg.PriceForPlan("enterprise", "monthly"); got != "" {
		t.Errorf("PriceForPlan(unknown plan) = %q, want empty", got)
	}
}
