package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"app/internal/model"

	"github.com/rs/zerolog"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFoldSummaryEmptyLog(t *testing.T) {
	summary := foldSummary(nil, time.Now())
	if summary.TotalImages != 0 || summary.TotalCost != 0 || summary.AverageCost != 0 {
		t.Errorf("empty log should produce zero summary: %+v", summary)
	}
	if len(summary.Breakdown) != 3 {
		t.Errorf("breakdown should cover all quality tiers, got %d", len(summary.Breakdown))
	}
}

func TestFoldSummaryAggregates(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	records := []model.UsageRecord{
		{Quality: model.QualityBasic, EstimatedCost: 0.003, CreatedAt: now.Add(-1 * time.Hour)},                  // today
		{Quality: model.QualityBasic, EstimatedCost: 0.003, CreatedAt: now.AddDate(0, 0, -2)},                    // this month
		{Quality: model.QualityPremium, EstimatedCost: 0.004, CreatedAt: now.AddDate(0, 0, -20)},                 // last month
		{Quality: model.QualityUltra, EstimatedCost: 0.006, CreatedAt: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)}, // midnight boundary, still today
	}
	summary := foldSummary(records, now)

	if summary.TotalImages != 4 {
		t.Errorf("total images = %d, want 4", summary.TotalImages)
	}
	if !almostEqual(summary.TotalCost, 0.016) {
		t.Errorf("total cost = %f, want 0.016", summary.TotalCost)
	}
	if !almostEqual(summary.AverageCost, 0.004) {
		t.Errorf("average cost = %f, want 0.004", summary.AverageCost)
	}
	if !almostEqual(summary.TodayCost, 0.009) {
		t.Errorf("today cost = %f, want 0.009", summary.TodayCost)
	}
	if !almostEqual(summary.ThisMonthCost, 0.012) {
		t.Errorf("this month cost = %f, want 0.012", summary.ThisMonthCost)
	}
	if b := summary.Breakdown[model.QualityBasic]; b.Count != 2 || !almostEqual(b.Cost, 0.006) {
		t.Errorf("basic bucket = %+v", b)
	}
	if b := summary.Breakdown[model.QualityUltra]; b.Count != 1 || !almostEqual(b.Cost, 0.006) {
		t.Errorf("ultra bucket = %+v", b)
	}
}

func TestRecordPersistsCostByQuality(t *testing.T) {
	repo := &fakeUsageRepo{}
	svc := NewTelemetryService(repo, nil, "", zerolog.Nop())

	svc.Record(context.Background(), model.QualityUltra, 4, 4<<20, "u1", "premium")

	if repo.count() != 1 {
		t.Fatalf("records = %d, want 1", repo.count())
	}
	rec := repo.records[0]
	if !almostEqual(rec.EstimatedCost, 0.006) {
		t.Errorf("estimated cost = %f, want 0.006", rec.EstimatedCost)
	}
	if !almostEqual(rec.FileSizeMB, 4.0) {
		t.Errorf("file size = %f MB, want 4", rec.FileSizeMB)
	}
}

func TestRecordSwallowsRepositoryErrors(t *testing.T) {
	repo := &fakeUsageRepo{insErr: errors.New("db down")}
	svc := NewTelemetryService(repo, nil, "", zerolog.Nop())

	// Must not panic or surface the error: recording never fails the caller.
	svc.Record(context.Background(), model.QualityBasic, 4, 1<<20, "u1", "basic")
}

func TestTrimRetainsRecordsAtCutoff(t *testing.T) {
	repo := &fakeUsageRepo{}
	svc := NewTelemetryService(repo, nil, "", zerolog.Nop())

	now := time.Now()
	repo.records = []model.UsageRecord{
		{UserID: "u1", CreatedAt: now.AddDate(0, 0, -91)},
		{UserID: "u1", CreatedAt: now.AddDate(0, 0, -89)},
		{UserID: "u1", CreatedAt: now},
	}

	deleted, err := svc.Trim(context.Background(), 90)
	if err != nil {
		t.Fatalf("Trim returned error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if repo.count() != 2 {
		t.Errorf("remaining = %d, want 2", repo.count())
	}

	wantCutoff := now.AddDate(0, 0, -90)
	if diff := repo.cutoff.Sub(wantCutoff); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %v, want about %v", repo.cutoff, wantCutoff)
	}
}

func TestSummarizeUsesUserLog(t *testing.T) {
	repo := &fakeUsageRepo{}
	svc := NewTelemetryService(repo, nil, "", zerolog.Nop())

	for i := 0; i < 5; i++ {
		svc.Record(context.Background(), model.QualityBasic, 4, 1<<20, "u1", "basic")
	}
	svc.Record(context.Background(), model.QualityBasic, 4, 1<<20, "other", "basic")

	summary, err := svc.Summarize(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if summary.TotalImages != 5 {
		t.Errorf("total images = %d, want 5", summary.TotalImages)
	}
	if !almostEqual(summary.TotalCost, 5*0.003) {
		t.Errorf("total cost = %f, want %f", summary.TotalCost, 5*0.003)
	}
}
