package replicate

import (
	"context"
	"testing"
	"time"

	"app/internal/model"
)

func TestSimulatorReplaysScript(t *testing.T) {
	sim := &Simulator{sleep: func(context.Context, time.Duration) error { return nil }}

	var progress []Progress
	result, err := sim.Enhance(context.Background(), "https://img.example.com/in.png", 4, model.QualityBasic, func(p Progress) {
		progress = append(progress, p)
	})
	if err != nil {
		t.Fatalf("Enhance returned error: %v", err)
	}
	if !result.Simulated {
		t.Error("simulator result not flagged as simulated")
	}
	if result.OutputURL != "https://img.example.com/in.png" {
		t.Errorf("simulator should echo the input URL, got %s", result.OutputURL)
	}

	if len(progress) != len(simStages)+1 {
		t.Fatalf("expected %d checkpoints, got %d", len(simStages)+1, len(progress))
	}
	for i := 1; i < len(progress); i++ {
		if progress[i].Percent < progress[i-1].Percent {
			t.Errorf("progress regressed at %d: %d -> %d", i, progress[i-1].Percent, progress[i].Percent)
		}
	}
	last := progress[len(progress)-1]
	if last.Status != "completed" || last.Percent != 100 {
		t.Errorf("unexpected final checkpoint: %+v", last)
	}
}

func TestSimulatorHonorsCancellation(t *testing.T) {
	sim := NewSimulator()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := sim.Enhance(ctx, "https://img.example.com/in.png", 4, model.QualityBasic, nil); err == nil {
		t.Fatal("expected error from canceled context")
	}
}

func TestPollPolicyDefaults(t *testing.T) {
	p := PollPolicy{}.normalized()
	if p.MaxAttempts != 300 {
		t.Errorf("default max attempts = %d, want 300", p.MaxAttempts)
	}
	if p.Interval != time.Second {
		t.Errorf("default interval = %v, want 1s", p.Interval)
	}
	if p.Sleep == nil {
		t.Error("default sleep func not set")
	}
}
