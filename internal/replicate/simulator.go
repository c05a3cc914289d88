package replicate

import (
	"context"
	"time"

	"app/internal/model"
)

// simStage is one step of the canned progress script.
type simStage struct {
	status  string
	percent int
	message string
	delay   time.Duration
}

var simStages = []simStage{
	{"starting", 0, "Initializing AI model...", 1000 * time.Millisecond},
	{"processing", 25, "Analyzing image structure...", 1500 * time.Millisecond},
	{"processing", 50, "Enhancing details...", 2000 * time.Millisecond},
	{"processing", 75, "Applying AI upscaling...", 1500 * time.Millisecond},
	{"processing", 90, "Finalizing enhancement...", 1000 * time.Millisecond},
}

// Simulator is the named fallback provider used when no API token is
// configured. It replays a fixed progress script and returns the original
// image as the "enhanced" result, flagged Simulated so callers can tell the
// two apart.
type Simulator struct {
	sleep SleepFunc
}

// NewSimulator creates the simulation provider.
func NewSimulator() *Simulator {
	return &Simulator{sleep: sleepCtx}
}

// Enhance replays staged progress ending at 100 and echoes the input URL.
func (s *Simulator) Enhance(ctx context.Context, imageURL string, scale int, quality model.Quality, onProgress ProgressFunc) (*Result, error) {
	if onProgress == nil {
		onProgress = func(Progress) {}
	}
	for _, stage := range simStages {
		onProgress(Progress{Status: stage.status, Percent: stage.percent, Message: stage.message})
		if err := s.sleep(ctx, stage.delay); err != nil {
			return nil, err
		}
	}
	onProgress(Progress{Status: "completed", Percent: 100, Message: "Enhancement completed!"})
	return &Result{OutputURL: imageURL, Simulated: true}, nil
}
