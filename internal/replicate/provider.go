// Package replicate talks to the hosted image-enhancement API, with a
// deterministic local simulator for environments without credentials.
package replicate

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"
)

// ErrTimeout is returned when a prediction never reaches a terminal state
// within the poll policy's attempt budget.
var ErrTimeout = errors.New("enhancement_timeout")

// ProviderError wraps an upstream failure message so it can be surfaced to
// the user verbatim.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("prediction failed: %s", e.Message)
}

// Progress is one caller-visible checkpoint during an enhancement call.
type Progress struct {
	Status  string `json:"status"`
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`
}

// Result is the terminal output of a provider call.
type Result struct {
	OutputURL string
	Simulated bool
}

// ProgressFunc receives progress checkpoints. Implementations must tolerate
// being called after the caller has abandoned the request.
type ProgressFunc func(Progress)

// Provider runs one enhancement call against an inference backend. The
// variant (real or simulated) is chosen once at construction, not per call.
type Provider interface {
	Enhance(ctx context.Context, imageURL string, scale int, quality model.Quality, onProgress ProgressFunc) (*Result, error)
}
