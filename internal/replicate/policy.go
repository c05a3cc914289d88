package replicate

import (
	"context"
	"time"
)

// SleepFunc waits for d or until ctx is done. Tests inject a fake.
type SleepFunc func(ctx context.Context, d time.Duration) error

// PollPolicy bounds the prediction status poll loop: a fixed interval between
// polls and a hard cap on attempts. The cap is what turns a stalled upstream
// job into ErrTimeout instead of an indefinite hang.
type PollPolicy struct {
	MaxAttempts int
	Interval    time.Duration
	Sleep       SleepFunc
}

// DefaultPollPolicy matches the upstream client: one-second interval, five
// minutes of attempts.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		MaxAttempts: 300,
		Interval:    time.Second,
		Sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// normalized fills zero-value fields so a partially configured policy still
// terminates.
func (p PollPolicy) normalized() PollPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 300
	}
	if p.Interval <= 0 {
		p.Interval = time.Second
	}
	if p.Sleep == nil {
		p.Sleep = sleepCtx
	}
	return p
}
