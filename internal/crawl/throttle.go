package crawl

import (
	"context"
	"time"
)

// MinPageDelay is the hard floor on the pause between successive page
// fetches. This is fixed-rate throttling against the registry server, not
// adaptive backoff.
const MinPageDelay = 2 * time.Second

// pauser abstracts how the controller waits between page fetches.
type pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

type timerPauser struct{}

func (p *timerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
