package dispatch

import (
	"context"
	"time"
)

// Pacer spaces sequential sends to stay under the transport's requests-per-
// second ceiling. A fixed delay follows every message; a longer pause is
// inserted after each full batch. Batches bound logging granularity only,
// there is no parallelism behind them.
type Pacer struct {
	delay      time.Duration
	batchSize  int
	batchPause time.Duration

	// sleep is injectable so tests run on a virtual clock.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a pacer with the given per-message delay, batch size and
// inter-batch pause.
func NewPacer(delay time.Duration, batchSize int, batchPause time.Duration) *Pacer {
	return &Pacer{
		delay:      delay,
		batchSize:  batchSize,
		batchPause: batchPause,
		sleep:      sleepCtx,
	}
}

// WithSleep replaces the sleep function. Test hook.
func (p *Pacer) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Pacer {
	p.sleep = fn
	return p
}

// Throttle blocks after the messageIndex-th send (zero-based). It applies
// the per-message delay unconditionally, plus the batch pause when the send
// closed out a batch. Returns early only if ctx is cancelled.
func (p *Pacer) Throttle(ctx context.Context, messageIndex int) error {
	if p.delay > 0 {
		if err := p.sleep(ctx, p.delay); err != nil {
			return err
		}
	}
	if p.batchSize > 0 && p.batchPause > 0 && (messageIndex+1)%p.batchSize == 0 {
		if err := p.sleep(ctx, p.batchPause); err != nil {
			return err
		}
	}
	return nil
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
