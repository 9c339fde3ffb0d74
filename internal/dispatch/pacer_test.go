package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSleep captures requested sleep durations instead of blocking.
func recordingSleep(slept *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
}

func TestPacerDelaysEveryMessage(t *testing.T) {
	var slept []time.Duration
	p := NewPacer(600*time.Millisecond, 50, 5*time.Second).WithSleep(recordingSleep(&slept))

	for i := 0; i < 10; i++ {
		require.NoError(t, p.Throttle(context.Background(), i))
	}

	require.Len(t, slept, 10)
	for _, d := range slept {
		assert.Equal(t, 600*time.Millisecond, d)
	}
}

func TestPacerPausesAfterFullBatch(t *testing.T) {
	var slept []time.Duration
	p := NewPacer(100*time.Millisecond, 3, 2*time.Second).WithSleep(recordingSleep(&slept))

	// Messages 0..6: batch pauses land after index 2 and index 5.
	for i := 0; i < 7; i++ {
		require.NoError(t, p.Throttle(context.Background(), i))
	}

	var pauses int
	var total time.Duration
	for _, d := range slept {
		total += d
		if d == 2*time.Second {
			pauses++
		}
	}
	assert.Equal(t, 2, pauses)
	// 7 message delays + 2 batch pauses, nothing else.
	assert.Equal(t, 7*100*time.Millisecond+2*2*time.Second, total)
}

func TestPacerZeroDelaySkipsSleep(t *testing.T) {
	var slept []time.Duration
	p := NewPacer(0, 0, 0).WithSleep(recordingSleep(&slept))

	require.NoError(t, p.Throttle(context.Background(), 0))
	assert.Empty(t, slept)
}

func TestPacerCancellation(t *testing.T) {
	p := NewPacer(time.Hour, 50, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Throttle(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPacerCancelledMidBatchPause(t *testing.T) {
	calls := 0
	p := NewPacer(time.Millisecond, 1, time.Hour).WithSleep(
		func(ctx context.Context, d time.Duration) error {
			calls++
			if d == time.Hour {
				return context.Canceled
			}
			return nil
		})

	err := p.Throttle(context.Background(), 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}
