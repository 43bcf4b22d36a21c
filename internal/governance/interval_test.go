package governance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalLimiterSpacesSlots(t *testing.T) {
	clock := time.Unix(0, 0)
	var slept []time.Duration
	var mu sync.Mutex

	l := NewIntervalLimiter(100 * time.Millisecond)
	l.now = func() time.Time { return clock }
	l.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		slept = append(slept, d)
		mu.Unlock()
		return nil
	}

	ctx := context.Background()
	require.NoError(t, l.Wait(ctx), "first caller passes immediately")
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))

	// Clock never advanced, so the second and third callers reserve
	// slots one and two intervals out.
	require.Len(t, slept, 2)
	assert.Equal(t, 100*time.Millisecond, slept[0])
	assert.Equal(t, 200*time.Millisecond, slept[1])
}

func TestIntervalLimiterIdleResets(t *testing.T) {
	clock := time.Unix(0, 0)
	var slept []time.Duration

	l := NewIntervalLimiter(100 * time.Millisecond)
	l.now = func() time.Time { return clock }
	l.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	ctx := context.Background()
	require.NoError(t, l.Wait(ctx))

	// A caller arriving well after the last slot should not wait.
	clock = clock.Add(time.Second)
	require.NoError(t, l.Wait(ctx))
	assert.Empty(t, slept)
}

func TestIntervalLimiterZeroIntervalDisablesWaiting(t *testing.T) {
	l := NewIntervalLimiter(0)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Wait(ctx))
	}
}

func TestIntervalLimiterCancelledContext(t *testing.T) {
	l := NewIntervalLimiter(time.Hour)
	require.NoError(t, l.Wait(context.Background()), "first slot is free")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}

func TestIntervalLimiterRealClockGap(t *testing.T) {
	l := NewIntervalLimiter(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
}
