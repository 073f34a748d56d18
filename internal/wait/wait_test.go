package wait

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)

func TestForReturnsWithinOneIntervalOfReadiness(t *testing.T) {
	clock := NewFakeClock(epoch)
	w := New(clock, 45*time.Second, 100*time.Millisecond)
	readyAt := epoch.Add(1234 * time.Millisecond)

	got, err := For(context.Background(), w, func(ctx context.Context) (string, bool, error) {
		if clock.Now().Before(readyAt) {
			return "", false, nil
		}
		return "book-now", true, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "book-now", got)
	returnedAt := clock.Now()
	assert.False(t, returnedAt.Before(readyAt))
	assert.LessOrEqual(t, returnedAt.Sub(readyAt), w.Interval)
}

func TestForTimesOutWithinBudgetPlusOneInterval(t *testing.T) {
	for _, tc := range []struct {
		name     string
		maxWait  time.Duration
		interval time.Duration
	}{
		{"defaults", DefaultMaxWait, DefaultInterval},
		{"uneven", 1050 * time.Millisecond, 100 * time.Millisecond},
		{"interval longer than budget", 50 * time.Millisecond, 200 * time.Millisecond},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clock := NewFakeClock(epoch)
			w := New(clock, tc.maxWait, tc.interval)
			calls := 0

			_, err := For(context.Background(), w, func(ctx context.Context) (int, bool, error) {
				calls++
				return 0, false, nil
			})

			require.ErrorIs(t, err, ErrTimeout)
			elapsed := clock.Now().Sub(epoch)
			assert.GreaterOrEqual(t, elapsed, tc.maxWait)
			assert.LessOrEqual(t, elapsed, tc.maxWait+tc.interval)
			assert.Greater(t, calls, 0)
		})
	}
}

func TestForTreatsQueryErrorsAsNotYet(t *testing.T) {
	clock := NewFakeClock(epoch)
	w := New(clock, time.Second, 100*time.Millisecond)
	stale := errors.New("node detached")
	calls := 0

	v, err := For(context.Background(), w, func(ctx context.Context) (int, bool, error) {
		calls++
		if calls < 3 {
			return 0, false, stale
		}
		return 7, true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = For(context.Background(), w, func(ctx context.Context) (int, bool, error) {
		return 0, false, stale
	})
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, stale)
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, time.Second, te.After)
}

func TestForStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := New(NewFakeClock(epoch), time.Minute, 100*time.Millisecond)
	calls := 0

	err := Until(ctx, w, func(ctx context.Context) (bool, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return false, nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}

func TestNewAppliesDefaults(t *testing.T) {
	w := New(nil, 0, 0)
	assert.Equal(t, DefaultMaxWait, w.MaxWait)
	assert.Equal(t, DefaultInterval, w.Interval)
	assert.IsType(t, RealClock{}, w.Clock)

	short := w.Within(3 * time.Second)
	assert.Equal(t, 3*time.Second, short.MaxWait)
	assert.Equal(t, DefaultMaxWait, w.MaxWait)
}

func TestRealClockSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RealClock{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
