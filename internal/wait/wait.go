// Package wait is the single bounded-polling primitive used by the booking
// automation.  The target site renders asynchronously and offers nothing to
// subscribe to, so every "wait until X shows up" goes through For.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultMaxWait  = 45 * time.Second
	DefaultInterval = 100 * time.Millisecond
)

// ErrTimeout is returned when a wait exhausts its budget.
var ErrTimeout = errors.New("wait: timed out")

// Query is polled until it reports ok.  An error means "not yet": the page
// may be mid-navigation or re-rendering the element being inspected.
type Query[T any] func(ctx context.Context) (v T, ok bool, err error)

// Waiter holds the budget and cadence of a bounded wait.
type Waiter struct {
	Clock    Clock
	MaxWait  time.Duration
	Interval time.Duration
}

// New returns a Waiter; zero durations fall back to the defaults and a nil
// clock to the wall clock.
func New(clock Clock, maxWait, interval time.Duration) *Waiter {
	if clock == nil {
		clock = RealClock{}
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Waiter{Clock: clock, MaxWait: maxWait, Interval: interval}
}

// Within returns a copy of w with a different budget.
func (w *Waiter) Within(maxWait time.Duration) *Waiter {
	cp := *w
	if maxWait > 0 {
		cp.MaxWait = maxWait
	}
	return &cp
}

// Sleep pauses on the waiter's clock.
func (w *Waiter) Sleep(ctx context.Context, d time.Duration) error {
	return w.Clock.Sleep(ctx, d)
}

// TimeoutError carries the budget that was exhausted and the last error the
// query reported, if any.
type TimeoutError struct {
	After time.Duration
	Last  error
}

func (e *TimeoutError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("wait: timed out after %s (last error: %v)", e.After, e.Last)
	}
	return fmt.Sprintf("wait: timed out after %s", e.After)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

func (e *TimeoutError) Unwrap() error { return e.Last }

// For polls q every w.Interval until it reports ok or w.MaxWait has elapsed.
// With an instantaneous query a timeout is reported no earlier than MaxWait
// and no later than MaxWait plus one interval.
func For[T any](ctx context.Context, w *Waiter, q Query[T]) (T, error) {
	var zero T
	start := w.Clock.Now()
	var last error
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, ok, err := q(ctx)
		if err == nil && ok {
			return v, nil
		}
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return zero, cerr
			}
			last = err
		}
		if w.Clock.Now().Sub(start) >= w.MaxWait {
			return zero, &TimeoutError{After: w.MaxWait, Last: last}
		}
		if err := w.Clock.Sleep(ctx, w.Interval); err != nil {
			return zero, err
		}
	}
}

// Until is For for plain predicates.
func Until(ctx context.Context, w *Waiter, pred func(ctx context.Context) (bool, error)) error {
	_, err := For(ctx, w, func(ctx context.Context) (struct{}, bool, error) {
		ok, err := pred(ctx)
		return struct{}{}, ok, err
	})
	return err
}
