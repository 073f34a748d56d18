// Package fill performs guarded, user-like input on page elements.
//
// The booking site's reactive forms only pick up a value when they see the
// input and change events a real keystroke would produce, and several
// widgets (autocomplete, calendars) react after a debounce, so every action
// is followed by a short settle delay on the injected clock.
package fill

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/irctc-booking-supporter/internal/page"
	"github.com/iliyamo/irctc-booking-supporter/internal/wait"
)

// ErrNoOption is returned by Select when no option matches.
var ErrNoOption = errors.New("fill: no matching option")

// Settle holds the pause after each kind of action.
type Settle struct {
	Click  time.Duration
	Fill   time.Duration
	Select time.Duration
}

// DefaultSettle matches the delays the site tolerates in practice.
func DefaultSettle() Settle {
	return Settle{
		Click:  100 * time.Millisecond,
		Fill:   200 * time.Millisecond,
		Select: 100 * time.Millisecond,
	}
}

type Filler struct {
	clock  wait.Clock
	settle Settle
}

func New(clock wait.Clock, settle Settle) *Filler {
	if clock == nil {
		clock = wait.RealClock{}
	}
	return &Filler{clock: clock, settle: settle}
}

// prepare scrolls el into view, settles and focuses it.
func (f *Filler) prepare(ctx context.Context, el page.Element) error {
	if err := el.ScrollIntoView(ctx); err != nil {
		return err
	}
	if err := f.clock.Sleep(ctx, f.settle.Click); err != nil {
		return err
	}
	return el.Focus(ctx)
}

// Click scrolls, settles, focuses and clicks el, then settles again.
func (f *Filler) Click(ctx context.Context, el page.Element) error {
	if err := f.prepare(ctx, el); err != nil {
		return fmt.Errorf("click %s: %w", el, err)
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("click %s: %w", el, err)
	}
	return f.clock.Sleep(ctx, f.settle.Click)
}

// Focus brings el into view and focuses it without clicking.
func (f *Filler) Focus(ctx context.Context, el page.Element) error {
	if err := f.prepare(ctx, el); err != nil {
		return fmt.Errorf("focus %s: %w", el, err)
	}
	return nil
}

// Fill replaces the value of a text or number input and fires input and
// change.  An empty value leaves the field untouched.
func (f *Filler) Fill(ctx context.Context, el page.Element, value string) error {
	if value == "" {
		return nil
	}
	if err := f.prepare(ctx, el); err != nil {
		return fmt.Errorf("fill %s: %w", el, err)
	}
	steps := []func() error{
		func() error { return el.SetValue(ctx, "") },
		func() error { return el.SetValue(ctx, value) },
		func() error { return el.Dispatch(ctx, "input") },
		func() error { return el.Dispatch(ctx, "change") },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("fill %s: %w", el, err)
		}
	}
	return f.clock.Sleep(ctx, f.settle.Fill)
}

// Select picks the first option whose value equals value or whose text
// contains it, and fires change.  It returns the chosen option.
func (f *Filler) Select(ctx context.Context, el page.Element, value string) (page.Option, error) {
	if value == "" {
		return page.Option{}, nil
	}
	opts, err := el.Options(ctx)
	if err != nil {
		return page.Option{}, fmt.Errorf("select %s: %w", el, err)
	}
	opt, ok := MatchOption(opts, value)
	if !ok {
		return page.Option{}, fmt.Errorf("select %s = %q: %w", el, value, ErrNoOption)
	}
	if err := f.prepare(ctx, el); err != nil {
		return opt, fmt.Errorf("select %s: %w", el, err)
	}
	if err := el.SetValue(ctx, opt.Value); err != nil {
		return opt, fmt.Errorf("select %s: %w", el, err)
	}
	if err := el.Dispatch(ctx, "change"); err != nil {
		return opt, fmt.Errorf("select %s: %w", el, err)
	}
	return opt, f.clock.Sleep(ctx, f.settle.Select)
}

// MatchOption applies the select matching rule: exact value, else text
// containment, first match wins.
func MatchOption(opts []page.Option, value string) (page.Option, bool) {
	for _, o := range opts {
		if o.Value == value || strings.Contains(o.Text, value) {
			return o, true
		}
	}
	return page.Option{}, false
}
