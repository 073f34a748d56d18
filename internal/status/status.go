// Package status carries human-readable progress out of a booking run.
package status

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/irctc-booking-supporter/internal/model"
)

// Level grades an update for presentation.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Update is one status line.
type Update struct {
	RunID     string          `json:"runId"`
	State     model.FlowState `json:"state"`
	Level     Level           `json:"level"`
	ErrorKind string          `json:"errorKind,omitempty"`
	Message   string          `json:"message"`
	At        time.Time       `json:"at"`
}

// Reporter receives updates.  Implementations must not block the run for
// long; a failing reporter never fails the booking.
type Reporter interface {
	Report(ctx context.Context, u Update)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, u Update)

func (f ReporterFunc) Report(ctx context.Context, u Update) { f(ctx, u) }

// Multi fans an update out to every reporter in order.
type Multi []Reporter

func (m Multi) Report(ctx context.Context, u Update) {
	for _, r := range m {
		if r != nil {
			r.Report(ctx, u)
		}
	}
}

// Log writes updates to a zap logger.
type Log struct {
	L *zap.Logger
}

func (r Log) Report(_ context.Context, u Update) {
	fields := []zap.Field{
		zap.String("run_id", u.RunID),
		zap.String("state", string(u.State)),
	}
	if u.ErrorKind != "" {
		fields = append(fields, zap.String("error_kind", u.ErrorKind))
	}
	switch u.Level {
	case LevelError:
		r.L.Warn(u.Message, fields...)
	default:
		r.L.Info(u.Message, fields...)
	}
}

// Snapshot keeps the latest update so it can be served to the shell.
type Snapshot struct {
	mu   sync.RWMutex
	last Update
	set  bool
}

func (s *Snapshot) Report(_ context.Context, u Update) {
	s.mu.Lock()
	s.last, s.set = u, true
	s.mu.Unlock()
}

// Last returns the most recent update and whether there has been one.
func (s *Snapshot) Last() (Update, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.set
}

// Recorder keeps every update; used by tests.
type Recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *Recorder) Report(_ context.Context, u Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
}

func (r *Recorder) Updates() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Update(nil), r.updates...)
}

// States lists the state of each update in order, collapsing repeats.
func (r *Recorder) States() []model.FlowState {
	var out []model.FlowState
	for _, u := range r.Updates() {
		if len(out) == 0 || out[len(out)-1] != u.State {
			out = append(out, u.State)
		}
	}
	return out
}

// Last returns the final update, or the zero Update.
func (r *Recorder) Last() Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return Update{}
	}
	return r.updates[len(r.updates)-1]
}
