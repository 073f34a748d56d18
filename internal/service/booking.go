// Package service hosts the booking message channel the extension shell
// talks to, and the broker publisher that mirrors run status.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/irctc-booking-supporter/internal/flow"
	"github.com/iliyamo/irctc-booking-supporter/internal/model"
	"github.com/iliyamo/irctc-booking-supporter/internal/page"
	"github.com/iliyamo/irctc-booking-supporter/internal/status"
)

// Action names a control message.
type Action string

const (
	ActionStartBooking Action = "startBooking"
	ActionOpenIRCTC    Action = "openIRCTC"
)

// Request is one control message from the shell.  Config is only read for
// startBooking.
type Request struct {
	Action Action                `json:"action"`
	Config *model.BookingRequest `json:"config,omitempty"`
}

// Response acknowledges a message.  Success on startBooking means the run
// was accepted, not that the booking completed.
type Response struct {
	Success bool   `json:"success"`
	RunID   string `json:"runId,omitempty"`
	Error   string `json:"error,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Tabs hands out the live booking tab.  page.Browser satisfies it.
type Tabs interface {
	Tab(ctx context.Context) (page.Document, error)
}

// RunHistory persists run records.  Failures are logged and ignored.
type RunHistory interface {
	Create(ctx context.Context, rec model.RunRecord) error
	Finish(ctx context.Context, id string, state model.FlowState, errorKind, message string, at time.Time) error
}

const historySize = 50

type activeRun struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// Channel serialises booking runs against one browser tab.  A new
// startBooking cancels the run in flight and waits for it to stop before
// the next one begins.
type Channel struct {
	tabs     Tabs
	ctrl     *flow.Controller
	reporter status.Reporter
	store    RunHistory
	log      *zap.Logger
	newID    func() string

	startMu sync.Mutex // held across cancel-and-start

	mu      sync.Mutex
	active  *activeRun
	history []model.RunRecord // newest last
}

// ChannelOptions wires a Channel.  Reporter and History may be nil.
type ChannelOptions struct {
	Tabs       Tabs
	Controller *flow.Controller
	Reporter   status.Reporter
	History    RunHistory
	Logger     *zap.Logger
}

func NewChannel(opts ChannelOptions) *Channel {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Reporter == nil {
		opts.Reporter = status.Multi{}
	}
	return &Channel{
		tabs:     opts.Tabs,
		ctrl:     opts.Controller,
		reporter: opts.Reporter,
		store:    opts.History,
		log:      opts.Logger.Named("channel"),
		newID:    uuid.NewString,
	}
}

// Handle dispatches one control message.
func (c *Channel) Handle(ctx context.Context, req Request) Response {
	switch req.Action {
	case ActionStartBooking:
		if req.Config == nil {
			return Response{Success: false, Error: "config is required", Reason: string(flow.KindConfigValidation)}
		}
		return c.StartBooking(ctx, *req.Config)
	case ActionOpenIRCTC:
		return c.OpenIRCTC(ctx)
	default:
		return Response{Success: false, Error: "Unknown action"}
	}
}

// StartBooking validates cfg, stops any run in flight and starts a new one
// in the background.
func (c *Channel) StartBooking(ctx context.Context, cfg model.BookingRequest) Response {
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		var ve *model.ValidationError
		reason := ""
		if errors.As(err, &ve) {
			reason = string(ve.Reason)
		}
		c.reporter.Report(ctx, status.Update{
			State:     model.StateError,
			Level:     status.LevelError,
			ErrorKind: string(flow.KindConfigValidation),
			Message:   "Error: " + err.Error(),
			At:        time.Now(),
		})
		return Response{Success: false, Error: err.Error(), Reason: reason}
	}

	c.startMu.Lock()
	defer c.startMu.Unlock()

	if err := c.stopActive(ctx); err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	doc, err := c.tabs.Tab(ctx)
	if err != nil {
		c.log.Warn("no booking tab", zap.Error(err))
		return Response{Success: false, Error: "Make sure the IRCTC site is open: " + err.Error()}
	}

	run := &activeRun{id: c.newID(), done: make(chan struct{})}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	run.cancel = cancel

	rec := model.RunRecord{
		ID:         run.id,
		Mode:       cfg.Mode,
		Train:      cfg.Journey.TrainPreference,
		TravelDate: cfg.Journey.Date,
		State:      model.StateIdle,
		StartedAt:  time.Now().UTC(),
	}
	c.mu.Lock()
	c.active = run
	c.remember(rec)
	c.mu.Unlock()
	if c.store != nil {
		if err := c.store.Create(ctx, rec); err != nil {
			c.log.Warn("store run failed", zap.String("run_id", run.id), zap.Error(err))
		}
	}

	go c.run(runCtx, run, doc, cfg)
	return Response{Success: true, RunID: run.id}
}

func (c *Channel) run(ctx context.Context, run *activeRun, doc page.Document, cfg model.BookingRequest) {
	defer close(run.done)
	defer run.cancel()

	var last status.Snapshot
	sess, err := c.ctrl.Run(ctx, run.id, doc, cfg, status.Multi{c.reporter, &last, status.ReporterFunc(c.track)})

	u, _ := last.Last()
	kind := string(flow.KindOf(err))
	finished := time.Now().UTC()
	c.mu.Lock()
	c.update(run.id, func(r *model.RunRecord) {
		r.State = sess.State
		r.ErrorKind = kind
		r.Message = u.Message
		r.FinishedAt = &finished
	})
	if c.active == run {
		c.active = nil
	}
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Finish(context.WithoutCancel(ctx), run.id, sess.State, kind, u.Message, finished); err != nil {
			c.log.Warn("finish run failed", zap.String("run_id", run.id), zap.Error(err))
		}
	}
}

// track mirrors live progress into the in-memory history.
func (c *Channel) track(_ context.Context, u status.Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.update(u.RunID, func(r *model.RunRecord) {
		r.State = u.State
		r.Message = u.Message
	})
}

// stopActive cancels the run in flight and waits for it, bounded by ctx.
func (c *Channel) stopActive(ctx context.Context) error {
	c.mu.Lock()
	run := c.active
	c.mu.Unlock()
	if run == nil {
		return nil
	}
	c.log.Info("cancelling run in flight", zap.String("run_id", run.id))
	run.cancel()
	select {
	case <-run.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OpenIRCTC focuses an existing booking tab or opens the search page.
func (c *Channel) OpenIRCTC(ctx context.Context) Response {
	if _, err := c.tabs.Tab(ctx); err != nil {
		c.log.Warn("open booking site failed", zap.Error(err))
		return Response{Success: false, Error: err.Error()}
	}
	return Response{Success: true}
}

// Wait blocks until no run is in flight or ctx is done.
func (c *Channel) Wait(ctx context.Context) error {
	c.mu.Lock()
	run := c.active
	c.mu.Unlock()
	if run == nil {
		return nil
	}
	select {
	case <-run.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels the run in flight and waits for it to stop.
func (c *Channel) Close(ctx context.Context) error {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	return c.stopActive(ctx)
}

// Active returns the record of the run in flight.
func (c *Channel) Active() (model.RunRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return model.RunRecord{}, false
	}
	for i := len(c.history) - 1; i >= 0; i-- {
		if c.history[i].ID == c.active.id {
			return c.history[i], true
		}
	}
	return model.RunRecord{}, false
}

// Runs lists the recent runs of this process, newest first.
func (c *Channel) Runs() []model.RunRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.RunRecord, 0, len(c.history))
	for i := len(c.history) - 1; i >= 0; i-- {
		out = append(out, c.history[i])
	}
	return out
}

// Run returns one run of this process.
func (c *Channel) Run(id string) (model.RunRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.history {
		if r.ID == id {
			return r, true
		}
	}
	return model.RunRecord{}, false
}

// remember and update must be called with c.mu held.
func (c *Channel) remember(rec model.RunRecord) {
	c.history = append(c.history, rec)
	if len(c.history) > historySize {
		c.history = c.history[len(c.history)-historySize:]
	}
}

func (c *Channel) update(id string, fn func(*model.RunRecord)) {
	for i := len(c.history) - 1; i >= 0; i-- {
		if c.history[i].ID == id {
			fn(&c.history[i])
			return
		}
	}
}
