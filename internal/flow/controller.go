// Package flow drives the booking site through search, train selection and
// passenger entry up to the manual verification step.
//
// A Controller is stateless between runs.  Every Run builds a fresh Session
// that carries the request, the current state and the facts discovered on
// the way (catering selects, whether a corrective navigation was spent), so
// nothing leaks from one booking into the next.
package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/irctc-booking-supporter/internal/config"
	"github.com/iliyamo/irctc-booking-supporter/internal/fill"
	"github.com/iliyamo/irctc-booking-supporter/internal/locate"
	"github.com/iliyamo/irctc-booking-supporter/internal/model"
	"github.com/iliyamo/irctc-booking-supporter/internal/observe"
	"github.com/iliyamo/irctc-booking-supporter/internal/page"
	"github.com/iliyamo/irctc-booking-supporter/internal/status"
	"github.com/iliyamo/irctc-booking-supporter/internal/wait"
)

// Options configures a Controller.  Zero values fall back to defaults.
type Options struct {
	Logger    *zap.Logger
	Clock     wait.Clock
	Timings   config.FlowTimings
	SearchURL string
}

type Controller struct {
	log       *zap.Logger
	clock     wait.Clock
	timings   config.FlowTimings
	searchURL string
	waiter    *wait.Waiter
	fill      *fill.Filler
}

func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = wait.RealClock{}
	}
	if opts.Timings == (config.FlowTimings{}) {
		opts.Timings = config.DefaultFlowTimings()
	}
	if opts.SearchURL == "" {
		opts.SearchURL = config.DefaultSiteURL
	}
	t := opts.Timings
	return &Controller{
		log:       opts.Logger,
		clock:     opts.Clock,
		timings:   t,
		searchURL: opts.SearchURL,
		waiter:    wait.New(opts.Clock, t.MaxWait, t.PollInterval),
		fill: fill.New(opts.Clock, fill.Settle{
			Click:  t.ClickSettle,
			Fill:   t.FillSettle,
			Select: t.SelectSettle,
		}),
	}
}

// Session is the explicit context of one run.
type Session struct {
	RunID       string
	Request     model.BookingRequest
	State       model.FlowState
	Transitions []model.FlowState

	doc      page.Document
	reporter status.Reporter
	log      *zap.Logger
	clock    wait.Clock
	travel   time.Time

	hasCatering bool
	corrected   bool
}

func (s *Session) enter(ctx context.Context, st model.FlowState, msg string) {
	if s.State != st {
		s.State = st
		s.Transitions = append(s.Transitions, st)
		s.log.Debug("state", zap.String("state", string(st)))
	}
	s.report(ctx, status.LevelInfo, "", msg)
}

func (s *Session) report(ctx context.Context, lvl status.Level, kind Kind, msg string) {
	if msg == "" {
		return
	}
	s.reporter.Report(context.WithoutCancel(ctx), status.Update{
		RunID:     s.RunID,
		State:     s.State,
		Level:     lvl,
		ErrorKind: string(kind),
		Message:   msg,
		At:        s.clock.Now(),
	})
}

// Run drives doc for req until the run hands over to the human or fails.
// The returned Session is never nil.  The error is nil only when the run
// reached the manual verification step.
func (c *Controller) Run(ctx context.Context, runID string, doc page.Document, req model.BookingRequest, rep status.Reporter) (*Session, error) {
	if rep == nil {
		rep = status.Multi{}
	}
	req = req.Normalized()
	s := &Session{
		RunID:       runID,
		Request:     req,
		State:       model.StateIdle,
		Transitions: []model.FlowState{model.StateIdle},
		doc:         doc,
		reporter:    rep,
		log:         c.log.With(zap.String("run_id", runID)),
		clock:       c.clock,
	}
	s.report(ctx, status.LevelInfo, "", fmt.Sprintf("Starting %s booking...", req.Mode.QuotaLabel()))

	if err := req.Validate(); err != nil {
		return s, c.fail(ctx, s, &Error{Kind: KindConfigValidation, Step: "validate", Message: err.Error(), Err: err})
	}
	s.travel, _ = model.ParseTravelDate(req.Journey.Date)

	err := c.dispatch(ctx, s)
	if err != nil {
		return s, c.fail(ctx, s, err)
	}
	return s, nil
}

func (c *Controller) dispatch(ctx context.Context, s *Session) error {
	if err := c.pageReady(ctx, s); err != nil {
		return err
	}
	next, err := observe.Classify(ctx, s.doc)
	for err == nil {
		s.log.Debug("page", zap.String("kind", string(next)))
		switch next {
		case model.PageBlocked:
			return &Error{Kind: KindAccessBlocked, Message: "IRCTC Access Blocked!"}
		case model.PageSearch:
			next, err = c.search(ctx, s)
		case model.PageList:
			next, err = c.selectTrain(ctx, s)
		case model.PagePassenger:
			next, err = c.fillPassengers(ctx, s)
		case model.PageReview:
			return c.handOff(ctx, s)
		default:
			next, err = c.correct(ctx, s)
		}
	}
	return err
}

// fail moves the session to Error and reports err as one status line.
func (c *Controller) fail(ctx context.Context, s *Session, err error) error {
	var fe *Error
	switch {
	case errors.As(err, &fe):
	case errors.Is(err, context.Canceled):
		fe = &Error{Message: "Booking cancelled.", Err: err}
	case errors.Is(err, page.ErrStale):
		fe = &Error{Kind: KindElementNotFound, Message: "A page element disappeared while it was being used.", Err: err}
	default:
		fe = &Error{Message: err.Error(), Err: err}
	}
	if fe.Step == "" {
		fe.Step = string(s.State)
	}
	s.State = model.StateError
	s.Transitions = append(s.Transitions, model.StateError)
	s.log.Warn("run failed",
		zap.String("kind", string(fe.Kind)),
		zap.String("field", fe.Field),
		zap.Error(err),
	)
	msg := fe.Message
	if msg == "" {
		msg = fe.Error()
	}
	s.report(ctx, status.LevelError, fe.Kind, "Error: "+msg)
	return fe
}

// pageReady waits for the document to finish loading, then lets the
// site's client-side rendering settle.
func (c *Controller) pageReady(ctx context.Context, s *Session) error {
	err := wait.Until(ctx, c.waiter, func(ctx context.Context) (bool, error) {
		st, err := s.doc.ReadyState(ctx)
		return st == "complete", err
	})
	if errors.Is(err, wait.ErrTimeout) {
		return timedOut("ready", "", "Page did not finish loading.", err)
	}
	if err != nil {
		return err
	}
	return c.clock.Sleep(ctx, c.timings.PageSettle)
}

// correct spends the run's single corrective navigation to the search page.
func (c *Controller) correct(ctx context.Context, s *Session) (model.PageKind, error) {
	url, _ := s.doc.URL(ctx)
	if s.corrected {
		return "", &Error{Kind: KindUnexpectedPage, Message: fmt.Sprintf("Unexpected page %s. Please navigate to the IRCTC search page.", url)}
	}
	s.corrected = true
	s.report(ctx, status.LevelInfo, "", "Navigating to search page...")
	if err := s.doc.Navigate(ctx, c.searchURL); err != nil {
		return "", &Error{Kind: KindUnexpectedPage, Message: "Could not open the search page.", Err: err}
	}
	kind, err := c.awaitPage(ctx, s, func(k model.PageKind) bool { return k == model.PageSearch })
	if errors.Is(err, wait.ErrTimeout) {
		return "", &Error{Kind: KindUnexpectedPage, Message: "The search page did not appear.", Err: err}
	}
	if err != nil {
		return "", err
	}
	if kind == model.PageBlocked {
		return kind, nil
	}
	return kind, c.pageReady(ctx, s)
}

// awaitPage polls the page kind until accept is satisfied or the page turns
// out blocked.
func (c *Controller) awaitPage(ctx context.Context, s *Session, accept func(model.PageKind) bool) (model.PageKind, error) {
	return wait.For(ctx, c.waiter, func(ctx context.Context) (model.PageKind, bool, error) {
		k, err := observe.Classify(ctx, s.doc)
		if err != nil {
			return "", false, err
		}
		return k, k == model.PageBlocked || accept(k), nil
	})
}

// mustFind resolves a mandatory control.
func (c *Controller) mustFind(ctx context.Context, sc page.Scope, step, field string, st locate.Strategy) (page.Element, error) {
	el, err := locate.Find(ctx, sc, st)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, notFound(step, field, fmt.Sprintf("Could not find the %s control.", field))
	}
	return el, nil
}
