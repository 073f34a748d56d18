package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/irctc-booking-supporter/internal/locate"
	"github.com/iliyamo/irctc-booking-supporter/internal/model"
	"github.com/iliyamo/irctc-booking-supporter/internal/observe"
	"github.com/iliyamo/irctc-booking-supporter/internal/page"
	"github.com/iliyamo/irctc-booking-supporter/internal/status"
	"github.com/iliyamo/irctc-booking-supporter/internal/wait"
)

const stepSearch = "search"

// search fills and submits the search form, then waits for the result list.
func (c *Controller) search(ctx context.Context, s *Session) (model.PageKind, error) {
	signedIn, err := observe.IsAuthenticated(ctx, s.doc)
	if err != nil {
		return "", err
	}
	if !signedIn {
		return "", &Error{
			Kind:    KindAuthenticationRequired,
			Step:    stepSearch,
			Message: `Please log in to IRCTC first! Login, then click "Start Smart Booking".`,
		}
	}

	j := s.Request.Journey
	s.enter(ctx, model.StateSearching, "Filling search form...")

	if err := c.station(ctx, s, "origin", selOrigin, j.From); err != nil {
		return "", err
	}
	if err := c.station(ctx, s, "destination", selDestination, j.To); err != nil {
		return "", err
	}
	if err := c.pickDate(ctx, s); err != nil {
		return "", err
	}
	if err := c.pickQuota(ctx, s); err != nil {
		return "", err
	}

	submit, err := c.mustFind(ctx, s.doc, stepSearch, "search", locate.CSS(selSearchSubmit))
	if err != nil {
		return "", err
	}
	s.report(ctx, status.LevelInfo, "", "Searching trains...")
	if err := c.fill.Click(ctx, submit); err != nil {
		return "", err
	}
	return c.awaitResults(ctx, s)
}

// station fills a station input and confirms the highlighted autocomplete
// suggestion if one shows up in time.
func (c *Controller) station(ctx context.Context, s *Session, field, sel, code string) error {
	in, err := c.mustFind(ctx, s.doc, stepSearch, field, locate.CSS(sel))
	if err != nil {
		return err
	}
	if err := c.fill.Fill(ctx, in, code); err != nil {
		return err
	}
	if c.timings.SuggestionWait <= 0 {
		sugg, err := page.First(ctx, s.doc, selSuggestion)
		if err != nil || sugg == nil {
			return err
		}
		return c.fill.Click(ctx, sugg)
	}
	sugg, err := wait.For(ctx, c.waiter.Within(c.timings.SuggestionWait), func(ctx context.Context) (page.Element, bool, error) {
		el, err := page.First(ctx, s.doc, selSuggestion)
		return el, el != nil, err
	})
	if errors.Is(err, wait.ErrTimeout) {
		s.log.Debug("no autocomplete suggestion", zap.String("field", field))
		return nil
	}
	if err != nil {
		return err
	}
	return c.fill.Click(ctx, sugg)
}

// pickDate opens the date picker, pages forward to the travel month and
// clicks the day.
func (c *Controller) pickDate(ctx context.Context, s *Session) error {
	in, err := c.mustFind(ctx, s.doc, stepSearch, "date", locate.CSS(selDateInput))
	if err != nil {
		return err
	}
	if err := c.fill.Click(ctx, in); err != nil {
		return err
	}
	if err := c.clock.Sleep(ctx, c.timings.StepSettle); err != nil {
		return err
	}

	target := s.travel
	for step := 0; ; step++ {
		monthEl, err := c.mustFind(ctx, s.doc, stepSearch, "calendar", locate.CSS(selCalendarMonth))
		if err != nil {
			return err
		}
		monthText, err := monthEl.Text(ctx)
		if err != nil {
			return err
		}
		yearText := ""
		if yearEl, err := page.First(ctx, s.doc, selCalendarYear); err != nil {
			return err
		} else if yearEl != nil {
			if yearText, err = yearEl.Text(ctx); err != nil {
				return err
			}
		}
		month, year, err := calendarMonth(monthText, yearText, c.clock.Now().Year())
		if err != nil {
			return notFound(stepSearch, "calendar", err.Error())
		}
		if month == target.Month() && year == target.Year() {
			break
		}
		if step == maxMonthSteps {
			return notFound(stepSearch, "date", fmt.Sprintf("Travel date %s is beyond the booking calendar.", s.Request.Journey.Date))
		}
		next, err := page.First(ctx, s.doc, selCalendarNext)
		if err != nil {
			return err
		}
		if next == nil {
			return notFound(stepSearch, "date", fmt.Sprintf("Could not move the calendar to %s %d.", target.Month(), target.Year()))
		}
		if err := c.fill.Click(ctx, next); err != nil {
			return err
		}
		if err := c.clock.Sleep(ctx, c.timings.FillSettle); err != nil {
			return err
		}
	}

	day := fmt.Sprint(target.Day())
	cells, err := s.doc.QueryAll(ctx, selCalendarDays)
	if err != nil {
		return err
	}
	for _, cell := range cells {
		text, err := cell.Text(ctx)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == day {
			return c.fill.Click(ctx, cell)
		}
	}
	return notFound(stepSearch, "date", fmt.Sprintf("Day %s is not selectable in the calendar.", day))
}

func (c *Controller) pickQuota(ctx context.Context, s *Session) error {
	dd, err := c.mustFind(ctx, s.doc, stepSearch, "quota", locate.CSS(selQuotaDropdown))
	if err != nil {
		return err
	}
	if err := c.fill.Click(ctx, dd); err != nil {
		return err
	}
	if err := c.clock.Sleep(ctx, c.timings.StepSettle); err != nil {
		return err
	}
	label := s.Request.Mode.QuotaLabel()
	opt, err := locate.Find(ctx, s.doc, locate.Text(selQuotaOption, label))
	if err != nil {
		return err
	}
	if opt == nil {
		return notFound(stepSearch, "quota", fmt.Sprintf("Quota %s is not offered.", label))
	}
	return c.fill.Click(ctx, opt)
}

type searchOutcome int

const (
	outcomeList searchOutcome = iota + 1
	outcomeNoTrains
	outcomeBlocked
)

func (c *Controller) awaitResults(ctx context.Context, s *Session) (model.PageKind, error) {
	s.report(ctx, status.LevelInfo, "", "Waiting for train list page...")
	out, err := wait.For(ctx, c.waiter, func(ctx context.Context) (searchOutcome, bool, error) {
		kind, err := observe.Classify(ctx, s.doc)
		if err != nil {
			return 0, false, err
		}
		switch kind {
		case model.PageList:
			return outcomeList, true, nil
		case model.PageBlocked:
			return outcomeBlocked, true, nil
		}
		body, err := s.doc.BodyText(ctx)
		if err != nil {
			return 0, false, err
		}
		if strings.Contains(body, textNoTrains) {
			return outcomeNoTrains, true, nil
		}
		return 0, false, nil
	})
	if errors.Is(err, wait.ErrTimeout) {
		return "", timedOut(stepSearch, "", "Search timeout. Please check manually.", err)
	}
	if err != nil {
		return "", err
	}
	switch out {
	case outcomeNoTrains:
		return "", &Error{Kind: KindNoTrains, Step: stepSearch, Message: "No trains found for this route."}
	case outcomeBlocked:
		return model.PageBlocked, nil
	}
	return model.PageList, c.clock.Sleep(ctx, c.timings.StepSettle)
}
