package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/irctc-booking-supporter/internal/locate"
	"github.com/iliyamo/irctc-booking-supporter/internal/model"
	"github.com/iliyamo/irctc-booking-supporter/internal/observe"
	"github.com/iliyamo/irctc-booking-supporter/internal/page"
	"github.com/iliyamo/irctc-booking-supporter/internal/status"
	"github.com/iliyamo/irctc-booking-supporter/internal/wait"
)

const stepTrain = "train"

// selectTrain picks the train, class and date on the result list and
// proceeds to the passenger form.
func (c *Controller) selectTrain(ctx context.Context, s *Session) (model.PageKind, error) {
	j := s.Request.Journey
	s.enter(ctx, model.StateSelectingTrain, fmt.Sprintf("Looking for train: %s...", j.TrainPreference))

	// the list renders its rows after the URL changes
	_, err := wait.For(ctx, c.waiter, func(ctx context.Context) (page.Element, bool, error) {
		el, err := page.First(ctx, s.doc, selTrainContainers)
		return el, el != nil, err
	})
	if errors.Is(err, wait.ErrTimeout) {
		return "", timedOut(stepTrain, "train", "Train list did not load. Please check manually.", err)
	}
	if err != nil {
		return "", err
	}

	train, err := locate.Find(ctx, s.doc, locate.Text(selTrainContainers, j.TrainPreference))
	if err != nil {
		return "", err
	}
	if train == nil {
		return "", notFound(stepTrain, "train", fmt.Sprintf("Train %q not found on this page. Please check manually.", j.TrainPreference))
	}
	s.report(ctx, status.LevelInfo, "", "Found requested train. Selecting class and date...")

	if err := c.pickClass(ctx, s, train); err != nil {
		return "", err
	}

	label := AvailabilityLabel(s.travel)
	cell, err := wait.For(ctx, c.waiter, func(ctx context.Context) (page.Element, bool, error) {
		el, err := availableDate(ctx, train, label)
		return el, el != nil, err
	})
	if errors.Is(err, wait.ErrTimeout) {
		return "", timedOut(stepTrain, "date", fmt.Sprintf("Train not available on %s. Please check other dates.", label), err)
	}
	if err != nil {
		return "", err
	}
	if err := c.fill.Click(ctx, cell); err != nil {
		return "", err
	}

	book, err := wait.For(ctx, c.waiter, func(ctx context.Context) (page.Element, bool, error) {
		el, err := locate.Find(ctx, train, locate.Visible{Of: locate.CSS(selBookNow)})
		return el, el != nil, err
	})
	if errors.Is(err, wait.ErrTimeout) {
		return "", timedOut(stepTrain, "bookNow", "Book Now button not found after 45 seconds. Please check manually.", err)
	}
	if err != nil {
		return "", err
	}
	if err := c.fill.Click(ctx, book); err != nil {
		return "", err
	}
	return c.awaitPassengerPage(ctx, s)
}

// pickClass resolves the class tab's position among the class labels and
// clicks the cell at that position in the availability row.
func (c *Controller) pickClass(ctx context.Context, s *Session, train page.Element) error {
	class := s.Request.Journey.Class
	st := locate.Positional{
		Labels: locate.Within{Outer: locate.CSS(selClassContainer), Inner: locate.CSS(selClassLabels)},
		Match:  class,
		Target: locate.NthChild(selClassCell),
	}
	pos, err := st.Position(ctx, train)
	if err != nil {
		return err
	}
	if pos == 0 {
		return notFound(stepTrain, "class", fmt.Sprintf("Class %q not found for this train.", class))
	}
	cell, err := locate.Find(ctx, train, st.Target(pos))
	if err != nil {
		return err
	}
	if cell == nil {
		return notFound(stepTrain, "class", fmt.Sprintf("Class element %q not found at position %d.", class, pos))
	}
	return c.fill.Click(ctx, cell)
}

// availableDate finds the date cell carrying label whose availability marker
// reads AVAILABLE.
func availableDate(ctx context.Context, train page.Element, label string) (page.Element, error) {
	cells, err := locate.FindAll(ctx, train, locate.Text(selDateCells, label))
	if err != nil {
		return nil, err
	}
	for _, cell := range cells {
		marker, err := page.First(ctx, cell, selAvailability)
		if err != nil {
			return nil, err
		}
		if marker == nil {
			continue
		}
		text, err := marker.Text(ctx)
		if err != nil {
			return nil, err
		}
		if strings.Contains(text, textAvailable) {
			return cell, nil
		}
	}
	return nil, nil
}

func (c *Controller) awaitPassengerPage(ctx context.Context, s *Session) (model.PageKind, error) {
	s.report(ctx, status.LevelInfo, "", "Waiting for passenger page...")
	kind, err := wait.For(ctx, c.waiter, func(ctx context.Context) (model.PageKind, bool, error) {
		blocked, err := observe.IsAccessBlocked(ctx, s.doc)
		if err != nil || blocked {
			return model.PageBlocked, blocked, err
		}
		ok, err := observe.OnPassengerPage(ctx, s.doc)
		return model.PagePassenger, ok, err
	})
	if errors.Is(err, wait.ErrTimeout) {
		return "", timedOut(stepTrain, "", "Passenger page timeout.", err)
	}
	if err != nil || kind == model.PageBlocked {
		return kind, err
	}
	return kind, c.clock.Sleep(ctx, c.timings.StepSettle)
}
