package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/iliyamo/irctc-booking-supporter/internal/fill"
	"github.com/iliyamo/irctc-booking-supporter/internal/locate"
	"github.com/iliyamo/irctc-booking-supporter/internal/model"
	"github.com/iliyamo/irctc-booking-supporter/internal/page"
	"github.com/iliyamo/irctc-booking-supporter/internal/status"
	"github.com/iliyamo/irctc-booking-supporter/internal/wait"
)

const stepPassengers = "passengers"

// fillPassengers fills every passenger block, the mobile number and the
// payment choice, then submits and waits for the review page.
func (c *Controller) fillPassengers(ctx context.Context, s *Session) (model.PageKind, error) {
	s.enter(ctx, model.StateFillingPassengers, "Filling passenger details...")
	if err := c.clock.Sleep(ctx, c.timings.PageSettle); err != nil {
		return "", err
	}

	for i, p := range s.Request.Passengers {
		if i > 0 {
			add, err := c.mustFind(ctx, s.doc, stepPassengers, "addPassenger", locate.Text("span", textAddPassenger))
			if err != nil {
				return "", err
			}
			if err := c.fill.Click(ctx, add); err != nil {
				return "", err
			}
			if err := c.clock.Sleep(ctx, c.timings.StepSettle); err != nil {
				return "", err
			}
		}
		if err := c.passenger(ctx, s, i, p); err != nil {
			return "", err
		}
	}

	mobile, err := c.mustFind(ctx, s.doc, stepPassengers, "mobile", locate.CSS(selMobile))
	if err != nil {
		return "", err
	}
	if err := c.fill.Fill(ctx, mobile, s.Request.Contact.Mobile); err != nil {
		return "", err
	}

	if err := c.pickPayment(ctx, s); err != nil {
		return "", err
	}

	cont, err := c.mustFind(ctx, s.doc, stepPassengers, "continue", locate.CSS(selContinue))
	if err != nil {
		return "", err
	}
	s.report(ctx, status.LevelInfo, "", "Proceeding to captcha...")
	if err := c.fill.Click(ctx, cont); err != nil {
		return "", err
	}
	return c.awaitReview(ctx, s)
}

// passenger fills block i.  Name, age and gender are mandatory; country,
// berth and catering are best effort.
func (c *Controller) passenger(ctx context.Context, s *Session, i int, p model.Passenger) error {
	field := func(name string) string { return fmt.Sprintf("passenger[%d].%s", i+1, name) }

	name, err := c.mustFind(ctx, s.doc, stepPassengers, field("name"), locate.Nth{Of: locate.CSS(selPassengerName), Index: i})
	if err != nil {
		return err
	}
	if err := c.fill.Fill(ctx, name, p.Name); err != nil {
		return err
	}
	age, err := c.mustFind(ctx, s.doc, stepPassengers, field("age"), locate.Nth{Of: locate.CSS(selPassengerAge), Index: i})
	if err != nil {
		return err
	}
	if err := c.fill.Fill(ctx, age, strconv.Itoa(p.Age)); err != nil {
		return err
	}

	selects, err := s.doc.QueryAll(ctx, selSelects)
	if err != nil {
		return err
	}
	if i == 0 {
		// The catering select only exists on routes with catering, and
		// when it does every block carries one.
		s.hasCatering = len(selects) >= 4
	}
	per := 3
	if s.hasCatering {
		per = 4
	}
	base := per * i
	at := func(k int) page.Element {
		if base+k < len(selects) {
			return selects[base+k]
		}
		return nil
	}

	gender := at(0)
	if gender == nil {
		return notFound(stepPassengers, field("gender"), fmt.Sprintf("Could not find the gender control for Passenger %d.", i+1))
	}
	if _, err := c.fill.Select(ctx, gender, p.Gender); err != nil {
		if errors.Is(err, fill.ErrNoOption) {
			return notFound(stepPassengers, field("gender"), fmt.Sprintf("Gender %q is not offered for Passenger %d.", p.Gender, i+1))
		}
		return err
	}

	type choice struct {
		name  string
		el    page.Element
		value string
	}
	optional := []choice{
		{"country", at(1), p.CountryOrDefault()},
		{"berth", at(2), p.BerthOrDefault()},
	}
	if s.hasCatering {
		optional = append(optional, choice{"catering", at(3), p.CateringOrDefault()})
	}
	for _, o := range optional {
		if o.el == nil {
			s.log.Warn("optional passenger control missing", zap.String("field", field(o.name)))
			continue
		}
		if _, err := c.fill.Select(ctx, o.el, o.value); err != nil {
			if !errors.Is(err, fill.ErrNoOption) {
				return err
			}
			s.log.Warn("option not offered", zap.String("field", field(o.name)), zap.String("value", o.value))
		}
	}
	return nil
}

// pickPayment ticks the radio inside the label of the requested payment
// family.  A missing option is logged and left to the human.
func (c *Controller) pickPayment(ctx context.Context, s *Session) error {
	if err := c.clock.Sleep(ctx, c.timings.StepSettle); err != nil {
		return err
	}
	mode := s.Request.Journey.PaymentMode
	lbl, err := locate.Find(ctx, s.doc, locate.Text(selPaymentLabel, mode.LabelHints()...))
	if err != nil {
		return err
	}
	if lbl == nil {
		s.log.Warn("payment option not found", zap.String("payment", string(mode)))
		return nil
	}
	radio, err := page.First(ctx, lbl, selRadio)
	if err != nil {
		return err
	}
	if radio == nil {
		s.log.Warn("payment radio not found", zap.String("payment", string(mode)))
		return nil
	}
	return c.fill.Click(ctx, radio)
}

func (c *Controller) awaitReview(ctx context.Context, s *Session) (model.PageKind, error) {
	s.report(ctx, status.LevelInfo, "", "Waiting for captcha page...")
	kind, err := c.awaitPage(ctx, s, func(k model.PageKind) bool { return k == model.PageReview })
	if errors.Is(err, wait.ErrTimeout) {
		return "", timedOut(stepPassengers, "", "Captcha page timeout - please check manually.", err)
	}
	if err != nil || kind == model.PageBlocked {
		return kind, err
	}
	return kind, c.clock.Sleep(ctx, c.timings.StepSettle)
}

// handOff focuses the captcha input and gives control back to the human.
func (c *Controller) handOff(ctx context.Context, s *Session) error {
	s.enter(ctx, model.StateAwaitingManualStep, "")
	captcha, err := page.First(ctx, s.doc, selCaptcha)
	if err != nil {
		return err
	}
	if captcha != nil {
		if err := c.fill.Click(ctx, captcha); err != nil {
			return err
		}
	}
	s.report(ctx, status.LevelSuccess, "", `Please solve captcha manually and click "Continue"! Now the control is with you!`)
	return nil
}
