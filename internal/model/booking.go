package model

import "strings"

// Mode selects the booking quota.
type Mode string

const (
	ModeGeneral Mode = "general"
	ModeTatkal  Mode = "tatkal"
)

// QuotaLabel is the text of the quota option on the search form.
func (m Mode) QuotaLabel() string {
	if m == ModeTatkal {
		return "TATKAL"
	}
	return "GENERAL"
}

// PaymentMode selects which payment family is ticked on the passenger page.
type PaymentMode string

const (
	PaymentUPI  PaymentMode = "UPI"
	PaymentCard PaymentMode = "CARD"
)

// LabelHints returns the substrings that identify the payment option label.
func (p PaymentMode) LabelHints() []string {
	if p == PaymentCard {
		return []string{"Credit", "Debit", "Net Banking"}
	}
	return []string{"BHIM", "UPI"}
}

const (
	DefaultCountry  = "IN"
	DefaultBerth    = "No preference"
	DefaultCatering = "Veg"
)

// BookingRequest is everything the automation needs to drive one booking.
// The JSON shape matches what the extension shell sends and what the
// saved-configuration store persists.
type BookingRequest struct {
	Journey    Journey     `json:"journey"`
	Contact    Contact     `json:"contact"`
	Passengers []Passenger `json:"passengers" validate:"required,min=1,dive"`
	Mode       Mode        `json:"mode" validate:"oneof=general tatkal"`
}

// Journey describes the trip.  Date is YYYY-MM-DD.
type Journey struct {
	From            string      `json:"from" validate:"required"`
	To              string      `json:"to" validate:"required"`
	Date            string      `json:"date" validate:"required,datetime=2006-01-02"`
	Class           string      `json:"class"`
	TrainPreference string      `json:"trainPreference" validate:"required"`
	PaymentMode     PaymentMode `json:"paymentMode" validate:"oneof=UPI CARD"`
}

type Contact struct {
	Mobile string `json:"mobile" validate:"required,len=10,number"`
}

// Passenger is one traveller.  Country, Berth and Catering fall back to the
// site defaults when empty.
type Passenger struct {
	Name     string `json:"name" validate:"required"`
	Age      int    `json:"age" validate:"required,min=1,max=120"`
	Gender   string `json:"gender" validate:"oneof=M F T"`
	Country  string `json:"country,omitempty"`
	Berth    string `json:"berth,omitempty"`
	Catering string `json:"catering,omitempty"`
}

func (p Passenger) CountryOrDefault() string  { return orDefault(p.Country, DefaultCountry) }
func (p Passenger) BerthOrDefault() string    { return orDefault(p.Berth, DefaultBerth) }
func (p Passenger) CateringOrDefault() string { return orDefault(p.Catering, DefaultCatering) }

// Normalized returns a copy with trimmed fields, upper-cased codes and the
// defaults the shell form applies (tatkal mode, UPI payment).  The train
// preference keeps its case because it is matched as typed.
func (r BookingRequest) Normalized() BookingRequest {
	out := r
	out.Journey.From = strings.TrimSpace(r.Journey.From)
	out.Journey.To = strings.TrimSpace(r.Journey.To)
	out.Journey.Date = strings.TrimSpace(r.Journey.Date)
	out.Journey.Class = strings.ToUpper(strings.TrimSpace(r.Journey.Class))
	out.Journey.TrainPreference = strings.TrimSpace(r.Journey.TrainPreference)
	out.Journey.PaymentMode = PaymentMode(strings.ToUpper(strings.TrimSpace(string(r.Journey.PaymentMode))))
	if out.Journey.PaymentMode == "" {
		out.Journey.PaymentMode = PaymentUPI
	}
	out.Contact.Mobile = strings.TrimSpace(r.Contact.Mobile)
	out.Mode = Mode(strings.ToLower(strings.TrimSpace(string(r.Mode))))
	if out.Mode == "" {
		out.Mode = ModeTatkal
	}
	out.Passengers = make([]Passenger, len(r.Passengers))
	for i, p := range r.Passengers {
		p.Name = strings.TrimSpace(p.Name)
		p.Gender = strings.ToUpper(strings.TrimSpace(p.Gender))
		out.Passengers[i] = p
	}
	return out
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
