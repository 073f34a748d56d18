package model

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidRequest is matched by every *ValidationError.
var ErrInvalidRequest = errors.New("invalid booking request")

// Reason identifies which invariant a BookingRequest violated.
type Reason string

const (
	ReasonMissingOrigin      Reason = "missing_origin"
	ReasonMissingDestination Reason = "missing_destination"
	ReasonMissingDate        Reason = "missing_date"
	ReasonInvalidDate        Reason = "invalid_date"
	ReasonMissingTrain       Reason = "missing_train"
	ReasonMissingMobile      Reason = "missing_mobile"
	ReasonInvalidMobile      Reason = "invalid_mobile"
	ReasonNoPassengers       Reason = "no_passengers"
	ReasonMissingName        Reason = "missing_passenger_name"
	ReasonMissingAge         Reason = "missing_passenger_age"
	ReasonInvalidAge         Reason = "invalid_passenger_age"
	ReasonInvalidGender      Reason = "invalid_passenger_gender"
	ReasonInvalidMode        Reason = "invalid_mode"
	ReasonInvalidPayment     Reason = "invalid_payment_mode"
	ReasonInvalidField       Reason = "invalid_field"
)

// ValidationError reports the first violated invariant.  Passenger is the
// 1-based passenger number for passenger reasons and zero otherwise.
type ValidationError struct {
	Reason    Reason
	Passenger int
	Message   string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRequest }

func invalid(r Reason, msg string) *ValidationError {
	return &ValidationError{Reason: r, Message: msg}
}

func invalidPassenger(r Reason, n int, format string) *ValidationError {
	return &ValidationError{Reason: r, Passenger: n, Message: fmt.Sprintf(format, n)}
}

// validate holds the cached struct metadata for the request types.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags of the request and returns the first
// violation as a *ValidationError, or nil when the request is acceptable.
// Fields are checked in declaration order.  Callers should validate the
// Normalized form.
func (r BookingRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	return fromFieldError(errs[0])
}

// fromFieldError maps a failed tag to its Reason.  Namespaces look like
// BookingRequest.Passengers[1].Age.
func fromFieldError(fe validator.FieldError) *ValidationError {
	path := strings.TrimPrefix(fe.StructNamespace(), "BookingRequest.")
	if m := passengerField.FindStringSubmatch(path); m != nil {
		n, _ := strconv.Atoi(m[1])
		n++
		switch m[2] {
		case "Name":
			return invalidPassenger(ReasonMissingName, n, "Please enter name for Passenger %d")
		case "Age":
			if fe.Tag() == "required" {
				return invalidPassenger(ReasonMissingAge, n, "Please enter age for Passenger %d")
			}
			return invalidPassenger(ReasonInvalidAge, n, "Invalid age for Passenger %d")
		case "Gender":
			return invalidPassenger(ReasonInvalidGender, n, "Invalid gender for Passenger %d")
		}
	}
	switch path {
	case "Journey.From":
		return invalid(ReasonMissingOrigin, "Please enter From Station")
	case "Journey.To":
		return invalid(ReasonMissingDestination, "Please enter To Station")
	case "Journey.Date":
		if fe.Tag() == "required" {
			return invalid(ReasonMissingDate, "Please select Travel Date")
		}
		return invalid(ReasonInvalidDate, fmt.Sprintf("Travel Date %q must be YYYY-MM-DD", fe.Value()))
	case "Journey.TrainPreference":
		return invalid(ReasonMissingTrain, "Please enter Preferred Train")
	case "Journey.PaymentMode":
		return invalid(ReasonInvalidPayment, fmt.Sprintf("Unknown payment mode %q", fe.Value()))
	case "Contact.Mobile":
		if fe.Tag() == "required" {
			return invalid(ReasonMissingMobile, "Please enter Mobile Number")
		}
		return invalid(ReasonInvalidMobile, "Mobile Number must be 10 digits")
	case "Passengers":
		return invalid(ReasonNoPassengers, "Please add at least one passenger")
	case "Mode":
		return invalid(ReasonInvalidMode, fmt.Sprintf("Unknown booking mode %q", fe.Value()))
	}
	return invalid(ReasonInvalidField, fe.Error())
}

var passengerField = regexp.MustCompile(`^Passengers\[(\d+)\]\.(\w+)$`)

// ParseTravelDate parses a YYYY-MM-DD travel date as a calendar day.
func ParseTravelDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}
