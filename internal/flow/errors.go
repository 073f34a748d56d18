package flow

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why a run stopped.
type Kind string

const (
	KindConfigValidation       Kind = "ConfigValidation"
	KindAuthenticationRequired Kind = "AuthenticationRequired"
	KindElementNotFound        Kind = "ElementNotFound"
	KindWaitTimeout            Kind = "WaitTimeout"
	KindAccessBlocked          Kind = "AccessBlocked"
	KindUnexpectedPage         Kind = "UnexpectedPage"
	KindNoTrains               Kind = "NoTrains"
)

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrConfigValidation       = errors.New("flow: invalid booking request")
	ErrAuthenticationRequired = errors.New("flow: not signed in")
	ErrElementNotFound        = errors.New("flow: element not found")
	ErrWaitTimeout            = errors.New("flow: wait timed out")
	ErrAccessBlocked          = errors.New("flow: access blocked")
	ErrUnexpectedPage         = errors.New("flow: unexpected page")
	ErrNoTrains               = errors.New("flow: no trains found")
)

var sentinels = map[Kind]error{
	KindConfigValidation:       ErrConfigValidation,
	KindAuthenticationRequired: ErrAuthenticationRequired,
	KindElementNotFound:        ErrElementNotFound,
	KindWaitTimeout:            ErrWaitTimeout,
	KindAccessBlocked:          ErrAccessBlocked,
	KindUnexpectedPage:         ErrUnexpectedPage,
	KindNoTrains:               ErrNoTrains,
}

// Error is a failed run.  Message is what the user sees; Field names the
// control that could not be resolved, when there is one.
type Error struct {
	Kind    Kind
	Step    string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Step != "" {
		fmt.Fprintf(&b, " [%s]", e.Step)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field=%s", e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// KindOf extracts the Kind of err, or "" when err is not a flow error.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

func notFound(step, field, msg string) *Error {
	return &Error{Kind: KindElementNotFound, Step: step, Field: field, Message: msg}
}

func timedOut(step, field, msg string, err error) *Error {
	return &Error{Kind: KindWaitTimeout, Step: step, Field: field, Message: msg, Err: err}
}
