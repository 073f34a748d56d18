// Package queue defines the status payload exchanged over the message broker
// and the consumer that turns it into a booking log.
package queue

import (
	"time"

	"github.com/iliyamo/irctc-booking-supporter/internal/status"
)

// StatusQueueName is the durable queue status events are published to.
const StatusQueueName = "booking.status"

// StatusEvent is published for every status update of a booking run.  It
// carries enough for downstream consumers to log or notify without asking
// the agent.
type StatusEvent struct {
	RunID     string `json:"run_id"`
	State     string `json:"state"`
	Level     string `json:"level"`
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message"`
	At        string `json:"at"`
}

// EventFromUpdate converts a status update into its wire form.
func EventFromUpdate(u status.Update) StatusEvent {
	at := u.At
	if at.IsZero() {
		at = time.Now()
	}
	return StatusEvent{
		RunID:     u.RunID,
		State:     string(u.State),
		Level:     string(u.Level),
		ErrorKind: u.ErrorKind,
		Message:   u.Message,
		At:        at.UTC().Format(time.RFC3339),
	}
}
