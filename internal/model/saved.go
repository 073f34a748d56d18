package model

import "time"

// LegacyLabel is the label a pre-mapping single saved configuration is
// migrated under.
const LegacyLabel = "Default Configuration"

// SavedConfiguration is a BookingRequest stored under a user-chosen label.
// It embeds the request so the persisted JSON is the request's own shape
// plus savedAt and label.
type SavedConfiguration struct {
	BookingRequest
	SavedAt time.Time `json:"savedAt"`
	Label   string    `json:"label"`
}

// RunRecord is one automation run as kept in the run history.
type RunRecord struct {
	ID         string     // run identifier (uuid)
	Mode       Mode       // requested quota
	Train      string     // requested train
	TravelDate string     // YYYY-MM-DD
	State      FlowState  // final (or current) state
	ErrorKind  string     // empty unless State is ERROR
	Message    string     // last status message
	StartedAt  time.Time  // when the run was accepted
	FinishedAt *time.Time // nil while the run is active
}
