package model

// FlowState is the automation's current phase.
type FlowState string

const (
	StateIdle               FlowState = "IDLE"
	StateSearching          FlowState = "SEARCHING"
	StateSelectingTrain     FlowState = "SELECTING_TRAIN"
	StateFillingPassengers  FlowState = "FILLING_PASSENGERS"
	StateAwaitingManualStep FlowState = "AWAITING_MANUAL_STEP"
	StateError              FlowState = "ERROR"
	StateDone               FlowState = "DONE"
)

// Terminal reports whether the automation stops in this state and hands
// control back to the human.
func (s FlowState) Terminal() bool {
	switch s {
	case StateAwaitingManualStep, StateError, StateDone:
		return true
	}
	return false
}

// PageKind is the observed kind of the current page.
type PageKind string

const (
	PageSearch    PageKind = "search"
	PageList      PageKind = "list"
	PagePassenger PageKind = "passenger"
	PageReview    PageKind = "review"
	PageBlocked   PageKind = "blocked"
	PageUnknown   PageKind = "unknown"
)
