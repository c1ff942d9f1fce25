package domain

import "time"

// OutcomeStatus final state of a pair within one run.
type OutcomeStatus int

const (
	StatusFilled OutcomeStatus = iota
	StatusSkipped
	StatusError
)

// String returns the status name used in logs and notifications.
func (s OutcomeStatus) String() string {
	switch s {
	case StatusFilled:
		return "FILLED"
	case StatusSkipped:
		return "SKIPPED"
	case StatusError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// OrderPlan is the pre-order calculation for one pair. It is built once
// per pair per run and never mutated.
type OrderPlan struct {
	Pair Pair
	// AllocJPY is the yen amount allotted to this pair (dip-adjusted).
	AllocJPY int64
	Quote    Quote
	// RawQty is AllocJPY / Quote.Price before exchange rounding.
	RawQty float64
	// Qty is the step-rounded order quantity; 0 means unfillable.
	Qty float64
}

// ExecutionOutcome is the final per-pair result.
type ExecutionOutcome struct {
	Pair       Pair
	Status     OutcomeStatus
	Reason     ReasonCode
	PlannedJPY int64
	QuotePrice float64
	// AvgPrice is the average fill price, set only on FILLED.
	AvgPrice  float64
	FilledQty float64
	Details   map[string]float64
}

// RunReport aggregates one scheduled run. It is created at run start,
// populated incrementally and handed to the notifier; nothing outlives
// the run.
type RunReport struct {
	ID            string
	StartedAt     time.Time
	TotalJPY      int64
	DipMultiplier float64
	DipFlags      map[Pair]bool
	Outcomes      []ExecutionOutcome
	BalanceBefore int64
	BalanceAfter  int64
	// Note carries run-level remarks (dry run, abort reason).
	Note string
	// Aborted is set when the run stopped before per-pair planning.
	Aborted bool
}
