package eligibility

import (
	"claimcheck/internal/flightstatus"
)

// Policy holds the eligibility rule tunables. The delay threshold and the
// confidence constants were never finalized as business rules, so they are
// injected from configuration rather than hard-coded.
type Policy struct {
	// DelayThresholdMinutes is the minimum delay that qualifies for a payout.
	DelayThresholdMinutes int

	// StreamConfidence scores verdicts backed by a live observation.
	StreamConfidence float64
	// WarehouseConfidence scores verdicts backed only by the warehouse snapshot.
	WarehouseConfidence float64
	// ConflictPenalty scales the aggregate confidence down when matched rows
	// disagree on eligibility.
	ConflictPenalty float64
}

// DefaultPolicy returns the documented default constants.
func DefaultPolicy() Policy {
	return Policy{
		DelayThresholdMinutes: 120,
		StreamConfidence:      0.95,
		WarehouseConfidence:   0.6,
		ConflictPenalty:       0.8,
	}
}

// Evaluate maps flight disruption data to a verdict: eligible iff the flight
// is cancelled, or delayed at or beyond the threshold.
func (p Policy) Evaluate(status flightstatus.Status, delayMinutes int) (bool, Reason) {
	switch status {
	case flightstatus.StatusCancelled:
		return true, ReasonFlightCancelled
	case flightstatus.StatusDelayed:
		if delayMinutes >= p.DelayThresholdMinutes {
			return true, ReasonFlightDelayed
		}
		return false, ReasonDelayBelowThreshold
	default:
		return false, ReasonNoDisruption
	}
}
