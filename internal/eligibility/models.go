// Package eligibility decides whether a passenger qualifies for an insurance
// payout. It merges the warehouse snapshot with the live flight-status cache
// under a deterministic precedence rule and applies the configured policy.
package eligibility

import (
	"time"

	"claimcheck/internal/flightstatus"
)

// Source tags which data fed a verdict.
type Source string

const (
	SourceWarehouseOnly Source = "WAREHOUSE_ONLY"
	SourceStreamMerged  Source = "STREAM_MERGED"
)

// Reason is the verdict explanation tag. Values are stable API: they key the
// statistics buckets and appear in search responses.
type Reason string

const (
	ReasonFlightCancelled     Reason = "flight_cancelled"
	ReasonFlightDelayed       Reason = "flight_delayed"
	ReasonDelayBelowThreshold Reason = "delay_below_threshold"
	ReasonNoDisruption        Reason = "no_disruption"
	ReasonNoMatchingRecords   Reason = "no_matching_records"
)

// Match is one warehouse row scored independently against the policy.
type Match struct {
	PassengerID  string
	Name         string
	FlightID     string
	FlightNumber string

	Status       flightstatus.Status
	DelayMinutes int

	Eligible   bool
	Reason     Reason
	Confidence float64
	Source     Source
}

// Outcome is the aggregate verdict for one search. Produced fresh per query
// and never persisted here.
type Outcome struct {
	IsEligible      bool
	Reason          Reason
	ConfidenceScore float64
	EvaluatedAt     time.Time
	Source          Source
	Matches         []Match
}
