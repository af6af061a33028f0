// Package flightstatus models the near-real-time view of flight disruption.
// Many events may exist per flight; only the one with the latest observation
// time is authoritative. Observation time, not arrival time, decides the
// winner, so replayed and reordered bus deliveries converge on the same view.
package flightstatus

import (
	"strings"
	"time"
)

// Status is a flight disruption status.
type Status string

const (
	StatusOnTime    Status = "ON_TIME"
	StatusDelayed   Status = "DELAYED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus normalizes a raw status string. Feeds vary in spelling
// ("on-time", "ontime", "Cancelled"), so parsing is tolerant.
func ParseStatus(raw string) (Status, bool) {
	switch strings.ToUpper(strings.ReplaceAll(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_"), " ", "_")) {
	case "ON_TIME", "ONTIME", "SCHEDULED":
		return StatusOnTime, true
	case "DELAYED", "DELAY":
		return StatusDelayed, true
	case "CANCELLED", "CANCELED":
		return StatusCancelled, true
	default:
		return "", false
	}
}

// Event is one flight-status observation from the live feed. JSON tags match
// the bus payload; unknown fields in payloads are ignored.
type Event struct {
	FlightID     string    `json:"flightId"`
	Status       Status    `json:"status"`
	DelayMinutes int       `json:"delayMinutes"`
	ObservedAt   time.Time `json:"observedAt"`
}

// Supersedes reports whether e should replace prev in the cache.
// Last-observation-wins: strictly newer observations replace; ties and older
// observations leave the cached entry in place, which makes replays no-ops.
func (e Event) Supersedes(prev *Event) bool {
	if prev == nil {
		return true
	}
	return e.ObservedAt.After(prev.ObservedAt)
}
