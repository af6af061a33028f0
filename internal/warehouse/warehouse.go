// Package warehouse is the read-side client for the durable record store.
// The store itself is an external service; this package only knows how to
// query it for passenger/flight rows matching search criteria.
package warehouse

import (
	"context"
	"strings"
)

// Criteria narrows a passenger search. At least one field must be set;
// enforcement happens at the resolver boundary, stores just apply the filters.
type Criteria struct {
	Name        string
	FlightID    string
	PassengerID string
}

// Normalize trims whitespace from every field.
func (c Criteria) Normalize() Criteria {
	return Criteria{
		Name:        strings.TrimSpace(c.Name),
		FlightID:    strings.TrimSpace(c.FlightID),
		PassengerID: strings.TrimSpace(c.PassengerID),
	}
}

// Empty reports whether no field carries a usable value.
func (c Criteria) Empty() bool {
	n := c.Normalize()
	return n.Name == "" && n.FlightID == "" && n.PassengerID == ""
}

// PassengerRecord is one warehouse row joining a passenger to their flight.
// Status and DelayMinutes reflect the warehouse snapshot, which may lag the
// live feed; the resolver decides which source wins.
type PassengerRecord struct {
	PassengerID  string
	Name         string
	FlightID     string
	FlightNumber string
	Status       string
	DelayMinutes int
}

// Store queries the record store. Name matches are case-insensitive partial;
// flight and passenger IDs match exactly.
type Store interface {
	QueryPassengers(ctx context.Context, criteria Criteria) ([]PassengerRecord, error)
}
