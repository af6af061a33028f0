package handler

import (
	"claimcheck/internal/warehouse"
)

// SearchRequest is the HTTP request body for POST /search. Field names match
// the public API contract; unknown fields are ignored.
type SearchRequest struct {
	Name        string `json:"name"`
	FlightID    string `json:"flightId"`
	PassengerID string `json:"passengerId"`
}

// Criteria converts the request to warehouse search criteria.
func (r SearchRequest) Criteria() warehouse.Criteria {
	return warehouse.Criteria{
		Name:        r.Name,
		FlightID:    r.FlightID,
		PassengerID: r.PassengerID,
	}
}
