package handler

import (
	"time"

	"claimcheck/internal/eligibility"
)

// SearchResponse is the HTTP response for POST /search.
type SearchResponse struct {
	IsEligible       bool             `json:"isEligible"`
	Reason           string           `json:"reason"`
	ConfidenceScore  float64          `json:"confidenceScore"`
	Matches          []MatchResponse  `json:"matches"`
	SearchParameters SearchParameters `json:"searchParameters"`
	Timestamp        time.Time        `json:"timestamp"`
	DataSource       string           `json:"dataSource"`
}

// SearchParameters echoes the criteria the verdict was computed from. All
// three keys are always present, empty or not, so clients can render the
// search summary without probing for missing fields.
type SearchParameters struct {
	Name        string `json:"name"`
	FlightID    string `json:"flightId"`
	PassengerID string `json:"passengerId"`
}

// MatchResponse is one scored passenger row.
type MatchResponse struct {
	PassengerID  string  `json:"passengerId"`
	Name         string  `json:"name"`
	FlightNumber string  `json:"flightNumber"`
	Status       string  `json:"status"`
	DelayMinutes int     `json:"delayMinutes"`
	Eligible     bool    `json:"eligible"`
	Reason       string  `json:"reason"`
	Confidence   float64 `json:"confidence"`
	Source       string  `json:"source"`
}

// FromOutcome converts a domain Outcome to an HTTP response.
func FromOutcome(req SearchRequest, outcome *eligibility.Outcome) *SearchResponse {
	matches := make([]MatchResponse, 0, len(outcome.Matches))
	for _, m := range outcome.Matches {
		matches = append(matches, MatchResponse{
			PassengerID:  m.PassengerID,
			Name:         m.Name,
			FlightNumber: m.FlightNumber,
			Status:       string(m.Status),
			DelayMinutes: m.DelayMinutes,
			Eligible:     m.Eligible,
			Reason:       string(m.Reason),
			Confidence:   m.Confidence,
			Source:       string(m.Source),
		})
	}

	return &SearchResponse{
		IsEligible:      outcome.IsEligible,
		Reason:          string(outcome.Reason),
		ConfidenceScore: outcome.ConfidenceScore,
		Matches:         matches,
		SearchParameters: SearchParameters{
			Name:        req.Name,
			FlightID:    req.FlightID,
			PassengerID: req.PassengerID,
		},
		Timestamp:  outcome.EvaluatedAt,
		DataSource: string(outcome.Source),
	}
}
