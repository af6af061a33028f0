package warehouse

import (
	"context"
	"strings"
	"sync"
)

// InMemoryStore is the warehouse fake for unit tests and broker-less local
// runs. Matching mirrors the SQL store: partial case-insensitive on name,
// exact on flight number and passenger ID.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []PassengerRecord
}

func NewInMemoryStore(records ...PassengerRecord) *InMemoryStore {
	return &InMemoryStore{records: records}
}

// Add appends rows to the store.
func (s *InMemoryStore) Add(records ...PassengerRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

func (s *InMemoryStore) QueryPassengers(_ context.Context, criteria Criteria) ([]PassengerRecord, error) {
	c := criteria.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []PassengerRecord
	for _, rec := range s.records {
		if c.Name != "" && !strings.Contains(strings.ToLower(rec.Name), strings.ToLower(c.Name)) {
			continue
		}
		if c.FlightID != "" && rec.FlightNumber != c.FlightID {
			continue
		}
		if c.PassengerID != "" && rec.PassengerID != c.PassengerID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
