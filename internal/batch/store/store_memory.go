package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"claimcheck/internal/batch"
	"claimcheck/pkg/platform/sentinel"
)

// InMemoryStore keeps ledger records in a mutex-guarded map. The monotonic
// transition check runs under the write lock, so concurrent event consumers
// racing on one batch serialize here and duplicates lose cleanly.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]batch.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[uuid.UUID]batch.Record)}
}

// Create inserts a new record. Returns sentinel.ErrConflict if the ID exists.
func (s *InMemoryStore) Create(_ context.Context, rec batch.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return sentinel.ErrConflict
	}
	s.records[rec.ID] = rec
	return nil
}

// Get returns a copy of the record or sentinel.ErrNotFound.
func (s *InMemoryStore) Get(_ context.Context, id uuid.UUID) (*batch.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &rec, nil
}

// Transition atomically advances the record if the move is forward-monotonic
// and the counters respect the declared total. Backward, duplicate, and
// counter-violating applications return sentinel.ErrInvalidState and leave the
// record untouched.
func (s *InMemoryStore) Transition(_ context.Context, id uuid.UUID, to batch.State, counters batch.Counters) (*batch.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !rec.State.CanAdvanceTo(to) {
		return nil, sentinel.ErrInvalidState
	}
	if !counters.ValidAgainst(rec.TotalRecords) {
		return nil, sentinel.ErrInvalidState
	}

	rec.State = to
	if counters.Processed > rec.RecordsProcessed {
		rec.RecordsProcessed = counters.Processed
	}
	if counters.Failed > rec.RecordsFailed {
		rec.RecordsFailed = counters.Failed
	}
	if counters.Total > 0 {
		rec.TotalRecords = counters.Total
	}
	rec.UpdatedAt = time.Now()

	s.records[id] = rec
	return &rec, nil
}
