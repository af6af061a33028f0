package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimcheck/internal/batch"
	"claimcheck/pkg/platform/sentinel"
)

func newRecord() batch.Record {
	now := time.Now()
	return batch.Record{
		ID:            uuid.New(),
		SourceFileRef: "uploads/20260830_passengers.csv",
		State:         batch.StateRegistered,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestInMemoryStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	rec := newRecord()

	require.NoError(t, s.Create(ctx, rec))

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, batch.StateRegistered, got.State)

	assert.ErrorIs(t, s.Create(ctx, rec), sentinel.ErrConflict)

	_, err = s.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStoreTransition(t *testing.T) {
	ctx := context.Background()

	t.Run("forward transition applies counters", func(t *testing.T) {
		s := NewInMemoryStore()
		rec := newRecord()
		require.NoError(t, s.Create(ctx, rec))

		got, err := s.Transition(ctx, rec.ID, batch.StateCompleted, batch.Counters{Processed: 10})
		require.NoError(t, err)
		assert.Equal(t, batch.StateCompleted, got.State)
		assert.Equal(t, 10, got.RecordsProcessed)
	})

	t.Run("backward transition rejected", func(t *testing.T) {
		s := NewInMemoryStore()
		rec := newRecord()
		require.NoError(t, s.Create(ctx, rec))

		_, err := s.Transition(ctx, rec.ID, batch.StateCompleted, batch.Counters{Processed: 10})
		require.NoError(t, err)

		_, err = s.Transition(ctx, rec.ID, batch.StateProcessing, batch.Counters{Processed: 5})
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)

		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, batch.StateCompleted, got.State)
		assert.Equal(t, 10, got.RecordsProcessed)
	})

	t.Run("duplicate terminal event is rejected not applied", func(t *testing.T) {
		s := NewInMemoryStore()
		rec := newRecord()
		require.NoError(t, s.Create(ctx, rec))

		_, err := s.Transition(ctx, rec.ID, batch.StateFailed, batch.Counters{Failed: 3})
		require.NoError(t, err)

		_, err = s.Transition(ctx, rec.ID, batch.StateFailed, batch.Counters{Failed: 3})
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})

	t.Run("counters exceeding total rejected", func(t *testing.T) {
		s := NewInMemoryStore()
		rec := newRecord()
		require.NoError(t, s.Create(ctx, rec))

		_, err := s.Transition(ctx, rec.ID, batch.StateProcessing, batch.Counters{Processed: 5, Total: 10})
		require.NoError(t, err)

		_, err = s.Transition(ctx, rec.ID, batch.StateCompleted, batch.Counters{Processed: 9, Failed: 2})
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})

	t.Run("unknown batch", func(t *testing.T) {
		s := NewInMemoryStore()
		_, err := s.Transition(ctx, uuid.New(), batch.StateCompleted, batch.Counters{})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

// Replay property: whatever order duplicated lifecycle events arrive in, the
// final state equals the state implied by the highest-rank event alone.
func TestInMemoryStoreReplayConvergence(t *testing.T) {
	ctx := context.Background()

	events := []struct {
		to       batch.State
		counters batch.Counters
	}{
		{batch.StateDispatched, batch.Counters{}},
		{batch.StateProcessing, batch.Counters{Processed: 4}},
		{batch.StateCompleted, batch.Counters{Processed: 10}},
	}

	// A few adversarial orderings, each with duplicates.
	orders := [][]int{
		{0, 1, 2},
		{2, 1, 0},
		{1, 2, 0, 2, 1},
		{2, 2, 2},
		{0, 2, 1, 0},
	}

	for _, order := range orders {
		s := NewInMemoryStore()
		rec := newRecord()
		require.NoError(t, s.Create(ctx, rec))

		for _, i := range order {
			ev := events[i]
			_, err := s.Transition(ctx, rec.ID, ev.to, ev.counters)
			if err != nil {
				assert.ErrorIs(t, err, sentinel.ErrInvalidState)
			}
		}

		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, batch.StateCompleted, got.State, "order %v", order)
		assert.Equal(t, 10, got.RecordsProcessed, "order %v", order)
	}
}

func TestInMemoryStoreConcurrentTransitions(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	rec := newRecord()
	require.NoError(t, s.Create(ctx, rec))

	// Many goroutines replaying the same completion event: exactly one may
	// win; the rest must observe ErrInvalidState.
	const n = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Transition(ctx, rec.ID, batch.StateCompleted, batch.Counters{Processed: 10}); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.StateCompleted, got.State)
	assert.Equal(t, 10, got.RecordsProcessed)
}

func TestInMemoryStoreConcurrentRegistrations(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	const n = 64
	var wg sync.WaitGroup
	ids := make(chan uuid.UUID, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := newRecord()
			if err := s.Create(ctx, rec); err == nil {
				ids <- rec.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uuid.UUID]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate batch id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}
