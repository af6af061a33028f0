// Package ledger tracks the lifecycle of ingested batches. Each batch is
// keyed by an idempotency token (a UUID allocated at registration); the
// forward-monotonic transition rule in the store is the sole ordering
// safeguard against duplicated or reordered bus events.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"claimcheck/internal/batch"
	"claimcheck/pkg/platform/sentinel"
	"claimcheck/pkg/requestcontext"
)

// Store persists ledger records. Implementations must apply Transition
// atomically: the monotonic check and the write happen under one lock or one
// statement.
type Store interface {
	Create(ctx context.Context, rec batch.Record) error
	Get(ctx context.Context, id uuid.UUID) (*batch.Record, error)
	Transition(ctx context.Context, id uuid.UUID, to batch.State, counters batch.Counters) (*batch.Record, error)
}

type Ledger struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func New(store Store, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}

	l := &Ledger{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Register allocates a batch ID and creates the record in REGISTERED state.
// Safe under concurrent calls: IDs are random UUIDs and the store rejects
// collisions, so two registrations never interleave into one record.
func (l *Ledger) Register(ctx context.Context, sourceFileRef string) (*batch.Record, error) {
	now := requestcontext.Now(ctx)
	rec := batch.Record{
		ID:            uuid.New(),
		SourceFileRef: sourceFileRef,
		State:         batch.StateRegistered,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := l.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("register batch: %w", err)
	}
	return &rec, nil
}

// Transition applies a forward-monotonic state change. A sentinel.ErrInvalidState
// return means the event was a duplicate or arrived out of order; with
// at-least-once delivery that is expected traffic, so callers treat it as a
// no-op rather than a failure. sentinel.ErrNotFound means the batch ID is
// unknown.
func (l *Ledger) Transition(ctx context.Context, id uuid.UUID, to batch.State, counters batch.Counters) (*batch.Record, error) {
	if !to.Valid() {
		return nil, sentinel.ErrInvalidState
	}

	rec, err := l.store.Transition(ctx, id, to, counters)
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			l.logger.DebugContext(ctx, "ignoring stale batch transition",
				"batch_id", id,
				"target_state", to,
			)
		}
		return nil, err
	}

	l.logger.InfoContext(ctx, "batch state advanced",
		"batch_id", id,
		"state", rec.State,
		"records_processed", rec.RecordsProcessed,
		"records_failed", rec.RecordsFailed,
	)
	return rec, nil
}

// Get returns the current record for a batch, or sentinel.ErrNotFound.
func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (*batch.Record, error) {
	return l.store.Get(ctx, id)
}
