package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"claimcheck/internal/batch"
	"claimcheck/pkg/platform/sentinel"
)

// PostgresStore persists ledger records in the batches table. The monotonic
// guard lives in the UPDATE's WHERE clause, so concurrent event consumers on
// separate instances still resolve to exactly-once effect.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Schema for the batches table. Applied by Migrate; kept here so the guard
// columns and the queries below stay in one file.
const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id UUID PRIMARY KEY,
	source_file_ref TEXT NOT NULL,
	state TEXT NOT NULL,
	state_rank INT NOT NULL,
	records_processed INT NOT NULL DEFAULT 0,
	records_failed INT NOT NULL DEFAULT 0,
	total_records INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// Migrate creates the batches table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate batches table: %w", err)
	}
	return nil
}

// Create inserts a new record.
func (s *PostgresStore) Create(ctx context.Context, rec batch.Record) error {
	query := `
		INSERT INTO batches (id, source_file_ref, state, state_rank, records_processed, records_failed, total_records, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.SourceFileRef, string(rec.State), rec.State.Rank(),
		rec.RecordsProcessed, rec.RecordsFailed, rec.TotalRecords,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// Get returns the record or sentinel.ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*batch.Record, error) {
	query := `
		SELECT id, source_file_ref, state, records_processed, records_failed, total_records, created_at, updated_at
		FROM batches WHERE id = $1
	`
	rec, err := scanRecord(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select batch: %w", err)
	}
	return rec, nil
}

// Transition advances the record iff the target rank is strictly ahead of the
// stored rank and the counters respect the declared total. Zero rows updated
// means either the batch is unknown or the move is stale; a follow-up SELECT
// distinguishes the two.
func (s *PostgresStore) Transition(ctx context.Context, id uuid.UUID, to batch.State, counters batch.Counters) (*batch.Record, error) {
	query := `
		UPDATE batches SET
			state = $2,
			state_rank = $3,
			records_processed = GREATEST(records_processed, $4),
			records_failed = GREATEST(records_failed, $5),
			total_records = CASE WHEN $6 > 0 THEN $6 ELSE total_records END,
			updated_at = NOW()
		WHERE id = $1
			AND state_rank < $3
			AND ($4 + $5) <= CASE
				WHEN $6 > 0 THEN $6
				WHEN total_records > 0 THEN total_records
				ELSE 2147483647
			END
		RETURNING id, source_file_ref, state, records_processed, records_failed, total_records, created_at, updated_at
	`
	rec, err := scanRecord(s.pool.QueryRow(ctx, query,
		id, string(to), to.Rank(), counters.Processed, counters.Failed, counters.Total,
	))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update batch: %w", err)
	}

	if _, getErr := s.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, sentinel.ErrInvalidState
}

func scanRecord(row pgx.Row) (*batch.Record, error) {
	var rec batch.Record
	var state string
	err := row.Scan(
		&rec.ID, &rec.SourceFileRef, &state,
		&rec.RecordsProcessed, &rec.RecordsFailed, &rec.TotalRecords,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.State = batch.State(state)
	return &rec, nil
}
