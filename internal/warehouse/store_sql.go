package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	txcontext "claimcheck/pkg/platform/tx"
)

// SQLStore reads passenger/flight rows over database/sql. The warehouse
// schema is owned by the data team; this store only issues the one read the
// resolver needs.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

type dbQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// QueryPassengers applies the criteria filters: ILIKE partial match on name,
// exact match on flight number and passenger ID. Empty criteria fields are
// skipped.
func (s *SQLStore) QueryPassengers(ctx context.Context, criteria Criteria) ([]PassengerRecord, error) {
	c := criteria.Normalize()

	query := `
		SELECT p.passenger_id, p.name, p.flight_id, f.flight_number, f.status, f.delay_minutes
		FROM passengers p
		JOIN flights f ON p.flight_id = f.id
		WHERE ($1 = '' OR p.name ILIKE '%' || $1 || '%')
			AND ($2 = '' OR f.flight_number = $2)
			AND ($3 = '' OR p.passenger_id = $3)
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query, c.Name, c.FlightID, c.PassengerID)
	if err != nil {
		return nil, fmt.Errorf("query passengers: %w", err)
	}
	defer rows.Close()

	var records []PassengerRecord
	for rows.Next() {
		var rec PassengerRecord
		if err := rows.Scan(
			&rec.PassengerID, &rec.Name, &rec.FlightID,
			&rec.FlightNumber, &rec.Status, &rec.DelayMinutes,
		); err != nil {
			return nil, fmt.Errorf("scan passenger row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passenger rows: %w", err)
	}
	return records, nil
}
