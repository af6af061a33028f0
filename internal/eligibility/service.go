package eligibility

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"claimcheck/internal/flightstatus"
	"claimcheck/internal/warehouse"
	dErrors "claimcheck/pkg/domain-errors"
	"claimcheck/pkg/requestcontext"
)

var (
	resolveDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "claimcheck_resolve_duration_ms",
		Help:    "Latency of eligibility resolutions in milliseconds",
		Buckets: []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500},
	})
	warehouseRetriesExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "claimcheck_warehouse_retries_exhausted_total",
		Help: "Total number of resolutions that exhausted warehouse query retries",
	})
)

// Recorder receives finalized outcomes for statistics. The aggregate is
// injected, never a package-level singleton.
type Recorder interface {
	Record(eligible bool, reason string)
}

// Resolver answers eligibility searches by merging warehouse rows with the
// live flight-status cache.
type Resolver struct {
	warehouse warehouse.Store
	cache     flightstatus.Cache
	stats     Recorder
	policy    Policy
	logger    *slog.Logger
	tracer    trace.Tracer

	// queryAttempts bounds warehouse query retries on transient failures.
	queryAttempts uint64
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithQueryAttempts(attempts int) Option {
	return func(r *Resolver) {
		if attempts > 0 {
			r.queryAttempts = uint64(attempts)
		}
	}
}

func New(wh warehouse.Store, cache flightstatus.Cache, stats Recorder, policy Policy, opts ...Option) (*Resolver, error) {
	if wh == nil {
		return nil, fmt.Errorf("warehouse store is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("flight status cache is required")
	}
	if stats == nil {
		return nil, fmt.Errorf("statistics recorder is required")
	}

	r := &Resolver{
		warehouse:     wh,
		cache:         cache,
		stats:         stats,
		policy:        policy,
		logger:        slog.Default(),
		tracer:        otel.Tracer("claimcheck/eligibility"),
		queryAttempts: 3,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve evaluates one search. The outcome is forwarded to the statistics
// recorder exactly once, after it is finalized; cancelled or failed
// resolutions record nothing.
func (r *Resolver) Resolve(ctx context.Context, criteria warehouse.Criteria) (*Outcome, error) {
	ctx, span := r.tracer.Start(ctx, "eligibility.Resolve")
	defer span.End()

	start := time.Now()
	defer func() {
		resolveDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	criteria = criteria.Normalize()
	if criteria.Empty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "At least one search parameter is required")
	}

	rows, err := r.queryWarehouse(ctx, criteria)
	if err != nil {
		warehouseRetriesExhausted.Inc()
		// Degraded path: with a flight ID we can still answer from the live
		// feed alone, at reduced confidence. Anything else is unavailable.
		if outcome := r.resolveFromStream(ctx, criteria); outcome != nil {
			r.logger.WarnContext(ctx, "warehouse unavailable, answering from live feed",
				"flight_id", criteria.FlightID,
				"error", err,
			)
			return r.finalize(ctx, outcome)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "record store unavailable")
	}

	outcome := r.merge(ctx, rows)
	span.SetAttributes(
		attribute.Int("eligibility.matches", len(outcome.Matches)),
		attribute.Bool("eligibility.eligible", outcome.IsEligible),
	)
	return r.finalize(ctx, outcome)
}

// queryWarehouse retries transient store failures with bounded exponential
// backoff before giving up.
func (r *Resolver) queryWarehouse(ctx context.Context, criteria warehouse.Criteria) ([]warehouse.PassengerRecord, error) {
	var rows []warehouse.PassengerRecord
	op := func() error {
		var err error
		rows, err = r.warehouse.QueryPassengers(ctx, criteria)
		return err
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), r.queryAttempts-1), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return rows, nil
}

// merge scores every warehouse row against the freshest data available for
// its flight and aggregates the per-row verdicts.
func (r *Resolver) merge(ctx context.Context, rows []warehouse.PassengerRecord) *Outcome {
	now := requestcontext.Now(ctx)
	if len(rows) == 0 {
		return &Outcome{
			Reason:      ReasonNoMatchingRecords,
			EvaluatedAt: now,
			Source:      SourceWarehouseOnly,
		}
	}

	matches := make([]Match, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, r.scoreRow(ctx, row))
	}

	outcome := &Outcome{
		EvaluatedAt: now,
		Source:      SourceWarehouseOnly,
		Matches:     matches,
	}

	var eligibleCount int
	for _, m := range matches {
		if m.Eligible {
			eligibleCount++
		}
		if m.Source == SourceStreamMerged {
			outcome.Source = SourceStreamMerged
		}
	}
	outcome.IsEligible = eligibleCount > 0
	outcome.Reason = aggregateReason(matches, outcome.IsEligible)

	// Unambiguous verdicts score at the source's base confidence; rows that
	// disagree on eligibility scale the aggregate down.
	if outcome.Source == SourceStreamMerged {
		outcome.ConfidenceScore = r.policy.StreamConfidence
	} else {
		outcome.ConfidenceScore = r.policy.WarehouseConfidence
	}
	if eligibleCount > 0 && eligibleCount < len(matches) {
		outcome.ConfidenceScore *= r.policy.ConflictPenalty
	}

	return outcome
}

// scoreRow evaluates one row, preferring the live observation for its flight
// over the warehouse snapshot.
func (r *Resolver) scoreRow(ctx context.Context, row warehouse.PassengerRecord) Match {
	m := Match{
		PassengerID:  row.PassengerID,
		Name:         row.Name,
		FlightID:     row.FlightID,
		FlightNumber: row.FlightNumber,
		Source:       SourceWarehouseOnly,
		Confidence:   r.policy.WarehouseConfidence,
	}

	if live := r.liveEvent(ctx, row); live != nil {
		m.Status = live.Status
		m.DelayMinutes = live.DelayMinutes
		m.Source = SourceStreamMerged
		m.Confidence = r.policy.StreamConfidence
	} else {
		status, ok := flightstatus.ParseStatus(row.Status)
		if !ok {
			status = flightstatus.StatusOnTime
		}
		m.Status = status
		m.DelayMinutes = row.DelayMinutes
	}

	m.Eligible, m.Reason = r.policy.Evaluate(m.Status, m.DelayMinutes)
	return m
}

// liveEvent looks the row's flight up in the cache. The live feed keys events
// by flight number; older feeds used the internal flight ID, so both are tried.
func (r *Resolver) liveEvent(ctx context.Context, row warehouse.PassengerRecord) *flightstatus.Event {
	for _, key := range []string{row.FlightNumber, row.FlightID} {
		if key == "" {
			continue
		}
		ev, err := r.cache.Get(ctx, key)
		if err != nil {
			r.logger.WarnContext(ctx, "live cache lookup failed, using warehouse snapshot",
				"flight", key,
				"error", err,
			)
			return nil
		}
		if ev != nil {
			return ev
		}
	}
	return nil
}

// resolveFromStream builds a stream-only outcome when the warehouse is down
// but the caller searched by flight ID. Confidence is penalized: there is no
// passenger row corroborating the match.
func (r *Resolver) resolveFromStream(ctx context.Context, criteria warehouse.Criteria) *Outcome {
	if criteria.FlightID == "" {
		return nil
	}
	ev, err := r.cache.Get(ctx, criteria.FlightID)
	if err != nil || ev == nil {
		return nil
	}

	eligible, reason := r.policy.Evaluate(ev.Status, ev.DelayMinutes)
	m := Match{
		FlightNumber: ev.FlightID,
		Status:       ev.Status,
		DelayMinutes: ev.DelayMinutes,
		Eligible:     eligible,
		Reason:       reason,
		Confidence:   r.policy.StreamConfidence * r.policy.ConflictPenalty,
		Source:       SourceStreamMerged,
	}
	return &Outcome{
		IsEligible:      eligible,
		Reason:          reason,
		ConfidenceScore: m.Confidence,
		EvaluatedAt:     requestcontext.Now(ctx),
		Source:          SourceStreamMerged,
		Matches:         []Match{m},
	}
}

// finalize forwards the outcome to statistics unless the caller has given up.
// The check keeps cancelled resolutions out of the counters.
func (r *Resolver) finalize(ctx context.Context, outcome *Outcome) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.stats.Record(outcome.IsEligible, string(outcome.Reason))
	return outcome, nil
}

// aggregateReason picks the dominant explanation across matches. Cancellation
// outranks delay; among ineligible rows a near-miss delay outranks silence.
func aggregateReason(matches []Match, eligible bool) Reason {
	if eligible {
		for _, m := range matches {
			if m.Eligible && m.Reason == ReasonFlightCancelled {
				return ReasonFlightCancelled
			}
		}
		return ReasonFlightDelayed
	}
	for _, m := range matches {
		if m.Reason == ReasonDelayBelowThreshold {
			return ReasonDelayBelowThreshold
		}
	}
	return ReasonNoDisruption
}
