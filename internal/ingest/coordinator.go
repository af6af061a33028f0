// Package ingest accepts claim batch files and hands them to the processing
// pipeline over the event bus. The ledger is the source of truth for batch
// state; the bus is fire-and-forget once the intake event is acknowledged.
package ingest

//go:generate mockgen -source=coordinator.go -destination=mocks/mocks.go -package=mocks Publisher,Ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"claimcheck/internal/batch"
	dErrors "claimcheck/pkg/domain-errors"
	"claimcheck/pkg/platform/sentinel"
	"claimcheck/pkg/requestcontext"
)

var (
	batchesSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimcheck_batches_submitted_total",
		Help: "Total batch submissions by result",
	}, []string{"result"}) // result: "dispatched", "failed"
)

// Publisher produces one message to the event bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Ledger records batch lifecycle state.
type Ledger interface {
	Register(ctx context.Context, sourceFileRef string) (*batch.Record, error)
	Transition(ctx context.Context, id uuid.UUID, to batch.State, counters batch.Counters) (*batch.Record, error)
	Get(ctx context.Context, id uuid.UUID) (*batch.Record, error)
}

// intakePayload is the wire shape on the intake topic.
type intakePayload struct {
	BatchID       string    `json:"batchId"`
	SourceFileRef string    `json:"sourceFileRef"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// Coordinator registers batches and dispatches intake events with bounded
// retry. A batch that cannot be dispatched is marked FAILED so its ID never
// dangles in REGISTERED.
type Coordinator struct {
	ledger      Ledger
	publisher   Publisher
	topic       string
	logger      *slog.Logger
	tracer      trace.Tracer
	maxAttempts int
	baseDelay   time.Duration
}

type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithPublishRetry tunes the intake publish retry budget. maxAttempts counts
// the first try.
func WithPublishRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *Coordinator) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if baseDelay > 0 {
			c.baseDelay = baseDelay
		}
	}
}

func New(ledger Ledger, publisher Publisher, topic string, opts ...Option) (*Coordinator, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("intake topic is required")
	}

	c := &Coordinator{
		ledger:      ledger,
		publisher:   publisher,
		topic:       topic,
		logger:      slog.Default(),
		tracer:      otel.Tracer("claimcheck/ingest"),
		maxAttempts: 5,
		baseDelay:   100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SubmitBatch registers a batch and publishes its intake event. On success the
// batch is DISPATCHED; if every publish attempt fails the batch is marked
// FAILED and an unavailable error is returned.
func (c *Coordinator) SubmitBatch(ctx context.Context, sourceFileRef string) (*batch.Record, error) {
	ctx, span := c.tracer.Start(ctx, "ingest.SubmitBatch")
	defer span.End()

	if sourceFileRef == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "source file reference is required")
	}

	rec, err := c.ledger.Register(ctx, sourceFileRef)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register batch")
	}

	payload, err := json.Marshal(intakePayload{
		BatchID:       rec.ID.String(),
		SourceFileRef: rec.SourceFileRef,
		SubmittedAt:   requestcontext.Now(ctx),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode intake event")
	}

	if err := c.publishWithRetry(ctx, rec.ID, payload); err != nil {
		batchesSubmitted.WithLabelValues("failed").Inc()
		c.logger.ErrorContext(ctx, "intake publish exhausted retries, failing batch",
			"batch_id", rec.ID,
			"error", err,
		)
		// Best effort: the batch must not stay REGISTERED forever. A failure
		// here leaves it stuck, which the status consumer can still repair.
		if _, ferr := c.ledger.Transition(ctx, rec.ID, batch.StateFailed, batch.Counters{}); ferr != nil {
			c.logger.ErrorContext(ctx, "failed to mark undispatched batch as failed",
				"batch_id", rec.ID,
				"error", ferr,
			)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "event bus unavailable")
	}

	dispatched, err := c.ledger.Transition(ctx, rec.ID, batch.StateDispatched, batch.Counters{})
	if err != nil {
		// The intake event is already on the bus; the status consumer may have
		// advanced the batch past DISPATCHED before we got here.
		c.logger.WarnContext(ctx, "batch advanced before dispatch transition",
			"batch_id", rec.ID,
			"error", err,
		)
		dispatched, err = c.ledger.Get(ctx, rec.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load batch after dispatch")
		}
	}

	batchesSubmitted.WithLabelValues("dispatched").Inc()
	c.logger.InfoContext(ctx, "batch dispatched",
		"batch_id", rec.ID,
		"source_file", sourceFileRef,
	)
	return dispatched, nil
}

func (c *Coordinator) publishWithRetry(ctx context.Context, id uuid.UUID, payload []byte) error {
	op := func() error {
		return c.publisher.Publish(ctx, c.topic, []byte(id.String()), payload)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.baseDelay
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxAttempts-1)), ctx)

	return backoff.RetryNotify(op, policy, func(err error, next time.Duration) {
		c.logger.WarnContext(ctx, "intake publish failed, retrying",
			"batch_id", id,
			"retry_in", next,
			"error", err,
		)
	})
}

// QueryStatus returns the ledger record for a batch.
func (c *Coordinator) QueryStatus(ctx context.Context, id uuid.UUID) (*batch.Record, error) {
	rec, err := c.ledger.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "batch not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load batch")
	}
	return rec, nil
}
