package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"claimcheck/internal/batch"
	"claimcheck/internal/platform/kafka/consumer"
	"claimcheck/pkg/platform/sentinel"
)

// statusPayload is the wire shape on the processing-status topic. Extra fields
// are ignored for forward compatibility.
type statusPayload struct {
	BatchID          string `json:"batchId"`
	RecordsProcessed int    `json:"recordsProcessed"`
	RecordsFailed    int    `json:"recordsFailed"`
	TotalRecords     int    `json:"totalRecords"`
	Outcome          string `json:"outcome"`
}

// outcomeStates maps processing outcomes to ledger states.
var outcomeStates = map[string]batch.State{
	"dispatched": batch.StateDispatched,
	"processing": batch.StateProcessing,
	"success":    batch.StateCompleted,
	"failure":    batch.StateFailed,
}

// StatusHandler advances the ledger from processing-status events. Delivery is
// at-least-once and unordered; the ledger's monotonic rule makes replays and
// stragglers no-ops, so the handler never has to deduplicate.
type StatusHandler struct {
	ledger Ledger
	logger *slog.Logger
}

func NewStatusHandler(ledger Ledger, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{ledger: ledger, logger: logger}
}

// Handle applies one processing-status event. Malformed payloads and unknown
// batch IDs return nil so the message is committed and skipped; only ledger
// store failures are returned for redelivery.
func (h *StatusHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var payload statusPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.WarnContext(ctx, "dropping malformed processing status event",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	id, err := uuid.Parse(payload.BatchID)
	if err != nil {
		h.logger.WarnContext(ctx, "dropping processing status event with bad batch id",
			"batch_id", payload.BatchID,
			"error", err,
		)
		return nil
	}

	state, ok := outcomeStates[strings.ToLower(strings.TrimSpace(payload.Outcome))]
	if !ok {
		h.logger.WarnContext(ctx, "dropping processing status event with unknown outcome",
			"batch_id", id,
			"outcome", payload.Outcome,
		)
		return nil
	}

	counters := batch.Counters{
		Processed: payload.RecordsProcessed,
		Failed:    payload.RecordsFailed,
		Total:     payload.TotalRecords,
	}

	_, err = h.ledger.Transition(ctx, id, state, counters)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrInvalidState):
		// Duplicate or out-of-order delivery; the ledger already holds a state
		// at least this far along.
		h.logger.DebugContext(ctx, "ignoring stale processing status event",
			"batch_id", id,
			"outcome", payload.Outcome,
		)
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		h.logger.WarnContext(ctx, "dropping processing status event for unknown batch",
			"batch_id", id,
		)
		return nil
	default:
		return err
	}
}
