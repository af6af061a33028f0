package flightstatus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"claimcheck/internal/platform/kafka/consumer"
)

// Cache is the live view updated by the subscriber and read by the resolver.
// Get returns nil without error on a miss.
type Cache interface {
	Upsert(ctx context.Context, ev Event) error
	Get(ctx context.Context, flightID string) (*Event, error)
}

// statusPayload is the wire shape on the flight-status topic. Extra fields are
// ignored for forward compatibility.
type statusPayload struct {
	FlightID     string `json:"flightId"`
	Status       string `json:"status"`
	DelayMinutes int    `json:"delayMinutes"`
	ObservedAt   string `json:"observedAt"`
}

// Subscriber feeds the live cache from the flight-status topic. Malformed
// events are logged and dropped; the subscription loop never dies because of
// one bad message.
type Subscriber struct {
	cache  Cache
	logger *slog.Logger
}

func NewSubscriber(cache Cache, logger *slog.Logger) *Subscriber {
	return &Subscriber{cache: cache, logger: logger}
}

// Handle applies one flight-status observation to the cache. Returning an
// error leaves the message uncommitted for redelivery; malformed payloads
// return nil so they are committed and skipped.
func (s *Subscriber) Handle(ctx context.Context, msg *consumer.Message) error {
	var payload statusPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		s.logger.WarnContext(ctx, "dropping malformed flight status event",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	if payload.FlightID == "" {
		s.logger.WarnContext(ctx, "dropping flight status event without flightId")
		return nil
	}

	status, ok := ParseStatus(payload.Status)
	if !ok {
		s.logger.WarnContext(ctx, "dropping flight status event with unknown status",
			"flight_id", payload.FlightID,
			"status", payload.Status,
		)
		return nil
	}

	delay := payload.DelayMinutes
	if delay < 0 {
		delay = 0
	}

	observedAt := msg.Timestamp
	if payload.ObservedAt != "" {
		ts, err := time.Parse(time.RFC3339Nano, payload.ObservedAt)
		if err != nil {
			s.logger.WarnContext(ctx, "dropping flight status event with bad observedAt",
				"flight_id", payload.FlightID,
				"observed_at", payload.ObservedAt,
				"error", err,
			)
			return nil
		}
		observedAt = ts
	}

	ev := Event{
		FlightID:     payload.FlightID,
		Status:       status,
		DelayMinutes: delay,
		ObservedAt:   observedAt,
	}
	if err := s.cache.Upsert(ctx, ev); err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "flight status cached",
		"flight_id", ev.FlightID,
		"status", ev.Status,
		"delay_minutes", ev.DelayMinutes,
	)
	return nil
}
