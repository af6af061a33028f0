// Package consumer runs the Kafka poll loop and hands records to topic
// handlers. Delivery is at-least-once: a record is marked for commit only
// after its handler returns nil, so handlers must be idempotent.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"claimcheck/internal/platform/config"
)

// Message is one record delivered from the bus. Payloads are JSON; consumers
// must ignore unknown fields for forward compatibility.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Timestamp time.Time
}

// Handler processes a single message. Returning nil commits the message;
// returning an error leaves it unmarked for redelivery. Handlers that cannot
// ever succeed on a message (malformed payload, unknown entity) should log and
// return nil so the partition is not blocked.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Consumer is a consumer-group member feeding one Handler.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

// New joins the configured consumer group for the given topics.
func New(cfg config.Kafka, topics []string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(topics...),
		kgo.AutoCommitMarks(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	return &Consumer{client: client, handler: handler, logger: logger}, nil
}

// Run polls until the context is cancelled or the client is closed. Handler
// errors are logged and the record stays uncommitted; the loop itself never
// dies because of a bad message.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		fetches.EachRecord(func(rec *kgo.Record) {
			msg := &Message{
				Topic:     rec.Topic,
				Key:       rec.Key,
				Value:     rec.Value,
				Timestamp: rec.Timestamp,
			}
			if err := c.handler.Handle(ctx, msg); err != nil {
				c.logger.Error("message handling failed, leaving uncommitted",
					"topic", rec.Topic,
					"key", string(rec.Key),
					"error", err,
				)
				return
			}
			c.client.MarkCommitRecords(rec)
		})
	}
}

// Close leaves the group and releases the client.
func (c *Consumer) Close() {
	c.client.Close()
}
