// Package kafka provides the event bus client. The rest of the service talks
// to small publish/subscribe interfaces; this package binds them to Kafka via
// franz-go.
package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"claimcheck/internal/platform/config"
)

// Publisher produces messages to Kafka topics. Safe for concurrent use.
type Publisher struct {
	client *kgo.Client
	logger *slog.Logger
}

// NewPublisher connects a producer-only client to the configured brokers.
func NewPublisher(cfg config.Kafka, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &Publisher{client: client, logger: logger}, nil
}

// Publish produces a single message and waits for broker acknowledgement.
// Retry policy belongs to callers; this method reports the first failure.
func (p *Publisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	rec := &kgo.Record{Topic: topic, Key: key, Value: value}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (p *Publisher) Close() {
	p.client.Close()
}
