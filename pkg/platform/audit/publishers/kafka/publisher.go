// Package kafka publishes audit events as JSON records to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "leaddesk/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client the publisher needs.
type Producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
}

// Publisher produces one record per event, keyed by action so events of a
// kind stay ordered within a partition. Produce is asynchronous; delivery
// failures are logged and dropped.
type Publisher struct {
	producer Producer
	topic    string
	logger   *slog.Logger
}

func New(producer Producer, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{producer: producer, topic: topic, logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Action),
		Value: value,
	}
	// The request context ends with the response; delivery must outlive it.
	p.producer.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("failed to deliver audit event",
				"action", event.Action,
				"topic", r.Topic,
				"request_id", event.RequestID,
				"error", err,
			)
		}
	})
	return nil
}

// Flush waits for buffered records to be delivered.
func (p *Publisher) Flush(ctx context.Context) error {
	return p.producer.Flush(ctx)
}
