package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/TrustPay/internal/infrastructure/observability"
	"github.com/segmentio/kafka-go"
)

// Event is a domain event published after a successful write.
type Event struct {
	Type      string      `json:"event_type"`
	Key       int64       `json:"-"`
	Payload   interface{} `json:"payload"`
	CreatedAt time.Time   `json:"created_at"`
}

const (
	EventUserRegistered           = "user_registered"
	EventTransactionInitiated     = "transaction_initiated"
	EventTransactionStatusChanged = "transaction_status_changed"
	EventTransactionDeleted       = "transaction_deleted"
	EventStoreCreated             = "store_created"
	EventStoreUpdated             = "store_updated"
	EventStoreDeleted             = "store_deleted"
)

//go:generate mockgen -destination=mocks/mock_publisher.go -package=mocks github.com/honeynil/TrustPay/internal/infrastructure/kafka Publisher

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type Producer struct {
	writer *kafka.Writer
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		Async:        true,
		RequiredAcks: kafka.RequireOne,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				slog.Error("failed to deliver Kafka messages", "topic", topic, "count", len(messages), "error", err)
			}
		},
	}
	return &Producer{writer: writer, topic: topic}
}

func (p *Producer) Publish(ctx context.Context, event Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		observability.EventsPublished.WithLabelValues(event.Type, "error").Inc()
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", event.Key)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		observability.EventsPublished.WithLabelValues(event.Type, "error").Inc()
		slog.Error("failed to send Kafka message", "topic", p.topic, "event_type", event.Type, "key", event.Key, "error", err)
		return err
	}
	observability.EventsPublished.WithLabelValues(event.Type, "success").Inc()
	slog.Info("Kafka message sent", "topic", p.topic, "event_type", event.Type, "key", event.Key)
	return nil
}

func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		slog.Error("failed to close Kafka writer", "error", err)
		return err
	}
	slog.Info("Kafka writer closed")
	return nil
}

// NopPublisher drops events; used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
