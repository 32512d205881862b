package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kgo "github.com/segmentio/kafka-go"

	"github.com/communiconnect/backend/internal/models"
)

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kgo.Message) error
	Close() error
}

// KafkaPublisher writes friendship events to a Kafka topic keyed by friendship
// ID, so every change to one relationship lands on the same partition.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher: at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher: topic is required")
	}

	w := &kgo.Writer{
		Addr:         kgo.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kgo.Hash{},
		RequiredAcks: kgo.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaPublisher{w: w}, nil
}

// Publish encodes the event as JSON and writes it synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, event models.FriendshipEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode friendship event: %w", err)
	}

	msg := kgo.Message{
		Key:   []byte(event.FriendshipID),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kgo.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write friendship event: %w", err)
	}
	return nil
}

// Close flushes pending writes and releases the connection.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
