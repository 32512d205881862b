package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	kgo "github.com/segmentio/kafka-go"

	"github.com/communiconnect/backend/internal/models"
)

type fakeWriter struct {
	messages []kgo.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kgo.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherPublish(t *testing.T) {
	writer := &fakeWriter{}
	pub := &KafkaPublisher{w: writer}

	event := testEvent("friendship-1", models.EventFriendshipAccepted)
	if err := pub.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(writer.messages) != 1 {
		t.Fatalf("expected 1 message got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if string(msg.Key) != "friendship-1" {
		t.Fatalf("expected key friendship-1 got %q", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != models.EventFriendshipAccepted {
		t.Fatalf("unexpected headers %+v", msg.Headers)
	}

	var decoded models.FriendshipEvent
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if decoded.Type != event.Type || decoded.FriendshipID != event.FriendshipID || !decoded.OccurredAt.Equal(event.OccurredAt) {
		t.Fatalf("unexpected payload %+v", decoded)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !writer.closed {
		t.Fatal("expected writer to be closed")
	}
}

func TestKafkaPublisherWrapsWriteErrors(t *testing.T) {
	boom := errors.New("leader not available")
	pub := &KafkaPublisher{w: &fakeWriter{err: boom}}

	if err := pub.Publish(context.Background(), testEvent("x", models.EventFriendshipRejected)); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped write error got %v", err)
	}
}

func TestNewKafkaPublisherValidation(t *testing.T) {
	if _, err := NewKafkaPublisher(nil, "topic"); err == nil {
		t.Fatal("expected error without brokers")
	}
	if _, err := NewKafkaPublisher([]string{"localhost:9092"}, ""); err == nil {
		t.Fatal("expected error without topic")
	}
	pub, err := NewKafkaPublisher([]string{"localhost:9092"}, "friendship-events")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = pub.Close()
}
