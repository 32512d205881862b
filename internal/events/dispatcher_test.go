package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/communiconnect/backend/internal/models"
)

type recordingSink struct {
	mu      sync.Mutex
	events  []models.FriendshipEvent
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *recordingSink) Publish(ctx context.Context, event models.FriendshipEvent) error {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type countingObserver struct {
	mu       sync.Mutex
	failures map[string]int
}

func (o *countingObserver) ObservePublishFailure(eventType string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failures == nil {
		o.failures = make(map[string]int)
	}
	o.failures[eventType]++
}

func (o *countingObserver) get(eventType string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failures[eventType]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvent(id, kind string) models.FriendshipEvent {
	return models.FriendshipEvent{
		Type:         kind,
		FriendshipID: id,
		Requester:    "requester",
		Recipient:    "recipient",
		Status:       models.FriendshipPending,
		OccurredAt:   time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDispatcherDeliversQueuedEventsOnShutdown(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, DispatcherConfig{QueueSize: 8, Workers: 2}, nil, discardLogger())

	for _, id := range []string{"a", "b", "c"} {
		if err := d.Publish(context.Background(), testEvent(id, models.EventFriendshipRequested)); err != nil {
			t.Fatalf("publish %s: %v", id, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if got := sink.count(); got != 3 {
		t.Fatalf("expected 3 delivered events got %d", got)
	}

	if err := d.Publish(context.Background(), testEvent("d", models.EventFriendshipAccepted)); !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("expected ErrDispatcherClosed got %v", err)
	}
}

func TestDispatcherObservesSinkFailures(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker unavailable")}
	observer := &countingObserver{}
	d := NewDispatcher(sink, DispatcherConfig{QueueSize: 4, Workers: 1}, observer, discardLogger())

	if err := d.Publish(context.Background(), testEvent("a", models.EventFriendshipBlocked)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if got := observer.get(models.EventFriendshipBlocked); got != 1 {
		t.Fatalf("expected 1 observed failure got %d", got)
	}
}

func TestDispatcherRejectsWhenQueueFull(t *testing.T) {
	sink := &recordingSink{started: make(chan struct{}, 4), release: make(chan struct{})}
	observer := &countingObserver{}
	d := NewDispatcher(sink, DispatcherConfig{QueueSize: 1, Workers: 1}, observer, discardLogger())

	if err := d.Publish(context.Background(), testEvent("a", models.EventFriendshipRequested)); err != nil {
		t.Fatalf("publish first: %v", err)
	}
	<-sink.started

	if err := d.Publish(context.Background(), testEvent("b", models.EventFriendshipRequested)); err != nil {
		t.Fatalf("publish second: %v", err)
	}
	if err := d.Publish(context.Background(), testEvent("c", models.EventFriendshipRequested)); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull got %v", err)
	}
	if got := observer.get(models.EventFriendshipRequested); got != 0 {
		t.Fatalf("expected queue overflow to be left to the caller, observed %d", got)
	}

	close(sink.release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if got := sink.count(); got != 2 {
		t.Fatalf("expected 2 delivered events got %d", got)
	}
}

func TestDispatcherPublishIgnoresCanceledContext(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, DispatcherConfig{}, nil, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.Publish(ctx, testEvent("a", models.EventFriendshipRequested)); err != nil {
		t.Fatalf("expected event to be queued despite canceled context, got %v", err)
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	if err := d.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if got := sink.count(); got != 1 {
		t.Fatalf("expected 1 delivered event got %d", got)
	}
}
