// Package friendships implements the friendship relationship store: pairwise
// relationship records between users and their status lifecycle.
//
// Status changes are unconstrained: Accept, Reject and Block succeed from any
// current status. Callers decide who may invoke which transition.
package friendships

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/communiconnect/backend/internal/logging"
	"github.com/communiconnect/backend/internal/models"
	"github.com/communiconnect/backend/internal/repositories"
)

var (
	// ErrInvalidArgument covers self-friendship, malformed identifiers and oversized messages.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDuplicateRelationship indicates a record already exists for the pair in either direction.
	ErrDuplicateRelationship = errors.New("relationship already exists")
	// ErrNotFound indicates the relationship (or a referenced user) does not exist.
	ErrNotFound = errors.New("not found")
)

// Repository is the persistence contract the store is built on.
type Repository interface {
	Create(ctx context.Context, friendship models.Friendship) error
	FindByID(ctx context.Context, id string) (models.Friendship, error)
	FindBetween(ctx context.Context, userA, userB string) (models.Friendship, error)
	ListAccepted(ctx context.Context, userID string) ([]models.FriendshipView, error)
	ListPendingIncoming(ctx context.Context, userID string) ([]models.FriendshipView, error)
	ListPendingOutgoing(ctx context.Context, userID string) ([]models.FriendshipView, error)
	UpdateStatus(ctx context.Context, id string, status models.FriendshipStatus, at time.Time) (models.Friendship, error)
}

// EventPublisher receives an event after each committed mutation.
type EventPublisher interface {
	Publish(ctx context.Context, event models.FriendshipEvent) error
}

// Observer is told the outcome of every operation.
type Observer interface {
	ObserveOperation(operation, outcome string)
	ObservePublishFailure(eventType string)
}

// Service is the friendship relationship store.
type Service struct {
	repo     Repository
	events   EventPublisher
	observer Observer
	now      func() time.Time
	newID    func() string
}

// Option customises a Service.
type Option func(*Service)

// WithEventPublisher sets the destination for friendship events.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides how new relationship IDs are minted.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService constructs a store over repo.
func NewService(repo Repository, opts ...Option) *Service {
	if repo == nil {
		panic("friendships: repository must not be nil")
	}
	s := &Service{
		repo:  repo,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindRelationship returns the record for the unordered pair {userA, userB}.
// The boolean is false when no record exists.
func (s *Service) FindRelationship(ctx context.Context, userA, userB string) (models.Friendship, bool, error) {
	a, b, err := parseUserIDs(userA, userB)
	if err != nil {
		s.observe("find", err)
		return models.Friendship{}, false, err
	}

	friendship, err := s.repo.FindBetween(ctx, a, b)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.observe("find", nil)
			return models.Friendship{}, false, nil
		}
		err = translate(err)
		s.observe("find", err)
		return models.Friendship{}, false, err
	}

	s.observe("find", nil)
	return friendship, true, nil
}

// AreFriends reports whether an accepted relationship exists for the pair.
func (s *Service) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	friendship, ok, err := s.FindRelationship(ctx, userA, userB)
	if err != nil || !ok {
		return false, err
	}
	return friendship.Status == models.FriendshipAccepted, nil
}

// Get loads a relationship by ID.
func (s *Service) Get(ctx context.Context, id string) (models.Friendship, error) {
	id, err := parseID("relationship id", id)
	if err != nil {
		s.observe("get", err)
		return models.Friendship{}, err
	}

	friendship, err := s.repo.FindByID(ctx, id)
	if err != nil {
		err = translate(err)
		s.observe("get", err)
		return models.Friendship{}, err
	}
	s.observe("get", nil)
	return friendship, nil
}

// ListAcceptedFriends returns the accepted relationships of userID, each with
// the other party's profile. Order is unspecified.
func (s *Service) ListAcceptedFriends(ctx context.Context, userID string) ([]models.FriendshipView, error) {
	return s.list(ctx, "list_accepted", userID, s.repo.ListAccepted)
}

// ListPendingIncoming returns pending requests addressed to userID.
func (s *Service) ListPendingIncoming(ctx context.Context, userID string) ([]models.FriendshipView, error) {
	return s.list(ctx, "list_incoming", userID, s.repo.ListPendingIncoming)
}

// ListPendingOutgoing returns pending requests sent by userID.
func (s *Service) ListPendingOutgoing(ctx context.Context, userID string) ([]models.FriendshipView, error) {
	return s.list(ctx, "list_outgoing", userID, s.repo.ListPendingOutgoing)
}

// CreateRequest records a pending request from requester to recipient.
func (s *Service) CreateRequest(ctx context.Context, requester, recipient, message string) (models.Friendship, error) {
	ctx, span := logging.StartSpan(ctx, "friendships.create_request")
	defer span.End()

	friendship, err := s.createRequest(ctx, requester, recipient, message)
	s.observe("create_request", err)
	if err != nil {
		span.RecordError(err)
		return models.Friendship{}, err
	}

	s.publish(ctx, models.EventFriendshipRequested, friendship)
	return friendship, nil
}

func (s *Service) createRequest(ctx context.Context, requester, recipient, message string) (models.Friendship, error) {
	requester, recipient, err := parseUserIDs(requester, recipient)
	if err != nil {
		return models.Friendship{}, err
	}
	if requester == recipient {
		return models.Friendship{}, fmt.Errorf("%w: cannot send a friend request to yourself", ErrInvalidArgument)
	}
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) > models.MaxFriendshipMessageLength {
		return models.Friendship{}, fmt.Errorf("%w: message exceeds %d characters", ErrInvalidArgument, models.MaxFriendshipMessageLength)
	}

	// Early answer for the common case; the pair index still arbitrates races.
	existing, err := s.repo.FindBetween(ctx, requester, recipient)
	switch {
	case err == nil:
		return models.Friendship{}, fmt.Errorf("%w: relationship %s is %s", ErrDuplicateRelationship, existing.ID, existing.Status)
	case !errors.Is(err, repositories.ErrNotFound):
		return models.Friendship{}, translate(err)
	}

	now := s.now()
	friendship := models.Friendship{
		ID:        s.newID(),
		Requester: requester,
		Recipient: recipient,
		Status:    models.FriendshipPending,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, friendship); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Friendship{}, fmt.Errorf("user %w", ErrNotFound)
		}
		return models.Friendship{}, translate(err)
	}

	logging.FromContext(ctx).Info("friend request created", "friendshipId", friendship.ID, "requester", requester, "recipient", recipient)
	return friendship, nil
}

// Accept marks the relationship accepted.
func (s *Service) Accept(ctx context.Context, id string) (models.Friendship, error) {
	return s.transition(ctx, "accept", id, models.FriendshipAccepted, models.EventFriendshipAccepted)
}

// Reject marks the relationship rejected.
func (s *Service) Reject(ctx context.Context, id string) (models.Friendship, error) {
	return s.transition(ctx, "reject", id, models.FriendshipRejected, models.EventFriendshipRejected)
}

// Block marks the relationship blocked.
func (s *Service) Block(ctx context.Context, id string) (models.Friendship, error) {
	return s.transition(ctx, "block", id, models.FriendshipBlocked, models.EventFriendshipBlocked)
}

func (s *Service) transition(ctx context.Context, op, id string, status models.FriendshipStatus, eventType string) (models.Friendship, error) {
	ctx, span := logging.StartSpan(ctx, "friendships."+op)
	defer span.End()

	id, err := parseID("relationship id", id)
	if err != nil {
		span.RecordError(err)
		s.observe(op, err)
		return models.Friendship{}, err
	}

	friendship, err := s.repo.UpdateStatus(ctx, id, status, s.now())
	if err != nil {
		err = translate(err)
		span.RecordError(err)
		s.observe(op, err)
		return models.Friendship{}, err
	}

	s.observe(op, nil)
	logging.FromContext(ctx).Info("friendship status changed", "friendshipId", friendship.ID, "status", friendship.Status)
	s.publish(ctx, eventType, friendship)
	return friendship, nil
}

func (s *Service) list(ctx context.Context, op, userID string, fetch func(context.Context, string) ([]models.FriendshipView, error)) ([]models.FriendshipView, error) {
	userID, err := parseID("user id", userID)
	if err != nil {
		s.observe(op, err)
		return nil, err
	}

	views, err := fetch(ctx, userID)
	if err != nil {
		err = translate(err)
		s.observe(op, err)
		return nil, err
	}
	if views == nil {
		views = []models.FriendshipView{}
	}
	s.observe(op, nil)
	return views, nil
}

func (s *Service) publish(ctx context.Context, eventType string, friendship models.Friendship) {
	if s.events == nil {
		return
	}
	event := models.FriendshipEvent{
		Type:         eventType,
		FriendshipID: friendship.ID,
		Requester:    friendship.Requester,
		Recipient:    friendship.Recipient,
		Status:       friendship.Status,
		OccurredAt:   friendship.UpdatedAt,
	}
	// Events outlive the request that caused them.
	if err := s.events.Publish(context.WithoutCancel(ctx), event); err != nil {
		logging.FromContext(ctx).Warn("friendship event not published", "type", eventType, "friendshipId", friendship.ID, "error", err)
		if s.observer != nil {
			s.observer.ObservePublishFailure(eventType)
		}
	}
}

func (s *Service) observe(op string, err error) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveOperation(op, Outcome(err))
}

// Outcome classifies err into a short label for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, ErrDuplicateRelationship):
		return "duplicate"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// translate maps repository sentinels onto store errors and leaves
// infrastructure failures untouched.
func translate(err error) error {
	switch {
	case errors.Is(err, repositories.ErrConflict):
		return fmt.Errorf("%w: %v", ErrDuplicateRelationship, err)
	case errors.Is(err, repositories.ErrNotFound):
		return fmt.Errorf("relationship %w", ErrNotFound)
	case errors.Is(err, repositories.ErrInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	default:
		return err
	}
}

func parseUserIDs(a, b string) (string, string, error) {
	a, err := parseID("user id", a)
	if err != nil {
		return "", "", err
	}
	b, err = parseID("user id", b)
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

// parseID accepts any UUID spelling and returns its canonical form, so the
// same user is never stored under two keys.
func parseID(what, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidArgument, what)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s %q is malformed", ErrInvalidArgument, what, raw)
	}
	return id.String(), nil
}
