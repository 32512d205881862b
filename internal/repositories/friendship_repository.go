package repositories

import (
	"context"
	"time"

	"github.com/communiconnect/backend/internal/models"
)

// FriendshipRepository defines data access for friendship records.
type FriendshipRepository interface {
	Create(ctx context.Context, friendship models.Friendship) error
	FindByID(ctx context.Context, id string) (models.Friendship, error)
	FindBetween(ctx context.Context, userA, userB string) (models.Friendship, error)
	ListAccepted(ctx context.Context, userID string) ([]models.FriendshipView, error)
	ListPendingIncoming(ctx context.Context, userID string) ([]models.FriendshipView, error)
	ListPendingOutgoing(ctx context.Context, userID string) ([]models.FriendshipView, error)
	UpdateStatus(ctx context.Context, id string, status models.FriendshipStatus, at time.Time) (models.Friendship, error)
}
