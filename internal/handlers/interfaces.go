package handlers

import (
	"context"
	"io"
	"time"

	"github.com/communiconnect/backend/internal/models"
)

// FriendshipStore captures the relationship operations exposed over HTTP.
type FriendshipStore interface {
	FindRelationship(ctx context.Context, userA, userB string) (models.Friendship, bool, error)
	Get(ctx context.Context, id string) (models.Friendship, error)
	ListAcceptedFriends(ctx context.Context, userID string) ([]models.FriendshipView, error)
	ListPendingIncoming(ctx context.Context, userID string) ([]models.FriendshipView, error)
	ListPendingOutgoing(ctx context.Context, userID string) ([]models.FriendshipView, error)
	CreateRequest(ctx context.Context, requester, recipient, message string) (models.Friendship, error)
	Accept(ctx context.Context, id string) (models.Friendship, error)
	Reject(ctx context.Context, id string) (models.Friendship, error)
	Block(ctx context.Context, id string) (models.Friendship, error)
}

// UserStore captures the profile lookups and updates required by the user handlers.
type UserStore interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	UpdateAvatar(ctx context.Context, id, avatar string, at time.Time) error
}

// AvatarStorage persists uploaded avatar images and returns their public location.
type AvatarStorage interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}
