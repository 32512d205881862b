package repositories

import (
	"context"
	"time"

	"github.com/communiconnect/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	UpdateAvatar(ctx context.Context, id, avatar string, at time.Time) error
}
