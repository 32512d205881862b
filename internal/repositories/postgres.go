package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/communiconnect/backend/internal/db"
	"github.com/communiconnect/backend/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, email, first_name, last_name, avatar, neighborhood, municipality, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Email, user.FirstName, user.LastName, user.Avatar, user.Neighborhood, user.Municipality, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if mapped := translatePgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, email, first_name, last_name, avatar, neighborhood, municipality, created_at, updated_at
        FROM users
        WHERE id = $1
    `, id)

	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.Avatar, &user.Neighborhood, &user.Municipality, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		if mapped := translatePgError(err); mapped != nil {
			return models.User{}, mapped
		}
		return models.User{}, fmt.Errorf("select user by id: %w", err)
	}

	return user, nil
}

// UpdateAvatar replaces the avatar location for a user.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id, avatar string, at time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET avatar = $2, updated_at = $3
        WHERE id = $1
    `, id, avatar, at)
	if err != nil {
		if mapped := translatePgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("update user avatar: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// PostgresFriendshipRepository provides PostgreSQL-backed persistence for friendships.
type PostgresFriendshipRepository struct {
	pool db.Pool
}

// NewPostgresFriendshipRepository constructs a friendship repository backed by PostgreSQL.
func NewPostgresFriendshipRepository(pool db.Pool) *PostgresFriendshipRepository {
	return &PostgresFriendshipRepository{pool: pool}
}

const friendshipColumns = `f.id, f.requester_id, f.recipient_id, f.status, f.message, f.created_at, f.updated_at`

// Create persists a new friendship. Either uniqueness index rejecting the row
// surfaces as ErrConflict.
func (r *PostgresFriendshipRepository) Create(ctx context.Context, friendship models.Friendship) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO friendships (id, requester_id, recipient_id, status, message, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, friendship.ID, friendship.Requester, friendship.Recipient, string(friendship.Status), friendship.Message, friendship.CreatedAt, friendship.UpdatedAt)
	if err != nil {
		if mapped := translatePgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert friendship: %w", err)
	}

	return nil
}

// FindByID loads a single friendship.
func (r *PostgresFriendshipRepository) FindByID(ctx context.Context, id string) (models.Friendship, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Friendship{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+friendshipColumns+`
        FROM friendships f
        WHERE f.id = $1
    `, id)

	friendship, err := scanFriendship(row)
	if err != nil {
		return models.Friendship{}, fmt.Errorf("select friendship by id: %w", err)
	}
	return friendship, nil
}

// FindBetween loads the friendship for the unordered pair, in either direction.
func (r *PostgresFriendshipRepository) FindBetween(ctx context.Context, userA, userB string) (models.Friendship, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Friendship{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+friendshipColumns+`
        FROM friendships f
        WHERE (f.requester_id = $1 AND f.recipient_id = $2)
           OR (f.requester_id = $2 AND f.recipient_id = $1)
        LIMIT 1
    `, userA, userB)

	friendship, err := scanFriendship(row)
	if err != nil {
		return models.Friendship{}, fmt.Errorf("select friendship between users: %w", err)
	}
	return friendship, nil
}

// ListAccepted returns accepted friendships involving the user, each joined
// with the other party's profile.
func (r *PostgresFriendshipRepository) ListAccepted(ctx context.Context, userID string) ([]models.FriendshipView, error) {
	return r.listViews(ctx, "accepted friendships", `
        SELECT `+friendshipColumns+`,
               u.id, u.first_name, u.last_name, u.avatar, u.neighborhood, u.municipality
        FROM friendships f
        JOIN users u ON u.id = CASE WHEN f.requester_id = $1 THEN f.recipient_id ELSE f.requester_id END
        WHERE (f.requester_id = $1 OR f.recipient_id = $1)
          AND f.status = 'accepted'
    `, userID)
}

// ListPendingIncoming returns pending requests addressed to the user.
func (r *PostgresFriendshipRepository) ListPendingIncoming(ctx context.Context, userID string) ([]models.FriendshipView, error) {
	return r.listViews(ctx, "incoming friend requests", `
        SELECT `+friendshipColumns+`,
               u.id, u.first_name, u.last_name, u.avatar, u.neighborhood, u.municipality
        FROM friendships f
        JOIN users u ON u.id = f.requester_id
        WHERE f.recipient_id = $1
          AND f.status = 'pending'
        ORDER BY f.created_at DESC
    `, userID)
}

// ListPendingOutgoing returns pending requests sent by the user.
func (r *PostgresFriendshipRepository) ListPendingOutgoing(ctx context.Context, userID string) ([]models.FriendshipView, error) {
	return r.listViews(ctx, "outgoing friend requests", `
        SELECT `+friendshipColumns+`,
               u.id, u.first_name, u.last_name, u.avatar, u.neighborhood, u.municipality
        FROM friendships f
        JOIN users u ON u.id = f.recipient_id
        WHERE f.requester_id = $1
          AND f.status = 'pending'
        ORDER BY f.created_at DESC
    `, userID)
}

// UpdateStatus sets the status and updated_at of a friendship and returns the
// stored record.
func (r *PostgresFriendshipRepository) UpdateStatus(ctx context.Context, id string, status models.FriendshipStatus, at time.Time) (models.Friendship, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Friendship{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE friendships AS f
        SET status = $2, updated_at = $3
        WHERE f.id = $1
        RETURNING `+friendshipColumns+`
    `, id, string(status), at)

	friendship, err := scanFriendship(row)
	if err != nil {
		return models.Friendship{}, fmt.Errorf("update friendship status: %w", err)
	}
	return friendship, nil
}

func (r *PostgresFriendshipRepository) listViews(ctx context.Context, what, query string, userID string) ([]models.FriendshipView, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, userID)
	if err != nil {
		if mapped := translatePgError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("query %s: %w", what, err)
	}
	defer rows.Close()

	views := []models.FriendshipView{}
	for rows.Next() {
		var (
			view   models.FriendshipView
			status string
		)
		if err := rows.Scan(
			&view.ID, &view.Requester, &view.Recipient, &status, &view.Message, &view.CreatedAt, &view.UpdatedAt,
			&view.Counterpart.ID, &view.Counterpart.FirstName, &view.Counterpart.LastName,
			&view.Counterpart.Avatar, &view.Counterpart.Neighborhood, &view.Counterpart.Municipality,
		); err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		view.Status = models.FriendshipStatus(status)
		view.CreatedAt = view.CreatedAt.UTC()
		view.UpdatedAt = view.UpdatedAt.UTC()
		views = append(views, view)
	}

	if err := rows.Err(); err != nil {
		if mapped := translatePgError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}

	return views, nil
}

// scanFriendship reads one friendship row, mapping a missing row to
// ErrNotFound and constraint codes to their sentinels.
func scanFriendship(row pgx.Row) (models.Friendship, error) {
	var (
		friendship models.Friendship
		status     string
	)
	err := row.Scan(&friendship.ID, &friendship.Requester, &friendship.Recipient, &status, &friendship.Message, &friendship.CreatedAt, &friendship.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Friendship{}, ErrNotFound
		}
		if mapped := translatePgError(err); mapped != nil {
			return models.Friendship{}, mapped
		}
		return models.Friendship{}, err
	}
	friendship.Status = models.FriendshipStatus(status)
	friendship.CreatedAt = friendship.CreatedAt.UTC()
	friendship.UpdatedAt = friendship.UpdatedAt.UTC()
	return friendship, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ FriendshipRepository = (*PostgresFriendshipRepository)(nil)
