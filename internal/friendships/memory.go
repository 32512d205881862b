package friendships

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/communiconnect/backend/internal/models"
	"github.com/communiconnect/backend/internal/repositories"
)

// MemoryRepository implements Repository in process memory for tests and
// local development. It enforces the same constraints as the SQL schema,
// including one record per unordered pair, and reports violations with the
// repositories sentinels.
type MemoryRepository struct {
	mu       sync.RWMutex
	records  map[string]models.Friendship
	pairs    map[[2]string]string
	profiles map[string]models.UserProfile
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records:  make(map[string]models.Friendship),
		pairs:    make(map[[2]string]string),
		profiles: make(map[string]models.UserProfile),
	}
}

// AddUser registers a profile that relationships may reference.
func (m *MemoryRepository) AddUser(profile models.UserProfile) {
	m.mu.Lock()
	m.profiles[profile.ID] = profile
	m.mu.Unlock()
}

// Create stores a new record.
func (m *MemoryRepository) Create(_ context.Context, friendship models.Friendship) error {
	if friendship.Requester == friendship.Recipient || !friendship.Status.Valid() {
		return repositories.ErrInvalid
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[friendship.Requester]; !ok {
		return repositories.ErrNotFound
	}
	if _, ok := m.profiles[friendship.Recipient]; !ok {
		return repositories.ErrNotFound
	}
	key := pairKey(friendship.Requester, friendship.Recipient)
	if _, exists := m.pairs[key]; exists {
		return repositories.ErrConflict
	}
	if _, exists := m.records[friendship.ID]; exists {
		return repositories.ErrConflict
	}

	m.records[friendship.ID] = friendship
	m.pairs[key] = friendship.ID
	return nil
}

// FindByID loads a record by ID.
func (m *MemoryRepository) FindByID(_ context.Context, id string) (models.Friendship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	friendship, ok := m.records[id]
	if !ok {
		return models.Friendship{}, repositories.ErrNotFound
	}
	return friendship, nil
}

// FindBetween loads the record for the unordered pair.
func (m *MemoryRepository) FindBetween(_ context.Context, userA, userB string) (models.Friendship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.pairs[pairKey(userA, userB)]
	if !ok {
		return models.Friendship{}, repositories.ErrNotFound
	}
	return m.records[id], nil
}

// ListAccepted returns accepted records involving userID.
func (m *MemoryRepository) ListAccepted(_ context.Context, userID string) ([]models.FriendshipView, error) {
	return m.views(userID, func(f models.Friendship) bool {
		return f.Status == models.FriendshipAccepted && f.Involves(userID)
	}), nil
}

// ListPendingIncoming returns pending records addressed to userID.
func (m *MemoryRepository) ListPendingIncoming(_ context.Context, userID string) ([]models.FriendshipView, error) {
	return m.views(userID, func(f models.Friendship) bool {
		return f.Status == models.FriendshipPending && f.Recipient == userID
	}), nil
}

// ListPendingOutgoing returns pending records sent by userID.
func (m *MemoryRepository) ListPendingOutgoing(_ context.Context, userID string) ([]models.FriendshipView, error) {
	return m.views(userID, func(f models.Friendship) bool {
		return f.Status == models.FriendshipPending && f.Requester == userID
	}), nil
}

// UpdateStatus changes the status of a record.
func (m *MemoryRepository) UpdateStatus(_ context.Context, id string, status models.FriendshipStatus, at time.Time) (models.Friendship, error) {
	if !status.Valid() {
		return models.Friendship{}, repositories.ErrInvalid
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	friendship, ok := m.records[id]
	if !ok {
		return models.Friendship{}, repositories.ErrNotFound
	}
	friendship.Status = status
	friendship.UpdatedAt = at
	m.records[id] = friendship
	return friendship, nil
}

func (m *MemoryRepository) views(userID string, match func(models.Friendship) bool) []models.FriendshipView {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.FriendshipView{}
	for _, f := range m.records {
		if !match(f) {
			continue
		}
		out = append(out, models.FriendshipView{
			Friendship:  f,
			Counterpart: m.profiles[f.Counterpart(userID)],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

var _ Repository = (*MemoryRepository)(nil)
var _ Repository = (*repositories.PostgresFriendshipRepository)(nil)
