package models

import "time"

// FriendshipStatus enumerates the lifecycle states of a friendship record.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipRejected FriendshipStatus = "rejected"
	FriendshipBlocked  FriendshipStatus = "blocked"
)

// Valid reports whether s is one of the known statuses.
func (s FriendshipStatus) Valid() bool {
	switch s {
	case FriendshipPending, FriendshipAccepted, FriendshipRejected, FriendshipBlocked:
		return true
	}
	return false
}

// MaxFriendshipMessageLength bounds the optional note attached to a request.
const MaxFriendshipMessageLength = 500

// Friendship is a directional relationship record between two users.
type Friendship struct {
	ID        string           `json:"id"`
	Requester string           `json:"requester"`
	Recipient string           `json:"recipient"`
	Status    FriendshipStatus `json:"status"`
	Message   string           `json:"message,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Involves reports whether userID is either party to the relationship.
func (f Friendship) Involves(userID string) bool {
	return f.Requester == userID || f.Recipient == userID
}

// Counterpart returns the other party relative to userID.
func (f Friendship) Counterpart(userID string) string {
	if f.Requester == userID {
		return f.Recipient
	}
	return f.Requester
}

// UserProfile holds the public fields shown alongside a relationship.
type UserProfile struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Avatar       string `json:"avatar,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	Municipality string `json:"municipality,omitempty"`
}

// FriendshipView is a relationship enriched with the counterpart's profile.
type FriendshipView struct {
	Friendship
	Counterpart UserProfile `json:"counterpart"`
}

// User represents a CommuniConnect account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Avatar       string    `json:"avatar,omitempty"`
	Neighborhood string    `json:"neighborhood,omitempty"`
	Municipality string    `json:"municipality,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile returns the public projection of the account.
func (u User) Profile() UserProfile {
	return UserProfile{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Avatar:       u.Avatar,
		Neighborhood: u.Neighborhood,
		Municipality: u.Municipality,
	}
}

// Friendship event types emitted after a successful mutation.
const (
	EventFriendshipRequested = "friendship.requested"
	EventFriendshipAccepted  = "friendship.accepted"
	EventFriendshipRejected  = "friendship.rejected"
	EventFriendshipBlocked   = "friendship.blocked"
)

// FriendshipEvent describes a committed change to a friendship record.
type FriendshipEvent struct {
	Type         string           `json:"type"`
	FriendshipID string           `json:"friendshipId"`
	Requester    string           `json:"requester"`
	Recipient    string           `json:"recipient"`
	Status       FriendshipStatus `json:"status"`
	OccurredAt   time.Time        `json:"occurredAt"`
}
