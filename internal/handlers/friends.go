package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/communiconnect/backend/internal/logging"
	"github.com/communiconnect/backend/internal/models"
)

// maxFriendRequestBody bounds the JSON body of a friend request.
const maxFriendRequestBody = 8 << 10

// FriendHandler provides friend request and listing endpoints. Every route
// expects an authenticated caller on the request context.
type FriendHandler struct {
	Friends FriendshipStore
	Limiter RateLimiter
}

type createRequestPayload struct {
	RecipientID string `json:"recipientId"`
	Message     string `json:"message"`
}

type relationshipStatus struct {
	Exists     bool               `json:"exists"`
	Friendship *models.Friendship `json:"friendship,omitempty"`
}

// List handles GET /api/v1/friends.
func (h FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "failed to list friends", h.Friends.ListAcceptedFriends)
}

// Incoming handles GET /api/v1/friends/requests/incoming.
func (h FriendHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "failed to list incoming requests", h.Friends.ListPendingIncoming)
}

// Outgoing handles GET /api/v1/friends/requests/outgoing.
func (h FriendHandler) Outgoing(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "failed to list outgoing requests", h.Friends.ListPendingOutgoing)
}

func (h FriendHandler) list(w http.ResponseWriter, r *http.Request, failure string, fetch func(ctx context.Context, userID string) ([]models.FriendshipView, error)) {
	ctx := r.Context()
	actor, ok := actorID(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	views, err := fetch(ctx, actor)
	if err != nil {
		respondStoreError(ctx, w, err, failure)
		return
	}
	respondData(ctx, w, http.StatusOK, views)
}

// Status handles GET /api/v1/friends/status?user={id} and reports the
// relationship between the caller and the given user, if any.
func (h FriendHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorID(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	other := strings.TrimSpace(r.URL.Query().Get("user"))
	if other == "" {
		respondError(ctx, w, http.StatusBadRequest, "user query parameter is required")
		return
	}

	friendship, exists, err := h.Friends.FindRelationship(ctx, actor, other)
	if err != nil {
		respondStoreError(ctx, w, err, "failed to load relationship")
		return
	}

	payload := relationshipStatus{Exists: exists}
	if exists {
		payload.Friendship = &friendship
	}
	respondData(ctx, w, http.StatusOK, payload)
}

// Create handles POST /api/v1/friends/requests.
func (h FriendHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	actor, ok := actorID(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if !allowRequest(h.Limiter, r, "friend-request") {
		logger.Warn("friend request rate limited")
		respondError(ctx, w, http.StatusTooManyRequests, "too many friend requests, try again later")
		return
	}

	var req createRequestPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFriendRequestBody)).Decode(&req); err != nil {
		logger.Warn("invalid friend request payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	friendship, err := h.Friends.CreateRequest(ctx, actor, req.RecipientID, req.Message)
	if err != nil {
		respondStoreError(ctx, w, err, "failed to create friend request")
		return
	}
	respondData(ctx, w, http.StatusCreated, friendship)
}

// Accept handles POST /api/v1/friends/{id}/accept. Only the recipient may accept.
func (h FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "accept", recipientOnly, h.Friends.Accept)
}

// Reject handles POST /api/v1/friends/{id}/reject. Only the recipient may reject.
func (h FriendHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reject", recipientOnly, h.Friends.Reject)
}

// Block handles POST /api/v1/friends/{id}/block. Either party may block.
func (h FriendHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "block", eitherParty, h.Friends.Block)
}

type transitionRule func(f models.Friendship, actor string) bool

func recipientOnly(f models.Friendship, actor string) bool { return f.Recipient == actor }

func eitherParty(f models.Friendship, actor string) bool { return f.Involves(actor) }

func (h FriendHandler) transition(w http.ResponseWriter, r *http.Request, action string, allowed transitionRule, apply func(ctx context.Context, id string) (models.Friendship, error)) {
	ctx := r.Context()
	actor, ok := actorID(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	id := r.PathValue("id")
	current, err := h.Friends.Get(ctx, id)
	if err != nil {
		respondStoreError(ctx, w, err, "failed to load relationship")
		return
	}

	// Non-parties get the same answer as a missing record.
	if !current.Involves(actor) {
		respondError(ctx, w, http.StatusNotFound, "relationship not found")
		return
	}
	if !allowed(current, actor) {
		logging.FromContext(ctx).Warn("friendship transition forbidden", "action", action, "friendshipId", current.ID)
		respondError(ctx, w, http.StatusForbidden, "not permitted to "+action+" this request")
		return
	}

	updated, err := apply(ctx, current.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "failed to "+action+" friend request")
		return
	}
	respondData(ctx, w, http.StatusOK, updated)
}
