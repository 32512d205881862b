package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/communiconnect/backend/internal/friendships"
	"github.com/communiconnect/backend/internal/logging"
	"github.com/communiconnect/backend/internal/repositories"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondData(ctx context.Context, w http.ResponseWriter, status int, data any) {
	respondJSON(ctx, w, status, envelope{Success: true, Data: data})
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	respondJSON(ctx, w, status, envelope{Success: false, Error: message})
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// statusFor maps store and repository errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, friendships.ErrInvalidArgument), errors.Is(err, repositories.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, friendships.ErrDuplicateRelationship), errors.Is(err, repositories.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, friendships.ErrNotFound), errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// conflictMessage is the only detail a client sees for a duplicate pair.
// The existing record's ID and status stay in the logs.
const conflictMessage = "relationship already exists"

// respondStoreError writes err with its mapped status. Internal failures and
// conflicts are logged in full and reported to the client generically.
func respondStoreError(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		logging.FromContext(ctx).Error(fallback, "error", err)
		respondError(ctx, w, status, fallback)
	case http.StatusConflict:
		logging.FromContext(ctx).Info("relationship conflict", "error", err)
		respondError(ctx, w, status, conflictMessage)
	default:
		respondError(ctx, w, status, err.Error())
	}
}

// actorID returns the canonical ID of the authenticated caller.
func actorID(ctx context.Context) (string, bool) {
	id, err := uuid.Parse(logging.UserIDFromContext(ctx))
	if err != nil {
		return "", false
	}
	return id.String(), true
}
