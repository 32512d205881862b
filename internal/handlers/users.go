package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/communiconnect/backend/internal/logging"
)

// DefaultMaxAvatarSize applies when UserHandler.MaxAvatarSize is unset.
const DefaultMaxAvatarSize = 5 << 20

var avatarExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// UserHandler serves profile lookups and avatar uploads.
type UserHandler struct {
	Users         UserStore
	Avatars       AvatarStorage
	MaxAvatarSize int64
	NowFunc       func() time.Time
}

// Profile handles GET /api/v1/users/{id}. Callers see their own email; other
// users only see the public profile.
func (h UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorID(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "malformed user id")
		return
	}

	user, err := h.Users.FindByID(ctx, id.String())
	if err != nil {
		respondStoreError(ctx, w, err, "failed to load user")
		return
	}

	if user.ID == actor {
		respondData(ctx, w, http.StatusOK, user)
		return
	}
	respondData(ctx, w, http.StatusOK, user.Profile())
}

// UploadAvatar handles PUT /api/v1/users/me/avatar. The body is the raw image.
func (h UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	actor, ok := actorID(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if h.Avatars == nil {
		logger.Error("avatar storage unavailable")
		respondError(ctx, w, http.StatusServiceUnavailable, "avatar uploads are disabled")
		return
	}

	contentType := strings.ToLower(strings.TrimSpace(strings.Split(r.Header.Get("Content-Type"), ";")[0]))
	ext, ok := avatarExtensions[contentType]
	if !ok {
		respondError(ctx, w, http.StatusUnsupportedMediaType, "avatar must be png, jpeg, webp or gif")
		return
	}

	limit := h.MaxAvatarSize
	if limit <= 0 {
		limit = DefaultMaxAvatarSize
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(ctx, w, http.StatusRequestEntityTooLarge, fmt.Sprintf("avatar exceeds %d bytes", limit))
			return
		}
		logger.Warn("read avatar body", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body) == 0 {
		respondError(ctx, w, http.StatusBadRequest, "avatar body is empty")
		return
	}

	key := fmt.Sprintf("avatars/%s/%s.%s", actor, uuid.NewString(), ext)
	location, err := h.Avatars.Save(ctx, key, contentType, bytes.NewReader(body))
	if err != nil {
		logger.Error("store avatar", "key", key, "error", err)
		respondError(ctx, w, http.StatusBadGateway, "failed to store avatar")
		return
	}

	if err := h.Users.UpdateAvatar(ctx, actor, location, h.now()); err != nil {
		respondStoreError(ctx, w, err, "failed to update avatar")
		return
	}

	logger.Info("avatar updated", "location", location)
	respondData(ctx, w, http.StatusOK, map[string]string{"avatar": location})
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
