package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Database: deps.Database}
	friends := FriendHandler{Friends: deps.Friends, Limiter: deps.FriendRequestLimiter}
	users := UserHandler{Users: deps.Users, Avatars: deps.Avatars, MaxAvatarSize: deps.MaxAvatarSize}

	authed := deps.Authenticate
	if authed == nil {
		authed = func(next http.Handler) http.Handler { return next }
	}
	protect := func(fn http.HandlerFunc) http.Handler { return authed(fn) }

	mux.HandleFunc("/healthz", health.Handle)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	mux.Handle("GET /api/v1/friends", protect(friends.List))
	mux.Handle("GET /api/v1/friends/status", protect(friends.Status))
	mux.Handle("GET /api/v1/friends/requests/incoming", protect(friends.Incoming))
	mux.Handle("GET /api/v1/friends/requests/outgoing", protect(friends.Outgoing))
	mux.Handle("POST /api/v1/friends/requests", protect(friends.Create))
	mux.Handle("POST /api/v1/friends/{id}/accept", protect(friends.Accept))
	mux.Handle("POST /api/v1/friends/{id}/reject", protect(friends.Reject))
	mux.Handle("POST /api/v1/friends/{id}/block", protect(friends.Block))

	mux.Handle("GET /api/v1/users/{id}", protect(users.Profile))
	mux.Handle("PUT /api/v1/users/me/avatar", protect(users.UploadAvatar))
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Database             Pinger
	Friends              FriendshipStore
	Users                UserStore
	Avatars              AvatarStorage
	MaxAvatarSize        int64
	FriendRequestLimiter RateLimiter
	Authenticate         func(http.Handler) http.Handler
	Metrics              http.Handler
}
