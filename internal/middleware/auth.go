package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/communiconnect/backend/internal/auth"
	"github.com/communiconnect/backend/internal/logging"
)

// TokenVerifier resolves a bearer token to a user ID.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// RequireUser rejects requests without a valid bearer token and stores the
// authenticated user ID on the request context.
func RequireUser(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := logging.FromContext(ctx)

			if verifier == nil {
				logger.Error("token verifier unavailable")
				writeError(w, http.StatusInternalServerError, "authentication unavailable")
				return
			}

			userID, err := verifier.Verify(auth.BearerToken(r.Header.Get("Authorization")))
			if err != nil {
				logger.Warn("rejected unauthenticated request", "error", err)
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			next.ServeHTTP(w, r.WithContext(logging.WithUserID(ctx, userID)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": message})
}
