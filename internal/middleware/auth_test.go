package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/communiconnect/backend/internal/auth"
	"github.com/communiconnect/backend/internal/logging"
)

func TestRequireUser(t *testing.T) {
	tokens := auth.NewTokens("middleware-secret")
	valid, err := tokens.Issue("user-123", time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	forged, err := auth.NewTokens("other-secret").Issue("user-123", time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{name: "valid token", header: "Bearer " + valid, wantStatus: http.StatusOK, wantUser: "user-123"},
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + valid, wantStatus: http.StatusUnauthorized},
		{name: "forged token", header: "Bearer " + forged, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser = logging.UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/friends", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			RequireUser(tokens)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d got %d", tt.wantStatus, rec.Code)
			}
			if gotUser != tt.wantUser {
				t.Fatalf("expected user %q got %q", tt.wantUser, gotUser)
			}
			if tt.wantStatus == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), `"success":false`) {
				t.Fatalf("expected error envelope got %s", rec.Body.String())
			}
		})
	}
}

type verifierFunc func(string) (string, error)

func (f verifierFunc) Verify(token string) (string, error) { return f(token) }

func TestRequireUserPassesTokenToVerifier(t *testing.T) {
	var seen string
	verifier := verifierFunc(func(token string) (string, error) {
		seen = token
		return "", errors.New("nope")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer   abc.def.ghi ")
	rec := httptest.NewRecorder()

	RequireUser(verifier)(http.NotFoundHandler()).ServeHTTP(rec, req)

	if seen != "abc.def.ghi" {
		t.Fatalf("expected bearer token to be extracted got %q", seen)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 got %d", rec.Code)
	}
}
