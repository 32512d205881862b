package handlers

import (
	"net"
	"net/http"
	"strings"

	"github.com/communiconnect/backend/internal/logging"
)

// RateLimiter is the minimal interface required to guard sensitive endpoints.
type RateLimiter interface {
	Allow(key string) bool
}

func allowRequest(limiter RateLimiter, r *http.Request, scope string) bool {
	if limiter == nil {
		return true
	}
	return limiter.Allow(rateLimitKey(r, scope))
}

// rateLimitKey buckets authenticated callers by user and anonymous ones by
// client address.
func rateLimitKey(r *http.Request, scope string) string {
	subject := logging.UserIDFromContext(r.Context())
	if subject == "" {
		subject = "ip:" + clientIP(r)
	}
	if scope == "" {
		return subject
	}
	return scope + ":" + subject
}

func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
