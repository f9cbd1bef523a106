package handlers

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// RateLimiter is the minimal interface required to throttle mutating endpoints.
type RateLimiter interface {
	Allow(key string) bool
}

func allowRequest(limiter RateLimiter, r *http.Request, scope string) bool {
	if limiter == nil {
		return true
	}
	return limiter.Allow(rateLimitKey(r, scope))
}

// rateLimitKey buckets by actor when the caller is identified and by client
// address otherwise.
func rateLimitKey(r *http.Request, scope string) string {
	key, ok := actorFromRequest(r)
	if !ok {
		key = clientIP(r)
	}
	if scope == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", scope, key)
}

func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
