package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/careerhub/hub/infrastructure/httputil"
)

// Middleware rate-limits every request by client IP under scope, writing
// 429 with Retry-After on Limited and 403 on Blocked (spec §4.C: a blocked
// identifier is refused outright until its block expires).
func Middleware(limiter *Limiter, scope string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := clientIP(r)
			result := limiter.Check(r.Context(), scope, identity)
			switch result.Status {
			case Blocked:
				httputil.Forbidden(w, "too many requests, temporarily blocked")
				return
			case Limited:
				until := result.BlockedUntil
				if until.IsZero() {
					until = result.ResetAt
				}
				if secs := int(math.Ceil(time.Until(until).Seconds())); secs > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(secs))
				}
				httputil.TooManyRequests(w, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if parts := strings.Split(fwd, ","); len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		return host[:idx]
	}
	return host
}
