// Package api wires the Hub's HTTP surface (spec §6) on top of
// gorilla/mux: every handler is a thin adapter from an internal service
// method to infrastructure/httputil's generic JSON wrappers. The package
// owns no business logic of its own.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/careerhub/hub/infrastructure/httputil"
	"github.com/careerhub/hub/infrastructure/logging"
	"github.com/careerhub/hub/infrastructure/metrics"
	"github.com/careerhub/hub/infrastructure/middleware"
	"github.com/careerhub/hub/infrastructure/ratelimit"
	"github.com/careerhub/hub/internal/auth"
	"github.com/careerhub/hub/internal/billing"
	"github.com/careerhub/hub/internal/events"
	"github.com/careerhub/hub/internal/gate"
	"github.com/careerhub/hub/internal/gdpr"
	"github.com/careerhub/hub/internal/orchestrator"
)

// Authenticator is the slice of internal/auth.Service the bearer-token
// middleware depends on.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (string, error)
}

// Deps bundles everything the router needs to build handlers. Every field
// is a concrete package-level service; api itself imports no store.
type Deps struct {
	Auth         *auth.Service
	Gate         *gate.Gate
	Orchestrator *orchestrator.Orchestrator
	Billing      *billing.Service
	Events       events.Store
	GDPR         *gdpr.Recorder
	Metrics      *metrics.Metrics
	Logger       *logging.Logger
	RateLimiter  *ratelimit.Limiter
	CORSOrigins  []string
}

// NewRouter builds the full HTTP surface.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(d.Logger).Handler)
	r.Use(middleware.NewSecurityHeadersMiddleware(nil).Handler)
	r.Use(middleware.NewCORSMiddleware(&middleware.CORSConfig{AllowedOrigins: d.CORSOrigins}).Handler)
	r.Use(middleware.NewBodyLimitMiddleware(0).Handler)
	r.Use(middleware.NewTimeoutMiddleware(0).Handler)
	if d.Metrics != nil {
		r.Use(middleware.MetricsMiddleware("hub", d.Metrics))
	}
	if d.RateLimiter != nil {
		r.Use(ratelimit.Middleware(d.RateLimiter, ratelimit.ScopeIPGeneral))
	}

	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	r.HandleFunc("/auth/register", httputil.HandleJSON(d.Logger, registerHandler(d.Auth))).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", httputil.HandleJSON(d.Logger, loginHandler(d.Auth))).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", httputil.HandleJSON(d.Logger, refreshHandler(d.Auth))).Methods(http.MethodPost)

	authed := r.NewRoute().Subrouter()
	authed.Use(bearerAuthMiddleware(d.Auth, d.Logger))

	authed.HandleFunc("/auth/me", httputil.HandleNoBodyWithUserAuth(d.Logger, meHandler(d.Auth))).Methods(http.MethodGet)

	authed.HandleFunc("/energy/can-perform", httputil.HandleJSONWithUserAuth(d.Logger, canPerformHandler(d.Gate))).Methods(http.MethodPost)
	authed.HandleFunc("/energy/consume", httputil.HandleJSONWithUserAuth(d.Logger, consumeHandler(d.Gate))).Methods(http.MethodPost)
	authed.HandleFunc("/energy/refund", httputil.HandleJSONWithUserAuth(d.Logger, refundHandler(d.Gate))).Methods(http.MethodPost)

	authed.HandleFunc("/billing/create-intent", httputil.HandleJSONWithUserAuth(d.Logger, createIntentHandler(d.Billing))).Methods(http.MethodPost)
	authed.HandleFunc("/billing/confirm", httputil.HandleJSONWithUserAuth(d.Logger, confirmHandler(d.Billing))).Methods(http.MethodPost)

	authed.HandleFunc("/ai/chat", httputil.HandleJSONWithUserAuth(d.Logger, chatHandler(d.Orchestrator, d.GDPR))).Methods(http.MethodPost)

	authed.HandleFunc("/events/{user_id}", eventsHandler(d.Events, d.Logger)).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// bearerAuthMiddleware validates the Authorization header and attaches the
// resolved user ID to the request context for RequireUserID to pick up.
func bearerAuthMiddleware(a Authenticator, logger *logging.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				httputil.Unauthorized(w, "missing bearer token")
				return
			}
			userID, err := a.Authenticate(r.Context(), token)
			if err != nil {
				if logger != nil {
					logger.WithContext(r.Context()).WithError(err).Warn("bearer authentication failed")
				}
				httputil.Unauthorized(w, "invalid or expired token")
				return
			}
			ctx := httputil.WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return ""
	}
	return header[len(prefix):]
}
