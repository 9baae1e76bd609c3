// Package httputil provides shared JSON request/response helpers and the
// Hub's standard HTTP error envelope.
package httputil

import (
	"context"
	"encoding/json"
	"net/http"

	huberrors "github.com/careerhub/hub/infrastructure/errors"
)

// ctxKey is a private context key type to avoid collisions with other packages.
type ctxKey string

const userIDContextKey ctxKey = "httputil.user_id"

// WithUserID attaches the authenticated user ID to the request context.
// Called by the auth middleware once a bearer token has been validated.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext extracts the user ID set by WithUserID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDContextKey).(string)
	return v, ok && v != ""
}

// RequireUserID extracts the user ID from the request context, writing a 401
// response and returning ok=false if absent.
func RequireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		Unauthorized(w, "authentication required")
		return "", false
	}
	return userID, true
}

// envelope is the Hub's standard JSON error response body.
type envelope struct {
	Error   string                 `json:"error,omitempty"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// DecodeJSON decodes the request body into dst, writing a 400 response and
// returning false on malformed JSON.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteHubError writes a *errors.HubError using its own HTTP status and kind.
func WriteHubError(w http.ResponseWriter, err *huberrors.HubError) {
	WriteJSON(w, err.HTTPStatus, envelope{
		Error:   string(err.Kind),
		Message: err.Message,
		Details: err.Details,
	})
}

// WriteError writes any error as a JSON envelope, mapping *errors.HubError to
// its declared status/kind and everything else to 500 Internal Server Error.
func WriteError(w http.ResponseWriter, err error) {
	var hubErr *huberrors.HubError
	if asHubError(err, &hubErr) {
		WriteHubError(w, hubErr)
		return
	}
	InternalError(w, err.Error())
}

func asHubError(err error, target **huberrors.HubError) bool {
	if he, ok := err.(*huberrors.HubError); ok {
		*target = he
		return true
	}
	kind, ok := huberrors.KindOf(err)
	if !ok {
		return false
	}
	*target = huberrors.New(kind, err.Error())
	return true
}

// WriteErrorResponse writes a JSON error envelope carrying an explicit code,
// independent of the errors.Kind taxonomy. Used by infrastructure/middleware,
// which operates below the handler layer and doesn't construct HubErrors.
func WriteErrorResponse(w http.ResponseWriter, _ *http.Request, status int, code, message string, details map[string]interface{}) {
	WriteJSON(w, status, envelope{Error: code, Message: message, Details: details})
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusNotFound, envelope{Error: string(huberrors.KindNotFound), Message: message})
}

// BadRequest writes a 400 response.
func BadRequest(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusBadRequest, envelope{Error: string(huberrors.KindValidation), Message: message})
}

// Unauthorized writes a 401 response.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusUnauthorized, envelope{Error: string(huberrors.KindUnauthorized), Message: message})
}

// Forbidden writes a 403 response.
func Forbidden(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusForbidden, envelope{Error: string(huberrors.KindForbidden), Message: message})
}

// Conflict writes a 409 response.
func Conflict(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusConflict, envelope{Error: string(huberrors.KindConflict), Message: message})
}

// TooManyRequests writes a 429 response.
func TooManyRequests(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusTooManyRequests, envelope{Error: string(huberrors.KindRateLimited), Message: message})
}

// ServiceUnavailable writes a 503 response.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusServiceUnavailable, envelope{Error: string(huberrors.KindCircuitOpen), Message: message})
}

// InternalError writes a 500 response.
func InternalError(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusInternalServerError, envelope{Error: string(huberrors.KindInternalUnavailable), Message: message})
}
