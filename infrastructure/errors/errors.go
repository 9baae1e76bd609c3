// Package errors provides a unified, typed error taxonomy for the Hub.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a stable error category. Values mirror spec §7.
type Kind string

const (
	KindValidation          Kind = "VALIDATION"
	KindUnauthorized        Kind = "UNAUTHORIZED"
	KindForbidden           Kind = "FORBIDDEN"
	KindInsufficientEnergy  Kind = "INSUFFICIENT_ENERGY"
	KindRateLimited         Kind = "RATE_LIMITED"
	KindCircuitOpen         Kind = "CIRCUIT_OPEN"
	KindUnknownAction       Kind = "UNKNOWN_ACTION"
	KindConflict            Kind = "CONFLICT"
	KindNotFound            Kind = "NOT_FOUND"
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	KindInternalUnavailable Kind = "INTERNAL_UNAVAILABLE"
)

var httpStatusByKind = map[Kind]int{
	KindValidation:          http.StatusBadRequest,
	KindUnauthorized:        http.StatusUnauthorized,
	KindForbidden:           http.StatusForbidden,
	KindInsufficientEnergy:  http.StatusPaymentRequired,
	KindRateLimited:         http.StatusTooManyRequests,
	KindCircuitOpen:         http.StatusServiceUnavailable,
	KindUnknownAction:       http.StatusBadRequest,
	KindConflict:            http.StatusConflict,
	KindNotFound:            http.StatusNotFound,
	KindUpstreamUnavailable: http.StatusBadGateway,
	KindInternalUnavailable: http.StatusInternalServerError,
}

// HubError is a structured error with a stable kind, message, HTTP status,
// and optional machine-readable details (e.g. {required,current,deficit}).
type HubError struct {
	Kind       Kind                   `json:"error"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

func (e *HubError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *HubError) Unwrap() error { return e.Err }

// WithDetails attaches additional machine-readable context to the error.
func (e *HubError) WithDetails(key string, value interface{}) *HubError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a HubError for the given kind.
func New(kind Kind, message string) *HubError {
	return &HubError{Kind: kind, Message: message, HTTPStatus: statusFor(kind)}
}

// Wrap creates a HubError wrapping an underlying error.
func Wrap(kind Kind, message string, err error) *HubError {
	return &HubError{Kind: kind, Message: message, HTTPStatus: statusFor(kind), Err: err}
}

func statusFor(kind Kind) int {
	if status, ok := httpStatusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// KindOf extracts the Kind from err if it (or something it wraps) is a *HubError.
func KindOf(err error) (Kind, bool) {
	var he *HubError
	if errors.As(err, &he) {
		return he.Kind, true
	}
	return "", false
}

// Is reports whether err is a HubError of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
