package errors

import (
	stderrors "errors"
	"net/http"
	"testing"
)

func TestHubError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *HubError
		want string
	}{
		{
			name: "without underlying error",
			err:  New(KindUnauthorized, "bad token"),
			want: "[UNAUTHORIZED] bad token",
		},
		{
			name: "with underlying error",
			err:  Wrap(KindInternalUnavailable, "db down", stderrors.New("conn refused")),
			want: "[INTERNAL_UNAVAILABLE] db down: conn refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHubError_HTTPStatus(t *testing.T) {
	cases := map[Kind]int{
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
	for kind, want := range cases {
		if got := New(kind, "x").HTTPStatus; got != want {
			t.Errorf("kind %s: HTTPStatus = %d, want %d", kind, got, want)
		}
	}
}

func TestHubError_WithDetails(t *testing.T) {
	err := New(KindInsufficientEnergy, "not enough energy").
		WithDetails("required", 25).
		WithDetails("current", 10)
	if err.Details["required"] != 25 || err.Details["current"] != 10 {
		t.Fatalf("unexpected details: %+v", err.Details)
	}
}

func TestHubError_Unwrap(t *testing.T) {
	inner := stderrors.New("boom")
	err := Wrap(KindUpstreamUnavailable, "ai provider", inner)
	if !stderrors.Is(err, inner) {
		t.Fatalf("expected Unwrap chain to reach inner error")
	}
}

func TestKindOf(t *testing.T) {
	err := New(KindConflict, "duplicate idempotency key")
	kind, ok := KindOf(err)
	if !ok || kind != KindConflict {
		t.Fatalf("KindOf() = (%v, %v), want (%v, true)", kind, ok, KindConflict)
	}

	if _, ok := KindOf(stderrors.New("plain")); ok {
		t.Fatalf("KindOf() on a plain error should return false")
	}
}

func TestIs(t *testing.T) {
	err := Wrap(KindRateLimited, "too many requests", stderrors.New("limit"))
	if !Is(err, KindRateLimited) {
		t.Fatalf("Is() should match wrapping kind")
	}
	if Is(err, KindForbidden) {
		t.Fatalf("Is() should not match a different kind")
	}
}
