package httputil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	huberrors "github.com/careerhub/hub/infrastructure/errors"
)

func TestWithUserIDAndRequireUserID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	if _, ok := RequireUserID(w, r); ok {
		t.Fatal("expected RequireUserID to fail without context user ID")
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	ctx := WithUserID(context.Background(), "user-123")
	r2 := r.WithContext(ctx)
	w2 := httptest.NewRecorder()
	userID, ok := RequireUserID(w2, r2)
	if !ok || userID != "user-123" {
		t.Fatalf("RequireUserID() = (%q, %v), want (user-123, true)", userID, ok)
	}
}

func TestDecodeJSON_Invalid(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unknown_field": 1}`))
	w := httptest.NewRecorder()

	var dst struct {
		Name string `json:"name"`
	}
	if DecodeJSON(w, r, &dst) {
		t.Fatal("expected DecodeJSON to reject unknown fields")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestWriteHubError(t *testing.T) {
	w := httptest.NewRecorder()
	err := huberrors.New(huberrors.KindInsufficientEnergy, "not enough energy").WithDetails("deficit", 5)

	WriteHubError(w, err)

	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusPaymentRequired)
	}
	var body map[string]interface{}
	if decodeErr := json.NewDecoder(w.Body).Decode(&body); decodeErr != nil {
		t.Fatalf("decode: %v", decodeErr)
	}
	if body["error"] != string(huberrors.KindInsufficientEnergy) {
		t.Errorf("error = %v, want %v", body["error"], huberrors.KindInsufficientEnergy)
	}
}

func TestWriteError_PlainError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, errStr("boom"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

type errStr string

func (e errStr) Error() string { return string(e) }
