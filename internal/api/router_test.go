package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	huberrors "github.com/careerhub/hub/infrastructure/errors"
	"github.com/careerhub/hub/infrastructure/logging"
	"github.com/careerhub/hub/infrastructure/resilience"
	"github.com/careerhub/hub/internal/auth"
	"github.com/careerhub/hub/internal/billing"
	"github.com/careerhub/hub/internal/events"
	"github.com/careerhub/hub/internal/gate"
	"github.com/careerhub/hub/internal/gdpr"
	"github.com/careerhub/hub/internal/ledger"
	"github.com/careerhub/hub/internal/narrative"
	"github.com/careerhub/hub/internal/orchestrator"
)

// ---------------------------------------------------------------------------
// Fakes. Every service the router wires takes a narrow interface, so these
// satisfy auth.Store/Ledger, gate.Ledger, billing.Store/Ledger/Provider,
// orchestrator.Gate/ContextBuilder/Provider, and events.Store directly —
// no database or network dependency needed to exercise a full request.
// ---------------------------------------------------------------------------

type fakeEventStore struct {
	recorded []events.Event
}

func (f *fakeEventStore) Record(_ context.Context, eventType, actorUserID string, payload, _ map[string]interface{}) (string, error) {
	f.recorded = append(f.recorded, events.Event{EventID: "evt_1", Type: eventType, ActorUserID: actorUserID, Payload: payload})
	return "evt_1", nil
}

func (f *fakeEventStore) UserEvents(_ context.Context, userID string, _, _ time.Time, _ []string) ([]events.Event, error) {
	var out []events.Event
	for _, e := range f.recorded {
		if e.ActorUserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeAuthStore struct {
	byEmail  map[string]auth.User
	byID     map[string]auth.User
	sessions map[string]auth.Session
}

func newFakeAuthStore() *fakeAuthStore {
	return &fakeAuthStore{byEmail: map[string]auth.User{}, byID: map[string]auth.User{}, sessions: map[string]auth.Session{}}
}

func (f *fakeAuthStore) CreateUser(_ context.Context, u auth.User) (auth.User, error) {
	f.byEmail[u.Email] = u
	f.byID[u.UserID] = u
	return u, nil
}
func (f *fakeAuthStore) GetUserByEmail(_ context.Context, email string) (auth.User, bool, error) {
	u, ok := f.byEmail[email]
	return u, ok, nil
}
func (f *fakeAuthStore) GetUserByID(_ context.Context, userID string) (auth.User, bool, error) {
	u, ok := f.byID[userID]
	return u, ok, nil
}
func (f *fakeAuthStore) CreateSession(_ context.Context, s auth.Session) (auth.Session, error) {
	f.sessions[s.RefreshTokenHash] = s
	return s, nil
}
func (f *fakeAuthStore) GetSessionByRefreshHash(_ context.Context, hash string) (auth.Session, bool, error) {
	s, ok := f.sessions[hash]
	return s, ok, nil
}
func (f *fakeAuthStore) RevokeSession(_ context.Context, sessionID string) error {
	for k, s := range f.sessions {
		if s.SessionID == sessionID {
			s.Revoked = true
			f.sessions[k] = s
		}
	}
	return nil
}
func (f *fakeAuthStore) RevokeFamily(_ context.Context, family string) error {
	for k, s := range f.sessions {
		if s.Family == family {
			s.Revoked = true
			f.sessions[k] = s
		}
	}
	return nil
}

type fakeLedger struct {
	balance int
}

func (f *fakeLedger) Register(_ context.Context, _ string, _ bool) (ledger.EnergyRow, error) {
	return ledger.EnergyRow{CurrentEnergy: f.balance}, nil
}
func (f *fakeLedger) CanPerform(_ context.Context, _, _ string) (ledger.CanPerformResult, error) {
	return ledger.CanPerformResult{Allowed: true, Required: 1, Current: f.balance, IsUnlimited: false}, nil
}
func (f *fakeLedger) Consume(_ context.Context, _, _, _ string) (ledger.ConsumeResult, error) {
	if f.balance < 1 {
		return ledger.ConsumeResult{}, huberrors.New(huberrors.KindInsufficientEnergy, "insufficient energy")
	}
	f.balance--
	return ledger.ConsumeResult{NewBalance: f.balance, TxID: "tx_1"}, nil
}
func (f *fakeLedger) Refund(_ context.Context, _, _, _ string) (ledger.ConsumeResult, error) {
	f.balance++
	return ledger.ConsumeResult{NewBalance: f.balance, TxID: "tx_refund"}, nil
}
func (f *fakeLedger) Purchase(_ context.Context, _ string, pack ledger.Pack, _ string) (ledger.ConsumeResult, error) {
	if pack.EnergyAmount > 0 {
		f.balance += pack.EnergyAmount
	}
	return ledger.ConsumeResult{NewBalance: f.balance, TxID: "tx_purchase"}, nil
}

type fakeContextBuilder struct{}

func (fakeContextBuilder) Get(_ context.Context, userID string) narrative.ContextPacket {
	return narrative.ContextPacket{UserID: userID, Sentiment: "neutral", EnergyLevel: "steady"}
}

type fakeBillingStore struct {
	intents map[string]billing.Intent
}

func newFakeBillingStore() *fakeBillingStore {
	return &fakeBillingStore{intents: map[string]billing.Intent{}}
}
func (f *fakeBillingStore) CreateIntent(_ context.Context, intent billing.Intent) (billing.Intent, error) {
	f.intents[intent.IntentID] = intent
	return intent, nil
}
func (f *fakeBillingStore) GetIntent(_ context.Context, intentID string) (billing.Intent, bool, error) {
	i, ok := f.intents[intentID]
	return i, ok, nil
}
func (f *fakeBillingStore) UpdateStatus(_ context.Context, intentID, status, txID string) error {
	i := f.intents[intentID]
	i.Status = status
	i.TxID = txID
	f.intents[intentID] = i
	return nil
}

type fakeAIProvider struct{}

func (fakeAIProvider) Generate(_ context.Context, prompt orchestrator.Prompt) (string, error) {
	return "echo: " + prompt.User, nil
}

func testDeps(t *testing.T) (Deps, *fakeLedger, *fakeEventStore) {
	t.Helper()
	logger := logging.NewFromEnv("test")

	store := newFakeAuthStore()
	led := &fakeLedger{balance: 5}
	evts := &fakeEventStore{}
	tokens := auth.NewTokenIssuer("test-secret-at-least-this-long", "hub-test")
	authSvc := auth.New(store, tokens, led, evts, nil, logger)

	gateSvc := gate.New(led)

	billingStore := newFakeBillingStore()
	billingSvc := billing.New(billingStore, led, billing.DevProvider{}, nil, evts, logger)

	gdprRecorder := gdpr.New(evts)

	orchestratorSvc := orchestrator.New(gateSvc, fakeContextBuilder{}, fakeAIProvider{}, nil, resilience.RetryConfig{}, evts, logger)

	return Deps{
		Auth:         authSvc,
		Gate:         gateSvc,
		Billing:      billingSvc,
		Orchestrator: orchestratorSvc,
		Events:       evts,
		GDPR:         gdprRecorder,
		Logger:       logger,
	}, led, evts
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthHandler(t *testing.T) {
	deps, _, _ := testDeps(t)
	router := NewRouter(deps)

	rec := doRequest(t, router, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func registerUser(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := doRequest(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "alice@example.com", "password": "hunter222", "name": "Alice",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 registering, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp registerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return resp.AccessToken
}

func TestRegisterThenMe(t *testing.T) {
	deps, _, _ := testDeps(t)
	router := NewRouter(deps)

	token := registerUser(t, router)

	rec := doRequest(t, router, http.MethodGet, "/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /auth/me, got %d: %s", rec.Code, rec.Body.String())
	}
	var me meResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me response: %v", err)
	}
	if me.Email != "alice@example.com" {
		t.Fatalf("expected alice@example.com, got %q", me.Email)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	deps, _, _ := testDeps(t)
	router := NewRouter(deps)

	registerUser(t, router)

	rec := doRequest(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "alice@example.com", "password": "hunter222", "name": "Alice2",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate register, got %d", rec.Code)
	}
}

func TestProtectedRouteWithoutTokenIsUnauthorized(t *testing.T) {
	deps, _, _ := testDeps(t)
	router := NewRouter(deps)

	rec := doRequest(t, router, http.MethodGet, "/auth/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer token, got %d", rec.Code)
	}
}

func TestProtectedRouteWithGarbageTokenIsUnauthorized(t *testing.T) {
	deps, _, _ := testDeps(t)
	router := NewRouter(deps)

	rec := doRequest(t, router, http.MethodGet, "/auth/me", "not-a-real-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with invalid bearer token, got %d", rec.Code)
	}
}

func TestEnergyCanPerformAndConsume(t *testing.T) {
	deps, led, _ := testDeps(t)
	router := NewRouter(deps)
	token := registerUser(t, router)
	led.balance = 3

	rec := doRequest(t, router, http.MethodPost, "/energy/can-perform", token, map[string]string{"action": "draft_resume"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from can-perform, got %d: %s", rec.Code, rec.Body.String())
	}
	var can gate.CanPerformResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &can); err != nil {
		t.Fatalf("decode can-perform response: %v", err)
	}
	if !can.Allowed {
		t.Fatal("expected action to be allowed")
	}

	rec = doRequest(t, router, http.MethodPost, "/energy/consume", token, map[string]string{
		"action": "draft_resume", "idempotency_key": "idem-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from consume, got %d: %s", rec.Code, rec.Body.String())
	}
	var consumed gate.ConsumeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &consumed); err != nil {
		t.Fatalf("decode consume response: %v", err)
	}
	if consumed.NewBalance != 2 {
		t.Fatalf("expected balance 2 after consume, got %d", consumed.NewBalance)
	}
}

func TestEnergyConsumeInsufficientReturns402(t *testing.T) {
	deps, led, _ := testDeps(t)
	router := NewRouter(deps)
	token := registerUser(t, router)
	led.balance = 0

	rec := doRequest(t, router, http.MethodPost, "/energy/consume", token, map[string]string{
		"action": "draft_resume", "idempotency_key": "idem-2",
	})
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 on insufficient energy, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestEnergyConsumeOverridesBodyUserID(t *testing.T) {
	// Regression guard: a caller cannot spend another user's energy by
	// setting user_id in the request body — the handler always
	// overwrites it with the bearer-authenticated identity.
	deps, led, _ := testDeps(t)
	router := NewRouter(deps)
	token := registerUser(t, router)
	led.balance = 1

	rec := doRequest(t, router, http.MethodPost, "/energy/consume", token, map[string]string{
		"user_id": "someone-else", "action": "draft_resume", "idempotency_key": "idem-3",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBillingCreateIntentAndConfirm(t *testing.T) {
	deps, _, _ := testDeps(t)
	router := NewRouter(deps)
	token := registerUser(t, router)

	rec := doRequest(t, router, http.MethodPost, "/billing/create-intent", token, map[string]string{
		"pack": string(ledger.PackStarter),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from create-intent, got %d: %s", rec.Code, rec.Body.String())
	}
	var intent billing.CreateIntentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &intent); err != nil {
		t.Fatalf("decode create-intent response: %v", err)
	}
	if intent.IntentID == "" {
		t.Fatal("expected non-empty intent id")
	}

	rec = doRequest(t, router, http.MethodPost, "/billing/confirm", token, map[string]string{"intent_id": intent.IntentID})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from confirm, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestEventsHandlerRejectsOtherUsersHistory(t *testing.T) {
	deps, _, _ := testDeps(t)
	router := NewRouter(deps)
	token := registerUser(t, router)

	rec := doRequest(t, router, http.MethodGet, "/events/some-other-user-id", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 reading another user's events, got %d", rec.Code)
	}
}

func TestEventsHandlerRejectsBadTimestamp(t *testing.T) {
	deps, _, _ := testDeps(t)
	router := NewRouter(deps)
	token := registerUser(t, router)

	var me meResponse
	rec := doRequest(t, router, http.MethodGet, "/auth/me", token, nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &me)

	rec = doRequest(t, router, http.MethodGet, "/events/"+me.UserID+"?since=not-a-timestamp", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed since, got %d", rec.Code)
	}
}

func TestAIChatConsumesEnergyAndRecordsProcessing(t *testing.T) {
	deps, led, evts := testDeps(t)
	router := NewRouter(deps)
	token := registerUser(t, router)
	led.balance = 5
	before := led.balance

	rec := doRequest(t, router, http.MethodPost, "/ai/chat", token, map[string]string{
		"message": "how do I tailor my resume?", "app_context": "resume_builder",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /ai/chat, got %d: %s", rec.Code, rec.Body.String())
	}
	var chat orchestrator.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &chat); err != nil {
		t.Fatalf("decode chat response: %v", err)
	}
	if chat.Message == "" {
		t.Fatal("expected a non-empty AI reply")
	}
	if led.balance >= before {
		t.Fatalf("expected energy to be consumed, balance went from %d to %d", before, led.balance)
	}

	foundProcessingRecord := false
	for _, e := range evts.recorded {
		if e.Type == events.TypeDataProcessingRecorded {
			foundProcessingRecord = true
		}
	}
	if !foundProcessingRecord {
		t.Fatal("expected chat to record a GDPR data-processing event")
	}
}

func TestAIChatInsufficientEnergyReturns402(t *testing.T) {
	deps, led, _ := testDeps(t)
	router := NewRouter(deps)
	token := registerUser(t, router)
	led.balance = 0

	rec := doRequest(t, router, http.MethodPost, "/ai/chat", token, map[string]string{
		"message": "help", "app_context": "resume_builder",
	})
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 on insufficient energy, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBearerTokenHelper(t *testing.T) {
	cases := map[string]string{
		"Bearer abc123": "abc123",
		"bearer abc123": "",
		"":               "",
		"Bearer ":        "",
	}
	for header, want := range cases {
		if got := bearerToken(header); got != want {
			t.Fatalf("bearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
