package billing

import (
	"context"
	"sync"
	"testing"

	"github.com/careerhub/hub/internal/ledger"
)

type fakeStore struct {
	mu      sync.Mutex
	intents map[string]Intent
}

func newFakeStore() *fakeStore { return &fakeStore{intents: map[string]Intent{}} }

func (s *fakeStore) CreateIntent(_ context.Context, intent Intent) (Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[intent.IntentID] = intent
	return intent, nil
}

func (s *fakeStore) GetIntent(_ context.Context, intentID string) (Intent, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.intents[intentID]
	return i, ok, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, intentID, status, txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.intents[intentID]
	i.Status = status
	i.TxID = txID
	s.intents[intentID] = i
	return nil
}

type fakeLedger struct {
	result ledger.ConsumeResult
	err    error
	calls  []string
}

func (f *fakeLedger) Purchase(_ context.Context, _ string, pack ledger.Pack, providerRef string) (ledger.ConsumeResult, error) {
	f.calls = append(f.calls, providerRef)
	_ = pack
	return f.result, f.err
}

func TestService_CreateIntent(t *testing.T) {
	s := New(newFakeStore(), &fakeLedger{}, DevProvider{}, nil, nil, nil)

	resp, err := s.CreateIntent(context.Background(), CreateIntentRequest{UserID: "user-1", Pack: string(ledger.PackStarter)})
	if err != nil {
		t.Fatalf("CreateIntent() error: %v", err)
	}
	if resp.IntentID == "" || resp.ClientSecret == "" {
		t.Fatalf("resp = %+v, expected non-empty intent/secret", resp)
	}
	if resp.AmountCents != ledger.PackCatalog[ledger.PackStarter].PriceCents {
		t.Fatalf("AmountCents = %d", resp.AmountCents)
	}
}

func TestService_CreateIntent_RejectsUnknownPack(t *testing.T) {
	s := New(newFakeStore(), &fakeLedger{}, DevProvider{}, nil, nil, nil)
	_, err := s.CreateIntent(context.Background(), CreateIntentRequest{UserID: "user-1", Pack: "not-a-pack"})
	if err == nil {
		t.Fatal("expected error for unknown pack")
	}
}

func TestService_Confirm_CreditsLedgerOnSucceeded(t *testing.T) {
	store := newFakeStore()
	l := &fakeLedger{result: ledger.ConsumeResult{NewBalance: 195, TxID: "tx-9"}}
	s := New(store, l, DevProvider{}, nil, nil, nil)

	created, err := s.CreateIntent(context.Background(), CreateIntentRequest{UserID: "user-1", Pack: string(ledger.PackStarter)})
	if err != nil {
		t.Fatalf("CreateIntent() error: %v", err)
	}

	resp, err := s.Confirm(context.Background(), ConfirmRequest{UserID: "user-1", IntentID: created.IntentID})
	if err != nil {
		t.Fatalf("Confirm() error: %v", err)
	}
	if resp.Status != StatusSucceeded || resp.NewEnergyBal != 195 {
		t.Fatalf("resp = %+v", resp)
	}
	if len(l.calls) != 1 || l.calls[0] != created.IntentID {
		t.Fatalf("expected Purchase called once with provider_ref=%s, got %v", created.IntentID, l.calls)
	}

	// Re-confirming should be idempotent: it must short-circuit without
	// calling Purchase a second time.
	if _, err := s.Confirm(context.Background(), ConfirmRequest{UserID: "user-1", IntentID: created.IntentID}); err != nil {
		t.Fatalf("second Confirm() error: %v", err)
	}
	if len(l.calls) != 1 {
		t.Fatalf("Purchase called %d times, want 1 (idempotent re-confirm)", len(l.calls))
	}
}

func TestService_Confirm_UnlimitedMonthlyReportsZeroEnergyAdded(t *testing.T) {
	store := newFakeStore()
	l := &fakeLedger{result: ledger.ConsumeResult{NewBalance: 85, TxID: "tx-sub"}}
	s := New(store, l, DevProvider{}, nil, nil, nil)

	created, err := s.CreateIntent(context.Background(), CreateIntentRequest{UserID: "user-1", Pack: string(ledger.PackUnlimitedMonthly)})
	if err != nil {
		t.Fatalf("CreateIntent() error: %v", err)
	}

	resp, err := s.Confirm(context.Background(), ConfirmRequest{UserID: "user-1", IntentID: created.IntentID})
	if err != nil {
		t.Fatalf("Confirm() error: %v", err)
	}
	if resp.EnergyAdded != 0 {
		t.Fatalf("EnergyAdded = %d, want 0 for a subscription pack", resp.EnergyAdded)
	}
}

func TestService_Confirm_UnknownIntentNotFound(t *testing.T) {
	s := New(newFakeStore(), &fakeLedger{}, DevProvider{}, nil, nil, nil)
	_, err := s.Confirm(context.Background(), ConfirmRequest{UserID: "user-1", IntentID: "missing"})
	if err == nil {
		t.Fatal("expected not-found error")
	}
}
