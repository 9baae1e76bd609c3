package billing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Provider is the opaque payment-provider RPC boundary (spec §4.K, §9: the
// provider SDK itself is out of scope). A real deployment wires this to
// Stripe or an equivalent. The Service calls it through its
// infrastructure/resilience circuit breaker, or directly when it was
// constructed without one.
type Provider interface {
	CreateIntent(ctx context.Context, amountCents int, currency string, metadata map[string]string) (providerIntentID, clientSecret string, err error)
	GetIntentStatus(ctx context.Context, providerIntentID string) (status string, err error)
	Refund(ctx context.Context, providerIntentID string, amountCents int) (providerRefundID string, err error)
}

// DevProvider is a development-mode Provider that simulates a payment
// provider without any network call: every intent is created pending and
// immediately reports succeeded on the first status check. Modeled on the
// account-pool top-up's simulated fallback for local testing.
type DevProvider struct{}

// CreateIntent implements Provider.
func (DevProvider) CreateIntent(_ context.Context, amountCents int, currency string, _ map[string]string) (string, string, error) {
	id := "pi_dev_" + randomHex(12)
	secret := id + "_secret_" + randomHex(8)
	_ = amountCents
	_ = currency
	return id, secret, nil
}

// GetIntentStatus implements Provider. The dev provider treats every intent
// as immediately succeeded once queried.
func (DevProvider) GetIntentStatus(_ context.Context, _ string) (string, error) {
	return StatusSucceeded, nil
}

// Refund implements Provider.
func (DevProvider) Refund(_ context.Context, providerIntentID string, _ int) (string, error) {
	return "re_dev_" + randomHex(12), nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("fallback%d", n)
	}
	return hex.EncodeToString(b)
}
