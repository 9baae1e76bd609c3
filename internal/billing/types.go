// Package billing implements the Billing module (4.K): payment intent
// creation and confirmation that atomically credit the Energy Ledger.
package billing

import "time"

// Intent status values.
const (
	StatusPending   = "pending"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

// Intent is the pending-transaction placeholder written at create_intent
// time and updated on confirm (spec §4.K).
type Intent struct {
	IntentID     string
	UserID       string
	Pack         string
	Currency     string
	AmountCents  int
	Status       string
	ClientSecret string
	TxID         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateIntentRequest is the `/billing/create-intent` body.
type CreateIntentRequest struct {
	UserID   string `json:"user_id"`
	Pack     string `json:"pack"`
	Currency string `json:"currency"`
}

// CreateIntentResponse is returned to the client to drive the payment UI.
type CreateIntentResponse struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	AmountCents  int    `json:"amount_cents"`
	Currency     string `json:"currency"`
	Pack         string `json:"pack"`
	EnergyUnits  int    `json:"energy_units"`
}

// ConfirmRequest is the `/billing/confirm` body.
type ConfirmRequest struct {
	UserID   string `json:"user_id"`
	IntentID string `json:"intent_id"`
}

// ConfirmResponse reports the energy credited, mirroring the confirm output
// shape carried over from the original billing model.
type ConfirmResponse struct {
	Status          string `json:"status"`
	EnergyAdded     int    `json:"energy_added"`
	BonusApplied    bool   `json:"bonus_applied"`
	BonusUnits      int    `json:"bonus_units"`
	NewEnergyBal    int    `json:"new_energy_balance"`
	TransactionID   string `json:"transaction_id"`
}

// RefundRequest is the input to Service.Refund (mirrors the energy refund
// path but also requests a provider-side refund of the original charge). No
// HTTP route is registered for it.
type RefundRequest struct {
	UserID      string `json:"user_id"`
	IntentID    string `json:"intent_id"`
	AmountCents int    `json:"amount_cents"`
	Reason      string `json:"reason"`
}

// RefundResponse reports the outcome of a billing refund.
type RefundResponse struct {
	Status         string `json:"status"`
	ProviderRefund string `json:"provider_refund_id"`
	NewEnergyBal   int    `json:"new_energy_balance"`
}
