// Package gate implements the Action Gate (4.I): the public
// can-perform / consume / refund trio every client app calls. It never
// trusts client-asserted energy state — consume alone is the atomic
// check-and-debit that enforces correctness.
package gate

import (
	"context"

	"github.com/careerhub/hub/internal/ledger"
)

// Ledger is the slice of internal/ledger.Ledger the Gate depends on.
type Ledger interface {
	CanPerform(ctx context.Context, userID, action string) (ledger.CanPerformResult, error)
	Consume(ctx context.Context, userID, action, idempotencyKey string) (ledger.ConsumeResult, error)
	Refund(ctx context.Context, userID, origTxID, reason string) (ledger.ConsumeResult, error)
}

// Gate is a thin HTTP-facing wrapper around the Energy Ledger.
type Gate struct {
	ledger Ledger
}

// New constructs a Gate.
func New(l Ledger) *Gate {
	return &Gate{ledger: l}
}

// CanPerformRequest is the `/energy/can-perform` body.
type CanPerformRequest struct {
	UserID string `json:"user_id"`
	Action string `json:"action"`
}

// CanPerformResponse mirrors spec §6's `{allowed,required,current,deficit,is_unlimited}`.
type CanPerformResponse struct {
	Allowed     bool `json:"allowed"`
	Required    int  `json:"required"`
	Current     int  `json:"current"`
	Deficit     int  `json:"deficit"`
	IsUnlimited bool `json:"is_unlimited"`
}

// CanPerform wraps Ledger.CanPerform with no side effects.
func (g *Gate) CanPerform(ctx context.Context, req CanPerformRequest) (CanPerformResponse, error) {
	res, err := g.ledger.CanPerform(ctx, req.UserID, req.Action)
	if err != nil {
		return CanPerformResponse{}, err
	}
	return CanPerformResponse{
		Allowed:     res.Allowed,
		Required:    res.Required,
		Current:     res.Current,
		Deficit:     res.Deficit,
		IsUnlimited: res.IsUnlimited,
	}, nil
}

// ConsumeRequest is the `/energy/consume` body.
type ConsumeRequest struct {
	UserID         string `json:"user_id"`
	Action         string `json:"action"`
	IdempotencyKey string `json:"idempotency_key"`
}

// ConsumeResponse is returned on success; an InsufficientEnergy error maps
// to HTTP 402 with required/current/deficit (handled by the caller via
// infrastructure/errors, not here).
type ConsumeResponse struct {
	NewBalance int    `json:"new_balance"`
	TxID       string `json:"tx_id"`
}

// Consume wraps Ledger.Consume: the atomic check-and-debit.
func (g *Gate) Consume(ctx context.Context, req ConsumeRequest) (ConsumeResponse, error) {
	res, err := g.ledger.Consume(ctx, req.UserID, req.Action, req.IdempotencyKey)
	if err != nil {
		return ConsumeResponse{}, err
	}
	return ConsumeResponse{NewBalance: res.NewBalance, TxID: res.TxID}, nil
}

// RefundRequest is the `/energy/refund` body.
type RefundRequest struct {
	UserID        string `json:"user_id"`
	ActionEventID string `json:"action_event_id"`
	Reason        string `json:"reason"`
}

// Refund wraps Ledger.Refund.
func (g *Gate) Refund(ctx context.Context, req RefundRequest) (ConsumeResponse, error) {
	res, err := g.ledger.Refund(ctx, req.UserID, req.ActionEventID, req.Reason)
	if err != nil {
		return ConsumeResponse{}, err
	}
	return ConsumeResponse{NewBalance: res.NewBalance, TxID: res.TxID}, nil
}
