package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	huberrors "github.com/careerhub/hub/infrastructure/errors"
	"github.com/careerhub/hub/infrastructure/cache"
	"github.com/careerhub/hub/infrastructure/logging"
	"github.com/careerhub/hub/infrastructure/metrics"
	"github.com/careerhub/hub/internal/events"
)

const balanceCacheTTL = 60 * time.Second

func balanceCacheKey(userID string) string { return "energy:" + userID }

// Ledger is the Energy Ledger's public service (4.F), wrapping Store with
// caching, event emission, and metrics. It depends on events.Sink, not the
// concrete event store, per the cyclic-ownership note in spec §9.
type Ledger struct {
	store  Store
	cache  *cache.Tier
	events events.Sink
	logger *logging.Logger
	metric *metrics.Metrics
}

// New constructs a Ledger.
func New(store Store, tier *cache.Tier, sink events.Sink, logger *logging.Logger, metric *metrics.Metrics) *Ledger {
	return &Ledger{store: store, cache: tier, events: sink, logger: logger, metric: metric}
}

// Register creates the initial Energy row for a newly registered user.
func (l *Ledger) Register(ctx context.Context, userID string, unlimited bool) (EnergyRow, error) {
	subscription := SubscriptionStandard
	if unlimited {
		subscription = SubscriptionUnlimited
	}
	return l.store.CreateEnergyRow(ctx, userID, DefaultStartingBalance, subscription)
}

// GetBalance returns the user's Energy row, cache-first with a 60s TTL.
func (l *Ledger) GetBalance(ctx context.Context, userID string) (EnergyRow, error) {
	if l.cache != nil {
		var cached EnergyRow
		if found, err := l.cache.Get(ctx, balanceCacheKey(userID), &cached); err == nil && found {
			return cached, nil
		}
	}

	row, found, err := l.store.GetEnergyRow(ctx, userID)
	if err != nil {
		return EnergyRow{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "load energy row", err)
	}
	if !found {
		return EnergyRow{}, huberrors.New(huberrors.KindNotFound, "energy row not found")
	}
	if l.cache != nil {
		_ = l.cache.Set(ctx, balanceCacheKey(userID), row, balanceCacheTTL)
	}
	return row, nil
}

// CanPerform answers whether userID can afford action, without side effects.
func (l *Ledger) CanPerform(ctx context.Context, userID, action string) (CanPerformResult, error) {
	cost, ok := CostOf(action)
	if !ok {
		return CanPerformResult{}, huberrors.New(huberrors.KindUnknownAction, "unknown action: "+action)
	}
	row, err := l.GetBalance(ctx, userID)
	if err != nil {
		return CanPerformResult{}, err
	}
	if row.IsUnlimited() {
		return CanPerformResult{Allowed: true, Required: cost, Current: row.CurrentEnergy, IsUnlimited: true}, nil
	}
	allowed := row.CurrentEnergy >= cost
	deficit := 0
	if !allowed {
		deficit = cost - row.CurrentEnergy
	}
	return CanPerformResult{Allowed: allowed, Required: cost, Current: row.CurrentEnergy, Deficit: deficit}, nil
}

// Consume debits cost for action, transactionally, and is idempotent on
// idempotencyKey: a replay with the same key returns the original tx.
func (l *Ledger) Consume(ctx context.Context, userID, action, idempotencyKey string) (ConsumeResult, error) {
	cost, ok := CostOf(action)
	if !ok {
		return ConsumeResult{}, huberrors.New(huberrors.KindUnknownAction, "unknown action: "+action)
	}

	if idempotencyKey != "" {
		if existing, found, err := l.store.FindTransactionByIdempotencyKey(ctx, userID, idempotencyKey); err == nil && found {
			return ConsumeResult{NewBalance: existing.EnergyAfter, TxID: existing.TxID}, nil
		}
	}

	tx := Transaction{
		TxID:           uuid.NewString(),
		UserID:         userID,
		ActionType:     ActionConsume,
		Action:         action,
		IdempotencyKey: idempotencyKey,
	}

	row, appliedTx, err := l.store.ApplyConsume(ctx, userID, cost, tx)
	if err != nil {
		var insufficient *InsufficientEnergyError
		if errors.As(err, &insufficient) {
			if l.metric != nil {
				l.metric.RecordEnergyTransaction(action, "insufficient", 0)
			}
			return ConsumeResult{}, huberrors.New(huberrors.KindInsufficientEnergy, "insufficient energy").
				WithDetails("required", insufficient.Required).
				WithDetails("current", insufficient.Current).
				WithDetails("deficit", insufficient.Deficit())
		}
		if errors.Is(err, sql.ErrNoRows) {
			return ConsumeResult{}, huberrors.New(huberrors.KindNotFound, "energy row not found")
		}
		return ConsumeResult{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "consume energy", err)
	}

	if l.cache != nil {
		l.cache.Invalidate(ctx, balanceCacheKey(userID))
	}
	if l.metric != nil {
		l.metric.RecordEnergyTransaction(action, "ok", appliedTx.Amount)
		l.metric.ObserveEnergyBalance("user", row.CurrentEnergy)
	}
	if l.logger != nil {
		l.logger.LogLedgerMutation(ctx, userID, action, appliedTx.Amount, row.CurrentEnergy, nil)
	}
	if l.events != nil {
		_, _ = l.events.Record(ctx, events.TypeEnergyConsumed, userID, map[string]interface{}{
			"action":      action,
			"amount":      appliedTx.Amount,
			"tx_id":       appliedTx.TxID,
			"new_balance": row.CurrentEnergy,
		}, nil)
	}

	return ConsumeResult{NewBalance: row.CurrentEnergy, TxID: appliedTx.TxID}, nil
}

// Refund credits back a prior consume transaction. Idempotent per original tx_id.
func (l *Ledger) Refund(ctx context.Context, userID, origTxID, reason string) (ConsumeResult, error) {
	orig, found, err := l.store.GetTransaction(ctx, origTxID)
	if err != nil {
		return ConsumeResult{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "load original transaction", err)
	}
	if !found || orig.UserID != userID {
		return ConsumeResult{}, huberrors.New(huberrors.KindNotFound, "original transaction not found")
	}
	if orig.ActionType != ActionConsume {
		return ConsumeResult{}, huberrors.New(huberrors.KindValidation, "only consume transactions can be refunded")
	}

	if existing, found, err := l.store.FindRefundOfTransaction(ctx, origTxID); err == nil && found {
		return ConsumeResult{NewBalance: existing.EnergyAfter, TxID: existing.TxID}, nil
	}

	tx := Transaction{
		TxID:         uuid.NewString(),
		UserID:       userID,
		ActionType:   ActionRefund,
		Action:       orig.Action,
		Reason:       reason,
		RefundedTxID: origTxID,
	}

	row, appliedTx, err := l.store.ApplyRefund(ctx, userID, orig.Amount, tx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ConsumeResult{}, huberrors.New(huberrors.KindNotFound, "energy row not found")
		}
		return ConsumeResult{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "refund energy", err)
	}

	if l.cache != nil {
		l.cache.Invalidate(ctx, balanceCacheKey(userID))
	}
	if l.metric != nil {
		l.metric.RecordEnergyTransaction(orig.Action, "refunded", appliedTx.Amount)
	}
	if l.events != nil {
		_, _ = l.events.Record(ctx, events.TypeEnergyRefunded, userID, map[string]interface{}{
			"original_tx_id": origTxID,
			"amount":         orig.Amount,
			"tx_id":          appliedTx.TxID,
			"new_balance":    row.CurrentEnergy,
		}, nil)
	}

	return ConsumeResult{NewBalance: row.CurrentEnergy, TxID: appliedTx.TxID}, nil
}

// Purchase credits a pack's energy, optionally with a first-purchase bonus,
// idempotent on providerRef. Subscription packs (EnergyAmount == -1) never
// credit energy: they flip the user to SubscriptionUnlimited instead, via
// ApplySubscription.
func (l *Ledger) Purchase(ctx context.Context, userID string, pack Pack, providerRef string) (ConsumeResult, error) {
	if existing, found, err := l.store.FindTransactionByProviderRef(ctx, providerRef); err == nil && found {
		return ConsumeResult{NewBalance: existing.EnergyAfter, TxID: existing.TxID}, nil
	}

	if pack.Subscription {
		return l.purchaseSubscription(ctx, userID, pack, providerRef)
	}

	row, err := l.GetBalance(ctx, userID)
	if err != nil {
		return ConsumeResult{}, err
	}

	bonus := 0
	if row.TotalPurchased == 0 {
		bonus = pack.BonusFirstPurchase
	}
	credit := pack.EnergyAmount + bonus
	cumulative := false

	tx := Transaction{
		TxID:        uuid.NewString(),
		UserID:      userID,
		ActionType:  ActionPurchase,
		Action:      string(pack.Code),
		ProviderRef: providerRef,
	}

	newRow, appliedTx, err := l.store.ApplyPurchase(ctx, userID, credit, cumulative, tx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ConsumeResult{}, huberrors.New(huberrors.KindNotFound, "energy row not found")
		}
		return ConsumeResult{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "apply purchase", err)
	}

	if l.cache != nil {
		l.cache.Invalidate(ctx, balanceCacheKey(userID))
	}
	if l.metric != nil {
		l.metric.RecordEnergyTransaction(string(pack.Code), "purchased", appliedTx.Amount)
	}
	if l.events != nil {
		_, _ = l.events.Record(ctx, events.TypeEnergyPurchased, userID, map[string]interface{}{
			"pack":         string(pack.Code),
			"credited":     credit,
			"bonus":        bonus,
			"provider_ref": providerRef,
			"tx_id":        appliedTx.TxID,
			"new_balance":  newRow.CurrentEnergy,
		}, nil)
	}

	return ConsumeResult{NewBalance: newRow.CurrentEnergy, TxID: appliedTx.TxID}, nil
}

// purchaseSubscription upgrades userID to SubscriptionUnlimited and records
// a zero-amount transaction against providerRef, without touching the
// energy balance.
func (l *Ledger) purchaseSubscription(ctx context.Context, userID string, pack Pack, providerRef string) (ConsumeResult, error) {
	tx := Transaction{
		TxID:        uuid.NewString(),
		UserID:      userID,
		ActionType:  ActionPurchase,
		Action:      string(pack.Code),
		ProviderRef: providerRef,
	}

	newRow, appliedTx, err := l.store.ApplySubscription(ctx, userID, SubscriptionUnlimited, tx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ConsumeResult{}, huberrors.New(huberrors.KindNotFound, "energy row not found")
		}
		return ConsumeResult{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "apply subscription", err)
	}

	if l.cache != nil {
		l.cache.Invalidate(ctx, balanceCacheKey(userID))
	}
	if l.metric != nil {
		l.metric.RecordEnergyTransaction(string(pack.Code), "subscribed", 0)
	}
	if l.events != nil {
		_, _ = l.events.Record(ctx, events.TypeEnergyPurchased, userID, map[string]interface{}{
			"pack":         string(pack.Code),
			"subscription": string(SubscriptionUnlimited),
			"provider_ref": providerRef,
			"tx_id":        appliedTx.TxID,
			"new_balance":  newRow.CurrentEnergy,
		}, nil)
	}

	return ConsumeResult{NewBalance: newRow.CurrentEnergy, TxID: appliedTx.TxID}, nil
}
