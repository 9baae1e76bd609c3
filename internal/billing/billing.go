package billing

import (
	"context"

	huberrors "github.com/careerhub/hub/infrastructure/errors"
	"github.com/careerhub/hub/infrastructure/logging"
	"github.com/careerhub/hub/infrastructure/resilience"
	"github.com/careerhub/hub/internal/events"
	"github.com/careerhub/hub/internal/ledger"
)

// Ledger is the slice of internal/ledger.Ledger the Service depends on.
type Ledger interface {
	Purchase(ctx context.Context, userID string, pack ledger.Pack, providerRef string) (ledger.ConsumeResult, error)
}

// Service implements create_intent / confirm / refund (spec §4.K).
type Service struct {
	store    Store
	ledger   Ledger
	provider Provider
	breaker  *resilience.CircuitBreaker
	events   events.Sink
	logger   *logging.Logger
}

// New constructs a Service. breaker may be nil, in which case the provider
// is called directly.
func New(store Store, l Ledger, provider Provider, breaker *resilience.CircuitBreaker, sink events.Sink, logger *logging.Logger) *Service {
	return &Service{store: store, ledger: l, provider: provider, breaker: breaker, events: sink, logger: logger}
}

func (s *Service) callProvider(ctx context.Context, fn func() error) error {
	if s.breaker == nil {
		return fn()
	}
	return s.breaker.Execute(ctx, fn)
}

// CreateIntent calls the payment provider through (B) and writes the
// pending transaction placeholder (spec §4.K).
func (s *Service) CreateIntent(ctx context.Context, req CreateIntentRequest) (CreateIntentResponse, error) {
	pack, ok := ledger.LookupPack(ledger.PackCode(req.Pack))
	if !ok {
		return CreateIntentResponse{}, huberrors.New(huberrors.KindValidation, "unknown pack: "+req.Pack)
	}
	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	var providerIntentID, clientSecret string
	err := s.callProvider(ctx, func() error {
		id, secret, err := s.provider.CreateIntent(ctx, pack.PriceCents, currency, map[string]string{
			"user_id": req.UserID,
			"pack":    string(pack.Code),
		})
		if err != nil {
			return err
		}
		providerIntentID, clientSecret = id, secret
		return nil
	})
	if err != nil {
		return CreateIntentResponse{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "payment provider create intent failed", err)
	}

	intent := Intent{
		IntentID:     providerIntentID,
		UserID:       req.UserID,
		Pack:         string(pack.Code),
		Currency:     currency,
		AmountCents:  pack.PriceCents,
		Status:       StatusPending,
		ClientSecret: clientSecret,
	}
	if _, err := s.store.CreateIntent(ctx, intent); err != nil {
		return CreateIntentResponse{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "persist payment intent", err)
	}

	return CreateIntentResponse{
		IntentID:     providerIntentID,
		ClientSecret: clientSecret,
		AmountCents:  pack.PriceCents,
		Currency:     currency,
		Pack:         string(pack.Code),
		EnergyUnits:  pack.EnergyAmount,
	}, nil
}

// Confirm queries the provider; on succeeded, atomically credits energy via
// (F) Purchase with provider_ref=intent_id (idempotent on intent_id), and
// emits EnergyPurchased (spec §4.K).
func (s *Service) Confirm(ctx context.Context, req ConfirmRequest) (ConfirmResponse, error) {
	intent, found, err := s.store.GetIntent(ctx, req.IntentID)
	if err != nil {
		return ConfirmResponse{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "load payment intent", err)
	}
	if !found || intent.UserID != req.UserID {
		return ConfirmResponse{}, huberrors.New(huberrors.KindNotFound, "payment intent not found")
	}

	if intent.Status == StatusSucceeded {
		return ConfirmResponse{Status: StatusSucceeded, TransactionID: intent.TxID}, nil
	}

	var providerStatus string
	err = s.callProvider(ctx, func() error {
		status, err := s.provider.GetIntentStatus(ctx, req.IntentID)
		if err != nil {
			return err
		}
		providerStatus = status
		return nil
	})
	if err != nil {
		return ConfirmResponse{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "payment provider status check failed", err)
	}

	if providerStatus != StatusSucceeded {
		_ = s.store.UpdateStatus(ctx, req.IntentID, providerStatus, "")
		return ConfirmResponse{Status: providerStatus}, nil
	}

	pack, ok := ledger.LookupPack(ledger.PackCode(intent.Pack))
	if !ok {
		return ConfirmResponse{}, huberrors.New(huberrors.KindValidation, "unknown pack recorded on intent: "+intent.Pack)
	}

	result, err := s.ledger.Purchase(ctx, req.UserID, pack, req.IntentID)
	if err != nil {
		return ConfirmResponse{}, err
	}

	if err := s.store.UpdateStatus(ctx, req.IntentID, StatusSucceeded, result.TxID); err != nil && s.logger != nil {
		s.logger.Error(ctx, "failed to record confirmed intent status", err, map[string]interface{}{"intent_id": req.IntentID})
	}

	if s.events != nil {
		_, _ = s.events.Record(ctx, events.TypeEnergyPurchased, req.UserID, map[string]interface{}{
			"intent_id":   req.IntentID,
			"pack":        intent.Pack,
			"tx_id":       result.TxID,
			"new_balance": result.NewBalance,
		}, nil)
	}

	energyAdded := pack.EnergyAmount
	if pack.Subscription {
		energyAdded = 0
	}
	return ConfirmResponse{
		Status:        StatusSucceeded,
		EnergyAdded:   energyAdded,
		BonusApplied:  pack.BonusFirstPurchase > 0,
		BonusUnits:    pack.BonusFirstPurchase,
		NewEnergyBal:  result.NewBalance,
		TransactionID: result.TxID,
	}, nil
}

// Refund mirrors (F) refund and the provider refund (spec §4.K). It refunds
// the provider charge first; the energy-side refund is driven separately
// through internal/gate/internal/ledger using the original consume tx, so
// this method only handles the provider-side portion tied to a purchase.
func (s *Service) Refund(ctx context.Context, req RefundRequest) (RefundResponse, error) {
	intent, found, err := s.store.GetIntent(ctx, req.IntentID)
	if err != nil {
		return RefundResponse{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "load payment intent", err)
	}
	if !found || intent.UserID != req.UserID {
		return RefundResponse{}, huberrors.New(huberrors.KindNotFound, "payment intent not found")
	}
	if intent.Status != StatusSucceeded {
		return RefundResponse{}, huberrors.New(huberrors.KindValidation, "only a succeeded intent can be refunded")
	}

	amount := req.AmountCents
	if amount <= 0 {
		amount = intent.AmountCents
	}

	var providerRefundID string
	err = s.callProvider(ctx, func() error {
		id, err := s.provider.Refund(ctx, req.IntentID, amount)
		if err != nil {
			return err
		}
		providerRefundID = id
		return nil
	})
	if err != nil {
		return RefundResponse{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "payment provider refund failed", err)
	}

	if err := s.store.UpdateStatus(ctx, req.IntentID, StatusRefunded, intent.TxID); err != nil && s.logger != nil {
		s.logger.Error(ctx, "failed to record refunded intent status", err, map[string]interface{}{"intent_id": req.IntentID})
	}

	if s.events != nil {
		_, _ = s.events.Record(ctx, events.TypePaymentRefunded, req.UserID, map[string]interface{}{
			"intent_id":       req.IntentID,
			"provider_refund": providerRefundID,
			"amount_cents":    amount,
			"reason":          req.Reason,
		}, nil)
	}

	return RefundResponse{Status: StatusRefunded, ProviderRefund: providerRefundID}, nil
}
