// Package orchestrator implements the AI Orchestrator (4.J): the single
// place a chat message turns into classify -> can_perform -> context ->
// prompt -> AI RPC -> consume -> event. It owns no persistence of its own;
// every side effect is delegated to Gate, the Context Builder, or the event
// sink it is constructed with.
package orchestrator

import (
	"context"

	huberrors "github.com/careerhub/hub/infrastructure/errors"
	"github.com/careerhub/hub/infrastructure/logging"
	"github.com/careerhub/hub/infrastructure/resilience"
	"github.com/careerhub/hub/internal/events"
	"github.com/careerhub/hub/internal/gate"
	"github.com/careerhub/hub/internal/narrative"
)

// Gate is the slice of internal/gate.Gate the Orchestrator depends on.
type Gate interface {
	CanPerform(ctx context.Context, req gate.CanPerformRequest) (gate.CanPerformResponse, error)
	Consume(ctx context.Context, req gate.ConsumeRequest) (gate.ConsumeResponse, error)
}

// ContextBuilder is the slice of internal/narrative.Builder the Orchestrator
// depends on.
type ContextBuilder interface {
	Get(ctx context.Context, userID string) narrative.ContextPacket
}

// Orchestrator assembles prompts and routes them to the AI Provider through
// a circuit breaker and retry policy, gating and billing through Gate.
type Orchestrator struct {
	gate     Gate
	context  ContextBuilder
	provider Provider
	breaker  *resilience.CircuitBreaker
	retry    resilience.RetryConfig
	events   events.Sink
	logger   *logging.Logger
}

// New constructs an Orchestrator. breaker and retry may be nil/zero, in
// which case the provider is called directly with a single attempt.
func New(g Gate, ctxBuilder ContextBuilder, provider Provider, breaker *resilience.CircuitBreaker, retry resilience.RetryConfig, sink events.Sink, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		gate:     g,
		context:  ctxBuilder,
		provider: provider,
		breaker:  breaker,
		retry:    retry,
		events:   sink,
		logger:   logger,
	}
}

// Chat runs the full 8-step flow from spec §4.J.
func (o *Orchestrator) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	action := classify(req.Message)

	canPerform, err := o.gate.CanPerform(ctx, gate.CanPerformRequest{UserID: req.UserID, Action: action})
	if err != nil {
		return ChatResponse{}, err
	}
	if !canPerform.Allowed {
		return ChatResponse{}, huberrors.New(huberrors.KindInsufficientEnergy, "insufficient energy for this request").
			WithDetails("required", canPerform.Required).
			WithDetails("current", canPerform.Current).
			WithDetails("deficit", canPerform.Deficit)
	}

	packet := o.context.Get(ctx, req.UserID)
	prompt := assemblePrompt(packet, req.Message)

	reply, err := o.callProvider(ctx, prompt)
	if err != nil {
		o.emitFailure(ctx, req.UserID, action, err)
		return ChatResponse{}, huberrors.Wrap(huberrors.KindUpstreamUnavailable, "ai provider call failed", err)
	}

	_, err = o.gate.Consume(ctx, gate.ConsumeRequest{UserID: req.UserID, Action: action, IdempotencyKey: ""})
	if err != nil {
		return ChatResponse{}, err
	}

	if o.events != nil {
		_, _ = o.events.Record(ctx, events.TypeAIResponseGenerated, req.UserID, map[string]interface{}{
			"action":          action,
			"energy_consumed": canPerform.Required,
			"app_context":     req.AppContext,
		}, nil)
	}

	return ChatResponse{
		Message:        reply,
		EnergyConsumed: canPerform.Required,
		Context:        prompt.Context,
	}, nil
}

// callProvider routes the AI RPC through the circuit breaker and retry
// policy, when configured (spec §4.J step 5: "through (B) with its own pool/
// timeout").
func (o *Orchestrator) callProvider(ctx context.Context, prompt Prompt) (string, error) {
	var reply string
	call := func() error {
		r, err := o.provider.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		reply = r
		return nil
	}

	run := call
	if o.retry.MaxAttempts > 0 {
		run = func() error {
			return resilience.Retry(ctx, o.retry, call)
		}
	}

	if o.breaker != nil {
		if err := o.breaker.Execute(ctx, run); err != nil {
			return "", err
		}
		return reply, nil
	}
	if err := run(); err != nil {
		return "", err
	}
	return reply, nil
}

// emitFailure records AIResponseFailed without touching the ledger: energy
// is never consumed for a failed AI RPC (spec §4.J final sentence).
func (o *Orchestrator) emitFailure(ctx context.Context, userID, action string, cause error) {
	if o.logger != nil {
		o.logger.Error(ctx, "ai provider call failed", cause, map[string]interface{}{"user_id": userID, "action": action})
	}
	if o.events != nil {
		_, _ = o.events.Record(ctx, events.TypeAIResponseFailed, userID, map[string]interface{}{
			"action": action,
			"error":  cause.Error(),
		}, nil)
	}
}
