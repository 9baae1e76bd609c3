package orchestrator

import (
	"context"
	"errors"
	"testing"

	huberrors "github.com/careerhub/hub/infrastructure/errors"
	"github.com/careerhub/hub/infrastructure/resilience"
	"github.com/careerhub/hub/internal/events"
	"github.com/careerhub/hub/internal/gate"
	"github.com/careerhub/hub/internal/narrative"
)

type fakeGate struct {
	canPerform gate.CanPerformResponse
	canErr     error
	consume    gate.ConsumeResponse
	consumeErr error
	consumed   []gate.ConsumeRequest
}

func (f *fakeGate) CanPerform(_ context.Context, _ gate.CanPerformRequest) (gate.CanPerformResponse, error) {
	return f.canPerform, f.canErr
}

func (f *fakeGate) Consume(_ context.Context, req gate.ConsumeRequest) (gate.ConsumeResponse, error) {
	f.consumed = append(f.consumed, req)
	return f.consume, f.consumeErr
}

type fakeContextBuilder struct {
	packet narrative.ContextPacket
}

func (f *fakeContextBuilder) Get(_ context.Context, userID string) narrative.ContextPacket {
	f.packet.UserID = userID
	return f.packet
}

type fakeProvider struct {
	reply string
	err   error
	calls int
}

func (f *fakeProvider) Generate(_ context.Context, _ Prompt) (string, error) {
	f.calls++
	return f.reply, f.err
}

type fakeSink struct {
	recorded []string
}

func (f *fakeSink) Record(_ context.Context, eventType, _ string, _, _ map[string]interface{}) (string, error) {
	f.recorded = append(f.recorded, eventType)
	return "evt-1", nil
}

func TestOrchestrator_Chat_Success(t *testing.T) {
	g := &fakeGate{
		canPerform: gate.CanPerformResponse{Allowed: true, Required: 5, Current: 80},
		consume:    gate.ConsumeResponse{NewBalance: 75, TxID: "tx-1"},
	}
	provider := &fakeProvider{reply: "here's some advice"}
	sink := &fakeSink{}
	o := New(g, &fakeContextBuilder{}, provider, nil, resilience.RetryConfig{}, sink, nil)

	resp, err := o.Chat(context.Background(), ChatRequest{UserID: "user-1", Message: "should I apply to this role?"})
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if resp.Message != "here's some advice" {
		t.Fatalf("Message = %q", resp.Message)
	}
	if resp.EnergyConsumed != 5 {
		t.Fatalf("EnergyConsumed = %d, want 5", resp.EnergyConsumed)
	}
	if len(g.consumed) != 1 || g.consumed[0].Action != actionAdvice {
		t.Fatalf("consumed = %+v, want one chat_advice consume", g.consumed)
	}
	if len(sink.recorded) != 1 || sink.recorded[0] != events.TypeAIResponseGenerated {
		t.Fatalf("recorded = %v, want [%s]", sink.recorded, events.TypeAIResponseGenerated)
	}
}

func TestOrchestrator_Chat_InsufficientEnergyNeverCallsProvider(t *testing.T) {
	g := &fakeGate{canPerform: gate.CanPerformResponse{Allowed: false, Required: 25, Current: 10, Deficit: 15}}
	provider := &fakeProvider{reply: "should not be reached"}
	o := New(g, &fakeContextBuilder{}, provider, nil, resilience.RetryConfig{}, &fakeSink{}, nil)

	_, err := o.Chat(context.Background(), ChatRequest{UserID: "user-1", Message: "build me a career strategy"})
	if !huberrors.Is(err, huberrors.KindInsufficientEnergy) {
		t.Fatalf("expected InsufficientEnergy, got %v", err)
	}
	if provider.calls != 0 {
		t.Fatalf("provider.calls = %d, want 0", provider.calls)
	}
}

func TestOrchestrator_Chat_ProviderFailureSkipsConsumeAndEmitsFailure(t *testing.T) {
	g := &fakeGate{canPerform: gate.CanPerformResponse{Allowed: true, Required: 5, Current: 80}}
	provider := &fakeProvider{err: errors.New("provider unavailable")}
	sink := &fakeSink{}
	o := New(g, &fakeContextBuilder{}, provider, nil, resilience.RetryConfig{}, sink, nil)

	_, err := o.Chat(context.Background(), ChatRequest{UserID: "user-1", Message: "should I take this offer?"})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(g.consumed) != 0 {
		t.Fatalf("consumed = %+v, want no consume on provider failure", g.consumed)
	}
	if len(sink.recorded) != 1 || sink.recorded[0] != events.TypeAIResponseFailed {
		t.Fatalf("recorded = %v, want [%s]", sink.recorded, events.TypeAIResponseFailed)
	}
}
