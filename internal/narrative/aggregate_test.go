package narrative

import (
	"testing"
	"time"

	"github.com/careerhub/hub/internal/events"
)

func TestAggregate_EmptyEventsYieldsLowConfidence(t *testing.T) {
	now := time.Now()
	packet := aggregate("user-1", nil, now)
	if packet.Confidence != 0.1 {
		t.Fatalf("Confidence = %v, want 0.1 for no events", packet.Confidence)
	}
}

func TestAggregate_SessionsCountedFromLoginSucceeded(t *testing.T) {
	now := time.Now()
	evs := []events.Event{
		{Type: events.TypeLoginSucceeded, CreatedAt: now.Add(-2 * 24 * time.Hour)},
		{Type: events.TypeLoginSucceeded, CreatedAt: now.Add(-10 * 24 * time.Hour)}, // outside 7d window
	}
	packet := aggregate("user-1", evs, now)
	if packet.Usage.SessionsLast7d != 1 {
		t.Fatalf("SessionsLast7d = %d, want 1", packet.Usage.SessionsLast7d)
	}
}

func TestAggregate_AppMixIsDistinct(t *testing.T) {
	now := time.Now()
	evs := []events.Event{
		{Type: events.TypeActionPerformed, CreatedAt: now, Payload: map[string]interface{}{"app_source": "resume"}},
		{Type: events.TypeActionPerformed, CreatedAt: now, Payload: map[string]interface{}{"app_source": "resume"}},
		{Type: events.TypeActionPerformed, CreatedAt: now, Payload: map[string]interface{}{"app_source": "letters"}},
	}
	packet := aggregate("user-1", evs, now)
	if len(packet.Usage.AppsLast7d) != 2 {
		t.Fatalf("AppsLast7d = %v, want 2 distinct apps", packet.Usage.AppsLast7d)
	}
}

func TestAggregate_ProgressTrendBreakthrough(t *testing.T) {
	now := time.Now()
	evs := []events.Event{
		{Type: events.TypeActionPerformed, CreatedAt: now.Add(-10 * 24 * time.Hour), Payload: map[string]interface{}{"ats_score": float64(50)}},
		{Type: events.TypeActionPerformed, CreatedAt: now, Payload: map[string]interface{}{"ats_score": float64(85)}},
	}
	packet := aggregate("user-1", evs, now)
	if len(packet.Progress) != 1 {
		t.Fatalf("expected one tracked metric, got %d", len(packet.Progress))
	}
	if packet.Progress[0].Trend != TrendBreakthrough {
		t.Fatalf("Trend = %q, want %q", packet.Progress[0].Trend, TrendBreakthrough)
	}
}

func TestAggregate_ConfidenceScalesWithVolumeAndRecency(t *testing.T) {
	now := time.Now()
	var manyRecent []events.Event
	for i := 0; i < 60; i++ {
		manyRecent = append(manyRecent, events.Event{Type: events.TypeActionPerformed, CreatedAt: now})
	}
	recent := aggregate("user-1", manyRecent, now)

	var fewStale []events.Event
	for i := 0; i < 5; i++ {
		fewStale = append(fewStale, events.Event{Type: events.TypeActionPerformed, CreatedAt: now.Add(-60 * 24 * time.Hour)})
	}
	stale := aggregate("user-1", fewStale, now)

	if recent.Confidence <= stale.Confidence {
		t.Fatalf("expected recent/high-volume confidence (%v) > stale/low-volume (%v)", recent.Confidence, stale.Confidence)
	}
	if recent.Confidence > 1 {
		t.Fatalf("Confidence must be capped at 1, got %v", recent.Confidence)
	}
}

func TestClassifySentiment_KeywordMatch(t *testing.T) {
	sentiment, energy := classifySentiment([]string{"I'm feeling really anxious about this interview"})
	if sentiment != SentimentAnxious {
		t.Fatalf("sentiment = %q, want %q", sentiment, SentimentAnxious)
	}
	_ = energy
}

func TestClassifySentiment_NoMatchIsNeutral(t *testing.T) {
	sentiment, energy := classifySentiment([]string{"just checking my dashboard"})
	if sentiment != SentimentNeutral || energy != EnergyMedium {
		t.Fatalf("sentiment/energy = %q/%q, want neutral/medium", sentiment, energy)
	}
}
