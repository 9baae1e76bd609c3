package metrics

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestAlertManager_FiresOnBreach(t *testing.T) {
	var mu sync.Mutex
	var fired []Alert

	am := NewAlertManager(func(a Alert) {
		mu.Lock()
		defer mu.Unlock()
		fired = append(fired, a)
	})

	breached := true
	am.AddRule(Rule{
		Name:      "error_rate_high",
		Severity:  SeverityCritical,
		Threshold: 0.05,
		Check: func(ctx context.Context) (float64, bool) {
			return 0.9, breached
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go am.Run(ctx, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	cancel()

	mu.Lock()
	defer mu.Unlock()
	if len(fired) == 0 {
		t.Fatal("expected at least one alert to fire")
	}
	if fired[0].Name != "error_rate_high" {
		t.Errorf("unexpected alert name: %s", fired[0].Name)
	}
}

func TestAlertManager_DoesNotRefireWhileActive(t *testing.T) {
	var mu sync.Mutex
	count := 0

	am := NewAlertManager(func(a Alert) {
		mu.Lock()
		defer mu.Unlock()
		count++
	})

	am.AddRule(Rule{
		Name:      "circuit_open_too_long",
		Severity:  SeverityWarning,
		Threshold: 1,
		Check: func(ctx context.Context) (float64, bool) {
			return 2, true
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go am.Run(ctx, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	cancel()

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("expected exactly 1 fire while breach persists, got %d", count)
	}
}

func TestAlertManager_ClearsWhenResolved(t *testing.T) {
	resolved := false
	am := NewAlertManager(func(a Alert) {})

	am.AddRule(Rule{
		Name:      "rate_limit_spike",
		Severity:  SeverityWarning,
		Threshold: 10,
		Check: func(ctx context.Context) (float64, bool) {
			return 20, !resolved
		},
	})

	am.evaluate(context.Background())
	if len(am.ActiveAlerts()) != 1 {
		t.Fatalf("expected 1 active alert, got %d", len(am.ActiveAlerts()))
	}

	resolved = true
	am.evaluate(context.Background())
	if len(am.ActiveAlerts()) != 0 {
		t.Fatalf("expected 0 active alerts after resolution, got %d", len(am.ActiveAlerts()))
	}
}

func TestAlertManager_Stop(t *testing.T) {
	am := NewAlertManager(func(a Alert) {})
	am.Stop()
	am.Stop() // must not panic on double-stop
}
