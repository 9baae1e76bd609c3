package narrative

import (
	"math"
	"time"

	"github.com/careerhub/hub/internal/events"
)

// trackedMetrics are the progress-snapshot metrics pulled from event
// payloads (spec §4.G: "ATS score, letters created, CV optimizations").
var trackedMetrics = []struct {
	name       string
	eventType  string
	payloadKey string
}{
	{"ats_score", events.TypeActionPerformed, "ats_score"},
	{"letters_created", events.TypeActionPerformed, "letters_created"},
	{"cv_optimizations", events.TypeActionPerformed, "cv_optimizations"},
}

// aggregate folds a user's recent events into a ContextPacket. now is
// passed in so the packet's age/recency math is deterministic and
// testable.
func aggregate(userID string, evs []events.Event, now time.Time) ContextPacket {
	packet := ContextPacket{
		UserID:      userID,
		GeneratedAt: now,
	}

	var firstEventAt, lastEventAt time.Time
	sevenDaysAgo := now.AddDate(0, 0, -7)

	appSeen := map[string]bool{}
	actionCounts := map[string]int{}
	sessions := 0
	var recentTexts []string

	for _, e := range evs {
		if firstEventAt.IsZero() || e.CreatedAt.Before(firstEventAt) {
			firstEventAt = e.CreatedAt
		}
		if e.CreatedAt.After(lastEventAt) {
			lastEventAt = e.CreatedAt
		}

		if e.CreatedAt.After(sevenDaysAgo) {
			if app, ok := e.Payload["app_source"].(string); ok && app != "" {
				appSeen[app] = true
			}
			actionCounts[e.Type]++
			if e.Type == events.TypeLoginSucceeded {
				sessions++
			}
		}

		if msg, ok := e.Payload["message"].(string); ok && msg != "" {
			recentTexts = append(recentTexts, msg)
		}
	}

	apps := make([]string, 0, len(appSeen))
	for app := range appSeen {
		apps = append(apps, app)
	}

	packet.User = UserSummary{
		AgeDays: daysBetween(firstEventAt, now),
	}
	packet.Usage = UsageStats{
		SessionsLast7d: sessions,
		AppsLast7d:     apps,
		ActionCounts:   actionCounts,
	}
	packet.Progress = progressSnapshot(evs, now)

	// Sentiment scans the most recent messages first.
	reversed := make([]string, len(recentTexts))
	for i, t := range recentTexts {
		reversed[len(recentTexts)-1-i] = t
	}
	packet.Sentiment, packet.EnergyLevel = classifySentiment(reversed)

	packet.Confidence = confidence(len(evs), lastEventAt, now)
	return packet
}

// confidence implements spec §4.G: min(1, events_considered/50) × recency_factor,
// recency_factor = exp(-days_since_last_event/14).
func confidence(eventsConsidered int, lastEventAt, now time.Time) float64 {
	if eventsConsidered == 0 || lastEventAt.IsZero() {
		return 0.1
	}
	volumeFactor := math.Min(1, float64(eventsConsidered)/50)
	daysSince := now.Sub(lastEventAt).Hours() / 24
	recencyFactor := math.Exp(-daysSince / 14)
	return volumeFactor * recencyFactor
}

func daysBetween(from, to time.Time) int {
	if from.IsZero() {
		return 0
	}
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}

// progressSnapshot derives latest/previous values and rolling deltas for
// each tracked metric, plus a trend label from the 7-day delta thresholds:
// breakthrough >= +20, rising >= +5, stable |delta| < 5, declining <= -5,
// stagnant <= -10 over a 30-day window.
func progressSnapshot(evs []events.Event, now time.Time) []MetricProgress {
	out := make([]MetricProgress, 0, len(trackedMetrics))
	for _, m := range trackedMetrics {
		samples := metricSamples(evs, m.eventType, m.payloadKey)
		if len(samples) == 0 {
			continue
		}
		out = append(out, buildMetricProgress(m.name, samples, now))
	}
	return out
}

type metricSample struct {
	at    time.Time
	value float64
}

func metricSamples(evs []events.Event, eventType, payloadKey string) []metricSample {
	var samples []metricSample
	for _, e := range evs {
		if e.Type != eventType {
			continue
		}
		raw, ok := e.Payload[payloadKey]
		if !ok {
			continue
		}
		v, ok := toFloat(raw)
		if !ok {
			continue
		}
		samples = append(samples, metricSample{at: e.CreatedAt, value: v})
	}
	return samples
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func buildMetricProgress(name string, samples []metricSample, now time.Time) MetricProgress {
	latest := samples[len(samples)-1]
	var previous metricSample
	if len(samples) >= 2 {
		previous = samples[len(samples)-2]
	} else {
		previous = latest
	}

	valueAt := func(horizon time.Duration) float64 {
		cutoff := now.Add(-horizon)
		best := samples[0].value
		for _, s := range samples {
			if s.at.After(cutoff) {
				break
			}
			best = s.value
		}
		return best
	}

	delta1d := latest.value - valueAt(24*time.Hour)
	delta7d := latest.value - valueAt(7*24*time.Hour)
	delta30d := latest.value - valueAt(30*24*time.Hour)

	return MetricProgress{
		Metric:   name,
		Latest:   latest.value,
		Previous: previous.value,
		Delta1d:  delta1d,
		Delta7d:  delta7d,
		Delta30d: delta30d,
		Trend:    trendLabel(delta7d, delta30d),
	}
}

func trendLabel(delta7d, delta30d float64) string {
	switch {
	case delta7d >= 20:
		return TrendBreakthrough
	case delta7d >= 5:
		return TrendRising
	case delta30d <= -10:
		return TrendStagnant
	case delta7d <= -5:
		return TrendDeclining
	default:
		return TrendStable
	}
}
