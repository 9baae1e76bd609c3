package narrative

import "strings"

// keywordTable maps lowercase keywords to a sentiment category. Checked in
// table order, first match wins — mirrors the ordered-keyword-table
// convention used for the chat-action classifier (internal/orchestrator).
var keywordTable = []struct {
	keyword   string
	sentiment string
}{
	{"worried", SentimentAnxious},
	{"anxious", SentimentAnxious},
	{"stressed", SentimentAnxious},
	{"nervous", SentimentAnxious},
	{"rejected", SentimentAnxious},
	{"excited", SentimentMotivated},
	{"motivated", SentimentMotivated},
	{"ready", SentimentMotivated},
	{"confident", SentimentMotivated},
	{"how does", SentimentCurious},
	{"how do", SentimentCurious},
	{"what is", SentimentCurious},
	{"why", SentimentCurious},
	{"curious", SentimentCurious},
	{"salary", SentimentFactual},
	{"deadline", SentimentFactual},
	{"requirements", SentimentFactual},
}

// energyKeywords maps lowercase keywords to an energy level, same
// first-match-wins ordering.
var energyKeywords = []struct {
	keyword string
	level   string
}{
	{"exhausted", EnergyLow},
	{"tired", EnergyLow},
	{"burned out", EnergyLow},
	{"overwhelmed", EnergyLow},
	{"pumped", EnergyHigh},
	{"energized", EnergyHigh},
	{"excited", EnergyHigh},
}

// classifySentiment scans the most recent user-authored text against the
// keyword table. No match yields the neutral category at medium energy.
func classifySentiment(texts []string) (sentiment, energy string) {
	sentiment, energy = SentimentNeutral, EnergyMedium
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, row := range keywordTable {
			if strings.Contains(lower, row.keyword) {
				sentiment = row.sentiment
				break
			}
		}
		for _, row := range energyKeywords {
			if strings.Contains(lower, row.keyword) {
				energy = row.level
				break
			}
		}
		if sentiment != SentimentNeutral || energy != EnergyMedium {
			break
		}
	}
	return sentiment, energy
}
