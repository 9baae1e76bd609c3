package orchestrator

import (
	"fmt"
	"strings"

	"github.com/careerhub/hub/internal/narrative"
)

// systemPersona is the fixed part of the system prompt: tone and scope
// instructions that do not vary per request. A real deployment would load
// this from a versioned prompt file; it is inlined here since no such file
// exists yet.
const systemPersona = "You are a career coaching assistant. Be concise, specific, and grounded in the user's own history. Never invent facts about the user that are not present in the context block."

// playbookTags derives a short tone/reading-level directive from the
// packet's sentiment and energy reading, the way a persona playbook line
// would (system + playbook + context block).
func playbookTags(packet narrative.ContextPacket) string {
	tone := "neutral"
	switch packet.Sentiment {
	case narrative.SentimentAnxious:
		tone = "reassuring"
	case narrative.SentimentMotivated:
		tone = "energetic"
	case narrative.SentimentCurious:
		tone = "exploratory"
	case narrative.SentimentFactual:
		tone = "direct"
	}
	level := "standard"
	if packet.EnergyLevel == narrative.EnergyLow {
		level = "simple"
	}
	return fmt.Sprintf("[TONE=%s] [READING_LEVEL=%s]", tone, level)
}

// contextSummary renders the Context Packet into a short narrative block
// the prompt can embed, rather than handing the model the raw JSON.
func contextSummary(packet narrative.ContextPacket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User has been active for %d days on the %s plan.\n", packet.User.AgeDays, packet.User.Plan)
	fmt.Fprintf(&b, "Sessions in the last 7 days: %d across %d apps.\n", packet.Usage.SessionsLast7d, len(packet.Usage.AppsLast7d))
	for _, p := range packet.Progress {
		fmt.Fprintf(&b, "Metric %q trend: %s (latest %.1f, 7d delta %.1f).\n", p.Metric, p.Trend, p.Latest, p.Delta7d)
	}
	fmt.Fprintf(&b, "Inferred sentiment: %s, energy: %s, confidence: %.2f.\n", packet.Sentiment, packet.EnergyLevel, packet.Confidence)
	return b.String()
}

// assemblePrompt combines the persona, the playbook tags, the context
// packet narrative, and the user's message into the Prompt handed to the
// AI Provider (spec §4.J step 4).
func assemblePrompt(packet narrative.ContextPacket, message string) Prompt {
	context := fmt.Sprintf("%s\n[CONTEXT_PACKET]\n%s", playbookTags(packet), contextSummary(packet))
	return Prompt{
		System:  systemPersona,
		Context: context,
		User:    message,
	}
}
