package orchestrator

import "strings"

// classifyRule is one entry in the ordered classification table. Rules are
// evaluated top to bottom; the first phrase found in the lowercased message
// wins. Order matters: more specific phrases sit above the generic ones they
// would otherwise be shadowed by (e.g. "career strategy" above "advice", so
// "any advice on my career strategy?" is billed as strategy).
type classifyRule struct {
	phrase string
	action string
}

// classifyTable maps chat message content to a cost-tier action (spec §4.J:
// {conversation=0, advice=5, optimize=12, analyze=15, strategy=25}). It is a
// deterministic keyword/intent table, not a model call — the AI RPC itself
// stays opaque to billing.
var classifyTable = []classifyRule{
	{"negotiation strategy", actionStrategy},
	{"career strategy", actionStrategy},
	{"application strategy", actionStrategy},
	{"long-term plan", actionStrategy},
	{"career plan", actionStrategy},
	{"transition plan", actionStrategy},

	{"analyze my", actionAnalyze},
	{"analysis of", actionAnalyze},
	{"compare my", actionAnalyze},
	{"score my", actionAnalyze},
	{"evaluate my", actionAnalyze},

	{"optimize", actionOptimize},
	{"improve my resume", actionOptimize},
	{"rewrite my", actionOptimize},
	{"tailor my", actionOptimize},

	{"advice", actionAdvice},
	{"should i", actionAdvice},
	{"what do you think", actionAdvice},
	{"help me decide", actionAdvice},
	{"recommend", actionAdvice},
}

// classify resolves a chat message to a ledger action name. Messages that
// match nothing in the table are ordinary conversation and cost nothing.
func classify(message string) string {
	lower := strings.ToLower(message)
	for _, rule := range classifyTable {
		if strings.Contains(lower, rule.phrase) {
			return rule.action
		}
	}
	return actionConversation
}
