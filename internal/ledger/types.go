// Package ledger implements the Hub's Energy Ledger (4.F): per-user balance
// with transactional consume/refund/purchase and the action cost table.
package ledger

import "time"

// ActionType distinguishes the four kinds of energy transaction.
type ActionType string

const (
	ActionConsume  ActionType = "consume"
	ActionRefund   ActionType = "refund"
	ActionPurchase ActionType = "purchase"
	ActionBonus    ActionType = "bonus"
)

// SubscriptionType distinguishes metered users from unlimited subscribers.
type SubscriptionType string

const (
	SubscriptionStandard  SubscriptionType = "standard"
	SubscriptionUnlimited SubscriptionType = "unlimited"
)

const (
	// DefaultStartingBalance is credited to every newly registered user (spec §4.H).
	DefaultStartingBalance = 85
	// MaxEnergy is the ceiling every Energy row is capped at.
	MaxEnergy = 100
)

// EnergyRow is the per-user balance record (spec §3).
type EnergyRow struct {
	UserID           string
	CurrentEnergy    int
	MaxEnergy        int
	TotalPurchased   int
	TotalConsumed    int
	LastRechargeAt   *time.Time
	SubscriptionType SubscriptionType
	UpdatedAt        time.Time
}

// IsUnlimited reports whether the row belongs to an unlimited subscriber.
func (r EnergyRow) IsUnlimited() bool { return r.SubscriptionType == SubscriptionUnlimited }

// Transaction is an append-only ledger entry (spec §3).
type Transaction struct {
	TxID            string
	UserID          string
	ActionType      ActionType
	Action          string
	Amount          int
	Reason          string
	EnergyBefore    int
	EnergyAfter     int
	Context         map[string]interface{}
	AppSource       string
	FeatureUsed     string
	IdempotencyKey  string
	ProviderRef     string
	RefundedTxID    string
	CreatedAt       time.Time
}

// CanPerformResult is the read-only answer to "would this action succeed".
type CanPerformResult struct {
	Allowed     bool
	Required    int
	Current     int
	Deficit     int
	IsUnlimited bool
}

// ConsumeResult is returned by Consume.
type ConsumeResult struct {
	NewBalance int
	TxID       string
}

// ActionCost is the compile-time action -> cost mapping (spec §3, §9:
// carried in full from the source grid, renamed to job-search-neutral
// action names, grouped into light/standard/complex/premium tiers).
var ActionCost = map[string]int{
	// light (3-8)
	"format_check":  3,
	"quick_advice":  5,
	"targeted_fix":  5,
	"format_letter": 8,

	// standard (10-20)
	"job_analysis":         10,
	"resume_optimization":  12,
	"cover_letter":         15,
	"salary_analysis":      20,

	// complex (25-40)
	"full_resume_analysis": 25,
	"mirror_match":         30,
	"career_transition":    35,
	"application_strategy": 35,
	"interview_simulation": 40,

	// premium (45+)
	"full_profile_audit": 45,
	"reconversion_plan":  50,

	// AI chat tiers (4.J classifier output, spec §4.J): free-form
	// conversation is metered separately from the structured actions above.
	"chat_conversation": 0,
	"chat_advice":       5,
	"chat_optimize":     12,
	"chat_analyze":      15,
	"chat_strategy":     25,
}

// CostOf resolves an action's cost, returning ok=false for unknown actions.
func CostOf(action string) (int, bool) {
	cost, ok := ActionCost[action]
	return cost, ok
}
