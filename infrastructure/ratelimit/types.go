// Package ratelimit implements the Rate Limiter (4.C): per-scope,
// per-identifier request throttling backed by Redis-evaluated Lua scripts,
// with an in-process fallback when Redis is unreachable.
package ratelimit

import "time"

// Algorithm selects how a Rule's budget is tracked.
type Algorithm string

const (
	FixedWindow   Algorithm = "fixed_window"
	SlidingWindow Algorithm = "sliding_window"
	TokenBucket   Algorithm = "token_bucket"
	LeakyBucket   Algorithm = "leaky_bucket"
)

// Priority affects fail-open vs fail-closed behavior when both Redis and
// the in-process fallback cannot evaluate a rule (spec §4.C Failure mode).
type Priority string

const (
	PriorityNormal   Priority = "normal"
	PriorityCritical Priority = "critical"
)

// Rule configures one scope's limiting behavior.
type Rule struct {
	Scope         string
	Algorithm     Algorithm
	Limit         int
	Window        time.Duration
	BurstSize     int // TokenBucket/LeakyBucket capacity override; 0 means use Limit
	BlockDuration time.Duration
	Priority      Priority
	Enabled       bool
}

// Status is the outcome of a Check.
type Status string

const (
	Allowed Status = "allowed"
	Limited Status = "limited"
	Blocked Status = "blocked"
)

// CheckResult is returned by Check.
type CheckResult struct {
	Status       Status
	Remaining    int
	ResetAt      time.Time
	BlockedUntil time.Time
	FallbackUsed bool
}

// Well-known scopes (spec §4.C).
const (
	ScopeAuthLogin    = "auth.login"
	ScopeAuthRegister = "auth.register"
	ScopeAPIGeneral   = "api.general"
	ScopeAPIEnergy    = "api.energy"
	ScopeAIChat       = "api.ai_chat"
	ScopeGlobalDDoS   = "global.ddos"
	ScopeIPGeneral    = "ip.general"
)

// DefaultRules returns the Hub's baseline rule set, grounded on the scopes
// and req/window/block values named in spec §4.C and the rate-limiting
// admin endpoints of the system this was distilled from.
func DefaultRules() map[string]Rule {
	rules := []Rule{
		{Scope: ScopeAuthLogin, Algorithm: SlidingWindow, Limit: 5, Window: time.Minute, BlockDuration: 15 * time.Minute, Priority: PriorityCritical},
		{Scope: ScopeAuthRegister, Algorithm: FixedWindow, Limit: 3, Window: time.Hour, BlockDuration: time.Hour, Priority: PriorityNormal},
		{Scope: ScopeAPIGeneral, Algorithm: TokenBucket, Limit: 100, Window: time.Minute, BurstSize: 150, Priority: PriorityNormal},
		{Scope: ScopeAPIEnergy, Algorithm: TokenBucket, Limit: 30, Window: time.Minute, BurstSize: 40, Priority: PriorityNormal},
		{Scope: ScopeAIChat, Algorithm: LeakyBucket, Limit: 20, Window: time.Minute, BurstSize: 5, Priority: PriorityNormal},
		{Scope: ScopeGlobalDDoS, Algorithm: FixedWindow, Limit: 10000, Window: time.Minute, BlockDuration: 5 * time.Minute, Priority: PriorityCritical},
		{Scope: ScopeIPGeneral, Algorithm: SlidingWindow, Limit: 600, Window: time.Minute, BlockDuration: 10 * time.Minute, Priority: PriorityNormal},
	}
	for i := range rules {
		rules[i].Enabled = true
	}
	out := make(map[string]Rule, len(rules))
	for _, r := range rules {
		out[r.Scope] = r
	}
	return out
}
