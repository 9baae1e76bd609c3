package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"

	"github.com/careerhub/hub/infrastructure/logging"
)

// Limiter evaluates Rules against Redis, falling back to a conservative
// in-process limiter when Redis cannot be reached. On primary outage it
// records fallback_use via the optional OnFallbackUse hook (spec §4.C).
type Limiter struct {
	redis *redis.Client
	rules map[string]Rule

	onFallbackUse func(scope string)
	logger        *logging.Logger

	fallbackMu sync.Mutex
	fallback   map[string]*rate.Limiter

	blockMu    sync.Mutex
	blockLocal map[string]time.Time
}

// Config configures a Limiter.
type Config struct {
	Redis         *redis.Client // nil disables the primary tier; every check runs in-process
	Rules         map[string]Rule
	OnFallbackUse func(scope string)
	Logger        *logging.Logger
}

// New constructs a Limiter. A nil or empty Rules map uses DefaultRules.
func New(cfg Config) *Limiter {
	rules := cfg.Rules
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Limiter{
		redis:         cfg.Redis,
		rules:         rules,
		onFallbackUse: cfg.OnFallbackUse,
		logger:        cfg.Logger,
		fallback:      make(map[string]*rate.Limiter),
		blockLocal:    make(map[string]time.Time),
	}
}

// Check evaluates identifier against scope's rule. Per spec §4.C the
// limiter itself never errors: an unevaluable critical-priority scope
// returns Blocked, everything else fails open as Allowed.
func (l *Limiter) Check(ctx context.Context, scope, identifier string) CheckResult {
	rule, ok := l.rules[scope]
	if !ok || !rule.Enabled {
		return CheckResult{Status: Allowed}
	}

	if until, blocked := l.blockStatus(scope, identifier); blocked {
		return CheckResult{Status: Blocked, BlockedUntil: until}
	}

	result, err := l.evalRedis(ctx, rule, identifier)
	if err != nil {
		result = l.evalFallback(rule, identifier)
		result.FallbackUsed = true
		if l.onFallbackUse != nil {
			l.onFallbackUse(scope)
		}
		if l.logger != nil {
			l.logger.WithContext(ctx).WithError(err).Warn("rate limiter primary unavailable, using fallback")
		}
	}

	if result.Status == Limited && rule.BlockDuration > 0 {
		l.setBlock(scope, identifier, time.Now().UTC().Add(rule.BlockDuration))
		result.Status = Limited
		result.BlockedUntil = time.Now().UTC().Add(rule.BlockDuration)
	}
	return result
}

func blockKey(scope, identifier string) string { return scope + "|" + identifier }

func (l *Limiter) blockStatus(scope, identifier string) (time.Time, bool) {
	l.blockMu.Lock()
	defer l.blockMu.Unlock()
	until, ok := l.blockLocal[blockKey(scope, identifier)]
	if !ok {
		return time.Time{}, false
	}
	if time.Now().UTC().After(until) {
		delete(l.blockLocal, blockKey(scope, identifier))
		return time.Time{}, false
	}
	return until, true
}

func (l *Limiter) setBlock(scope, identifier string, until time.Time) {
	l.blockMu.Lock()
	defer l.blockMu.Unlock()
	l.blockLocal[blockKey(scope, identifier)] = until
}

// CleanupExpiredBlocks drops block records that have already expired,
// bounding blockLocal's size. Intended to run on a periodic tick, not the
// request hot path.
func (l *Limiter) CleanupExpiredBlocks() int {
	l.blockMu.Lock()
	defer l.blockMu.Unlock()
	now := time.Now().UTC()
	cleaned := 0
	for k, until := range l.blockLocal {
		if now.After(until) {
			delete(l.blockLocal, k)
			cleaned++
		}
	}
	return cleaned
}

// Reset clears all in-process fallback and block state for identifier
// under scope. Administrative use only (manual unblock).
func (l *Limiter) Reset(scope, identifier string) {
	l.blockMu.Lock()
	delete(l.blockLocal, blockKey(scope, identifier))
	l.blockMu.Unlock()

	l.fallbackMu.Lock()
	delete(l.fallback, blockKey(scope, identifier))
	l.fallbackMu.Unlock()
}

func redisKey(scope, identifier string) string {
	return fmt.Sprintf("ratelimit:%s:%s", scope, identifier)
}

func (l *Limiter) evalRedis(ctx context.Context, rule Rule, identifier string) (CheckResult, error) {
	if l.redis == nil {
		return CheckResult{}, fmt.Errorf("no redis client configured")
	}

	key := redisKey(rule.Scope, identifier)
	now := float64(time.Now().UTC().UnixNano()) / 1e9

	var script string
	var keysAndArgs []interface{}

	switch rule.Algorithm {
	case FixedWindow:
		script = fixedWindowScript
		keysAndArgs = []interface{}{rule.Limit, rule.Window.Seconds(), now}
	case SlidingWindow:
		script = slidingWindowScript
		member := fmt.Sprintf("%d", time.Now().UTC().UnixNano())
		keysAndArgs = []interface{}{rule.Limit, rule.Window.Seconds(), now, member}
	case TokenBucket:
		script = tokenBucketScript
		capacity := rule.BurstSize
		if capacity <= 0 {
			capacity = rule.Limit
		}
		refill := float64(rule.Limit) / rule.Window.Seconds()
		keysAndArgs = []interface{}{capacity, refill, now}
	case LeakyBucket:
		script = leakyBucketScript
		capacity := rule.BurstSize
		if capacity <= 0 {
			capacity = rule.Limit
		}
		drain := float64(rule.Limit) / rule.Window.Seconds()
		keysAndArgs = []interface{}{capacity, drain, now}
	default:
		return CheckResult{}, fmt.Errorf("unknown algorithm: %s", rule.Algorithm)
	}

	raw, err := l.redis.Eval(ctx, script, []string{key}, keysAndArgs...).Result()
	if err != nil {
		return CheckResult{}, err
	}
	vals, ok := raw.([]interface{})
	if !ok || len(vals) != 3 {
		return CheckResult{}, fmt.Errorf("unexpected rate limit script result")
	}
	allowed, _ := vals[0].(int64)
	remaining, _ := vals[1].(int64)
	resetAtUnix, _ := vals[2].(int64)

	status := Allowed
	if allowed == 0 {
		status = Limited
	}
	return CheckResult{
		Status:    status,
		Remaining: int(remaining),
		ResetAt:   time.Unix(resetAtUnix, 0).UTC(),
	}, nil
}

// evalFallback applies a more conservative in-process token-bucket
// approximation of the rule regardless of its configured algorithm, since
// golang.org/x/time/rate only models token buckets. Per spec §4.C this is
// intentionally stricter than the primary (half the limit).
func (l *Limiter) evalFallback(rule Rule, identifier string) CheckResult {
	l.fallbackMu.Lock()
	key := blockKey(rule.Scope, identifier)
	limiter, ok := l.fallback[key]
	if !ok {
		conservativeLimit := rate.Limit(float64(rule.Limit) / rule.Window.Seconds() / 2)
		burst := rule.Limit / 2
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(conservativeLimit, burst)
		l.fallback[key] = limiter
	}
	l.fallbackMu.Unlock()

	if limiter.Allow() {
		return CheckResult{Status: Allowed}
	}
	if rule.Priority == PriorityCritical {
		return CheckResult{Status: Blocked, BlockedUntil: time.Now().UTC().Add(rule.BlockDuration)}
	}
	return CheckResult{Status: Limited}
}
