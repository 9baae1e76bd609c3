package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Tier is the Hub's two-tier Cache Tier (4.A): Redis is the primary, shared
// store; an in-process LRU is used whenever Redis is unreachable or slow.
// Set is best-effort durable — it always tries Redis first, falls back to
// the LRU on any Redis error, and never fails the caller.
type Tier struct {
	redis      *redis.Client
	fallback   *lru.Cache[string, fallbackEntry]
	defaultTTL time.Duration

	onFallbackUse func()
}

type fallbackEntry struct {
	raw     []byte
	expires time.Time
}

// TierConfig configures a Tier.
type TierConfig struct {
	Redis         *redis.Client
	FallbackSize  int
	DefaultTTL    time.Duration
	OnFallbackUse func() // optional metrics hook, called whenever the LRU fallback serves a request
}

// NewTier constructs a Tier. FallbackSize defaults to 1000 entries, DefaultTTL to 5 minutes.
func NewTier(cfg TierConfig) (*Tier, error) {
	size := cfg.FallbackSize
	if size <= 0 {
		size = 1000
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	fallback, err := lru.New[string, fallbackEntry](size)
	if err != nil {
		return nil, err
	}
	return &Tier{
		redis:         cfg.Redis,
		fallback:      fallback,
		defaultTTL:    ttl,
		onFallbackUse: cfg.OnFallbackUse,
	}, nil
}

// Get retrieves and unmarshals a cached value into dst. It returns
// found=false if no value is cached in either tier or the entry has expired.
func (t *Tier) Get(ctx context.Context, key string, dst interface{}) (found bool, err error) {
	if t.redis != nil {
		raw, redisErr := t.redis.Get(ctx, key).Bytes()
		if redisErr == nil {
			return true, json.Unmarshal(raw, dst)
		}
		if redisErr != redis.Nil {
			return t.getFallback(key, dst)
		}
		return false, nil
	}
	return t.getFallback(key, dst)
}

func (t *Tier) getFallback(key string, dst interface{}) (bool, error) {
	entry, ok := t.fallback.Get(key)
	if !ok {
		return false, nil
	}
	if time.Now().After(entry.expires) {
		t.fallback.Remove(key)
		return false, nil
	}
	if t.onFallbackUse != nil {
		t.onFallbackUse()
	}
	return true, json.Unmarshal(entry.raw, dst)
}

// Set stores value under key with the given TTL (or the tier default when
// ttl <= 0). It tries Redis first and falls back to the in-process LRU on
// any Redis error; it never returns an error to the caller for a Redis
// outage, since the in-process tier keeps the cache usable.
func (t *Tier) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = t.defaultTTL
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if t.redis != nil {
		if err := t.redis.Set(ctx, key, raw, ttl).Err(); err == nil {
			return nil
		}
	}

	t.fallback.Add(key, fallbackEntry{raw: raw, expires: time.Now().Add(ttl)})
	return nil
}

// Invalidate removes key from both tiers.
func (t *Tier) Invalidate(ctx context.Context, key string) {
	if t.redis != nil {
		_ = t.redis.Del(ctx, key).Err()
	}
	t.fallback.Remove(key)
}

// UsingFallbackOnly reports whether the Redis primary is unconfigured or
// currently unreachable, by issuing a PING. Intended for health checks, not
// the hot path.
func (t *Tier) UsingFallbackOnly(ctx context.Context) bool {
	if t.redis == nil {
		return true
	}
	return t.redis.Ping(ctx).Err() != nil
}
