package narrative

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/careerhub/hub/infrastructure/cache"
	"github.com/careerhub/hub/infrastructure/logging"
	"github.com/careerhub/hub/internal/events"
)

const (
	// defaultTTL sits inside spec §4.G's 5-60 minute window.
	defaultTTL     = 15 * time.Minute
	localCacheSize = 100
)

func cacheKey(userID string) string { return "context:" + userID }

// Builder produces Context Packets (4.G) through a three-layer cache:
// an in-process LRU (fastest, this process only), the shared cache.Tier
// (Redis-backed, cross-process), and finally a fresh fold over the
// user's recent events. Any failure in the latter two layers degrades to
// an empty, low-confidence packet rather than raising (spec §4.G Failure).
type Builder struct {
	local  *lru.Cache[string, ContextPacket]
	tier   *cache.Tier
	source events.Source
	ttl    time.Duration
	logger *logging.Logger
}

// New constructs a Builder. tier may be nil (skips the shared cache layer).
func New(source events.Source, tier *cache.Tier, logger *logging.Logger) (*Builder, error) {
	local, err := lru.New[string, ContextPacket](localCacheSize)
	if err != nil {
		return nil, err
	}
	return &Builder{local: local, tier: tier, source: source, ttl: defaultTTL, logger: logger}, nil
}

// Get returns the Context Packet for userID, consulting each cache layer
// in turn before falling back to a fresh fold over events.UserEvents.
func (b *Builder) Get(ctx context.Context, userID string) ContextPacket {
	now := time.Now().UTC()

	if packet, ok := b.local.Get(userID); ok && !stale(packet, now, b.ttl) {
		return packet
	}

	if b.tier != nil {
		var packet ContextPacket
		if found, err := b.tier.Get(ctx, cacheKey(userID), &packet); err == nil && found {
			b.local.Add(userID, packet)
			return packet
		}
	}

	packet, err := b.build(ctx, userID, now)
	if err != nil {
		if b.logger != nil {
			b.logger.Error(ctx, "context packet build failed", err, map[string]interface{}{"user_id": userID})
		}
		return emptyPacket(userID, now)
	}

	b.local.Add(userID, packet)
	if b.tier != nil {
		_ = b.tier.Set(ctx, cacheKey(userID), packet, b.ttl)
	}
	return packet
}

// Invalidate drops userID's packet from both cache layers, forcing the
// next Get to re-derive it. Called after events land that materially
// change the user's narrative (e.g. a chargeable action completing).
func (b *Builder) Invalidate(ctx context.Context, userID string) {
	b.local.Remove(userID)
	if b.tier != nil {
		b.tier.Invalidate(ctx, cacheKey(userID))
	}
}

func (b *Builder) build(ctx context.Context, userID string, now time.Time) (ContextPacket, error) {
	since := now.Add(-events.DefaultWindow())
	evs, err := b.source.UserEvents(ctx, userID, since, now, nil)
	if err != nil {
		return ContextPacket{}, err
	}
	return aggregate(userID, evs, now), nil
}

func stale(packet ContextPacket, now time.Time, ttl time.Duration) bool {
	return now.Sub(packet.GeneratedAt) > ttl
}
