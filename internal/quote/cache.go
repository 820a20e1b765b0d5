package quote

import (
	"context"
	"strings"
	"time"
	"tradesim/internal/utils"

	"github.com/redis/go-redis/v9"
)

// CachedGateway wraps a Gateway with a Redis read-through cache so that
// bursts of trades on the same symbol do not hammer the upstream API.
// Cache failures are ignored and fall through to the inner gateway;
// lookup errors are never cached.
type CachedGateway struct {
	next Gateway
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCachedGateway wraps next with a cache of the given TTL.
func NewCachedGateway(next Gateway, rdb *redis.Client, ttl time.Duration) *CachedGateway {
	return &CachedGateway{next: next, rdb: rdb, ttl: ttl}
}

func cacheKey(symbol string) string {
	return "stock:" + symbol + ":quote"
}

// Lookup implements Gateway.
func (g *CachedGateway) Lookup(ctx context.Context, symbol string) (Quote, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	var cached Quote
	if found, err := utils.GetCache(ctx, g.rdb, cacheKey(sym), &cached); err == nil && found {
		return cached, nil
	}
	q, err := g.next.Lookup(ctx, sym)
	if err != nil {
		return Quote{}, err
	}
	_ = utils.SetCache(ctx, g.rdb, cacheKey(sym), q, g.ttl)
	return q, nil
}
