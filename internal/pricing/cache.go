package pricing

import (
	"context"
	"sync"
	"time"
)

// Fetcher returns symbol -> USD price for the requested symbols.
type Fetcher interface {
	FetchPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

type cacheEntry struct {
	price     float64
	expiresAt time.Time
}

// CachedFetcher serves recently fetched prices from memory and only asks the
// underlying Fetcher for symbols that are missing or expired.
type CachedFetcher struct {
	source Fetcher
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCachedFetcher wraps source with a per-symbol TTL cache.
func NewCachedFetcher(source Fetcher, ttl time.Duration) *CachedFetcher {
	if source == nil {
		panic("pricing.NewCachedFetcher: source must not be nil")
	}
	return &CachedFetcher{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachedFetcher) FetchPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	result := make(map[string]float64, len(symbols))
	var missing []string
	for _, s := range symbols {
		if p, ok := c.get(s); ok {
			result[s] = p
			continue
		}
		missing = append(missing, s)
	}
	if len(missing) == 0 {
		return result, nil
	}

	fetched, err := c.source.FetchPrices(ctx, missing)
	if err != nil {
		return nil, err
	}
	for s, p := range fetched {
		c.set(s, p)
		result[s] = p
	}
	return result, nil
}

func (c *CachedFetcher) get(symbol string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[symbol]
	if !ok || c.now().After(entry.expiresAt) {
		return 0, false
	}
	return entry.price, true
}

func (c *CachedFetcher) set(symbol string, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[symbol] = cacheEntry{
		price:     price,
		expiresAt: c.now().Add(c.ttl),
	}
}
