package news

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/sigfuse/internal/core"
)

type cacheEntry struct {
	items     []core.NewsItem
	fetchedAt time.Time
}

// Cached wraps a provider with a per-symbol TTL cache. Errors are not cached.
type Cached struct {
	provider Provider
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewCached creates a cached news provider
func NewCached(provider Provider, ttl time.Duration) *Cached {
	return &Cached{
		provider: provider,
		ttl:      ttl,
		now:      time.Now,
		cache:    make(map[string]cacheEntry),
	}
}

func (c *Cached) Name() string {
	return c.provider.Name()
}

// Articles returns cached news or fetches from the underlying provider
func (c *Cached) Articles(ctx context.Context, symbol string, hoursBack int) ([]core.NewsItem, error) {
	key := fmt.Sprintf("%s:%d", symbol, hoursBack)

	c.mu.Lock()
	entry, ok := c.cache[key]
	c.mu.Unlock()
	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		return entry.items, nil
	}

	items, err := c.provider.Articles(ctx, symbol, hoursBack)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{items: items, fetchedAt: c.now()}
	c.mu.Unlock()
	return items, nil
}

// Purge drops expired entries
func (c *Cached) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.cache {
		if now.Sub(e.fetchedAt) >= c.ttl {
			delete(c.cache, k)
		}
	}
}
