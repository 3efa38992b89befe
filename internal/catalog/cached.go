package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgraph-io/ristretto/v2"
)

// Cached memoizes successful resolutions of another resolver. Failures are
// never cached so that sets added to the catalog become visible at once.
type Cached struct {
	inner Resolver
	cache *ristretto.Cache[string, string]
}

// NewCached wraps inner with a cache holding up to maxEntries resolutions.
func NewCached(inner Resolver, maxEntries int64) (*Cached, error) {
	if maxEntries <= 0 {
		maxEntries = 10_000
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		// Every entry costs 1; MaxCost is an entry count.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Resolve returns a cached canonical number or asks the wrapped resolver.
func (c *Cached) Resolve(ctx context.Context, raw string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := c.cache.Get(key); ok {
		return canonical, nil
	}

	canonical, err := c.inner.Resolve(ctx, raw)
	if err != nil {
		return "", err
	}
	c.cache.Set(key, canonical, 1)
	return canonical, nil
}

// BaseOf delegates to the wrapped resolver.
func (c *Cached) BaseOf(id string) string {
	return c.inner.BaseOf(id)
}

// Wait blocks until pending cache writes are applied.
func (c *Cached) Wait() {
	c.cache.Wait()
}

// Close releases the cache.
func (c *Cached) Close() {
	c.cache.Close()
}
