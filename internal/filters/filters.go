// Package filters caches the search filter options (laboratories, forms,
// substances) computed from the store.
package filters

import (
	"context"
	"sync"

	"github.com/medicsearch/rcpgest/internal/store"
)

// Source computes filter options from scratch.
type Source interface {
	FilterValues(ctx context.Context) (store.FilterOptions, error)
}

// Cache holds the last computed options until Invalidate is called.
// It is safe for concurrent use.
type Cache struct {
	src Source

	mu    sync.Mutex
	valid bool
	opts  store.FilterOptions
	gen   uint64
}

// New returns an empty cache over src.
func New(src Source) *Cache {
	return &Cache{src: src}
}

// Get returns the cached options, computing them on first use or after an
// invalidation. Errors are not cached.
func (c *Cache) Get(ctx context.Context) (store.FilterOptions, error) {
	c.mu.Lock()
	if c.valid {
		opts := c.opts
		c.mu.Unlock()
		return opts, nil
	}
	gen := c.gen
	c.mu.Unlock()

	opts, err := c.src.FilterValues(ctx)
	if err != nil {
		return store.FilterOptions{}, err
	}

	c.mu.Lock()
	// An Invalidate during the computation makes this result stale.
	if c.gen == gen {
		c.opts = opts
		c.valid = true
	}
	c.mu.Unlock()
	return opts, nil
}

// Invalidate drops the cached options. Call after every store write.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.opts = store.FilterOptions{}
	c.gen++
	c.mu.Unlock()
}
