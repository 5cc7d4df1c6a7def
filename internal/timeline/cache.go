// Package timeline caches the global home timeline and drops it on writes.
package timeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// IndexKey is the single key covering the whole home timeline. Every page is
// served from the one cached listing, so one invalidation refreshes them all.
const IndexKey = "index_page"

// Cache is a cache-aside wrapper over a Store.
type Cache struct {
	store Store
	log   zerolog.Logger

	// mu orders stores against invalidations; gen is bumped on every
	// invalidation and computations started under an older generation are
	// returned but not stored.
	mu  sync.Mutex
	gen uint64
}

func NewCache(store Store, log zerolog.Logger) *Cache {
	if store == nil {
		store = NoopStore{}
	}
	return &Cache{store: store, log: log}
}

// GetOrCompute returns the cached payload for key, running compute and
// storing its result on a miss. Store failures degrade to computing.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("timeline cache read failed")
	} else if ok {
		return data, nil
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	shared, versioned := c.store.(GenerationStore)
	var sharedGen uint64
	storable := true
	if versioned {
		if sharedGen, err = shared.Generation(ctx); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("timeline cache generation read failed")
			storable = false
		}
	}

	data, err = compute(ctx)
	if err != nil {
		return nil, err
	}
	if !storable {
		return data, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return data, nil
	}
	if versioned {
		if _, err := shared.SetIfGeneration(ctx, key, data, sharedGen); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("timeline cache write failed")
		}
		return data, nil
	}
	if err := c.store.Set(ctx, key, data); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("timeline cache write failed")
	}
	return data, nil
}

// Invalidate drops key. Computations already running will not store it.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return c.store.Delete(ctx, key)
}

// InvalidateAll drops every cached key. Computations already running will
// not store their results.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return c.store.Clear(ctx)
}
