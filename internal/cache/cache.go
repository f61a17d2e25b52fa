// Package cache memoizes forecasts per owner with TTL expiry and
// single-flight coalescing of concurrent computations.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ledgercast/ledgercast/internal/model"
)

// DefaultTTL is how long a cached forecast stays valid.
const DefaultTTL = 24 * time.Hour

// entry is one cached forecast. Entries are owned exclusively by the
// cache and die on expiry or explicit invalidation.
type entry struct {
	expiresAt time.Time
	forecast  *model.Forecast
}

// PredictionCache caches the latest forecast per owner and calendar
// day. Concurrent requests for the same key collapse into one
// underlying computation; every waiter receives the same result.
type PredictionCache struct {
	entries map[string]entry
	group   singleflight.Group
	ttl     time.Duration
	mu      sync.RWMutex
}

// New creates a cache with the given TTL. A non-positive TTL falls
// back to the default.
func New(ttl time.Duration) *PredictionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PredictionCache{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
}

// key builds the cache key: one forecast per owner per calendar day.
func key(ownerID string, asOf time.Time) string {
	return fmt.Sprintf("%s|%s", ownerID, asOf.UTC().Format("2006-01-02"))
}

// ComputeFunc produces a forecast on a cache miss.
type ComputeFunc func(ctx context.Context) (*model.Forecast, error)

// GetOrCompute returns the cached forecast for the owner and day, or
// runs compute exactly once for all concurrent callers and caches the
// result. Errors are never cached; the next caller retries.
func (c *PredictionCache) GetOrCompute(ctx context.Context, ownerID string, asOf time.Time, compute ComputeFunc) (*model.Forecast, error) {
	k := key(ownerID, asOf)

	if forecast, ok := c.get(k); ok {
		return forecast, nil
	}

	result, err, _ := c.group.Do(k, func() (any, error) {
		// A concurrent caller may have populated the entry between
		// the read above and acquiring the flight slot.
		if forecast, ok := c.get(k); ok {
			return forecast, nil
		}

		forecast, err := compute(ctx)
		if err != nil {
			return nil, err
		}

		c.put(k, forecast)
		return forecast, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*model.Forecast), nil
}

func (c *PredictionCache) get(k string) (*model.Forecast, bool) {
	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, k)
		c.mu.Unlock()
		return nil, false
	}
	return e.forecast, true
}

func (c *PredictionCache) put(k string, forecast *model.Forecast) {
	c.mu.Lock()
	c.entries[k] = entry{
		forecast:  forecast,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Invalidate drops every cached forecast for an owner. Call it when
// new transactions are recorded so the next request recomputes.
func (c *PredictionCache) Invalidate(ownerID string) {
	prefix := ownerID + "|"

	c.mu.Lock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			c.group.Forget(k)
		}
	}
	c.mu.Unlock()
}

// Len returns the number of live cache entries.
func (c *PredictionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
