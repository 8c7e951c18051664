package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"codeberg.org/quebecsigns/server/internal/logger"
)

// in-memory cache of sign definitions keyed by sign code. Definitions
// are static reference data, so candidate joins never hit Postgres for
// them; the cache refreshes on a ticker instead.
type RefCache struct {
	store    *Store
	interval time.Duration

	mu   sync.RWMutex
	defs map[string]SignDefinition
}

// creates a reference cache and performs the initial load. An empty
// sign_definitions table is a startup error: the service cannot ground
// any candidate without it.
func NewRefCache(ctx context.Context, s *Store, refreshInterval time.Duration) (*RefCache, error) {
	c := &RefCache{
		store:    s,
		interval: refreshInterval,
		defs:     make(map[string]SignDefinition),
	}

	if err := c.refresh(ctx); err != nil {
		return nil, fmt.Errorf("initial reference load failed: %w", err)
	}

	if len(c.defs) == 0 {
		return nil, fmt.Errorf("sign_definitions is empty; run ingestion first")
	}

	return c, nil
}

// looks up a sign definition by code
func (c *RefCache) Get(signCode string) (SignDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.defs[signCode]

	return def, ok
}

// returns the number of cached definitions
func (c *RefCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.defs)
}

// periodically reloads definitions until ctx is canceled
func (c *RefCache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.refresh(ctx); err != nil {
				// keep serving the previous snapshot on refresh failure
				logger.ErrorErr(err, "reference cache refresh failed")
			}
		}
	}
}

func (c *RefCache) refresh(ctx context.Context) error {
	defs, err := c.store.AllSignDefinitions(ctx)
	if err != nil {
		return err
	}

	next := make(map[string]SignDefinition, len(defs))
	for _, d := range defs {
		next[d.SignCode] = d
	}

	c.mu.Lock()
	c.defs = next
	c.mu.Unlock()

	return nil
}
