package cache

import (
	"context"
	"strings"
	"sync"

	"satistakip/backend/internal/domain"
)

// RateCache stores exchange rates by currency pair. Entries carry their own
// fetch time; freshness is decided by the reader.
type RateCache interface {
	Get(ctx context.Context, from string, to string) (*domain.RateEntry, bool, error)
	Set(ctx context.Context, from string, to string, entry domain.RateEntry) error
}

func Key(from string, to string) string {
	return "rate:" + strings.ToUpper(from) + ":" + strings.ToUpper(to)
}

type MemoryRateCache struct {
	mu      sync.RWMutex
	entries map[string]domain.RateEntry
}

func NewMemoryRateCache() *MemoryRateCache {
	return &MemoryRateCache{entries: make(map[string]domain.RateEntry)}
}

func (c *MemoryRateCache) Get(_ context.Context, from string, to string) (*domain.RateEntry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[Key(from, to)]
	if !ok {
		return nil, false, nil
	}
	return &entry, true, nil
}

func (c *MemoryRateCache) Set(_ context.Context, from string, to string, entry domain.RateEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[Key(from, to)] = entry
	return nil
}
