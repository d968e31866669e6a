// Package store holds the quota state: an in-memory cache keyed by
// provider and entry, and a SQLite history of snapshots.
package store

import (
	"sync"

	"github.com/quotadeck/quotadeck/internal/models"
)

// Cache is the keyed quota-state container. One mapping per provider;
// writes replace whole entries, last writer wins.
// It is thread-safe and supports concurrent access.
type Cache struct {
	mu     sync.RWMutex
	states map[models.ProviderKind]map[string]models.QuotaState
}

// NewCache creates an empty cache with a mapping for every provider.
func NewCache() *Cache {
	states := make(map[models.ProviderKind]map[string]models.QuotaState)
	for _, kind := range models.AllProviders() {
		states[kind] = make(map[string]models.QuotaState)
	}
	return &Cache{states: states}
}

// Get retrieves the current state for a provider/key pair.
func (c *Cache) Get(provider models.ProviderKind, key string) (models.QuotaState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state, ok := c.states[provider][key]
	return state, ok
}

// Set stores or replaces the state for a provider/key pair.
func (c *Cache) Set(provider models.ProviderKind, key string, state models.QuotaState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bucket, ok := c.states[provider]
	if !ok {
		bucket = make(map[string]models.QuotaState)
		c.states[provider] = bucket
	}
	bucket[key] = state
}

// SnapshotProvider returns a copy of one provider's mapping.
func (c *Cache) SnapshotProvider(provider models.ProviderKind) map[string]models.QuotaState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]models.QuotaState, len(c.states[provider]))
	for key, state := range c.states[provider] {
		out[key] = state
	}
	return out
}

// Snapshot returns a copy of all provider mappings.
func (c *Cache) Snapshot() map[models.ProviderKind]map[string]models.QuotaState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[models.ProviderKind]map[string]models.QuotaState, len(c.states))
	for provider, bucket := range c.states {
		copied := make(map[string]models.QuotaState, len(bucket))
		for key, state := range bucket {
			copied[key] = state
		}
		out[provider] = copied
	}
	return out
}

// ClearAll resets every provider's mapping to empty.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, kind := range models.AllProviders() {
		c.states[kind] = make(map[string]models.QuotaState)
	}
}
