package search

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// FacetCache maps a normalized query to its decomposed facets. Eviction is
// LRU at capacity overflow and TTL on read. The cache is constructed and
// injected explicitly so independent test runs never share state.
type FacetCache struct {
	lru *expirable.LRU[string, []string]
}

// NewFacetCache creates a cache with the given capacity and TTL. Zero or
// negative values fall back to the pipeline defaults.
func NewFacetCache(capacity int, ttl time.Duration) *FacetCache {
	if capacity <= 0 {
		capacity = CacheCapacity
	}
	if ttl <= 0 {
		ttl = CacheTTL
	}
	return &FacetCache{
		lru: expirable.NewLRU[string, []string](capacity, nil, ttl),
	}
}

// Get returns the cached facets for a normalized query, if present and
// unexpired.
func (c *FacetCache) Get(normalizedQuery string) ([]string, bool) {
	return c.lru.Get(normalizedQuery)
}

// Add caches facets under the normalized query key.
func (c *FacetCache) Add(normalizedQuery string, facets []string) {
	c.lru.Add(normalizedQuery, facets)
}

// Len returns the number of live entries.
func (c *FacetCache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry. Used by tests.
func (c *FacetCache) Purge() {
	c.lru.Purge()
}
