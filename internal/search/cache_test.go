package search

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacetCacheAddGet(t *testing.T) {
	c := NewFacetCache(8, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Add("team lifecycle", []string{"team", "lifecycle"})
	got, ok := c.Get("team lifecycle")
	require.True(t, ok)
	assert.Equal(t, []string{"team", "lifecycle"}, got)
}

func TestFacetCacheTTLEviction(t *testing.T) {
	c := NewFacetCache(8, 50*time.Millisecond)
	c.Add("q", []string{"facet"})

	_, ok := c.Get("q")
	require.True(t, ok)

	time.Sleep(120 * time.Millisecond)

	_, ok = c.Get("q")
	assert.False(t, ok, "entry must expire after the TTL")
}

func TestFacetCacheCapacityEviction(t *testing.T) {
	c := NewFacetCache(2, time.Minute)
	for i := 0; i < 3; i++ {
		c.Add(fmt.Sprintf("query-%d", i), []string{"f"})
	}

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("query-0")
	assert.False(t, ok, "oldest entry is evicted at capacity")
	_, ok = c.Get("query-2")
	assert.True(t, ok)
}

func TestFacetCacheDefaults(t *testing.T) {
	c := NewFacetCache(0, 0)
	c.Add("q", []string{"f"})
	_, ok := c.Get("q")
	assert.True(t, ok)
}

func TestFacetCachePurge(t *testing.T) {
	c := NewFacetCache(8, time.Minute)
	c.Add("q", []string{"f"})
	c.Purge()
	assert.Zero(t, c.Len())
}
