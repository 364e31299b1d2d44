package sentiment

import (
	"sync"
	"time"

	"signal-advisor/internal/types"
)

// Cache stores sentiment results temporarily so repeated composer
// invocations within a cadence tick reuse the sentiment pass.
type Cache struct {
	mu   sync.RWMutex
	data map[string]*cacheEntry
	ttl  time.Duration
}

type cacheEntry struct {
	result    types.SentimentResult
	timestamp time.Time
}

// NewCache creates a cache with the given TTL and starts its cleanup loop.
func NewCache(ttl time.Duration) *Cache {
	c := &Cache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
	}
	go c.cleanupLoop()
	return c
}

// Get retrieves a cached result if still valid.
func (c *Cache) Get(instrument string) (types.SentimentResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.data[instrument]
	if !exists {
		return types.SentimentResult{}, false
	}
	if time.Since(entry.timestamp) > c.ttl {
		return types.SentimentResult{}, false
	}
	return entry.result, true
}

// Set stores a result.
func (c *Cache) Set(instrument string, result types.SentimentResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[instrument] = &cacheEntry{result: result, timestamp: time.Now()}
}

// Clear removes all cached results.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*cacheEntry)
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		c.cleanup()
	}
}

func (c *Cache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for instrument, entry := range c.data {
		if now.Sub(entry.timestamp) > c.ttl {
			delete(c.data, instrument)
		}
	}
}
