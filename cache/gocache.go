package cache

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// GoCache stores Entry values in go-cache without expiration.
// Staleness is decided by the caller against Entry.CachedAt.
type GoCache struct {
	cache *cache.Cache
}

// NewGoCache creates a new GoCache instance
func NewGoCache() *GoCache {
	// cleanupInterval 0 disables the go-cache janitor; sweeping is driven externally
	return &GoCache{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

// Get returns the entry stored under key
func (gc *GoCache) Get(key string) (Entry, bool) {
	value, found := gc.cache.Get(key)
	if !found {
		return Entry{}, false
	}
	entry, ok := value.(Entry)
	if !ok {
		return Entry{}, false
	}
	return entry, true
}

// Set stores an entry under key
func (gc *GoCache) Set(key string, entry Entry) {
	gc.cache.Set(key, entry, cache.NoExpiration)
}

// Delete removes items from cache by keys
func (gc *GoCache) Delete(keys []string) {
	for _, key := range keys {
		gc.cache.Delete(key)
	}
}

// DeleteOlderThan removes entries cached before cutoff
func (gc *GoCache) DeleteOlderThan(cutoff time.Time) int {
	removed := 0
	for key, item := range gc.cache.Items() {
		entry, ok := item.Object.(Entry)
		if !ok || entry.CachedAt.Before(cutoff) {
			gc.cache.Delete(key)
			removed++
		}
	}
	return removed
}

// Clear removes all items from cache
func (gc *GoCache) Clear() {
	gc.cache.Flush()
}

// ItemCount returns the number of items in cache
func (gc *GoCache) ItemCount() int {
	return gc.cache.ItemCount()
}
