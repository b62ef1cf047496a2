package cache

import "time"

// LoaderFunc produces the value for a key that is missing or stale.
type LoaderFunc func() ([]byte, error)

// Entry is a cached value stamped with the time it was stored.
type Entry struct {
	Data     []byte
	CachedAt time.Time
}

// Cache is a single-key cache whose freshness is judged on read
type Cache interface {
	// GetOrLoad returns the cached data for key when it is no older than ttl,
	// otherwise calls loader, stores its result and returns it.
	// A loader error is returned as is and nothing is stored.
	// The bool reports whether the value came from the cache.
	GetOrLoad(key string, ttl time.Duration, loader LoaderFunc) ([]byte, bool, error)

	// GetFresh returns the cached data for key when it is no older than ttl
	GetFresh(key string, ttl time.Duration) ([]byte, bool)

	// Set stores data under key stamped with the current time
	Set(key string, data []byte)

	// Sweep removes every entry older than maxAge and returns how many were removed
	Sweep(maxAge time.Duration) int
}
