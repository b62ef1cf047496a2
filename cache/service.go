package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/singleflight"
)

// Service implements Cache interface with go-cache only
type Service struct {
	goCache *GoCache
	config  Config
	clock   clock.Clock
	loads   singleflight.Group
}

// NewService creates a new cache service with the given configuration
func NewService(config Config, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		goCache: NewGoCache(),
		config:  config,
		clock:   clk,
	}
}

// Start implements core.Interface
func (s *Service) Start(ctx context.Context) error {
	if s.goCache == nil {
		return fmt.Errorf("cache service not properly initialized")
	}
	return nil
}

// Stop implements core.Interface
func (s *Service) Stop() {
	if s.goCache != nil {
		s.goCache.Clear()
	}
}

// TTL returns the configured freshness window
func (s *Service) TTL() time.Duration {
	return s.config.GoCache.DefaultExpiration
}

// GetOrLoad returns fresh cached data or loads, stores and returns new data.
// Concurrent misses on the same key wait for a single loader call.
func (s *Service) GetOrLoad(key string, ttl time.Duration, loader LoaderFunc) ([]byte, bool, error) {
	if data, ok := s.GetFresh(key, ttl); ok {
		return data, true, nil
	}

	v, err, _ := s.loads.Do(key, func() (interface{}, error) {
		// a load that finished while we waited for the group is reused
		if data, ok := s.GetFresh(key, ttl); ok {
			return data, nil
		}
		data, err := loader()
		if err != nil {
			return nil, err
		}
		s.Set(key, data)
		return data, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), false, nil
}

// GetFresh returns data cached under key if it is at most ttl old
func (s *Service) GetFresh(key string, ttl time.Duration) ([]byte, bool) {
	entry, found := s.goCache.Get(key)
	if !found {
		return nil, false
	}
	if s.clock.Now().Sub(entry.CachedAt) > ttl {
		return nil, false
	}
	return entry.Data, true
}

// Get returns the raw entry regardless of age
func (s *Service) Get(key string) (Entry, bool) {
	return s.goCache.Get(key)
}

// Set stores data stamped with the current time
func (s *Service) Set(key string, data []byte) {
	s.goCache.Set(key, Entry{Data: data, CachedAt: s.clock.Now()})
}

// Sweep removes entries older than maxAge
func (s *Service) Sweep(maxAge time.Duration) int {
	return s.goCache.DeleteOlderThan(s.clock.Now().Add(-maxAge))
}

// Stats returns statistics about the cache service
func (s *Service) Stats() ServiceStats {
	return ServiceStats{
		GoCacheItems: s.goCache.ItemCount(),
	}
}

// ServiceStats represents cache service statistics
type ServiceStats struct {
	GoCacheItems int // Number of items in go-cache
}

// Delete removes items from cache by keys
func (s *Service) Delete(keys []string) {
	s.goCache.Delete(keys)
}

// Clear removes all items from cache
func (s *Service) Clear() {
	s.goCache.Clear()
}
