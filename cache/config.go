package cache

import "time"

// Config sets how long coin details and price history stay fresh
type Config struct {
	GoCache GoCacheConfig `yaml:"go_cache"`
}

// GoCacheConfig configures the in-memory go-cache store
type GoCacheConfig struct {
	// DefaultExpiration is how long an entry counts as fresh.
	// An entry exactly this old is still served.
	DefaultExpiration time.Duration `yaml:"default_expiration"`

	// CleanupInterval is how often stale entries are swept.
	// Should be greater than DefaultExpiration
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultCacheConfig returns a five minute freshness with a ten minute sweep
func DefaultCacheConfig() Config {
	return Config{
		GoCache: GoCacheConfig{
			DefaultExpiration: 5 * time.Minute,
			CleanupInterval:   10 * time.Minute,
		},
	}
}

// WithDefaults fills every unset duration from DefaultCacheConfig
func (c Config) WithDefaults() Config {
	def := DefaultCacheConfig()
	if c.GoCache.DefaultExpiration <= 0 {
		c.GoCache.DefaultExpiration = def.GoCache.DefaultExpiration
	}
	if c.GoCache.CleanupInterval <= 0 {
		c.GoCache.CleanupInterval = def.GoCache.CleanupInterval
	}
	return c
}
