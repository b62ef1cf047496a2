package config

import (
	"encoding/json"
	"os"
	"time"
)

// CoingeckoConfig defines how the upstream price API is reached
type CoingeckoConfig struct {
	// OverridePublicURL replaces the public API base URL (used by tests and proxies)
	OverridePublicURL string `yaml:"override_public_url"`
	// OverrideProURL replaces the Pro API base URL
	OverrideProURL string `yaml:"override_pro_url"`

	KeyFile string  `yaml:"key_file"`
	APIKey  *APIKey `yaml:"-"`

	// RequestTimeout bounds every upstream request
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// LockDuration is how long the circuit stays open after a 429
	LockDuration time.Duration `yaml:"lock_duration"`
	// CallWindow is the length of the advisory call-count window
	CallWindow time.Duration `yaml:"call_window"`
	PerPage    int           `yaml:"per_page"`
}

// APIKey is the optional upstream API key. Type is "pro" or "demo".
type APIKey struct {
	Key  string `json:"api_key"`
	Type string `json:"key_type"`
}

func (c *CoingeckoConfig) applyDefaults() {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.LockDuration == 0 {
		c.LockDuration = 60 * time.Second
	}
	if c.CallWindow == 0 {
		c.CallWindow = 60 * time.Second
	}
	if c.PerPage == 0 {
		c.PerPage = 250
	}
}

// LoadAPIKey reads the API key file. A missing file means no key.
func LoadAPIKey(filename string) (*APIKey, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var key APIKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, err
	}
	if key.Key == "" {
		return nil, nil
	}
	return &key, nil
}
