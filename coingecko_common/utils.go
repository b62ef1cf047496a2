package coingecko_common

import (
	"github.com/cryptoview/pricewatch/config"
)

// KeyType defines the API key type
type KeyType int

const (
	// NoKey means no API key is available
	NoKey KeyType = iota
	// ProKey means using a Pro API key
	ProKey
	// DemoKey means using a demo API key
	DemoKey
)

// KeyFromConfig returns the configured key and its type
func KeyFromConfig(cfg config.CoingeckoConfig) (string, KeyType) {
	if cfg.APIKey == nil || cfg.APIKey.Key == "" {
		return "", NoKey
	}
	switch cfg.APIKey.Type {
	case "pro":
		return cfg.APIKey.Key, ProKey
	default:
		return cfg.APIKey.Key, DemoKey
	}
}

// GetApiBaseUrl returns the API host for the key type, honoring overrides
func GetApiBaseUrl(cfg config.CoingeckoConfig, keyType KeyType) string {
	if keyType == ProKey {
		if cfg.OverrideProURL != "" {
			return cfg.OverrideProURL
		}
		return COINGECKO_PRO_URL
	}
	if cfg.OverridePublicURL != "" {
		return cfg.OverridePublicURL
	}
	return COINGECKO_PUBLIC_URL
}
