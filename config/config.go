package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cryptoview/pricewatch/cache"
)

type Config struct {
	Coingecko       CoingeckoConfig       `yaml:"coingecko"`
	Cache           cache.Config          `yaml:"cache"`
	Storage         StorageConfig         `yaml:"storage"`
	Background      BackgroundConfig      `yaml:"background"`
	Watchlist       WatchlistConfig       `yaml:"watchlist"`
	Search          SearchConfig          `yaml:"search"`
	Feedback        FeedbackConfig        `yaml:"feedback"`
	Server          ServerConfig          `yaml:"server"`
	Logging         LoggingConfig         `yaml:"logging"`
	DefaultSettings DefaultSettingsConfig `yaml:"default_settings"`

	// CoinIDs maps upper-case ticker symbols to upstream coin ids.
	// Entries here are consulted after the user's own mapping.
	CoinIDs map[string]string `yaml:"coin_ids"`
}

// LoadConfig reads a YAML config file and fills every unset field with its default.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	config.applyDefaults()

	if config.Coingecko.KeyFile != "" {
		key, err := LoadAPIKey(config.Coingecko.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load api key from %s: %w", config.Coingecko.KeyFile, err)
		}
		config.Coingecko.APIKey = key
	}

	return &config, nil
}

// Default returns a configuration usable without any config file.
func Default() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	c.Coingecko.applyDefaults()

	c.Cache = c.Cache.WithDefaults()

	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageDriverBadger
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data"
	}

	if c.Background.AlarmName == "" {
		c.Background.AlarmName = "refreshPriceAlarm"
	}
	if c.Search.MinInterval == 0 {
		c.Search.MinInterval = time.Second
	}

	c.Feedback.applyDefaults()
	c.DefaultSettings.applyDefaults()

	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if len(c.CoinIDs) == 0 {
		c.CoinIDs = map[string]string{
			"BTC": "bitcoin",
			"ETH": "ethereum",
			"BNB": "binancecoin",
			"SOL": "solana",
		}
	}
}
