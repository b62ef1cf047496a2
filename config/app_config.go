package config

import "time"

const (
	StorageDriverBadger = "badger"
	StorageDriverMemory = "memory"
)

// StorageConfig selects the key-value store backend
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type BackgroundConfig struct {
	AlarmName string `yaml:"alarm_name"`
	// Disabled skips badge scheduling entirely
	Disabled bool `yaml:"disabled"`
}

type WatchlistConfig struct {
	Disabled bool `yaml:"disabled"`
}

// SearchConfig paces coin search requests
type SearchConfig struct {
	MinInterval time.Duration `yaml:"min_interval"`
}

// FeedbackConfig configures the Notion database that receives feedback
type FeedbackConfig struct {
	APIURL        string        `yaml:"api_url"`
	Token         string        `yaml:"token"`
	DatabaseID    string        `yaml:"database_id"`
	NotionVersion string        `yaml:"notion_version"`
	MinInterval   time.Duration `yaml:"min_interval"`
	Timeout       time.Duration `yaml:"timeout"`
}

// Configured reports whether a token and database are present
func (c FeedbackConfig) Configured() bool {
	return c.Token != "" && c.DatabaseID != ""
}

func (c *FeedbackConfig) applyDefaults() {
	if c.APIURL == "" {
		c.APIURL = "https://api.notion.com/v1/pages"
	}
	if c.NotionVersion == "" {
		c.NotionVersion = "2022-06-28"
	}
	if c.MinInterval == 0 {
		c.MinInterval = 60 * time.Second
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultSettingsConfig holds the user settings used when nothing is stored yet
type DefaultSettingsConfig struct {
	SelectedCoins   []string `yaml:"selected_coins"`
	RefreshInterval int      `yaml:"refresh_interval"`
	Currency        string   `yaml:"currency"`
	Language        string   `yaml:"language"`
}

func (c *DefaultSettingsConfig) applyDefaults() {
	if len(c.SelectedCoins) == 0 {
		c.SelectedCoins = []string{"BTC", "ETH", "BNB", "SOL"}
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = 30
	}
	if c.Currency == "" {
		c.Currency = "USD"
	}
	if c.Language == "" {
		c.Language = "en"
	}
}
