package settings

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// StorageKey is the store key holding the user's settings record
const StorageKey = "cryptoAppSetting"

var (
	ErrInvalidSymbol   = errors.New("invalid coin symbol")
	ErrInvalidSettings = errors.New("invalid settings")
	ErrCoinNotSelected = errors.New("coin is not in the watch list")
)

// Settings is the user-editable configuration shared by every component
type Settings struct {
	SelectedCoins []string `json:"selectedCoins"`
	// RefreshInterval is in seconds; 0 disables automatic refresh
	RefreshInterval int    `json:"refreshInterval"`
	Currency        string `json:"currency"`
	Language        string `json:"language"`
	// PinnedCoin is the ticker shown on the badge; empty means none
	PinnedCoin   string            `json:"pinnedCoin"`
	CoinGeckoIDs map[string]string `json:"coinGeckoIds,omitempty"`
	CoinNames    map[string]string `json:"coinNames,omitempty"`
}

// Clone returns a deep copy
func (s Settings) Clone() Settings {
	out := s
	out.SelectedCoins = slices.Clone(s.SelectedCoins)
	if s.CoinGeckoIDs != nil {
		out.CoinGeckoIDs = make(map[string]string, len(s.CoinGeckoIDs))
		for k, v := range s.CoinGeckoIDs {
			out.CoinGeckoIDs[k] = v
		}
	}
	if s.CoinNames != nil {
		out.CoinNames = make(map[string]string, len(s.CoinNames))
		for k, v := range s.CoinNames {
			out.CoinNames[k] = v
		}
	}
	return out
}

// CurrencyOrDefault returns the configured currency, or "USD" when unset
func (s Settings) CurrencyOrDefault() string {
	if s.Currency == "" {
		return "USD"
	}
	return s.Currency
}

// Validate checks values a client may have set
func (s Settings) Validate() error {
	if s.RefreshInterval < 0 {
		return fmt.Errorf("%w: refreshInterval must not be negative, got %d", ErrInvalidSettings, s.RefreshInterval)
	}
	for _, symbol := range s.SelectedCoins {
		if NormalizeSymbol(symbol) == "" {
			return fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
		}
	}
	return nil
}

// NormalizeSymbol trims and upper-cases a ticker symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ResolveCoinID maps a ticker to an upstream coin id. The user's own mapping
// wins over the static one, and an unmapped ticker falls back to its
// lower-cased form. An empty symbol resolves to "".
func ResolveCoinID(s Settings, symbol string, static map[string]string) string {
	upper := NormalizeSymbol(symbol)
	if upper == "" {
		return ""
	}
	if id := s.CoinGeckoIDs[upper]; id != "" {
		return id
	}
	if id := static[upper]; id != "" {
		return id
	}
	return strings.ToLower(upper)
}

// SchedulingChanged reports whether fields driving the badge alarm differ
func SchedulingChanged(prev, next Settings) bool {
	return prev.RefreshInterval != next.RefreshInterval || prev.PinnedCoin != next.PinnedCoin
}

// WatchlistChanged reports whether fields driving the watch-list refresh differ
func WatchlistChanged(prev, next Settings) bool {
	return prev.RefreshInterval != next.RefreshInterval ||
		prev.Currency != next.Currency ||
		!slices.Equal(prev.SelectedCoins, next.SelectedCoins)
}
