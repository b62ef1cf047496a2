package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/cryptoview/pricewatch/storage"
)

// Manager reads and writes the settings record
type Manager struct {
	store     storage.KeyValueStore
	defaults  Settings
	staticIDs map[string]string
	logger    *zap.Logger
}

func NewManager(store storage.KeyValueStore, defaults Settings, staticIDs map[string]string, logger *zap.Logger) *Manager {
	return &Manager{
		store:     store,
		defaults:  defaults.Clone(),
		staticIDs: staticIDs,
		logger:    logger.With(zap.String("component", "settings")),
	}
}

// Defaults returns a copy of the default settings
func (m *Manager) Defaults() Settings {
	return m.defaults.Clone()
}

// StaticIDs returns the built-in ticker to coin id map
func (m *Manager) StaticIDs() map[string]string {
	return m.staticIDs
}

// ResolveCoinID resolves symbol against s and the built-in map
func (m *Manager) ResolveCoinID(s Settings, symbol string) string {
	return ResolveCoinID(s, symbol, m.staticIDs)
}

// Read returns the stored record as is, without defaults.
// found is false when nothing has been stored yet.
func (m *Manager) Read(ctx context.Context) (s Settings, found bool, err error) {
	found, err = m.store.Get(ctx, StorageKey, &s)
	if err != nil {
		return Settings{}, false, err
	}
	return s, found, nil
}

// Load returns the stored record with defaults filling absent fields
func (m *Manager) Load(ctx context.Context) (Settings, error) {
	s := m.defaults.Clone()
	if _, err := m.store.Get(ctx, StorageKey, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Save validates and stores s, replacing the whole record
func (m *Manager) Save(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s = s.Clone()
	for i, symbol := range s.SelectedCoins {
		s.SelectedCoins[i] = NormalizeSymbol(symbol)
	}
	s.PinnedCoin = NormalizeSymbol(s.PinnedCoin)
	if err := m.store.Set(ctx, StorageKey, s); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	m.logger.Debug("settings saved",
		zap.Strings("selectedCoins", s.SelectedCoins),
		zap.Int("refreshInterval", s.RefreshInterval),
		zap.String("pinnedCoin", s.PinnedCoin))
	return nil
}

// Update loads the settings, applies fn and saves the result
func (m *Manager) Update(ctx context.Context, fn func(*Settings) error) (Settings, error) {
	s, err := m.Load(ctx)
	if err != nil {
		return Settings{}, err
	}
	if err := fn(&s); err != nil {
		return Settings{}, err
	}
	if err := m.Save(ctx, s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// AddCoin appends symbol to the watch list and remembers its coin id and name.
// Adding a symbol that is already selected changes nothing and reports false.
func (m *Manager) AddCoin(ctx context.Context, symbol, coinID, name string) (Settings, bool, error) {
	upper := NormalizeSymbol(symbol)
	if upper == "" {
		return Settings{}, false, ErrInvalidSymbol
	}

	added := false
	s, err := m.Update(ctx, func(s *Settings) error {
		if slices.Contains(s.SelectedCoins, upper) {
			return nil
		}
		s.SelectedCoins = append(s.SelectedCoins, upper)
		if coinID != "" {
			if s.CoinGeckoIDs == nil {
				s.CoinGeckoIDs = make(map[string]string)
			}
			s.CoinGeckoIDs[upper] = coinID
		}
		if name != "" {
			if s.CoinNames == nil {
				s.CoinNames = make(map[string]string)
			}
			s.CoinNames[upper] = name
		}
		added = true
		return nil
	})
	if err != nil {
		return Settings{}, false, err
	}
	if added {
		m.logger.Info("coin added", zap.String("symbol", upper), zap.String("coinId", coinID))
	}
	return s, added, nil
}

// RemoveCoin drops symbol from the watch list, unpinning it if pinned
func (m *Manager) RemoveCoin(ctx context.Context, symbol string) (Settings, error) {
	upper := NormalizeSymbol(symbol)
	return m.Update(ctx, func(s *Settings) error {
		idx := slices.Index(s.SelectedCoins, upper)
		if idx < 0 {
			return ErrCoinNotSelected
		}
		s.SelectedCoins = slices.Delete(s.SelectedCoins, idx, idx+1)
		if s.PinnedCoin == upper {
			s.PinnedCoin = ""
		}
		return nil
	})
}

// Pin selects the coin shown on the badge. An empty symbol unpins.
func (m *Manager) Pin(ctx context.Context, symbol string) (Settings, error) {
	upper := NormalizeSymbol(symbol)
	return m.Update(ctx, func(s *Settings) error {
		if upper != "" && !slices.Contains(s.SelectedCoins, upper) {
			return ErrCoinNotSelected
		}
		s.PinnedCoin = upper
		return nil
	})
}

// DecodeChange extracts the old and new settings from a store change.
// A side that is absent decodes to the zero Settings.
func DecodeChange(change storage.Change) (prev, next Settings, err error) {
	if len(change.Old) > 0 {
		if err := json.Unmarshal(change.Old, &prev); err != nil {
			return Settings{}, Settings{}, fmt.Errorf("failed to decode previous settings: %w", err)
		}
	}
	if len(change.New) > 0 {
		if err := json.Unmarshal(change.New, &next); err != nil {
			return Settings{}, Settings{}, fmt.Errorf("failed to decode new settings: %w", err)
		}
	}
	return prev, next, nil
}
