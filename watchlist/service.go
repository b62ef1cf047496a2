package watchlist

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/cryptoview/pricewatch/coingecko_client"
	"github.com/cryptoview/pricewatch/events"
	"github.com/cryptoview/pricewatch/metrics"
	"github.com/cryptoview/pricewatch/scheduler"
	"github.com/cryptoview/pricewatch/settings"
	"github.com/cryptoview/pricewatch/storage"
)

// MarketsClient fetches listing rows for coin ids
type MarketsClient interface {
	GetMarkets(ctx context.Context, ids []string, currency string) ([]coingecko_client.MarketEntry, error)
}

// ChangeSource publishes store changes
type ChangeSource interface {
	Subscribe() *events.Subscription[storage.Change]
}

// Coin is one watch-list row. Market is nil when the API returned nothing for the coin.
type Coin struct {
	Symbol string                        `json:"symbol"`
	CoinID string                        `json:"coinId"`
	Name   string                        `json:"name,omitempty"`
	Pinned bool                          `json:"pinned"`
	Market *coingecko_client.MarketEntry `json:"market,omitempty"`
}

// Snapshot is the last fetched watch list
type Snapshot struct {
	Currency  string    `json:"currency"`
	Coins     []Coin    `json:"coins"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Service keeps a periodically refreshed listing of the selected coins
type Service struct {
	settings *settings.Manager
	client   MarketsClient
	changes  ChangeSource
	clock    clock.Clock
	metrics  *metrics.MetricsWriter
	logger   *zap.Logger

	snapshot struct {
		sync.RWMutex
		data  Snapshot
		valid bool
	}

	arming struct {
		sync.Mutex
		ctx       context.Context
		scheduler *scheduler.Scheduler
		sub       *events.Subscription[storage.Change]
		stopped   bool
	}
}

func NewService(settingsManager *settings.Manager, client MarketsClient, changes ChangeSource, clk clock.Clock, logger *zap.Logger) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		settings: settingsManager,
		client:   client,
		changes:  changes,
		clock:    clk,
		metrics:  metrics.NewMetricsWriter(metrics.ServiceWatchlist),
		logger:   logger.With(zap.String("component", "watchlist")),
	}
}

// Start arms the refresh schedule and re-arms it whenever the refresh
// interval, the selected coins or the currency change.
func (s *Service) Start(ctx context.Context) error {
	if s.settings == nil || s.client == nil {
		return fmt.Errorf("watchlist service not properly initialized")
	}

	s.arming.Lock()
	s.arming.ctx = ctx
	s.arming.stopped = false
	s.arming.Unlock()

	if err := s.Rearm(ctx); err != nil {
		s.logger.Error("failed to arm watch-list refresh", zap.Error(err))
	}

	if s.changes != nil {
		sub := s.changes.Subscribe().Watch(ctx, s.onChange)
		s.arming.Lock()
		s.arming.sub = sub
		s.arming.Unlock()
	}
	return nil
}

// Stop implements core.Interface
func (s *Service) Stop() {
	s.arming.Lock()
	defer s.arming.Unlock()

	s.arming.stopped = true
	if s.arming.sub != nil {
		s.arming.sub.Cancel()
		s.arming.sub = nil
	}
	if s.arming.scheduler != nil {
		s.arming.scheduler.Stop()
		s.arming.scheduler = nil
	}
}

// Rearm cancels the current refresh schedule and starts a new one from the
// stored refresh interval. A zero interval leaves refreshing manual.
func (s *Service) Rearm(ctx context.Context) error {
	current, err := s.settings.Load(ctx)
	if err != nil {
		return err
	}

	s.arming.Lock()
	defer s.arming.Unlock()

	if s.arming.scheduler != nil {
		s.arming.scheduler.Stop()
		s.arming.scheduler = nil
	}

	if s.arming.stopped {
		return nil
	}
	if current.RefreshInterval <= 0 {
		s.logger.Info("watch-list auto refresh disabled")
		return nil
	}

	runCtx := s.arming.ctx
	if runCtx == nil {
		runCtx = ctx
	}

	interval := time.Duration(current.RefreshInterval) * time.Second
	s.arming.scheduler = scheduler.New("watchlist-refresh", interval, s.clock, s.logger, func(ctx context.Context) {
		if _, err := s.Refresh(ctx); err != nil {
			s.logger.Warn("watch-list refresh failed", zap.Error(err))
		}
	})
	s.arming.scheduler.Start(runCtx, true)
	s.logger.Info("watch-list auto refresh armed", zap.Duration("interval", interval))
	return nil
}

// Refresh fetches the selected coins now and replaces the snapshot.
// On failure the previous snapshot is kept.
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	defer s.metrics.TrackDataFetchCycle()()

	current, err := s.settings.Load(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load settings: %w", err)
	}

	currency := strings.ToLower(current.CurrencyOrDefault())
	coins := make([]Coin, 0, len(current.SelectedCoins))
	ids := make([]string, 0, len(current.SelectedCoins))
	for _, symbol := range current.SelectedCoins {
		id := s.settings.ResolveCoinID(current, symbol)
		if id == "" {
			continue
		}
		coins = append(coins, Coin{
			Symbol: settings.NormalizeSymbol(symbol),
			CoinID: id,
			Name:   current.CoinNames[settings.NormalizeSymbol(symbol)],
			Pinned: settings.NormalizeSymbol(symbol) == current.PinnedCoin,
		})
		ids = append(ids, id)
	}

	entries, err := s.client.GetMarkets(ctx, ids, currency)
	if err != nil {
		return Snapshot{}, err
	}

	byID := make(map[string]*coingecko_client.MarketEntry, len(entries))
	for i := range entries {
		byID[entries[i].ID] = &entries[i]
	}
	for i := range coins {
		coins[i].Market = byID[coins[i].CoinID]
		if coins[i].Name == "" && coins[i].Market != nil {
			coins[i].Name = coins[i].Market.Name
		}
	}

	snap := Snapshot{Currency: strings.ToUpper(currency), Coins: coins, UpdatedAt: s.clock.Now()}

	s.snapshot.Lock()
	s.snapshot.data = snap
	s.snapshot.valid = true
	s.snapshot.Unlock()

	s.logger.Debug("watch list refreshed", zap.Int("coins", len(coins)), zap.String("currency", currency))
	return snap, nil
}

// Snapshot returns the last fetched listing. ok is false before the first successful refresh.
func (s *Service) Snapshot() (Snapshot, bool) {
	s.snapshot.RLock()
	defer s.snapshot.RUnlock()
	return s.snapshot.data, s.snapshot.valid
}

func (s *Service) onChange(change storage.Change) {
	if change.Key != settings.StorageKey {
		return
	}
	prev, next, err := settings.DecodeChange(change)
	if err != nil {
		s.logger.Warn("undecodable settings change", zap.Error(err))
		return
	}
	if !settings.WatchlistChanged(prev, next) {
		return
	}

	s.arming.Lock()
	ctx := s.arming.ctx
	s.arming.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	if err := s.Rearm(ctx); err != nil {
		s.logger.Error("failed to re-arm watch-list refresh", zap.Error(err))
	}
}
