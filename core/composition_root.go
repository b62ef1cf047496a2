package core

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/cryptoview/pricewatch/alarm"
	"github.com/cryptoview/pricewatch/api"
	"github.com/cryptoview/pricewatch/background"
	"github.com/cryptoview/pricewatch/badge"
	"github.com/cryptoview/pricewatch/cache"
	"github.com/cryptoview/pricewatch/coin_detail"
	"github.com/cryptoview/pricewatch/coingecko_client"
	cg "github.com/cryptoview/pricewatch/coingecko_common"
	"github.com/cryptoview/pricewatch/config"
	"github.com/cryptoview/pricewatch/feedback"
	"github.com/cryptoview/pricewatch/settings"
	"github.com/cryptoview/pricewatch/storage"
	"github.com/cryptoview/pricewatch/watchlist"
)

// App holds the wired components. Registry starts and stops the long-running ones.
type App struct {
	Registry   *Registry
	Store      *storage.Store
	Settings   *settings.Manager
	Client     *coingecko_client.Client
	Breaker    *cg.CircuitBreaker
	Tracker    *cg.CallTracker
	Details    *coin_detail.Service
	Publisher  *badge.Publisher
	Refresher  *badge.Refresher
	Background *background.Service
	Watchlist  *watchlist.Service
	Feedback   *feedback.Service
	Server     *api.Server
}

// OpenStore opens the configured key-value store
func OpenStore(cfg config.StorageConfig, logger *zap.Logger) (*storage.Store, error) {
	switch cfg.Driver {
	case config.StorageDriverMemory:
		return storage.New(storage.NewMemoryBackend(), logger), nil
	case config.StorageDriverBadger, "":
		backend, err := storage.OpenBadger(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		return storage.New(backend, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// DefaultSettings converts the configured defaults to user settings
func DefaultSettings(cfg config.DefaultSettingsConfig) settings.Settings {
	return settings.Settings{
		SelectedCoins:   append([]string(nil), cfg.SelectedCoins...),
		RefreshInterval: cfg.RefreshInterval,
		Currency:        cfg.Currency,
		Language:        cfg.Language,
	}
}

// Setup creates all components and registers the services
func Setup(cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, err := OpenStore(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return SetupWithStore(cfg, store, clock.New(), logger), nil
}

// SetupWithStore wires everything on top of an open store
func SetupWithStore(cfg *config.Config, store *storage.Store, clk clock.Clock, logger *zap.Logger) *App {
	registry := NewRegistry(logger)
	app := &App{Registry: registry, Store: store}

	// the store is stopped last
	registry.Register("store", &storeService{store: store, logger: logger})

	// Upstream API protection and client
	app.Breaker = cg.NewCircuitBreaker(store, clk, logger)
	app.Tracker = cg.NewCallTracker(store, clk, cfg.Coingecko.CallWindow, logger)
	httpClient := cg.NewHTTPClient(cg.Options{
		ConnectionTimeout: cfg.Coingecko.RequestTimeout,
		RequestTimeout:    cfg.Coingecko.RequestTimeout,
		LockDuration:      cfg.Coingecko.LockDuration,
	}, app.Breaker, app.Tracker, logger)
	app.Client = coingecko_client.NewClient(cfg.Coingecko, httpClient, logger)

	app.Settings = settings.NewManager(store, DefaultSettings(cfg.DefaultSettings), cfg.CoinIDs, logger)

	// Coin detail and history, cached in memory
	cacheService := cache.NewService(cfg.Cache, clk)
	registry.Register("cache", cacheService)
	app.Details = coin_detail.NewService(cacheService, app.Client, cfg.Cache, clk, logger)
	registry.Register("coin_detail", app.Details)

	// Badge
	app.Publisher = badge.NewPublisher(store, logger)
	app.Refresher = badge.NewRefresher(app.Settings, app.Client, app.Publisher, logger)

	var scheduler api.SchedulerState
	if !cfg.Background.Disabled {
		alarms := alarm.NewCronManager(logger)
		registry.Register("alarms", alarms)
		app.Background = background.NewService(cfg.Background, alarms, app.Settings, store, app.Refresher, logger)
		alarms.OnFire(app.Background.HandleAlarm)
		registry.Register("background", app.Background)
		scheduler = app.Background
	} else {
		logger.Info("badge scheduling disabled")
	}

	var wl api.WatchlistService
	if !cfg.Watchlist.Disabled {
		app.Watchlist = watchlist.NewService(app.Settings, app.Client, store, clk, logger)
		registry.Register("watchlist", app.Watchlist)
		wl = app.Watchlist
	}

	app.Feedback = feedback.NewService(cfg.Feedback, feedback.NewNotionClient(cfg.Feedback, logger), store, clk, logger)
	if !cfg.Feedback.Configured() {
		logger.Warn("feedback target not configured, submissions will be rejected")
	}

	app.Server = api.New(cfg.Server, cfg.Search, api.Deps{
		Settings:  app.Settings,
		Watchlist: wl,
		Search:    app.Client,
		Details:   app.Details,
		Badge:     app.Publisher,
		Refresher: app.Refresher,
		Feedback:  app.Feedback,
		Scheduler: scheduler,
		Breaker:   app.Breaker,
		Tracker:   app.Tracker,
		Clock:     clk,
	}, logger)
	registry.Register("api", app.Server)

	return app
}

// storeService closes the store on shutdown
type storeService struct {
	store  *storage.Store
	logger *zap.Logger
}

func (s *storeService) Start(ctx context.Context) error {
	return nil
}

func (s *storeService) Stop() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("failed to close store", zap.Error(err))
	}
}
