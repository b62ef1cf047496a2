package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cryptoview/pricewatch/background"
	"github.com/cryptoview/pricewatch/badge"
	"github.com/cryptoview/pricewatch/coin_detail"
	"github.com/cryptoview/pricewatch/coingecko_client"
	cg "github.com/cryptoview/pricewatch/coingecko_common"
	"github.com/cryptoview/pricewatch/config"
	"github.com/cryptoview/pricewatch/events"
	"github.com/cryptoview/pricewatch/feedback"
	"github.com/cryptoview/pricewatch/settings"
	"github.com/cryptoview/pricewatch/watchlist"
)

type WatchlistService interface {
	Snapshot() (watchlist.Snapshot, bool)
	Refresh(ctx context.Context) (watchlist.Snapshot, error)
}

type SearchClient interface {
	Search(ctx context.Context, query string) (coingecko_client.SearchResult, error)
}

type DetailService interface {
	GetDetails(ctx context.Context, coinID, currency string) (coin_detail.CoinDetails, error)
	GetHistory(ctx context.Context, coinID, currency, days string) ([]coin_detail.PricePoint, error)
}

type BadgeState interface {
	Current(ctx context.Context) (badge.Badge, error)
	Subscribe() *events.Subscription[badge.Badge]
}

type BadgeRefresher interface {
	Refresh(ctx context.Context) badge.Result
}

type FeedbackService interface {
	Submit(ctx context.Context, content string) (feedback.Receipt, error)
}

type SchedulerState interface {
	State() background.State
}

type LockState interface {
	UnlockTime(ctx context.Context) (time.Time, bool)
}

type CallStatsReader interface {
	Stats(ctx context.Context) (cg.CallStats, bool, error)
}

// Deps are the services behind the HTTP API. Nil optional services
// make their routes answer 503.
type Deps struct {
	Settings  *settings.Manager
	Watchlist WatchlistService
	Search    SearchClient
	Details   DetailService
	Badge     BadgeState
	Refresher BadgeRefresher
	Feedback  FeedbackService
	Scheduler SchedulerState
	Breaker   LockState
	Tracker   CallStatsReader
	Clock     clock.Clock
}

type Server struct {
	port          string
	deps          Deps
	searchLimiter *rate.Limiter
	logger        *zap.Logger
	server        *http.Server
	ctx           context.Context
	cancel        context.CancelFunc
}

func New(cfg config.ServerConfig, searchCfg config.SearchConfig, deps Deps, logger *zap.Logger) *Server {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	minInterval := searchCfg.MinInterval
	if minInterval <= 0 {
		minInterval = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		port:          cfg.Port,
		deps:          deps,
		searchLimiter: rate.NewLimiter(rate.Every(minInterval), 1),
		logger:        logger.With(zap.String("component", "api")),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Router builds the route table
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/markets", s.handleMarkets).Methods(http.MethodGet)
	v1.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)
	v1.HandleFunc("/coins/{id}", s.handleCoinDetails).Methods(http.MethodGet)
	v1.HandleFunc("/coins/{id}/history", s.handleCoinHistory).Methods(http.MethodGet)

	v1.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	v1.HandleFunc("/settings", s.handlePutSettings).Methods(http.MethodPut)
	v1.HandleFunc("/watchlist", s.handleAddCoin).Methods(http.MethodPost)
	v1.HandleFunc("/watchlist/{symbol}", s.handleRemoveCoin).Methods(http.MethodDelete)
	v1.HandleFunc("/pinned", s.handlePin).Methods(http.MethodPut)

	v1.HandleFunc("/badge", s.handleGetBadge).Methods(http.MethodGet)
	v1.HandleFunc("/badge/ws", s.handleBadgeStream).Methods(http.MethodGet)
	v1.HandleFunc("/badge/refresh", s.handleRefreshBadge).Methods(http.MethodPost)

	v1.HandleFunc("/feedback", s.handleFeedback).Methods(http.MethodPost)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler())

	return router
}

func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("server starting", zap.String("addr", "http://localhost:"+s.port))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() {
	s.cancel()
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Error("error shutting down server", zap.Error(err))
		}
	}
}

func decodeBody(r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	return dec.Decode(out)
}
