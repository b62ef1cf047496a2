package coin_detail

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/cryptoview/pricewatch/cache"
	"github.com/cryptoview/pricewatch/coingecko_client"
	"github.com/cryptoview/pricewatch/metrics"
	"github.com/cryptoview/pricewatch/scheduler"
)

// APIClient is the part of the price API the detail cache needs
type APIClient interface {
	GetCoin(ctx context.Context, coinID string) (json.RawMessage, error)
	GetMarketChart(ctx context.Context, coinID, currency, days string) (coingecko_client.MarketChart, error)
}

// Service caches coin details and price history for a fixed TTL
type Service struct {
	cache     *cache.Service
	apiClient APIClient
	ttl       time.Duration
	sweeper   *scheduler.Scheduler
	logger    *zap.Logger

	detailMetrics  *metrics.MetricsWriter
	historyMetrics *metrics.MetricsWriter
}

// NewService creates the detail cache. Stale entries are swept every
// CleanupInterval once the service is started.
func NewService(cacheService *cache.Service, apiClient APIClient, cfg cache.Config, clk clock.Clock, logger *zap.Logger) *Service {
	if clk == nil {
		clk = clock.New()
	}
	logger = logger.With(zap.String("component", "coin_detail"))

	s := &Service{
		cache:          cacheService,
		apiClient:      apiClient,
		ttl:            cfg.GoCache.DefaultExpiration,
		logger:         logger,
		detailMetrics:  metrics.NewMetricsWriter(metrics.ServiceCoinDetail),
		historyMetrics: metrics.NewMetricsWriter(metrics.ServiceMarketChart),
	}
	s.sweeper = scheduler.New("detail-cache-sweep", cfg.GoCache.CleanupInterval, clk, logger, func(context.Context) {
		s.CleanupExpired()
	})
	return s
}

// Start implements core.Interface
func (s *Service) Start(ctx context.Context) error {
	if s.cache == nil {
		return fmt.Errorf("cache dependency not provided")
	}
	if s.apiClient == nil {
		return fmt.Errorf("api client dependency not provided")
	}
	s.sweeper.Start(ctx, false)
	return nil
}

// Stop implements core.Interface
func (s *Service) Stop() {
	s.sweeper.Stop()
}

// GetDetails returns the formatted details of coinID priced in currency
func (s *Service) GetDetails(ctx context.Context, coinID, currency string) (CoinDetails, error) {
	currency = strings.ToLower(currency)
	key := DetailKey(coinID, currency)

	data, hit, err := s.cache.GetOrLoad(key, s.ttl, func() ([]byte, error) {
		raw, err := s.apiClient.GetCoin(ctx, coinID)
		if err != nil {
			return nil, err
		}
		details, err := FormatCoinDetails(raw, currency)
		if err != nil {
			return nil, err
		}
		return encode(details)
	})
	s.detailMetrics.RecordCacheLookup(hit)
	if err != nil {
		s.logger.Error("failed to fetch coin details",
			zap.String("coin", coinID), zap.String("currency", currency), zap.Error(err))
		return CoinDetails{}, err
	}

	var details CoinDetails
	if err := json.Unmarshal(data, &details); err != nil {
		return CoinDetails{}, fmt.Errorf("failed to decode cached details: %w", err)
	}
	s.recordSize()
	return details, nil
}

// GetHistory returns the price history of coinID over days
func (s *Service) GetHistory(ctx context.Context, coinID, currency, days string) ([]PricePoint, error) {
	currency = strings.ToLower(currency)
	key := HistoryKey(coinID, currency, days)

	data, hit, err := s.cache.GetOrLoad(key, s.ttl, func() ([]byte, error) {
		chart, err := s.apiClient.GetMarketChart(ctx, coinID, currency, days)
		if err != nil {
			return nil, err
		}
		points, err := FormatHistory(chart)
		if err != nil {
			return nil, err
		}
		return encode(points)
	})
	s.historyMetrics.RecordCacheLookup(hit)
	if err != nil {
		s.logger.Error("failed to fetch price history",
			zap.String("coin", coinID), zap.String("currency", currency),
			zap.String("days", days), zap.Error(err))
		return nil, err
	}

	var points []PricePoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("failed to decode cached history: %w", err)
	}
	s.recordSize()
	return points, nil
}

// CleanupExpired drops entries older than the TTL
func (s *Service) CleanupExpired() int {
	removed := s.cache.Sweep(s.ttl)
	if removed > 0 {
		s.logger.Debug("swept expired entries", zap.Int("removed", removed))
	}
	s.recordSize()
	return removed
}

// Clear drops every cached entry
func (s *Service) Clear() {
	s.cache.Clear()
	s.recordSize()
}

func (s *Service) recordSize() {
	s.detailMetrics.RecordCacheSize(s.cache.Stats().GoCacheItems)
}

// DetailKey is the cache key of a coin detail entry
func DetailKey(coinID, currency string) string {
	return fmt.Sprintf("detail-%s-%s", coinID, currency)
}

// HistoryKey is the cache key of a price history entry
func HistoryKey(coinID, currency, days string) string {
	return fmt.Sprintf("history-%s-%s-%s", coinID, currency, days)
}
