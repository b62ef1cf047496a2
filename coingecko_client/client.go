package coingecko_client

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	cg "github.com/cryptoview/pricewatch/coingecko_common"
	"github.com/cryptoview/pricewatch/config"
	"github.com/cryptoview/pricewatch/metrics"
)

// Client exposes the price API operations. Every call goes through the
// shared HTTPClient, so the circuit breaker and call tracker apply.
type Client struct {
	http    *cg.HTTPClient
	baseURL string
	apiKey  string
	keyType cg.KeyType
	perPage int
	logger  *zap.Logger

	searchMetrics  *metrics.MetricsWriter
	marketsMetrics *metrics.MetricsWriter
	coinMetrics    *metrics.MetricsWriter
	chartMetrics   *metrics.MetricsWriter
}

func NewClient(cfg config.CoingeckoConfig, httpClient *cg.HTTPClient, logger *zap.Logger) *Client {
	apiKey, keyType := cg.KeyFromConfig(cfg)
	return &Client{
		http:           httpClient,
		baseURL:        cg.GetApiBaseUrl(cfg, keyType),
		apiKey:         apiKey,
		keyType:        keyType,
		perPage:        cfg.PerPage,
		logger:         logger.With(zap.String("component", "coingecko_client")),
		searchMetrics:  metrics.NewMetricsWriter(metrics.ServiceSearch),
		marketsMetrics: metrics.NewMetricsWriter(metrics.ServiceMarkets),
		coinMetrics:    metrics.NewMetricsWriter(metrics.ServiceCoinDetail),
		chartMetrics:   metrics.NewMetricsWriter(metrics.ServiceMarketChart),
	}
}

// Search looks up coins by name or symbol. Results are never cached.
func (c *Client) Search(ctx context.Context, query string) (SearchResult, error) {
	var result SearchResult
	err := c.fetch(ctx, newSearchRequest(c.baseURL, query), c.searchMetrics, &result)
	return result, err
}

// GetMarkets returns listing rows for ids priced in currency.
// An empty ids list returns an empty result without a request.
func (c *Client) GetMarkets(ctx context.Context, ids []string, currency string) ([]MarketEntry, error) {
	if len(ids) == 0 {
		return []MarketEntry{}, nil
	}

	var entries []MarketEntry
	rb := newMarketsRequest(c.baseURL, ids, strings.ToLower(currency), c.perPage)
	if err := c.fetch(ctx, rb, c.marketsMetrics, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []MarketEntry{}
	}
	return entries, nil
}

// GetCoin returns the raw coin document with market data
func (c *Client) GetCoin(ctx context.Context, coinID string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.fetch(ctx, newCoinRequest(c.baseURL, coinID), c.coinMetrics, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// GetMarketChart returns the price history for coinID over days ("1", "7", "max", ...)
func (c *Client) GetMarketChart(ctx context.Context, coinID, currency, days string) (MarketChart, error) {
	var chart MarketChart
	rb := newMarketChartRequest(c.baseURL, coinID, strings.ToLower(currency), days)
	err := c.fetch(ctx, rb, c.chartMetrics, &chart)
	return chart, err
}

func (c *Client) fetch(ctx context.Context, rb *cg.CoingeckoRequestBuilder, mw *metrics.MetricsWriter, out any) error {
	rb.WithApiKey(c.apiKey, c.keyType)

	payload, err := c.http.Execute(ctx, rb, mw)
	if err != nil {
		return err
	}

	if err := payload.Decode(out); err != nil {
		mw.RecordUpstreamRequest(metrics.StatusParseError)
		c.logger.Error("failed to parse upstream response",
			zap.String("service", mw.GetServiceName()),
			zap.String("contentType", payload.ContentType),
			zap.String("payload", truncate(payload.Text(), 200)),
			zap.Error(err))
		return err
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
