package coingecko_client

import (
	"net/url"
	"strconv"

	cg "github.com/cryptoview/pricewatch/coingecko_common"
)

// MarketsPerPage is the page size requested from /coins/markets
const MarketsPerPage = 250

func newSearchRequest(baseURL, query string) *cg.CoingeckoRequestBuilder {
	return cg.NewCoingeckoRequestBuilder(baseURL, "/search").
		With("query", query)
}

func newMarketsRequest(baseURL string, ids []string, currency string, perPage int) *cg.CoingeckoRequestBuilder {
	if perPage <= 0 {
		perPage = MarketsPerPage
	}
	return cg.NewCoingeckoRequestBuilder(baseURL, "/coins/markets").
		WithCurrency(currency).
		WithIDs(ids).
		With("order", "market_cap_desc").
		With("per_page", strconv.Itoa(perPage)).
		With("page", "1").
		With("sparkline", "false").
		With("price_change_percentage", "24h")
}

func newCoinRequest(baseURL, coinID string) *cg.CoingeckoRequestBuilder {
	return cg.NewCoingeckoRequestBuilder(baseURL, "/coins/"+url.PathEscape(coinID)).
		With("localization", "false").
		With("tickers", "false").
		With("market_data", "true").
		With("community_data", "false").
		With("developer_data", "false").
		With("sparkline", "false")
}

func newMarketChartRequest(baseURL, coinID, currency, days string) *cg.CoingeckoRequestBuilder {
	return cg.NewCoingeckoRequestBuilder(baseURL, "/coins/"+url.PathEscape(coinID)+"/market_chart").
		WithCurrency(currency).
		With("days", days).
		With("interval", GetInterval(days))
}

// GetInterval picks the chart granularity: hourly for one day or less,
// daily otherwise (including "max").
func GetInterval(days string) string {
	d, err := strconv.ParseFloat(days, 64)
	if err == nil && d <= 1 {
		return "hourly"
	}
	return "daily"
}
