package e2etest

import (
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MockServer stands in for the upstream price API
type MockServer struct {
	server *httptest.Server

	mu          sync.RWMutex
	MarketsData string
	CoinData    string
	SearchData  string

	rateLimited atomic.Bool
	hits        atomic.Int32
	paths       []string
}

// NewMockServer creates and starts a mock upstream
func NewMockServer() *MockServer {
	ms := &MockServer{
		MarketsData: defaultMarketsData(),
		CoinData:    defaultCoinData(),
		SearchData:  defaultSearchData(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", ms.handleRequest)
	ms.server = httptest.NewServer(mux)
	return ms
}

// Close stops the mock server
func (ms *MockServer) Close() {
	if ms.server != nil {
		ms.server.Close()
	}
}

// GetURL returns the base URL of the mock server
func (ms *MockServer) GetURL() string {
	return ms.server.URL
}

// SetRateLimited makes every following request answer 429
func (ms *MockServer) SetRateLimited(limited bool) {
	ms.rateLimited.Store(limited)
}

// Hits is the number of requests received
func (ms *MockServer) Hits() int {
	return int(ms.hits.Load())
}

// Paths returns the request paths received so far
func (ms *MockServer) Paths() []string {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return append([]string(nil), ms.paths...)
}

// handleRequest processes incoming requests and returns mock data
func (ms *MockServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	ms.hits.Add(1)
	path := r.URL.Path

	ms.mu.Lock()
	ms.paths = append(ms.paths, path)
	ms.mu.Unlock()

	log.Printf("MockServer: Received request for path: %s", path)

	if ms.rateLimited.Load() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"status":{"error_code":429,"error_message":"You've exceeded the Rate Limit"}}`)
		return
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	switch {
	case strings.HasSuffix(path, "/search"):
		writeJSON(w, ms.SearchData)
	case strings.HasSuffix(path, "/coins/markets"):
		writeJSON(w, ms.MarketsData)
	case strings.HasSuffix(path, "/market_chart"):
		// fresh data on each request
		writeJSON(w, generateMarketChartData())
	case strings.HasSuffix(path, "/coins/bitcoin"):
		writeJSON(w, ms.CoinData)
	case strings.HasSuffix(path, "/coins/maintenance"):
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html>Under maintenance</html>")
	default:
		log.Printf("MockServer: Path not found: %s", path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"coin not found"}`)
	}
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	fmt.Fprint(w, body)
}

func defaultMarketsData() string {
	return `[
	{
		"id": "bitcoin",
		"symbol": "btc",
		"name": "Bitcoin",
		"image": "https://assets.coingecko.com/coins/images/1/large/bitcoin.png",
		"current_price": 50000,
		"market_cap": 950000000000,
		"market_cap_rank": 1,
		"total_volume": 30000000000,
		"high_24h": 51000,
		"low_24h": 49000,
		"price_change_24h": 1000,
		"price_change_percentage_24h": 2,
		"last_updated": "2023-04-20T12:34:56.789Z"
	},
	{
		"id": "ethereum",
		"symbol": "eth",
		"name": "Ethereum",
		"image": "https://assets.coingecko.com/coins/images/279/large/ethereum.png",
		"current_price": 3000,
		"market_cap": 360000000000,
		"market_cap_rank": 2,
		"total_volume": 15000000000,
		"high_24h": 3100,
		"low_24h": 2900,
		"price_change_24h": -100,
		"price_change_percentage_24h": -3.33,
		"last_updated": "2023-04-20T12:34:56.789Z"
	}
]`
}

func defaultCoinData() string {
	return `{
	"id": "bitcoin",
	"symbol": "btc",
	"name": "Bitcoin",
	"description": {"en": "Bitcoin is the first decentralized cryptocurrency."},
	"image": {"thumb": "https://example.com/thumb.png", "small": "https://example.com/small.png", "large": "https://example.com/large.png"},
	"market_cap_rank": 1,
	"last_updated": "2023-04-20T12:34:56.789Z",
	"market_data": {
		"market_cap_rank": 1,
		"current_price": {"usd": 50000, "eur": 42000},
		"price_change_percentage_24h": 2,
		"market_cap": {"usd": 950000000000, "eur": 800000000000},
		"total_volume": {"usd": 30000000000, "eur": 25000000000},
		"circulating_supply": 19000000,
		"total_supply": 21000000,
		"max_supply": 21000000,
		"ath": {"usd": 69000, "eur": 59000},
		"atl": {"usd": 67.81, "eur": 51.3},
		"ath_date": {"usd": "2021-11-10T14:24:11.849Z"},
		"atl_date": {"usd": "2013-07-06T00:00:00.000Z"}
	}
}`
}

func defaultSearchData() string {
	return `{
	"coins": [
		{"id": "bitcoin", "name": "Bitcoin", "api_symbol": "bitcoin", "symbol": "BTC", "market_cap_rank": 1, "thumb": "https://example.com/thumb.png", "large": "https://example.com/large.png"},
		{"id": "bitcoin-cash", "name": "Bitcoin Cash", "api_symbol": "bitcoin-cash", "symbol": "BCH", "market_cap_rank": 18}
	],
	"exchanges": [],
	"categories": []
}`
}

// generateMarketChartData generates 30 daily points ending now
func generateMarketChartData() string {
	now := time.Now()

	var prices, marketCaps, totalVolumes []string
	for i := 29; i >= 0; i-- {
		timestamp := now.AddDate(0, 0, -i).UnixMilli()
		price := 47777.23 + float64(i)*100
		marketCap := 905000000000 + int64(i)*3000000000
		volume := 28000000000 + int64(i)*500000000

		prices = append(prices, fmt.Sprintf("[%d, %.2f]", timestamp, price))
		marketCaps = append(marketCaps, fmt.Sprintf("[%d, %d]", timestamp, marketCap))
		totalVolumes = append(totalVolumes, fmt.Sprintf("[%d, %d]", timestamp, volume))
	}

	return fmt.Sprintf(`{
		"prices": [%s],
		"market_caps": [%s],
		"total_volumes": [%s]
	}`, strings.Join(prices, ","), strings.Join(marketCaps, ","), strings.Join(totalVolumes, ","))
}
