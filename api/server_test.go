package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/cryptoview/pricewatch/background"
	"github.com/cryptoview/pricewatch/badge"
	"github.com/cryptoview/pricewatch/coin_detail"
	"github.com/cryptoview/pricewatch/coingecko_client"
	cg "github.com/cryptoview/pricewatch/coingecko_common"
	"github.com/cryptoview/pricewatch/config"
	"github.com/cryptoview/pricewatch/feedback"
	"github.com/cryptoview/pricewatch/settings"
	"github.com/cryptoview/pricewatch/storage"
	"github.com/cryptoview/pricewatch/watchlist"
)

func newTestServer(t *testing.T, deps Deps) (*Server, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	clk.Set(time.UnixMilli(1_700_000_000_000))
	deps.Clock = clk
	if deps.Settings == nil {
		store := storage.New(storage.NewMemoryBackend(), zap.NewNop())
		deps.Settings = settings.NewManager(store, settings.Settings{
			SelectedCoins:   []string{"BTC", "ETH"},
			RefreshInterval: 30,
			Currency:        "USD",
			Language:        "en",
		}, map[string]string{"BTC": "bitcoin"}, zap.NewNop())
	}
	server := New(config.ServerConfig{Port: "0"}, config.SearchConfig{MinInterval: 50 * time.Millisecond}, deps, zap.NewNop())
	t.Cleanup(server.Stop)
	return server, clk
}

func do(t *testing.T, server *Server, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)
	return recorder
}

type fakeWatchlist struct {
	snapshot  watchlist.Snapshot
	valid     bool
	refreshes int32
	err       error
}

func (f *fakeWatchlist) Snapshot() (watchlist.Snapshot, bool) { return f.snapshot, f.valid }

func (f *fakeWatchlist) Refresh(ctx context.Context) (watchlist.Snapshot, error) {
	atomic.AddInt32(&f.refreshes, 1)
	if f.err != nil {
		return watchlist.Snapshot{}, f.err
	}
	f.valid = true
	return f.snapshot, nil
}

type fakeSearch struct {
	calls []time.Time
}

func (f *fakeSearch) Search(ctx context.Context, query string) (coingecko_client.SearchResult, error) {
	f.calls = append(f.calls, time.Now())
	return coingecko_client.SearchResult{Coins: []coingecko_client.SearchCoin{{ID: "bitcoin", Symbol: "BTC", Name: query}}}, nil
}

type fakeDetails struct {
	currency string
	days     string
	err      error
}

func (f *fakeDetails) GetDetails(ctx context.Context, coinID, currency string) (coin_detail.CoinDetails, error) {
	f.currency = currency
	if f.err != nil {
		return coin_detail.CoinDetails{}, f.err
	}
	return coin_detail.CoinDetails{ID: coinID, Currency: strings.ToUpper(currency)}, nil
}

func (f *fakeDetails) GetHistory(ctx context.Context, coinID, currency, days string) ([]coin_detail.PricePoint, error) {
	f.currency, f.days = currency, days
	return []coin_detail.PricePoint{{Timestamp: 1, Price: 2}}, nil
}

type fakeRefresher struct {
	result badge.Result
}

func (f fakeRefresher) Refresh(ctx context.Context) badge.Result { return f.result }

type fakeFeedback struct {
	err error
}

func (f fakeFeedback) Submit(ctx context.Context, content string) (feedback.Receipt, error) {
	if f.err != nil {
		return feedback.Receipt{}, f.err
	}
	return feedback.Receipt{PageID: "page-" + content}, nil
}

type fakeScheduler struct{}

func (fakeScheduler) State() background.State {
	return background.State{Scheduled: true, Period: time.Minute}
}

func TestMarkets(t *testing.T) {
	wl := &fakeWatchlist{snapshot: watchlist.Snapshot{
		Currency: "USD",
		Coins:    []watchlist.Coin{{Symbol: "BTC", CoinID: "bitcoin"}, {Symbol: "ETH", CoinID: "ethereum"}},
	}}
	server, _ := newTestServer(t, Deps{Watchlist: wl})

	// nothing fetched yet
	resp := do(t, server, http.MethodGet, "/api/v1/markets", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "miss", resp.Header().Get("Cache-Status"))
	assert.Equal(t, int32(1), wl.refreshes)

	resp = do(t, server, http.MethodGet, "/api/v1/markets?symbols=eth", "")
	assert.Equal(t, "hit", resp.Header().Get("Cache-Status"))
	assert.Equal(t, int64(1), gjson.Get(resp.Body.String(), "coins.#").Int())
	assert.Equal(t, "ETH", gjson.Get(resp.Body.String(), "coins.0.symbol").String())

	resp = do(t, server, http.MethodGet, "/api/v1/markets?refresh=true", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, int32(2), wl.refreshes)
}

func TestMarkets_LockedUpstream(t *testing.T) {
	wl := &fakeWatchlist{err: &cg.APIError{Kind: cg.KindAPILocked, Message: "locked"}}
	server, clk := newTestServer(t, Deps{Watchlist: wl})
	server.deps.Breaker = fixedLock{unlock: clk.Now().Add(30 * time.Second), ok: true}

	resp := do(t, server, http.MethodGet, "/api/v1/markets", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, "30", resp.Header().Get("Retry-After"))
	assert.Equal(t, "api_locked", gjson.Get(resp.Body.String(), "error").String())
}

func TestSearch(t *testing.T) {
	search := &fakeSearch{}
	server, _ := newTestServer(t, Deps{Search: search})

	resp := do(t, server, http.MethodGet, "/api/v1/search?query=", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Empty(t, search.calls)

	resp = do(t, server, http.MethodGet, "/api/v1/search?query=bit", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "bitcoin", gjson.Get(resp.Body.String(), "coins.0.id").String())

	resp = do(t, server, http.MethodGet, "/api/v1/search?query=bitc", "")
	require.Equal(t, http.StatusOK, resp.Code)

	// searches are spaced by the minimum interval
	require.Len(t, search.calls, 2)
	assert.GreaterOrEqual(t, search.calls[1].Sub(search.calls[0]), 40*time.Millisecond)
}

func TestCoinDetailsAndHistory(t *testing.T) {
	details := &fakeDetails{}
	server, _ := newTestServer(t, Deps{Details: details})

	resp := do(t, server, http.MethodGet, "/api/v1/coins/Bitcoin?vs_currency=EUR", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "bitcoin", gjson.Get(resp.Body.String(), "id").String())
	assert.Equal(t, "eur", details.currency)

	// falls back to the user's currency and seven days
	resp = do(t, server, http.MethodGet, "/api/v1/coins/bitcoin/history", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "usd", details.currency)
	assert.Equal(t, "7", details.days)
	assert.Equal(t, float64(2), gjson.Get(resp.Body.String(), "0.price").Float())

	details.err = &cg.APIError{Kind: cg.KindParse, Message: "invalid coin data"}
	resp = do(t, server, http.MethodGet, "/api/v1/coins/ghost", "")
	assert.Equal(t, http.StatusBadGateway, resp.Code)
}

func TestSettingsRoutes(t *testing.T) {
	server, _ := newTestServer(t, Deps{})

	resp := do(t, server, http.MethodGet, "/api/v1/settings", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, int64(30), gjson.Get(resp.Body.String(), "refreshInterval").Int())

	resp = do(t, server, http.MethodPut, "/api/v1/settings", `{"selectedCoins":["BTC"],"refreshInterval":-5}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, server, http.MethodPut, "/api/v1/settings", `{"selectedCoins":["btc","eth"],"refreshInterval":60,"currency":"EUR"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "EUR", gjson.Get(resp.Body.String(), "currency").String())

	resp = do(t, server, http.MethodPost, "/api/v1/watchlist", `{"symbol":"pepe","coinId":"pepe","name":"Pepe"}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "pepe", gjson.Get(resp.Body.String(), "coinGeckoIds.PEPE").String())

	resp = do(t, server, http.MethodPost, "/api/v1/watchlist", `{"symbol":"PEPE"}`)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = do(t, server, http.MethodPut, "/api/v1/pinned", `{"symbol":"doge"}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = do(t, server, http.MethodPut, "/api/v1/pinned", `{"symbol":"pepe"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "PEPE", gjson.Get(resp.Body.String(), "pinnedCoin").String())

	resp = do(t, server, http.MethodDelete, "/api/v1/watchlist/pepe", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "", gjson.Get(resp.Body.String(), "pinnedCoin").String())

	resp = do(t, server, http.MethodDelete, "/api/v1/watchlist/pepe", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = do(t, server, http.MethodPut, "/api/v1/pinned", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestBadgeRoutes(t *testing.T) {
	store := storage.New(storage.NewMemoryBackend(), zap.NewNop())
	publisher := badge.NewPublisher(store, zap.NewNop())
	refresher := fakeRefresher{result: badge.Result{Outcome: badge.OutcomeUpdated, CoinID: "bitcoin", Badge: badge.Format(523.9, -1)}}
	server, _ := newTestServer(t, Deps{Badge: publisher, Refresher: refresher})

	resp := do(t, server, http.MethodGet, "/api/v1/badge", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"text":"","color":""}`, resp.Body.String())

	require.NoError(t, publisher.Set(context.Background(), badge.Format(12345.6, 1.2)))
	resp = do(t, server, http.MethodGet, "/api/v1/badge", "")
	assert.JSONEq(t, `{"text":"12.3k","color":"#38a169"}`, resp.Body.String())

	resp = do(t, server, http.MethodPost, "/api/v1/badge/refresh", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "updated", gjson.Get(resp.Body.String(), "outcome").String())
	assert.Equal(t, "523", gjson.Get(resp.Body.String(), "badge.text").String())
}

func TestBadgeStream(t *testing.T) {
	store := storage.New(storage.NewMemoryBackend(), zap.NewNop())
	publisher := badge.NewPublisher(store, zap.NewNop())
	server, _ := newTestServer(t, Deps{Badge: publisher})

	require.NoError(t, publisher.Set(context.Background(), badge.Error()))

	httpServer := httptest.NewServer(server.Router())
	defer httpServer.Close()

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/api/v1/badge/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got badge.Badge
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, badge.Error(), got)

	// the handler subscribed before sending the current badge
	require.NoError(t, publisher.Set(context.Background(), badge.Format(0.0456, 3)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, badge.Badge{Text: "0.05", Color: badge.ColorUp}, got)
}

func TestFeedbackRoute(t *testing.T) {
	server, _ := newTestServer(t, Deps{Feedback: fakeFeedback{}})

	resp := do(t, server, http.MethodPost, "/api/v1/feedback", `{"content":"nice"}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "page-nice", gjson.Get(resp.Body.String(), "pageId").String())

	server, _ = newTestServer(t, Deps{Feedback: fakeFeedback{err: &feedback.TooFrequentError{RemainingSeconds: 12}}})
	resp = do(t, server, http.MethodPost, "/api/v1/feedback", `{"content":"again"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "12", resp.Header().Get("Retry-After"))
}

func TestHealth(t *testing.T) {
	server, clk := newTestServer(t, Deps{Scheduler: fakeScheduler{}})
	server.deps.Breaker = fixedLock{unlock: clk.Now().Add(time.Minute), ok: true}

	resp := do(t, server, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "degraded", gjson.Get(resp.Body.String(), "status").String())
	assert.True(t, gjson.Get(resp.Body.String(), "circuit.open").Bool())
	assert.True(t, gjson.Get(resp.Body.String(), "alarm.scheduled").Bool())
	assert.NotContains(t, body, "calls")
}

func TestDisabledServices(t *testing.T) {
	server, _ := newTestServer(t, Deps{})
	for _, path := range []string{"/api/v1/markets", "/api/v1/search?query=btc", "/api/v1/coins/bitcoin", "/api/v1/badge"} {
		resp := do(t, server, http.MethodGet, path, "")
		assert.Equal(t, http.StatusServiceUnavailable, resp.Code, path)
	}
}
