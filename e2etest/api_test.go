package e2etest

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPinnedCoinBadge walks a user through pinning a coin and refreshing the badge
func TestPinnedCoinBadge(t *testing.T) {
	env := SetupTest(t)
	defer env.TearDown()

	resp := call(t, env, http.MethodGet, "/api/v1/settings", "")
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, `["BTC","ETH"]`, resp.Body.Get("selectedCoins").Raw)
	assert.Equal(t, int64(3600), resp.Body.Get("refreshInterval").Int())

	// nothing stored yet: the badge is left alone
	resp = call(t, env, http.MethodPost, "/api/v1/badge/refresh", "")
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "skipped", resp.Body.Get("outcome").String())

	resp = call(t, env, http.MethodPut, "/api/v1/pinned", `{"symbol":"btc"}`)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "BTC", resp.Body.Get("pinnedCoin").String())

	resp = call(t, env, http.MethodPost, "/api/v1/badge/refresh", "")
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "updated", resp.Body.Get("outcome").String())
	assert.Equal(t, "bitcoin", resp.Body.Get("coinId").String())

	resp = call(t, env, http.MethodGet, "/api/v1/badge", "")
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "50.0k", resp.Body.Get("text").String())
	assert.Equal(t, "#38a169", resp.Body.Get("color").String())

	// pinning schedules the refresh alarm
	assert.Eventually(t, func() bool {
		return call(t, env, http.MethodGet, "/health", "").Body.Get("alarm.scheduled").Bool()
	}, 2*time.Second, 50*time.Millisecond)

	// removing the pinned coin unpins it and clears the badge
	resp = call(t, env, http.MethodDelete, "/api/v1/watchlist/BTC", "")
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "", resp.Body.Get("pinnedCoin").String())

	resp = call(t, env, http.MethodPost, "/api/v1/badge/refresh", "")
	assert.Equal(t, "cleared", resp.Body.Get("outcome").String())
	assert.Equal(t, "", call(t, env, http.MethodGet, "/api/v1/badge", "").Body.Get("text").String())
}

// TestWatchlistEditing tests adding, removing and pinning coins
func TestWatchlistEditing(t *testing.T) {
	env := SetupTest(t)
	defer env.TearDown()

	resp := call(t, env, http.MethodPost, "/api/v1/watchlist", `{"symbol":"doge","coinId":"dogecoin","name":"Dogecoin"}`)
	require.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, `["BTC","ETH","DOGE"]`, resp.Body.Get("selectedCoins").Raw)
	assert.Equal(t, "dogecoin", resp.Body.Get("coinGeckoIds.DOGE").String())

	resp = call(t, env, http.MethodPost, "/api/v1/watchlist", `{"symbol":"DOGE"}`)
	assert.Equal(t, http.StatusOK, resp.Status)

	resp = call(t, env, http.MethodPost, "/api/v1/watchlist", `{"symbol":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = call(t, env, http.MethodPut, "/api/v1/pinned", `{"symbol":"xrp"}`)
	assert.Equal(t, http.StatusNotFound, resp.Status)

	resp = call(t, env, http.MethodPut, "/api/v1/settings", `{"selectedCoins":["BTC"],"refreshInterval":-1}`)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	// settings survive in the store
	resp = call(t, env, http.MethodGet, "/api/v1/settings", "")
	assert.Equal(t, `["BTC","ETH","DOGE"]`, resp.Body.Get("selectedCoins").Raw)
}

// TestFeedbackNotConfigured tests that feedback is refused without a target
func TestFeedbackNotConfigured(t *testing.T) {
	env := SetupTest(t)
	defer env.TearDown()

	resp := call(t, env, http.MethodPost, "/api/v1/feedback", `{"content":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = call(t, env, http.MethodPost, "/api/v1/feedback", `{"content":"Great extension"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
	assert.Equal(t, "unavailable", resp.Body.Get("error").String())
}
