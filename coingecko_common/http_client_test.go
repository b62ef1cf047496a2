package coingecko_common

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cryptoview/pricewatch/metrics"
	"github.com/cryptoview/pricewatch/storage"
)

type recordingHandler struct {
	mu       sync.Mutex
	statuses []string
}

func (h *recordingHandler) OnRequest(status string, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, status)
}

type testClient struct {
	client  *HTTPClient
	store   *storage.Store
	breaker *CircuitBreaker
	tracker *CallTracker
}

func newTestClient(opts Options) *testClient {
	store := newTestStore()
	clk := newMockClock()
	breaker := NewCircuitBreaker(store, clk, zap.NewNop())
	tracker := NewCallTracker(store, clk, DefaultCallWindow, zap.NewNop())
	return &testClient{
		client:  NewHTTPClient(opts, breaker, tracker, zap.NewNop()),
		store:   store,
		breaker: breaker,
		tracker: tracker,
	}
}

func TestHTTPClient_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ping", r.URL.Path)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"gecko_says":"(V3) To the Moon!"}`))
	}))
	defer server.Close()

	tc := newTestClient(DefaultOptions())
	handler := &recordingHandler{}

	payload, err := tc.client.Execute(context.Background(), NewCoingeckoRequestBuilder(server.URL, "ping"), handler)
	require.NoError(t, err)
	assert.True(t, payload.IsJSON())

	var out map[string]string
	require.NoError(t, payload.Decode(&out))
	assert.Equal(t, "(V3) To the Moon!", out["gecko_says"])
	assert.Equal(t, []string{metrics.StatusSuccess}, handler.statuses)

	stats, _, err := tc.tracker.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Count)
}

func TestHTTPClient_TextPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("pong"))
	}))
	defer server.Close()

	tc := newTestClient(DefaultOptions())
	payload, err := tc.client.Execute(context.Background(), NewCoingeckoRequestBuilder(server.URL, "ping"), nil)
	require.NoError(t, err)
	assert.False(t, payload.IsJSON())
	assert.Equal(t, "pong", payload.Text())

	var out map[string]any
	err = payload.Decode(&out)
	assert.ErrorIs(t, err, ErrParse)
}

func TestHTTPClient_MalformedJSON(t *testing.T) {
	payload := Payload{ContentType: "application/json", Body: []byte(`{"prices": [`)}
	var out map[string]any
	err := payload.Decode(&out)
	assert.ErrorIs(t, err, ErrParse)
	assert.Equal(t, KindParse, KindOf(err))
}

func TestHTTPClient_RateLimitTripsBreaker(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"status":{"error_code":429}}`))
	}))
	defer server.Close()

	tc := newTestClient(DefaultOptions())
	ctx := context.Background()

	_, err := tc.client.Execute(ctx, NewCoingeckoRequestBuilder(server.URL, "coins/markets"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimit)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Contains(t, apiErr.Body, "429")
	assert.True(t, tc.breaker.IsOpen(ctx))

	// every call while open is refused locally without touching the tracker
	statsBefore, _, _ := tc.tracker.Stats(ctx)
	handler := &recordingHandler{}
	for i := 0; i < 3; i++ {
		_, err = tc.client.Execute(ctx, NewCoingeckoRequestBuilder(server.URL, "coins/markets"), handler)
		assert.ErrorIs(t, err, ErrAPILocked)
	}
	statsAfter, _, _ := tc.tracker.Stats(ctx)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, statsBefore, statsAfter)
	assert.Equal(t, []string{metrics.StatusLocked, metrics.StatusLocked, metrics.StatusLocked}, handler.statuses)
}

func TestHTTPClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"coin not found"}`))
	}))
	defer server.Close()

	tc := newTestClient(DefaultOptions())
	ctx := context.Background()

	_, err := tc.client.Execute(ctx, NewCoingeckoRequestBuilder(server.URL, "coins/nope"), nil)
	assert.ErrorIs(t, err, ErrHTTP)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, `{"error":"coin not found"}`, apiErr.Body)
	assert.False(t, Retryable(err))

	// non-429 errors never open the circuit
	assert.False(t, tc.breaker.IsOpen(ctx))
}

func TestHTTPClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.RequestTimeout = 50 * time.Millisecond
	tc := newTestClient(opts)
	handler := &recordingHandler{}

	_, err := tc.client.Execute(context.Background(), NewCoingeckoRequestBuilder(server.URL, "slow"), handler)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, Retryable(err))
	assert.Equal(t, []string{metrics.StatusTimeout}, handler.statuses)
	assert.False(t, tc.breaker.IsOpen(context.Background()))
}

func TestHTTPClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	tc := newTestClient(DefaultOptions())
	_, err := tc.client.Execute(context.Background(), NewCoingeckoRequestBuilder(url, "ping"), nil)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestHTTPClient_CancelledCallerIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	tc := newTestClient(DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := tc.client.Execute(ctx, NewCoingeckoRequestBuilder(server.URL, "ping"), nil)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestAPIError_Is(t *testing.T) {
	err := &APIError{Kind: KindHTTP, Status: 503, Message: "API request failed"}
	wrapped := errors.Join(errors.New("context"), err)

	assert.ErrorIs(t, wrapped, ErrHTTP)
	assert.NotErrorIs(t, wrapped, ErrParse)
	assert.Equal(t, KindHTTP, KindOf(wrapped))
	assert.True(t, Retryable(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Contains(t, err.Error(), "status 503")
}
