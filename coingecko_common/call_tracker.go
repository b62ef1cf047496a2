package coingecko_common

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/cryptoview/pricewatch/metrics"
	"github.com/cryptoview/pricewatch/storage"
)

// CallStatsKey is the store key of the call counter
const CallStatsKey = "appStatus.apiCallStats"

// DefaultCallWindow is the length of one counting window
const DefaultCallWindow = 60 * time.Second

// CallStats counts upstream calls in the current window. StartTime is epoch milliseconds.
type CallStats struct {
	Count     int   `json:"count"`
	StartTime int64 `json:"startTime"`
}

// CallTracker keeps a rolling per-window call count for diagnostics.
// It never blocks or rejects a call.
type CallTracker struct {
	store  storage.KeyValueStore
	clock  clock.Clock
	window time.Duration
	logger *zap.Logger
}

func NewCallTracker(store storage.KeyValueStore, clk clock.Clock, window time.Duration, logger *zap.Logger) *CallTracker {
	if window <= 0 {
		window = DefaultCallWindow
	}
	return &CallTracker{
		store:  store,
		clock:  clk,
		window: window,
		logger: logger.With(zap.String("component", "call_tracker")),
	}
}

// RecordCall counts one call. A window older than the configured length restarts at 1.
func (t *CallTracker) RecordCall(ctx context.Context) CallStats {
	now := t.clock.Now().UnixMilli()

	var stats CallStats
	found, err := t.store.Get(ctx, CallStatsKey, &stats)
	if err != nil {
		t.logger.Warn("failed to read call stats", zap.Error(err))
		found = false
	}

	if !found || now-stats.StartTime > t.window.Milliseconds() {
		stats = CallStats{Count: 1, StartTime: now}
	} else {
		stats.Count++
	}

	if err := t.store.Set(ctx, CallStatsKey, stats); err != nil {
		t.logger.Warn("failed to persist call stats", zap.Error(err))
	}

	metrics.RecordCallWindow(stats.Count)
	t.logger.Debug("upstream call recorded", zap.Int("callsInWindow", stats.Count))
	return stats
}

// Stats returns the stored counter without modifying it
func (t *CallTracker) Stats(ctx context.Context) (CallStats, bool, error) {
	var stats CallStats
	found, err := t.store.Get(ctx, CallStatsKey, &stats)
	return stats, found, err
}
