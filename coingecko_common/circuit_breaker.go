package coingecko_common

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/cryptoview/pricewatch/metrics"
	"github.com/cryptoview/pricewatch/storage"
)

// LockStateKey is the store key of the circuit breaker record
const LockStateKey = "appStatus.coinGeckoApiLock"

// DefaultLockDuration is how long the circuit stays open after a 429
const DefaultLockDuration = 60 * time.Second

// LockState is the persisted breaker record. UnlockTime is epoch milliseconds.
type LockState struct {
	UnlockTime int64 `json:"unlockTime"`
}

// CircuitBreaker gates upstream calls after the API signals rate limiting.
// Its state lives in the shared store so every process context observes it.
// There is no explicit close; the circuit closes once the clock passes UnlockTime.
type CircuitBreaker struct {
	store  storage.KeyValueStore
	clock  clock.Clock
	logger *zap.Logger
}

func NewCircuitBreaker(store storage.KeyValueStore, clk clock.Clock, logger *zap.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		store:  store,
		clock:  clk,
		logger: logger.With(zap.String("component", "circuit_breaker")),
	}
}

// IsOpen reports whether calls must be refused now.
// A store failure counts as closed so a broken store never blocks the API.
func (cb *CircuitBreaker) IsOpen(ctx context.Context) bool {
	unlock, ok := cb.UnlockTime(ctx)
	if !ok {
		return false
	}
	return cb.clock.Now().Before(unlock)
}

// UnlockTime returns the stored unlock instant, if any
func (cb *CircuitBreaker) UnlockTime(ctx context.Context) (time.Time, bool) {
	var state LockState
	found, err := cb.store.Get(ctx, LockStateKey, &state)
	if err != nil {
		cb.logger.Warn("failed to read lock state, treating circuit as closed", zap.Error(err))
		return time.Time{}, false
	}
	if !found {
		return time.Time{}, false
	}
	return time.UnixMilli(state.UnlockTime), true
}

// Trip opens the circuit for d
func (cb *CircuitBreaker) Trip(ctx context.Context, d time.Duration) error {
	unlock := cb.clock.Now().Add(d)
	if err := cb.store.Set(ctx, LockStateKey, LockState{UnlockTime: unlock.UnixMilli()}); err != nil {
		cb.logger.Error("failed to persist lock state", zap.Error(err))
		return err
	}
	metrics.RecordCircuitBreakerTrip()
	cb.logger.Warn("rate limited by upstream, circuit opened",
		zap.Duration("duration", d),
		zap.Time("unlockTime", unlock))
	return nil
}
