package badge

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/cryptoview/pricewatch/coingecko_client"
	"github.com/cryptoview/pricewatch/metrics"
	"github.com/cryptoview/pricewatch/settings"
)

// Outcome is what a refresh did to the badge
type Outcome string

const (
	OutcomeUpdated Outcome = "updated"
	OutcomeCleared Outcome = "cleared"
	OutcomeError   Outcome = "error"
	OutcomeSkipped Outcome = "skipped"
)

var (
	ErrSettingsMissing = errors.New("settings not found")
	ErrInvalidSymbol   = errors.New("pinned coin has no valid id")
)

// MarketsClient fetches listing rows for coin ids
type MarketsClient interface {
	GetMarkets(ctx context.Context, ids []string, currency string) ([]coingecko_client.MarketEntry, error)
}

// Result describes one refresh. Err is set when the badge was left
// untouched or the upstream fetch failed.
type Result struct {
	Outcome Outcome
	CoinID  string
	Badge   Badge
	Err     error
}

// Refresher updates the badge for the pinned coin
type Refresher struct {
	settings *settings.Manager
	client   MarketsClient
	sink     Sink
	group    singleflight.Group
	metrics  *metrics.MetricsWriter
	logger   *zap.Logger
}

func NewRefresher(settingsManager *settings.Manager, client MarketsClient, sink Sink, logger *zap.Logger) *Refresher {
	return &Refresher{
		settings: settingsManager,
		client:   client,
		sink:     sink,
		metrics:  metrics.NewMetricsWriter(metrics.ServiceBadge),
		logger:   logger.With(zap.String("component", "badge_refresher")),
	}
}

// Refresh reads the settings, fetches the pinned coin's price and updates
// the badge. Concurrent refreshes of the same coin share one fetch.
func (r *Refresher) Refresh(ctx context.Context) Result {
	defer r.metrics.TrackDataFetchCycle()()

	s, found, err := r.settings.Read(ctx)
	if err != nil {
		r.logger.Error("failed to read settings, badge untouched", zap.Error(err))
		return r.record(Result{Outcome: OutcomeSkipped, Err: err})
	}
	if !found {
		r.logger.Warn("no settings stored, badge untouched")
		return r.record(Result{Outcome: OutcomeSkipped, Err: ErrSettingsMissing})
	}

	if s.PinnedCoin == "" {
		r.logger.Debug("no pinned coin, clearing badge")
		return r.record(r.clear(ctx, ""))
	}

	coinID := r.settings.ResolveCoinID(s, s.PinnedCoin)
	if coinID == "" {
		r.logger.Error("pinned coin does not resolve to an id", zap.String("symbol", s.PinnedCoin))
		return r.record(Result{Outcome: OutcomeSkipped, Err: ErrInvalidSymbol})
	}
	currency := strings.ToLower(s.CurrencyOrDefault())

	// the shared fetch outlives a caller that goes away; the client's
	// request timeout still bounds it
	shared := context.WithoutCancel(ctx)
	v, _, _ := r.group.Do(coinID+"|"+currency, func() (interface{}, error) {
		return r.update(shared, coinID, currency), nil
	})
	return r.record(v.(Result))
}

func (r *Refresher) update(ctx context.Context, coinID, currency string) Result {
	entries, err := r.client.GetMarkets(ctx, []string{coinID}, currency)
	if err != nil {
		r.logger.Error("failed to fetch price for badge", zap.String("coin", coinID), zap.Error(err))
		b := Error()
		if sinkErr := r.sink.Set(ctx, b); sinkErr != nil {
			r.logger.Error("failed to show error badge", zap.Error(sinkErr))
		}
		return Result{Outcome: OutcomeError, CoinID: coinID, Badge: b, Err: err}
	}

	var entry *coingecko_client.MarketEntry
	for i := range entries {
		if entries[i].ID == coinID {
			entry = &entries[i]
			break
		}
	}
	if entry == nil || entry.CurrentPrice == nil {
		r.logger.Warn("no price returned for pinned coin, clearing badge", zap.String("coin", coinID))
		return r.clear(ctx, coinID)
	}

	change := 0.0
	if entry.PriceChangePercentage24h != nil {
		change = *entry.PriceChangePercentage24h
	}
	b := Format(*entry.CurrentPrice, change)
	if err := r.sink.Set(ctx, b); err != nil {
		r.logger.Error("failed to update badge", zap.Error(err))
		return Result{Outcome: OutcomeError, CoinID: coinID, Badge: b, Err: err}
	}
	r.logger.Info("badge updated",
		zap.String("coin", coinID),
		zap.Float64("price", *entry.CurrentPrice),
		zap.String("text", b.Text))
	return Result{Outcome: OutcomeUpdated, CoinID: coinID, Badge: b}
}

func (r *Refresher) clear(ctx context.Context, coinID string) Result {
	if err := r.sink.Clear(ctx); err != nil {
		r.logger.Error("failed to clear badge", zap.Error(err))
		return Result{Outcome: OutcomeError, CoinID: coinID, Err: err}
	}
	return Result{Outcome: OutcomeCleared, CoinID: coinID}
}

func (r *Refresher) record(res Result) Result {
	metrics.RecordBadgeUpdate(string(res.Outcome))
	return res
}
