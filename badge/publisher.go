package badge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cryptoview/pricewatch/events"
	"github.com/cryptoview/pricewatch/storage"
)

//go:generate mockgen -destination=mocks/sink.go . Sink

// StateKey is the store key holding the last published badge
const StateKey = "badgeState"

// Sink displays the badge
type Sink interface {
	Set(ctx context.Context, b Badge) error
	Clear(ctx context.Context) error
}

// Publisher is the Sink used by the service. It persists the badge so
// other processes can read it and fans it out to live subscribers.
type Publisher struct {
	store  storage.KeyValueStore
	hub    *events.Hub[Badge]
	logger *zap.Logger
}

func NewPublisher(store storage.KeyValueStore, logger *zap.Logger) *Publisher {
	return &Publisher{
		store:  store,
		hub:    events.NewHub[Badge](),
		logger: logger.With(zap.String("component", "badge_publisher")),
	}
}

// Set stores and broadcasts b
func (p *Publisher) Set(ctx context.Context, b Badge) error {
	if err := p.store.Set(ctx, StateKey, b); err != nil {
		return fmt.Errorf("failed to store badge: %w", err)
	}
	p.hub.Emit(b)
	p.logger.Debug("badge updated", zap.String("text", b.Text), zap.String("color", b.Color))
	return nil
}

// Clear empties the badge text
func (p *Publisher) Clear(ctx context.Context) error {
	return p.Set(ctx, Badge{})
}

// Current returns the last published badge, cleared when none was stored
func (p *Publisher) Current(ctx context.Context) (Badge, error) {
	var b Badge
	if _, err := p.store.Get(ctx, StateKey, &b); err != nil {
		return Badge{}, err
	}
	return b, nil
}

// Subscribe returns a subscription receiving every badge published after it
func (p *Publisher) Subscribe() *events.Subscription[Badge] {
	return p.hub.Subscribe()
}
