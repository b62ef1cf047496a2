package storage

//go:generate mockgen -destination=mocks/storage.go . KeyValueStore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cryptoview/pricewatch/events"
)

// KeyValueStore reads and writes JSON-encoded values by key
type KeyValueStore interface {
	// Get decodes the value stored under key into out.
	// It reports false with a nil error when the key does not exist.
	Get(ctx context.Context, key string, out any) (bool, error)
	// Set replaces the value stored under key
	Set(ctx context.Context, key string, value any) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// Backend persists raw values
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Change describes a completed write. Old is nil when the key did not exist,
// New is nil when the key was removed.
type Change struct {
	Key string
	Old json.RawMessage
	New json.RawMessage
}

// Store is the KeyValueStore used by every component. Writes are whole-value
// replacements and every successful write is published as a Change.
type Store struct {
	backend Backend
	changes *events.Hub[Change]
	logger  *zap.Logger
	// serializes read-modify-notify so Change.Old is accurate
	mu sync.Mutex
}

func New(backend Backend, logger *zap.Logger) *Store {
	return &Store{
		backend: backend,
		changes: events.NewHub[Change](),
		logger:  logger.With(zap.String("component", "storage")),
	}
}

// Subscribe returns a subscription receiving every Change
func (s *Store) Subscribe() *events.Subscription[Change] {
	return s.changes.Subscribe()
}

func (s *Store) Get(ctx context.Context, key string, out any) (bool, error) {
	data, found, err := s.backend.Load(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	s.mu.Lock()
	old, _, err := s.backend.Load(ctx, key)
	if err != nil {
		s.logger.Warn("failed to read previous value", zap.String("key", key), zap.Error(err))
		old = nil
	}
	if err := s.backend.Save(ctx, key, data); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	s.mu.Unlock()

	s.notify(ctx, Change{Key: key, Old: old, New: data})
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	old, found, err := s.backend.Load(ctx, key)
	if err != nil {
		s.logger.Warn("failed to read previous value", zap.String("key", key), zap.Error(err))
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	s.mu.Unlock()

	if found {
		s.notify(ctx, Change{Key: key, Old: old})
	}
	return nil
}

// Close releases the backend
func (s *Store) Close() error {
	return s.backend.Close()
}

// notifyTimeout bounds how long a write waits for a slow subscriber
const notifyTimeout = 5 * time.Second

func (s *Store) notify(ctx context.Context, change Change) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.changes.Publish(ctx, change); err != nil {
		s.logger.Warn("change notification dropped", zap.String("key", change.Key), zap.Error(err))
	}
}
