package storage

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// MemoryBackend keeps values in process memory. Used when no persistent
// store is available and in tests.
type MemoryBackend struct {
	cache *cache.Cache
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{cache: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	value, found := m.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	data := value.([]byte)
	return append([]byte(nil), data...), true, nil
}

func (m *MemoryBackend) Save(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.cache.Set(key, append([]byte(nil), value...), cache.NoExpiration)
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.cache.Delete(key)
	return nil
}

func (m *MemoryBackend) Close() error {
	m.cache.Flush()
	return nil
}
