package store

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// MemoryBackend is a process-local key/value store, the counterpart of the
// browser-scoped storage the web client used when no server was running.
type MemoryBackend struct {
	cache *cache.Cache
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{cache: cache.New(cache.NoExpiration, 0)}
}

func (b *MemoryBackend) Read(_ context.Context, c Collection) ([]byte, error) {
	v, ok := b.cache.Get(string(c))
	if !ok {
		return nil, ErrNotExist
	}
	data := v.([]byte)
	return append([]byte(nil), data...), nil
}

func (b *MemoryBackend) Write(_ context.Context, c Collection, data []byte) error {
	b.cache.Set(string(c), append([]byte(nil), data...), cache.NoExpiration)
	return nil
}
