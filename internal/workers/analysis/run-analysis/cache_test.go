package runanalysis

import (
	"context"
	"sync"
	"sync/atomic"

	"menu-advisor/internal/common/cache"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	puts atomic.Int32
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memoryCache) Put(_ context.Context, key string, value []byte) error {
	m.puts.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryCache) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	return nil
}

// cacheOrNil avoids handing Build a typed nil.
func cacheOrNil(m *memoryCache) cache.Cache {
	if m == nil {
		return nil
	}
	return m
}
