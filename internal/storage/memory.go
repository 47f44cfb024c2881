package storage

import "sync"

// MemoryBackend is a non-durable backend for tests and for running without a
// data directory
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *MemoryBackend {
	return &MemoryBackend{values: map[string]string{}}
}

func (b *MemoryBackend) Get(key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	value, ok := b.values[key]
	return value, ok, nil
}

func (b *MemoryBackend) Set(key, value string) error {
	b.mu.Lock()
	b.values[key] = value
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Delete(key string) error {
	b.mu.Lock()
	delete(b.values, key)
	b.mu.Unlock()
	return nil
}
