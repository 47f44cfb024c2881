package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend keeps all values in a single JSON file
type FileBackend struct {
	mu     sync.RWMutex
	values map[string]string
	file   string
}

// OpenFile creates a file backend, loading existing values if the file exists
func OpenFile(filePath string) (*FileBackend, error) {
	b := &FileBackend{
		values: make(map[string]string),
		file:   filePath,
	}

	// Load existing data if file exists
	if _, err := os.Stat(filePath); err == nil {
		if err := b.Load(); err != nil {
			b.values = make(map[string]string)
			return b, err
		}
	}

	return b, nil
}

// Get returns the value stored under key
func (b *FileBackend) Get(key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, ok := b.values[key]
	return value, ok, nil
}

// Set stores value under key and writes the file
func (b *FileBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.values[key] = value
	return b.save()
}

// Delete removes key and writes the file
func (b *FileBackend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.values[key]; !ok {
		return nil
	}
	delete(b.values, key)
	return b.save()
}

// save writes the values to file; callers hold the lock
func (b *FileBackend) save() error {
	data, err := json.MarshalIndent(b.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(b.file)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return os.WriteFile(b.file, data, 0600)
}

// Load loads values from file
func (b *FileBackend) Load() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.file)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		b.values = make(map[string]string)
		return nil
	}

	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w: %v", ErrCorrupt, err)
	}
	b.values = values

	return nil
}
