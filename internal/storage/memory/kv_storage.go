// Package memory provides an in-memory KeyValueStorage used by tests.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// KVStorage is a map-backed implementation of interfaces.KeyValueStorage.
type KVStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewKVStorage creates an empty in-memory key-value storage.
func NewKVStorage() *KVStorage {
	return &KVStorage{items: make(map[string]string)}
}

// Get retrieves a value by key.
func (s *KVStorage) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.items[key]
	if !ok {
		return "", fmt.Errorf("key not found: %s", key)
	}
	return value, nil
}

// Set stores a key-value pair.
func (s *KVStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

// Delete removes a key-value pair. Deleting a missing key is not an error.
func (s *KVStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// GetAll retrieves all key-value pairs.
func (s *KVStorage) GetAll(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]string, len(s.items))
	for k, v := range s.items {
		result[k] = v
	}
	return result, nil
}
