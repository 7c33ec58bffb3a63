package badger

import (
	"context"
	"fmt"

	common "github.com/bobmcallan/copilot-portal/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// kvRecord is the stored row shape for one key. The application state
// store keeps its durable subset here as a single JSON value.
type kvRecord struct {
	Key   string `badgerhold:"key"`
	Value string
}

// KVStorage implements interfaces.KeyValueStorage over BadgerDB.
type KVStorage struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewKVStorage creates a new key-value storage backed by BadgerDB.
func NewKVStorage(db *BadgerDB, logger *common.Logger) *KVStorage {
	return &KVStorage{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a value by key. A missing key is an error; callers that
// treat absence as "use defaults" check the error and move on.
func (s *KVStorage) Get(_ context.Context, key string) (string, error) {
	var record kvRecord
	err := s.db.Store().Get(key, &record)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return "", fmt.Errorf("key not found: %s", key)
		}
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return record.Value, nil
}

// Set stores a key-value pair, overwriting any existing value.
func (s *KVStorage) Set(_ context.Context, key, value string) error {
	record := kvRecord{
		Key:   key,
		Value: value,
	}
	if err := s.db.Store().Upsert(key, &record); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key-value pair. Deleting an absent key succeeds.
func (s *KVStorage) Delete(_ context.Context, key string) error {
	err := s.db.Store().Delete(key, kvRecord{})
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// GetAll retrieves all key-value pairs.
func (s *KVStorage) GetAll(_ context.Context) (map[string]string, error) {
	var records []kvRecord
	if err := s.db.Store().Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to get all keys: %w", err)
	}

	result := make(map[string]string, len(records))
	for _, record := range records {
		result[record.Key] = record.Value
	}
	return result, nil
}
