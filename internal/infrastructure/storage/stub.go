package storage

import (
	"context"
	"errors"
	"sync"

	integrationapp "github.com/erp/ordersync/internal/application/integration"
)

// Ensure StubImageStore implements ImageStore
var _ integrationapp.ImageStore = (*StubImageStore)(nil)

// StubImageStore keeps images in memory. Used in development and tests.
type StubImageStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewStubImageStore creates an empty StubImageStore
func NewStubImageStore() *StubImageStore {
	return &StubImageStore{objects: make(map[string][]byte)}
}

// Key returns the object key of the n-th image of a product
func (s *StubImageStore) Key(productID string, index int, sourceURL string) string {
	return ImageKey("", productID, index, sourceURL)
}

// Exists reports whether key was stored
func (s *StubImageStore) Exists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("storage key is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

// Put stores a copy of data
func (s *StubImageStore) Put(_ context.Context, key string, data []byte, _ string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

// Len returns the number of stored objects
func (s *StubImageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
