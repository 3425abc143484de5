package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/ordersync/internal/domain/shared"
)

// InMemoryIdempotencyStore keeps processed event ids in a process-local map.
// Suitable for a single instance and for tests.
type InMemoryIdempotencyStore struct {
	mu        sync.Mutex
	expiresAt map[string]time.Time
	now       func() time.Time
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates the store and starts its sweeper
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return newInMemoryIdempotencyStore(time.Now, 5*time.Minute)
}

func newInMemoryIdempotencyStore(now func() time.Time, sweepEvery time.Duration) *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		expiresAt: make(map[string]time.Time),
		now:       now,
		stop:      make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweepLoop(sweepEvery)
	return s
}

// MarkProcessed records the event. Returns false if it was already recorded and not expired.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.expiresAt[eventID]; ok && now.Before(exp) {
		return false, nil
	}
	s.expiresAt[eventID] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether the event is recorded and not expired
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.expiresAt[eventID]
	return ok && s.now().Before(exp), nil
}

// Forget drops the event so a redelivery is processed again
func (s *InMemoryIdempotencyStore) Forget(_ context.Context, eventID string) error {
	s.mu.Lock()
	delete(s.expiresAt, eventID)
	s.mu.Unlock()
	return nil
}

// Close stops the sweeper. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of recorded events, expired ones included until swept
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expiresAt)
}

func (s *InMemoryIdempotencyStore) sweepLoop(every time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *InMemoryIdempotencyStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.expiresAt {
		if !now.Before(exp) {
			delete(s.expiresAt, id)
		}
	}
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
