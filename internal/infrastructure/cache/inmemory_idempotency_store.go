package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dronehub/backend/internal/domain/shared"
)

const sweepEvery = 5 * time.Minute

// InMemoryIdempotencyStore keeps marks in a process-local map. A second
// instance would not see them, so it serves single-node shops and tests.
type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time

	quit chan struct{}
	done chan struct{}
	once sync.Once
}

// NewInMemoryIdempotencyStore starts a sweeper that drops expired marks
// until Close.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		expires: make(map[string]time.Time),
		now:     time.Now,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.sweeper()
	return s
}

func (s *InMemoryIdempotencyStore) live(key string, now time.Time) bool {
	exp, ok := s.expires[key]
	return ok && now.Before(exp)
}

func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if s.live(key, now) {
		return false, nil
	}
	s.expires[key] = now.Add(ttl)
	return true, nil
}

func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live(key, s.now()), nil
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.expires, key)
	s.mu.Unlock()
	return nil
}

// Close stops the sweeper; later calls are no-ops
func (s *InMemoryIdempotencyStore) Close() error {
	s.once.Do(func() {
		close(s.quit)
		<-s.done
	})
	return nil
}

func (s *InMemoryIdempotencyStore) sweeper() {
	defer close(s.done)
	t := time.NewTicker(sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-s.quit:
			return
		case <-t.C:
			s.sweep()
		}
	}
}

// sweep drops expired marks and reports how many remain
func (s *InMemoryIdempotencyStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key := range s.expires {
		if !s.live(key, now) {
			delete(s.expires, key)
		}
	}
	return len(s.expires)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
