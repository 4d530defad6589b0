package handle

import (
	"context"
	"fmt"
	"sync"
	"time"

	id "reunion/pkg/domain"
	"reunion/pkg/platform/sentinel"
)

type memoryEntry struct {
	handle    ReviewHandle
	expiresAt time.Time
}

// InMemoryStore backs tests and single-process runs. Expiry is evaluated
// lazily against the injected clock.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[id.DocumentID]memoryEntry
	clock   func() time.Time
}

type InMemoryOption func(*InMemoryStore)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) InMemoryOption {
	return func(s *InMemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewInMemory(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		entries: make(map[id.DocumentID]memoryEntry),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Save(_ context.Context, h ReviewHandle, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[h.DocumentID] = memoryEntry{handle: h, expiresAt: s.clock().Add(ttl)}
	return nil
}

func (s *InMemoryStore) Active(_ context.Context, docID id.DocumentID) (*ReviewHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[docID]
	if !ok || s.clock().After(entry.expiresAt) {
		delete(s.entries, docID)
		return nil, fmt.Errorf("handle for %s: %w", docID, sentinel.ErrNotFound)
	}
	copied := entry.handle
	return &copied, nil
}

func (s *InMemoryStore) Invalidate(_ context.Context, docID id.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, docID)
	return nil
}
