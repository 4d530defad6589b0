package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reunion/pkg/platform/sentinel"
)

// InMemoryObjectStore keeps the initial implementation lightweight and
// testable. It intentionally favors clarity over performance.
type InMemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[Ref][]byte
	deletes map[Ref]int

	// FailPuts forces Put to fail so tests can exercise StorageFailure
	// paths without a real backend.
	FailPuts bool
}

func NewInMemoryObjectStore() *InMemoryObjectStore {
	return &InMemoryObjectStore{
		objects: make(map[Ref][]byte),
		deletes: make(map[Ref]int),
	}
}

func (s *InMemoryObjectStore) Put(_ context.Context, data []byte, path string, _ string, _ Metadata) (Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPuts {
		return "", fmt.Errorf("put %s: %w", path, sentinel.ErrUnavailable)
	}
	ref := Ref(path)
	s.objects[ref] = append([]byte(nil), data...)
	return ref, nil
}

func (s *InMemoryObjectStore) SignedURL(_ context.Context, ref Ref, ttl time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[ref]; !ok {
		return "", fmt.Errorf("sign %s: %w", ref, sentinel.ErrNotFound)
	}
	return fmt.Sprintf("memory://%s?ttl=%d", ref, int(ttl.Seconds())), nil
}

func (s *InMemoryObjectStore) Delete(_ context.Context, ref Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, ref)
	s.deletes[ref]++
	return nil
}

// Has reports whether the object is still stored.
func (s *InMemoryObjectStore) Has(ref Ref) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[ref]
	return ok
}

// DeleteCount reports how many times Delete was called for ref, letting
// tests assert an object is purged exactly once.
func (s *InMemoryObjectStore) DeleteCount(ref Ref) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deletes[ref]
}
