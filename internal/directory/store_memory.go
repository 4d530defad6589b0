package directory

import (
	"context"
	"fmt"
	"sync"

	id "reunion/pkg/domain"
	"reunion/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[id.MemberID]Profile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[id.MemberID]Profile)}
}

// Seed inserts or replaces a profile. Test helper; the directory is
// read-only in production wiring.
func (s *InMemoryStore) Seed(profile Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.MemberID] = profile
}

func (s *InMemoryStore) FindProfile(_ context.Context, memberID id.MemberID) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[memberID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", memberID, sentinel.ErrNotFound)
	}
	return &profile, nil
}
