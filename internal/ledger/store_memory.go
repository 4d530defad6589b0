package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	id "reunion/pkg/domain"
)

type pairKey struct {
	viewer  id.MemberID
	subject id.MemberID
}

type dedupeKey struct {
	viewer  id.MemberID
	subject id.MemberID
	field   id.ContactField
	request id.RequestID
}

type InMemoryStore struct {
	mu     sync.RWMutex
	grants map[pairKey][]*Grant
	seen   map[dedupeKey]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		grants: make(map[pairKey][]*Grant),
		seen:   make(map[dedupeKey]bool),
	}
}

func (s *InMemoryStore) Append(_ context.Context, grant *Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if grant.RequestID != nil {
		key := dedupeKey{
			viewer:  grant.ViewerID,
			subject: grant.SubjectID,
			field:   grant.Field,
			request: *grant.RequestID,
		}
		if s.seen[key] {
			return nil
		}
		s.seen[key] = true
	}

	copied := *grant
	pair := pairKey{viewer: grant.ViewerID, subject: grant.SubjectID}
	s.grants[pair] = append(s.grants[pair], &copied)
	return nil
}

func (s *InMemoryStore) ListByViewerSubject(_ context.Context, viewerID, subjectID id.MemberID, since time.Time) ([]*Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Grant
	for _, grant := range s.grants[pairKey{viewer: viewerID, subject: subjectID}] {
		if grant.CreatedAt.Before(since) {
			continue
		}
		copied := *grant
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) CountByViewerSubject(_ context.Context, viewerID, subjectID id.MemberID, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, grant := range s.grants[pairKey{viewer: viewerID, subject: subjectID}] {
		if grant.CreatedAt.Before(since) {
			continue
		}
		count++
	}
	return count, nil
}

// All returns every grant in the ledger, for test assertions on exact row
// counts.
func (s *InMemoryStore) All() []*Grant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Grant
	for _, grants := range s.grants {
		for _, grant := range grants {
			copied := *grant
			out = append(out, &copied)
		}
	}
	return out
}
