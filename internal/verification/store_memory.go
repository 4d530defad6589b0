package verification

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	id "reunion/pkg/domain"
	"reunion/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[id.DocumentID]*Document
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[id.DocumentID]*Document)}
}

func (s *InMemoryStore) CreateIfNoneLive(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.docs {
		if existing.OwnerID == doc.OwnerID && existing.Live() {
			return fmt.Errorf("owner %s has a live document: %w", doc.OwnerID, sentinel.ErrConflict)
		}
	}

	copied := *doc
	s.docs[doc.ID] = &copied
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, docID id.DocumentID) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[docID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", docID, sentinel.ErrNotFound)
	}
	copied := *doc
	return &copied, nil
}

func (s *InMemoryStore) ResolveIfPending(_ context.Context, docID id.DocumentID, update ReviewUpdate) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[docID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", docID, sentinel.ErrNotFound)
	}
	if doc.Status != StatusPendingReview {
		return nil, fmt.Errorf("document %s is %s: %w", docID, doc.Status, sentinel.ErrInvalidState)
	}

	doc.Status = update.Status
	reviewedAt := update.ReviewedAt
	doc.ReviewedAt = &reviewedAt
	reviewedBy := update.ReviewedBy
	doc.ReviewedBy = &reviewedBy
	doc.ReviewerNotes = update.Notes
	doc.ExpiresAt = update.ExpiresAt

	copied := *doc
	return &copied, nil
}

func (s *InMemoryStore) MarkDeletedIfApproved(_ context.Context, docID id.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[docID]
	if !ok {
		return fmt.Errorf("document %s: %w", docID, sentinel.ErrNotFound)
	}
	if doc.Status != StatusApproved {
		return fmt.Errorf("document %s is %s: %w", docID, doc.Status, sentinel.ErrInvalidState)
	}
	doc.Status = StatusDeleted
	return nil
}

func (s *InMemoryStore) ListExpiredApproved(_ context.Context, now time.Time, limit int) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Document
	for _, doc := range s.docs {
		if doc.Status != StatusApproved || doc.ExpiresAt == nil || !doc.ExpiresAt.Before(now) {
			continue
		}
		copied := *doc
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) ListPending(_ context.Context) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Document
	for _, doc := range s.docs {
		if doc.Status != StatusPendingReview {
			continue
		}
		copied := *doc
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

func (s *InMemoryStore) ListByOwner(_ context.Context, ownerID id.MemberID) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Document
	for _, doc := range s.docs {
		if doc.OwnerID != ownerID {
			continue
		}
		copied := *doc
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}
