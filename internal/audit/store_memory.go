package audit

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
	mu      sync.RWMutex
	entries map[id.EntryID]*Entry
	// order preserves append sequence so ties on CreatedAt stay stable.
	order []id.EntryID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.EntryID]*Entry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *entry
	s.entries[entry.ID] = &copied
	s.order = append(s.order, entry.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, entryID id.EntryID) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[entryID]
	if !ok {
		return nil, fmt.Errorf("audit entry %s: %w", entryID, sentinel.ErrNotFound)
	}
	copied := *entry
	return &copied, nil
}

func (s *InMemoryStore) ResolveIfPendingApproval(_ context.Context, entryID id.EntryID, update ApprovalUpdate) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[entryID]
	if !ok {
		return nil, fmt.Errorf("audit entry %s: %w", entryID, sentinel.ErrNotFound)
	}
	if entry.ApprovalStatus != ApprovalPending {
		return nil, fmt.Errorf("audit entry %s approval is %s: %w",
			entryID, entry.ApprovalStatus, sentinel.ErrInvalidState)
	}

	entry.ApprovalStatus = update.Status
	approver := update.ApproverID
	entry.ApproverID = &approver
	entry.ApprovalReason = update.Reason
	approvedAt := update.ApprovedAt
	entry.ApprovedAt = &approvedAt

	copied := *entry
	return &copied, nil
}

func (s *InMemoryStore) ListPendingApprovals(_ context.Context) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Entry
	for _, entryID := range s.order {
		if entry := s.entries[entryID]; entry.AwaitingApproval() {
			copied := *entry
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Search(_ context.Context, filters Filters, offset, limit int) ([]*Entry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Entry
	for _, entryID := range s.order {
		entry := s.entries[entryID]
		if !matches(entry, filters) {
			continue
		}
		copied := *entry
		matched = append(matched, &copied)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *InMemoryStore) ListRecentByActor(ctx context.Context, actorID id.MemberID, limit int) ([]*Entry, error) {
	entries, _, err := s.Search(ctx, Filters{ActorID: &actorID}, 0, limit)
	return entries, err
}

func (s *InMemoryStore) Stats(_ context.Context, from, to time.Time) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		ByAction:   make(map[ActionKind]int),
		ByResource: make(map[ResourceType]int),
	}
	for _, entryID := range s.order {
		entry := s.entries[entryID]
		if entry.CreatedAt.Before(from) || entry.CreatedAt.After(to) {
			continue
		}
		stats.Total++
		stats.ByAction[entry.Action]++
		stats.ByResource[entry.ResourceType]++
		if entry.AwaitingApproval() {
			stats.PendingApprovals++
		}
	}
	return stats, nil
}

func matches(entry *Entry, filters Filters) bool {
	if filters.ActorID != nil && (entry.ActorID == nil || *entry.ActorID != *filters.ActorID) {
		return false
	}
	if filters.Action != nil && entry.Action != *filters.Action {
		return false
	}
	if filters.ResourceType != nil && entry.ResourceType != *filters.ResourceType {
		return false
	}
	if filters.ApprovalStatus != nil && entry.ApprovalStatus != *filters.ApprovalStatus {
		return false
	}
	if filters.From != nil && entry.CreatedAt.Before(*filters.From) {
		return false
	}
	if filters.To != nil && entry.CreatedAt.After(*filters.To) {
		return false
	}
	return true
}
