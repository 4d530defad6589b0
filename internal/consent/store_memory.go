package consent

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
	mu       sync.RWMutex
	requests map[id.RequestID]*Request
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.RequestID]*Request)}
}

func cloneRequest(r *Request) *Request {
	copied := *r
	copied.Fields = append([]id.ContactField(nil), r.Fields...)
	return &copied
}

func (s *InMemoryStore) CreateIfNonePending(_ context.Context, req *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.requests {
		if existing.RequesterID == req.RequesterID &&
			existing.TargetID == req.TargetID &&
			existing.Status == StatusPending {
			return fmt.Errorf("pending request %s→%s exists: %w",
				req.RequesterID, req.TargetID, sentinel.ErrConflict)
		}
	}

	s.requests[req.ID] = cloneRequest(req)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, reqID id.RequestID) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[reqID]
	if !ok {
		return nil, fmt.Errorf("request %s: %w", reqID, sentinel.ErrNotFound)
	}
	return cloneRequest(req), nil
}

func (s *InMemoryStore) ResolveIfPending(_ context.Context, reqID id.RequestID, update ResponseUpdate) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[reqID]
	if !ok {
		return nil, fmt.Errorf("request %s: %w", reqID, sentinel.ErrNotFound)
	}
	if req.Status != StatusPending {
		return nil, fmt.Errorf("request %s is %s: %w", reqID, req.Status, sentinel.ErrInvalidState)
	}

	req.Status = update.Status
	respondedAt := update.RespondedAt
	req.RespondedAt = &respondedAt
	req.BlockFuture = update.BlockFuture

	return cloneRequest(req), nil
}

func (s *InMemoryStore) HasBlock(_ context.Context, requesterID, targetID id.MemberID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, req := range s.requests {
		if req.RequesterID == requesterID && req.TargetID == targetID && req.BlockFuture {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) ListReceived(_ context.Context, targetID id.MemberID, now time.Time) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Request
	for _, req := range s.requests {
		if req.TargetID == targetID && req.Open(now) {
			out = append(out, cloneRequest(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) ListSent(_ context.Context, requesterID id.MemberID) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Request
	for _, req := range s.requests {
		if req.RequesterID == requesterID {
			out = append(out, cloneRequest(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) ListExpiredPending(_ context.Context, now time.Time, limit int) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Request
	for _, req := range s.requests {
		if req.Status == StatusPending && req.ExpiresAt.Before(now) {
			out = append(out, cloneRequest(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) MarkExpiredIfPending(_ context.Context, reqID id.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[reqID]
	if !ok {
		return fmt.Errorf("request %s: %w", reqID, sentinel.ErrNotFound)
	}
	if req.Status != StatusPending {
		return fmt.Errorf("request %s is %s: %w", reqID, req.Status, sentinel.ErrInvalidState)
	}
	req.Status = StatusExpired
	return nil
}
