package consent

import (
	"context"
	"time"

	id "reunion/pkg/domain"
)

// ResponseUpdate carries the fields a target's response stamps onto a
// request.
type ResponseUpdate struct {
	Status      RequestStatus
	RespondedAt time.Time
	BlockFuture bool
}

// Store persists contact-access requests.
//
// The conditional methods mirror the per-row optimistic updates used for
// verification documents: mutate only while the row is still Pending,
// sentinel.ErrInvalidState otherwise, sentinel.ErrNotFound when absent.
type Store interface {
	// CreateIfNonePending inserts the request unless the requester already
	// has a Pending one toward the same target; then it returns
	// sentinel.ErrConflict.
	CreateIfNonePending(ctx context.Context, req *Request) error
	FindByID(ctx context.Context, reqID id.RequestID) (*Request, error)
	// ResolveIfPending applies a response while the request is still
	// Pending.
	ResolveIfPending(ctx context.Context, reqID id.RequestID, update ResponseUpdate) (*Request, error)
	// HasBlock reports whether any prior request requester→target carries
	// the block-future flag. Blocks never age out.
	HasBlock(ctx context.Context, requesterID, targetID id.MemberID) (bool, error)
	// ListReceived returns Pending, unexpired requests targeting the
	// member, newest first.
	ListReceived(ctx context.Context, targetID id.MemberID, now time.Time) ([]*Request, error)
	// ListSent returns every request the member has made, newest first.
	ListSent(ctx context.Context, requesterID id.MemberID) ([]*Request, error)
	// ListExpiredPending returns Pending requests whose expires_at has
	// passed, oldest deadline first, at most limit rows.
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*Request, error)
	// MarkExpiredIfPending flips Pending to Expired.
	MarkExpiredIfPending(ctx context.Context, reqID id.RequestID) error
}
