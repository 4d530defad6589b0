package audit

import (
	"context"
	"time"

	id "reunion/pkg/domain"
)

// ApprovalUpdate carries the fields an approval resolution stamps onto an
// entry.
type ApprovalUpdate struct {
	Status     ApprovalStatus
	ApproverID id.MemberID
	Reason     string
	ApprovedAt time.Time
}

// Filters narrows searches and exports. Nil fields match everything.
type Filters struct {
	ActorID        *id.MemberID
	Action         *ActionKind
	ResourceType   *ResourceType
	ApprovalStatus *ApprovalStatus
	From           *time.Time
	To             *time.Time
}

// Store persists audit entries. Append-only except for the one approval
// transition, which is conditional like every other state flip in this
// module: Pending only, sentinel.ErrInvalidState otherwise.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	FindByID(ctx context.Context, entryID id.EntryID) (*Entry, error)
	// ResolveIfPendingApproval applies the secondary sign-off while the
	// entry still awaits it.
	ResolveIfPendingApproval(ctx context.Context, entryID id.EntryID, update ApprovalUpdate) (*Entry, error)
	// ListPendingApprovals returns entries awaiting sign-off, oldest
	// first.
	ListPendingApprovals(ctx context.Context) ([]*Entry, error)
	// Search returns one page of matching entries, newest first, plus the
	// total match count.
	Search(ctx context.Context, filters Filters, offset, limit int) ([]*Entry, int, error)
	// ListRecentByActor returns the actor's latest entries, newest first.
	ListRecentByActor(ctx context.Context, actorID id.MemberID, limit int) ([]*Entry, error)
	// Stats aggregates entries created within [from, to] inclusive: total,
	// counts grouped by action and by resource type, and how many still
	// await approval.
	Stats(ctx context.Context, from, to time.Time) (*Stats, error)
}
