package verification

import (
	"context"
	"time"

	id "reunion/pkg/domain"
)

// ReviewUpdate carries the fields a review decision stamps onto a document.
type ReviewUpdate struct {
	Status     DocumentStatus
	ReviewedBy id.MemberID
	ReviewedAt time.Time
	Notes      string
	// ExpiresAt is set on approval only; the sweep keys off it.
	ExpiresAt *time.Time
}

// Store persists verification documents.
//
// The conditional methods implement the optimistic per-row updates that keep
// concurrent reviewers and sweeps from racing: each mutates only when the
// current status matches the expected pre-state and returns
// sentinel.ErrInvalidState otherwise, sentinel.ErrNotFound when the row is
// absent.
type Store interface {
	// CreateIfNoneLive inserts the document unless the owner already has
	// one in Uploaded or PendingReview; then it returns
	// sentinel.ErrConflict.
	CreateIfNoneLive(ctx context.Context, doc *Document) error
	FindByID(ctx context.Context, docID id.DocumentID) (*Document, error)
	// ResolveIfPending applies a review verdict while the document is
	// still PendingReview.
	ResolveIfPending(ctx context.Context, docID id.DocumentID, update ReviewUpdate) (*Document, error)
	// MarkDeletedIfApproved flips Approved to Deleted.
	MarkDeletedIfApproved(ctx context.Context, docID id.DocumentID) error
	// ListExpiredApproved returns Approved documents whose expires_at has
	// passed, oldest first, at most limit rows.
	ListExpiredApproved(ctx context.Context, now time.Time, limit int) ([]*Document, error)
	// ListPending returns the review queue, uploaded_at ascending.
	ListPending(ctx context.Context) ([]*Document, error)
	// ListByOwner returns the member's documents, uploaded_at descending.
	ListByOwner(ctx context.Context, ownerID id.MemberID) ([]*Document, error)
}
