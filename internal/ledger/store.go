package ledger

import (
	"context"
	"time"

	id "reunion/pkg/domain"
)

// Store is the append-only grant ledger.
//
// Append must be idempotent on the composite key
// (viewer, subject, field, request id) so a retried approval cannot double
// a disclosure record.
type Store interface {
	Append(ctx context.Context, grant *Grant) error
	// ListByViewerSubject returns grants for the pair created at or after
	// since, newest first.
	ListByViewerSubject(ctx context.Context, viewerID, subjectID id.MemberID, since time.Time) ([]*Grant, error)
	// CountByViewerSubject counts grants for the pair created at or after
	// since. A zero since counts the pair's full history.
	CountByViewerSubject(ctx context.Context, viewerID, subjectID id.MemberID, since time.Time) (int, error)
}
