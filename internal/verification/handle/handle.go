// Package handle tracks the short-lived read handles issued to reviewers of
// pending verification documents. A handle mirrors the object store's signed
// URL with the same TTL so outstanding access can be observed and revoked
// before a decision lands.
package handle

import (
	"context"
	"time"

	id "reunion/pkg/domain"
)

// ReviewHandle is one transient grant of read access to a document's
// backing file.
type ReviewHandle struct {
	DocumentID  id.DocumentID
	RequesterID id.MemberID
	URL         string
	ExpiresAt   time.Time
}

// Store keeps at most one active handle per document. Entries disappear on
// their own once the TTL lapses.
type Store interface {
	Save(ctx context.Context, h ReviewHandle, ttl time.Duration) error
	// Active returns the outstanding handle or sentinel.ErrNotFound.
	Active(ctx context.Context, docID id.DocumentID) (*ReviewHandle, error)
	// Invalidate revokes an outstanding handle early. Revoking a missing
	// handle is not an error.
	Invalidate(ctx context.Context, docID id.DocumentID) error
}
