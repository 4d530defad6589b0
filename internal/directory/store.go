package directory

import (
	"context"

	id "reunion/pkg/domain"
)

// Store is the read-only profile lookup the consent workflow depends on.
type Store interface {
	// FindProfile returns the profile or sentinel.ErrNotFound.
	FindProfile(ctx context.Context, memberID id.MemberID) (*Profile, error)
}
