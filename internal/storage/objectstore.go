// Package storage defines the object-store boundary the verification
// workflow depends on. Implementations (S3, R2, filesystem) live outside
// this module; the in-memory store keeps tests hermetic.
package storage

import (
	"context"
	"time"
)

// Ref is an opaque reference to a stored object, assigned by the store.
type Ref string

// Metadata travels with the object for operator forensics.
type Metadata map[string]string

// ObjectStore is interface-driven to keep the domain logic testable and to
// allow swapping in-memory, file-based, or external persistence without
// rewiring business code.
//
// Any failure must be surfaced as (or wrapped in) sentinel.ErrUnavailable so
// services can report a StorageFailure uniformly.
type ObjectStore interface {
	// Put stores the bytes under path and returns the resulting reference.
	Put(ctx context.Context, data []byte, path string, contentType string, meta Metadata) (Ref, error)
	// SignedURL issues a read URL valid for ttl.
	SignedURL(ctx context.Context, ref Ref, ttl time.Duration) (string, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, ref Ref) error
}
