// Package verification manages the lifecycle of identity-document
// submissions: upload, review, transient reviewer access, and scheduled
// deletion after the retention window.
package verification

import (
	"time"

	"reunion/internal/storage"
	id "reunion/pkg/domain"
)

// DocumentStatus is the review lifecycle state of a submitted document.
//
// Uploaded → PendingReview → {Approved | Rejected} → [Deleted]
// Deleted is only reachable from Approved, after the retention window.
type DocumentStatus string

const (
	StatusUploaded      DocumentStatus = "UPLOADED"
	StatusPendingReview DocumentStatus = "PENDING_REVIEW"
	StatusApproved      DocumentStatus = "APPROVED"
	StatusRejected      DocumentStatus = "REJECTED"
	StatusDeleted       DocumentStatus = "DELETED"
)

// ReviewDecision is a reviewer's verdict on a pending document.
type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

// Document is one identity-document submission. The member owns it; the
// reviewer holds only a reference.
type Document struct {
	ID               id.DocumentID
	OwnerID          id.MemberID
	StorageRef       storage.Ref
	OriginalFilename string
	Status           DocumentStatus
	UploadedAt       time.Time
	ReviewedAt       *time.Time
	ReviewedBy       *id.MemberID
	ReviewerNotes    string
	// ExpiresAt is stamped at approval; the retention clock starts when
	// the document is approved, not when it is uploaded.
	ExpiresAt *time.Time
}

// Live reports whether the document still counts against the one-live-
// document-per-member invariant and may be read by reviewers.
func (d Document) Live() bool {
	return d.Status == StatusUploaded || d.Status == StatusPendingReview
}
