// Package consent manages contact-access requests: one member asking to see
// another member's contact fields, the target's decision, and the grants
// that decision writes into the disclosure ledger.
package consent

import (
	"time"

	id "reunion/pkg/domain"
)

// RequestStatus is the lifecycle state of a contact-access request.
//
// Pending → {Approved | Rejected | Cancelled}; Pending → Expired is
// time-triggered by the sweep.
type RequestStatus string

const (
	StatusPending   RequestStatus = "PENDING"
	StatusApproved  RequestStatus = "APPROVED"
	StatusRejected  RequestStatus = "REJECTED"
	StatusCancelled RequestStatus = "CANCELLED"
	StatusExpired   RequestStatus = "EXPIRED"
)

// Decision is the target's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Request is one member's petition to view another member's contact fields.
type Request struct {
	ID          id.RequestID
	RequesterID id.MemberID
	TargetID    id.MemberID
	Status      RequestStatus
	Fields      []id.ContactField
	Reason      string
	// BlockFuture is recorded from the target's response, independent of
	// the decision, and bars any future request from the same requester.
	BlockFuture bool
	ExpiresAt   time.Time
	CreatedAt   time.Time
	RespondedAt *time.Time
}

// Open reports whether the request is still awaiting a response at the
// given instant.
func (r Request) Open(now time.Time) bool {
	return r.Status == StatusPending && now.Before(r.ExpiresAt)
}

// Requested reports whether the given field was part of the original ask.
func (r Request) Requested(field id.ContactField) bool {
	for _, f := range r.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// DisclosedContact is the partial contact record a viewer may currently
// see. Fields lacking a live grant are absent, not errored.
type DisclosedContact struct {
	SubjectID id.MemberID
	Fields    map[id.ContactField]string
}
