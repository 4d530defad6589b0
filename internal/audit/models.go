// Package audit records privileged operations across the portal and flags
// the subset that needs a second, independent approval before it counts as
// complete from a compliance standpoint. Recording never blocks or fails
// the operation being audited.
package audit

import (
	"time"

	id "reunion/pkg/domain"
)

// ActionKind classifies what the actor did.
type ActionKind string

const (
	ActionView     ActionKind = "VIEW"
	ActionSearch   ActionKind = "SEARCH"
	ActionUpdate   ActionKind = "UPDATE"
	ActionDelete   ActionKind = "DELETE"
	ActionExport   ActionKind = "EXPORT"
	ActionUpload   ActionKind = "UPLOAD"
	ActionDownload ActionKind = "DOWNLOAD"
	ActionApprove  ActionKind = "APPROVE"
	ActionReject   ActionKind = "REJECT"
	ActionSweep    ActionKind = "SWEEP"
)

// ResourceType names the kind of record the action touched.
type ResourceType string

const (
	ResourceMember   ResourceType = "member"
	ResourceDocument ResourceType = "verification_document"
	ResourceRequest  ResourceType = "contact_access_request"
	ResourceGrant    ResourceType = "contact_access_grant"
	ResourceAudit    ResourceType = "audit_entry"
	ResourceSystem   ResourceType = "system"
)

// ApprovalStatus is the state of the secondary compliance approval.
type ApprovalStatus string

const (
	ApprovalNotRequired ApprovalStatus = "NOT_REQUIRED"
	ApprovalPending     ApprovalStatus = "PENDING"
	ApprovalApproved    ApprovalStatus = "APPROVED"
	ApprovalRejected    ApprovalStatus = "REJECTED"
)

// Entry is one audited operation. Append-only; once the approval status is
// terminal nothing else may change.
type Entry struct {
	ID id.EntryID
	// ActorID is nil for system-initiated actions such as sweeps.
	ActorID      *id.MemberID
	Action       ActionKind
	ResourceType ResourceType
	ResourceID   string
	Detail       Detail
	ActorIP      string
	ActorAgent   string
	// AgentSummary is the parsed, human-readable form of ActorAgent.
	AgentSummary     string
	RequiresApproval bool
	ApprovalStatus   ApprovalStatus
	ApproverID       *id.MemberID
	ApprovalReason   string
	ApprovedAt       *time.Time
	CreatedAt        time.Time
}

// AwaitingApproval reports whether the entry still needs its secondary
// sign-off.
func (e Entry) AwaitingApproval() bool {
	return e.RequiresApproval && e.ApprovalStatus == ApprovalPending
}

// Stats aggregates the trail over a closed time window.
type Stats struct {
	Total            int
	ByAction         map[ActionKind]int
	ByResource       map[ResourceType]int
	PendingApprovals int
}
