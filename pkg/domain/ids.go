// Package domain holds leaf value types shared by every feature package:
// typed identifiers and the contact-field vocabulary. Keeping them here
// avoids import cycles between workflows that reference each other's records.
package domain

import (
	"github.com/google/uuid"

	dErrors "reunion/pkg/domain-errors"
)

// Typed UUID identifiers. Distinct types prevent cross-assignment between
// resource families at compile time.
type (
	// MemberID identifies a member account.
	MemberID uuid.UUID
	// DocumentID identifies a verification document.
	DocumentID uuid.UUID
	// RequestID identifies a contact-access request.
	RequestID uuid.UUID
	// GrantID identifies a contact-access grant ledger entry.
	GrantID uuid.UUID
	// EntryID identifies an audit entry.
	EntryID uuid.UUID
)

func (id MemberID) String() string   { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id RequestID) String() string  { return uuid.UUID(id).String() }
func (id GrantID) String() string    { return uuid.UUID(id).String() }
func (id EntryID) String() string    { return uuid.UUID(id).String() }

func (id MemberID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id GrantID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id EntryID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// NewMemberID returns a fresh random member id.
func NewMemberID() MemberID { return MemberID(uuid.New()) }

// NewDocumentID returns a fresh random document id.
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

// NewRequestID returns a fresh random request id.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// NewGrantID returns a fresh random grant id.
func NewGrantID() GrantID { return GrantID(uuid.New()) }

// NewEntryID returns a fresh random entry id.
func NewEntryID() EntryID { return EntryID(uuid.New()) }

func parse(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

// ParseMemberID constructs a MemberID from external input. Call at trust
// boundaries; direct casting bypasses validation.
func ParseMemberID(s string) (MemberID, error) {
	u, err := parse(s)
	return MemberID(u), err
}

// ParseDocumentID constructs a DocumentID from external input.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parse(s)
	return DocumentID(u), err
}

// ParseRequestID constructs a RequestID from external input.
func ParseRequestID(s string) (RequestID, error) {
	u, err := parse(s)
	return RequestID(u), err
}

// ParseEntryID constructs an EntryID from external input.
func ParseEntryID(s string) (EntryID, error) {
	u, err := parse(s)
	return EntryID(u), err
}
