package domain

import dErrors "reunion/pkg/domain-errors"

// ContactField names one disclosable piece of a member's contact record.
// Invariant: the value must be one of the supported fields.
//
// Usage: construct via ParseContactField at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type ContactField string

const (
	ContactFieldEmail   ContactField = "EMAIL"
	ContactFieldPhone   ContactField = "PHONE"
	ContactFieldAddress ContactField = "ADDRESS"
)

// validContactFields is the single source of truth for valid contact fields.
var validContactFields = map[ContactField]bool{
	ContactFieldEmail:   true,
	ContactFieldPhone:   true,
	ContactFieldAddress: true,
}

// ParseContactField constructs a ContactField from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseContactField(s string) (ContactField, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "contact field cannot be empty")
	}
	f := ContactField(s)
	if !f.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported contact field")
	}
	return f, nil
}

// ContactFields returns every supported field in a stable order.
func ContactFields() []ContactField {
	return []ContactField{ContactFieldEmail, ContactFieldPhone, ContactFieldAddress}
}

// IsValid checks if the field is one of the supported enum values.
func (f ContactField) IsValid() bool {
	return validContactFields[f]
}

func (f ContactField) String() string { return string(f) }

// GrantMethod records how a disclosure was delivered to the viewer.
type GrantMethod string

const (
	GrantMethodDirectView     GrantMethod = "DIRECT_VIEW"
	GrantMethodEmailSent      GrantMethod = "EMAIL_SENT"
	GrantMethodLabelGenerated GrantMethod = "LABEL_GENERATED"
)
