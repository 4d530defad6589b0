// Package directory provides read-only lookup of member profiles and their
// disclosable contact fields. The consent workflow uses it to materialize
// approved disclosures; nothing in this module writes profiles.
package directory

import (
	"strings"

	id "reunion/pkg/domain"
	"reunion/pkg/email"
)

// AccountStatus mirrors the member account lifecycle owned by the account
// collaborator. The directory only reads it.
type AccountStatus string

const (
	AccountPending   AccountStatus = "PENDING"
	AccountActive    AccountStatus = "ACTIVE"
	AccountSuspended AccountStatus = "SUSPENDED"
	AccountDeleted   AccountStatus = "DELETED"
)

// Profile is a member's directory record. Contact fields are disclosed only
// through the consent workflow; the zero value of a field means "not set".
type Profile struct {
	MemberID       id.MemberID
	FamilyName     string
	GivenName      string
	GraduationYear int
	Email          string
	PhoneNumber    string
	Address        string
	Status         AccountStatus
}

// ContactValue returns the disclosable value for one contact field, empty
// when the member has not provided it.
func (p Profile) ContactValue(field id.ContactField) string {
	switch field {
	case id.ContactFieldEmail:
		return p.Email
	case id.ContactFieldPhone:
		return p.PhoneNumber
	case id.ContactFieldAddress:
		return p.Address
	}
	return ""
}

// DisplayName returns the member's name for notifications and listings,
// deriving one from the email address when the profile has no name on file.
func (p Profile) DisplayName() string {
	switch {
	case p.GivenName != "" && p.FamilyName != "":
		return p.GivenName + " " + p.FamilyName
	case p.GivenName != "":
		return p.GivenName
	case p.FamilyName != "":
		return p.FamilyName
	case p.Email != "":
		given, family := email.DeriveNameFromEmail(p.Email)
		return strings.TrimSpace(given + " " + family)
	}
	return "Member"
}
