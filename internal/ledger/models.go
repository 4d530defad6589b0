// Package ledger is the append-only record of contact-field disclosures.
// A grant proves one field of one subject was disclosed to one viewer at a
// point in time; reads consult the ledger within the disclosure validity
// window instead of materializing per-pair visibility state.
package ledger

import (
	"time"

	id "reunion/pkg/domain"
)

// Grant is one disclosure event. Never mutated or deleted by normal flow.
type Grant struct {
	ID        id.GrantID
	ViewerID  id.MemberID
	SubjectID id.MemberID
	Field     id.ContactField
	Method    id.GrantMethod
	// RequestID links back to the approving contact-access request, when
	// the grant came from one. Nil for future out-of-band grant methods.
	RequestID *id.RequestID
	GrantedBy id.MemberID
	CreatedAt time.Time
}

// Authorizes reports whether this grant still authorizes a read of field at
// the given instant. Validity is evaluated at read time; an aged-out grant
// simply stops matching, no transition happens.
func (g Grant) Authorizes(field id.ContactField, now time.Time, window time.Duration) bool {
	if g.Field != field {
		return false
	}
	return now.Sub(g.CreatedAt) <= window
}
