// Package notify defines the notification boundary. Delivery (email/SMS)
// lives outside this module. Failures from this boundary are suppressed by
// callers; the Outcome type makes that suppression observable to tests
// without log scraping.
package notify

import (
	"context"

	id "reunion/pkg/domain"
)

//go:generate mockgen -source=notifier.go -destination=mocks/mocks.go -package=mocks Notifier

// TemplateKind selects the message template the delivery layer renders.
type TemplateKind string

const (
	TemplateContactRequested     TemplateKind = "contact_access_requested"
	TemplateContactApproved      TemplateKind = "contact_access_approved"
	TemplateContactRejected      TemplateKind = "contact_access_rejected"
	TemplateVerificationApproved TemplateKind = "verification_approved"
	TemplateVerificationRejected TemplateKind = "verification_rejected"
)

// Payload carries template variables. Values must already be safe to render.
type Payload map[string]string

// Notifier delivers one message to one member. Implementations own their
// transport timeouts; callers treat any error as best-effort.
type Notifier interface {
	Notify(ctx context.Context, recipient id.MemberID, kind TemplateKind, payload Payload) error
}

// Outcome records the result of a best-effort notification so the primary
// operation can report suppressed failures explicitly.
type Outcome struct {
	Recipient id.MemberID
	Kind      TemplateKind
	Err       error
}

// Suppressed reports whether a delivery failure was swallowed.
func (o Outcome) Suppressed() bool { return o.Err != nil }
