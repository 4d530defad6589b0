package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the disclosure core.
type Metrics struct {
	DocumentsSubmitted   prometheus.Counter
	DocumentsReviewed    *prometheus.CounterVec
	DocumentsPurged      prometheus.Counter
	RequestsCreated      prometheus.Counter
	RequestsResolved     *prometheus.CounterVec
	RequestsExpired      prometheus.Counter
	GrantsWritten        prometheus.Counter
	AuditEntriesRecorded prometheus.Counter
	NotifyFailures       prometheus.Counter
	SweepFailures        *prometheus.CounterVec
}

// New creates and registers all instruments on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers on a caller-supplied registerer so tests can isolate.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DocumentsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "reunion_verification_documents_submitted_total",
			Help: "Verification documents accepted for review.",
		}),
		DocumentsReviewed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reunion_verification_documents_reviewed_total",
			Help: "Verification review decisions by outcome.",
		}, []string{"decision"}),
		DocumentsPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "reunion_verification_documents_purged_total",
			Help: "Approved documents deleted after the retention window.",
		}),
		RequestsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "reunion_contact_requests_created_total",
			Help: "Contact-access requests created.",
		}),
		RequestsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reunion_contact_requests_resolved_total",
			Help: "Contact-access request resolutions by outcome.",
		}, []string{"decision"}),
		RequestsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "reunion_contact_requests_expired_total",
			Help: "Pending contact-access requests expired by the sweep.",
		}),
		GrantsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "reunion_contact_grants_written_total",
			Help: "Contact-access grants appended to the ledger.",
		}),
		AuditEntriesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "reunion_audit_entries_recorded_total",
			Help: "Audit entries recorded.",
		}),
		NotifyFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "reunion_notification_failures_total",
			Help: "Notification deliveries that failed and were suppressed.",
		}),
		SweepFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reunion_sweep_item_failures_total",
			Help: "Per-item failures tolerated during expiry sweeps.",
		}, []string{"sweep"}),
	}
}
