package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mssola/useragent"

	"reunion/internal/platform/metrics"
	id "reunion/pkg/domain"
	dErrors "reunion/pkg/domain-errors"
	"reunion/pkg/platform/sentinel"
)

// ErrAlreadyResolved is returned when an approval verdict lands on an entry
// whose approval is no longer pending.
var ErrAlreadyResolved = dErrors.New(dErrors.CodeConflict, "audit entry already processed")

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	exportBatch        = 500
)

// RecordInput is everything the calling boundary supplies about one audited
// operation.
type RecordInput struct {
	// ActorID is nil for system-initiated actions.
	ActorID      *id.MemberID
	Action       ActionKind
	ResourceType ResourceType
	ResourceID   string
	Detail       Detail
	IP           string
	Agent        string
}

// Outcome reports the result of a Record call. A suppressed failure means
// the entry was not persisted but the audited operation must proceed
// anyway.
type Outcome struct {
	Entry *Entry
	Err   error
}

// Suppressed reports whether the audit write was swallowed.
func (o Outcome) Suppressed() bool { return o.Err != nil }

// Service records audited operations and manages the secondary approval
// overlay on top of them.
type Service struct {
	store   Store
	fanout  chan<- *Entry
	metrics *metrics.Metrics
	logger  *slog.Logger
	clock   func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithFanout streams every persisted entry into the given channel, used by
// the publish worker to mirror the trail to Kafka. Sends never block; when
// the channel is full the entry is only persisted locally.
func WithFanout(ch chan<- *Entry) Option {
	return func(s *Service) { s.fanout = ch }
}

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("audit store is required")
	}

	svc := &Service{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Record captures one audited operation. It never returns an error the
// caller could propagate: persistence failures are logged, counted, and
// reported through the Outcome so the audited operation always proceeds.
func (s *Service) Record(ctx context.Context, in RecordInput) Outcome {
	entry := &Entry{
		ID:             id.NewEntryID(),
		ActorID:        in.ActorID,
		Action:         in.Action,
		ResourceType:   in.ResourceType,
		ResourceID:     in.ResourceID,
		Detail:         redactDetail(in.Detail),
		ActorIP:        in.IP,
		ActorAgent:     in.Agent,
		AgentSummary:   summarizeAgent(in.Agent),
		ApprovalStatus: ApprovalNotRequired,
		CreatedAt:      s.clock(),
	}
	if requiresApproval(in.Action, in.ResourceType, entry.Detail) {
		entry.RequiresApproval = true
		entry.ApprovalStatus = ApprovalPending
	}

	if err := s.store.Append(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "audit entry dropped",
			"action", string(in.Action),
			"resource_type", string(in.ResourceType),
			"resource_id", in.ResourceID,
			"error", err.Error(),
		)
		return Outcome{Err: err}
	}

	if s.fanout != nil {
		select {
		case s.fanout <- entry:
		default:
			s.logger.WarnContext(ctx, "audit fan-out queue full, entry persisted locally only",
				"entry_id", entry.ID.String(),
			)
		}
	}
	if s.metrics != nil {
		s.metrics.AuditEntriesRecorded.Inc()
	}
	return Outcome{Entry: entry}
}

// ResolveApproval applies the secondary sign-off to a pending entry.
func (s *Service) ResolveApproval(ctx context.Context, entryID id.EntryID, approverID id.MemberID, approved bool, reason string) (*Entry, error) {
	if approverID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "approver id is required")
	}

	status := ApprovalRejected
	if approved {
		status = ApprovalApproved
	}
	entry, err := s.store.ResolveIfPendingApproval(ctx, entryID, ApprovalUpdate{
		Status:     status,
		ApproverID: approverID,
		Reason:     reason,
		ApprovedAt: s.clock(),
	})
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeNotFound, "audit entry not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return nil, ErrAlreadyResolved
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not record approval")
	}
	return entry, nil
}

// ListPendingApprovals returns the compliance queue, oldest first.
func (s *Service) ListPendingApprovals(ctx context.Context) ([]*Entry, error) {
	entries, err := s.store.ListPendingApprovals(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not load approval queue")
	}
	return entries, nil
}

// SearchResult is one page of matching audit entries.
type SearchResult struct {
	Entries    []*Entry
	Total      int
	Page       int
	PerPage    int
	TotalPages int
}

// Search returns one page of the trail, newest first. Pages start at 1;
// limits outside [1, 100] are rejected rather than clamped.
func (s *Service) Search(ctx context.Context, filters Filters, page, limit int) (*SearchResult, error) {
	if page < 1 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "page starts at 1")
	}
	if limit == 0 {
		limit = defaultSearchLimit
	}
	if limit < 1 || limit > maxSearchLimit {
		return nil, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("limit must be between 1 and %d", maxSearchLimit))
	}

	entries, total, err := s.store.Search(ctx, filters, (page-1)*limit, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not search audit trail")
	}
	return &SearchResult{
		Entries:    entries,
		Total:      total,
		Page:       page,
		PerPage:    limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// Export returns every matching entry, newest first. Batched internally;
// callers get the complete result set.
func (s *Service) Export(ctx context.Context, filters Filters) ([]*Entry, error) {
	var out []*Entry
	for offset := 0; ; offset += exportBatch {
		entries, total, err := s.store.Search(ctx, filters, offset, exportBatch)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not export audit trail")
		}
		out = append(out, entries...)
		if offset+exportBatch >= total {
			return out, nil
		}
	}
}

// ListRecentByActor returns the actor's latest entries, newest first.
func (s *Service) ListRecentByActor(ctx context.Context, actorID id.MemberID, limit int) ([]*Entry, error) {
	if limit < 1 || limit > maxSearchLimit {
		limit = defaultSearchLimit
	}
	entries, err := s.store.ListRecentByActor(ctx, actorID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not load actor history")
	}
	return entries, nil
}

// Stats aggregates the trail over the closed window [from, to]: total
// entries, counts by action and by resource type, and how many entries
// still await approval.
func (s *Service) Stats(ctx context.Context, from, to time.Time) (*Stats, error) {
	if to.Before(from) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "window end precedes its start")
	}
	stats, err := s.store.Stats(ctx, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not aggregate audit trail")
	}
	return stats, nil
}

// summarizeAgent condenses a raw User-Agent header into a readable label.
// Raw headers are kept alongside for forensics.
func summarizeAgent(agent string) string {
	if agent == "" {
		return ""
	}
	ua := useragent.New(agent)
	if ua.Bot() {
		return "bot"
	}
	name, version := ua.Browser()
	if name == "" {
		return agent
	}
	if osInfo := ua.OS(); osInfo != "" {
		return fmt.Sprintf("%s %s on %s", name, version, osInfo)
	}
	return fmt.Sprintf("%s %s", name, version)
}
