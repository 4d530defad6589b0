package consent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"reunion/internal/directory"
	"reunion/internal/ledger"
	"reunion/internal/notify"
	"reunion/internal/platform/config"
	"reunion/internal/platform/metrics"
	id "reunion/pkg/domain"
	dErrors "reunion/pkg/domain-errors"
	"reunion/pkg/platform/sentinel"
)

// Request/response rejections shared with tests and transports. The
// messages are user-facing; keep them free of internal identifiers.
var (
	ErrSelfRequest      = dErrors.New(dErrors.CodeInvalidInput, "you cannot request your own contact information")
	ErrTargetNotFound   = dErrors.New(dErrors.CodeNotFound, "member not found")
	ErrBlocked          = dErrors.New(dErrors.CodeConflict, "this member is not accepting requests from you")
	ErrDuplicatePending = dErrors.New(dErrors.CodeConflict, "a request to this member is already pending")
	ErrAlreadyResolved  = dErrors.New(dErrors.CodeConflict, "request already processed")
	ErrNoApprovedAccess = dErrors.New(dErrors.CodeForbidden, "no approved access to this member's contact information")
)

const sweepConcurrency = 4

// Service coordinates the request lifecycle and the grants it writes to the
// disclosure ledger. Like the verification service, it holds no state of
// its own; mutual exclusion lives in the store's conditional updates.
type Service struct {
	requests Store
	grants   ledger.Store
	profiles directory.Store
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	clock    func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(requests Store, grants ledger.Store, profiles directory.Store, opts ...Option) (*Service, error) {
	if requests == nil {
		return nil, fmt.Errorf("request store is required")
	}
	if grants == nil {
		return nil, fmt.Errorf("grant ledger is required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile directory is required")
	}

	svc := &Service{
		requests: requests,
		grants:   grants,
		profiles: profiles,
		logger:   slog.New(slog.DiscardHandler),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateRequest opens a contact-access request toward the target. A prior
// block from the target wins over everything else; at most one request per
// requester/target pair may be pending at a time.
func (s *Service) CreateRequest(ctx context.Context, requesterID, targetID id.MemberID, fields []id.ContactField, reason string) (*Request, error) {
	if requesterID.IsNil() || targetID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "requester and target ids are required")
	}
	if requesterID == targetID {
		return nil, ErrSelfRequest
	}
	if len(fields) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "at least one contact field must be requested")
	}
	seen := make(map[id.ContactField]bool, len(fields))
	for _, f := range fields {
		if !f.IsValid() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown contact field %q", f))
		}
		if seen[f] {
			return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("contact field %q requested twice", f))
		}
		seen[f] = true
	}

	if _, err := s.profiles.FindProfile(ctx, targetID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not look up member")
	}

	blocked, err := s.requests.HasBlock(ctx, requesterID, targetID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not check request eligibility")
	}
	if blocked {
		return nil, ErrBlocked
	}

	now := s.clock()
	req := &Request{
		ID:          id.NewRequestID(),
		RequesterID: requesterID,
		TargetID:    targetID,
		Status:      StatusPending,
		Fields:      append([]id.ContactField(nil), fields...),
		Reason:      reason,
		ExpiresAt:   now.Add(config.RequestExpiry),
		CreatedAt:   now,
	}
	if err := s.requests.CreateIfNonePending(ctx, req); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, ErrDuplicatePending
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not record request")
	}

	payload := notify.Payload{
		"request_id": req.ID.String(),
		"requester":  requesterID.String(),
	}
	// Best-effort; the notification degrades to the bare id when the
	// requester's profile cannot be loaded.
	if requester, err := s.profiles.FindProfile(ctx, requesterID); err == nil {
		payload["requester_name"] = requester.DisplayName()
	}
	s.notifyBestEffort(ctx, targetID, notify.TemplateContactRequested, payload)
	if s.metrics != nil {
		s.metrics.RequestsCreated.Inc()
	}
	return req, nil
}

// Respond records the target's verdict. On approval one ledger grant is
// appended per approved field before the request leaves Pending, so a crash
// mid-way leaves the request retryable rather than approved with missing
// grants. The block-future flag is recorded whichever way the decision
// went.
func (s *Service) Respond(ctx context.Context, requestID id.RequestID, targetID id.MemberID, decision Decision, approvedFields []id.ContactField, blockFuture bool) (*Request, error) {
	if targetID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "target id is required")
	}

	var status RequestStatus
	switch decision {
	case DecisionApprove:
		status = StatusApproved
	case DecisionReject:
		status = StatusRejected
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "decision must be approve or reject")
	}
	if decision == DecisionApprove && len(approvedFields) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "approval must grant at least one contact field")
	}

	req, err := s.requests.FindByID(ctx, requestID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "request not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not load request")
	}
	if req.TargetID != targetID {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the requested member may respond")
	}
	if req.Status != StatusPending {
		return nil, ErrAlreadyResolved
	}

	now := s.clock()
	if decision == DecisionApprove {
		for _, f := range approvedFields {
			if !req.Requested(f) {
				return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("contact field %q was not requested", f))
			}
		}
		reqID := requestID
		for _, f := range approvedFields {
			grant := &ledger.Grant{
				ID:        id.NewGrantID(),
				ViewerID:  req.RequesterID,
				SubjectID: req.TargetID,
				Field:     f,
				Method:    id.GrantMethodDirectView,
				RequestID: &reqID,
				GrantedBy: targetID,
				CreatedAt: now,
			}
			if err := s.grants.Append(ctx, grant); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not record disclosure grant")
			}
			if s.metrics != nil {
				s.metrics.GrantsWritten.Inc()
			}
		}
	}

	resolved, err := s.requests.ResolveIfPending(ctx, requestID, ResponseUpdate{
		Status:      status,
		RespondedAt: now,
		BlockFuture: blockFuture,
	})
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeNotFound, "request not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return nil, ErrAlreadyResolved
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not record response")
	}

	template := notify.TemplateContactRejected
	if decision == DecisionApprove {
		template = notify.TemplateContactApproved
	}
	s.notifyBestEffort(ctx, resolved.RequesterID, template, notify.Payload{
		"request_id": requestID.String(),
	})
	if s.metrics != nil {
		s.metrics.RequestsResolved.WithLabelValues(string(status)).Inc()
	}
	return resolved, nil
}

// Cancel withdraws the requester's own pending request.
func (s *Service) Cancel(ctx context.Context, requestID id.RequestID, requesterID id.MemberID) (*Request, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "request not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not load request")
	}
	if req.RequesterID != requesterID {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the requester may cancel")
	}

	cancelled, err := s.requests.ResolveIfPending(ctx, requestID, ResponseUpdate{
		Status:      StatusCancelled,
		RespondedAt: s.clock(),
		BlockFuture: req.BlockFuture,
	})
	switch {
	case errors.Is(err, sentinel.ErrInvalidState):
		return nil, ErrAlreadyResolved
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not cancel request")
	}
	if s.metrics != nil {
		s.metrics.RequestsResolved.WithLabelValues(string(StatusCancelled)).Inc()
	}
	return cancelled, nil
}

// Get returns one request to either of its two parties.
func (s *Service) Get(ctx context.Context, requestID id.RequestID, callerID id.MemberID) (*Request, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "request not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not load request")
	}
	if req.RequesterID != callerID && req.TargetID != callerID {
		return nil, dErrors.New(dErrors.CodeForbidden, "request belongs to other members")
	}
	return req, nil
}

// ListReceived returns the member's open inbox: pending, unexpired requests
// targeting them, newest first.
func (s *Service) ListReceived(ctx context.Context, memberID id.MemberID) ([]*Request, error) {
	reqs, err := s.requests.ListReceived(ctx, memberID, s.clock())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not load received requests")
	}
	return reqs, nil
}

// ListSent returns every request the member has made, newest first.
func (s *Service) ListSent(ctx context.Context, memberID id.MemberID) ([]*Request, error) {
	reqs, err := s.requests.ListSent(ctx, memberID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not load sent requests")
	}
	return reqs, nil
}

// ReadDisclosedContact returns the subject's contact fields the viewer
// currently holds live grants for. Fields never granted, or whose grant has
// aged past the disclosure validity window, are omitted.
func (s *Service) ReadDisclosedContact(ctx context.Context, viewerID, subjectID id.MemberID) (*DisclosedContact, error) {
	now := s.clock()
	grants, err := s.grants.ListByViewerSubject(ctx, viewerID, subjectID, now.Add(-config.GrantValidity))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not consult disclosure ledger")
	}

	visible := make(map[id.ContactField]bool)
	for _, g := range grants {
		for _, field := range id.ContactFields() {
			if g.Authorizes(field, now, config.GrantValidity) {
				visible[field] = true
			}
		}
	}
	if len(visible) == 0 {
		if total, cErr := s.grants.CountByViewerSubject(ctx, viewerID, subjectID, time.Time{}); cErr == nil && total > 0 {
			s.logger.InfoContext(ctx, "disclosure grants aged out",
				slog.String("viewer_id", viewerID.String()),
				slog.String("subject_id", subjectID.String()),
				slog.Int("historical_grants", total),
			)
		}
		return nil, ErrNoApprovedAccess
	}

	profile, err := s.profiles.FindProfile(ctx, subjectID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, ErrTargetNotFound
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not look up member")
	}

	contact := &DisclosedContact{
		SubjectID: subjectID,
		Fields:    make(map[id.ContactField]string, len(visible)),
	}
	for field := range visible {
		contact.Fields[field] = profile.ContactValue(field)
	}
	return contact, nil
}

// SweepExpired flips every Pending request whose deadline has passed to
// Expired. Per-request failures are tolerated; the returned count covers
// successful transitions only. Safe to run concurrently with itself and
// with live responses: a response landing mid-sweep either still observes
// Pending or fails with ErrAlreadyResolved.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer("reunion/consent").Start(ctx, "consent.sweep_expired")
	defer span.End()

	expired, err := s.requests.ListExpiredPending(ctx, s.clock(), config.SweepBatchLimit)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not list expired requests")
	}

	var swept atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, req := range expired {
		g.Go(func() error {
			err := s.requests.MarkExpiredIfPending(ctx, req.ID)
			if errors.Is(err, sentinel.ErrInvalidState) {
				// Resolved or swept by someone else in the meantime.
				return nil
			}
			if err != nil {
				s.logger.WarnContext(ctx, "request expiry failed",
					"request_id", req.ID.String(),
					"error", err.Error(),
				)
				if s.metrics != nil {
					s.metrics.SweepFailures.WithLabelValues("consent").Inc()
				}
				return nil
			}
			swept.Add(1)
			if s.metrics != nil {
				s.metrics.RequestsExpired.Inc()
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(swept.Load()), nil
}

func (s *Service) notifyBestEffort(ctx context.Context, recipient id.MemberID, kind notify.TemplateKind, payload notify.Payload) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, recipient, kind, payload); err != nil {
		s.logger.WarnContext(ctx, "notification suppressed",
			"recipient", recipient.String(),
			"template", string(kind),
			"error", err.Error(),
		)
		if s.metrics != nil {
			s.metrics.NotifyFailures.Inc()
		}
	}
}
