package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"reunion/internal/notify"
	"reunion/internal/platform/config"
	"reunion/internal/platform/metrics"
	"reunion/internal/storage"
	"reunion/internal/verification/handle"
	id "reunion/pkg/domain"
	dErrors "reunion/pkg/domain-errors"
	"reunion/pkg/platform/sentinel"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks AccountActivator

// AccountActivator is the external account collaborator. Approving a
// document emits an activation intent through it; the account state machine
// itself lives outside this core.
type AccountActivator interface {
	Activate(ctx context.Context, memberID id.MemberID) error
}

// Submission/review rejections shared with tests and transports.
var (
	ErrDuplicateSubmission = dErrors.New(dErrors.CodeConflict, "a verification document is already being processed")
	ErrNotPending          = dErrors.New(dErrors.CodeConflict, "document has already been reviewed")
)

// sweepConcurrency bounds parallel object purges during a sweep.
const sweepConcurrency = 4

// Service coordinates the document lifecycle. Mutual exclusion lives in the
// store's conditional updates; the service holds no state of its own.
type Service struct {
	store    Store
	objects  storage.ObjectStore
	accounts AccountActivator
	handles  handle.Store
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

func WithHandleStore(h handle.Store) Option {
	return func(s *Service) { s.handles = h }
}

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(store Store, objects storage.ObjectStore, accounts AccountActivator, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("document store is required")
	}
	if objects == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("account activator is required")
	}

	svc := &Service{
		store:    store,
		objects:  objects,
		accounts: accounts,
		logger:   slog.New(slog.DiscardHandler),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Submit validates and stores one identity document. The caller never
// observes an Uploaded-only document: the record is persisted already in
// PendingReview, and a storage failure leaves no record at all.
func (s *Service) Submit(ctx context.Context, memberID id.MemberID, fileBytes []byte, filename, mimeType string) (*Document, error) {
	if memberID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "member id is required")
	}
	if err := validateUpload(fileBytes, mimeType); err != nil {
		return nil, err
	}

	docID := id.NewDocumentID()
	path := fmt.Sprintf("verification-documents/%s/%s%s", memberID, uuid.New(), fileExtension(filename))
	ref, err := s.objects.Put(ctx, fileBytes, path, mimeType, storage.Metadata{
		"original-filename": filename,
		"uploaded-by":       memberID.String(),
		"uploaded-at":       s.clock().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "document storage is unavailable")
	}

	doc := &Document{
		ID:               docID,
		OwnerID:          memberID,
		StorageRef:       ref,
		OriginalFilename: filename,
		Status:           StatusPendingReview,
		UploadedAt:       s.clock(),
	}
	if err := s.store.CreateIfNoneLive(ctx, doc); err != nil {
		// Undo the upload so a rejected submission leaves nothing behind.
		if cleanupErr := s.objects.Delete(ctx, ref); cleanupErr != nil {
			s.logger.WarnContext(ctx, "orphaned document object after rejected create",
				"storage_ref", string(ref),
				"error", cleanupErr.Error(),
			)
		}
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, ErrDuplicateSubmission
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not record document submission")
	}

	if s.metrics != nil {
		s.metrics.DocumentsSubmitted.Inc()
	}
	return doc, nil
}

// Review applies a verdict to a pending document. The Pending→terminal
// transition is conditional in the store, so of two concurrent reviewers
// exactly one wins and the other gets ErrNotPending.
func (s *Service) Review(ctx context.Context, docID id.DocumentID, reviewerID id.MemberID, decision ReviewDecision, notes string) (*Document, error) {
	if reviewerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "reviewer id is required")
	}

	var status DocumentStatus
	switch decision {
	case DecisionApprove:
		status = StatusApproved
	case DecisionReject:
		status = StatusRejected
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "decision must be approve or reject")
	}

	now := s.clock()
	update := ReviewUpdate{
		Status:     status,
		ReviewedBy: reviewerID,
		ReviewedAt: now,
		Notes:      notes,
	}
	if decision == DecisionApprove {
		expires := now.Add(config.DocumentRetention)
		update.ExpiresAt = &expires
	}

	doc, err := s.store.ResolveIfPending(ctx, docID, update)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeNotFound, "verification document not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return nil, ErrNotPending
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not record review decision")
	}

	// A decision closes reviewer access to the material immediately.
	if s.handles != nil {
		if err := s.handles.Invalidate(ctx, docID); err != nil {
			s.logger.WarnContext(ctx, "could not invalidate review handle",
				"document_id", docID.String(),
				"error", err.Error(),
			)
		}
	}

	template := notify.TemplateVerificationRejected
	if decision == DecisionApprove {
		template = notify.TemplateVerificationApproved
		if err := s.accounts.Activate(ctx, doc.OwnerID); err != nil {
			// The document stays Approved; activation is owned by the
			// account collaborator and retried operationally.
			s.logger.ErrorContext(ctx, "account activation intent failed",
				"member_id", doc.OwnerID.String(),
				"document_id", docID.String(),
				"error", err.Error(),
			)
		}
	}
	s.notifyBestEffort(ctx, doc.OwnerID, template, notify.Payload{
		"document_id": docID.String(),
	})

	if s.metrics != nil {
		s.metrics.DocumentsReviewed.WithLabelValues(string(decision)).Inc()
	}
	return doc, nil
}

// FetchResult pairs document metadata with the transient read handle, which
// is present only while the document awaits review.
type FetchResult struct {
	Document *Document
	Handle   *handle.ReviewHandle
}

// FetchForReview returns the document and, while it is still reviewable, a
// 5-minute read handle to the backing file. Once a decision exists the
// metadata alone is returned.
func (s *Service) FetchForReview(ctx context.Context, docID id.DocumentID, requesterID id.MemberID) (*FetchResult, error) {
	doc, err := s.store.FindByID(ctx, docID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "verification document not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not load document")
	}

	if !doc.Live() {
		return &FetchResult{Document: doc}, nil
	}

	url, err := s.objects.SignedURL(ctx, doc.StorageRef, config.ReviewHandleTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "document storage is unavailable")
	}

	h := handle.ReviewHandle{
		DocumentID:  docID,
		RequesterID: requesterID,
		URL:         url,
		ExpiresAt:   s.clock().Add(config.ReviewHandleTTL),
	}
	if s.handles != nil {
		if err := s.handles.Save(ctx, h, config.ReviewHandleTTL); err != nil {
			s.logger.WarnContext(ctx, "could not record review handle",
				"document_id", docID.String(),
				"error", err.Error(),
			)
		}
	}
	return &FetchResult{Document: doc, Handle: &h}, nil
}

// ListPending returns the review queue, oldest submission first.
func (s *Service) ListPending(ctx context.Context) ([]*Document, error) {
	docs, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not load review queue")
	}
	return docs, nil
}

// ListByOwner returns a member's own submissions, newest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID id.MemberID) ([]*Document, error) {
	docs, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not load documents")
	}
	return docs, nil
}

// SweepExpired purges every Approved document whose retention window has
// passed: backing file first, then the conditional Approved→Deleted flip.
// Per-document failures are tolerated and the batch continues; the returned
// count covers successful deletions only. Safe to run concurrently with
// itself.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer("reunion/verification").Start(ctx, "verification.sweep_expired")
	defer span.End()

	expired, err := s.store.ListExpiredApproved(ctx, s.clock(), config.SweepBatchLimit)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not list expired documents")
	}

	var swept atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, doc := range expired {
		g.Go(func() error {
			if err := s.purge(ctx, doc); err != nil {
				s.logger.WarnContext(ctx, "document purge failed",
					"document_id", doc.ID.String(),
					"error", err.Error(),
				)
				if s.metrics != nil {
					s.metrics.SweepFailures.WithLabelValues("verification").Inc()
				}
				return nil // isolate the failure, keep the batch going
			}
			swept.Add(1)
			if s.metrics != nil {
				s.metrics.DocumentsPurged.Inc()
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(swept.Load()), nil
}

func (s *Service) purge(ctx context.Context, doc *Document) error {
	if err := s.objects.Delete(ctx, doc.StorageRef); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	err := s.store.MarkDeletedIfApproved(ctx, doc.ID)
	if errors.Is(err, sentinel.ErrInvalidState) {
		// A concurrent sweep got here first; nothing left to do.
		return err
	}
	if err != nil {
		return fmt.Errorf("mark deleted: %w", err)
	}
	return nil
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
