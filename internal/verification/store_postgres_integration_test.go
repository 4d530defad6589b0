//go:build integration

package verification_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"reunion/internal/storage"
	"reunion/internal/verification"
	id "reunion/pkg/domain"
	"reunion/pkg/platform/sentinel"
	"reunion/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *verification.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = verification.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "verification_documents")
	s.Require().NoError(err)
}

func newPendingDocument(owner id.MemberID) *verification.Document {
	docID := id.NewDocumentID()
	return &verification.Document{
		ID:               docID,
		OwnerID:          owner,
		StorageRef:       storage.Ref("verification-documents/" + owner.String() + "/" + uuid.NewString() + ".pdf"),
		OriginalFilename: "degree.pdf",
		Status:           verification.StatusPendingReview,
		UploadedAt:       time.Now().UTC().Truncate(time.Microsecond),
	}
}

// TestOneLiveDocumentPerOwner verifies the partial unique index rejects a
// second live submission for the same owner.
func (s *PostgresStoreSuite) TestOneLiveDocumentPerOwner() {
	ctx := context.Background()
	owner := id.NewMemberID()

	s.Require().NoError(s.store.CreateIfNoneLive(ctx, newPendingDocument(owner)))

	err := s.store.CreateIfNoneLive(ctx, newPendingDocument(owner))
	s.ErrorIs(err, sentinel.ErrConflict)

	s.NoError(s.store.CreateIfNoneLive(ctx, newPendingDocument(id.NewMemberID())))
}

// TestConcurrentSubmissions verifies that racing submissions for one owner
// produce exactly one stored document.
func (s *PostgresStoreSuite) TestConcurrentSubmissions() {
	ctx := context.Background()
	owner := id.NewMemberID()
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount atomic.Int32
	var conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.CreateIfNoneLive(ctx, newPendingDocument(owner))
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load())
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

// TestConcurrentReviews verifies that racing verdicts on one document elect
// a single winner via the conditional update.
func (s *PostgresStoreSuite) TestConcurrentReviews() {
	ctx := context.Background()
	doc := newPendingDocument(id.NewMemberID())
	s.Require().NoError(s.store.CreateIfNoneLive(ctx, doc))

	const goroutines = 20
	var wg sync.WaitGroup
	var wins atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.ResolveIfPending(ctx, doc.ID, verification.ReviewUpdate{
				Status:     verification.StatusRejected,
				ReviewedBy: id.NewMemberID(),
				ReviewedAt: time.Now().UTC(),
				Notes:      "blurred scan",
			})
			if err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())

	stored, err := s.store.FindByID(ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(verification.StatusRejected, stored.Status)
	s.NotNil(stored.ReviewedAt)
}

// TestSweepLifecycle walks a document through approval, expiry listing, and
// the exactly-once deletion mark.
func (s *PostgresStoreSuite) TestSweepLifecycle() {
	ctx := context.Background()
	doc := newPendingDocument(id.NewMemberID())
	s.Require().NoError(s.store.CreateIfNoneLive(ctx, doc))

	expired := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	_, err := s.store.ResolveIfPending(ctx, doc.ID, verification.ReviewUpdate{
		Status:     verification.StatusApproved,
		ReviewedBy: id.NewMemberID(),
		ReviewedAt: time.Now().UTC(),
		ExpiresAt:  &expired,
	})
	s.Require().NoError(err)

	listed, err := s.store.ListExpiredApproved(ctx, time.Now().UTC(), 10)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(doc.ID, listed[0].ID)

	s.NoError(s.store.MarkDeletedIfApproved(ctx, doc.ID))
	s.ErrorIs(s.store.MarkDeletedIfApproved(ctx, doc.ID), sentinel.ErrInvalidState)

	listed, err = s.store.ListExpiredApproved(ctx, time.Now().UTC(), 10)
	s.Require().NoError(err)
	s.Empty(listed)
}

// TestListings checks review-queue and owner-history ordering.
func (s *PostgresStoreSuite) TestListings() {
	ctx := context.Background()
	owner := id.NewMemberID()

	first := newPendingDocument(owner)
	s.Require().NoError(s.store.CreateIfNoneLive(ctx, first))
	_, err := s.store.ResolveIfPending(ctx, first.ID, verification.ReviewUpdate{
		Status:     verification.StatusRejected,
		ReviewedBy: id.NewMemberID(),
		ReviewedAt: time.Now().UTC(),
	})
	s.Require().NoError(err)

	second := newPendingDocument(owner)
	second.UploadedAt = first.UploadedAt.Add(time.Minute)
	s.Require().NoError(s.store.CreateIfNoneLive(ctx, second))

	pending, err := s.store.ListPending(ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(second.ID, pending[0].ID)

	history, err := s.store.ListByOwner(ctx, owner)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(second.ID, history[0].ID)
	s.Equal(first.ID, history[1].ID)
}
