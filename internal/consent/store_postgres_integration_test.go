//go:build integration

package consent_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"reunion/internal/consent"
	id "reunion/pkg/domain"
	"reunion/pkg/platform/sentinel"
	"reunion/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *consent.PostgresStore
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
	s.store = consent.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "contact_access_requests")
	s.Require().NoError(err)
}

func newPendingRequest(requester, target id.MemberID) *consent.Request {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &consent.Request{
		ID:          id.NewRequestID(),
		RequesterID: requester,
		TargetID:    target,
		Status:      consent.StatusPending,
		Fields:      []id.ContactField{id.ContactFieldEmail, id.ContactFieldPhone},
		Reason:      "class of 2004 reunion",
		ExpiresAt:   now.Add(30 * 24 * time.Hour),
		CreatedAt:   now,
	}
}

// TestPendingUniqueness verifies the partial unique index allows one
// pending request per pair, and a new one once the first resolves.
func (s *PostgresStoreSuite) TestPendingUniqueness() {
	ctx := context.Background()
	requester, target := id.NewMemberID(), id.NewMemberID()

	first := newPendingRequest(requester, target)
	s.Require().NoError(s.store.CreateIfNonePending(ctx, first))

	err := s.store.CreateIfNonePending(ctx, newPendingRequest(requester, target))
	s.ErrorIs(err, sentinel.ErrConflict)

	// Opposite direction is a different pair.
	s.NoError(s.store.CreateIfNonePending(ctx, newPendingRequest(target, requester)))

	_, err = s.store.ResolveIfPending(ctx, first.ID, consent.ResponseUpdate{
		Status:      consent.StatusRejected,
		RespondedAt: time.Now().UTC(),
	})
	s.Require().NoError(err)

	s.NoError(s.store.CreateIfNonePending(ctx, newPendingRequest(requester, target)))
}

// TestConcurrentResponses verifies racing responses elect a single winner.
func (s *PostgresStoreSuite) TestConcurrentResponses() {
	ctx := context.Background()
	req := newPendingRequest(id.NewMemberID(), id.NewMemberID())
	s.Require().NoError(s.store.CreateIfNonePending(ctx, req))

	const goroutines = 20
	var wg sync.WaitGroup
	var wins atomic.Int32
	var losses atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.ResolveIfPending(ctx, req.ID, consent.ResponseUpdate{
				Status:      consent.StatusApproved,
				RespondedAt: time.Now().UTC(),
			})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrInvalidState):
				losses.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(goroutines-1), losses.Load())
}

// TestBlockFlag verifies block persistence and direction.
func (s *PostgresStoreSuite) TestBlockFlag() {
	ctx := context.Background()
	requester, target := id.NewMemberID(), id.NewMemberID()

	req := newPendingRequest(requester, target)
	s.Require().NoError(s.store.CreateIfNonePending(ctx, req))
	_, err := s.store.ResolveIfPending(ctx, req.ID, consent.ResponseUpdate{
		Status:      consent.StatusRejected,
		RespondedAt: time.Now().UTC(),
		BlockFuture: true,
	})
	s.Require().NoError(err)

	blocked, err := s.store.HasBlock(ctx, requester, target)
	s.NoError(err)
	s.True(blocked)

	reverse, err := s.store.HasBlock(ctx, target, requester)
	s.NoError(err)
	s.False(reverse)
}

// TestRoundTrip verifies the fields array and nullable columns survive
// storage.
func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	req := newPendingRequest(id.NewMemberID(), id.NewMemberID())
	s.Require().NoError(s.store.CreateIfNonePending(ctx, req))

	stored, err := s.store.FindByID(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(req.Fields, stored.Fields)
	s.Equal(req.Reason, stored.Reason)
	s.Nil(stored.RespondedAt)
	s.WithinDuration(req.ExpiresAt, stored.ExpiresAt, time.Millisecond)
}

// TestSweepQueries verifies expiry listing order, the batch limit, and the
// exactly-once expiry mark.
func (s *PostgresStoreSuite) TestSweepQueries() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	older := newPendingRequest(id.NewMemberID(), id.NewMemberID())
	older.ExpiresAt = now.Add(-2 * time.Hour)
	newer := newPendingRequest(id.NewMemberID(), id.NewMemberID())
	newer.ExpiresAt = now.Add(-time.Hour)
	open := newPendingRequest(id.NewMemberID(), id.NewMemberID())
	s.Require().NoError(s.store.CreateIfNonePending(ctx, older))
	s.Require().NoError(s.store.CreateIfNonePending(ctx, newer))
	s.Require().NoError(s.store.CreateIfNonePending(ctx, open))

	expired, err := s.store.ListExpiredPending(ctx, now, 10)
	s.Require().NoError(err)
	s.Require().Len(expired, 2)
	s.Equal(older.ID, expired[0].ID)
	s.Equal(newer.ID, expired[1].ID)

	limited, err := s.store.ListExpiredPending(ctx, now, 1)
	s.Require().NoError(err)
	s.Len(limited, 1)

	s.NoError(s.store.MarkExpiredIfPending(ctx, older.ID))
	s.ErrorIs(s.store.MarkExpiredIfPending(ctx, older.ID), sentinel.ErrInvalidState)

	expired, err = s.store.ListExpiredPending(ctx, now, 10)
	s.Require().NoError(err)
	s.Require().Len(expired, 1)
	s.Equal(newer.ID, expired[0].ID)
}
