//go:build integration

package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"reunion/internal/ledger"
	id "reunion/pkg/domain"
	"reunion/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *ledger.PostgresStore
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
	s.store = ledger.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "contact_access_grants")
	s.Require().NoError(err)
}

func newGrant(viewer, subject id.MemberID, field id.ContactField, requestID id.RequestID) *ledger.Grant {
	rid := requestID
	return &ledger.Grant{
		ID:        id.NewGrantID(),
		ViewerID:  viewer,
		SubjectID: subject,
		Field:     field,
		Method:    id.GrantMethodDirectView,
		RequestID: &rid,
		GrantedBy: subject,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// TestAppendIdempotency verifies the unique index collapses retried appends
// of the same disclosure key, including concurrent retries.
func (s *PostgresStoreSuite) TestAppendIdempotency() {
	ctx := context.Background()
	viewer, subject := id.NewMemberID(), id.NewMemberID()
	requestID := id.NewRequestID()

	const goroutines = 20
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			grant := newGrant(viewer, subject, id.ContactFieldEmail, requestID)
			s.NoError(s.store.Append(ctx, grant))
		}()
	}
	wg.Wait()

	grants, err := s.store.ListByViewerSubject(ctx, viewer, subject, time.Time{})
	s.Require().NoError(err)
	s.Len(grants, 1)

	// A different field or a different request is a distinct disclosure.
	s.NoError(s.store.Append(ctx, newGrant(viewer, subject, id.ContactFieldPhone, requestID)))
	s.NoError(s.store.Append(ctx, newGrant(viewer, subject, id.ContactFieldEmail, id.NewRequestID())))

	grants, err = s.store.ListByViewerSubject(ctx, viewer, subject, time.Time{})
	s.Require().NoError(err)
	s.Len(grants, 3)
}

// TestListByViewerSubject verifies pair scoping and the since cutoff.
func (s *PostgresStoreSuite) TestListByViewerSubject() {
	ctx := context.Background()
	viewer, subject := id.NewMemberID(), id.NewMemberID()

	old := newGrant(viewer, subject, id.ContactFieldEmail, id.NewRequestID())
	old.CreatedAt = time.Now().UTC().Add(-400 * 24 * time.Hour).Truncate(time.Microsecond)
	fresh := newGrant(viewer, subject, id.ContactFieldPhone, id.NewRequestID())
	other := newGrant(subject, viewer, id.ContactFieldEmail, id.NewRequestID())
	s.Require().NoError(s.store.Append(ctx, old))
	s.Require().NoError(s.store.Append(ctx, fresh))
	s.Require().NoError(s.store.Append(ctx, other))

	since := time.Now().UTC().Add(-365 * 24 * time.Hour)
	grants, err := s.store.ListByViewerSubject(ctx, viewer, subject, since)
	s.Require().NoError(err)
	s.Require().Len(grants, 1)
	s.Equal(fresh.ID, grants[0].ID)
	s.Equal(id.ContactFieldPhone, grants[0].Field)
	s.Require().NotNil(grants[0].RequestID)
	s.Equal(*fresh.RequestID, *grants[0].RequestID)
}

// TestCountByViewerSubject verifies the count path agrees with the listing
// under the same cutoff.
func (s *PostgresStoreSuite) TestCountByViewerSubject() {
	ctx := context.Background()
	viewer, subject := id.NewMemberID(), id.NewMemberID()

	old := newGrant(viewer, subject, id.ContactFieldEmail, id.NewRequestID())
	old.CreatedAt = time.Now().UTC().Add(-400 * 24 * time.Hour).Truncate(time.Microsecond)
	s.Require().NoError(s.store.Append(ctx, old))
	s.Require().NoError(s.store.Append(ctx, newGrant(viewer, subject, id.ContactFieldPhone, id.NewRequestID())))
	s.Require().NoError(s.store.Append(ctx, newGrant(subject, viewer, id.ContactFieldEmail, id.NewRequestID())))

	total, err := s.store.CountByViewerSubject(ctx, viewer, subject, time.Time{})
	s.Require().NoError(err)
	s.Equal(2, total)

	recent, err := s.store.CountByViewerSubject(ctx, viewer, subject, time.Now().UTC().Add(-365*24*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, recent)
}
