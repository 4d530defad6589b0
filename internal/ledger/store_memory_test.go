package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "reunion/pkg/domain"
)

type GrantLedgerSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	base  time.Time
}

func (s *GrantLedgerSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
	s.base = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
}

func TestGrantLedgerSuite(t *testing.T) {
	suite.Run(t, new(GrantLedgerSuite))
}

func (s *GrantLedgerSuite) newGrant(viewer, subject id.MemberID, field id.ContactField, reqID id.RequestID, createdAt time.Time) *Grant {
	return &Grant{
		ID:        id.NewGrantID(),
		ViewerID:  viewer,
		SubjectID: subject,
		Field:     field,
		Method:    id.GrantMethodDirectView,
		RequestID: &reqID,
		GrantedBy: subject,
		CreatedAt: createdAt,
	}
}

// TestAppendIdempotency verifies retried approvals cannot double a
// disclosure record.
func (s *GrantLedgerSuite) TestAppendIdempotency() {
	viewer := id.NewMemberID()
	subject := id.NewMemberID()
	reqID := id.NewRequestID()

	s.Run("same viewer subject field and request collapses to one row", func() {
		s.Require().NoError(s.store.Append(s.ctx, s.newGrant(viewer, subject, id.ContactFieldEmail, reqID, s.base)))
		s.Require().NoError(s.store.Append(s.ctx, s.newGrant(viewer, subject, id.ContactFieldEmail, reqID, s.base.Add(time.Minute))))

		s.Len(s.store.All(), 1)
	})

	s.Run("a different field is a distinct row", func() {
		s.Require().NoError(s.store.Append(s.ctx, s.newGrant(viewer, subject, id.ContactFieldPhone, reqID, s.base)))
		s.Len(s.store.All(), 2)
	})

	s.Run("a different request is a distinct row", func() {
		s.Require().NoError(s.store.Append(s.ctx, s.newGrant(viewer, subject, id.ContactFieldEmail, id.NewRequestID(), s.base)))
		s.Len(s.store.All(), 3)
	})
}

// TestListByViewerSubject verifies pair scoping, the since cutoff, and
// ordering.
func (s *GrantLedgerSuite) TestListByViewerSubject() {
	viewer := id.NewMemberID()
	subject := id.NewMemberID()

	s.Run("scopes to the exact viewer subject pair", func() {
		s.Require().NoError(s.store.Append(s.ctx, s.newGrant(viewer, subject, id.ContactFieldEmail, id.NewRequestID(), s.base)))
		s.Require().NoError(s.store.Append(s.ctx, s.newGrant(subject, viewer, id.ContactFieldEmail, id.NewRequestID(), s.base)))

		grants, err := s.store.ListByViewerSubject(s.ctx, viewer, subject, time.Time{})
		s.Require().NoError(err)
		s.Require().Len(grants, 1)
		s.Equal(viewer, grants[0].ViewerID)
	})

	s.Run("drops grants older than the cutoff", func() {
		old := s.newGrant(viewer, subject, id.ContactFieldPhone, id.NewRequestID(), s.base.Add(-400*24*time.Hour))
		s.Require().NoError(s.store.Append(s.ctx, old))

		grants, err := s.store.ListByViewerSubject(s.ctx, viewer, subject, s.base.Add(-365*24*time.Hour))
		s.Require().NoError(err)
		s.Require().Len(grants, 1)
		s.Equal(id.ContactFieldEmail, grants[0].Field)
	})

	s.Run("orders newest first", func() {
		newer := s.newGrant(viewer, subject, id.ContactFieldAddress, id.NewRequestID(), s.base.Add(time.Hour))
		s.Require().NoError(s.store.Append(s.ctx, newer))

		grants, err := s.store.ListByViewerSubject(s.ctx, viewer, subject, time.Time{})
		s.Require().NoError(err)
		s.Require().GreaterOrEqual(len(grants), 2)
		s.Equal(id.ContactFieldAddress, grants[0].Field)
	})
}

// TestCountByViewerSubject verifies pair scoping and the since cutoff on
// the count path.
func (s *GrantLedgerSuite) TestCountByViewerSubject() {
	viewer := id.NewMemberID()
	subject := id.NewMemberID()

	s.Require().NoError(s.store.Append(s.ctx, s.newGrant(viewer, subject, id.ContactFieldEmail, id.NewRequestID(), s.base)))
	s.Require().NoError(s.store.Append(s.ctx, s.newGrant(viewer, subject, id.ContactFieldPhone, id.NewRequestID(), s.base.Add(-400*24*time.Hour))))
	s.Require().NoError(s.store.Append(s.ctx, s.newGrant(subject, viewer, id.ContactFieldEmail, id.NewRequestID(), s.base)))

	s.Run("zero since counts the full history", func() {
		count, err := s.store.CountByViewerSubject(s.ctx, viewer, subject, time.Time{})
		s.Require().NoError(err)
		s.Equal(2, count)
	})

	s.Run("cutoff drops aged grants", func() {
		count, err := s.store.CountByViewerSubject(s.ctx, viewer, subject, s.base.Add(-365*24*time.Hour))
		s.Require().NoError(err)
		s.Equal(1, count)
	})

	s.Run("unknown pair counts zero", func() {
		count, err := s.store.CountByViewerSubject(s.ctx, id.NewMemberID(), subject, time.Time{})
		s.Require().NoError(err)
		s.Zero(count)
	})
}

// TestAuthorizes verifies the read-time validity rule.
func (s *GrantLedgerSuite) TestAuthorizes() {
	window := 365 * 24 * time.Hour
	grant := s.newGrant(id.NewMemberID(), id.NewMemberID(), id.ContactFieldEmail, id.NewRequestID(), s.base)

	s.True(grant.Authorizes(id.ContactFieldEmail, s.base.Add(364*24*time.Hour), window))
	s.False(grant.Authorizes(id.ContactFieldEmail, s.base.Add(366*24*time.Hour), window))
	s.False(grant.Authorizes(id.ContactFieldPhone, s.base.Add(time.Hour), window))
}
