package handle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "reunion/pkg/domain"
	"reunion/pkg/platform/sentinel"
)

type HandleStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func (s *HandleStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	s.store = NewInMemory(WithClock(func() time.Time { return s.now }))
}

func TestHandleStoreSuite(t *testing.T) {
	suite.Run(t, new(HandleStoreSuite))
}

func (s *HandleStoreSuite) TestLifecycle() {
	docID := id.NewDocumentID()
	h := ReviewHandle{
		DocumentID:  docID,
		RequesterID: id.NewMemberID(),
		URL:         "memory://verification-documents/test?ttl=300",
		ExpiresAt:   s.now.Add(5 * time.Minute),
	}

	s.Run("saved handle is active within its TTL", func() {
		s.Require().NoError(s.store.Save(s.ctx, h, 5*time.Minute))

		found, err := s.store.Active(s.ctx, docID)
		s.Require().NoError(err)
		s.Equal(h.URL, found.URL)
		s.Equal(h.RequesterID, found.RequesterID)
	})

	s.Run("handle lapses after its TTL", func() {
		s.now = s.now.Add(5*time.Minute + time.Second)
		_, err := s.store.Active(s.ctx, docID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("unknown document has no handle", func() {
		_, err := s.store.Active(s.ctx, id.NewDocumentID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *HandleStoreSuite) TestInvalidate() {
	docID := id.NewDocumentID()
	h := ReviewHandle{DocumentID: docID, RequesterID: id.NewMemberID(), URL: "memory://x"}

	s.Run("revokes an outstanding handle", func() {
		s.Require().NoError(s.store.Save(s.ctx, h, time.Hour))
		s.Require().NoError(s.store.Invalidate(s.ctx, docID))

		_, err := s.store.Active(s.ctx, docID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("revoking a missing handle is not an error", func() {
		s.NoError(s.store.Invalidate(s.ctx, id.NewDocumentID()))
	})
}

func (s *HandleStoreSuite) TestSaveReplacesExisting() {
	docID := id.NewDocumentID()
	first := ReviewHandle{DocumentID: docID, URL: "memory://first"}
	second := ReviewHandle{DocumentID: docID, URL: "memory://second"}

	s.Require().NoError(s.store.Save(s.ctx, first, time.Minute))
	s.Require().NoError(s.store.Save(s.ctx, second, time.Minute))

	found, err := s.store.Active(s.ctx, docID)
	s.Require().NoError(err)
	s.Equal(second.URL, found.URL)
}
