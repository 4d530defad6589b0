//go:build integration

package handle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"reunion/internal/verification/handle"
	id "reunion/pkg/domain"
	"reunion/pkg/platform/sentinel"
	"reunion/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *handle.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = handle.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.redis.FlushAll(ctx)
	s.Require().NoError(err)
}

func makeHandle(docID id.DocumentID, ttl time.Duration) handle.ReviewHandle {
	return handle.ReviewHandle{
		DocumentID:  docID,
		RequesterID: id.NewMemberID(),
		URL:         "https://objects.internal/signed/" + docID.String(),
		ExpiresAt:   time.Now().UTC().Add(ttl).Truncate(time.Millisecond),
	}
}

// TestLifecycle verifies a saved handle round-trips and vanishes once its
// Redis TTL lapses.
func (s *RedisStoreSuite) TestLifecycle() {
	ctx := context.Background()
	docID := id.NewDocumentID()
	h := makeHandle(docID, 5*time.Minute)

	s.Require().NoError(s.store.Save(ctx, h, 5*time.Minute))

	active, err := s.store.Active(ctx, docID)
	s.Require().NoError(err)
	s.Equal(h.RequesterID, active.RequesterID)
	s.Equal(h.URL, active.URL)
	s.WithinDuration(h.ExpiresAt, active.ExpiresAt, time.Millisecond)

	_, err = s.store.Active(ctx, id.NewDocumentID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestExpiry uses a real sub-second TTL; no sweeper is involved.
func (s *RedisStoreSuite) TestExpiry() {
	ctx := context.Background()
	docID := id.NewDocumentID()

	s.Require().NoError(s.store.Save(ctx, makeHandle(docID, 100*time.Millisecond), 100*time.Millisecond))

	s.Eventually(func() bool {
		_, err := s.store.Active(ctx, docID)
		return err != nil
	}, 2*time.Second, 50*time.Millisecond)
}

// TestInvalidate verifies early revocation and that revoking a missing
// handle is not an error.
func (s *RedisStoreSuite) TestInvalidate() {
	ctx := context.Background()
	docID := id.NewDocumentID()

	s.Require().NoError(s.store.Save(ctx, makeHandle(docID, time.Minute), time.Minute))
	s.Require().NoError(s.store.Invalidate(ctx, docID))

	_, err := s.store.Active(ctx, docID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.NoError(s.store.Invalidate(ctx, id.NewDocumentID()))
}

// TestSaveReplacesExisting keeps at most one active handle per document.
func (s *RedisStoreSuite) TestSaveReplacesExisting() {
	ctx := context.Background()
	docID := id.NewDocumentID()

	s.Require().NoError(s.store.Save(ctx, makeHandle(docID, time.Minute), time.Minute))
	replacement := makeHandle(docID, time.Minute)
	s.Require().NoError(s.store.Save(ctx, replacement, time.Minute))

	active, err := s.store.Active(ctx, docID)
	s.Require().NoError(err)
	s.Equal(replacement.RequesterID, active.RequesterID)
}
