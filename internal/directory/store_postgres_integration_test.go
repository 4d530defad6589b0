//go:build integration

package directory_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"reunion/internal/directory"
	id "reunion/pkg/domain"
	"reunion/pkg/platform/sentinel"
	"reunion/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *directory.PostgresStore
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
	s.store = directory.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "profiles")
	s.Require().NoError(err)
}

// seedProfile inserts directly; profile writes are owned by the membership
// service, so this store has no insert path of its own.
func (s *PostgresStoreSuite) seedProfile(memberID id.MemberID, email string) {
	_, err := s.postgres.DB.ExecContext(context.Background(), `
		INSERT INTO profiles (member_id, family_name, given_name, graduation_year, email, phone_number, address, status)
		VALUES ($1, 'Okafor', 'Chidi', 2004, NULLIF($2, ''), '+31 6 1234 5678', NULL, 'ACTIVE')
	`, uuid.UUID(memberID), email)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestFindProfile() {
	ctx := context.Background()
	memberID := id.NewMemberID()
	s.seedProfile(memberID, "chidi.okafor@example.org")

	profile, err := s.store.FindProfile(ctx, memberID)
	s.Require().NoError(err)
	s.Equal("Okafor", profile.FamilyName)
	s.Equal(2004, profile.GraduationYear)
	s.Equal(directory.AccountActive, profile.Status)
	s.Equal("chidi.okafor@example.org", profile.ContactValue(id.ContactFieldEmail))
	s.Equal("+31 6 1234 5678", profile.ContactValue(id.ContactFieldPhone))
	s.Empty(profile.ContactValue(id.ContactFieldAddress), "NULL column reads as unset")

	_, err = s.store.FindProfile(ctx, id.NewMemberID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
