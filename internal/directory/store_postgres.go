package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "reunion/pkg/domain"
	"reunion/pkg/platform/sentinel"
)

// PostgresStore reads profiles from the members schema owned by the portal's
// registration service. This module never writes these rows.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindProfile(ctx context.Context, memberID id.MemberID) (*Profile, error) {
	query := `
		SELECT member_id, family_name, given_name, graduation_year,
		       COALESCE(email, ''), COALESCE(phone_number, ''), COALESCE(address, ''),
		       status
		FROM profiles
		WHERE member_id = $1
	`

	var (
		p   Profile
		mid uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(memberID)).Scan(
		&mid,
		&p.FamilyName,
		&p.GivenName,
		&p.GraduationYear,
		&p.Email,
		&p.PhoneNumber,
		&p.Address,
		&p.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", memberID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	p.MemberID = id.MemberID(mid)
	return &p, nil
}
