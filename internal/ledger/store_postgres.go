package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "reunion/pkg/domain"
)

// PostgresStore persists grants in the contact_access_grants table. The
// table carries a unique index on (viewer_id, subject_id, contact_field,
// request_id); Append relies on it for idempotent retries.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, grant *Grant) error {
	query := `
		INSERT INTO contact_access_grants (
			id, viewer_id, subject_id, contact_field, grant_method,
			request_id, granted_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (viewer_id, subject_id, contact_field, request_id) DO NOTHING
	`

	var requestID *uuid.UUID
	if grant.RequestID != nil {
		rid := uuid.UUID(*grant.RequestID)
		requestID = &rid
	}

	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(grant.ID),
		uuid.UUID(grant.ViewerID),
		uuid.UUID(grant.SubjectID),
		string(grant.Field),
		string(grant.Method),
		requestID,
		uuid.UUID(grant.GrantedBy),
		grant.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert grant: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByViewerSubject(ctx context.Context, viewerID, subjectID id.MemberID, since time.Time) ([]*Grant, error) {
	query := `
		SELECT id, viewer_id, subject_id, contact_field, grant_method,
		       request_id, granted_by, created_at
		FROM contact_access_grants
		WHERE viewer_id = $1 AND subject_id = $2 AND created_at >= $3
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(viewerID), uuid.UUID(subjectID), since)
	if err != nil {
		return nil, fmt.Errorf("query grants: %w", err)
	}
	defer rows.Close()

	var grants []*Grant
	for rows.Next() {
		var (
			grant     Grant
			gid       uuid.UUID
			viewer    uuid.UUID
			subject   uuid.UUID
			field     string
			method    string
			requestID *uuid.UUID
			grantedBy uuid.UUID
		)
		err := rows.Scan(&gid, &viewer, &subject, &field, &method, &requestID, &grantedBy, &grant.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		grant.ID = id.GrantID(gid)
		grant.ViewerID = id.MemberID(viewer)
		grant.SubjectID = id.MemberID(subject)
		grant.Field = id.ContactField(field)
		grant.Method = id.GrantMethod(method)
		grant.GrantedBy = id.MemberID(grantedBy)
		if requestID != nil {
			rid := id.RequestID(*requestID)
			grant.RequestID = &rid
		}
		grants = append(grants, &grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}
	return grants, nil
}

func (s *PostgresStore) CountByViewerSubject(ctx context.Context, viewerID, subjectID id.MemberID, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM contact_access_grants
		WHERE viewer_id = $1 AND subject_id = $2 AND created_at >= $3
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(viewerID), uuid.UUID(subjectID), since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count grants: %w", err)
	}
	return count, nil
}
