package consent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "reunion/pkg/domain"
	"reunion/pkg/platform/sentinel"
)

// PostgresStore persists requests in the contact_access_requests table.
// A partial unique index on (requester_id, target_id) WHERE status =
// 'PENDING' backs the one-pending-request-per-pair invariant.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const requestColumns = `
	id, requester_id, target_id, status, fields, COALESCE(reason, ''),
	block_future, expires_at, created_at, responded_at
`

func (s *PostgresStore) CreateIfNonePending(ctx context.Context, req *Request) error {
	query := `
		INSERT INTO contact_access_requests (
			id, requester_id, target_id, status, fields, reason,
			block_future, expires_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(req.ID),
		uuid.UUID(req.RequesterID),
		uuid.UUID(req.TargetID),
		string(req.Status),
		fieldArray(req.Fields),
		req.Reason,
		req.BlockFuture,
		req.ExpiresAt,
		req.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return fmt.Errorf("pending request %s→%s exists: %w",
			req.RequesterID, req.TargetID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, reqID id.RequestID) (*Request, error) {
	query := `SELECT ` + requestColumns + ` FROM contact_access_requests WHERE id = $1`
	req, err := scanRequest(s.db.QueryRowContext(ctx, query, uuid.UUID(reqID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("request %s: %w", reqID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) ResolveIfPending(ctx context.Context, reqID id.RequestID, update ResponseUpdate) (*Request, error) {
	query := `
		UPDATE contact_access_requests
		SET status = $2, responded_at = $3, block_future = $4
		WHERE id = $1 AND status = 'PENDING'
		RETURNING ` + requestColumns
	req, err := scanRequest(s.db.QueryRowContext(ctx, query,
		uuid.UUID(reqID),
		string(update.Status),
		update.RespondedAt,
		update.BlockFuture,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.classifyMiss(ctx, reqID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) HasBlock(ctx context.Context, requesterID, targetID id.MemberID) (bool, error) {
	var blocked bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM contact_access_requests
			WHERE requester_id = $1 AND target_id = $2 AND block_future
		)
	`, uuid.UUID(requesterID), uuid.UUID(targetID)).Scan(&blocked)
	if err != nil {
		return false, fmt.Errorf("query block flag: %w", err)
	}
	return blocked, nil
}

func (s *PostgresStore) ListReceived(ctx context.Context, targetID id.MemberID, now time.Time) ([]*Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM contact_access_requests
		WHERE target_id = $1 AND status = 'PENDING' AND expires_at > $2
		ORDER BY created_at DESC
	`
	return s.queryRequests(ctx, query, uuid.UUID(targetID), now)
}

func (s *PostgresStore) ListSent(ctx context.Context, requesterID id.MemberID) ([]*Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM contact_access_requests
		WHERE requester_id = $1
		ORDER BY created_at DESC
	`
	return s.queryRequests(ctx, query, uuid.UUID(requesterID))
}

func (s *PostgresStore) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM contact_access_requests
		WHERE status = 'PENDING' AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2
	`
	return s.queryRequests(ctx, query, now, limit)
}

func (s *PostgresStore) MarkExpiredIfPending(ctx context.Context, reqID id.RequestID) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE contact_access_requests
		SET status = 'EXPIRED'
		WHERE id = $1 AND status = 'PENDING'
	`, uuid.UUID(reqID))
	if err != nil {
		return fmt.Errorf("mark expired: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark expired: %w", err)
	}
	if affected == 0 {
		return s.classifyMiss(ctx, reqID)
	}
	return nil
}

// classifyMiss distinguishes a missing row from a row in the wrong state
// after a conditional update touched nothing.
func (s *PostgresStore) classifyMiss(ctx context.Context, reqID id.RequestID) error {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM contact_access_requests WHERE id = $1`,
		uuid.UUID(reqID),
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("request %s: %w", reqID, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("query request status: %w", err)
	}
	return fmt.Errorf("request %s is %s: %w", reqID, status, sentinel.ErrInvalidState)
}

func (s *PostgresStore) queryRequests(ctx context.Context, query string, args ...any) ([]*Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	var reqs []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return reqs, nil
}

func fieldArray(fields []id.ContactField) pq.StringArray {
	out := make(pq.StringArray, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var (
		req         Request
		reqID       uuid.UUID
		requesterID uuid.UUID
		targetID    uuid.UUID
		status      string
		fields      pq.StringArray
	)
	err := row.Scan(
		&reqID,
		&requesterID,
		&targetID,
		&status,
		&fields,
		&req.Reason,
		&req.BlockFuture,
		&req.ExpiresAt,
		&req.CreatedAt,
		&req.RespondedAt,
	)
	if err != nil {
		return nil, err
	}
	req.ID = id.RequestID(reqID)
	req.RequesterID = id.MemberID(requesterID)
	req.TargetID = id.MemberID(targetID)
	req.Status = RequestStatus(status)
	req.Fields = make([]id.ContactField, len(fields))
	for i, f := range fields {
		req.Fields[i] = id.ContactField(f)
	}
	return &req, nil
}
