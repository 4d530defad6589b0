package verification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"reunion/internal/storage"
	id "reunion/pkg/domain"
	"reunion/pkg/platform/sentinel"
)

// PostgresStore persists documents in the verification_documents table.
// A partial unique index on (owner_id) WHERE status IN ('UPLOADED',
// 'PENDING_REVIEW') backs the one-live-document invariant.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const documentColumns = `
	id, owner_id, storage_ref, original_filename, status,
	uploaded_at, reviewed_at, reviewed_by, COALESCE(reviewer_notes, ''), expires_at
`

func (s *PostgresStore) CreateIfNoneLive(ctx context.Context, doc *Document) error {
	query := `
		INSERT INTO verification_documents (
			id, owner_id, storage_ref, original_filename, status,
			uploaded_at, reviewer_notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(doc.ID),
		uuid.UUID(doc.OwnerID),
		string(doc.StorageRef),
		doc.OriginalFilename,
		string(doc.Status),
		doc.UploadedAt,
		doc.ReviewerNotes,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return fmt.Errorf("owner %s has a live document: %w", doc.OwnerID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, docID id.DocumentID) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM verification_documents WHERE id = $1`
	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, uuid.UUID(docID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", docID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) ResolveIfPending(ctx context.Context, docID id.DocumentID, update ReviewUpdate) (*Document, error) {
	query := `
		UPDATE verification_documents
		SET status = $2, reviewed_at = $3, reviewed_by = $4,
		    reviewer_notes = $5, expires_at = $6
		WHERE id = $1 AND status = 'PENDING_REVIEW'
		RETURNING ` + documentColumns
	doc, err := scanDocument(s.db.QueryRowContext(ctx, query,
		uuid.UUID(docID),
		string(update.Status),
		update.ReviewedAt,
		uuid.UUID(update.ReviewedBy),
		update.Notes,
		update.ExpiresAt,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.classifyMiss(ctx, docID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) MarkDeletedIfApproved(ctx context.Context, docID id.DocumentID) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE verification_documents
		SET status = 'DELETED'
		WHERE id = $1 AND status = 'APPROVED'
	`, uuid.UUID(docID))
	if err != nil {
		return fmt.Errorf("mark deleted: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark deleted: %w", err)
	}
	if affected == 0 {
		return s.classifyMiss(ctx, docID)
	}
	return nil
}

// classifyMiss distinguishes a missing row from a row in the wrong state
// after a conditional update touched nothing.
func (s *PostgresStore) classifyMiss(ctx context.Context, docID id.DocumentID) error {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM verification_documents WHERE id = $1`,
		uuid.UUID(docID),
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("document %s: %w", docID, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("query document status: %w", err)
	}
	return fmt.Errorf("document %s is %s: %w", docID, status, sentinel.ErrInvalidState)
}

func (s *PostgresStore) ListExpiredApproved(ctx context.Context, now time.Time, limit int) ([]*Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM verification_documents
		WHERE status = 'APPROVED' AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2
	`
	return s.queryDocuments(ctx, query, now, limit)
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]*Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM verification_documents
		WHERE status = 'PENDING_REVIEW'
		ORDER BY uploaded_at ASC
	`
	return s.queryDocuments(ctx, query)
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID id.MemberID) ([]*Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM verification_documents
		WHERE owner_id = $1
		ORDER BY uploaded_at DESC
	`
	return s.queryDocuments(ctx, query, uuid.UUID(ownerID))
}

func (s *PostgresStore) queryDocuments(ctx context.Context, query string, args ...any) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var (
		doc        Document
		docID      uuid.UUID
		ownerID    uuid.UUID
		ref        string
		status     string
		reviewedBy *uuid.UUID
	)
	err := row.Scan(
		&docID,
		&ownerID,
		&ref,
		&doc.OriginalFilename,
		&status,
		&doc.UploadedAt,
		&doc.ReviewedAt,
		&reviewedBy,
		&doc.ReviewerNotes,
		&doc.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	doc.ID = id.DocumentID(docID)
	doc.OwnerID = id.MemberID(ownerID)
	doc.StorageRef = storage.Ref(ref)
	doc.Status = DocumentStatus(status)
	if reviewedBy != nil {
		rb := id.MemberID(*reviewedBy)
		doc.ReviewedBy = &rb
	}
	return &doc, nil
}
