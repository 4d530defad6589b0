package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	id "reunion/pkg/domain"
	"reunion/pkg/platform/sentinel"
)

// PostgresStore persists entries in the audit_entries table. The detail
// blob is stored as JSONB in its versioned envelope.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const entryColumns = `
	id, actor_id, action, resource_type, COALESCE(resource_id, ''), detail,
	COALESCE(actor_ip, ''), COALESCE(actor_agent, ''), COALESCE(agent_summary, ''),
	requires_approval, approval_status, approver_id,
	COALESCE(approval_reason, ''), approved_at, created_at
`

func (s *PostgresStore) Append(ctx context.Context, entry *Entry) error {
	detail, err := EncodeDetail(entry.Detail)
	if err != nil {
		return fmt.Errorf("encode detail: %w", err)
	}

	query := `
		INSERT INTO audit_entries (
			id, actor_id, action, resource_type, resource_id, detail,
			actor_ip, actor_agent, agent_summary,
			requires_approval, approval_status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		memberIDArg(entry.ActorID),
		string(entry.Action),
		string(entry.ResourceType),
		entry.ResourceID,
		detail,
		entry.ActorIP,
		entry.ActorAgent,
		entry.AgentSummary,
		entry.RequiresApproval,
		string(entry.ApprovalStatus),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, entryID id.EntryID) (*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM audit_entries WHERE id = $1`
	entry, err := scanEntry(s.db.QueryRowContext(ctx, query, uuid.UUID(entryID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("audit entry %s: %w", entryID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query audit entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) ResolveIfPendingApproval(ctx context.Context, entryID id.EntryID, update ApprovalUpdate) (*Entry, error) {
	query := `
		UPDATE audit_entries
		SET approval_status = $2, approver_id = $3,
		    approval_reason = $4, approved_at = $5
		WHERE id = $1 AND approval_status = 'PENDING'
		RETURNING ` + entryColumns
	entry, err := scanEntry(s.db.QueryRowContext(ctx, query,
		uuid.UUID(entryID),
		string(update.Status),
		uuid.UUID(update.ApproverID),
		update.Reason,
		update.ApprovedAt,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.classifyMiss(ctx, entryID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve approval: %w", err)
	}
	return entry, nil
}

// classifyMiss distinguishes a missing row from a row in the wrong state
// after a conditional update touched nothing.
func (s *PostgresStore) classifyMiss(ctx context.Context, entryID id.EntryID) error {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT approval_status FROM audit_entries WHERE id = $1`,
		uuid.UUID(entryID),
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("audit entry %s: %w", entryID, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("query approval status: %w", err)
	}
	return fmt.Errorf("audit entry %s approval is %s: %w", entryID, status, sentinel.ErrInvalidState)
}

func (s *PostgresStore) ListPendingApprovals(ctx context.Context) ([]*Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM audit_entries
		WHERE requires_approval AND approval_status = 'PENDING'
		ORDER BY created_at ASC
	`
	entries, err := s.queryEntries(ctx, query)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *PostgresStore) Search(ctx context.Context, filters Filters, offset, limit int) ([]*Entry, int, error) {
	where, args := buildFilterClause(filters)

	var total int
	countQuery := `SELECT COUNT(*) FROM audit_entries` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	query := `SELECT ` + entryColumns + ` FROM audit_entries` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	entries, err := s.queryEntries(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *PostgresStore) ListRecentByActor(ctx context.Context, actorID id.MemberID, limit int) ([]*Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM audit_entries
		WHERE actor_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return s.queryEntries(ctx, query, uuid.UUID(actorID), limit)
}

func buildFilterClause(filters Filters) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filters.ActorID != nil {
		add("actor_id = $%d", uuid.UUID(*filters.ActorID))
	}
	if filters.Action != nil {
		add("action = $%d", string(*filters.Action))
	}
	if filters.ResourceType != nil {
		add("resource_type = $%d", string(*filters.ResourceType))
	}
	if filters.ApprovalStatus != nil {
		add("approval_status = $%d", string(*filters.ApprovalStatus))
	}
	if filters.From != nil {
		add("created_at >= $%d", *filters.From)
	}
	if filters.To != nil {
		add("created_at <= $%d", *filters.To)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *PostgresStore) queryEntries(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func memberIDArg(memberID *id.MemberID) any {
	if memberID == nil {
		return nil
	}
	return uuid.UUID(*memberID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		entry      Entry
		entryID    uuid.UUID
		actorID    *uuid.UUID
		action     string
		resource   string
		detail     []byte
		status     string
		approverID *uuid.UUID
	)
	err := row.Scan(
		&entryID,
		&actorID,
		&action,
		&resource,
		&entry.ResourceID,
		&detail,
		&entry.ActorIP,
		&entry.ActorAgent,
		&entry.AgentSummary,
		&entry.RequiresApproval,
		&status,
		&approverID,
		&entry.ApprovalReason,
		&entry.ApprovedAt,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.ID = id.EntryID(entryID)
	if actorID != nil {
		actor := id.MemberID(*actorID)
		entry.ActorID = &actor
	}
	entry.Action = ActionKind(action)
	entry.ResourceType = ResourceType(resource)
	entry.ApprovalStatus = ApprovalStatus(status)
	if approverID != nil {
		approver := id.MemberID(*approverID)
		entry.ApproverID = &approver
	}
	if entry.Detail, err = DecodeDetail(detail); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *PostgresStore) Stats(ctx context.Context, from, to time.Time) (*Stats, error) {
	stats := &Stats{
		ByAction:   make(map[ActionKind]int),
		ByResource: make(map[ResourceType]int),
	}

	actionQuery := `
		SELECT action, COUNT(*)
		FROM audit_entries
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY action
	`
	rows, err := s.db.QueryContext(ctx, actionQuery, from, to)
	if err != nil {
		return nil, fmt.Errorf("group audit entries by action: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("scan action count: %w", err)
		}
		stats.ByAction[ActionKind(action)] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action counts: %w", err)
	}

	resourceQuery := `
		SELECT resource_type, COUNT(*)
		FROM audit_entries
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY resource_type
	`
	resourceRows, err := s.db.QueryContext(ctx, resourceQuery, from, to)
	if err != nil {
		return nil, fmt.Errorf("group audit entries by resource: %w", err)
	}
	defer resourceRows.Close()
	for resourceRows.Next() {
		var resource string
		var count int
		if err := resourceRows.Scan(&resource, &count); err != nil {
			return nil, fmt.Errorf("scan resource count: %w", err)
		}
		stats.ByResource[ResourceType(resource)] = count
	}
	if err := resourceRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resource counts: %w", err)
	}

	pendingQuery := `
		SELECT COUNT(*)
		FROM audit_entries
		WHERE requires_approval AND approval_status = 'PENDING'
		  AND created_at >= $1 AND created_at <= $2
	`
	if err := s.db.QueryRowContext(ctx, pendingQuery, from, to).Scan(&stats.PendingApprovals); err != nil {
		return nil, fmt.Errorf("count pending approvals: %w", err)
	}
	return stats, nil
}
