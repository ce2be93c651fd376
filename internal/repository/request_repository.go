package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
)

// ErrStaleVersion signals that an update lost an optimistic-concurrency race:
// the row changed since the caller's read. Callers re-read and may retry.
var ErrStaleVersion = errors.New("stale request version")

// RequestFilter captures query parameters for listing service requests.
type RequestFilter struct {
	CurrentRole   *domain.Role
	HistoryRole   *domain.Role // OR'd with CurrentRole for supervisory visibility
	Statuses      []domain.RequestStatus
	WorkflowTypes []domain.WorkflowType
	AssigneeID    *string
	Unassigned    bool
	SearchTerm    *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

// RequestRepository encapsulates service-request persistence. Create and
// Update write the request row and its role history atomically in one
// transaction; Update enforces the version check.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.ServiceRequest) error
	Update(ctx context.Context, req *domain.ServiceRequest) error
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	GetByExternalKey(ctx context.Context, key string) (*domain.ServiceRequest, error)
	ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.ServiceRequest, error)
	CountWithFilter(ctx context.Context, filter RequestFilter) (int, error)
	CountActiveByAssignee(ctx context.Context, assigneeIDs []string) (map[string]int, error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates the repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestColumns = `id, external_key, workflow_type, status, priority,
               contact_name, contact_phone, location, description, diagnosis,
               material_items, returned_to_id, completion_notes, cancel_reason,
               holder_role, current_assignee_id, version, created_at, updated_at`

func (r *requestRepository) Create(ctx context.Context, req *domain.ServiceRequest) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// timestamps come from the caller so created_at matches the first role
	// entry's entered_at exactly
	const query = `
        INSERT INTO service_requests (external_key, workflow_type, status, priority,
            contact_name, contact_phone, location, description, diagnosis,
            material_items, returned_to_id, completion_notes, cancel_reason,
            holder_role, current_assignee_id, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
        RETURNING id, version`
	if err := tx.QueryRow(ctx, query,
		req.ExternalKey,
		req.WorkflowType,
		req.Status,
		req.Priority,
		req.Contact.Name,
		req.Contact.Phone,
		req.Location,
		req.Description,
		req.Diagnosis,
		req.MaterialItems,
		req.ReturnedToID,
		req.CompletionNotes,
		req.CancelReason,
		req.CurrentRole,
		req.CurrentAssigneeID,
		req.CreatedAt,
		req.UpdatedAt,
	).Scan(&req.ID, &req.Version); err != nil {
		return err
	}

	for i := range req.RoleHistory {
		if err := insertRoleEntry(ctx, tx, req.ID, &req.RoleHistory[i]); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *requestRepository) Update(ctx context.Context, req *domain.ServiceRequest) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE service_requests
        SET status=$1, priority=$2, diagnosis=$3, material_items=$4,
            returned_to_id=$5, completion_notes=$6, cancel_reason=$7,
            holder_role=$8, current_assignee_id=$9,
            version=version+1, updated_at=NOW()
        WHERE id=$10 AND version=$11
        RETURNING version, updated_at`
	if err := tx.QueryRow(ctx, query,
		req.Status,
		req.Priority,
		req.Diagnosis,
		req.MaterialItems,
		req.ReturnedToID,
		req.CompletionNotes,
		req.CancelReason,
		req.CurrentRole,
		req.CurrentAssigneeID,
		req.ID,
		req.Version,
	).Scan(&req.Version, &req.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.classifyMissedUpdate(ctx, req.ID)
		}
		return err
	}

	for i := range req.RoleHistory {
		entry := &req.RoleHistory[i]
		if entry.ID == "" {
			if err := insertRoleEntry(ctx, tx, req.ID, entry); err != nil {
				return err
			}
			continue
		}
		const closeQuery = `UPDATE role_entries SET left_at=$1 WHERE id=$2`
		if _, err := tx.Exec(ctx, closeQuery, entry.LeftAt, entry.ID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// classifyMissedUpdate distinguishes a vanished row from a lost race.
func (r *requestRepository) classifyMissedUpdate(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM service_requests WHERE id=$1)`, id,
	).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrStaleVersion
	}
	return pgx.ErrNoRows
}

func insertRoleEntry(ctx context.Context, tx pgx.Tx, requestID string, entry *domain.RoleEntry) error {
	const query = `
        INSERT INTO role_entries (request_id, role, actor_id, entered_at, left_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return tx.QueryRow(ctx, query,
		requestID,
		entry.Role,
		entry.ActorID,
		entry.EnteredAt,
		entry.LeftAt,
	).Scan(&entry.ID)
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_requests WHERE id=$1`, requestColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *requestRepository) GetByExternalKey(ctx context.Context, key string) (*domain.ServiceRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_requests WHERE external_key=$1`, requestColumns)
	return r.fetchSingle(ctx, query, key)
}

func (r *requestRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.ServiceRequest, error) {
	var req domain.ServiceRequest
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&req.ID,
		&req.ExternalKey,
		&req.WorkflowType,
		&req.Status,
		&req.Priority,
		&req.Contact.Name,
		&req.Contact.Phone,
		&req.Location,
		&req.Description,
		&req.Diagnosis,
		&req.MaterialItems,
		&req.ReturnedToID,
		&req.CompletionNotes,
		&req.CancelReason,
		&req.CurrentRole,
		&req.CurrentAssigneeID,
		&req.Version,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	history, err := r.loadHistory(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	req.RoleHistory = history
	return &req, nil
}

func (r *requestRepository) loadHistory(ctx context.Context, requestID string) ([]domain.RoleEntry, error) {
	const query = `
        SELECT id, role, actor_id, entered_at, left_at
        FROM role_entries WHERE request_id=$1
        ORDER BY entered_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.RoleEntry
	for rows.Next() {
		var entry domain.RoleEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Role,
			&entry.ActorID,
			&entry.EnteredAt,
			&entry.LeftAt,
		); err != nil {
			return nil, err
		}
		history = append(history, entry)
	}
	return history, rows.Err()
}

func (r *requestRepository) ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.ServiceRequest, error) {
	clauses, args := buildRequestClauses(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM service_requests WHERE %s
        ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		requestColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceRequest
	for rows.Next() {
		var req domain.ServiceRequest
		if err := rows.Scan(
			&req.ID,
			&req.ExternalKey,
			&req.WorkflowType,
			&req.Status,
			&req.Priority,
			&req.Contact.Name,
			&req.Contact.Phone,
			&req.Location,
			&req.Description,
			&req.Diagnosis,
			&req.MaterialItems,
			&req.ReturnedToID,
			&req.CompletionNotes,
			&req.CancelReason,
			&req.CurrentRole,
			&req.CurrentAssigneeID,
			&req.Version,
			&req.CreatedAt,
			&req.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		history, err := r.loadHistory(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].RoleHistory = history
	}
	return result, nil
}

func (r *requestRepository) CountWithFilter(ctx context.Context, filter RequestFilter) (int, error) {
	clauses, args := buildRequestClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM service_requests WHERE %s`,
		strings.Join(clauses, " AND "))
	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func buildRequestClauses(filter RequestFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CurrentRole != nil && filter.HistoryRole != nil {
		args = append(args, *filter.CurrentRole, *filter.HistoryRole)
		clauses = append(clauses, fmt.Sprintf(
			`(holder_role=$%d OR EXISTS (
                SELECT 1 FROM role_entries re
                WHERE re.request_id=service_requests.id AND re.role=$%d))`,
			len(args)-1, len(args)))
	} else if filter.CurrentRole != nil {
		args = append(args, *filter.CurrentRole)
		clauses = append(clauses, fmt.Sprintf("holder_role=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.WorkflowTypes) > 0 {
		placeholders := make([]string, len(filter.WorkflowTypes))
		for i, wt := range filter.WorkflowTypes {
			args = append(args, wt)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("workflow_type IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Unassigned {
		clauses = append(clauses, "current_assignee_id IS NULL")
	} else if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("current_assignee_id=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.TrimSpace(*filter.SearchTerm) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			`(external_key ILIKE %[1]s OR contact_name ILIKE %[1]s OR contact_phone ILIKE %[1]s
              OR description ILIKE %[1]s OR location ILIKE %[1]s)`, placeholder))
	}
	return clauses, args
}

func (r *requestRepository) CountActiveByAssignee(ctx context.Context, assigneeIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(assigneeIDs))
	if len(assigneeIDs) == 0 {
		return counts, nil
	}
	const query = `
        SELECT current_assignee_id, COUNT(*)
        FROM service_requests
        WHERE current_assignee_id = ANY($1) AND status IN ($2, $3)
        GROUP BY current_assignee_id`
	rows, err := r.pool.Query(ctx, query, assigneeIDs, domain.StatusCreated, domain.StatusInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}
