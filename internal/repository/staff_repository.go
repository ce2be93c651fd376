package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
)

// StaffRepository handles persistence for the staff directory.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffMember) error
	GetByID(ctx context.Context, id string) (*domain.StaffMember, error)
	List(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error)
	UpdateLastAssigned(ctx context.Context, id string, at time.Time) error
}

// StaffFilter defines query params for staff listing.
type StaffFilter struct {
	Role      *domain.Role
	Region    *string
	Specialty *string
	Active    *bool
	Limit     int
	Offset    int
}

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

const staffColumns = `id, seq, name, phone, role, region, specialty, active_flag,
        last_assigned_at, created_at, updated_at`

func (r *staffRepository) Create(ctx context.Context, staff *domain.StaffMember) error {
	const query = `
        INSERT INTO staff_members (name, phone, role, region, specialty, active_flag)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, seq, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		staff.Name,
		staff.Phone,
		staff.Role,
		staff.Region,
		staff.Specialty,
		staff.Active,
	).Scan(&staff.ID, &staff.Seq, &staff.CreatedAt, &staff.UpdatedAt)
}

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	query := fmt.Sprintf(`SELECT %s FROM staff_members WHERE id=$1`, staffColumns)
	var staff domain.StaffMember
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&staff.ID,
		&staff.Seq,
		&staff.Name,
		&staff.Phone,
		&staff.Role,
		&staff.Region,
		&staff.Specialty,
		&staff.Active,
		&staff.LastAssignedAt,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepository) List(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error) {
	query := fmt.Sprintf(`SELECT %s FROM staff_members`, staffColumns)
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Region != nil {
		args = append(args, *filter.Region)
		clauses = append(clauses, fmt.Sprintf("region=$%d", len(args)))
	}
	if filter.Specialty != nil {
		args = append(args, *filter.Specialty)
		clauses = append(clauses, fmt.Sprintf("specialty=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active_flag=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY seq ASC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffMember
	for rows.Next() {
		var staff domain.StaffMember
		if err := rows.Scan(
			&staff.ID,
			&staff.Seq,
			&staff.Name,
			&staff.Phone,
			&staff.Role,
			&staff.Region,
			&staff.Specialty,
			&staff.Active,
			&staff.LastAssignedAt,
			&staff.CreatedAt,
			&staff.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, staff)
	}
	return result, rows.Err()
}

func (r *staffRepository) UpdateLastAssigned(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE staff_members SET last_assigned_at=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
