package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// StaffRepository handles persistence for staff members.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffMember) error
	Update(ctx context.Context, staff *domain.StaffMember) error
	GetByID(ctx context.Context, id string) (*domain.StaffMember, error)
	GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error)
	List(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error)
}

// StaffFilter defines query params for staff listing.
type StaffFilter struct {
	Role         *domain.StaffRole
	DepartmentID *string
	Active       *bool
	Limit        int
	Offset       int
}

// Column order follows the field order of domain.StaffMember.
const staffColumns = `id, name, email, password_hash, role, department_id, active_flag, created_at, updated_at`

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

func (r *staffRepository) Create(ctx context.Context, staff *domain.StaffMember) error {
	const query = `
        INSERT INTO staff_members (name, email, password_hash, role, department_id, active_flag)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		staff.Name, strings.ToLower(staff.Email), staff.PasswordHash, staff.Role, staff.DepartmentID, staff.Active,
	).Scan(&staff.ID, &staff.CreatedAt, &staff.UpdatedAt)
	return checkUnique(err)
}

func (r *staffRepository) Update(ctx context.Context, staff *domain.StaffMember) error {
	const query = `
        UPDATE staff_members
        SET name=$2, email=$3, password_hash=$4, role=$5, department_id=$6, active_flag=$7, updated_at=NOW()
        WHERE id=$1
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		staff.ID, staff.Name, strings.ToLower(staff.Email), staff.PasswordHash, staff.Role, staff.DepartmentID, staff.Active,
	).Scan(&staff.UpdatedAt)
	return checkUnique(err)
}

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	return r.one(ctx, `SELECT `+staffColumns+` FROM staff_members WHERE id = $1`, id)
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error) {
	return r.one(ctx, `SELECT `+staffColumns+` FROM staff_members WHERE email = $1`, strings.ToLower(email))
}

func (r *staffRepository) List(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error) {
	query, args := buildStaffQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[domain.StaffMember])
}

func (r *staffRepository) one(ctx context.Context, query string, arg any) (*domain.StaffMember, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByPos[domain.StaffMember])
}

func buildStaffQuery(filter StaffFilter) (string, []any) {
	var w whereBuilder
	if filter.Role != nil {
		w.where("role = %s", *filter.Role)
	}
	w.eq("department_id", filter.DepartmentID)
	if filter.Active != nil {
		w.where("active_flag = %s", *filter.Active)
	}
	return `SELECT ` + staffColumns + ` FROM staff_members` + w.sql() + page("created_at DESC", filter.Limit, filter.Offset, 50), w.args
}
