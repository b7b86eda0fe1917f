package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserRepository defines persistence access for requesters.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Column order follows the field order of domain.User.
const userColumns = `id, name, email, password_hash, status, department_id, created_at, updated_at`

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation. Emails are
// stored lower-cased.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	user.Email = strings.ToLower(user.Email)
	err := r.pool.QueryRow(ctx, `
        INSERT INTO users (name, email, password_hash, status, department_id)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`,
		user.Name, user.Email, user.PasswordHash, user.Status, user.DepartmentID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return checkUnique(err)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	user.Email = strings.ToLower(user.Email)
	err := r.pool.QueryRow(ctx, `
        UPDATE users
        SET name=$2, email=$3, password_hash=$4, status=$5, department_id=$6, updated_at=NOW()
        WHERE id=$1
        RETURNING updated_at`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Status, user.DepartmentID,
	).Scan(&user.UpdatedAt)
	return checkUnique(err)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
}

func (r *userRepository) one(ctx context.Context, query string, arg any) (*domain.User, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByPos[domain.User])
}
