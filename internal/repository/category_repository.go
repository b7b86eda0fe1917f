package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CategoryRepository manages ticket categories and their SLA defaults.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	// FindByID returns (nil, nil) when the category does not exist.
	FindByID(ctx context.Context, id string) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
}

const categoryColumns = `id, name, sla_hours, is_active, created_at, updated_at`

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository builds the repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	const query = `
        INSERT INTO categories (name, sla_hours, is_active)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return checkUnique(r.pool.QueryRow(ctx, query,
		category.Name,
		category.SLAHours,
		category.IsActive,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt))
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	const query = `
        UPDATE categories SET name=$1, sla_hours=$2, is_active=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING created_at, updated_at`
	return checkUnique(r.pool.QueryRow(ctx, query,
		category.Name,
		category.SLAHours,
		category.IsActive,
		category.ID,
	).Scan(&category.CreatedAt, &category.UpdatedAt))
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByPos[domain.Category])
}

func (r *categoryRepository) FindByID(ctx context.Context, id string) (*domain.Category, error) {
	c, err := r.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *categoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Category])
}
