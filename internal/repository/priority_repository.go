package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// PriorityRepository manages per-priority configuration.
type PriorityRepository interface {
	Upsert(ctx context.Context, cfg *domain.PriorityConfig) error
	// FindByCode returns (nil, nil) when the code is not configured.
	FindByCode(ctx context.Context, code domain.Priority) (*domain.PriorityConfig, error)
	List(ctx context.Context) ([]domain.PriorityConfig, error)
}

const priorityColumns = `code, name, sla_hours, sort_order, updated_at`

type priorityRepository struct {
	pool *pgxpool.Pool
}

// NewPriorityRepository builds the repository.
func NewPriorityRepository(pool *pgxpool.Pool) PriorityRepository {
	return &priorityRepository{pool: pool}
}

func (r *priorityRepository) Upsert(ctx context.Context, cfg *domain.PriorityConfig) error {
	const query = `
        INSERT INTO priorities (code, name, sla_hours, sort_order)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (code) DO UPDATE
            SET name=EXCLUDED.name, sla_hours=EXCLUDED.sla_hours, sort_order=EXCLUDED.sort_order, updated_at=NOW()
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		cfg.Code,
		cfg.Name,
		cfg.SLAHours,
		cfg.SortOrder,
	).Scan(&cfg.UpdatedAt)
}

func (r *priorityRepository) FindByCode(ctx context.Context, code domain.Priority) (*domain.PriorityConfig, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+priorityColumns+` FROM priorities WHERE code=$1`, code)
	if err != nil {
		return nil, err
	}
	cfg, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByPos[domain.PriorityConfig])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return cfg, err
}

func (r *priorityRepository) List(ctx context.Context) ([]domain.PriorityConfig, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+priorityColumns+` FROM priorities ORDER BY sort_order, code`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[domain.PriorityConfig])
}
