package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// SLARuleRepository persists explicit SLA rules.
type SLARuleRepository interface {
	Create(ctx context.Context, rule *domain.SLARule) error
	Update(ctx context.Context, rule *domain.SLARule) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.SLARule, error)
	List(ctx context.Context) ([]domain.SLARule, error)
	// ListActiveRules returns active rules in creation order.
	ListActiveRules(ctx context.Context) ([]domain.SLARule, error)
}

const slaRuleColumns = `id, name, is_active, department_id, category_id, priority, time_hours, created_at, updated_at`

type slaRuleRepository struct {
	pool *pgxpool.Pool
}

// NewSLARuleRepository builds the repository.
func NewSLARuleRepository(pool *pgxpool.Pool) SLARuleRepository {
	return &slaRuleRepository{pool: pool}
}

func (r *slaRuleRepository) Create(ctx context.Context, rule *domain.SLARule) error {
	const query = `
        INSERT INTO sla_rules (name, is_active, department_id, category_id, priority, time_hours)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		rule.Name,
		rule.IsActive,
		rule.DepartmentID,
		rule.CategoryID,
		rule.Priority,
		rule.TimeHours,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

func (r *slaRuleRepository) Update(ctx context.Context, rule *domain.SLARule) error {
	const query = `
        UPDATE sla_rules SET name=$1, is_active=$2, department_id=$3, category_id=$4, priority=$5,
            time_hours=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		rule.Name,
		rule.IsActive,
		rule.DepartmentID,
		rule.CategoryID,
		rule.Priority,
		rule.TimeHours,
		rule.ID,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)
}

func (r *slaRuleRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sla_rules WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaRuleRepository) GetByID(ctx context.Context, id string) (*domain.SLARule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+slaRuleColumns+` FROM sla_rules WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByPos[domain.SLARule])
}

func (r *slaRuleRepository) List(ctx context.Context) ([]domain.SLARule, error) {
	return r.query(ctx, `SELECT `+slaRuleColumns+` FROM sla_rules ORDER BY position`)
}

func (r *slaRuleRepository) ListActiveRules(ctx context.Context) ([]domain.SLARule, error) {
	return r.query(ctx, `SELECT `+slaRuleColumns+` FROM sla_rules WHERE is_active ORDER BY position`)
}

func (r *slaRuleRepository) query(ctx context.Context, query string) ([]domain.SLARule, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[domain.SLARule])
}
