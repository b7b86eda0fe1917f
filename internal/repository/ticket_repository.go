package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFilter captures search parameters.
type TicketFilter struct {
	RequesterID  *string
	DepartmentID *string
	CategoryID   *string
	AssigneeID   *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.Priority
	// OpenOnly restricts results to tickets still under SLA monitoring.
	OpenOnly    bool
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
	// OldestFirst orders by creation time instead of last update.
	OldestFirst bool
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

// Column order follows the field order of domain.Ticket.
const ticketColumns = `id, external_key, requester_user_id, department_id, category_id, assignee_staff_id,
    title, description, status, priority, created_at, updated_at, resolved_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, requester_user_id, department_id, category_id, assignee_staff_id,
            title, description, status, priority)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ExternalKey, ticket.RequesterID, ticket.DepartmentID, ticket.CategoryID, ticket.AssigneeID,
		ticket.Title, ticket.Description, ticket.Status, ticket.Priority,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

// Update persists mutable fields. resolved_at is written as given so a reopen
// clears it.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets
        SET department_id=$2, category_id=$3, assignee_staff_id=$4, title=$5, description=$6,
            status=$7, priority=$8, resolved_at=$9, updated_at=NOW()
        WHERE id=$1
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ID, ticket.DepartmentID, ticket.CategoryID, ticket.AssigneeID, ticket.Title, ticket.Description,
		ticket.Status, ticket.Priority, ticket.ResolvedAt,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByPos[domain.Ticket])
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query, args := buildTicketQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	tickets, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Ticket])
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func buildTicketQuery(filter TicketFilter) (string, []any) {
	var w whereBuilder
	w.eq("requester_user_id", filter.RequesterID)
	w.eq("department_id", filter.DepartmentID)
	w.eq("category_id", filter.CategoryID)
	w.eq("assignee_staff_id", filter.AssigneeID)
	inClause(&w, "status", filter.Statuses)
	inClause(&w, "priority", filter.Priorities)
	if filter.OpenOnly {
		w.where("resolved_at IS NULL AND status NOT IN (%s, %s)", domain.TicketStatusResolved, domain.TicketStatusClosed)
	}
	if filter.CreatedFrom != nil {
		w.where("created_at >= %s", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		w.where("created_at <= %s", *filter.CreatedTo)
	}
	if filter.SearchTerm != nil {
		if term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm)); term != "" {
			pattern := "%" + term + "%"
			w.where("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", pattern, pattern)
		}
	}

	order := "updated_at DESC"
	if filter.OldestFirst {
		order = "created_at ASC, id ASC"
	}
	return `SELECT ` + ticketColumns + ` FROM tickets` + w.sql() + page(order, filter.Limit, filter.Offset, 20), w.args
}
