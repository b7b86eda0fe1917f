package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	DepartmentID *string `json:"department_id"`
	CategoryID   *string `json:"category_id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Priority     string  `json:"priority"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority string `json:"priority"`
}

// UpdateCategoryRequest payload. A null category clears it.
type UpdateCategoryRequest struct {
	CategoryID *string `json:"category_id"`
}

// AssignRequest payload. A null assignee unassigns the ticket.
type AssignRequest struct {
	AssigneeStaffID *string `json:"assignee_staff_id"`
}

// TicketSummary response.
type TicketSummary struct {
	ID           string              `json:"id"`
	ExternalKey  string              `json:"external_key"`
	DepartmentID *string             `json:"department_id"`
	CategoryID   *string             `json:"category_id"`
	AssigneeID   *string             `json:"assignee_staff_id"`
	Title        string              `json:"title"`
	Status       domain.TicketStatus `json:"status"`
	Priority     domain.Priority     `json:"priority"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	ResolvedAt   *time.Time          `json:"resolved_at"`
	SLA          SLAResponse         `json:"sla"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	RequesterID string `json:"requester_user_id"`
	Description string `json:"description"`
}

// TicketHistoryResponse is an audit entry.
type TicketHistoryResponse struct {
	ID            string                  `json:"id"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	ChangedByType domain.ActorType        `json:"changed_by_type"`
	ChangedByID   *string                 `json:"changed_by_id"`
	OldValue      map[string]any          `json:"old_value"`
	NewValue      map[string]any          `json:"new_value"`
	CreatedAt     time.Time               `json:"created_at"`
}
