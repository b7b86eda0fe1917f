package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketCategoryChanged EventType = "ticket_category_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketSLAAtRisk       EventType = "ticket_sla_at_risk"
	EventTicketSLAViolated     EventType = "ticket_sla_violated"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.ActorType `json:"type"`
	UserID  *string          `json:"user_id,omitempty"`
	StaffID *string          `json:"staff_id,omitempty"`
}

// SystemActor is used for events raised by background jobs.
var SystemActor = Actor{Type: domain.ActorTypeSystem}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh identifier.
func New(eventType EventType, ticketID string, actor Actor, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: at,
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	DepartmentID *string         `json:"department_id,omitempty"`
	CategoryID   *string         `json:"category_id,omitempty"`
	Priority     domain.Priority `json:"priority"`
	Title        string          `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.Priority `json:"old_priority"`
	NewPriority domain.Priority `json:"new_priority"`
}

// TicketCategoryChangedPayload payload.
type TicketCategoryChangedPayload struct {
	OldCategoryID *string `json:"old_category_id,omitempty"`
	NewCategoryID *string `json:"new_category_id,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeStaffID *string `json:"assignee_staff_id,omitempty"`
}

// TicketSLAPayload is published by the breach monitor.
type TicketSLAPayload struct {
	Status         string    `json:"status"`
	SLASource      string    `json:"sla_source"`
	SLAHoursTotal  float64   `json:"sla_hours_total"`
	HoursRemaining float64   `json:"hours_remaining"`
	DueAt          time.Time `json:"due_at"`
	AssigneeID     *string   `json:"assignee_staff_id,omitempty"`
}
