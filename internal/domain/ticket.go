package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets. Administrators may
// configure extra codes; only resolved and closed are terminal.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusOnHold     TicketStatus = "on_hold"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Priority is a validated priority code. The built-in codes cover the default
// configuration; custom codes are accepted when they pass ParsePriority.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

var codePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)

// ParsePriority normalizes and validates a priority code.
func ParsePriority(raw string) (Priority, error) {
	code := strings.ToLower(strings.TrimSpace(raw))
	if !codePattern.MatchString(code) {
		return "", fmt.Errorf("invalid priority code %q", raw)
	}
	return Priority(code), nil
}

// ParseTicketStatus normalizes and validates a status code.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	code := strings.ToLower(strings.TrimSpace(raw))
	if !codePattern.MatchString(code) {
		return "", fmt.Errorf("invalid ticket status %q", raw)
	}
	return TicketStatus(code), nil
}

// IsTerminal reports whether SLA monitoring stops for the status.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID           string
	ExternalKey  string
	RequesterID  string
	DepartmentID *string
	CategoryID   *string
	AssigneeID   *string
	Title        string
	Description  string
	Status       TicketStatus
	Priority     Priority
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ResolvedAt   *time.Time
}
