package dto

import (
	"math"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/sla"
)

// SLAResponse is the evaluated SLA embedded in ticket views. When the SLA
// configuration cannot be read only Available is rendered.
type SLAResponse struct {
	Available bool `json:"available"`
	*SLADetails
}

// SLADetails carries the rounded outcome.
type SLADetails struct {
	SLAHoursTotal           float64    `json:"sla_hours_total"`
	SLASource               string     `json:"sla_source"`
	Tier                    sla.Tier   `json:"tier"`
	RuleID                  string     `json:"rule_id,omitempty"`
	Status                  sla.Status `json:"status"`
	HoursRemaining          float64    `json:"hours_remaining"`
	ElapsedHours            float64    `json:"elapsed_hours"`
	DueAt                   *time.Time `json:"due_at,omitempty"`
	ResolutionDurationHours *float64   `json:"resolution_duration_hours,omitempty"`
	EvaluatedAt             time.Time  `json:"evaluated_at"`
}

// NewSLAResponse renders an outcome; nil renders as unavailable.
func NewSLAResponse(outcome *sla.Outcome) SLAResponse {
	if outcome == nil {
		return SLAResponse{Available: false}
	}
	details := &SLADetails{
		SLAHoursTotal:  Round2(outcome.SLAHoursTotal),
		SLASource:      outcome.SLASource,
		Tier:           outcome.Tier,
		RuleID:         outcome.RuleID,
		Status:         outcome.Status,
		HoursRemaining: Round2(outcome.HoursRemaining),
		ElapsedHours:   Round2(outcome.ElapsedHours),
		DueAt:          outcome.DueAt,
		EvaluatedAt:    outcome.EvaluatedAt,
	}
	if outcome.ResolutionDurationHours != nil {
		d := Round2(*outcome.ResolutionDurationHours)
		details.ResolutionDurationHours = &d
	}
	return SLAResponse{Available: true, SLADetails: details}
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0
	}
	return r
}

// SLARuleRequest payload. Omitted scoping fields are wildcards.
type SLARuleRequest struct {
	Name         string  `json:"name"`
	IsActive     *bool   `json:"is_active"`
	DepartmentID *string `json:"department_id"`
	CategoryID   *string `json:"category_id"`
	Priority     *string `json:"priority"`
	TimeHours    float64 `json:"time_hours"`
}

// SLARuleResponse view.
type SLARuleResponse struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	IsActive     bool             `json:"is_active"`
	DepartmentID *string          `json:"department_id"`
	CategoryID   *string          `json:"category_id"`
	Priority     *domain.Priority `json:"priority"`
	TimeHours    float64          `json:"time_hours"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// CategoryRequest payload.
type CategoryRequest struct {
	Name     string   `json:"name"`
	SLAHours *float64 `json:"sla_hours"`
	IsActive *bool    `json:"is_active"`
}

// CategoryResponse view.
type CategoryResponse struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	SLAHours *float64 `json:"sla_hours"`
	IsActive bool     `json:"is_active"`
}

// PriorityRequest payload.
type PriorityRequest struct {
	Name      string   `json:"name"`
	SLAHours  *float64 `json:"sla_hours"`
	SortOrder int      `json:"sort_order"`
}

// PriorityResponse view.
type PriorityResponse struct {
	Code      domain.Priority `json:"code"`
	Name      string          `json:"name"`
	SLAHours  *float64        `json:"sla_hours"`
	SortOrder int             `json:"sort_order"`
}

// EvaluateRequest is an ad-hoc ticket snapshot for SLA preview.
type EvaluateRequest struct {
	Priority     string     `json:"priority"`
	CategoryID   *string    `json:"category_id"`
	DepartmentID *string    `json:"department_id"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at"`
}

// SLAReportResponse aggregates outcomes.
type SLAReportResponse struct {
	GeneratedAt       time.Time                 `json:"generated_at"`
	TotalTickets      int                       `json:"total_tickets"`
	CompliancePercent float64                   `json:"compliance_percent"`
	ByStatus          map[string]int            `json:"by_status"`
	ByTier            map[string]int            `json:"by_tier"`
	ByPriority        map[string]map[string]int `json:"by_priority"`
	Truncated         bool                      `json:"truncated"`
}
