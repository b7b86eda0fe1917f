package sla

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Status is the compliance classification of a ticket.
type Status string

const (
	StatusMet      Status = "met"
	StatusAtRisk   Status = "at_risk"
	StatusViolated Status = "violated"
)

// DefaultAtRiskRatio is the share of the budget below which a live ticket is at risk.
const DefaultAtRiskRatio = 0.2

// Outcome is the evaluated SLA state of a ticket. It is derived on every
// read and never stored as the system of record.
type Outcome struct {
	TicketID       string
	SLAHoursTotal  float64
	SLASource      string
	Tier           Tier
	RuleID         string
	Status         Status
	HoursRemaining float64
	ElapsedHours   float64
	DueAt          *time.Time
	// ResolutionDurationHours is creation-to-resolution time for resolved
	// tickets, kept apart from the frozen met classification.
	ResolutionDurationHours *float64
	EvaluatedAt             time.Time
}

// Calculator classifies elapsed time against a resolved budget.
type Calculator struct {
	atRiskRatio float64
}

// NewCalculator builds a calculator; ratios outside (0,1) fall back to the default.
func NewCalculator(atRiskRatio float64) *Calculator {
	if atRiskRatio <= 0 || atRiskRatio >= 1 {
		atRiskRatio = DefaultAtRiskRatio
	}
	return &Calculator{atRiskRatio: atRiskRatio}
}

// Classify computes remaining time and status. Terminal tickets are frozen at
// met with zero total and remaining.
func (c *Calculator) Classify(totalHours float64, ticket *domain.Ticket, now time.Time) Outcome {
	out := Outcome{TicketID: ticket.ID, EvaluatedAt: now}

	if isTerminal(ticket) {
		out.Status = StatusMet
		if ticket.ResolvedAt != nil {
			d := hoursBetween(ticket.CreatedAt, *ticket.ResolvedAt)
			out.ResolutionDurationHours = &d
		}
		return out
	}

	elapsed := hoursBetween(ticket.CreatedAt, now)
	remaining := totalHours - elapsed
	due := ticket.CreatedAt.Add(time.Duration(min(totalHours, MaxHours) * float64(time.Hour)))

	out.SLAHoursTotal = totalHours
	out.ElapsedHours = elapsed
	out.HoursRemaining = remaining
	out.DueAt = &due
	out.Status = c.status(totalHours, remaining)
	return out
}

func (c *Calculator) status(total, remaining float64) Status {
	switch {
	case remaining < 0:
		return StatusViolated
	case remaining <= total*c.atRiskRatio:
		return StatusAtRisk
	default:
		return StatusMet
	}
}

// isTerminal treats a resolution timestamp as authoritative in addition to
// the status itself.
func isTerminal(t *domain.Ticket) bool {
	return t.Status.IsTerminal() || t.ResolvedAt != nil
}

func hoursBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours()
}
