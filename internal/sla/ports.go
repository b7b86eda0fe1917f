// Package sla resolves the SLA duration that applies to a ticket and
// classifies the ticket's compliance against it.
package sla

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RuleRepository lists active SLA rules in their listing order.
type RuleRepository interface {
	ListActiveRules(ctx context.Context) ([]domain.SLARule, error)
}

// CategoryRepository looks up category defaults. A missing category is
// reported as (nil, nil).
type CategoryRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Category, error)
}

// PriorityRepository looks up priority defaults. A missing code is reported
// as (nil, nil).
type PriorityRepository interface {
	FindByCode(ctx context.Context, code domain.Priority) (*domain.PriorityConfig, error)
}

// Clock supplies the evaluation time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Observer receives evaluation signals, typically for metrics.
type Observer interface {
	ObserveOutcome(status Status, tier Tier)
	ObserveFailure(source string)
	ObserveInconsistentTicket()
}

type nopObserver struct{}

func (nopObserver) ObserveOutcome(Status, Tier) {}
func (nopObserver) ObserveFailure(string)       {}
func (nopObserver) ObserveInconsistentTicket()  {}
