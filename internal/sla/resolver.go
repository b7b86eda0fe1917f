package sla

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Tier identifies which cascade level produced the SLA duration.
type Tier string

const (
	TierRule     Tier = "rule"
	TierCategory Tier = "category"
	TierPriority Tier = "priority"
	TierDefault  Tier = "default"
)

// MatchStrategy selects how competing rules are chosen.
type MatchStrategy string

const (
	// MatchFirst takes the first matching rule in listing order.
	MatchFirst MatchStrategy = "first_match"
	// MatchMostSpecific prefers rules with more scoping fields set, keeping
	// listing order among rules of equal specificity.
	MatchMostSpecific MatchStrategy = "most_specific"
)

// ParseMatchStrategy validates a configured strategy name.
func ParseMatchStrategy(raw string) (MatchStrategy, error) {
	switch MatchStrategy(raw) {
	case "", MatchFirst:
		return MatchFirst, nil
	case MatchMostSpecific:
		return MatchMostSpecific, nil
	}
	return "", fmt.Errorf("unknown rule match strategy %q", raw)
}

const (
	// DefaultHours is the global fallback when no other tier applies.
	DefaultHours = 4.0
	// MaxHours bounds every SLA duration to ten years.
	MaxHours = 87600.0
)

// ValidHours reports whether h is a usable SLA duration.
func ValidHours(h float64) bool {
	return h > 0 && h <= MaxHours
}

// Resolution is the output of the source cascade.
type Resolution struct {
	Hours  float64
	Source string
	Tier   Tier
	RuleID string
}

// Resolver walks the precedence cascade: rule, category, priority, default.
type Resolver struct {
	rules        RuleRepository
	categories   CategoryRepository
	priorities   PriorityRepository
	strategy     MatchStrategy
	defaultHours float64
	logger       *zap.Logger
}

// NewResolver builds a resolver. Nil repositories skip their tier.
func NewResolver(rules RuleRepository, categories CategoryRepository, priorities PriorityRepository, strategy MatchStrategy, defaultHours float64, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strategy == "" {
		strategy = MatchFirst
	}
	if !ValidHours(defaultHours) {
		defaultHours = DefaultHours
	}
	return &Resolver{
		rules:        rules,
		categories:   categories,
		priorities:   priorities,
		strategy:     strategy,
		defaultHours: defaultHours,
		logger:       logger,
	}
}

// Resolve returns exactly one SLA duration for the ticket.
func (r *Resolver) Resolve(ctx context.Context, ticket *domain.Ticket) (Resolution, error) {
	rules, err := r.loadRules(ctx)
	if err != nil {
		return Resolution{}, err
	}
	return r.resolveWith(ctx, ticket, rules, r.findCategory, r.findPriority)
}

type categoryLookup func(ctx context.Context, id string) (*domain.Category, error)
type priorityLookup func(ctx context.Context, code domain.Priority) (*domain.PriorityConfig, error)

func (r *Resolver) loadRules(ctx context.Context) ([]domain.SLARule, error) {
	if r.rules == nil {
		r.logger.Warn("sla rule repository not configured; skipping rule tier")
		return nil, nil
	}
	rules, err := r.rules.ListActiveRules(ctx)
	if err != nil {
		return nil, unavailable(SourceRules, err)
	}
	return r.order(rules), nil
}

func (r *Resolver) order(rules []domain.SLARule) []domain.SLARule {
	if r.strategy != MatchMostSpecific {
		return rules
	}
	ordered := append([]domain.SLARule(nil), rules...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Specificity() > ordered[j].Specificity()
	})
	return ordered
}

func (r *Resolver) resolveWith(ctx context.Context, ticket *domain.Ticket, rules []domain.SLARule, findCategory categoryLookup, findPriority priorityLookup) (Resolution, error) {
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		if !ValidHours(rule.TimeHours) {
			r.logger.Warn("skipping sla rule with out-of-range hours",
				zap.String("rule_id", rule.ID), zap.Float64("time_hours", rule.TimeHours))
			continue
		}
		if rule.Matches(ticket) {
			return Resolution{
				Hours:  rule.TimeHours,
				Source: "rule: " + rule.Name,
				Tier:   TierRule,
				RuleID: rule.ID,
			}, nil
		}
	}

	if ticket.CategoryID != nil && r.categories != nil {
		category, err := findCategory(ctx, *ticket.CategoryID)
		if err != nil {
			return Resolution{}, unavailable(SourceCategories, err)
		}
		if category != nil && category.SLAHours != nil && ValidHours(*category.SLAHours) {
			return Resolution{Hours: *category.SLAHours, Source: "category: " + category.Name, Tier: TierCategory}, nil
		}
	} else if ticket.CategoryID != nil {
		r.logger.Warn("sla category repository not configured; skipping category tier")
	}

	if r.priorities != nil {
		priority, err := findPriority(ctx, ticket.Priority)
		if err != nil {
			return Resolution{}, unavailable(SourcePriorities, err)
		}
		if priority != nil && priority.SLAHours != nil && ValidHours(*priority.SLAHours) {
			return Resolution{Hours: *priority.SLAHours, Source: "priority: " + priority.DisplayName(), Tier: TierPriority}, nil
		}
	} else {
		r.logger.Warn("sla priority repository not configured; skipping priority tier")
	}

	return Resolution{
		Hours:  r.defaultHours,
		Source: "default (" + strconv.FormatFloat(r.defaultHours, 'f', -1, 64) + "h)",
		Tier:   TierDefault,
	}, nil
}

func (r *Resolver) findCategory(ctx context.Context, id string) (*domain.Category, error) {
	return r.categories.FindByID(ctx, id)
}

func (r *Resolver) findPriority(ctx context.Context, code domain.Priority) (*domain.PriorityConfig, error) {
	return r.priorities.FindByCode(ctx, code)
}
