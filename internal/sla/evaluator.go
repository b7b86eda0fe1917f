package sla

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Dependencies bundles the read-only collaborators of the evaluator.
type Dependencies struct {
	Rules      RuleRepository
	Categories CategoryRepository
	Priorities PriorityRepository
	Clock      Clock
	Observer   Observer
	Logger     *zap.Logger
}

// Options tunes the cascade and the classification.
type Options struct {
	DefaultHours float64
	AtRiskRatio  float64
	Strategy     MatchStrategy
}

// Evaluator composes the resolver and the calculator. It keeps no mutable
// state and is safe for concurrent use.
type Evaluator struct {
	resolver   *Resolver
	calculator *Calculator
	clock      Clock
	observer   Observer
	logger     *zap.Logger
}

// NewEvaluator builds an evaluator.
func NewEvaluator(deps Dependencies, opts Options) *Evaluator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	observer := deps.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	return &Evaluator{
		resolver:   NewResolver(deps.Rules, deps.Categories, deps.Priorities, opts.Strategy, opts.DefaultHours, logger),
		calculator: NewCalculator(opts.AtRiskRatio),
		clock:      clock,
		observer:   observer,
		logger:     logger,
	}
}

// Evaluate resolves the SLA for a ticket and classifies its compliance.
func (e *Evaluator) Evaluate(ctx context.Context, ticket *domain.Ticket) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	rules, err := e.resolver.loadRules(ctx)
	if err != nil {
		e.recordFailure(ticket, err)
		return Outcome{}, err
	}
	return e.evaluate(ctx, ticket, rules, e.resolver.findCategory, e.resolver.findPriority)
}

// EvaluateAll evaluates a batch against a single rule listing. Category and
// priority lookups are memoized for the duration of the call only.
func (e *Evaluator) EvaluateAll(ctx context.Context, tickets []domain.Ticket) ([]Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rules, err := e.resolver.loadRules(ctx)
	if err != nil {
		e.recordFailure(nil, err)
		return nil, err
	}

	categories := map[string]*domain.Category{}
	priorities := map[domain.Priority]*domain.PriorityConfig{}
	findCategory := func(ctx context.Context, id string) (*domain.Category, error) {
		if c, ok := categories[id]; ok {
			return c, nil
		}
		c, err := e.resolver.findCategory(ctx, id)
		if err != nil {
			return nil, err
		}
		categories[id] = c
		return c, nil
	}
	findPriority := func(ctx context.Context, code domain.Priority) (*domain.PriorityConfig, error) {
		if p, ok := priorities[code]; ok {
			return p, nil
		}
		p, err := e.resolver.findPriority(ctx, code)
		if err != nil {
			return nil, err
		}
		priorities[code] = p
		return p, nil
	}

	outcomes := make([]Outcome, 0, len(tickets))
	for i := range tickets {
		out, err := e.evaluate(ctx, &tickets[i], rules, findCategory, findPriority)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func (e *Evaluator) evaluate(ctx context.Context, ticket *domain.Ticket, rules []domain.SLARule, findCategory categoryLookup, findPriority priorityLookup) (Outcome, error) {
	if stateErr := CheckTicketState(ticket); stateErr != nil {
		e.observer.ObserveInconsistentTicket()
		e.logger.Warn("inconsistent ticket state", zap.String("ticket_id", ticket.ID), zap.Error(stateErr))
	}

	res, err := e.resolver.resolveWith(ctx, ticket, rules, findCategory, findPriority)
	if err != nil {
		e.recordFailure(ticket, err)
		return Outcome{}, err
	}

	out := e.calculator.Classify(res.Hours, ticket, e.clock.Now())
	out.SLASource = res.Source
	out.Tier = res.Tier
	out.RuleID = res.RuleID
	e.observer.ObserveOutcome(out.Status, out.Tier)
	return out, nil
}

func (e *Evaluator) recordFailure(ticket *domain.Ticket, err error) {
	source := "unknown"
	var cfgErr *ConfigurationUnavailableError
	if errors.As(err, &cfgErr) {
		source = cfgErr.Source
	}
	e.observer.ObserveFailure(source)
	fields := []zap.Field{zap.String("source", source), zap.Error(err)}
	if ticket != nil {
		fields = append(fields, zap.String("ticket_id", ticket.ID))
	}
	e.logger.Error("sla evaluation failed", fields...)
}
