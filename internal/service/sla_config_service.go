package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// SLAConfigService lets administrators maintain SLA rules, category
// defaults and priority defaults.
type SLAConfigService struct {
	rules       repository.SLARuleRepository
	categories  repository.CategoryRepository
	priorities  repository.PriorityRepository
	departments repository.DepartmentRepository
	logger      *zap.Logger
}

// SLAConfigDependencies bundles repositories for SLA configuration.
type SLAConfigDependencies struct {
	RuleRepo       repository.SLARuleRepository
	CategoryRepo   repository.CategoryRepository
	PriorityRepo   repository.PriorityRepository
	DepartmentRepo repository.DepartmentRepository
	Logger         *zap.Logger
}

// SLARuleInput carries rule fields. Empty scoping fields are wildcards.
type SLARuleInput struct {
	Name         string
	IsActive     *bool
	DepartmentID *string
	CategoryID   *string
	Priority     *string
	TimeHours    float64
}

// CategoryInput carries category fields.
type CategoryInput struct {
	Name     string
	SLAHours *float64
	IsActive *bool
}

// PriorityInput carries priority configuration fields.
type PriorityInput struct {
	Name      string
	SLAHours  *float64
	SortOrder int
}

// NewSLAConfigService constructs the service.
func NewSLAConfigService(deps SLAConfigDependencies) *SLAConfigService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAConfigService{
		rules:       deps.RuleRepo,
		categories:  deps.CategoryRepo,
		priorities:  deps.PriorityRepo,
		departments: deps.DepartmentRepo,
		logger:      logger,
	}
}

// ListRules returns all rules in evaluation order.
func (s *SLAConfigService) ListRules(ctx context.Context, actor *domain.StaffMember) ([]domain.SLARule, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.rules.List(ctx)
}

// GetRule fetches a rule.
func (s *SLAConfigService) GetRule(ctx context.Context, actor *domain.StaffMember, id string) (*domain.SLARule, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.rules.GetByID(ctx, id)
}

// CreateRule validates and stores a new rule.
func (s *SLAConfigService) CreateRule(ctx context.Context, actor *domain.StaffMember, input SLARuleInput) (*domain.SLARule, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rule := &domain.SLARule{IsActive: true}
	if err := s.applyRuleInput(ctx, rule, input); err != nil {
		return nil, err
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, ruleWriteError(err, rule.ID)
	}
	s.logger.Info("sla rule created", zap.String("rule_id", rule.ID), zap.String("actor_id", actor.ID))
	return rule, nil
}

// UpdateRule replaces the fields of an existing rule.
func (s *SLAConfigService) UpdateRule(ctx context.Context, actor *domain.StaffMember, id string, input SLARuleInput) (*domain.SLARule, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyRuleInput(ctx, rule, input); err != nil {
		return nil, err
	}
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, ruleWriteError(err, rule.ID)
	}
	s.logger.Info("sla rule updated", zap.String("rule_id", rule.ID), zap.String("actor_id", actor.ID))
	return rule, nil
}

// DeleteRule removes a rule.
func (s *SLAConfigService) DeleteRule(ctx context.Context, actor *domain.StaffMember, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.rules.Delete(ctx, id); err != nil {
		return ruleWriteError(err, id)
	}
	s.logger.Info("sla rule deleted", zap.String("rule_id", id), zap.String("actor_id", actor.ID))
	return nil
}

// ListCategories returns every category.
func (s *SLAConfigService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.List(ctx)
}

// CreateCategory stores a category.
func (s *SLAConfigService) CreateCategory(ctx context.Context, actor *domain.StaffMember, input CategoryInput) (*domain.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	category := &domain.Category{IsActive: true}
	if err := applyCategoryInput(category, input); err != nil {
		return nil, err
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory replaces category fields.
func (s *SLAConfigService) UpdateCategory(ctx context.Context, actor *domain.StaffMember, id string, input CategoryInput) (*domain.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyCategoryInput(category, input); err != nil {
		return nil, err
	}
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// ListPriorities returns priority configurations ordered for display.
func (s *SLAConfigService) ListPriorities(ctx context.Context) ([]domain.PriorityConfig, error) {
	return s.priorities.List(ctx)
}

// UpsertPriority creates or replaces the configuration of a priority code.
func (s *SLAConfigService) UpsertPriority(ctx context.Context, actor *domain.StaffMember, rawCode string, input PriorityInput) (*domain.PriorityConfig, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	code, err := domain.ParsePriority(rawCode)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"field": "code"})
	}
	if err := validateOptionalHours(input.SLAHours, "sla_hours"); err != nil {
		return nil, err
	}
	cfg := &domain.PriorityConfig{
		Code:      code,
		Name:      strings.TrimSpace(input.Name),
		SLAHours:  input.SLAHours,
		SortOrder: input.SortOrder,
	}
	if cfg.Name == "" {
		cfg.Name = cfg.DisplayName()
	}
	if err := s.priorities.Upsert(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *SLAConfigService) applyRuleInput(ctx context.Context, rule *domain.SLARule, input SLARuleInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if !sla.ValidHours(input.TimeHours) {
		return apperrors.NewValidationError(hoursRangeMessage("time_hours"), map[string]any{"field": "time_hours"})
	}

	var priority *domain.Priority
	if input.Priority != nil && strings.TrimSpace(*input.Priority) != "" {
		p, err := domain.ParsePriority(*input.Priority)
		if err != nil {
			return apperrors.NewValidationError(err.Error(), map[string]any{"field": "priority"})
		}
		cfg, err := s.priorities.FindByCode(ctx, p)
		if err != nil {
			return err
		}
		if cfg == nil {
			return apperrors.NewValidationError("unknown priority", map[string]any{"priority": p})
		}
		priority = &p
	}

	categoryID := nonEmpty(input.CategoryID)
	if categoryID != nil {
		category, err := s.categories.FindByID(ctx, *categoryID)
		if err != nil {
			return err
		}
		if category == nil {
			return apperrors.NewValidationError("unknown category", map[string]any{"category_id": *categoryID})
		}
	}
	departmentID := nonEmpty(input.DepartmentID)
	if departmentID != nil {
		if _, err := s.departments.GetByID(ctx, *departmentID); err != nil {
			return err
		}
	}

	rule.Name = name
	rule.TimeHours = input.TimeHours
	rule.Priority = priority
	rule.CategoryID = categoryID
	rule.DepartmentID = departmentID
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}
	return nil
}

// ruleWriteError names the rule when it was stored but the cache version
// could not be bumped, so the caller can retry that exact change.
func ruleWriteError(err error, ruleID string) error {
	if !errors.Is(err, repository.ErrRuleCacheInvalidation) {
		return err
	}
	mapped := apperrors.ToDomainError(err)
	mapped.Details = map[string]any{"rule_id": ruleID}
	return mapped
}

func applyCategoryInput(category *domain.Category, input CategoryInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if err := validateOptionalHours(input.SLAHours, "sla_hours"); err != nil {
		return err
	}
	category.Name = name
	category.SLAHours = input.SLAHours
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}
	return nil
}

func validateOptionalHours(hours *float64, field string) error {
	if hours != nil && !sla.ValidHours(*hours) {
		return apperrors.NewValidationError(hoursRangeMessage(field), map[string]any{"field": field})
	}
	return nil
}

func hoursRangeMessage(field string) string {
	return fmt.Sprintf("%s must be positive and at most %g", field, sla.MaxHours)
}

func nonEmpty(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	return &trimmed
}
