package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// SLAHandler serves SLA configuration and preview endpoints.
type SLAHandler struct {
	config  *service.SLAConfigService
	tickets *service.TicketService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(configService *service.SLAConfigService, ticketService *service.TicketService) *SLAHandler {
	return &SLAHandler{config: configService, tickets: ticketService}
}

// ListRules GET /admin/sla/rules.
func (h *SLAHandler) ListRules(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	rules, err := h.config.ListRules(c.UserContext(), admin)
	if err != nil {
		return err
	}
	resp := make([]dto.SLARuleResponse, 0, len(rules))
	for i := range rules {
		resp = append(resp, ruleResponse(&rules[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// GetRule GET /admin/sla/rules/:id.
func (h *SLAHandler) GetRule(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	rule, err := h.config.GetRule(c.UserContext(), admin, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(rule)})
}

// CreateRule POST /admin/sla/rules.
func (h *SLAHandler) CreateRule(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	req, err := bindJSON[dto.SLARuleRequest](c)
	if err != nil {
		return err
	}
	input, err := ruleInput(req)
	if err != nil {
		return err
	}
	rule, err := h.config.CreateRule(c.UserContext(), admin, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ruleResponse(rule)})
}

// UpdateRule PUT /admin/sla/rules/:id.
func (h *SLAHandler) UpdateRule(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	req, err := bindJSON[dto.SLARuleRequest](c)
	if err != nil {
		return err
	}
	input, err := ruleInput(req)
	if err != nil {
		return err
	}
	rule, err := h.config.UpdateRule(c.UserContext(), admin, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(rule)})
}

// DeleteRule DELETE /admin/sla/rules/:id.
func (h *SLAHandler) DeleteRule(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.config.DeleteRule(c.UserContext(), admin, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListCategories GET /admin/categories.
func (h *SLAHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.config.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	resp := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		resp = append(resp, categoryResponse(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// CreateCategory POST /admin/categories.
func (h *SLAHandler) CreateCategory(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	req, err := bindJSON[dto.CategoryRequest](c)
	if err != nil {
		return err
	}
	category, err := h.config.CreateCategory(c.UserContext(), admin, service.CategoryInput{
		Name:     req.Name,
		SLAHours: req.SLAHours,
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": categoryResponse(category)})
}

// UpdateCategory PUT /admin/categories/:id.
func (h *SLAHandler) UpdateCategory(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	req, err := bindJSON[dto.CategoryRequest](c)
	if err != nil {
		return err
	}
	category, err := h.config.UpdateCategory(c.UserContext(), admin, c.Params("id"), service.CategoryInput{
		Name:     req.Name,
		SLAHours: req.SLAHours,
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categoryResponse(category)})
}

// ListPriorities GET /admin/priorities.
func (h *SLAHandler) ListPriorities(c *fiber.Ctx) error {
	priorities, err := h.config.ListPriorities(c.UserContext())
	if err != nil {
		return err
	}
	resp := make([]dto.PriorityResponse, 0, len(priorities))
	for i := range priorities {
		resp = append(resp, priorityResponse(&priorities[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// UpsertPriority PUT /admin/priorities/:code.
func (h *SLAHandler) UpsertPriority(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	req, err := bindJSON[dto.PriorityRequest](c)
	if err != nil {
		return err
	}
	cfg, err := h.config.UpsertPriority(c.UserContext(), admin, c.Params("code"), service.PriorityInput{
		Name:      req.Name,
		SLAHours:  req.SLAHours,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": priorityResponse(cfg)})
}

// Evaluate POST /staff/sla/evaluate previews the SLA of a ticket snapshot.
func (h *SLAHandler) Evaluate(c *fiber.Ctx) error {
	if _, err := staffPrincipal(c); err != nil {
		return err
	}
	req, err := bindJSON[dto.EvaluateRequest](c)
	if err != nil {
		return err
	}
	ticket, err := evaluationSnapshot(req)
	if err != nil {
		return err
	}
	outcome, err := h.tickets.Evaluate(c.UserContext(), ticket)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSLAResponse(&outcome)})
}

func evaluationSnapshot(req dto.EvaluateRequest) (*domain.Ticket, error) {
	priority, err := domain.ParsePriority(req.Priority)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"field": "priority"})
	}
	status := domain.TicketStatusOpen
	if strings.TrimSpace(req.Status) != "" {
		if status, err = domain.ParseTicketStatus(req.Status); err != nil {
			return nil, apperrors.NewValidationError(err.Error(), map[string]any{"field": "status"})
		}
	}
	if req.CreatedAt.IsZero() {
		return nil, apperrors.NewValidationError("created_at is required", map[string]any{"field": "created_at"})
	}
	categoryID, err := optionalID(req.CategoryID, "category_id")
	if err != nil {
		return nil, err
	}
	departmentID, err := optionalID(req.DepartmentID, "department_id")
	if err != nil {
		return nil, err
	}
	return &domain.Ticket{
		ID:           "preview",
		Priority:     priority,
		CategoryID:   categoryID,
		DepartmentID: departmentID,
		Status:       status,
		CreatedAt:    req.CreatedAt,
		ResolvedAt:   req.ResolvedAt,
	}, nil
}

func ruleInput(req dto.SLARuleRequest) (service.SLARuleInput, error) {
	departmentID, err := optionalID(req.DepartmentID, "department_id")
	if err != nil {
		return service.SLARuleInput{}, err
	}
	categoryID, err := optionalID(req.CategoryID, "category_id")
	if err != nil {
		return service.SLARuleInput{}, err
	}
	return service.SLARuleInput{
		Name:         req.Name,
		IsActive:     req.IsActive,
		DepartmentID: departmentID,
		CategoryID:   categoryID,
		Priority:     req.Priority,
		TimeHours:    req.TimeHours,
	}, nil
}

func ruleResponse(rule *domain.SLARule) dto.SLARuleResponse {
	return dto.SLARuleResponse{
		ID:           rule.ID,
		Name:         rule.Name,
		IsActive:     rule.IsActive,
		DepartmentID: rule.DepartmentID,
		CategoryID:   rule.CategoryID,
		Priority:     rule.Priority,
		TimeHours:    rule.TimeHours,
		CreatedAt:    rule.CreatedAt,
		UpdatedAt:    rule.UpdatedAt,
	}
}

func categoryResponse(category *domain.Category) dto.CategoryResponse {
	return dto.CategoryResponse{
		ID:       category.ID,
		Name:     category.Name,
		SLAHours: category.SLAHours,
		IsActive: category.IsActive,
	}
}

func priorityResponse(cfg *domain.PriorityConfig) dto.PriorityResponse {
	return dto.PriorityResponse{
		Code:      cfg.Code,
		Name:      cfg.DisplayName(),
		SLAHours:  cfg.SLAHours,
		SortOrder: cfg.SortOrder,
	}
}
