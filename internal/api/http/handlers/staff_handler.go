package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// StaffHandler exposes staff login and organization admin endpoints.
type StaffHandler struct {
	authService *service.AuthService
	orgService  *service.StaffService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService, orgService *service.StaffService) *StaffHandler {
	return &StaffHandler{authService: authService, orgService: orgService}
}

// Login handles POST /auth/staff/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	req, err := bindJSON[dto.StaffLoginRequest](c)
	if err != nil {
		return err
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	staff, token, err := h.authService.LoginStaff(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"staff": dto.NewStaffResponse(staff),
			"auth":  dto.AuthResponse{Token: token.AccessToken, ExpiresAt: token.ExpiresAt},
		},
	})
}

// CreateDepartment handles POST /admin/departments.
func (h *StaffHandler) CreateDepartment(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	req, err := bindJSON[dto.DepartmentRequest](c)
	if err != nil {
		return err
	}
	dept, err := h.orgService.CreateDepartment(c.UserContext(), admin, req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewDepartmentResponse(dept)})
}

// ListDepartments handles GET /admin/departments.
func (h *StaffHandler) ListDepartments(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	depts, err := h.orgService.ListDepartments(c.UserContext(), admin, c.QueryBool("include_inactive"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MapSlice(depts, dto.NewDepartmentResponse)})
}

// UpdateDepartment handles PUT /admin/departments/:id.
func (h *StaffHandler) UpdateDepartment(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	req, err := bindJSON[dto.DepartmentRequest](c)
	if err != nil {
		return err
	}
	dept, err := h.orgService.UpdateDepartment(c.UserContext(), admin, c.Params("id"), req.Name, req.Description, req.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDepartmentResponse(dept)})
}

// CreateStaff handles POST /admin/staff.
func (h *StaffHandler) CreateStaff(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	req, err := bindJSON[dto.StaffCreateRequest](c)
	if err != nil {
		return err
	}
	staff, err := h.orgService.CreateStaffMember(c.UserContext(), admin, service.StaffInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Role:         req.Role,
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewStaffResponse(staff)})
}

// ListStaff handles GET /admin/staff.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	list, err := h.orgService.ListStaffMembers(c.UserContext(), admin, parseStaffListFilters(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MapSlice(list, dto.NewStaffResponse)})
}

func staffPrincipal(c *fiber.Ctx) (*domain.StaffMember, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return principal.Staff, nil
}

func parseStaffListFilters(c *fiber.Ctx) service.StaffListFilters {
	var filters service.StaffListFilters
	if roleStr := c.Query("role"); roleStr != "" {
		if role, err := domain.ParseStaffRole(roleStr); err == nil {
			filters.Role = &role
		}
	}
	if deptID := c.Query("department_id"); deptID != "" {
		filters.DepartmentID = &deptID
	}
	if c.Query("active") != "" {
		active := c.QueryBool("active")
		filters.Active = &active
	}
	filters.Offset, filters.Limit = pageWindow(c, defaultStaffPageSize)
	return filters
}
