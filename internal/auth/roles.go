package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// RequireUser admits authenticated requesters only.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.SubjectType != domain.SubjectTypeUser || principal.User == nil {
			return apperrors.NewForbidden("requester account required")
		}
		return c.Next()
	}
}

// RequireStaffRole admits staff members whose role is in allowed. With no
// roles given any active staff member passes.
func RequireStaffRole(allowed ...domain.StaffRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		staff, err := staffFromContext(c)
		if err != nil {
			return err
		}
		if !roleAllowed(staff.Role, allowed) {
			return apperrors.NewForbidden("insufficient role for " + string(staff.Role))
		}
		return c.Next()
	}
}

// RequireSupervisor admits supervisors and administrators.
func RequireSupervisor() fiber.Handler {
	return RequireStaffRole(domain.StaffRoleSupervisor, domain.StaffRoleAdmin)
}

// RequireAdmin admits administrators.
func RequireAdmin() fiber.Handler {
	return RequireStaffRole(domain.StaffRoleAdmin)
}

func staffFromContext(c *fiber.Ctx) (*domain.StaffMember, error) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if principal.SubjectType != domain.SubjectTypeStaff || principal.Staff == nil {
		return nil, apperrors.NewForbidden("staff account required")
	}
	return principal.Staff, nil
}

func roleAllowed(role domain.StaffRole, allowed []domain.StaffRole) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}
