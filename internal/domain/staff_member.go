package domain

import (
	"fmt"
	"strings"
	"time"
)

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleTechnician StaffRole = "TECHNICIAN"
	StaffRoleSupervisor StaffRole = "SUPERVISOR"
	StaffRoleAdmin      StaffRole = "ADMIN"
)

// ParseStaffRole accepts a role name in any case.
func ParseStaffRole(raw string) (StaffRole, error) {
	role := StaffRole(strings.ToUpper(strings.TrimSpace(raw)))
	switch role {
	case StaffRoleTechnician, StaffRoleSupervisor, StaffRoleAdmin:
		return role, nil
	}
	return "", fmt.Errorf("unknown staff role %q", raw)
}

// StaffMember is a technician, supervisor or administrator working tickets.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	DepartmentID *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the member sees every department.
func (s *StaffMember) IsAdmin() bool {
	return s != nil && s.Role == StaffRoleAdmin
}

// CoversDepartment reports whether tickets of departmentID fall within the
// member's scope. Admins cover every department including none.
func (s *StaffMember) CoversDepartment(departmentID *string) bool {
	if s == nil {
		return false
	}
	if s.IsAdmin() {
		return true
	}
	return s.DepartmentID != nil && departmentID != nil && *s.DepartmentID == *departmentID
}
