package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrDepartmentName is returned when a department would be left unnamed.
var ErrDepartmentName = errors.New("department name is required")

// Department owns tickets and scopes what non-admin staff can see. SLA rules
// may target a single department.
type Department struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewDepartment returns an active department with trimmed fields.
func NewDepartment(name, description string) (*Department, error) {
	dept := &Department{IsActive: true}
	if err := dept.Apply(name, description, nil); err != nil {
		return nil, err
	}
	return dept, nil
}

// Apply updates metadata. A blank name keeps the current one unless the
// department has none yet.
func (d *Department) Apply(name, description string, active *bool) error {
	if name = strings.TrimSpace(name); name != "" {
		d.Name = name
	}
	if d.Name == "" {
		return ErrDepartmentName
	}
	d.Description = strings.TrimSpace(description)
	if active != nil {
		d.IsActive = *active
	}
	return nil
}
