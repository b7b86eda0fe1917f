package domain

import "time"

// SLARule is an explicit SLA override. Nil scoping fields match any value.
type SLARule struct {
	ID           string
	Name         string
	IsActive     bool
	DepartmentID *string
	CategoryID   *string
	Priority     *Priority
	TimeHours    float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Matches reports whether every non-nil scoping field equals the ticket's.
func (r SLARule) Matches(t *Ticket) bool {
	if r.DepartmentID != nil && (t.DepartmentID == nil || *t.DepartmentID != *r.DepartmentID) {
		return false
	}
	if r.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *r.CategoryID) {
		return false
	}
	if r.Priority != nil && t.Priority != *r.Priority {
		return false
	}
	return true
}

// Specificity counts the scoping fields that are set.
func (r SLARule) Specificity() int {
	n := 0
	if r.DepartmentID != nil {
		n++
	}
	if r.CategoryID != nil {
		n++
	}
	if r.Priority != nil {
		n++
	}
	return n
}
