package domain

import "time"

// PriorityConfig holds per-priority display data and the default SLA used
// when neither a rule nor a category default applies.
type PriorityConfig struct {
	Code      Priority
	Name      string
	SLAHours  *float64
	SortOrder int
	UpdatedAt time.Time
}

// DisplayName falls back to the code when no name is configured.
func (p PriorityConfig) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return string(p.Code)
}
