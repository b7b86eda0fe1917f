package domain

import "time"

// Category groups tickets by subject and may carry a default SLA.
type Category struct {
	ID        string
	Name      string
	SLAHours  *float64
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
