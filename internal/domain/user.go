package domain

import "time"

// UserStatus is the lifecycle state of a requester account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User opens tickets. DepartmentID seeds the department of new tickets.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Status       UserStatus
	DepartmentID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanSignIn reports whether the account may authenticate.
func (u *User) CanSignIn() bool {
	return u != nil && u.Status == UserStatusActive
}
