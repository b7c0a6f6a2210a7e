package domain

import "time"

// UserRole distinguishes the three actor kinds of the helpdesk.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleAgent    UserRole = "agent"
	RoleCustomer UserRole = "customer"
)

// ParseUserRole validates a raw role string.
func ParseUserRole(raw string) (UserRole, bool) {
	switch UserRole(raw) {
	case RoleAdmin, RoleAgent, RoleCustomer:
		return UserRole(raw), true
	}
	return "", false
}

// User is the domain model for everyone who touches a ticket: admins,
// agents and customers. Inactive agents are excluded from assignment.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsAgent() bool {
	return u.Role == RoleAgent
}

func (u *User) IsCustomer() bool {
	return u.Role == RoleCustomer
}
