package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailAlreadyUsed   = errors.New("email already used")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveUser       = errors.New("user is inactive")
	ErrInvalidRole        = errors.New("invalid role")
)

// Role classifies the account. Lawyers can be booked for consultations,
// applicants request them, admins can see everything.
type Role string

const (
	RoleApplicant Role = "applicant"
	RoleLawyer    Role = "lawyer"
	RoleAdmin     Role = "admin"
)

// IsValid reports whether the role is one of the known account roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleApplicant, RoleLawyer, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the system.
type User struct {
	ID           string // UUID
	Email        string
	PasswordHash string
	DisplayName  *string
	Phone        *string
	Role         Role
	CreatedAt    time.Time
	LastLoginAt  *time.Time
	IsActive     bool
}

// IsLawyer reports whether the account can be booked for consultations.
func (u *User) IsLawyer() bool {
	return u.Role == RoleLawyer
}

// Filter defines filter options for listing users.
type Filter struct {
	Email       string
	DisplayName string
	Role        string
	IsActive    *bool // Pointer to distinguish between false and not set

	Page     int
	PageSize int
}
