package http

import (
	"time"

	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/pkg/request"
	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/user"
)

// RegisterRequest defines the payload for user registration.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
	Phone       string `json:"phone"`
	Role        string `json:"role" binding:"required,oneof=applicant lawyer"`
}

// LoginRequest defines the payload for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ListLawyersRequest defines query parameters for the lawyer directory.
type ListLawyersRequest struct {
	request.ListParams
}

// UserResponse is the shape of user data returned in API responses.
type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName *string    `json:"display_name"`
	Phone       *string    `json:"phone"`
	Role        string     `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
	IsActive    bool       `json:"is_active"`
}

// LawyerResponse is the public shape of a bookable lawyer.
type LawyerResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	DisplayName *string `json:"display_name"`
	Phone       *string `json:"phone"`
}

// NewUserResponse converts domain user.User to UserResponse used by the API.
func NewUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Phone:       u.Phone,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
		IsActive:    u.IsActive,
	}
}

// NewLawyerResponse converts a lawyer account to its public directory shape.
func NewLawyerResponse(u *user.User) LawyerResponse {
	return LawyerResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Phone:       u.Phone,
	}
}

// LoginResponse returns the token and user info.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// MeResponse returns the current user info.
type MeResponse struct {
	User UserResponse `json:"user"`
}
