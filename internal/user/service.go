package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/auth"
)

// RegisterRequest holds the input for creating a new account.
type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
	Phone       string
	Role        Role
}

// Service defines business logic related to users.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)

	// ListLawyers returns active lawyer accounts, for the booking directory.
	ListLawyers(ctx context.Context, page, pageSize int) ([]*User, int, error)
}

type service struct {
	repo   Repository
	hasher auth.PasswordHasher
	logger *zap.Logger

	minPasswordLength int
}

// NewService creates a new user Service.
func NewService(repo Repository, hasher auth.PasswordHasher, logger *zap.Logger) Service {
	return &service{
		repo:              repo,
		hasher:            hasher,
		logger:            logger,
		minPasswordLength: 8,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	cleanEmail := normalizeEmail(req.Email)
	if cleanEmail == "" {
		return nil, fmt.Errorf("email is required")
	}

	if len(req.Password) < s.minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", s.minPasswordLength)
	}

	// Admin accounts are provisioned out of band, never via signup.
	if !req.Role.IsValid() || req.Role == RoleAdmin {
		return nil, ErrInvalidRole
	}

	// Check if email is already used.
	_, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err == nil {
		return nil, ErrEmailAlreadyUsed
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &User{
		Email:        cleanEmail,
		PasswordHash: hash,
		DisplayName:  optionalString(req.DisplayName),
		Phone:        optionalString(req.Phone),
		Role:         req.Role,
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", u.ID),
		zap.String("role", string(u.Role)))

	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*User, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch user by email: %w", err)
	}

	if !u.IsActive {
		return nil, ErrInactiveUser
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Best effort; do not fail login if the timestamp update fails.
	now := time.Now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, u.ID, now); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", u.ID), zap.Error(err))
	}

	return u, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListLawyers(ctx context.Context, page, pageSize int) ([]*User, int, error) {
	active := true
	return s.repo.List(ctx, Filter{
		Role:     string(RoleLawyer),
		IsActive: &active,
		Page:     page,
		PageSize: pageSize,
	})
}

// normalizeEmail trims spaces and lowercases the email.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optionalString(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
