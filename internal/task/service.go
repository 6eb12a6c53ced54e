package task

import (
	"context"
)

// Tasks are created by the consultation engine (follow-ups) rather than over the
// API, so the service surface is read and status-update only.
type Service interface {
	GetByID(ctx context.Context, id string, callerID string) (*Task, error)
	List(ctx context.Context, filter Filter) ([]*Task, int, error)
	UpdateStatus(ctx context.Context, id string, status Status, callerID string) (*Task, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByID(ctx context.Context, id string, callerID string) (*Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.LawyerID != callerID {
		return nil, ErrAccessDenied
	}
	return t, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Task, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) UpdateStatus(ctx context.Context, id string, status Status, callerID string) (*Task, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.LawyerID != callerID {
		return nil, ErrAccessDenied
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	t.Status = status

	return t, nil
}
