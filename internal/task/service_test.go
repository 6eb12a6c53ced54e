package task

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTaskRepo struct {
	tasks map[string]*Task
}

func (r *fakeTaskRepo) Create(_ context.Context, t *Task) error {
	r.tasks[t.ID] = t
	return nil
}

func (r *fakeTaskRepo) CreateTx(_ context.Context, _ pgx.Tx, t *Task) error {
	r.tasks[t.ID] = t
	return nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id string) (*Task, error) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTaskRepo) List(_ context.Context, _ Filter) ([]*Task, int, error) {
	var out []*Task
	for _, t := range r.tasks {
		copied := *t
		out = append(out, &copied)
	}
	return out, len(out), nil
}

func (r *fakeTaskRepo) UpdateStatus(_ context.Context, id string, status Status) error {
	t, ok := r.tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	return nil
}

func setup() (Service, *fakeTaskRepo) {
	repo := &fakeTaskRepo{tasks: map[string]*Task{
		"task-1": {ID: "task-1", LawyerID: "lawyer-1", Title: "Follow up", Status: StatusPending},
	}}
	return NewService(repo), repo
}

func TestTaskOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup()

	t.Run("owner reads", func(t *testing.T) {
		got, err := svc.GetByID(ctx, "task-1", "lawyer-1")
		require.NoError(t, err)
		assert.Equal(t, "Follow up", got.Title)
	})

	t.Run("non-owner denied", func(t *testing.T) {
		_, err := svc.GetByID(ctx, "task-1", "lawyer-2")
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("missing task", func(t *testing.T) {
		_, err := svc.GetByID(ctx, "task-404", "lawyer-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTaskUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("owner moves the task along", func(t *testing.T) {
		svc, repo := setup()

		got, err := svc.UpdateStatus(ctx, "task-1", StatusInProgress, "lawyer-1")
		require.NoError(t, err)

		assert.Equal(t, StatusInProgress, got.Status)
		assert.Equal(t, StatusInProgress, repo.tasks["task-1"].Status)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		svc, repo := setup()

		_, err := svc.UpdateStatus(ctx, "task-1", Status("done"), "lawyer-1")
		assert.ErrorIs(t, err, ErrInvalidStatus)
		assert.Equal(t, StatusPending, repo.tasks["task-1"].Status)
	})

	t.Run("non-owner rejected", func(t *testing.T) {
		svc, repo := setup()

		_, err := svc.UpdateStatus(ctx, "task-1", StatusCompleted, "lawyer-2")
		assert.ErrorIs(t, err, ErrAccessDenied)
		assert.Equal(t, StatusPending, repo.tasks["task-1"].Status)
	})
}
