package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, t *Task) error

	// CreateTx inserts a task inside a caller-owned transaction. Used by the
	// consultation engine so the follow-up task commits atomically with the
	// completion transition.
	CreateTx(ctx context.Context, tx pgx.Tx, t *Task) error

	GetByID(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, filter Filter) ([]*Task, int, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func buildInsert(t *Task) (string, []any, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	return psql.Insert("public.tasks").
		Columns("lawyer_id", "application_id", "title", "description", "status", "priority", "due_date").
		Values(t.LawyerID, t.ApplicationID, t.Title, t.Description, t.Status, t.Priority, t.DueDate).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
}

func (r *pgxRepository) Create(ctx context.Context, t *Task) error {
	query, args, err := buildInsert(t)
	if err != nil {
		return fmt.Errorf("build create task query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("create task failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) CreateTx(ctx context.Context, tx pgx.Tx, t *Task) error {
	query, args, err := buildInsert(t)
	if err != nil {
		return fmt.Errorf("build create task query failed: %w", err)
	}

	if err := tx.QueryRow(ctx, query, args...).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("create task failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Task, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"id", "lawyer_id", "application_id", "title", "description",
		"status", "priority", "due_date", "created_at", "updated_at",
	).
		From("public.tasks").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get task query failed: %w", err)
	}

	var t Task
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&t.ID, &t.LawyerID, &t.ApplicationID, &t.Title, &t.Description,
		&t.Status, &t.Priority, &t.DueDate, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task failed: %w", err)
	}
	return &t, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Task, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(
		"id", "lawyer_id", "application_id", "title", "description",
		"status", "priority", "due_date", "created_at", "updated_at",
		"count(*) OVER() as total_count",
	).From("public.tasks")

	if filter.LawyerID != "" {
		query = query.Where(squirrel.Eq{"lawyer_id": filter.LawyerID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}

	query = query.OrderBy("due_date ASC NULLS LAST", "created_at DESC")

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list tasks query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks failed: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	var total int

	for rows.Next() {
		var t Task
		if err := rows.Scan(
			&t.ID, &t.LawyerID, &t.ApplicationID, &t.Title, &t.Description,
			&t.Status, &t.Priority, &t.DueDate, &t.CreatedAt, &t.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan task failed: %w", err)
		}
		tasks = append(tasks, &t)
	}

	return tasks, total, nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.tasks").
		Set("status", status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update task query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
