package notification

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Enqueue(ctx context.Context, n *Notification) error

	// ClaimPending picks up to limit pending rows for this dispatcher run and
	// bumps their attempt counter in the same statement. Rows locked by a
	// concurrent run are skipped, so two dispatchers never deliver the same
	// row in one cycle.
	ClaimPending(ctx context.Context, limit int) ([]*Notification, error)

	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, lastError string, terminal bool) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Enqueue(ctx context.Context, n *Notification) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.notifications").
		Columns("recipient_id", "template", "payload", "status").
		Values(n.RecipientID, n.Template, n.Payload, StatusPending).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build enqueue notification query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n.ID, &n.CreatedAt); err != nil {
		return fmt.Errorf("enqueue notification failed: %w", err)
	}
	n.Status = StatusPending
	return nil
}

func (r *pgxRepository) ClaimPending(ctx context.Context, limit int) ([]*Notification, error) {
	const query = `
		UPDATE public.notifications
		SET attempts = attempts + 1
		WHERE id IN (
			SELECT id
			FROM public.notifications
			WHERE status = 'pending'
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, recipient_id, template, payload, status, attempts, last_error, created_at, sent_at
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("claim pending notifications failed: %w", err)
	}
	defer rows.Close()

	var result []*Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(
			&n.ID, &n.RecipientID, &n.Template, &n.Payload,
			&n.Status, &n.Attempts, &n.LastError, &n.CreatedAt, &n.SentAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification failed: %w", err)
		}
		result = append(result, &n)
	}

	return result, nil
}

func (r *pgxRepository) MarkSent(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.notifications").
		Set("status", StatusSent).
		Set("sent_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark sent query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark notification sent failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) MarkFailed(ctx context.Context, id string, lastError string, terminal bool) error {
	status := StatusPending
	if terminal {
		status = StatusFailed
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.notifications").
		Set("status", status).
		Set("last_error", lastError).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark failed query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark notification failed failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
