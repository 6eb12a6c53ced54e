package consultation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/task"
)

type Repository interface {
	// CreateIfFree checks the lawyer's active reservations for overlap and
	// inserts the consultation as one atomic unit. Two concurrent requests for
	// overlapping slots on the same lawyer cannot both succeed.
	CreateIfFree(ctx context.Context, c *Consultation) error

	GetByID(ctx context.Context, id string) (*Consultation, error)
	List(ctx context.Context, filter Filter) ([]*Consultation, int, error)

	// Update persists new status/notes guarded by the expected current status
	// (compare-and-set). When followUp is non-nil it is inserted in the same
	// transaction, so a completion can never commit without its task.
	// Returns ErrIllegalTransition when a concurrent transition won the race,
	// ErrNotFound when the row is gone.
	Update(ctx context.Context, c *Consultation, expected Status, followUp *task.Task) error

	// Delete removes the consultation row. Hard delete.
	Delete(ctx context.Context, id string) error

	// HasOverlap reports whether any active consultation of the lawyer
	// intersects the half-open interval [start, end).
	HasOverlap(ctx context.Context, lawyerID string, start, end time.Time, excludeID string) (bool, error)
}

type pgxRepository struct {
	pool     *pgxpool.Pool
	taskRepo task.Repository
}

func NewPgxRepository(pool *pgxpool.Pool, taskRepo task.Repository) Repository {
	return &pgxRepository{pool: pool, taskRepo: taskRepo}
}

const consultationColumns = `id, client_id, lawyer_id, application_id, scheduled_time, duration,
	status, notes, meeting_link, created_at, updated_at`

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	if err := row.Scan(
		&c.ID, &c.ClientID, &c.LawyerID, &c.ApplicationID, &c.ScheduledTime, &c.Duration,
		&c.Status, &c.Notes, &c.MeetingLink, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *pgxRepository) CreateIfFree(ctx context.Context, c *Consultation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create consultation tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize check-then-insert per lawyer. The lock is released at commit,
	// so concurrent creations for the same lawyer queue up behind it instead
	// of racing the overlap check.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", c.LawyerID); err != nil {
		return fmt.Errorf("acquire lawyer booking lock failed: %w", err)
	}

	conflict, err := hasOverlap(ctx, tx, c.LawyerID, c.ScheduledTime, c.EndTime(), "")
	if err != nil {
		return err
	}
	if conflict {
		return ErrTimeConflict
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.consultations").
		Columns("client_id", "lawyer_id", "application_id", "scheduled_time", "duration", "status", "notes", "meeting_link").
		Values(c.ClientID, c.LawyerID, c.ApplicationID, c.ScheduledTime, c.Duration, c.Status, c.Notes, c.MeetingLink).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create consultation query failed: %w", err)
	}

	if err := tx.QueryRow(ctx, query, args...).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		// The schema carries an exclusion constraint on the lawyer's active
		// time ranges as a backstop; map its violation to the same outcome
		// as the in-transaction check.
		var e *pgconn.PgError
		if errors.As(err, &e) && e.Code == pgerrcode.ExclusionViolation {
			return ErrTimeConflict
		}
		return fmt.Errorf("create consultation failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create consultation tx failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Consultation, error) {
	query := "SELECT " + consultationColumns + " FROM public.consultations WHERE id = $1"

	c, err := scanConsultation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get consultation failed: %w", err)
	}
	return c, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Consultation, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(
		"id", "client_id", "lawyer_id", "application_id", "scheduled_time", "duration",
		"status", "notes", "meeting_link", "created_at", "updated_at",
		"count(*) OVER() as total_count",
	).From("public.consultations")

	if filter.ClientID != "" {
		query = query.Where(squirrel.Eq{"client_id": filter.ClientID})
	}
	if filter.LawyerID != "" {
		query = query.Where(squirrel.Eq{"lawyer_id": filter.LawyerID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.From != nil {
		query = query.Where(squirrel.GtOrEq{"scheduled_time": *filter.From})
	}
	if filter.To != nil {
		query = query.Where(squirrel.Lt{"scheduled_time": *filter.To})
	}

	order := "scheduled_time DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "scheduled_time ASC"
	}
	query = query.OrderBy(order)

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
		return nil, 0, fmt.Errorf("build list consultations query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list consultations failed: %w", err)
	}
	defer rows.Close()

	var result []*Consultation
	var total int

	for rows.Next() {
		var c Consultation
		if err := rows.Scan(
			&c.ID, &c.ClientID, &c.LawyerID, &c.ApplicationID, &c.ScheduledTime, &c.Duration,
			&c.Status, &c.Notes, &c.MeetingLink, &c.CreatedAt, &c.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan consultation failed: %w", err)
		}
		result = append(result, &c)
	}

	return result, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, c *Consultation, expected Status, followUp *task.Task) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update consultation tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.consultations").
		Set("status", c.Status).
		Set("notes", c.Notes).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": c.ID, "status": expected}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update consultation query failed: %w", err)
	}

	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update consultation failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		// The guarded update matched nothing: either the row is gone or a
		// concurrent transition changed the status first.
		var exists bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM public.consultations WHERE id = $1)", c.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check consultation existence failed: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrIllegalTransition
	}

	if followUp != nil {
		if err := r.taskRepo.CreateTx(ctx, tx, followUp); err != nil {
			return fmt.Errorf("create follow-up task failed: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update consultation tx failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.consultations").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete consultation query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete consultation failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) HasOverlap(ctx context.Context, lawyerID string, start, end time.Time, excludeID string) (bool, error) {
	return hasOverlap(ctx, r.pool, lawyerID, start, end, excludeID)
}

// hasOverlap runs against either the pool or an open transaction.
func hasOverlap(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, lawyerID string, start, end time.Time, excludeID string) (bool, error) {
	// Overlap test on the half-open interval:
	// existing.start < new.end AND existing.end > new.start.
	// Only active statuses count; terminal rows free their slot.
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	subQuery := psql.Select("1").
		From("public.consultations").
		Where(squirrel.Eq{"lawyer_id": lawyerID}).
		Where(squirrel.Eq{"status": []string{string(StatusPending), string(StatusScheduled)}}).
		Where(squirrel.Lt{"scheduled_time": end}).
		Where(squirrel.Expr("scheduled_time + (duration * interval '1 minute') > ?", start))

	if excludeID != "" {
		subQuery = subQuery.Where(squirrel.NotEq{"id": excludeID})
	}

	sql, args, err := subQuery.ToSql()
	if err != nil {
		return false, fmt.Errorf("build overlap check query failed: %w", err)
	}

	var exists bool
	if err := q.QueryRow(ctx, "SELECT EXISTS ("+sql+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("overlap check failed: %w", err)
	}
	return exists, nil
}
