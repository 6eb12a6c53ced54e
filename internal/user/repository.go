package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines methods for accessing user data from storage.
type Repository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, u *User) error
	UpdateLastLogin(ctx context.Context, id string, t time.Time) error
	List(ctx context.Context, filter Filter) ([]*User, int, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository creates a new Repository implementation using pgxpool.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

const userColumns = "id, email, password_hash, display_name, phone, role, created_at, last_login_at, is_active"

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.DisplayName,
		&u.Phone,
		&u.Role,
		&u.CreatedAt,
		&u.LastLoginAt,
		&u.IsActive,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *pgxRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := "SELECT " + userColumns + " FROM public.users WHERE email = $1"

	u, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by email failed: %w", err)
	}
	return u, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*User, error) {
	query := "SELECT " + userColumns + " FROM public.users WHERE id = $1"

	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by id failed: %w", err)
	}
	return u, nil
}

func (r *pgxRepository) Create(ctx context.Context, u *User) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.users").
		Columns("email", "password_hash", "display_name", "phone", "role", "is_active").
		Values(u.Email, u.PasswordHash, u.DisplayName, u.Phone, u.Role, u.IsActive).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create user query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&u.ID, &u.CreatedAt); err != nil {
		var e *pgconn.PgError
		if errors.As(err, &e) && e.Code == pgerrcode.UniqueViolation {
			return ErrEmailAlreadyUsed
		}
		return fmt.Errorf("create user failed: %w", err)
	}

	return nil
}

func (r *pgxRepository) UpdateLastLogin(ctx context.Context, id string, t time.Time) error {
	const query = `
		UPDATE public.users
		SET last_login_at = $1
		WHERE id = $2
	`

	ct, err := r.pool.Exec(ctx, query, t, id)
	if err != nil {
		return fmt.Errorf("update last login failed: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*User, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(
		"id", "email", "password_hash", "display_name", "phone", "role",
		"created_at", "last_login_at", "is_active",
		"count(*) OVER() as total_count",
	).From("public.users")

	if filter.Email != "" {
		query = query.Where(squirrel.ILike{"email": "%" + filter.Email + "%"})
	}
	if filter.DisplayName != "" {
		query = query.Where(squirrel.ILike{"display_name": "%" + filter.DisplayName + "%"})
	}
	if filter.Role != "" {
		query = query.Where(squirrel.Eq{"role": filter.Role})
	}
	if filter.IsActive != nil {
		query = query.Where(squirrel.Eq{"is_active": *filter.IsActive})
	}

	query = query.OrderBy("created_at DESC")

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
		return nil, 0, fmt.Errorf("build list users query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users failed: %w", err)
	}
	defer rows.Close()

	var users []*User
	var total int

	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.ID,
			&u.Email,
			&u.PasswordHash,
			&u.DisplayName,
			&u.Phone,
			&u.Role,
			&u.CreatedAt,
			&u.LastLoginAt,
			&u.IsActive,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan user failed: %w", err)
		}
		users = append(users, &u)
	}

	return users, total, nil
}
