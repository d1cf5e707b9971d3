package user

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/futsal-booking-backend/internal/db"
)

// Repository defines methods for accessing user data from storage.
type Repository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, u *User) error
	UpdateLastLogin(ctx context.Context, id string, t time.Time) error
	SetPushToken(ctx context.Context, id string, token *string) error
}

type pgxUserRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository creates a new Repository implementation using pgxpool.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxUserRepository{
		pool: pool,
	}
}

const selectUser = `
	SELECT id, email, password_hash, display_name, phone, role, push_token, is_active, created_at, last_login_at
	FROM public.users
`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.DisplayName,
		&u.Phone,
		&u.Role,
		&u.PushToken,
		&u.IsActive,
		&u.CreatedAt,
		&u.LastLoginAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *pgxUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, selectUser+" WHERE email = $1", email))
	if err != nil {
		return nil, db.Classify(err, "GetByEmail query failed")
	}
	return u, nil
}

func (r *pgxUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, selectUser+" WHERE id = $1", id))
	if err != nil {
		return nil, db.Classify(err, "GetByID query failed")
	}
	return u, nil
}

func (r *pgxUserRepository) Create(ctx context.Context, u *User) error {
	const query = `
		INSERT INTO public.users (email, password_hash, display_name, phone, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	if err := r.pool.QueryRow(
		ctx,
		query,
		u.Email,
		u.PasswordHash,
		u.DisplayName,
		u.Phone,
		u.Role,
		u.IsActive,
	).Scan(&u.ID, &u.CreatedAt); err != nil {
		if db.IsUniqueViolation(err) {
			return ErrEmailAlreadyUsed
		}
		return db.Classify(err, "Create user failed")
	}

	return nil
}

func (r *pgxUserRepository) UpdateLastLogin(ctx context.Context, id string, t time.Time) error {
	ct, err := r.pool.Exec(ctx, `UPDATE public.users SET last_login_at = $1 WHERE id = $2`, t, id)
	if err != nil {
		return db.Classify(err, "UpdateLastLogin failed")
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxUserRepository) SetPushToken(ctx context.Context, id string, token *string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE public.users SET push_token = $1 WHERE id = $2`, token, id)
	if err != nil {
		return db.Classify(err, "SetPushToken failed")
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
