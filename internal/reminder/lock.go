package reminder

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/futsal-booking-backend/internal/db"
)

// Locker guards a sweep across processes.
type Locker interface {
	// TryLock returns ok=false without waiting when another sweep holds the lock.
	TryLock(ctx context.Context) (release func(), ok bool, err error)
}

type pgLocker struct {
	pool *pgxpool.Pool
	key  int64
}

// NewPgLocker uses a session-level Postgres advisory lock on key.
func NewPgLocker(pool *pgxpool.Pool, key int64) Locker {
	return &pgLocker{pool: pool, key: key}
}

func (l *pgLocker) TryLock(ctx context.Context) (func(), bool, error) {
	lock, ok, err := db.TryAdvisoryLock(ctx, l.pool, l.key)
	if err != nil || !ok {
		return nil, false, err
	}
	return func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}, true, nil
}

type nopLocker struct{}

func (nopLocker) TryLock(context.Context) (func(), bool, error) {
	return func() {}, true, nil
}
