package db

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionLock is a session-level advisory lock pinned to one pooled connection.
type SessionLock struct {
	conn *pgxpool.Conn
	key  int64
}

// TryAdvisoryLock takes pg_try_advisory_lock(key) without waiting.
// ok is false when another session holds the key.
func TryAdvisoryLock(ctx context.Context, pool *pgxpool.Pool, key int64) (*SessionLock, bool, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, Classify(err, "acquire lock connection")
	}

	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, Classify(err, "pg_try_advisory_lock failed")
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}
	return &SessionLock{conn: conn, key: key}, true, nil
}

// Release unlocks and returns the connection to the pool. A connection whose
// unlock failed is closed so the lock cannot outlive the holder.
func (l *SessionLock) Release(ctx context.Context) error {
	var unlocked bool
	err := l.conn.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", l.key).Scan(&unlocked)
	if err != nil || !unlocked {
		_ = l.conn.Conn().Close(context.WithoutCancel(ctx))
	}
	l.conn.Release()
	if err != nil {
		return errors.Wrap(err, "pg_advisory_unlock failed")
	}
	return nil
}
