package db

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/apperror"
)

// IsExclusionViolation reports whether err is an EXCLUDE constraint violation.
func IsExclusionViolation(err error) bool {
	return hasCode(err, pgerrcode.ExclusionViolation)
}

// IsUniqueViolation reports whether err is a UNIQUE constraint violation.
func IsUniqueViolation(err error) bool {
	return hasCode(err, pgerrcode.UniqueViolation)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// IsTransient reports whether err is caused by connectivity or contention and is safe to retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected,
			pgerrcode.LockNotAvailable, pgerrcode.TooManyConnections,
			pgerrcode.AdminShutdown, pgerrcode.CannotConnectNow:
			return true
		}
		return strings.HasPrefix(pgErr.Code, "08")
	}

	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

// Classify wraps a datastore error with context, marking retryable ones as transient.
// Errors that already carry an apperror.AppError pass through unchanged.
func Classify(err error, msg string) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	wrapped := errors.Wrap(err, msg)
	if IsTransient(err) {
		return apperror.Transient(wrapped)
	}
	return wrapped
}
