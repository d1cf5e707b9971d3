package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/apperror"
)

func TestConstraintViolations(t *testing.T) {
	excl := fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.ExclusionViolation})
	uniq := &pgconn.PgError{Code: pgerrcode.UniqueViolation}

	assert.True(t, IsExclusionViolation(excl))
	assert.False(t, IsExclusionViolation(uniq))
	assert.True(t, IsUniqueViolation(uniq))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantTransient bool
	}{
		{"deadlock", &pgconn.PgError{Code: pgerrcode.DeadlockDetected}, true},
		{"serialization", &pgconn.PgError{Code: pgerrcode.SerializationFailure}, true},
		{"connection exception class", &pgconn.PgError{Code: pgerrcode.ConnectionFailure}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"syntax error", &pgconn.PgError{Code: pgerrcode.SyntaxError}, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, "query failed")

			var appErr *apperror.AppError
			isApp := errors.As(got, &appErr)
			if tt.wantTransient {
				assert.True(t, isApp)
				assert.Equal(t, apperror.KindTransient, appErr.Kind)
			} else {
				assert.False(t, isApp)
				assert.Contains(t, got.Error(), "query failed")
			}
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyPassesAppErrors(t *testing.T) {
	notFound := apperror.NotFound("booking not found")
	assert.Same(t, notFound, Classify(notFound, "ignored"))
	assert.NoError(t, Classify(nil, "ignored"))
}
