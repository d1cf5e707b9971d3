package user

import (
	"time"

	"github.com/nekogravitycat/futsal-booking-backend/internal/auth"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.NotFound("user not found")
	ErrEmailAlreadyUsed   = apperror.Conflict("email already used")
	ErrInvalidCredentials = apperror.New(apperror.KindValidation, "invalid email or password")
	ErrInactiveUser       = apperror.Authorization("user is inactive")
	ErrEmailRequired      = apperror.Validation("email is required")
	ErrPasswordTooShort   = apperror.Validation("password is too short")
	ErrInvalidRole        = apperror.Validation("role must be user or vendor")
	ErrPushTokenInvalid   = apperror.Validation("push token must be 1-255 characters")
)

// User is an account; the role decides whether it books courts or owns them.
type User struct {
	ID           string // UUID
	Email        string
	PasswordHash string
	DisplayName  *string
	Phone        *string
	Role         auth.Role
	PushToken    *string
	IsActive     bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// Name returns the display name, falling back to the email.
func (u *User) Name() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Email
}
