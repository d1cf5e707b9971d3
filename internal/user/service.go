package user

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nekogravitycat/futsal-booking-backend/internal/auth"
)

// RegisterRequest carries the data needed to open an account.
type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
	Phone       string
	Role        auth.Role
}

// Service defines business logic related to users.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	SetPushToken(ctx context.Context, id, token string) error
	ClearPushToken(ctx context.Context, id string) error
}

type service struct {
	repo   Repository
	hasher auth.PasswordHasher
	now    func() time.Time

	minPasswordLength int
}

// NewService creates a new user Service.
func NewService(repo Repository, hasher auth.PasswordHasher) Service {
	return &service{
		repo:              repo,
		hasher:            hasher,
		now:               time.Now,
		minPasswordLength: 8,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	cleanEmail := normalizeEmail(req.Email)
	if cleanEmail == "" {
		return nil, ErrEmailRequired
	}
	if len(req.Password) < s.minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	role := req.Role
	if role == "" {
		role = auth.RoleUser
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:        cleanEmail,
		PasswordHash: hash,
		DisplayName:  optional(req.DisplayName),
		Phone:        optional(req.Phone),
		Role:         role,
		IsActive:     true,
	}

	// Duplicate emails surface from the unique constraint.
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*User, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !u.IsActive {
		return nil, ErrInactiveUser
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Best effort; a failed timestamp update does not fail the login.
	if err := s.repo.UpdateLastLogin(ctx, u.ID, s.now().UTC()); err != nil {
		slog.WarnContext(ctx, "failed to update last login", "user_id", u.ID, "error", err)
	}

	return u, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) SetPushToken(ctx context.Context, id, token string) error {
	token = strings.TrimSpace(token)
	if token == "" || len(token) > 255 {
		return ErrPushTokenInvalid
	}
	return s.repo.SetPushToken(ctx, id, &token)
}

func (s *service) ClearPushToken(ctx context.Context, id string) error {
	return s.repo.SetPushToken(ctx, id, nil)
}

// normalizeEmail trims spaces and lowercases the email.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
