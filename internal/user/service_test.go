package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/futsal-booking-backend/internal/auth"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*User)
	return u, args.Error(1)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*User)
	return u, args.Error(1)
}

func (m *mockRepo) Create(ctx context.Context, u *User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockRepo) UpdateLastLogin(ctx context.Context, id string, t time.Time) error {
	return m.Called(ctx, id, t).Error(0)
}

func (m *mockRepo) SetPushToken(ctx context.Context, id string, token *string) error {
	return m.Called(ctx, id, token).Error(0)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	hasher := auth.NewBcryptPasswordHasherWithCost(4)

	t.Run("defaults role to user and normalizes email", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("Create", ctx, mock.MatchedBy(func(u *User) bool {
			return u.Email == "ram@example.com" && u.Role == auth.RoleUser && u.IsActive && u.Phone == nil
		})).Return(nil).Once()

		u, err := NewService(repo, hasher).Register(ctx, RegisterRequest{
			Email: "  Ram@Example.com ", Password: "password1", DisplayName: "Ram",
		})
		require.NoError(t, err)
		assert.NotEqual(t, "password1", u.PasswordHash)
		assert.Equal(t, "Ram", u.Name())
		repo.AssertExpectations(t)
	})

	t.Run("vendor role", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("Create", ctx, mock.Anything).Return(nil).Once()

		u, err := NewService(repo, hasher).Register(ctx, RegisterRequest{
			Email: "arena@example.com", Password: "password1", Role: auth.RoleVendor,
		})
		require.NoError(t, err)
		assert.Equal(t, auth.RoleVendor, u.Role)
	})

	t.Run("validation", func(t *testing.T) {
		svc := NewService(new(mockRepo), hasher)

		_, err := svc.Register(ctx, RegisterRequest{Email: " ", Password: "password1"})
		assert.ErrorIs(t, err, ErrEmailRequired)

		_, err = svc.Register(ctx, RegisterRequest{Email: "a@b.c", Password: "short"})
		assert.ErrorIs(t, err, ErrPasswordTooShort)

		_, err = svc.Register(ctx, RegisterRequest{Email: "a@b.c", Password: "password1", Role: "admin"})
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("Create", ctx, mock.Anything).Return(ErrEmailAlreadyUsed).Once()

		_, err := NewService(repo, hasher).Register(ctx, RegisterRequest{Email: "a@b.c", Password: "password1"})
		assert.ErrorIs(t, err, ErrEmailAlreadyUsed)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	hasher := auth.NewBcryptPasswordHasherWithCost(4)
	hash, err := hasher.Hash("password1")
	require.NoError(t, err)

	active := &User{ID: "u-1", Email: "a@b.c", PasswordHash: hash, Role: auth.RoleUser, IsActive: true}

	t.Run("success even if last login update fails", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetByEmail", ctx, "a@b.c").Return(active, nil).Once()
		repo.On("UpdateLastLogin", ctx, "u-1", mock.Anything).Return(errors.New("db down")).Once()

		u, err := NewService(repo, hasher).Login(ctx, "A@B.C", "password1")
		require.NoError(t, err)
		assert.Equal(t, "u-1", u.ID)
		repo.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetByEmail", ctx, "a@b.c").Return(active, nil).Once()

		_, err := NewService(repo, hasher).Login(ctx, "a@b.c", "nope-nope")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetByEmail", ctx, "x@b.c").Return(nil, ErrNotFound).Once()

		_, err := NewService(repo, hasher).Login(ctx, "x@b.c", "password1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("inactive", func(t *testing.T) {
		inactive := *active
		inactive.IsActive = false
		repo := new(mockRepo)
		repo.On("GetByEmail", ctx, "a@b.c").Return(&inactive, nil).Once()

		_, err := NewService(repo, hasher).Login(ctx, "a@b.c", "password1")
		assert.ErrorIs(t, err, ErrInactiveUser)
	})
}

func TestPushToken(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	svc := NewService(repo, auth.NewBcryptPasswordHasherWithCost(4))

	assert.ErrorIs(t, svc.SetPushToken(ctx, "u-1", "   "), ErrPushTokenInvalid)

	token := "ExponentPushToken[abc]"
	repo.On("SetPushToken", ctx, "u-1", &token).Return(nil).Once()
	require.NoError(t, svc.SetPushToken(ctx, "u-1", " ExponentPushToken[abc] "))

	repo.On("SetPushToken", ctx, "u-1", (*string)(nil)).Return(nil).Once()
	require.NoError(t, svc.ClearPushToken(ctx, "u-1"))

	repo.AssertExpectations(t)
}
