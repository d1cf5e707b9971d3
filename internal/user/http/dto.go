package http

import (
	"time"

	"github.com/nekogravitycat/futsal-booking-backend/internal/user"
)

// UserResponse is the shape of user data returned in API responses.
type UserResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	DisplayName  *string    `json:"display_name"`
	Phone        *string    `json:"phone"`
	Role         string     `json:"role"`
	HasPushToken bool       `json:"has_push_token"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

// NewUserResponse converts domain user.User to UserResponse used by the API.
func NewUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		Phone:        u.Phone,
		Role:         string(u.Role),
		HasPushToken: u.PushToken != nil,
		CreatedAt:    u.CreatedAt,
		LastLoginAt:  u.LastLoginAt,
	}
}

// RegisterRequest defines the payload for account registration.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
	Phone       string `json:"phone" binding:"omitempty,max=32"`
	Role        string `json:"role" binding:"omitempty,oneof=user vendor"`
}

// LoginRequest defines the payload for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// PushTokenRequest registers the device token used for push notifications.
type PushTokenRequest struct {
	Token string `json:"token" binding:"required,max=255"`
}

// LoginResponse returns the token and user info.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// MeResponse returns the current user info.
type MeResponse struct {
	User UserResponse `json:"user"`
}
