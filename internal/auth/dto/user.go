package dto

import (
	"time"

	"github.com/m-aykurt/bakici-backend/internal/auth/domain"
)

type UserOutput struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	PhoneNumber   string     `json:"phone_number,omitempty"`
	UserType      string     `json:"user_type"`
	EmailVerified bool       `json:"email_verified"`
	PhoneVerified bool       `json:"phone_verified"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	Roles         []string   `json:"roles"`
}

func NewUserOutput(user *domain.User) *UserOutput {
	return &UserOutput{
		ID:            user.ID,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		PhoneNumber:   user.PhoneNumber,
		UserType:      user.UserType,
		EmailVerified: user.EmailVerified,
		PhoneVerified: user.PhoneVerified,
		IsActive:      user.IsActive,
		CreatedAt:     user.CreatedAt,
		LastLoginAt:   user.LastLoginAt,
		Roles:         user.RoleNames(),
	}
}
