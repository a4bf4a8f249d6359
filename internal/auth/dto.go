package auth

import "github.com/agromarket/agromarket-backend/internal/profiles"

type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	FullName string  `json:"full_name" validate:"omitempty,max=200"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Role     string  `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	AccessToken  string `json:"-"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type SetupAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"omitempty,max=200"`
	Secret   string `json:"secret,omitempty"`
}

// AuthResponse is returned by register, login and refresh.
type AuthResponse struct {
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
	TokenType    string               `json:"token_type"`
	ExpiresIn    int64                `json:"expires_in"`
	Profile      *profiles.ProfileDTO `json:"profile"`
	HomePath     string               `json:"home_path"`
}

type SetupAdminResponse struct {
	Profile  *profiles.ProfileDTO `json:"profile"`
	Promoted bool                 `json:"promoted"`
}
