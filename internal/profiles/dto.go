package profiles

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
)

// ProfileDTO is the transport shape that omits the password hash.
type ProfileDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Role        enums.Role `json:"role"`
	Phone       *string    `json:"phone,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateProfileDTO holds the data required by the repo to persist a new profile.
type CreateProfileDTO struct {
	Email        string
	PasswordHash string
	FullName     string
	Role         enums.Role
	Phone        *string
}

func FromModel(p *models.Profile) *ProfileDTO {
	if p == nil {
		return nil
	}
	return &ProfileDTO{
		ID:          p.ID,
		Email:       p.Email,
		FullName:    p.FullName,
		Role:        p.Role,
		Phone:       p.Phone,
		IsActive:    p.IsActive,
		LastLoginAt: p.LastLoginAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (c CreateProfileDTO) ToModel() *models.Profile {
	fullName := strings.TrimSpace(c.FullName)
	email := NormalizeEmail(c.Email)
	if fullName == "" {
		fullName = DefaultFullName(email)
	}
	return &models.Profile{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: c.PasswordHash,
		FullName:     fullName,
		Role:         c.Role,
		Phone:        c.Phone,
		IsActive:     true,
	}
}

// DefaultFullName is the local part of the email.
func DefaultFullName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
