package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
)

// PaystackKeys is the masked view returned to admins.
type PaystackKeys struct {
	PublicKey       string `json:"public_key"`
	SecretKey       string `json:"secret_key"`
	SecretKeySource string `json:"secret_key_source"`
}

type UpdatePaystackKeysInput struct {
	PublicKey *string `json:"public_key,omitempty"`
	SecretKey *string `json:"secret_key,omitempty"`
}

type Service interface {
	PaystackKeys(ctx context.Context) (*PaystackKeys, error)
	UpdatePaystackKeys(ctx context.Context, adminID uuid.UUID, input UpdatePaystackKeysInput) (*PaystackKeys, error)
	// SecretKey implements paystack.KeyResolver. The stored setting wins over the configured key.
	SecretKey(ctx context.Context) (string, error)
}

type service struct {
	repo           *Repository
	fallbackSecret string
	fallbackPublic string
}

func NewService(repo *Repository, fallbackSecret, fallbackPublic string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	return &service{repo: repo, fallbackSecret: fallbackSecret, fallbackPublic: fallbackPublic}, nil
}

func (s *service) SecretKey(ctx context.Context) (string, error) {
	stored, err := s.repo.GetString(ctx, KeyPaystackSecret)
	if err != nil {
		return "", err
	}
	if stored != "" {
		return stored, nil
	}
	return s.fallbackSecret, nil
}

func (s *service) PaystackKeys(ctx context.Context) (*PaystackKeys, error) {
	public, err := s.repo.GetString(ctx, KeyPaystackPublic)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load paystack public key")
	}
	secret, err := s.repo.GetString(ctx, KeyPaystackSecret)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load paystack secret key")
	}
	source := "settings"
	if secret == "" {
		secret = s.fallbackSecret
		source = "environment"
		if secret == "" {
			source = "unset"
		}
	}
	if public == "" {
		public = s.fallbackPublic
	}
	return &PaystackKeys{
		PublicKey:       public,
		SecretKey:       Mask(secret),
		SecretKeySource: source,
	}, nil
}

func (s *service) UpdatePaystackKeys(ctx context.Context, adminID uuid.UUID, input UpdatePaystackKeysInput) (*PaystackKeys, error) {
	if input.PublicKey == nil && input.SecretKey == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "public_key or secret_key is required")
	}
	if input.PublicKey != nil {
		if err := s.repo.PutString(ctx, KeyPaystackPublic, strings.TrimSpace(*input.PublicKey), adminID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save paystack public key")
		}
	}
	if input.SecretKey != nil {
		if err := s.repo.PutString(ctx, KeyPaystackSecret, strings.TrimSpace(*input.SecretKey), adminID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save paystack secret key")
		}
	}
	return s.PaystackKeys(ctx)
}

// Mask keeps the last four characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
