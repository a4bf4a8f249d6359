package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agromarket/agromarket-backend/internal/wallets"
	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
)

// MeDTO is the caller's identity view.
type MeDTO struct {
	Profile  *ProfileDTO        `json:"profile"`
	Wallet   *wallets.WalletDTO `json:"wallet"`
	HomePath string             `json:"home_path"`
}

// UpdateMeInput holds optional self-edit fields.
type UpdateMeInput struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=200"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

type Service interface {
	Me(ctx context.Context, userID uuid.UUID) (*MeDTO, error)
	UpdateMe(ctx context.Context, userID uuid.UUID, input UpdateMeInput) (*MeDTO, error)
}

type walletLoader interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
}

type service struct {
	repo    *Repository
	wallets walletLoader
}

func NewService(repo *Repository, wallets walletLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	return &service{repo: repo, wallets: wallets}, nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*MeDTO, error) {
	profile, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	home, err := enums.HomePath(profile.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve home path")
	}
	wallet, err := s.wallets.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return &MeDTO{Profile: FromModel(profile), Wallet: wallets.FromModel(wallet), HomePath: home}, nil
}

func (s *service) UpdateMe(ctx context.Context, userID uuid.UUID, input UpdateMeInput) (*MeDTO, error) {
	if input.FullName != nil {
		trimmed := strings.TrimSpace(*input.FullName)
		if trimmed == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "full_name cannot be empty")
		}
		input.FullName = &trimmed
	}
	if err := s.repo.UpdateDetails(ctx, userID, input.FullName, input.Phone); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return s.Me(ctx, userID)
}
