package wallets

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
)

// Service exposes wallet reads.
type Service interface {
	GetWallet(ctx context.Context, userID uuid.UUID) (*WalletDTO, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	return &service{repo: repo}, nil
}

// GetWallet returns the caller's wallet, creating a zero wallet on first access.
func (s *service) GetWallet(ctx context.Context, userID uuid.UUID) (*WalletDTO, error) {
	wallet, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return FromModel(wallet), nil
}
