package profiles

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/agromarket/agromarket-backend/internal/wallets"
	"github.com/agromarket/agromarket-backend/pkg/db"
	"github.com/agromarket/agromarket-backend/pkg/db/models"
	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
)

// Provision creates a profile and its zero wallet inside tx. A taken email is a conflict.
func Provision(ctx context.Context, tx *gorm.DB, dto CreateProfileDTO) (*models.Profile, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := NewRepository(tx)
	if _, err := repo.FindByEmail(ctx, dto.Email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check profile email")
	}

	profile, err := repo.Create(ctx, dto)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create profile")
	}
	if _, err := wallets.NewRepository(tx).Create(ctx, profile.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
	}
	return profile, nil
}
