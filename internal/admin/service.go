package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agromarket/agromarket-backend/internal/orders"
	"github.com/agromarket/agromarket-backend/internal/profiles"
	"github.com/agromarket/agromarket-backend/pkg/config"
	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
	"github.com/agromarket/agromarket-backend/pkg/money"
	"github.com/agromarket/agromarket-backend/pkg/pagination"
	"github.com/agromarket/agromarket-backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type profileRepository interface {
	List(ctx context.Context, page pagination.Params) ([]models.Profile, int64, error)
	Count(ctx context.Context) (int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role enums.Role) (bool, error)
}

type productCounter interface {
	CountActive(ctx context.Context) (int64, error)
}

type revenueSource interface {
	SumRevenue(ctx context.Context) (int64, error)
}

type Service interface {
	Stats(ctx context.Context) (*Stats, error)
	ListUsers(ctx context.Context, params pagination.Params) (*UserList, error)
	CreateUser(ctx context.Context, input CreateUserInput) (*profiles.ProfileDTO, error)
	UpdateRole(ctx context.Context, adminID, userID uuid.UUID, input UpdateRoleInput) (*profiles.ProfileDTO, error)
}

type ServiceParams struct {
	DB             txRunner
	Profiles       profileRepository
	Orders         orders.Repository
	Products       productCounter
	Payments       revenueSource
	PasswordConfig config.PasswordConfig
}

type service struct {
	tx          txRunner
	profiles    profileRepository
	orders      orders.Repository
	products    productCounter
	payments    revenueSource
	passwordCfg config.PasswordConfig
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Profiles == nil:
		return nil, fmt.Errorf("profile repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Products == nil:
		return nil, fmt.Errorf("product repository required")
	case params.Payments == nil:
		return nil, fmt.Errorf("payment repository required")
	}
	return &service{
		tx:          params.DB,
		profiles:    params.Profiles,
		orders:      params.Orders,
		products:    params.Products,
		payments:    params.Payments,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	users, err := s.profiles.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count users")
	}
	orderCount, err := s.orders.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	active, err := s.products.CountActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count products")
	}
	revenue, err := s.payments.SumRevenue(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum revenue")
	}
	recent, err := s.orders.ListRecent(ctx, recentOrdersLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent orders")
	}
	return &Stats{
		TotalUsers:     users,
		TotalOrders:    orderCount,
		ActiveProducts: active,
		Revenue:        money.FromKobo(revenue),
		Currency:       money.Currency,
		RecentOrders:   orders.FromModels(recent),
	}, nil
}

func (s *service) ListUsers(ctx context.Context, params pagination.Params) (*UserList, error) {
	params = params.Normalize()
	rows, total, err := s.profiles.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	users := make([]profiles.ProfileDTO, 0, len(rows))
	for i := range rows {
		users = append(users, *profiles.FromModel(&rows[i]))
	}
	return &UserList{
		Users:   users,
		Count:   total,
		HasMore: pagination.HasMore(params, len(rows), total),
	}, nil
}

// CreateUser provisions a profile and its wallet. Any role may be assigned.
func (s *service) CreateUser(ctx context.Context, input CreateUserInput) (*profiles.ProfileDTO, error) {
	role := enums.RoleCustomer
	if raw := strings.TrimSpace(input.Role); raw != "" {
		parsed, err := enums.ParseRole(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
		}
		role = parsed
	}
	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}

	var created *models.Profile
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		profile, err := profiles.Provision(ctx, tx, profiles.CreateProfileDTO{
			Email:        input.Email,
			PasswordHash: hash,
			FullName:     input.FullName,
			Role:         role,
			Phone:        input.Phone,
		})
		if err != nil {
			return err
		}
		created = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profiles.FromModel(created), nil
}

func (s *service) UpdateRole(ctx context.Context, adminID, userID uuid.UUID, input UpdateRoleInput) (*profiles.ProfileDTO, error) {
	role, err := enums.ParseRole(strings.TrimSpace(input.Role))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}
	if adminID == userID && role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "admins cannot demote themselves")
	}
	found, err := s.profiles.UpdateRole(ctx, userID, role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return profiles.FromModel(profile), nil
}
