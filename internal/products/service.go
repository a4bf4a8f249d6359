package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agromarket/agromarket-backend/pkg/db"
	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
	"github.com/agromarket/agromarket-backend/pkg/money"
	"github.com/agromarket/agromarket-backend/pkg/pagination"
	"github.com/agromarket/agromarket-backend/pkg/security"
)

const (
	skuPrefix     = "AGR-"
	skuCodeLength = 8
)

// Service exposes catalog browsing and farmer listing management.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, userID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, userID uuid.UUID, role enums.Role, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, userID uuid.UUID, role enums.Role, productID uuid.UUID) error
	ListFarmerProducts(ctx context.Context, farmerID uuid.UUID) ([]ProductDTO, error)
	ListAll(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
}

type categoryLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

type service struct {
	repo       *Repository
	categories categoryLoader
	newSKU     func() (string, error)
}

// NewService constructs a product service instance.
func NewService(repo *Repository, categories categoryLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category repository required")
	}
	return &service{repo: repo, categories: categories, newSKU: generateSKU}, nil
}

func generateSKU() (string, error) {
	code, err := security.RandomCode(skuCodeLength)
	if err != nil {
		return "", err
	}
	return skuPrefix + code, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	input.Pagination = input.Pagination.Normalize()
	rows, total, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return &ProductListResult{
		Products: fromModels(rows),
		Count:    total,
		HasMore:  pagination.HasMore(input.Pagination, len(rows), total),
	}, nil
}

// ListAll is the admin catalog: every listing, active or not, with farmer names.
func (s *service) ListAll(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	input.IncludeInactive = true
	return s.ListProducts(ctx, input)
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindActiveByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return FromModel(product), nil
}

func (s *service) CreateProduct(ctx context.Context, userID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	priceKobo, err := priceToKobo(input.Price)
	if err != nil {
		return nil, err
	}
	if input.Inventory < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory must be zero or greater")
	}
	category, err := s.categories.FindByID(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}

	sku := ""
	if input.SKU != nil {
		sku = strings.TrimSpace(*input.SKU)
	}
	if sku == "" {
		if sku, err = s.newSKU(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate sku")
		}
	}

	categoryID := category.ID
	product := &models.Product{
		FarmerID:    userID,
		CategoryID:  &categoryID,
		Category:    category,
		Title:       title,
		Description: input.Description,
		SKU:         sku,
		Unit:        input.Unit,
		PriceKobo:   priceKobo,
		Inventory:   input.Inventory,
		ImageURL:    input.ImageURL,
		IsActive:    true,
	}
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return FromModel(created), nil
}

func (s *service) UpdateProduct(ctx context.Context, userID uuid.UUID, role enums.Role, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.loadOwned(ctx, userID, role, productID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Price != nil {
		priceKobo, err := priceToKobo(*input.Price)
		if err != nil {
			return nil, err
		}
		updates["price_kobo"] = priceKobo
	}
	if input.Inventory != nil {
		if *input.Inventory < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory must be zero or greater")
		}
		updates["inventory"] = *input.Inventory
	}
	if input.CategoryID != nil {
		if _, err := s.categories.FindByID(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
		updates["category_id"] = *input.CategoryID
	}
	if input.Unit != nil {
		updates["unit"] = *input.Unit
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if err := s.repo.UpdateFields(ctx, product.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	updated, err := s.repo.FindByID(ctx, product.ID)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return FromModel(updated), nil
}

func (s *service) DeleteProduct(ctx context.Context, userID uuid.UUID, role enums.Role, productID uuid.UUID) error {
	product, err := s.loadOwned(ctx, userID, role, productID)
	if err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, product.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate product")
	}
	return nil
}

func (s *service) ListFarmerProducts(ctx context.Context, farmerID uuid.UUID) ([]ProductDTO, error) {
	rows, err := s.repo.ListByFarmer(ctx, farmerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list farmer products")
	}
	return fromModels(rows), nil
}

// loadOwned allows the owning farmer and admins.
func (s *service) loadOwned(ctx context.Context, userID uuid.UUID, role enums.Role, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	if role != enums.RoleAdmin && product.FarmerID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another farmer")
	}
	return product, nil
}

func priceToKobo(price decimal.Decimal) (int64, error) {
	kobo, err := money.ToKobo(price)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
	}
	if kobo <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	}
	return kobo, nil
}

func mapLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}
