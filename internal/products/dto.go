package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/money"
)

// ProductDTO is the API representation of a listing.
type ProductDTO struct {
	ID           uuid.UUID       `json:"id"`
	FarmerID     uuid.UUID       `json:"farmer_id"`
	FarmerName   *string         `json:"farmer_name,omitempty"`
	CategoryID   *uuid.UUID      `json:"category_id,omitempty"`
	CategoryName *string         `json:"category,omitempty"`
	Title        string          `json:"title"`
	Description  *string         `json:"description,omitempty"`
	SKU          string          `json:"sku"`
	Unit         *string         `json:"unit,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Inventory    int             `json:"inventory"`
	ImageURL     *string         `json:"image_url,omitempty"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=5000"`
	Price       decimal.Decimal `json:"price"`
	Inventory   int             `json:"inventory" validate:"gte=0"`
	CategoryID  uuid.UUID       `json:"category_id" validate:"required"`
	Unit        *string         `json:"unit,omitempty" validate:"omitempty,max=32"`
	SKU         *string         `json:"sku,omitempty" validate:"omitempty,max=64"`
	ImageURL    *string         `json:"image_url,omitempty" validate:"omitempty,url"`
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Title       *string          `json:"title,omitempty" validate:"omitempty,max=200"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=5000"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Inventory   *int             `json:"inventory,omitempty" validate:"omitempty,gte=0"`
	CategoryID  *uuid.UUID       `json:"category_id,omitempty"`
	Unit        *string          `json:"unit,omitempty" validate:"omitempty,max=32"`
	ImageURL    *string          `json:"image_url,omitempty" validate:"omitempty,url"`
	IsActive    *bool            `json:"is_active,omitempty"`
}

func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:          p.ID,
		FarmerID:    p.FarmerID,
		CategoryID:  p.CategoryID,
		Title:       p.Title,
		Description: p.Description,
		SKU:         p.SKU,
		Unit:        p.Unit,
		Price:       money.FromKobo(p.PriceKobo),
		Currency:    money.Currency,
		Inventory:   p.Inventory,
		ImageURL:    p.ImageURL,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Farmer != nil {
		name := p.Farmer.FullName
		dto.FarmerName = &name
	}
	if p.Category != nil {
		name := p.Category.Name
		dto.CategoryName = &name
	}
	return dto
}

func fromModels(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
