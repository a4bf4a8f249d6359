package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a farmer's listing.
type Product struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FarmerID    uuid.UUID  `gorm:"column:farmer_id;type:uuid;not null"`
	Farmer      *Profile   `gorm:"foreignKey:FarmerID"`
	CategoryID  *uuid.UUID `gorm:"column:category_id;type:uuid"`
	Category    *Category  `gorm:"foreignKey:CategoryID"`
	Title       string     `gorm:"column:title;not null"`
	Description *string    `gorm:"column:description"`
	SKU         string     `gorm:"column:sku;not null;uniqueIndex"`
	Unit        *string    `gorm:"column:unit"`
	PriceKobo   int64      `gorm:"column:price_kobo;not null"`
	Inventory   int        `gorm:"column:inventory;not null;default:0"`
	ImageURL    *string    `gorm:"column:image_url"`
	IsActive    bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
