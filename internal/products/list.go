package product

import (
	"github.com/google/uuid"

	"github.com/agromarket/agromarket-backend/pkg/pagination"
)

// ListProductsInput captures the browse filters.
type ListProductsInput struct {
	Search     string
	Category   string
	FarmerID   *uuid.UUID
	Pagination pagination.Params

	// IncludeInactive lists deactivated listings too and loads each farmer's name.
	IncludeInactive bool
}

// ProductListResult is the browse page. HasMore follows skip + len(products) < count.
type ProductListResult struct {
	Products []ProductDTO `json:"products"`
	Count    int64        `json:"count"`
	HasMore  bool         `json:"hasMore"`
}
