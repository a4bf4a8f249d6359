package admin

import (
	"github.com/shopspring/decimal"

	"github.com/agromarket/agromarket-backend/internal/orders"
	"github.com/agromarket/agromarket-backend/internal/profiles"
)

const recentOrdersLimit = 5

type Stats struct {
	TotalUsers     int64             `json:"total_users"`
	TotalOrders    int64             `json:"total_orders"`
	ActiveProducts int64             `json:"active_products"`
	Revenue        decimal.Decimal   `json:"revenue"`
	Currency       string            `json:"currency"`
	RecentOrders   []orders.OrderDTO `json:"recent_orders"`
}

type UserList struct {
	Users   []profiles.ProfileDTO `json:"users"`
	Count   int64                 `json:"count"`
	HasMore bool                  `json:"hasMore"`
}

type CreateUserInput struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	FullName string  `json:"full_name"`
	Phone    *string `json:"phone,omitempty"`
	Role     string  `json:"role"`
}

type UpdateRoleInput struct {
	Role string `json:"role" validate:"required"`
}
