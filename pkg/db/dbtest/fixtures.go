package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
)

// Profile inserts an active profile with the given role and a zero wallet.
func Profile(t testing.TB, conn *gorm.DB, role enums.Role) *models.Profile {
	t.Helper()
	id := uuid.New()
	p := &models.Profile{
		ID:           id,
		Email:        fmt.Sprintf("%s-%s@example.com", role, id.String()[:8]),
		PasswordHash: "unused",
		FullName:     string(role) + " user",
		Role:         role,
		IsActive:     true,
	}
	mustCreate(t, conn, p)
	mustCreate(t, conn, &models.Wallet{ID: uuid.New(), UserID: id})
	return p
}

// Product inserts an active product owned by farmerID.
func Product(t testing.TB, conn *gorm.DB, farmerID uuid.UUID, priceKobo int64, inventory int) *models.Product {
	t.Helper()
	id := uuid.New()
	p := &models.Product{
		ID:        id,
		FarmerID:  farmerID,
		Title:     "Yam tubers",
		SKU:       "AGR-" + id.String()[:8],
		PriceKobo: priceKobo,
		Inventory: inventory,
		IsActive:  true,
	}
	mustCreate(t, conn, p)
	return p
}

// Order inserts an order in the given state.
func Order(t testing.TB, conn *gorm.DB, customerID, farmerID uuid.UUID, totalKobo int64, status enums.OrderStatus, paymentStatus enums.OrderPaymentStatus) *models.Order {
	t.Helper()
	farmer := farmerID
	o := &models.Order{
		ID:              uuid.New(),
		CustomerID:      customerID,
		FarmerID:        &farmer,
		Quantity:        1,
		TotalAmountKobo: totalKobo,
		Currency:        "NGN",
		Status:          status,
		PaymentStatus:   paymentStatus,
	}
	mustCreate(t, conn, o)
	return o
}

// Fund sets a wallet balance directly.
func Fund(t testing.TB, conn *gorm.DB, userID uuid.UUID, balanceKobo int64) {
	t.Helper()
	if err := conn.Model(&models.Wallet{}).Where("user_id = ?", userID).Update("balance_kobo", balanceKobo).Error; err != nil {
		t.Fatalf("fund wallet: %v", err)
	}
}

func mustCreate(t testing.TB, conn *gorm.DB, value any) {
	t.Helper()
	if err := conn.Create(value).Error; err != nil {
		t.Fatalf("create %T: %v", value, err)
	}
}
