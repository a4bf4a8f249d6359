package enums

import "fmt"

// PaymentStatus tracks the lifecycle of a gateway or wallet payment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusSuccess,
	PaymentStatusFailed,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}

// PaymentType distinguishes what a payment settles.
type PaymentType string

const (
	PaymentTypeWalletTopup     PaymentType = "wallet_topup"
	PaymentTypeProductPurchase PaymentType = "product_purchase"
	PaymentTypeWalletPayment   PaymentType = "wallet_payment"
)

var validPaymentTypes = []PaymentType{
	PaymentTypeWalletTopup,
	PaymentTypeProductPurchase,
	PaymentTypeWalletPayment,
}

// String implements fmt.Stringer.
func (p PaymentType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentType.
func (p PaymentType) IsValid() bool {
	for _, candidate := range validPaymentTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentType converts raw input into a PaymentType.
func ParsePaymentType(value string) (PaymentType, error) {
	for _, candidate := range validPaymentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment type %q", value)
}

// PaymentSource names the path that settled or failed a payment.
type PaymentSource string

const (
	PaymentSourceVerify    PaymentSource = "verify"
	PaymentSourceWebhook   PaymentSource = "webhook"
	PaymentSourceReconcile PaymentSource = "reconcile"
	PaymentSourceWallet    PaymentSource = "wallet"
)

func (p PaymentSource) String() string {
	return string(p)
}
