package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is the only settlement currency the marketplace supports.
const Currency = "NGN"

const minorUnitExponent = 2

// ToKobo converts a naira amount into kobo, rejecting sub-kobo precision.
func ToKobo(amount decimal.Decimal) (int64, error) {
	shifted := amount.Shift(minorUnitExponent)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", amount.String(), minorUnitExponent)
	}
	return shifted.IntPart(), nil
}

// FromKobo converts kobo back into a naira decimal.
func FromKobo(kobo int64) decimal.Decimal {
	return decimal.NewFromInt(kobo).Shift(-minorUnitExponent)
}

// Percent returns pct percent of kobo, rounded half away from zero to the nearest kobo.
func Percent(kobo int64, pct int) int64 {
	return decimal.NewFromInt(kobo).
		Mul(decimal.NewFromInt(int64(pct))).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}
