package chain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ToUnits converts a raw base-unit integer into human units.
func ToUnits(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// FromUnits converts a human amount into base units, truncating digits
// beyond the token's precision.
func FromUnits(amount decimal.Decimal, decimals uint8) *big.Int {
	return amount.Shift(int32(decimals)).Truncate(0).BigInt()
}
