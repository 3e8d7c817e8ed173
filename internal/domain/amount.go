// internal/domain/amount.go
package domain

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// NativeDecimals is the precision of the chain's native currency.
	NativeDecimals = 9
	// TokenDecimals is the precision of every launched token.
	TokenDecimals = 6

	// NativeUnit is one whole native coin in base units.
	NativeUnit uint64 = 1_000_000_000
	// TokenUnit is one whole token in base units.
	TokenUnit uint64 = 1_000_000

	// FixedSupply is the only accepted total supply, in whole tokens.
	FixedSupply uint64 = 1_000_000_000
	// SupplyUnits is FixedSupply expressed in token base units.
	SupplyUnits = FixedSupply * TokenUnit

	// BpsDenominator is 100% in basis points.
	BpsDenominator uint64 = 10_000
)

// MulDiv returns floor(a*b/c) without intermediate overflow. The result
// saturates at MaxUint64; c == 0 yields 0.
func MulDiv(a, b, c uint64) uint64 {
	if c == 0 {
		return 0
	}
	x := new(big.Int).SetUint64(a)
	x.Mul(x, new(big.Int).SetUint64(b))
	x.Quo(x, new(big.Int).SetUint64(c))
	if !x.IsUint64() {
		return math.MaxUint64
	}
	return x.Uint64()
}

// Bps returns floor(amount*bps/10000).
func Bps(amount, bps uint64) uint64 {
	return MulDiv(amount, bps, BpsDenominator)
}

// ISqrt returns floor(sqrt(a*b)), used for initial liquidity positions.
func ISqrt(a, b uint64) uint64 {
	x := new(big.Int).SetUint64(a)
	x.Mul(x, new(big.Int).SetUint64(b))
	x.Sqrt(x)
	if !x.IsUint64() {
		return math.MaxUint64
	}
	return x.Uint64()
}

// AddChecked adds two amounts and reports overflow.
func AddChecked(a, b uint64) (uint64, bool) {
	s := a + b
	return s, s >= a
}

// NativeToFloat converts base units into whole coins for logs and display only.
func NativeToFloat(v uint64) float64 {
	return float64(v) / math.Pow10(NativeDecimals)
}

// TokensToFloat converts token base units into whole tokens for logs and display only.
func TokensToFloat(v uint64) float64 {
	return float64(v) / math.Pow10(TokenDecimals)
}

// NativeDec expresses base units as whole native coins without rounding.
func NativeDec(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -NativeDecimals)
}

// TokenDec expresses token base units as whole tokens without rounding.
func TokenDec(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -TokenDecimals)
}

// PricePerToken is native coins per whole token for a reserve pair.
func PricePerToken(nativeReserve, tokenReserve uint64) decimal.Decimal {
	if tokenReserve == 0 {
		return decimal.Zero
	}
	return NativeDec(nativeReserve).Div(TokenDec(tokenReserve))
}
