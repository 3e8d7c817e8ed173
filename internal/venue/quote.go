// internal/venue/quote.go
package venue

import (
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad/internal/domain"
)

// Quote is the result of a swap against a venue pool.
type Quote struct {
	In         uint64
	Out        uint64
	Fee        uint64
	PriceAfter decimal.Decimal
}

// calculateOutput implements the constant product formula
// out = y * a / (x + a), where x is the input reserve and y the output reserve.
func calculateOutput(reserves, otherReserves, amount uint64) uint64 {
	if amount == 0 || otherReserves == 0 {
		return 0
	}
	return domain.MulDiv(otherReserves, amount, reserves+amount)
}

// QuoteBuy prices nativeIn → tokens. The LP fee is taken from the input.
func QuoteBuy(pool domain.VenuePool, nativeIn uint64) Quote {
	fee := domain.Bps(nativeIn, pool.FeeBps)
	out := calculateOutput(pool.NativeReserve, pool.TokenReserve, nativeIn-fee)
	return Quote{
		In:         nativeIn,
		Out:        out,
		Fee:        fee,
		PriceAfter: domain.PricePerToken(pool.NativeReserve+nativeIn-fee, pool.TokenReserve-out),
	}
}

// QuoteSell prices tokensIn → native. The LP fee is taken from the output.
func QuoteSell(pool domain.VenuePool, tokensIn uint64) Quote {
	gross := calculateOutput(pool.TokenReserve, pool.NativeReserve, tokensIn)
	fee := domain.Bps(gross, pool.FeeBps)
	return Quote{
		In:         tokensIn,
		Out:        gross - fee,
		Fee:        fee,
		PriceAfter: domain.PricePerToken(pool.NativeReserve-gross, pool.TokenReserve+tokensIn),
	}
}
