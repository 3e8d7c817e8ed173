// =============================
// File: internal/curve/math.go
// =============================
package curve

import (
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad/internal/domain"
)

// BuyQuote: результат покупки по кривой.
type BuyQuote struct {
	In          uint64          `json:"in"`
	Fee         uint64          `json:"fee"`
	FeeBps      uint64          `json:"fee_bps"`
	NetIn       uint64          `json:"net_in"`
	TokensOut   uint64          `json:"tokens_out"`
	PriceBefore decimal.Decimal `json:"price_before"`
	PriceAfter  decimal.Decimal `json:"price_after"`
}

// SellQuote: результат продажи по кривой.
type SellQuote struct {
	TokensIn    uint64          `json:"tokens_in"`
	Gross       uint64          `json:"gross"`
	Fee         uint64          `json:"fee"`
	FeeBps      uint64          `json:"fee_bps"`
	NetOut      uint64          `json:"net_out"`
	PriceBefore decimal.Decimal `json:"price_before"`
	PriceAfter  decimal.Decimal `json:"price_after"`
}

// calculateOutput вычисляет выход по формуле Constant Product:
// out = y * a / (x + a), где x это резерв входной стороны, y резерв выходной.
func calculateOutput(x, y, a uint64) uint64 {
	if a == 0 || y == 0 {
		return 0
	}
	return domain.MulDiv(y, a, x+a)
}

// Quote functions are pure: the same pool state and input always yield the
// same result.

// QuoteBuy рассчитывает покупку на nativeIn с комиссией feeBps. Комиссия
// удерживается со входа; в резерв идёт только нетто-сумма.
func QuoteBuy(pool domain.PoolState, nativeIn, feeBps uint64) BuyQuote {
	fee := domain.Bps(nativeIn, feeBps)
	net := nativeIn - fee
	eff := pool.EffectiveReserve()
	out := calculateOutput(eff, pool.TokenReserve, net)
	return BuyQuote{
		In:          nativeIn,
		Fee:         fee,
		FeeBps:      feeBps,
		NetIn:       net,
		TokensOut:   out,
		PriceBefore: domain.PricePerToken(eff, pool.TokenReserve),
		PriceAfter:  domain.PricePerToken(eff+net, pool.TokenReserve-out),
	}
}

// QuoteSell рассчитывает продажу tokensIn. Gross не может превышать реальный
// резерв: виртуальная часть не выплачивается. Комиссия удерживается с выхода.
func QuoteSell(pool domain.PoolState, tokensIn, feeBps uint64) SellQuote {
	eff := pool.EffectiveReserve()
	gross := calculateOutput(pool.TokenReserve, eff, tokensIn)
	if gross > pool.RealReserve {
		gross = pool.RealReserve
	}
	fee := domain.Bps(gross, feeBps)
	return SellQuote{
		TokensIn:    tokensIn,
		Gross:       gross,
		Fee:         fee,
		FeeBps:      feeBps,
		NetOut:      gross - fee,
		PriceBefore: domain.PricePerToken(eff, pool.TokenReserve),
		PriceAfter:  domain.PricePerToken(eff-gross, pool.TokenReserve+tokensIn),
	}
}

// SpotPrice возвращает текущую цену одного целого токена в нативной валюте.
func SpotPrice(pool domain.PoolState) decimal.Decimal {
	return domain.PricePerToken(pool.EffectiveReserve(), pool.TokenReserve)
}

// MarketCap is spot price times supply, in native base units.
func MarketCap(pool domain.PoolState, supply uint64) uint64 {
	if pool.TokenReserve == 0 {
		return 0
	}
	return domain.MulDiv(pool.EffectiveReserve(), supply, pool.TokenReserve)
}

// GraduationProgress is the share of the threshold reached, 0 to 100.
func GraduationProgress(pool domain.PoolState) decimal.Decimal {
	if pool.GraduationThreshold == 0 || pool.RealReserve >= pool.GraduationThreshold {
		return decimal.NewFromInt(100)
	}
	return domain.NativeDec(pool.RealReserve).
		Mul(decimal.NewFromInt(100)).
		Div(domain.NativeDec(pool.GraduationThreshold)).
		Round(2)
}

// Eligible reports whether the real reserve has crossed the threshold.
func Eligible(pool domain.PoolState) bool {
	return pool.RealReserve >= pool.GraduationThreshold
}
