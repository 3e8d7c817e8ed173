// =============================
// File: internal/venue/pool.go
// =============================
package venue

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

// ProgramID внешней AMM-площадки, на которую переезжает ликвидность после graduation.
var ProgramID = solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")

// PoolAddress возвращает адрес, на котором лежат резервы пула и накопленные LP-комиссии.
func PoolAddress(launch domain.LaunchID) domain.Address {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("pool"), launch.Bytes()}, ProgramID)
	if err != nil {
		panic("derive venue pool address: " + err.Error())
	}
	return addr
}

// Load возвращает пул или ошибку not_graduated, если пул ещё не создан.
func Load(s *ledger.State, launch domain.LaunchID) (domain.VenuePool, error) {
	p, ok := s.VenuePools.Get(launch)
	if !ok {
		return domain.VenuePool{}, domain.Precondition(domain.CodeNotGraduated, "no venue pool for %s", launch)
	}
	return p, nil
}

// CreatePool открывает пул, забирая токены и нативные средства у provider.
// Начальная позиция равна floor(sqrt(tokens*native)).
func CreatePool(tx *ledger.Tx, launch domain.LaunchID, provider domain.Address, tokens, native uint64) (uint64, error) {
	if tx.VenuePools.Has(launch) {
		return 0, domain.Precondition(domain.CodeAlreadyGraduated, "venue pool for %s already exists", launch)
	}
	if tokens == 0 || native == 0 {
		return 0, domain.Precondition(domain.CodeInsufficientLiquidity, "pool needs both sides, got %d tokens and %d native", tokens, native)
	}

	addr := PoolAddress(launch)
	if err := tx.TransferTokens(launch, provider, addr, tokens); err != nil {
		return 0, err
	}
	if err := tx.TransferNative(provider, addr, native); err != nil {
		return 0, err
	}

	lp := domain.ISqrt(tokens, native)
	tx.VenuePools.Put(launch, domain.VenuePool{
		Launch:        launch,
		TokenReserve:  tokens,
		NativeReserve: native,
		LPSupply:      lp,
		FeeBps:        tx.Params.VenueFeeBps,
		CreatedAt:     tx.Now,
	})
	tx.Positions.Put(domain.LPKey{Launch: launch, Owner: provider}, domain.LPPosition{
		Launch:    launch,
		Owner:     provider,
		Liquidity: lp,
	})
	return lp, nil
}

// AddLiquidity вносит ликвидность в текущей пропорции резервов. Лишняя сторона
// остаётся у provider. Возвращает выпущенные LP и фактически внесённые суммы.
func AddLiquidity(tx *ledger.Tx, launch domain.LaunchID, provider domain.Address, tokens, native uint64) (lp, usedTokens, usedNative uint64, err error) {
	pool, err := Load(tx.State, launch)
	if err != nil {
		return 0, 0, 0, err
	}

	usedNative = native
	usedTokens = domain.MulDiv(native, pool.TokenReserve, pool.NativeReserve)
	if usedTokens > tokens {
		usedTokens = tokens
		usedNative = domain.MulDiv(tokens, pool.NativeReserve, pool.TokenReserve)
	}
	lp = min(
		domain.MulDiv(usedNative, pool.LPSupply, pool.NativeReserve),
		domain.MulDiv(usedTokens, pool.LPSupply, pool.TokenReserve),
	)
	if lp == 0 {
		return 0, 0, 0, domain.Precondition(domain.CodeInsufficientLiquidity, "deposit too small to mint liquidity")
	}

	if _, err := settle(tx, &pool, provider, provider); err != nil {
		return 0, 0, 0, err
	}

	addr := PoolAddress(launch)
	if err := tx.TransferTokens(launch, provider, addr, usedTokens); err != nil {
		return 0, 0, 0, err
	}
	if err := tx.TransferNative(provider, addr, usedNative); err != nil {
		return 0, 0, 0, err
	}

	pool.TokenReserve += usedTokens
	pool.NativeReserve += usedNative
	pool.LPSupply += lp
	tx.VenuePools.Put(launch, pool)

	pos := position(tx.State, launch, provider)
	pos.Liquidity += lp
	pos.RewardDebt = domain.MulDiv(pos.Liquidity, pool.AccFeePerLP, domain.FeePrecision)
	tx.Positions.Put(domain.LPKey{Launch: launch, Owner: provider}, pos)

	return lp, usedTokens, usedNative, nil
}

// SwapNativeForTokens покупает токены. LP-комиссия берётся с входа в нативной валюте.
func SwapNativeForTokens(tx *ledger.Tx, launch domain.LaunchID, trader domain.Address, nativeIn, minOut uint64) (Quote, error) {
	pool, err := Load(tx.State, launch)
	if err != nil {
		return Quote{}, err
	}
	q := QuoteBuy(pool, nativeIn)
	if q.Out == 0 {
		return Quote{}, domain.Validation(domain.CodeZeroOutput, "buy of %d returns no tokens", nativeIn)
	}
	if q.Out < minOut {
		return Quote{}, domain.Slippage(q.Out, minOut)
	}

	addr := PoolAddress(launch)
	if err := tx.TransferNative(trader, addr, nativeIn); err != nil {
		return Quote{}, err
	}
	if err := tx.TransferTokens(launch, addr, trader, q.Out); err != nil {
		return Quote{}, err
	}

	pool.NativeReserve += nativeIn - q.Fee
	pool.TokenReserve -= q.Out
	distribute(&pool, q.Fee)
	tx.VenuePools.Put(launch, pool)
	return q, nil
}

// SwapTokensForNative продаёт токены. Комиссия удерживается из нативного выхода.
func SwapTokensForNative(tx *ledger.Tx, launch domain.LaunchID, trader domain.Address, tokensIn, minOut uint64) (Quote, error) {
	pool, err := Load(tx.State, launch)
	if err != nil {
		return Quote{}, err
	}
	q := QuoteSell(pool, tokensIn)
	if q.Out == 0 {
		return Quote{}, domain.Validation(domain.CodeZeroOutput, "sell of %d returns no native", tokensIn)
	}
	if q.Out < minOut {
		return Quote{}, domain.Slippage(q.Out, minOut)
	}

	addr := PoolAddress(launch)
	if err := tx.TransferTokens(launch, trader, addr, tokensIn); err != nil {
		return Quote{}, err
	}
	if err := tx.TransferNative(addr, trader, q.Out); err != nil {
		return Quote{}, err
	}

	pool.TokenReserve += tokensIn
	pool.NativeReserve -= q.Out + q.Fee
	distribute(&pool, q.Fee)
	tx.VenuePools.Put(launch, pool)
	return q, nil
}

// Harvest выплачивает накопленные комиссии позиции owner на адрес to.
func Harvest(tx *ledger.Tx, launch domain.LaunchID, owner, to domain.Address) (uint64, error) {
	pool, err := Load(tx.State, launch)
	if err != nil {
		return 0, err
	}
	return settle(tx, &pool, owner, to)
}

// PendingFees сколько комиссий позиция может забрать прямо сейчас.
func PendingFees(pool domain.VenuePool, pos domain.LPPosition) uint64 {
	earned := domain.MulDiv(pos.Liquidity, pool.AccFeePerLP, domain.FeePrecision)
	if earned <= pos.RewardDebt {
		return 0
	}
	return earned - pos.RewardDebt
}

// BurnPosition отправляет всю позицию owner на incinerator. Ликвидность
// остаётся в пуле навсегда; комиссии, накопленные до сжигания, выплачиваются owner.
func BurnPosition(tx *ledger.Tx, launch domain.LaunchID, owner domain.Address) (uint64, error) {
	pool, err := Load(tx.State, launch)
	if err != nil {
		return 0, err
	}
	if _, err := settle(tx, &pool, owner, owner); err != nil {
		return 0, err
	}

	pos := position(tx.State, launch, owner)
	if pos.Liquidity == 0 {
		return 0, domain.Precondition(domain.CodeNothingToClaim, "%s holds no liquidity in %s", owner, launch)
	}
	burned := pos.Liquidity
	pos.Liquidity = 0
	pos.RewardDebt = 0
	tx.Positions.Put(domain.LPKey{Launch: launch, Owner: owner}, pos)

	dead := position(tx.State, launch, domain.IncineratorAddress)
	// Pending fees of the incinerator are unclaimable; keep its debt current
	// so the burned share never looks claimable.
	dead.Liquidity += burned
	dead.RewardDebt = domain.MulDiv(dead.Liquidity, pool.AccFeePerLP, domain.FeePrecision)
	tx.Positions.Put(domain.LPKey{Launch: launch, Owner: domain.IncineratorAddress}, dead)

	return burned, nil
}

// Position returns owner's LP position, zero if none.
func Position(s *ledger.State, launch domain.LaunchID, owner domain.Address) domain.LPPosition {
	return position(s, launch, owner)
}

// SpotPrice is native per whole token at current reserves.
func SpotPrice(pool domain.VenuePool) decimal.Decimal {
	return domain.PricePerToken(pool.NativeReserve, pool.TokenReserve)
}

// MarketCap is the native value of the circulating supply at the pool price,
// in native base units.
func MarketCap(s *ledger.State, launch domain.LaunchID) (uint64, error) {
	pool, err := Load(s, launch)
	if err != nil {
		return 0, err
	}
	if pool.TokenReserve == 0 {
		return 0, nil
	}
	return domain.MulDiv(pool.NativeReserve, s.CirculatingSupply(launch), pool.TokenReserve), nil
}

func position(s *ledger.State, launch domain.LaunchID, owner domain.Address) domain.LPPosition {
	pos, ok := s.Positions.Get(domain.LPKey{Launch: launch, Owner: owner})
	if !ok {
		return domain.LPPosition{Launch: launch, Owner: owner}
	}
	return pos
}

// distribute начисляет комиссию всем держателям LP через аккумулятор.
func distribute(pool *domain.VenuePool, fee uint64) {
	if fee == 0 || pool.LPSupply == 0 {
		return
	}
	acc, ok := domain.AddChecked(pool.AccFeePerLP, domain.MulDiv(fee, domain.FeePrecision, pool.LPSupply))
	if ok {
		pool.AccFeePerLP = acc
	}
}

func settle(tx *ledger.Tx, pool *domain.VenuePool, owner, to domain.Address) (uint64, error) {
	pos := position(tx.State, pool.Launch, owner)
	due := PendingFees(*pool, pos)
	if due > 0 {
		if err := tx.TransferNative(PoolAddress(pool.Launch), to, due); err != nil {
			return 0, err
		}
	}
	pos.RewardDebt = domain.MulDiv(pos.Liquidity, pool.AccFeePerLP, domain.FeePrecision)
	if pos.Liquidity > 0 || due > 0 {
		tx.Positions.Put(domain.LPKey{Launch: pool.Launch, Owner: owner}, pos)
	}
	return due, nil
}
