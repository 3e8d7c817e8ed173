// =============================
// File: internal/curve/market.go
// =============================
package curve

import (
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/fees"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

// MarketName tags curve trades in events.
const MarketName = "curve"

// Load returns the curve pool of a launch.
func Load(s *ledger.State, launch domain.LaunchID) (domain.PoolState, error) {
	p, ok := s.Pools.Get(launch)
	if !ok {
		return domain.PoolState{}, domain.Precondition(domain.CodeWrongLaunchType, "launch %s has no curve pool", launch)
	}
	return p, nil
}

// OpenPool создаёт пул кривой для INSTANT_LAUNCH. Токены кривой и резерв под
// ликвидность уже должны лежать на escrow.
func OpenPool(tx *ledger.Tx, rec domain.LaunchRecord) (domain.PoolState, error) {
	if _, err := rec.AsInstantLaunch(); err != nil {
		return domain.PoolState{}, err
	}
	if tx.Pools.Has(rec.ID) {
		return domain.PoolState{}, domain.Validation(domain.CodeDuplicateLaunch, "curve pool for %s already exists", rec.ID)
	}

	alloc := tx.Params.Allocation(domain.KindInstantLaunch, rec.TotalSupply)
	pool := domain.PoolState{
		Launch:              rec.ID,
		VirtualReserve:      tx.Params.VirtualReserve,
		TokenReserve:        alloc.Curve,
		ReservedTokens:      alloc.Liquidity,
		LaunchBlock:         tx.Block,
		GraduationThreshold: tx.Params.GraduationThreshold,
	}
	tx.Pools.Put(rec.ID, pool)
	return pool, nil
}

// splitFee credits the creator share of a trade fee and the rest to the platform.
func splitFee(tx *ledger.Tx, launch domain.LaunchID, fee uint64) {
	creator := domain.Bps(fee, tx.Params.CreatorFeeBps)
	fees.Accrue(tx, launch, domain.RoleCreator, creator)
	fees.Accrue(tx, launch, domain.RolePlatform, fee-creator)
}

// ExecuteBuy проводит покупку трейдером trader. Используется операцией Buy и
// начальной покупкой создателя при запуске.
func ExecuteBuy(tx *ledger.Tx, rec domain.LaunchRecord, trader domain.Address, nativeIn, minOut uint64) (BuyQuote, error) {
	if _, err := rec.AsInstantLaunch(); err != nil {
		return BuyQuote{}, err
	}
	pool, err := Load(tx.State, rec.ID)
	if err != nil {
		return BuyQuote{}, err
	}
	if pool.Migrated {
		return BuyQuote{}, domain.Precondition(domain.CodeAlreadyGraduated, "%s trades on the venue now", rec.Symbol)
	}
	if nativeIn == 0 {
		return BuyQuote{}, domain.Validation(domain.CodeBadAmount, "buy amount must be positive")
	}

	feeBps := CurrentFeeRate(tx.Params.FeeTiers, elapsedBlocks(pool, tx.Block))
	q := QuoteBuy(pool, nativeIn, feeBps)
	if q.NetIn == 0 || q.TokensOut == 0 {
		return BuyQuote{}, domain.Validation(domain.CodeZeroOutput, "buy of %d returns no tokens", nativeIn)
	}
	if q.TokensOut < minOut {
		return BuyQuote{}, domain.Slippage(q.TokensOut, minOut)
	}

	escrow := rec.Escrow()
	if err := tx.TransferNative(trader, escrow, nativeIn); err != nil {
		return BuyQuote{}, err
	}
	if err := tx.TransferTokens(rec.ID, escrow, trader, q.TokensOut); err != nil {
		return BuyQuote{}, err
	}

	wasEligible := Eligible(pool)
	pool.RealReserve += q.NetIn
	pool.TokenReserve -= q.TokensOut
	pool.TotalVolume += nativeIn
	pool.TradeCount++
	if Eligible(pool) {
		pool.Graduated = true
	}
	tx.Pools.Put(rec.ID, pool)
	splitFee(tx, rec.ID, q.Fee)

	tx.Emit(&events.TradeEvent{
		BaseEvent:    tx.Base(events.TradeExecuted, rec.ID),
		Trader:       trader,
		Side:         events.SideBuy,
		Market:       MarketName,
		NativeAmount: nativeIn,
		TokenAmount:  q.TokensOut,
		Fee:          q.Fee,
		FeeBps:       feeBps,
		PriceAfter:   q.PriceAfter,
	})
	if !wasEligible && pool.Graduated {
		tx.Emit(&events.GraduationEligibleEvent{
			BaseEvent:   tx.Base(events.GraduationEligible, rec.ID),
			RealReserve: pool.RealReserve,
			Threshold:   pool.GraduationThreshold,
		})
	}
	return q, nil
}

// Buy buys curve tokens with native funds.
type Buy struct {
	Launch domain.LaunchID
	Amount uint64
	MinOut uint64
}

func (Buy) Name() string { return "curve_buy" }

func (o Buy) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	_, err = ExecuteBuy(tx, rec, tx.Caller, o.Amount, o.MinOut)
	return err
}

// Sell sells tokens back to the curve. Disallowed once the pool has crossed
// its graduation threshold.
type Sell struct {
	Launch domain.LaunchID
	Amount uint64
	MinOut uint64
}

func (Sell) Name() string { return "curve_sell" }

func (o Sell) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	if _, err := rec.AsInstantLaunch(); err != nil {
		return err
	}
	pool, err := Load(tx.State, rec.ID)
	if err != nil {
		return err
	}
	if pool.Graduated || pool.Migrated {
		return domain.Precondition(domain.CodeAlreadyGraduated, "%s reached its graduation threshold; selling is closed", rec.Symbol)
	}
	if o.Amount == 0 {
		return domain.Validation(domain.CodeBadAmount, "sell amount must be positive")
	}

	feeBps := CurrentFeeRate(tx.Params.FeeTiers, elapsedBlocks(pool, tx.Block))
	q := QuoteSell(pool, o.Amount, feeBps)
	if q.Gross == 0 || q.NetOut == 0 {
		return domain.Validation(domain.CodeZeroOutput, "sell of %d returns nothing", o.Amount)
	}
	if q.NetOut < o.MinOut {
		return domain.Slippage(q.NetOut, o.MinOut)
	}

	escrow := rec.Escrow()
	if err := tx.TransferTokens(rec.ID, tx.Caller, escrow, o.Amount); err != nil {
		return err
	}
	if err := tx.TransferNative(escrow, tx.Caller, q.NetOut); err != nil {
		return err
	}

	pool.RealReserve -= q.Gross
	pool.TokenReserve += o.Amount
	pool.TotalVolume += q.Gross
	pool.TradeCount++
	tx.Pools.Put(rec.ID, pool)
	splitFee(tx, rec.ID, q.Fee)

	tx.Emit(&events.TradeEvent{
		BaseEvent:    tx.Base(events.TradeExecuted, rec.ID),
		Trader:       tx.Caller,
		Side:         events.SideSell,
		Market:       MarketName,
		NativeAmount: q.NetOut,
		TokenAmount:  o.Amount,
		Fee:          q.Fee,
		FeeBps:       feeBps,
		PriceAfter:   q.PriceAfter,
	})
	return nil
}

// Info is the read model of a curve pool.
type Info struct {
	Pool               domain.PoolState `json:"pool"`
	SpotPrice          decimal.Decimal  `json:"spot_price"`
	MarketCap          uint64           `json:"market_cap"`
	GraduationProgress decimal.Decimal  `json:"graduation_progress"`
	Eligible           bool             `json:"eligible"`
	Fee                FeeInfo          `json:"fee"`
}

// InfoOf builds the pool read model at the given block.
func InfoOf(s *ledger.State, launch domain.LaunchID, block uint64) (Info, error) {
	pool, err := Load(s, launch)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Pool:               pool,
		SpotPrice:          SpotPrice(pool),
		MarketCap:          MarketCap(pool, s.CirculatingSupply(launch)),
		GraduationProgress: GraduationProgress(pool),
		Eligible:           Eligible(pool),
		Fee:                Schedule(s.Params.FeeTiers, elapsedBlocks(pool, block)),
	}, nil
}

// QuoteAt prices a trade against current state without executing it.
func QuoteAt(s *ledger.State, launch domain.LaunchID, block uint64, side events.TradeSide, amount uint64) (any, error) {
	pool, err := Load(s, launch)
	if err != nil {
		return nil, err
	}
	feeBps := CurrentFeeRate(s.Params.FeeTiers, elapsedBlocks(pool, block))
	switch side {
	case events.SideBuy:
		return QuoteBuy(pool, amount, feeBps), nil
	case events.SideSell:
		return QuoteSell(pool, amount, feeBps), nil
	default:
		return nil, domain.Validation(domain.CodeBadParams, "unknown side %q", side)
	}
}
