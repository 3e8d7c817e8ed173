package curve

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/fees"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/testutil"
)

func TestHigherVirtualReserveLowersPriceImpact(t *testing.T) {
	deep := domain.PoolState{VirtualReserve: 10, TokenReserve: 1_000_000}
	shallow := domain.PoolState{VirtualReserve: 5, TokenReserve: 1_000_000}

	a := QuoteBuy(deep, 1, 0)
	b := QuoteBuy(shallow, 1, 0)

	assert.Equal(t, uint64(90_909), a.TokensOut)
	assert.Equal(t, uint64(166_666), b.TokensOut)
	assert.Less(t, a.TokensOut, b.TokensOut)
}

func TestQuotesAreDeterministic(t *testing.T) {
	pool := domain.PoolState{RealReserve: 3 * domain.NativeUnit, VirtualReserve: 30 * domain.NativeUnit, TokenReserve: 700_000_000 * domain.TokenUnit}
	assert.Equal(t, QuoteBuy(pool, domain.NativeUnit, 500), QuoteBuy(pool, domain.NativeUnit, 500))
	assert.Equal(t, QuoteSell(pool, domain.TokenUnit, 500), QuoteSell(pool, domain.TokenUnit, 500))
}

func TestSellCannotPayVirtualReserve(t *testing.T) {
	pool := domain.PoolState{RealReserve: 100, VirtualReserve: 1_000_000, TokenReserve: 1_000}
	q := QuoteSell(pool, 1_000, 0)
	assert.Equal(t, uint64(100), q.Gross)
}

func TestFeeScheduleIsNonIncreasing(t *testing.T) {
	tiers := domain.DefaultParams().FeeTiers
	prev := CurrentFeeRate(tiers, 0)
	assert.Equal(t, uint64(500), prev)
	for b := uint64(1); b < 5_000; b += 7 {
		cur := CurrentFeeRate(tiers, b)
		assert.LessOrEqual(t, cur, prev, "block %d", b)
		prev = cur
	}
	assert.Equal(t, uint64(100), prev)

	info := Schedule(tiers, 100)
	assert.Equal(t, 0, info.CurrentTier)
	assert.Equal(t, uint64(50), info.BlocksToNextTier)
	assert.Equal(t, uint64(300), info.NextBps)
	assert.Equal(t, uint64(100), info.FloorBps)

	info = Schedule(tiers, 2_400)
	assert.True(t, info.AtFloor)
	assert.Zero(t, info.BlocksToNextTier)
}

func TestGraduationProgress(t *testing.T) {
	pool := domain.PoolState{RealReserve: 17 * domain.NativeUnit, GraduationThreshold: 85 * domain.NativeUnit}
	assert.True(t, GraduationProgress(pool).Equal(decimal.NewFromInt(20)))
	pool.RealReserve = 90 * domain.NativeUnit
	assert.True(t, GraduationProgress(pool).Equal(decimal.NewFromInt(100)))
}

type market struct {
	*testutil.Chain
	rec domain.LaunchRecord
}

func newMarket(t *testing.T) *market {
	t.Helper()
	c := testutil.NewChain(t, domain.DefaultParams())
	rec := domain.LaunchRecord{
		ID:            testutil.NewAddress(),
		Symbol:        "CRV",
		Founder:       testutil.NewAddress(),
		PlatformOwner: testutil.NewAddress(),
		Type:          domain.InstantLaunch{},
		TotalSupply:   domain.SupplyUnits,
	}
	require.NoError(t, c.Do(func(tx *ledger.Tx) error {
		tx.Launches.Put(rec.ID, rec)
		tx.MintTokens(rec.ID, rec.Escrow(), rec.TotalSupply)
		_, err := OpenPool(tx, rec)
		return err
	}))
	return &market{Chain: c, rec: rec}
}

func (m *market) pool() domain.PoolState {
	var p domain.PoolState
	m.View(func(s *ledger.State, _ ledger.Env) {
		var err error
		p, err = Load(s, m.rec.ID)
		require.NoError(m.T, err)
	})
	return p
}

func TestOpenPoolSplitsSupply(t *testing.T) {
	m := newMarket(t)
	p := m.pool()
	assert.Equal(t, domain.Bps(domain.SupplyUnits, 8000), p.TokenReserve)
	assert.Equal(t, domain.Bps(domain.SupplyUnits, 2000), p.ReservedTokens)
	assert.Equal(t, 30*domain.NativeUnit, p.VirtualReserve)
	assert.Zero(t, p.RealReserve)
}

func TestBuyAndSellMoveEffectiveReserve(t *testing.T) {
	m := newMarket(t)
	trader := testutil.NewAddress()
	m.Fund(trader, 5*domain.NativeUnit)

	before := m.pool().EffectiveReserve()
	r := m.MustExec(trader, Buy{Launch: m.rec.ID, Amount: domain.NativeUnit, MinOut: 1})
	afterBuy := m.pool()
	assert.Greater(t, afterBuy.EffectiveReserve(), before)
	require.Len(t, r.Events, 1)
	trade := r.Events[0].(*events.TradeEvent)
	assert.Equal(t, uint64(500), trade.FeeBps)

	var held uint64
	m.View(func(s *ledger.State, _ ledger.Env) {
		held = s.TokenBalance(m.rec.ID, trader)
		creator := fees.Get(s, m.rec.ID, domain.RoleCreator)
		platform := fees.Get(s, m.rec.ID, domain.RolePlatform)
		assert.Equal(t, trade.Fee, creator.Accrued+platform.Accrued)
		assert.Equal(t, domain.Bps(trade.Fee, 3000), creator.Accrued)
		// escrow holds the real reserve plus unclaimed fees
		assert.Equal(t, afterBuy.RealReserve+trade.Fee, s.NativeBalance(m.rec.Escrow()))
	})

	m.MustExec(trader, Sell{Launch: m.rec.ID, Amount: held / 2})
	assert.Less(t, m.pool().EffectiveReserve(), afterBuy.EffectiveReserve())
}

func TestBuySlippageLeavesStateUntouched(t *testing.T) {
	m := newMarket(t)
	trader := testutil.NewAddress()
	m.Fund(trader, domain.NativeUnit)

	q := QuoteBuy(m.pool(), domain.NativeUnit, 500)
	_, err := m.Exec(trader, Buy{Launch: m.rec.ID, Amount: domain.NativeUnit, MinOut: q.TokensOut + 1})
	assert.ErrorIs(t, err, domain.ErrSlippageExceeded)

	assert.Zero(t, m.pool().RealReserve)
	m.View(func(s *ledger.State, _ ledger.Env) {
		assert.Equal(t, uint64(domain.NativeUnit), s.NativeBalance(trader))
	})
}

func TestFeeTierDecaysWithBlocks(t *testing.T) {
	m := newMarket(t)
	trader := testutil.NewAddress()
	m.Fund(trader, 2*domain.NativeUnit)

	m.Clock.AdvanceBlocks(2_400)
	r := m.MustExec(trader, Buy{Launch: m.rec.ID, Amount: domain.NativeUnit})
	assert.Equal(t, uint64(100), r.Events[0].(*events.TradeEvent).FeeBps)
}

func TestCrossingThresholdClosesSells(t *testing.T) {
	m := newMarket(t)
	whale := testutil.NewAddress()
	m.Fund(whale, 100*domain.NativeUnit)

	r := m.MustExec(whale, Buy{Launch: m.rec.ID, Amount: 95 * domain.NativeUnit})
	require.Len(t, r.Events, 2)
	assert.Equal(t, events.GraduationEligible, r.Events[1].Type())

	p := m.pool()
	assert.True(t, p.Graduated)
	assert.True(t, Eligible(p))

	_, err := m.Exec(whale, Sell{Launch: m.rec.ID, Amount: domain.TokenUnit})
	assert.ErrorIs(t, err, domain.ErrAlreadyGraduated)

	// Buys stay open until liquidity migrates.
	m.MustExec(whale, Buy{Launch: m.rec.ID, Amount: domain.NativeUnit})
	assert.True(t, m.pool().Graduated)
}

func TestCurveRejectsProjectRaise(t *testing.T) {
	c := testutil.NewChain(t, domain.DefaultParams())
	rec := domain.LaunchRecord{ID: testutil.NewAddress(), Symbol: "PR", Type: domain.ProjectRaise{}}
	require.NoError(t, c.Do(func(tx *ledger.Tx) error {
		tx.Launches.Put(rec.ID, rec)
		return nil
	}))

	_, err := c.Exec(testutil.NewAddress(), Buy{Launch: rec.ID, Amount: 1})
	assert.ErrorIs(t, err, domain.ErrWrongLaunchType)
}
