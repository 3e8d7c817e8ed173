package venue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/testutil"
)

func seedPool(t *testing.T, c *testutil.Chain, launch, provider domain.Address, tokens, native uint64) {
	t.Helper()
	require.NoError(t, c.Do(func(tx *ledger.Tx) error {
		tx.MintTokens(launch, provider, tokens*2)
		if err := tx.Deposit(provider, native*2); err != nil {
			return err
		}
		_, err := CreatePool(tx, launch, provider, tokens, native)
		return err
	}))
}

func TestCreatePoolOnce(t *testing.T) {
	c := testutil.NewChain(t, domain.DefaultParams())
	launch, provider := testutil.NewAddress(), testutil.NewAddress()

	seedPool(t, c, launch, provider, 200_000_000*domain.TokenUnit, 40*domain.NativeUnit)

	c.View(func(s *ledger.State, _ ledger.Env) {
		pool, err := Load(s, launch)
		require.NoError(t, err)
		assert.Equal(t, domain.ISqrt(200_000_000*domain.TokenUnit, 40*domain.NativeUnit), pool.LPSupply)
		assert.Equal(t, pool.LPSupply, Position(s, launch, provider).Liquidity)
		assert.Equal(t, uint64(40*domain.NativeUnit), s.NativeBalance(PoolAddress(launch)))
	})

	err := c.Do(func(tx *ledger.Tx) error {
		_, err := CreatePool(tx, launch, provider, 1, 1)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyGraduated)
}

func TestSwapRoundTripLosesFees(t *testing.T) {
	c := testutil.NewChain(t, domain.DefaultParams())
	launch, provider, trader := testutil.NewAddress(), testutil.NewAddress(), testutil.NewAddress()
	seedPool(t, c, launch, provider, 200_000_000*domain.TokenUnit, 40*domain.NativeUnit)
	c.Fund(trader, domain.NativeUnit)

	var bought, sold Quote
	require.NoError(t, c.Do(func(tx *ledger.Tx) error {
		var err error
		bought, err = SwapNativeForTokens(tx, launch, trader, domain.NativeUnit, 1)
		if err != nil {
			return err
		}
		sold, err = SwapTokensForNative(tx, launch, trader, bought.Out, 0)
		return err
	}))

	assert.Equal(t, domain.Bps(domain.NativeUnit, 25), bought.Fee)
	assert.Less(t, sold.Out, uint64(domain.NativeUnit))
	c.View(func(s *ledger.State, _ ledger.Env) {
		assert.Equal(t, sold.Out, s.NativeBalance(trader))
		assert.Zero(t, s.TokenBalance(launch, trader))
	})
}

func TestSwapSlippage(t *testing.T) {
	c := testutil.NewChain(t, domain.DefaultParams())
	launch, provider, trader := testutil.NewAddress(), testutil.NewAddress(), testutil.NewAddress()
	seedPool(t, c, launch, provider, 1_000_000, 1_000_000)
	c.Fund(trader, 1_000)

	err := c.Do(func(tx *ledger.Tx) error {
		_, err := SwapNativeForTokens(tx, launch, trader, 1_000, 1_000)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrSlippageExceeded)
	c.View(func(s *ledger.State, _ ledger.Env) {
		assert.Equal(t, uint64(1_000), s.NativeBalance(trader))
	})
}

func TestHarvestPaysAccruedFees(t *testing.T) {
	c := testutil.NewChain(t, domain.DefaultParams())
	launch, provider, trader, sink := testutil.NewAddress(), testutil.NewAddress(), testutil.NewAddress(), testutil.NewAddress()
	seedPool(t, c, launch, provider, 200_000_000*domain.TokenUnit, 40*domain.NativeUnit)
	c.Fund(trader, 10*domain.NativeUnit)

	require.NoError(t, c.Do(func(tx *ledger.Tx) error {
		_, err := SwapNativeForTokens(tx, launch, trader, 10*domain.NativeUnit, 0)
		return err
	}))

	var paid uint64
	require.NoError(t, c.Do(func(tx *ledger.Tx) error {
		var err error
		paid, err = Harvest(tx, launch, provider, sink)
		return err
	}))

	fee := domain.Bps(10*domain.NativeUnit, 25)
	assert.InDelta(t, float64(fee), float64(paid), 5)
	assert.LessOrEqual(t, paid, fee)

	// Second harvest has nothing new.
	require.NoError(t, c.Do(func(tx *ledger.Tx) error {
		again, err := Harvest(tx, launch, provider, sink)
		assert.Zero(t, again)
		return err
	}))
}

func TestBurnPositionMovesLiquidityToIncinerator(t *testing.T) {
	c := testutil.NewChain(t, domain.DefaultParams())
	launch, provider := testutil.NewAddress(), testutil.NewAddress()
	seedPool(t, c, launch, provider, 1_000_000, 4_000_000)

	require.NoError(t, c.Do(func(tx *ledger.Tx) error {
		_, err := BurnPosition(tx, launch, provider)
		return err
	}))

	c.View(func(s *ledger.State, _ ledger.Env) {
		assert.Zero(t, Position(s, launch, provider).Liquidity)
		assert.Equal(t, uint64(2_000_000), Position(s, launch, domain.IncineratorAddress).Liquidity)
	})

	err := c.Do(func(tx *ledger.Tx) error {
		_, err := BurnPosition(tx, launch, provider)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNothingToClaim)
}

func TestAddLiquidityIsProportional(t *testing.T) {
	c := testutil.NewChain(t, domain.DefaultParams())
	launch, provider := testutil.NewAddress(), testutil.NewAddress()
	seedPool(t, c, launch, provider, 1_000_000, 4_000_000)

	var lp, usedTokens, usedNative uint64
	require.NoError(t, c.Do(func(tx *ledger.Tx) error {
		var err error
		lp, usedTokens, usedNative, err = AddLiquidity(tx, launch, provider, 1_000_000, 1_000_000)
		return err
	}))

	assert.Equal(t, uint64(250_000), usedTokens)
	assert.Equal(t, uint64(1_000_000), usedNative)
	assert.Equal(t, uint64(500_000), lp)
}

func TestMarketCap(t *testing.T) {
	c := testutil.NewChain(t, domain.DefaultParams())
	launch, provider := testutil.NewAddress(), testutil.NewAddress()
	seedPool(t, c, launch, provider, 1_000_000, 4_000_000)

	c.View(func(s *ledger.State, _ ledger.Env) {
		mc, err := MarketCap(s, launch)
		require.NoError(t, err)
		// 2_000_000 minted at 4 native per token unit
		assert.Equal(t, uint64(8_000_000), mc)
	})
}
