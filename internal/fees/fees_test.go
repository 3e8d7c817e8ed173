package fees

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/testutil"
	"github.com/rovshanmuradov/launchpad/internal/venue"
)

func setupLaunch(t *testing.T, c *testutil.Chain) domain.LaunchRecord {
	t.Helper()
	rec := domain.LaunchRecord{
		ID:            testutil.NewAddress(),
		Symbol:        "FEE",
		Founder:       testutil.NewAddress(),
		PlatformOwner: testutil.NewAddress(),
		Type:          domain.InstantLaunch{},
		TotalSupply:   domain.SupplyUnits,
	}
	require.NoError(t, c.Do(func(tx *ledger.Tx) error {
		tx.Launches.Put(rec.ID, rec)
		return nil
	}))
	return rec
}

func accrue(t *testing.T, c *testutil.Chain, rec domain.LaunchRecord, role domain.FeeRole, amount uint64) {
	t.Helper()
	require.NoError(t, c.Do(func(tx *ledger.Tx) error {
		if err := tx.Deposit(rec.Escrow(), amount); err != nil {
			return err
		}
		Accrue(tx, rec.ID, role, amount)
		return nil
	}))
}

func TestCanClaim(t *testing.T) {
	now := testutil.Genesis
	ok, wait := CanClaim(domain.FeeAccrual{}, now, time.Hour)
	assert.True(t, ok)
	assert.Zero(t, wait)

	ok, wait = CanClaim(domain.FeeAccrual{LastClaim: now.Add(-20 * time.Minute)}, now, time.Hour)
	assert.False(t, ok)
	assert.Equal(t, 40*time.Minute, wait)

	ok, _ = CanClaim(domain.FeeAccrual{LastClaim: now.Add(-time.Hour)}, now, time.Hour)
	assert.True(t, ok)
}

func TestCreatorClaimCooldownAndPayout(t *testing.T) {
	c := testutil.NewChain(t, domain.DefaultParams())
	rec := setupLaunch(t, c)
	accrue(t, c, rec, domain.RoleCreator, domain.NativeUnit)

	_, err := c.Exec(testutil.NewAddress(), ClaimCreatorFees{Launch: rec.ID})
	assert.ErrorIs(t, err, domain.ErrNotFounder)

	c.MustExec(rec.Founder, ClaimCreatorFees{Launch: rec.ID})
	c.View(func(s *ledger.State, _ ledger.Env) {
		assert.Equal(t, uint64(domain.NativeUnit), s.NativeBalance(rec.Founder))
		a := Get(s, rec.ID, domain.RoleCreator)
		assert.Zero(t, a.Accrued)
		assert.Equal(t, uint64(domain.NativeUnit), a.TotalClaimed)
		assert.Equal(t, testutil.Genesis, a.LastClaim)
	})

	accrue(t, c, rec, domain.RoleCreator, domain.NativeUnit)
	_, err = c.Exec(rec.Founder, ClaimCreatorFees{Launch: rec.ID})
	assert.ErrorIs(t, err, domain.ErrCooldownActive)

	c.Clock.Advance(24 * time.Hour)
	c.MustExec(rec.Founder, ClaimCreatorFees{Launch: rec.ID})
	c.View(func(s *ledger.State, _ ledger.Env) {
		assert.Equal(t, 2*domain.NativeUnit, s.NativeBalance(rec.Founder))
	})
}

func TestClaimBelowMinimum(t *testing.T) {
	c := testutil.NewChain(t, domain.DefaultParams())
	rec := setupLaunch(t, c)

	_, err := c.Exec(rec.Founder, ClaimCreatorFees{Launch: rec.ID})
	assert.ErrorIs(t, err, domain.ErrNothingToClaim)

	accrue(t, c, rec, domain.RoleCreator, domain.NativeUnit/1000)
	_, err = c.Exec(rec.Founder, ClaimCreatorFees{Launch: rec.ID})
	assert.Equal(t, domain.CodeBelowMinimum, domain.CodeOf(err))
}

func TestCreatorGateAfterGraduation(t *testing.T) {
	c := testutil.NewChain(t, domain.DefaultParams())
	rec := setupLaunch(t, c)
	trader := testutil.NewAddress()

	// Graduate by hand: pool seeded from escrow, snapshot taken at creation.
	require.NoError(t, c.Do(func(tx *ledger.Tx) error {
		tx.MintTokens(rec.ID, rec.Escrow(), 2_000_000)
		if err := tx.Deposit(rec.Escrow(), 4_000_000); err != nil {
			return err
		}
		if _, err := venue.CreatePool(tx, rec.ID, rec.Escrow(), 1_000_000, 4_000_000); err != nil {
			return err
		}
		if err := tx.TransferTokens(rec.ID, rec.Escrow(), trader, 1_000_000); err != nil {
			return err
		}
		mc, err := venue.MarketCap(tx.State, rec.ID)
		if err != nil {
			return err
		}
		rec.Graduation = domain.Graduated
		rec.GraduationMarketCap = mc
		tx.Launches.Put(rec.ID, rec)
		return nil
	}))
	accrue(t, c, rec, domain.RoleCreator, domain.NativeUnit)

	// A dump moves the price below the snapshot.
	require.NoError(t, c.Do(func(tx *ledger.Tx) error {
		_, err := venue.SwapTokensForNative(tx, rec.ID, trader, 500_000, 0)
		return err
	}))

	_, err := c.Exec(rec.Founder, ClaimCreatorFees{Launch: rec.ID})
	assert.Equal(t, domain.CodeMarketCapBelowGraduate, domain.CodeOf(err))

	c.View(func(s *ledger.State, env ledger.Env) {
		st := StatusOf(s, env.Now, rec, domain.RoleCreator)
		assert.False(t, st.GateOK)
		assert.False(t, st.Ready)
	})

	// Platform fees are not gated.
	accrue(t, c, rec, domain.RolePlatform, domain.NativeUnit)
	c.MustExec(rec.PlatformOwner, ClaimPlatformFees{Launch: rec.ID})
}

func TestHarvestAndClaimLPFees(t *testing.T) {
	c := testutil.NewChain(t, domain.DefaultParams())
	rec := setupLaunch(t, c)
	trader := testutil.NewAddress()

	require.NoError(t, c.Do(func(tx *ledger.Tx) error {
		tx.MintTokens(rec.ID, rec.Escrow(), 200_000_000*domain.TokenUnit)
		if err := tx.Deposit(rec.Escrow(), 40*domain.NativeUnit); err != nil {
			return err
		}
		if _, err := venue.CreatePool(tx, rec.ID, rec.Escrow(), 200_000_000*domain.TokenUnit, 40*domain.NativeUnit); err != nil {
			return err
		}
		rec.Graduation = domain.Graduated
		tx.Launches.Put(rec.ID, rec)
		return nil
	}))

	_, err := c.Exec(trader, HarvestLPFees{Launch: rec.ID})
	assert.ErrorIs(t, err, domain.ErrNothingToClaim)

	c.Fund(trader, 20*domain.NativeUnit)
	require.NoError(t, c.Do(func(tx *ledger.Tx) error {
		_, err := venue.SwapNativeForTokens(tx, rec.ID, trader, 20*domain.NativeUnit, 0)
		return err
	}))

	r := c.MustExec(trader, HarvestLPFees{Launch: rec.ID})
	require.Len(t, r.Events, 1)

	c.MustExec(rec.Founder, ClaimLPFees{Launch: rec.ID})
	c.View(func(s *ledger.State, _ ledger.Env) {
		assert.InDelta(t, float64(domain.Bps(20*domain.NativeUnit, 25)), float64(s.NativeBalance(rec.Founder)), 5)
	})
}
