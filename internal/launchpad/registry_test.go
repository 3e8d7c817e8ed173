package launchpad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/testutil"
)

func TestCreateLaunchMintsSupplyIntoEscrow(t *testing.T) {
	c := testutil.NewChain(t, domain.DefaultParams())
	founder, owner := testutil.NewAddress(), testutil.NewAddress()

	r := c.MustExec(founder, CreateLaunch{
		Request:       raiseRequest(50*domain.NativeUnit, 80*domain.NativeUnit),
		PlatformOwner: owner,
	})
	require.Len(t, r.Events, 1)
	created := r.Events[0].(*events.LaunchCreatedEvent)
	assert.Equal(t, domain.KindProjectRaise, created.Kind)
	assert.Equal(t, 80*domain.NativeUnit, created.Max)

	c.View(func(s *ledger.State, _ ledger.Env) {
		rec, err := s.Launch(created.Launch)
		require.NoError(t, err)
		assert.True(t, rec.IsFounder(founder))
		assert.True(t, rec.IsPlatformOwner(owner))
		assert.Equal(t, domain.SupplyUnits, s.TokenBalance(rec.ID, rec.Escrow()))

		alloc := s.Params.Allocation(domain.KindProjectRaise, rec.TotalSupply)
		assert.Equal(t, rec.TotalSupply, alloc.Total())

		st, ok := s.Raises.Get(rec.ID)
		require.True(t, ok)
		assert.Equal(t, domain.RaiseCollecting, st.Status)
	})
}

func TestCreateInstantLaunchWithInitialBuy(t *testing.T) {
	c := testutil.NewChain(t, domain.DefaultParams())
	founder := testutil.NewAddress()
	c.Fund(founder, 3*domain.NativeUnit)

	r := c.MustExec(founder, CreateInstantLaunch{
		Request:       CreateInstantLaunchRequest{Name: "Fast", Symbol: "FAST", InitialBuy: 2 * domain.NativeUnit},
		PlatformOwner: testutil.NewAddress(),
	})
	require.Len(t, r.Events, 2)
	assert.Equal(t, events.LaunchCreated, r.Events[0].Type())
	trade := r.Events[1].(*events.TradeEvent)
	assert.Equal(t, founder, trade.Trader)

	c.View(func(s *ledger.State, _ ledger.Env) {
		assert.Equal(t, domain.NativeUnit, s.NativeBalance(founder))
		assert.Equal(t, trade.TokenAmount, s.TokenBalance(trade.Launch, founder))
	})
}

func TestInitialBuyFailureRollsBackLaunch(t *testing.T) {
	c := testutil.NewChain(t, domain.DefaultParams())
	founder := testutil.NewAddress()

	_, err := c.Exec(founder, CreateInstantLaunch{
		Request:       CreateInstantLaunchRequest{Name: "Broke", Symbol: "BRK", InitialBuy: domain.NativeUnit},
		PlatformOwner: testutil.NewAddress(),
	})
	assert.Equal(t, domain.CodeInsufficientFunds, domain.CodeOf(err))

	c.View(func(s *ledger.State, _ ledger.Env) {
		assert.Zero(t, s.Launches.Len())
		assert.Zero(t, s.Pools.Len())
	})
}

func TestRegisterRequiresPlatformOwner(t *testing.T) {
	c := testutil.NewChain(t, domain.DefaultParams())
	_, err := c.Exec(testutil.NewAddress(), CreateLaunch{Request: raiseRequest(20*domain.NativeUnit, 0)})
	assert.Equal(t, domain.CodeBadAddress, domain.CodeOf(err))
}
