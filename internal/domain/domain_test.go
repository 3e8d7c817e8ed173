package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultParamsValid(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())
}

func TestParamsValidateRejectsBrokenConservation(t *testing.T) {
	p := DefaultParams()
	p.RaiseContributorBps = 2000

	err := p.Validate()
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, CodeBadParams, CodeOf(err))
}

func TestParamsValidateRejectsRisingFeeTier(t *testing.T) {
	p := DefaultParams()
	p.FeeTiers = []FeeTier{{FromBlock: 0, Bps: 100}, {FromBlock: 10, Bps: 200}}
	assert.Error(t, p.Validate())

	p.FeeTiers = []FeeTier{{FromBlock: 5, Bps: 100}}
	assert.Error(t, p.Validate())
}

func TestAllocationConservation(t *testing.T) {
	p := DefaultParams()
	for _, supply := range []uint64{SupplyUnits, SupplyUnits - 7, 999_999_999} {
		for _, kind := range []LaunchKind{KindProjectRaise, KindInstantLaunch} {
			t.Run(fmt.Sprintf("%s/%d", kind, supply), func(t *testing.T) {
				a := p.Allocation(kind, supply)
				assert.Equal(t, supply, a.Total())
			})
		}
	}

	a := p.Allocation(KindProjectRaise, SupplyUnits)
	assert.Equal(t, Bps(SupplyUnits, 7000), a.Contributors)
	assert.Equal(t, Bps(SupplyUnits, 500), a.Founder)
	assert.Equal(t, Bps(SupplyUnits, 2000), a.Liquidity)
	assert.Equal(t, Bps(SupplyUnits, 500), a.Vested)
	assert.Zero(t, a.Curve)
}

func TestSplitFunds(t *testing.T) {
	s := DefaultParams().SplitFunds(1001)
	assert.Equal(t, uint64(500), s.Liquidity)
	assert.Equal(t, uint64(300), s.Founder)
	assert.Equal(t, uint64(201), s.Reserve)
}

func TestMulDiv(t *testing.T) {
	assert.Equal(t, uint64(0), MulDiv(5, 5, 0))
	assert.Equal(t, uint64(3), MulDiv(10, 1, 3))
	assert.Equal(t, uint64(math.MaxUint64), MulDiv(math.MaxUint64, 2, 1))
	// no intermediate overflow
	assert.Equal(t, uint64(math.MaxUint64/2), MulDiv(math.MaxUint64/2, 1<<40, 1<<40))
	assert.Equal(t, uint64(1_000), ISqrt(100, 10_000))
}

func TestErrorMatching(t *testing.T) {
	err := fmt.Errorf("claim refund: %w", Precondition(CodeAlreadyClaimed, "contribution for %s", "x"))

	assert.True(t, errors.Is(err, ErrAlreadyClaimed))
	assert.False(t, errors.Is(err, ErrWrongState))
	assert.Equal(t, KindPrecondition, KindOf(err))
	assert.False(t, IsRetryable(err))

	ledgerErr := LedgerFailure(CodeLedgerBusy, errors.New("queue full"))
	assert.True(t, IsRetryable(ledgerErr))
	assert.Contains(t, ledgerErr.Error(), "queue full")

	slip := Slippage(10, 20)
	assert.True(t, errors.Is(slip, ErrSlippageExceeded))
	assert.Equal(t, KindSlippage, slip.Kind)
}

func TestLaunchVariant(t *testing.T) {
	founder := solana.NewWallet().PublicKey()
	rec := &LaunchRecord{Symbol: "TST", Founder: founder, Type: InstantLaunch{}}

	_, err := rec.AsProjectRaise()
	assert.ErrorIs(t, err, ErrWrongLaunchType)
	_, err = rec.AsInstantLaunch()
	assert.NoError(t, err)

	assert.NoError(t, rec.RequireFounder(founder))
	assert.ErrorIs(t, rec.RequireFounder(solana.NewWallet().PublicKey()), ErrNotFounder)
}

func TestDeriveLaunchIDIsDeterministic(t *testing.T) {
	founder := solana.NewWallet().PublicKey()

	a, err := DeriveLaunchID(founder, "TST", 1)
	require.NoError(t, err)
	b, err := DeriveLaunchID(founder, "TST", 1)
	require.NoError(t, err)
	c, err := DeriveLaunchID(founder, "TST", 2)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, EscrowAddress(a))
}

func TestParseAddress(t *testing.T) {
	_, err := ParseAddress("not-base58!")
	assert.Equal(t, CodeBadAddress, CodeOf(err))

	addr, err := ParseAddress(IncineratorAddress.String())
	require.NoError(t, err)
	assert.True(t, addr.Equals(IncineratorAddress))
}
