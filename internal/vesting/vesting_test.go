package vesting

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/testutil"
	"github.com/rovshanmuradov/launchpad/internal/venue"
)

const month = 30 * 24 * time.Hour

var (
	// The venue prices the whole supply at 1000 native, so the rate maps
	// one to one onto thousands of dollars of market cap.
	rateAtStart = decimal.NewFromInt(1200)
	rateBelow   = decimal.NewFromInt(900)
	startUSD    = decimal.NewFromInt(1_200_000)
)

type fixture struct {
	*testutil.Chain
	rec domain.LaunchRecord
}

func newVesting(t *testing.T) *fixture {
	t.Helper()
	c := testutil.NewChain(t, domain.DefaultParams())
	rec := domain.LaunchRecord{
		ID:            testutil.NewAddress(),
		Symbol:        "VST",
		Founder:       testutil.NewAddress(),
		PlatformOwner: testutil.NewAddress(),
		Type:          domain.ProjectRaise{VestingDays: 300},
		TotalSupply:   domain.SupplyUnits,
		Graduation:    domain.Graduated,
	}
	require.NoError(t, c.Do(func(tx *ledger.Tx) error {
		tx.Launches.Put(rec.ID, rec)
		tx.MintTokens(rec.ID, rec.Escrow(), rec.TotalSupply)
		if err := tx.Deposit(rec.Escrow(), testutil.Native(120)); err != nil {
			return err
		}
		tx.Raises.Put(rec.ID, domain.RaiseState{Launch: rec.ID, Status: domain.RaiseSucceeded, ReserveFunds: testutil.Native(20)})
		if _, err := venue.CreatePool(tx, rec.ID, rec.Escrow(), domain.SupplyUnits/10, testutil.Native(100)); err != nil {
			return err
		}
		_, err := Start(tx, rec, startUSD)
		return err
	}))
	return &fixture{Chain: c, rec: rec}
}

func (f *fixture) schedule() domain.VestingSchedule {
	var v domain.VestingSchedule
	f.View(func(s *ledger.State, _ ledger.Env) {
		var err error
		v, err = Load(s, f.rec.ID)
		require.NoError(f.T, err)
	})
	return v
}

func (f *fixture) triggerControl() {
	f.T.Helper()
	for range 3 {
		f.Clock.Advance(month)
		f.MustExec(testutil.NewAddress(), UpdateMarketCap{Launch: f.rec.ID, RateUSD: rateBelow})
	}
}

func TestStartSchedule(t *testing.T) {
	f := newVesting(t)
	v := f.schedule()
	assert.Equal(t, domain.Bps(domain.SupplyUnits, 500), v.Total)
	assert.Equal(t, 300*24*time.Hour, v.Duration)
	assert.True(t, v.StartMarketCapUSD.Equal(startUSD))

	f.View(func(s *ledger.State, _ ledger.Env) {
		usd, err := MarketCapUSD(s, f.rec.ID, rateAtStart)
		require.NoError(t, err)
		assert.True(t, usd.Equal(startUSD), usd.String())
	})
}

func TestThreeChecksBelowStartTriggerCommunityControl(t *testing.T) {
	f := newVesting(t)

	_, err := f.Exec(testutil.NewAddress(), UpdateMarketCap{Launch: f.rec.ID, RateUSD: rateBelow})
	assert.Equal(t, domain.CodeCheckTooEarly, domain.CodeOf(err))

	var last ledger.Receipt
	for i := 1; i <= 3; i++ {
		f.Clock.Advance(month)
		last = f.MustExec(testutil.NewAddress(), UpdateMarketCap{Launch: f.rec.ID, RateUSD: rateBelow})
		assert.Equal(t, i, f.schedule().ConsecutiveBelow)
	}
	require.Len(t, last.Events, 2)
	assert.Equal(t, events.CommunityControlTriggered, last.Events[1].Type())

	v := f.schedule()
	assert.True(t, v.CommunityControl)
	assert.Len(t, v.History, 3)
	assert.Zero(t, Releasable(v, f.Clock.Now(), rateAtStart.Mul(decimal.NewFromInt(1000))))

	_, err = f.Exec(f.rec.Founder, ClaimVestedTokens{Launch: f.rec.ID, RateUSD: rateAtStart})
	assert.ErrorIs(t, err, domain.ErrCommunityControl)
	f.View(func(s *ledger.State, _ ledger.Env) {
		assert.Zero(t, s.TokenBalance(f.rec.ID, f.rec.Founder))
	})
}

func TestRecoveryResetsCounter(t *testing.T) {
	f := newVesting(t)
	for _, rate := range []decimal.Decimal{rateBelow, rateBelow, rateAtStart, rateBelow} {
		f.Clock.Advance(month)
		f.MustExec(testutil.NewAddress(), UpdateMarketCap{Launch: f.rec.ID, RateUSD: rate})
	}
	v := f.schedule()
	assert.Equal(t, 1, v.ConsecutiveBelow)
	assert.False(t, v.CommunityControl)
}

func TestClaimVestedTokens(t *testing.T) {
	f := newVesting(t)
	f.Clock.Advance(150 * 24 * time.Hour)

	_, err := f.Exec(f.rec.Founder, ClaimVestedTokens{Launch: f.rec.ID, RateUSD: decimal.NewFromInt(1100)})
	assert.Equal(t, domain.CodeMarketCapBelowStart, domain.CodeOf(err))

	_, err = f.Exec(f.rec.Founder, ClaimVestedTokens{Launch: f.rec.ID})
	assert.Equal(t, domain.KindLedger, domain.KindOf(err))
	assert.True(t, domain.IsRetryable(err))

	_, err = f.Exec(f.rec.PlatformOwner, ClaimVestedTokens{Launch: f.rec.ID, RateUSD: rateAtStart})
	assert.ErrorIs(t, err, domain.ErrNotFounder)

	f.MustExec(f.rec.Founder, ClaimVestedTokens{Launch: f.rec.ID, RateUSD: rateAtStart})
	half := domain.Bps(domain.SupplyUnits, 500) / 2
	assert.Equal(t, half, f.schedule().Claimed)

	_, err = f.Exec(f.rec.Founder, ClaimVestedTokens{Launch: f.rec.ID, RateUSD: rateAtStart})
	assert.ErrorIs(t, err, domain.ErrNothingToClaim)

	f.Clock.Advance(200 * 24 * time.Hour)
	f.MustExec(f.rec.Founder, ClaimVestedTokens{Launch: f.rec.ID, RateUSD: rateAtStart})
	v := f.schedule()
	assert.Equal(t, v.Total, v.Claimed)
	f.View(func(s *ledger.State, _ ledger.Env) {
		assert.Equal(t, v.Total, s.TokenBalance(f.rec.ID, f.rec.Founder))
	})
}

func TestReleasableStaysWithinBounds(t *testing.T) {
	v := domain.VestingSchedule{
		StartMarketCapUSD: startUSD,
		Start:             testutil.Genesis,
		Duration:          100 * time.Hour,
		Total:             1_000_000,
		Claimed:           300_000,
	}
	for h := -10; h <= 200; h += 5 {
		now := testutil.Genesis.Add(time.Duration(h) * time.Hour)
		r := Releasable(v, now, startUSD)
		assert.LessOrEqual(t, r, v.Total-v.Claimed, "hour %d", h)
	}
	assert.Equal(t, uint64(700_000), Releasable(v, testutil.Genesis.Add(200*time.Hour), startUSD))
	assert.Zero(t, Releasable(v, testutil.Genesis.Add(200*time.Hour), startUSD.Sub(decimal.NewFromInt(1))))

	v.CommunityControl = true
	assert.Zero(t, Releasable(v, testutil.Genesis.Add(200*time.Hour), startUSD))
}

func TestCustodyFlow(t *testing.T) {
	f := newVesting(t)

	_, err := f.Exec(f.rec.PlatformOwner, TransferReserveToCustody{Launch: f.rec.ID})
	assert.Equal(t, domain.CodeNoCommunityControl, domain.CodeOf(err))

	f.triggerControl()

	_, err = f.Exec(f.rec.Founder, TransferReserveToCustody{Launch: f.rec.ID})
	assert.ErrorIs(t, err, domain.ErrNotPlatformOwner)

	f.MustExec(f.rec.PlatformOwner, TransferReserveToCustody{Launch: f.rec.ID})
	_, err = f.Exec(f.rec.PlatformOwner, TransferReserveToCustody{Launch: f.rec.ID})
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)

	f.Clock.Advance(47 * time.Hour)
	_, err = f.Exec(f.rec.PlatformOwner, ReleaseCustody{Launch: f.rec.ID})
	assert.ErrorIs(t, err, domain.ErrCooldownActive)

	f.Clock.Advance(time.Hour)
	f.MustExec(f.rec.PlatformOwner, ReleaseCustody{Launch: f.rec.ID})
	f.View(func(s *ledger.State, _ ledger.Env) {
		assert.Equal(t, testutil.Native(20), s.NativeBalance(f.rec.PlatformOwner))
		assert.Zero(t, s.NativeBalance(domain.CustodyAddress(f.rec.ID)))
	})

	_, err = f.Exec(f.rec.Founder, ReleaseReserve{Launch: f.rec.ID})
	assert.ErrorIs(t, err, domain.ErrCommunityControl)
}

func TestBurnRemainingVestedOnce(t *testing.T) {
	f := newVesting(t)
	f.triggerControl()

	var before uint64
	f.View(func(s *ledger.State, _ ledger.Env) { before = s.CirculatingSupply(f.rec.ID) })
	total := f.schedule().Total

	f.MustExec(f.rec.PlatformOwner, BurnRemainingVested{Launch: f.rec.ID})
	f.View(func(s *ledger.State, _ ledger.Env) {
		assert.Equal(t, before-total, s.CirculatingSupply(f.rec.ID))
	})

	_, err := f.Exec(f.rec.PlatformOwner, BurnRemainingVested{Launch: f.rec.ID})
	assert.Equal(t, domain.CodeAlreadyBurned, domain.CodeOf(err))
}

func TestReleaseReserveAfterVesting(t *testing.T) {
	f := newVesting(t)

	_, err := f.Exec(f.rec.Founder, ReleaseReserve{Launch: f.rec.ID})
	assert.ErrorIs(t, err, domain.ErrWrongState)

	f.Clock.Advance(301 * 24 * time.Hour)
	f.MustExec(f.rec.Founder, ReleaseReserve{Launch: f.rec.ID})
	f.View(func(s *ledger.State, _ ledger.Env) {
		assert.Equal(t, testutil.Native(20), s.NativeBalance(f.rec.Founder))
	})

	_, err = f.Exec(f.rec.Founder, ReleaseReserve{Launch: f.rec.ID})
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)
}
