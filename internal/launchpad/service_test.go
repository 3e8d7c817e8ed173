package launchpad

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/oracle"
	"github.com/rovshanmuradov/launchpad/internal/testutil"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
)

type recorder struct {
	mu  sync.Mutex
	evs []events.Event
}

func (r *recorder) Handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, e)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.evs))
	for _, e := range r.evs {
		out = append(out, e.Type())
	}
	return out
}

type harness struct {
	t     *testing.T
	svc   *Service
	clock *ledger.ManualClock
	owner domain.Address
	seen  *recorder
}

func newHarness(t *testing.T, rates RateSource) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	clock := ledger.NewManualClock(testutil.Genesis)
	mem := ledger.NewMemory(logger, clock, domain.DefaultParams(), ledger.Config{QueueSize: 64})
	t.Cleanup(mem.Close)

	bus := events.NewBus(logger, 256)
	t.Cleanup(func() { _ = bus.Shutdown(context.Background()) })
	seen := &recorder{}
	bus.Subscribe(events.AllEvents, seen)

	if rates == nil {
		rates = oracle.NewAdapter(logger, time.Minute, oracle.StaticSource{Rate: decimal.NewFromInt(150)})
	}
	collector := metrics.NewCollector(prometheus.NewRegistry())
	owner := testutil.NewAddress()
	svc, err := NewService(&ServiceConfig{
		Client:        ledger.NewClient(mem, logger, ledger.ClientConfig{}),
		Oracle:        rates,
		Bus:           bus,
		Metrics:       collector,
		PlatformOwner: owner,
		Logger:        logger,
	})
	require.NoError(t, err)
	return &harness{t: t, svc: svc, clock: clock, owner: owner, seen: seen}
}

// countKnown counts how many of want appear in got at least once.
func countKnown(got, want []events.EventType) int {
	n := 0
	for _, w := range want {
		for _, g := range got {
			if g == w {
				n++
				break
			}
		}
	}
	return n
}

func (h *harness) funded(amount uint64) domain.Address {
	h.t.Helper()
	addr := testutil.NewAddress()
	require.NoError(h.t, h.svc.Deposit(context.Background(), addr, amount))
	return addr
}

func raiseRequest(target, max uint64) CreateLaunchRequest {
	return CreateLaunchRequest{
		Name:   "Project Token",
		Symbol: "prj",
		Target: target,
		Max:    max,
		Team:   domain.TeamInfo{TeamName: "core", Doxxed: true},
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(&ServiceConfig{})
	assert.Error(t, err)
}

func TestCreateLaunchValidation(t *testing.T) {
	h := newHarness(t, nil)
	founder := testutil.NewAddress()
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateLaunchRequest
		code domain.Code
	}{
		{"Empty name", CreateLaunchRequest{Symbol: "ABC", Target: 100 * domain.NativeUnit}, domain.CodeBadName},
		{"Symbol too short", CreateLaunchRequest{Name: "A", Symbol: "A", Target: 100 * domain.NativeUnit}, domain.CodeBadSymbol},
		{"Symbol with punctuation", CreateLaunchRequest{Name: "A", Symbol: "AB-C", Target: 100 * domain.NativeUnit}, domain.CodeBadSymbol},
		{"Wrong supply", CreateLaunchRequest{Name: "A", Symbol: "ABC", Supply: 42, Target: 100 * domain.NativeUnit}, domain.CodeBadSupply},
		{"Target below minimum", CreateLaunchRequest{Name: "A", Symbol: "ABC", Target: domain.NativeUnit}, domain.CodeBadTarget},
		{"Max below target", CreateLaunchRequest{Name: "A", Symbol: "ABC", Target: 100 * domain.NativeUnit, Max: 50 * domain.NativeUnit}, domain.CodeBadTarget},
		{"Vesting too long", CreateLaunchRequest{Name: "A", Symbol: "ABC", Target: 100 * domain.NativeUnit, VestingDays: 5000}, domain.CodeBadVesting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.CreateLaunch(ctx, founder, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, domain.CodeOf(err))
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}
	assert.Empty(t, h.svc.Launches(Filter{}))
}

func TestRequestDefaults(t *testing.T) {
	req := CreateLaunchRequest{Name: "  Token ", Symbol: " tkn ", Target: 20 * domain.NativeUnit}.withDefaults()
	assert.Equal(t, "Token", req.Name)
	assert.Equal(t, "TKN", req.Symbol)
	assert.Equal(t, domain.SupplyUnits, req.Supply)
	assert.Equal(t, req.Target, req.Max)
	assert.Equal(t, DefaultVestingDays, req.VestingDays)
}

func TestProjectRaiseLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	founder := testutil.NewAddress()

	info, err := h.svc.CreateLaunch(ctx, founder, raiseRequest(100*domain.NativeUnit, 150*domain.NativeUnit))
	require.NoError(t, err)
	assert.Equal(t, "PRJ", info.Symbol)
	assert.Equal(t, domain.KindProjectRaise, info.Kind)
	require.NotNil(t, info.Raise)
	assert.Equal(t, testutil.Genesis.Add(72*time.Hour), info.Raise.Deadline)
	assert.Equal(t, domain.SupplyUnits, info.Circulating)
	id := info.ID

	alice := h.funded(60 * domain.NativeUnit)
	bob := h.funded(50 * domain.NativeUnit)
	require.NoError(t, h.svc.Contribute(ctx, alice, id, 60*domain.NativeUnit))
	require.NoError(t, h.svc.Contribute(ctx, bob, id, 50*domain.NativeUnit))

	ri, err := h.svc.Raise(id)
	require.NoError(t, err)
	assert.Equal(t, domain.RaiseSucceeded, ri.Status)

	err = h.svc.ClaimRefund(ctx, alice, id)
	assert.ErrorIs(t, err, domain.ErrWrongState)
	assert.Equal(t, domain.KindPrecondition, domain.KindOf(err))

	duties := h.svc.Duties()
	assert.Contains(t, duties.Graduate, id)
	require.NoError(t, h.svc.Graduate(ctx, h.owner, id))
	assert.ErrorIs(t, h.svc.Graduate(ctx, h.owner, id), domain.ErrAlreadyGraduated)

	vi, err := h.svc.Vesting(ctx, id)
	require.NoError(t, err)
	assert.True(t, vi.Schedule.StartMarketCapUSD.IsPositive())

	claim, err := h.svc.Claimable(ctx, id, alice)
	require.NoError(t, err)
	require.NotNil(t, claim.Raise)
	assert.Positive(t, claim.Raise.Tokens)
	assert.Empty(t, claim.Fees)

	require.NoError(t, h.svc.ClaimContributorTokens(ctx, alice, id))
	_, tokens := h.svc.Balances(id, alice)
	assert.Equal(t, claim.Raise.Tokens, tokens)
	assert.ErrorIs(t, h.svc.ClaimContributorTokens(ctx, alice, id), domain.ErrAlreadyClaimed)

	assert.ErrorIs(t, h.svc.ClaimFounderTokens(ctx, alice, id), domain.ErrNotFounder)
	require.NoError(t, h.svc.ClaimFounderTokens(ctx, founder, id))
	require.NoError(t, h.svc.ClaimRaisedFunds(ctx, founder, id))
	native, _ := h.svc.Balances(id, founder)
	assert.Equal(t, domain.Bps(110*domain.NativeUnit, 3000), native)

	// Router trading stays closed until the founder opens it.
	trader := h.funded(2 * domain.NativeUnit)
	_, err = h.svc.Buy(ctx, trader, id, domain.NativeUnit, 0)
	assert.Equal(t, domain.CodeTradingDisabled, domain.CodeOf(err))
	require.NoError(t, h.svc.EnableTrading(ctx, founder, id))
	r, err := h.svc.Buy(ctx, trader, id, domain.NativeUnit, 1)
	require.NoError(t, err)
	assert.Equal(t, "router_buy", r.Op)

	want := []events.EventType{
		events.LaunchCreated,
		events.Contributed,
		events.RaiseCompleted,
		events.Graduated,
		events.ContributorTokensClaimed,
		events.FounderTokensClaimed,
		events.RaisedFundsClaimed,
		events.TradingEnabled,
		events.TradeExecuted,
	}
	require.Eventually(t, func() bool {
		return countKnown(h.seen.types(), want) == len(want)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInstantLaunchRoutesByMarket(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	founder := h.funded(5 * domain.NativeUnit)

	_, err := h.svc.CreateInstantLaunch(ctx, founder, CreateInstantLaunchRequest{
		Name: "Meme", Symbol: "MEME", InitialBuy: 100 * domain.NativeUnit,
	})
	assert.Equal(t, domain.CodeBadAmount, domain.CodeOf(err))

	info, err := h.svc.CreateInstantLaunch(ctx, founder, CreateInstantLaunchRequest{
		Name: "Meme", Symbol: "MEME", InitialBuy: domain.NativeUnit,
	})
	require.NoError(t, err)
	id := info.ID
	_, held := h.svc.Balances(id, founder)
	assert.Positive(t, held)
	assert.Equal(t, uint64(domain.NativeUnit), info.InitialBuy)

	q, err := h.svc.Quote(id, SideBuy, domain.NativeUnit)
	require.NoError(t, err)
	assert.Equal(t, "curve", q.Market)

	whale := h.funded(100 * domain.NativeUnit)
	r, err := h.svc.Buy(ctx, whale, id, 95*domain.NativeUnit, 0)
	require.NoError(t, err)
	assert.Equal(t, "curve_buy", r.Op)
	assert.Contains(t, h.svc.Duties().Graduate, id)

	require.NoError(t, h.svc.Graduate(ctx, h.owner, id))
	assert.Empty(t, h.svc.Duties().Graduate)

	q, err = h.svc.Quote(id, SideSell, domain.TokenUnit)
	require.NoError(t, err)
	assert.Equal(t, "venue", q.Market)

	pool, err := h.svc.Pool(id)
	require.NoError(t, err)
	require.NotNil(t, pool.Curve)
	require.NotNil(t, pool.Venue)
	assert.True(t, pool.Curve.Pool.Migrated)

	_, whaleTokens := h.svc.Balances(id, whale)
	r, err = h.svc.Sell(ctx, whale, id, whaleTokens/10, 0)
	require.NoError(t, err)
	assert.Equal(t, "router_sell", r.Op)
}

type mockRates struct {
	mock.Mock
}

func (m *mockRates) Rate(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockRates) DisplayRate(ctx context.Context) decimal.Decimal {
	return m.Called(ctx).Get(0).(decimal.Decimal)
}

func TestRaiseGraduationNeedsRate(t *testing.T) {
	rates := &mockRates{}
	down := domain.LedgerFailure(domain.CodeOracleUnavailable, errors.New("all sources down"))
	rates.On("Rate", mock.Anything).Return(decimal.Zero, down)
	rates.On("DisplayRate", mock.Anything).Return(decimal.Zero).Maybe()

	h := newHarness(t, rates)
	ctx := context.Background()
	founder := testutil.NewAddress()
	info, err := h.svc.CreateLaunch(ctx, founder, raiseRequest(10*domain.NativeUnit, 0))
	require.NoError(t, err)
	require.NoError(t, h.svc.Contribute(ctx, h.funded(10*domain.NativeUnit), info.ID, 10*domain.NativeUnit))

	err = h.svc.Graduate(ctx, h.owner, info.ID)
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))

	after, err := h.svc.Launch(info.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NotGraduated.String(), after.Graduation)
	rates.AssertExpectations(t)
}

func TestDutiesFinalizeExpiredRaise(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	info, err := h.svc.CreateLaunch(ctx, testutil.NewAddress(), raiseRequest(100*domain.NativeUnit, 0))
	require.NoError(t, err)

	assert.Empty(t, h.svc.Duties().Finalize)
	err = h.svc.FinalizeRaise(ctx, h.owner, info.ID)
	assert.Equal(t, domain.CodeDeadlineNotPassed, domain.CodeOf(err))

	h.clock.Advance(73 * time.Hour)
	assert.Equal(t, []domain.LaunchID{info.ID}, h.svc.Duties().Finalize)
	require.NoError(t, h.svc.FinalizeRaise(ctx, h.owner, info.ID))
	assert.Empty(t, h.svc.Duties().Finalize)

	ri, err := h.svc.Raise(info.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RaiseFailed, ri.Raise.Status)
}

func TestListLaunchesFilter(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	alice, bob := testutil.NewAddress(), testutil.NewAddress()

	_, err := h.svc.CreateLaunch(ctx, alice, raiseRequest(20*domain.NativeUnit, 0))
	require.NoError(t, err)
	// Same founder and symbol still yields a distinct launch.
	_, err = h.svc.CreateLaunch(ctx, alice, raiseRequest(20*domain.NativeUnit, 0))
	require.NoError(t, err)
	_, err = h.svc.CreateInstantLaunch(ctx, bob, CreateInstantLaunchRequest{Name: "Bob", Symbol: "BOB"})
	require.NoError(t, err)

	assert.Len(t, h.svc.Launches(Filter{}), 3)
	assert.Len(t, h.svc.Launches(Filter{Kind: domain.KindInstantLaunch}), 1)
	assert.Len(t, h.svc.Launches(Filter{Founder: alice}), 2)
	assert.Len(t, h.svc.Launches(Filter{Offset: 1, Limit: 1}), 1)

	graduated := true
	assert.Empty(t, h.svc.Launches(Filter{Graduated: &graduated}))
}
