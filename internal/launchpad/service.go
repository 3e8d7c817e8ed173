// internal/launchpad/service.go
package launchpad

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/fees"
	"github.com/rovshanmuradov/launchpad/internal/graduation"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/oracle"
	"github.com/rovshanmuradov/launchpad/internal/raise"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
	"github.com/rovshanmuradov/launchpad/internal/vesting"
)

// Side is buy or sell from the trader's point of view.
type Side = events.TradeSide

const (
	SideBuy  = events.SideBuy
	SideSell = events.SideSell
)

// RateSource supplies native/USD rates. *oracle.Adapter implements it.
type RateSource interface {
	Rate(ctx context.Context) (decimal.Decimal, error)
	DisplayRate(ctx context.Context) decimal.Decimal
}

// ServiceConfig wires a Service. Bus and Metrics are optional.
type ServiceConfig struct {
	Client        *ledger.Client
	Oracle        RateSource
	Bus           *events.Bus
	Metrics       *metrics.Collector
	PlatformOwner domain.Address
	Logger        *zap.Logger
}

// Service is the single entry point for transports and the keeper. Every
// mutating method takes the acting identity explicitly.
type Service struct {
	client  *ledger.Client
	oracle  RateSource
	bus     *events.Bus
	metrics *metrics.Collector
	owner   domain.Address
	logger  *zap.Logger
}

// NewService creates the launchpad service.
func NewService(cfg *ServiceConfig) (*Service, error) {
	if cfg.Client == nil {
		return nil, errors.New("launchpad: ledger client is required")
	}
	if cfg.Oracle == nil {
		return nil, errors.New("launchpad: rate source is required")
	}
	if cfg.PlatformOwner.IsZero() {
		return nil, errors.New("launchpad: platform owner is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:  cfg.Client,
		oracle:  cfg.Oracle,
		bus:     cfg.Bus,
		metrics: cfg.Metrics,
		owner:   cfg.PlatformOwner,
		logger:  logger.Named("launchpad"),
	}, nil
}

// PlatformOwner is the identity that receives platform fees and custody.
func (s *Service) PlatformOwner() domain.Address {
	return s.owner
}

// execute submits op, waits for the receipt and publishes its events.
func (s *Service) execute(ctx context.Context, caller domain.Address, op ledger.Op) (ledger.Receipt, error) {
	start := time.Now()
	receipt, err := s.client.Execute(ctx, caller, op)
	took := time.Since(start)

	if s.metrics != nil {
		s.metrics.RecordOperation(op.Name(), took, err)
	}
	if err != nil {
		fields := []zap.Field{
			zap.String("op", op.Name()),
			zap.String("caller", caller.String()),
			zap.String("code", string(domain.CodeOf(err))),
			zap.Error(err),
		}
		if domain.IsRetryable(err) {
			s.logger.Warn("Operation failed", fields...)
		} else {
			s.logger.Debug("Operation rejected", fields...)
		}
		return receipt, fmt.Errorf("%s: %w", op.Name(), err)
	}

	s.logger.Info("Operation committed",
		zap.String("op", op.Name()),
		zap.String("caller", caller.String()),
		zap.Uint64("seq", receipt.Seq),
		zap.Int("events", len(receipt.Events)),
		zap.Duration("took", took))

	s.publish(receipt)
	return receipt, nil
}

func (s *Service) publish(r ledger.Receipt) {
	if s.metrics != nil {
		for _, e := range r.Events {
			s.metrics.RecordEvent(string(e.Type()))
		}
	}
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishAll(r.Events); err != nil {
		s.logger.Warn("Some events were not published",
			zap.String("op", r.Op),
			zap.Uint64("seq", r.Seq),
			zap.Error(err))
	}
}

// rate returns the rate mutating operations need, or a retryable error.
func (s *Service) rate(ctx context.Context) (decimal.Decimal, error) {
	r, err := s.oracle.Rate(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordOracleFailure()
		}
		return decimal.Zero, err
	}
	if s.metrics != nil {
		s.metrics.SetOracleRate(r)
	}
	return r, nil
}

// DisplayRate is the last known rate, zero when none is available.
func (s *Service) DisplayRate(ctx context.Context) decimal.Decimal {
	return s.oracle.DisplayRate(ctx)
}

// Deposit credits native funds from outside the system to addr.
func (s *Service) Deposit(ctx context.Context, to domain.Address, amount uint64) error {
	_, err := s.execute(ctx, to, ledger.DepositOp{To: to, Amount: amount})
	return err
}

// ---- Registry ----

// CreateLaunch registers a PROJECT_RAISE founded by caller.
func (s *Service) CreateLaunch(ctx context.Context, caller domain.Address, req CreateLaunchRequest) (LaunchInfo, error) {
	// Validation runs before any ledger call.
	if err := s.validate(func(p domain.Params) error { return req.Validate(p) }); err != nil {
		return LaunchInfo{}, err
	}
	r, err := s.execute(ctx, caller, CreateLaunch{Request: req, PlatformOwner: s.owner})
	if err != nil {
		return LaunchInfo{}, err
	}
	return s.created(r)
}

// CreateInstantLaunch registers an INSTANT_LAUNCH founded by caller.
func (s *Service) CreateInstantLaunch(ctx context.Context, caller domain.Address, req CreateInstantLaunchRequest) (LaunchInfo, error) {
	if err := s.validate(func(p domain.Params) error { return req.Validate(p) }); err != nil {
		return LaunchInfo{}, err
	}
	r, err := s.execute(ctx, caller, CreateInstantLaunch{Request: req, PlatformOwner: s.owner})
	if err != nil {
		return LaunchInfo{}, err
	}
	return s.created(r)
}

func (s *Service) validate(fn func(domain.Params) error) error {
	return s.client.View(func(st *ledger.State, _ ledger.Env) error {
		return fn(st.Params)
	})
}

func (s *Service) created(r ledger.Receipt) (LaunchInfo, error) {
	for _, e := range r.Events {
		if e.Type() == events.LaunchCreated {
			return s.Launch(e.LaunchID())
		}
	}
	return LaunchInfo{}, fmt.Errorf("%s committed without a %s event", r.Op, events.LaunchCreated)
}

// ---- Raise ----

func (s *Service) Contribute(ctx context.Context, caller domain.Address, launch domain.LaunchID, amount uint64) error {
	_, err := s.execute(ctx, caller, raise.Contribute{Launch: launch, Amount: amount})
	return err
}

func (s *Service) ClaimContributorTokens(ctx context.Context, caller domain.Address, launch domain.LaunchID) error {
	_, err := s.execute(ctx, caller, raise.ClaimContributorTokens{Launch: launch})
	return err
}

func (s *Service) ClaimRefund(ctx context.Context, caller domain.Address, launch domain.LaunchID) error {
	_, err := s.execute(ctx, caller, raise.ClaimRefund{Launch: launch})
	return err
}

func (s *Service) BurnFailedRaiseTokens(ctx context.Context, caller domain.Address, launch domain.LaunchID) error {
	_, err := s.execute(ctx, caller, raise.BurnFailedRaiseTokens{Launch: launch})
	return err
}

func (s *Service) ClaimFounderTokens(ctx context.Context, caller domain.Address, launch domain.LaunchID) error {
	_, err := s.execute(ctx, caller, raise.ClaimFounderTokens{Launch: launch})
	return err
}

func (s *Service) ClaimRaisedFunds(ctx context.Context, caller domain.Address, launch domain.LaunchID) error {
	_, err := s.execute(ctx, caller, raise.ClaimRaisedFunds{Launch: launch})
	return err
}

// FinalizeRaise persists the outcome of a raise whose deadline has passed.
func (s *Service) FinalizeRaise(ctx context.Context, caller domain.Address, launch domain.LaunchID) error {
	_, err := s.execute(ctx, caller, raise.Finalize{Launch: launch})
	return err
}

// ---- Trading ----

// Buy spends native funds on tokens: on the curve until migration, through
// the router after.
func (s *Service) Buy(ctx context.Context, caller domain.Address, launch domain.LaunchID, amount, minOut uint64) (ledger.Receipt, error) {
	curveOpen, err := s.onCurve(launch)
	if err != nil {
		return ledger.Receipt{}, err
	}
	var op ledger.Op = graduation.RouterBuy{Launch: launch, Amount: amount, MinOut: minOut}
	if !curveOpen {
		return s.execute(ctx, caller, op)
	}
	r, err := s.execute(ctx, caller, curve.Buy{Launch: launch, Amount: amount, MinOut: minOut})
	if err == nil {
		s.trackReserve(launch)
	}
	return r, err
}

// Sell sells tokens on whichever market serves the launch.
func (s *Service) Sell(ctx context.Context, caller domain.Address, launch domain.LaunchID, amount, minOut uint64) (ledger.Receipt, error) {
	curveOpen, err := s.onCurve(launch)
	if err != nil {
		return ledger.Receipt{}, err
	}
	var op ledger.Op = graduation.RouterSell{Launch: launch, Amount: amount, MinOut: minOut}
	if !curveOpen {
		return s.execute(ctx, caller, op)
	}
	r, err := s.execute(ctx, caller, curve.Sell{Launch: launch, Amount: amount, MinOut: minOut})
	if err == nil {
		s.trackReserve(launch)
	}
	return r, err
}

// trackReserve exports the pool's real reserve after a curve trade.
func (s *Service) trackReserve(launch domain.LaunchID) {
	if s.metrics == nil {
		return
	}
	_ = s.client.View(func(st *ledger.State, _ ledger.Env) error {
		if pool, err := curve.Load(st, launch); err == nil {
			s.metrics.UpdateCurveReserve(launch.String(), pool.RealReserve)
		}
		return nil
	})
}

func (s *Service) onCurve(launch domain.LaunchID) (bool, error) {
	var open bool
	err := s.client.View(func(st *ledger.State, _ ledger.Env) error {
		rec, err := st.Launch(launch)
		if err != nil {
			return err
		}
		open = onCurve(st, rec)
		return nil
	})
	return open, err
}

// ---- Graduation ----

// Graduate moves a launch's liquidity to the venue. A raise needs a live USD
// rate for the vesting snapshot; an instant launch falls back to the last
// known rate.
func (s *Service) Graduate(ctx context.Context, caller domain.Address, launch domain.LaunchID) error {
	var kind domain.LaunchKind
	if err := s.client.View(func(st *ledger.State, _ ledger.Env) error {
		rec, err := st.Launch(launch)
		if err != nil {
			return err
		}
		kind = rec.Type.Kind()
		return nil
	}); err != nil {
		return err
	}

	var rate decimal.Decimal
	switch kind {
	case domain.KindProjectRaise:
		r, err := s.rate(ctx)
		if err != nil {
			return fmt.Errorf("graduate: %w", err)
		}
		rate = r
	case domain.KindInstantLaunch:
		rate = s.oracle.DisplayRate(ctx)
	}
	_, err := s.execute(ctx, caller, graduation.Graduate{Launch: launch, RateUSD: rate})
	return err
}

func (s *Service) EnableTrading(ctx context.Context, caller domain.Address, launch domain.LaunchID) error {
	_, err := s.execute(ctx, caller, graduation.EnableTrading{Launch: launch})
	return err
}

// ---- Vesting ----

func (s *Service) ClaimVestedTokens(ctx context.Context, caller domain.Address, launch domain.LaunchID) error {
	rate, err := s.rate(ctx)
	if err != nil {
		return fmt.Errorf("claim vested tokens: %w", err)
	}
	_, err = s.execute(ctx, caller, vesting.ClaimVestedTokens{Launch: launch, RateUSD: rate})
	return err
}

// UpdateMarketCap records the monthly market-cap check of a vesting schedule.
func (s *Service) UpdateMarketCap(ctx context.Context, caller domain.Address, launch domain.LaunchID) error {
	rate, err := s.rate(ctx)
	if err != nil {
		return fmt.Errorf("update market cap: %w", err)
	}
	_, err = s.execute(ctx, caller, vesting.UpdateMarketCap{Launch: launch, RateUSD: rate})
	return err
}

func (s *Service) BurnRemainingVested(ctx context.Context, caller domain.Address, launch domain.LaunchID) error {
	_, err := s.execute(ctx, caller, vesting.BurnRemainingVested{Launch: launch})
	return err
}

func (s *Service) ReleaseReserve(ctx context.Context, caller domain.Address, launch domain.LaunchID) error {
	_, err := s.execute(ctx, caller, vesting.ReleaseReserve{Launch: launch})
	return err
}

func (s *Service) TransferReserveToCustody(ctx context.Context, caller domain.Address, launch domain.LaunchID) error {
	_, err := s.execute(ctx, caller, vesting.TransferReserveToCustody{Launch: launch})
	return err
}

func (s *Service) ReleaseCustody(ctx context.Context, caller domain.Address, launch domain.LaunchID) error {
	_, err := s.execute(ctx, caller, vesting.ReleaseCustody{Launch: launch})
	return err
}

// ---- Fees ----

func (s *Service) ClaimCreatorFees(ctx context.Context, caller domain.Address, launch domain.LaunchID) error {
	_, err := s.execute(ctx, caller, fees.ClaimCreatorFees{Launch: launch})
	return err
}

func (s *Service) ClaimPlatformFees(ctx context.Context, caller domain.Address, launch domain.LaunchID) error {
	_, err := s.execute(ctx, caller, fees.ClaimPlatformFees{Launch: launch})
	return err
}

func (s *Service) HarvestLPFees(ctx context.Context, caller domain.Address, launch domain.LaunchID) error {
	_, err := s.execute(ctx, caller, fees.HarvestLPFees{Launch: launch})
	return err
}

func (s *Service) ClaimLPFees(ctx context.Context, caller domain.Address, launch domain.LaunchID) error {
	_, err := s.execute(ctx, caller, fees.ClaimLPFees{Launch: launch})
	return err
}

// ---- Queries ----

// Params returns the platform parameters the ledger runs with.
func (s *Service) Params() domain.Params {
	var p domain.Params
	_ = s.client.View(func(st *ledger.State, _ ledger.Env) error {
		p = st.Params
		return nil
	})
	return p
}

func (s *Service) Launch(launch domain.LaunchID) (LaunchInfo, error) {
	var out LaunchInfo
	err := s.client.View(func(st *ledger.State, _ ledger.Env) error {
		var err error
		out, err = LaunchOf(st, launch)
		return err
	})
	return out, err
}

func (s *Service) Launches(f Filter) []LaunchInfo {
	var out []LaunchInfo
	_ = s.client.View(func(st *ledger.State, _ ledger.Env) error {
		out = ListLaunches(st, f)
		return nil
	})
	return out
}

func (s *Service) Raise(launch domain.LaunchID) (raise.Info, error) {
	var out raise.Info
	err := s.client.View(func(st *ledger.State, env ledger.Env) error {
		var err error
		out, err = raise.InfoOf(st, launch, env.Now)
		return err
	})
	return out, err
}

func (s *Service) Pool(launch domain.LaunchID) (PoolInfo, error) {
	var out PoolInfo
	err := s.client.View(func(st *ledger.State, env ledger.Env) error {
		var err error
		out, err = PoolOf(st, launch, env.Block)
		return err
	})
	return out, err
}

func (s *Service) Quote(launch domain.LaunchID, side Side, amount uint64) (Quote, error) {
	var out Quote
	err := s.client.View(func(st *ledger.State, env ledger.Env) error {
		var err error
		out, err = QuoteOf(st, launch, env.Block, side, amount)
		return err
	})
	return out, err
}

// Vesting reports the vesting schedule using the display rate, so it degrades
// instead of failing when the oracle is down.
func (s *Service) Vesting(ctx context.Context, launch domain.LaunchID) (vesting.Info, error) {
	rate := s.oracle.DisplayRate(ctx)
	var out vesting.Info
	err := s.client.View(func(st *ledger.State, env ledger.Env) error {
		var err error
		out, err = vesting.InfoOf(st, launch, env.Now, rate)
		return err
	})
	return out, err
}

func (s *Service) Fees(launch domain.LaunchID) ([]fees.Status, error) {
	var out []fees.Status
	err := s.client.View(func(st *ledger.State, env ledger.Env) error {
		var err error
		out, err = FeesOf(st, launch, env.Now)
		return err
	})
	return out, err
}

func (s *Service) Claimable(ctx context.Context, launch domain.LaunchID, addr domain.Address) (Claimable, error) {
	rate := s.oracle.DisplayRate(ctx)
	var out Claimable
	err := s.client.View(func(st *ledger.State, env ledger.Env) error {
		var err error
		out, err = ClaimableOf(st, launch, addr, env.Now, rate)
		return err
	})
	return out, err
}

// Balances returns the native and token balance of addr for a launch.
func (s *Service) Balances(launch domain.LaunchID, addr domain.Address) (native, tokens uint64) {
	_ = s.client.View(func(st *ledger.State, _ ledger.Env) error {
		native = st.NativeBalance(addr)
		tokens = st.TokenBalance(launch, addr)
		return nil
	})
	return native, tokens
}

// Duties lists launches with periodic work outstanding.
func (s *Service) Duties() Duties {
	var out Duties
	_ = s.client.View(func(st *ledger.State, env ledger.Env) error {
		out = DutiesAt(st, env.Now)
		return nil
	})
	return out
}

var _ RateSource = (*oracle.Adapter)(nil)
