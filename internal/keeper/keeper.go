// internal/keeper/keeper.go
package keeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/launchpad"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
)

// Job names, also used as metric labels.
const (
	JobFinalize       = "finalize"
	JobGraduate       = "graduate"
	JobVestingCheck   = "vesting_check"
	JobCustody        = "custody"
	JobCustodyRelease = "custody_release"
	JobHarvest        = "harvest"
)

// Launchpad is what the keeper drives. *launchpad.Service implements it.
type Launchpad interface {
	PlatformOwner() domain.Address
	Duties() launchpad.Duties
	FinalizeRaise(ctx context.Context, caller domain.Address, launch domain.LaunchID) error
	Graduate(ctx context.Context, caller domain.Address, launch domain.LaunchID) error
	UpdateMarketCap(ctx context.Context, caller domain.Address, launch domain.LaunchID) error
	TransferReserveToCustody(ctx context.Context, caller domain.Address, launch domain.LaunchID) error
	ReleaseCustody(ctx context.Context, caller domain.Address, launch domain.LaunchID) error
	HarvestLPFees(ctx context.Context, caller domain.Address, launch domain.LaunchID) error
}

var _ Launchpad = (*launchpad.Service)(nil)

// Config holds cron specs. An empty spec disables that schedule.
type Config struct {
	Finalize string
	Graduate string
	// Vesting drives monthly checks and custody transfers and releases.
	Vesting string
	Harvest string
	// JobTimeout bounds one run of one schedule.
	JobTimeout time.Duration
}

// Keeper submits the periodic operations nobody else is obliged to send.
type Keeper struct {
	lp      Launchpad
	cron    *cron.Cron
	metrics *metrics.Collector
	logger  *zap.Logger
	timeout time.Duration

	mu  sync.RWMutex
	ctx context.Context
}

// New registers the configured schedules. metrics may be nil.
func New(cfg Config, lp Launchpad, m *metrics.Collector, logger *zap.Logger) (*Keeper, error) {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	k := &Keeper{
		lp:      lp,
		metrics: m,
		logger:  logger.Named("keeper"),
		timeout: cfg.JobTimeout,
		ctx:     context.Background(),
	}
	cl := cronLogger{s: k.logger.Sugar()}
	k.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	schedules := []struct {
		name string
		spec string
		run  func(context.Context) int
	}{
		{JobFinalize, cfg.Finalize, k.RunFinalize},
		{JobGraduate, cfg.Graduate, k.RunGraduate},
		{"vesting", cfg.Vesting, k.RunVesting},
		{JobHarvest, cfg.Harvest, k.RunHarvest},
	}
	for _, s := range schedules {
		if s.spec == "" {
			k.logger.Info("Schedule disabled", zap.String("job", s.name))
			continue
		}
		run := s.run
		name := s.name
		if _, err := k.cron.AddFunc(s.spec, func() { k.tick(name, run) }); err != nil {
			return nil, fmt.Errorf("keeper %s schedule %q: %w", s.name, s.spec, err)
		}
	}
	return k, nil
}

// Run starts the scheduler and blocks until ctx is done and running jobs finish.
func (k *Keeper) Run(ctx context.Context) error {
	k.mu.Lock()
	k.ctx = ctx
	k.mu.Unlock()

	k.cron.Start()
	k.logger.Info("Keeper started", zap.Int("schedules", len(k.cron.Entries())))
	<-ctx.Done()

	<-k.cron.Stop().Done()
	k.logger.Info("Keeper stopped")
	return nil
}

func (k *Keeper) tick(name string, run func(context.Context) int) {
	k.mu.RLock()
	parent := k.ctx
	k.mu.RUnlock()
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, k.timeout)
	defer cancel()

	start := time.Now()
	n := run(ctx)
	if n > 0 {
		k.logger.Info("Keeper run finished",
			zap.String("schedule", name),
			zap.Int("submitted", n),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// RunFinalize settles raises whose deadline passed without reaching target.
func (k *Keeper) RunFinalize(ctx context.Context) int {
	return k.each(ctx, JobFinalize, k.lp.Duties().Finalize, k.lp.FinalizeRaise)
}

// RunGraduate migrates succeeded raises and curves over threshold.
func (k *Keeper) RunGraduate(ctx context.Context) int {
	return k.each(ctx, JobGraduate, k.lp.Duties().Graduate, k.lp.Graduate)
}

// RunVesting sends due market-cap checks, moves reserves of schedules under
// community control into custody and releases expired custody.
func (k *Keeper) RunVesting(ctx context.Context) int {
	d := k.lp.Duties()
	n := k.each(ctx, JobVestingCheck, d.VestingChecks, k.lp.UpdateMarketCap)
	n += k.each(ctx, JobCustody, d.Custody, k.lp.TransferReserveToCustody)
	n += k.each(ctx, JobCustodyRelease, d.CustodyRelease, k.lp.ReleaseCustody)
	return n
}

// RunHarvest collects pending venue fees into the LP fee ledger.
func (k *Keeper) RunHarvest(ctx context.Context) int {
	return k.each(ctx, JobHarvest, k.lp.Duties().Harvest, k.lp.HarvestLPFees)
}

// each submits op for every launch in order and returns how many committed.
func (k *Keeper) each(
	ctx context.Context,
	job string,
	launches []domain.LaunchID,
	op func(context.Context, domain.Address, domain.LaunchID) error,
) int {
	caller := k.lp.PlatformOwner()
	committed := 0
	for _, id := range launches {
		if ctx.Err() != nil {
			break
		}
		err := op(ctx, caller, id)
		if k.metrics != nil {
			k.metrics.RecordKeeperRun(job, err)
		}
		switch {
		case err == nil:
			committed++
		case domain.KindOf(err) == domain.KindPrecondition:
			// состояние изменилось между сканом и коммитом
			k.logger.Debug("Keeper op rejected",
				zap.String("job", job),
				zap.String("launch", id.String()),
				zap.String("code", string(domain.CodeOf(err))))
		default:
			k.logger.Warn("Keeper op failed",
				zap.String("job", job),
				zap.String("launch", id.String()),
				zap.Bool("retryable", domain.IsRetryable(err)),
				zap.Error(err))
		}
	}
	return committed
}

// cronLogger реализует cron.Logger поверх zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
