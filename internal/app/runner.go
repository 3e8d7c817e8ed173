// internal/app/runner.go
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launchpad/internal/api"
	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/keeper"
	"github.com/rovshanmuradov/launchpad/internal/launchpad"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/oracle"
	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/storage/postgres"
	"github.com/rovshanmuradov/launchpad/internal/utils/logger"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
)

// Runner owns every long-lived component of the launchpad process.
type Runner struct {
	cfg      *config.Config
	log      *logger.Logger
	shutdown *ShutdownHandler

	registry *prometheus.Registry
	metrics  *metrics.Collector
	ledger   *ledger.Memory
	bus      *events.Bus
	store    storage.EventStore
	service  *launchpad.Service
	server   *api.Server
	keeper   *keeper.Keeper
}

// NewRunner: принимает cfg и logger
func NewRunner(cfg *config.Config, log *logger.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		log:      log,
		shutdown: NewShutdownHandler(log.Logger, cfg.HTTP.ShutdownTimeout*2),
	}
}

// Service exposes the wired service once Initialize has run.
func (r *Runner) Service() *launchpad.Service {
	return r.service
}

// Initialize builds the component graph. On error everything built so far is
// closed again.
func (r *Runner) Initialize(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			_ = r.shutdown.Shutdown(context.WithoutCancel(ctx))
		}
	}()
	cfg := r.cfg

	r.registry = prometheus.NewRegistry()
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r.metrics = metrics.NewCollector(r.registry)

	r.ledger = ledger.NewMemory(r.log.WithComponent("ledger"), ledger.NewSystemClock(cfg.Ledger.BlockTime), cfg.Platform, cfg.Ledger)
	r.shutdown.AddFunc("ledger", func() error { r.ledger.Close(); return nil })

	rates, err := r.oracle()
	if err != nil {
		return err
	}

	r.store, err = r.openStore(ctx)
	if err != nil {
		return err
	}
	r.shutdown.Add("event_store", r.store)

	r.bus = events.NewBus(r.log.WithComponent("events"), cfg.Ledger.QueueSize)
	r.bus.Subscribe(events.AllEvents, storage.NewSink(r.store, storage.SinkConfig{}, r.log.WithComponent("storage")))
	hub := api.NewHub(api.HubConfig{}, r.metrics, r.log.WithComponent("api"))
	r.bus.Subscribe(events.AllEvents, hub)
	r.shutdown.AddFunc("event_bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		err := r.bus.Shutdown(ctx)
		st := r.bus.Stats()
		r.log.Info("Event bus stopped",
			zap.Uint64("published", st.Published),
			zap.Uint64("dropped", st.Dropped),
			zap.Uint64("failed", st.Failed))
		return err
	})

	r.service, err = launchpad.NewService(&launchpad.ServiceConfig{
		Client:        ledger.NewClient(r.ledger, r.log.Logger, cfg.Client),
		Oracle:        rates,
		Bus:           r.bus,
		Metrics:       r.metrics,
		PlatformOwner: cfg.Owner(),
		Logger:        r.log.WithComponent("launchpad"),
	})
	if err != nil {
		return err
	}

	r.server, err = api.NewServer(api.Config{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		Launchpad:       r.service,
		Store:           r.store,
		Hub:             hub,
		Metrics:         r.metrics,
		Gatherer:        r.registry,
		Logger:          r.log.Logger,
	})
	if err != nil {
		return err
	}

	if cfg.Keeper.Enabled {
		r.keeper, err = keeper.New(keeper.Config{
			Finalize: cfg.Keeper.Finalize,
			Graduate: cfg.Keeper.Graduate,
			Vesting:  cfg.Keeper.Vesting,
			Harvest:  cfg.Keeper.Harvest,
		}, r.service, r.metrics, r.log.Logger)
		if err != nil {
			return err
		}
	}

	r.log.Info("Launchpad initialized",
		zap.String("platform_owner", cfg.PlatformOwner),
		zap.Bool("keeper", r.keeper != nil),
		zap.Bool("postgres", cfg.Postgres.URL != ""))
	return nil
}

// Run serves until ctx is cancelled or a component fails, then shuts down.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.server.Run(gctx) })
	if r.keeper != nil {
		g.Go(func() error { return r.keeper.Run(gctx) })
	}
	runErr := g.Wait()

	r.log.Info("👋 Launchpad shutting down gracefully")
	shutdownErr := r.shutdown.Shutdown(context.WithoutCancel(ctx))
	if runErr != nil {
		return runErr
	}
	return shutdownErr
}

func (r *Runner) oracle() (*oracle.Adapter, error) {
	oc := r.cfg.Oracle
	logger := r.log.WithComponent("oracle")

	var sources []oracle.Source
	for _, src := range oc.Sources {
		sources = append(sources, oracle.NewHTTPSource(logger, src, nil))
	}
	if len(sources) == 0 {
		rate, err := decimal.NewFromString(oc.StaticRate)
		if err != nil {
			return nil, fmt.Errorf("oracle.static_rate: %w", err)
		}
		sources = append(sources, oracle.StaticSource{Rate: rate})
	}

	a := oracle.NewAdapter(logger, oc.TTL, sources...)
	a.OnRate(r.metrics.SetOracleRate)
	return a, nil
}

func (r *Runner) openStore(ctx context.Context) (storage.EventStore, error) {
	pc := r.cfg.Postgres
	if pc.URL == "" {
		r.log.Warn("postgres.url is empty, events are kept in memory only")
		return storage.NewMemoryStore(), nil
	}
	logger := r.log.WithComponent("postgres")
	pool, err := postgres.NewPool(ctx, postgres.Config{URL: pc.URL, MaxConns: pc.MaxConns}, logger)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, err
	}
	return postgres.NewEventStore(pool), nil
}
