// internal/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/fees"
	"github.com/rovshanmuradov/launchpad/internal/launchpad"
	"github.com/rovshanmuradov/launchpad/internal/raise"
	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
	"github.com/rovshanmuradov/launchpad/internal/vesting"
)

// Launchpad is the read side the API serves. *launchpad.Service implements it.
type Launchpad interface {
	Params() domain.Params
	Launches(f launchpad.Filter) []launchpad.LaunchInfo
	Launch(launch domain.LaunchID) (launchpad.LaunchInfo, error)
	Raise(launch domain.LaunchID) (raise.Info, error)
	Pool(launch domain.LaunchID) (launchpad.PoolInfo, error)
	Quote(launch domain.LaunchID, side launchpad.Side, amount uint64) (launchpad.Quote, error)
	Vesting(ctx context.Context, launch domain.LaunchID) (vesting.Info, error)
	Fees(launch domain.LaunchID) ([]fees.Status, error)
	Claimable(ctx context.Context, launch domain.LaunchID, addr domain.Address) (launchpad.Claimable, error)
	Balances(launch domain.LaunchID, addr domain.Address) (native, tokens uint64)
	DisplayRate(ctx context.Context) decimal.Decimal
}

var _ Launchpad = (*launchpad.Service)(nil)

// Config wires the server.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	Launchpad Launchpad
	Store     storage.EventStore
	Hub       *Hub
	Metrics   *metrics.Collector
	// Gatherer backs /metrics; nil uses prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// Server is the read-only JSON API plus the event stream.
type Server struct {
	cfg    Config
	router *mux.Router
	logger *zap.Logger
}

// NewServer builds the router.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Launchpad == nil {
		return nil, errors.New("api: launchpad is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("api: event store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{cfg: cfg, logger: cfg.Logger.Named("api")}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(recoverPanics(s.logger), observe(s.logger, s.cfg.Metrics))

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/params", s.handleParams).Methods(http.MethodGet)
	r.HandleFunc("/oracle/rate", s.handleRate).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	if s.cfg.Hub != nil {
		r.Handle("/ws", s.cfg.Hub).Methods(http.MethodGet)
	}

	r.HandleFunc("/launches", s.handleListLaunches).Methods(http.MethodGet)
	r.HandleFunc("/launches/{id}", s.handleLaunch).Methods(http.MethodGet)
	l := r.PathPrefix("/launches/{id}").Subrouter()
	l.HandleFunc("/raise", s.handleRaise).Methods(http.MethodGet)
	l.HandleFunc("/pool", s.handlePool).Methods(http.MethodGet)
	l.HandleFunc("/quote/{side}", s.handleQuote).Methods(http.MethodGet)
	l.HandleFunc("/vesting", s.handleVesting).Methods(http.MethodGet)
	l.HandleFunc("/fees", s.handleFees).Methods(http.MethodGet)
	l.HandleFunc("/claimable/{address}", s.handleClaimable).Methods(http.MethodGet)
	l.HandleFunc("/balances/{address}", s.handleBalances).Methods(http.MethodGet)
	l.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorBody{Error: "not found"})
	})
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	if s.cfg.Hub != nil {
		s.cfg.Hub.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown api: %w", err)
	}
	s.logger.Info("API stopped")
	return nil
}
