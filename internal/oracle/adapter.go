// internal/oracle/adapter.go
package oracle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launchpad/internal/domain"
)

// ErrNoRate is returned when no source produced a usable rate.
var ErrNoRate = errors.New("no usd rate available")

// Observer receives every fresh rate. Metrics hook in here.
type Observer func(rate decimal.Decimal)

// Adapter converts native amounts to USD. It queries all sources
// concurrently, takes the median of the ones that answered and caches it.
type Adapter struct {
	sources  []Source
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
	observer Observer

	mu        sync.Mutex
	rate      decimal.Decimal
	fetchedAt time.Time
}

// NewAdapter creates an adapter. ttl <= 0 disables caching.
func NewAdapter(logger *zap.Logger, ttl time.Duration, sources ...Source) *Adapter {
	return &Adapter{
		sources: sources,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.Named("oracle"),
	}
}

// OnRate registers an observer for fresh rates.
func (a *Adapter) OnRate(o Observer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observer = o
}

// Rate returns native/USD. Mutating operations use it and fail when it is
// unavailable; the error is ledger-class so callers may retry later.
func (a *Adapter) Rate(ctx context.Context) (decimal.Decimal, error) {
	a.mu.Lock()
	if a.fresh() {
		r := a.rate
		a.mu.Unlock()
		return r, nil
	}
	a.mu.Unlock()

	rate, err := a.fetch(ctx)
	if err != nil {
		return decimal.Zero, domain.LedgerFailure(domain.CodeOracleUnavailable, err)
	}

	a.mu.Lock()
	a.rate = rate
	a.fetchedAt = a.now()
	obs := a.observer
	a.mu.Unlock()

	if obs != nil {
		obs(rate)
	}
	return rate, nil
}

// DisplayRate is Rate for read-only queries: on failure it degrades to the
// last known rate, or zero, and logs a warning.
func (a *Adapter) DisplayRate(ctx context.Context) decimal.Decimal {
	rate, err := a.Rate(ctx)
	if err == nil {
		return rate
	}
	a.mu.Lock()
	last := a.rate
	a.mu.Unlock()
	a.logger.Warn("Using stale usd rate", zap.String("rate", last.String()), zap.Error(err))
	return last
}

// NativeToUSD values an amount of native base units.
func (a *Adapter) NativeToUSD(ctx context.Context, amount uint64) (decimal.Decimal, error) {
	rate, err := a.Rate(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.NativeDec(amount).Mul(rate), nil
}

// USDToNative converts dollars to native base units, rounding down.
func (a *Adapter) USDToNative(ctx context.Context, usd decimal.Decimal) (uint64, error) {
	rate, err := a.Rate(ctx)
	if err != nil {
		return 0, err
	}
	units := usd.Div(rate).Shift(domain.NativeDecimals).Floor()
	if units.IsNegative() {
		return 0, domain.Validation(domain.CodeBadAmount, "negative usd amount %s", usd)
	}
	return units.BigInt().Uint64(), nil
}

// Invalidate drops the cached rate.
func (a *Adapter) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fetchedAt = time.Time{}
}

func (a *Adapter) fresh() bool {
	return a.ttl > 0 && !a.fetchedAt.IsZero() && a.now().Sub(a.fetchedAt) < a.ttl
}

func (a *Adapter) fetch(ctx context.Context) (decimal.Decimal, error) {
	if len(a.sources) == 0 {
		return decimal.Zero, ErrNoRate
	}

	rates := make([]decimal.Decimal, len(a.sources))
	errs := make([]error, len(a.sources))

	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			r, err := src.FetchRate(ctx)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", src.Name(), err)
				a.logger.Warn("Rate source failed", zap.String("source", src.Name()), zap.Error(err))
				return nil
			}
			rates[i] = r
			return nil
		})
	}
	_ = g.Wait()

	var ok []decimal.Decimal
	for i, r := range rates {
		if errs[i] == nil && r.IsPositive() {
			ok = append(ok, r)
		}
	}
	if len(ok) == 0 {
		return decimal.Zero, errors.Join(append([]error{ErrNoRate}, errs...)...)
	}
	return median(ok), nil
}

func median(rates []decimal.Decimal) decimal.Decimal {
	slices.SortFunc(rates, func(a, b decimal.Decimal) int { return a.Cmp(b) })
	mid := len(rates) / 2
	if len(rates)%2 == 1 {
		return rates[mid]
	}
	return rates[mid-1].Add(rates[mid]).Div(decimal.NewFromInt(2))
}
