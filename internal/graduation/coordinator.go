// =============================
// File: internal/graduation/coordinator.go
// =============================
package graduation

import (
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/raise"
	"github.com/rovshanmuradov/launchpad/internal/venue"
	"github.com/rovshanmuradov/launchpad/internal/vesting"
)

// Graduate переносит ликвидность запуска на внешнюю площадку. Выполняется
// ровно один раз; повторный вызов отклоняется без побочных эффектов.
// RateUSD нужен для снимка капитализации, с которого стартует вестинг
// PROJECT_RAISE.
type Graduate struct {
	Launch  domain.LaunchID
	RateUSD decimal.Decimal
}

func (Graduate) Name() string { return "graduate" }

// migration is what a launch commits to the venue.
type migration struct {
	tokens       uint64
	native       uint64
	unsoldBurned uint64
}

func (o Graduate) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	if rec.Graduation != domain.NotGraduated {
		return domain.Precondition(domain.CodeAlreadyGraduated, "%s graduated at %s", rec.Symbol, rec.GraduatedAt.UTC())
	}

	var m migration
	switch t := rec.Type.(type) {
	case domain.ProjectRaise:
		m, err = migrateRaise(tx, rec, o.RateUSD)
	case domain.InstantLaunch:
		m, err = migrateCurve(tx, rec)
	default:
		return domain.Validation(domain.CodeBadParams, "unknown launch type %T", t)
	}
	if err != nil {
		return err
	}

	escrow := rec.Escrow()
	lp, err := venue.CreatePool(tx, rec.ID, escrow, m.tokens, m.native)
	if err != nil {
		return err
	}
	if rec.BurnLP {
		if _, err := venue.BurnPosition(tx, rec.ID, escrow); err != nil {
			return err
		}
	}

	mc, err := venue.MarketCap(tx.State, rec.ID)
	if err != nil {
		return err
	}
	mcUSD := domain.NativeDec(mc).Mul(o.RateUSD)

	// Вестинг стартует от капитализации сразу после переноса ликвидности.
	if _, ok := rec.Type.(domain.ProjectRaise); ok {
		if _, err := vesting.Start(tx, rec, mcUSD); err != nil {
			return err
		}
	}

	rec.Graduation = domain.Graduated
	rec.GraduatedAt = tx.Now
	rec.GraduationMarketCap = mc
	tx.Launches.Put(rec.ID, rec)

	tx.Emit(&events.GraduatedEvent{
		BaseEvent:       tx.Base(events.Graduated, rec.ID),
		Kind:            rec.Type.Kind(),
		NativeLiquidity: m.native,
		TokenLiquidity:  m.tokens,
		LPMinted:        lp,
		LPBurned:        rec.BurnLP,
		UnsoldBurned:    m.unsoldBurned,
		MarketCap:       mc,
		MarketCapUSD:    mcUSD,
	})
	return nil
}

// migrateRaise проверяет успешность сбора и возвращает долю средств и токенов
// под ликвидность.
func migrateRaise(tx *ledger.Tx, rec domain.LaunchRecord, rate decimal.Decimal) (migration, error) {
	st, err := raise.Load(tx.State, rec.ID)
	if err != nil {
		return migration{}, err
	}
	if status := raise.DeriveStatus(st, tx.Now); status != domain.RaiseSucceeded {
		return migration{}, domain.Precondition(domain.CodeNotEligible, "raise of %s is %s", rec.Symbol, status)
	}
	if err := vesting.RequireRate(rate); err != nil {
		return migration{}, err
	}
	return migration{
		tokens: tx.Params.Allocation(domain.KindProjectRaise, rec.TotalSupply).Liquidity,
		native: st.LiquidityFunds,
	}, nil
}

// migrateCurve закрывает кривую: реальный резерв и зарезервированные токены
// уходят на площадку, непроданные токены кривой сжигаются.
func migrateCurve(tx *ledger.Tx, rec domain.LaunchRecord) (migration, error) {
	pool, err := curve.Load(tx.State, rec.ID)
	if err != nil {
		return migration{}, err
	}
	if !pool.Graduated {
		return migration{}, domain.Precondition(domain.CodeNotEligible,
			"%s holds %d of %d needed to graduate", rec.Symbol, pool.RealReserve, pool.GraduationThreshold)
	}

	m := migration{
		tokens:       pool.ReservedTokens,
		native:       pool.RealReserve,
		unsoldBurned: pool.TokenReserve,
	}
	if err := tx.BurnTokens(rec.ID, rec.Escrow(), m.unsoldBurned); err != nil {
		return migration{}, err
	}

	pool.Migrated = true
	pool.RealReserve = 0
	pool.TokenReserve = 0
	pool.ReservedTokens = 0
	tx.Pools.Put(rec.ID, pool)
	return m, nil
}

// EnableTrading opens router trading for a graduated PROJECT_RAISE. The
// founder or the platform owner may call it.
type EnableTrading struct {
	Launch domain.LaunchID
}

func (EnableTrading) Name() string { return "enable_trading" }

func (o EnableTrading) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	if _, err := rec.AsProjectRaise(); err != nil {
		return err
	}
	if !rec.IsFounder(tx.Caller) && !rec.IsPlatformOwner(tx.Caller) {
		return domain.Unauthorized(domain.CodeNotAuthorized, "%s may not enable trading of %s", tx.Caller, rec.Symbol)
	}
	switch rec.Graduation {
	case domain.NotGraduated:
		return domain.Precondition(domain.CodeNotGraduated, "%s has not graduated", rec.Symbol)
	case domain.TradingEnabled:
		return domain.Precondition(domain.CodeWrongState, "trading of %s is already enabled", rec.Symbol)
	case domain.Graduated:
	}

	rec.Graduation = domain.TradingEnabled
	tx.Launches.Put(rec.ID, rec)

	tx.Emit(&events.TradingEnabledEvent{
		BaseEvent: tx.Base(events.TradingEnabled, rec.ID),
		By:        tx.Caller,
	})
	return nil
}
