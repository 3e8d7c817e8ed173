// internal/vesting/schedule.go
package vesting

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/venue"
)

var errNoRate = errors.New("no usd rate supplied")

// Start creates the vesting schedule of a graduated PROJECT_RAISE. The first
// market cap check is due one interval after start.
func Start(tx *ledger.Tx, rec domain.LaunchRecord, startUSD decimal.Decimal) (domain.VestingSchedule, error) {
	pr, err := rec.AsProjectRaise()
	if err != nil {
		return domain.VestingSchedule{}, err
	}
	if tx.Vesting.Has(rec.ID) {
		return domain.VestingSchedule{}, domain.Precondition(domain.CodeAlreadyGraduated, "vesting of %s already started", rec.Symbol)
	}
	v := domain.VestingSchedule{
		Launch:            rec.ID,
		StartMarketCapUSD: startUSD,
		Start:             tx.Now,
		Duration:          time.Duration(pr.VestingDays) * 24 * time.Hour,
		Total:             tx.Params.Allocation(domain.KindProjectRaise, rec.TotalSupply).Vested,
		LastCheck:         tx.Now,
	}
	tx.Vesting.Put(rec.ID, v)
	return v, nil
}

// Load returns the vesting schedule of a launch.
func Load(s *ledger.State, launch domain.LaunchID) (domain.VestingSchedule, error) {
	v, ok := s.Vesting.Get(launch)
	if !ok {
		return domain.VestingSchedule{}, domain.Precondition(domain.CodeNotGraduated, "launch %s has no vesting schedule", launch)
	}
	return v, nil
}

// Vested is the time-proportional part of the allocation at now, ignoring claims.
func Vested(v domain.VestingSchedule, now time.Time) uint64 {
	if !now.After(v.Start) {
		return 0
	}
	if v.Duration <= 0 || !now.Before(v.End()) {
		return v.Total
	}
	return domain.MulDiv(v.Total, uint64(now.Sub(v.Start)), uint64(v.Duration))
}

// Releasable is what the founder could claim at now given the current market
// cap in USD. It is always within [0, Total-Claimed] and zero under community
// control or while the market cap is below its starting value.
func Releasable(v domain.VestingSchedule, now time.Time, currentUSD decimal.Decimal) uint64 {
	if v.CommunityControl || v.VestedBurned {
		return 0
	}
	if currentUSD.LessThan(v.StartMarketCapUSD) {
		return 0
	}
	vested := Vested(v, now)
	if vested <= v.Claimed {
		return 0
	}
	return min(vested-v.Claimed, v.Total-v.Claimed)
}

// NextCheck is the earliest time the next market cap check may run.
func NextCheck(v domain.VestingSchedule, interval time.Duration) time.Time {
	return v.LastCheck.Add(interval)
}

// MarketCapUSD values the launch's circulating supply at the venue price.
func MarketCapUSD(s *ledger.State, launch domain.LaunchID, rate decimal.Decimal) (decimal.Decimal, error) {
	mc, err := venue.MarketCap(s, launch)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.NativeDec(mc).Mul(rate), nil
}

// RequireRate rejects operations that need a USD rate but got none.
func RequireRate(rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return domain.LedgerFailure(domain.CodeOracleUnavailable, errNoRate)
	}
	return nil
}

// Info is the read model of a vesting schedule.
type Info struct {
	Schedule            domain.VestingSchedule `json:"schedule"`
	Vested              uint64                 `json:"vested"`
	Releasable          uint64                 `json:"releasable"`
	CurrentMarketCapUSD decimal.Decimal        `json:"current_market_cap_usd"`
	NextCheck           time.Time              `json:"next_check"`
	Custody             *domain.CustodyRecord  `json:"custody,omitempty"`
}

// InfoOf builds the vesting read model. A missing rate degrades the market
// cap to zero, which reports nothing releasable.
func InfoOf(s *ledger.State, launch domain.LaunchID, now time.Time, rate decimal.Decimal) (Info, error) {
	v, err := Load(s, launch)
	if err != nil {
		return Info{}, err
	}
	current := decimal.Zero
	if rate.IsPositive() {
		if current, err = MarketCapUSD(s, launch, rate); err != nil {
			return Info{}, err
		}
	}
	info := Info{
		Schedule:            v,
		Vested:              Vested(v, now),
		Releasable:          Releasable(v, now, current),
		CurrentMarketCapUSD: current,
		NextCheck:           NextCheck(v, s.Params.VestingCheckInterval),
	}
	if c, ok := s.Custody.Get(launch); ok {
		info.Custody = &c
	}
	return info, nil
}
