// internal/launchpad/query.go
package launchpad

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/fees"
	"github.com/rovshanmuradov/launchpad/internal/graduation"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/raise"
	"github.com/rovshanmuradov/launchpad/internal/venue"
	"github.com/rovshanmuradov/launchpad/internal/vesting"
)

// RaiseTerms are the immutable terms of a PROJECT_RAISE.
type RaiseTerms struct {
	Target      uint64          `json:"target"`
	Max         uint64          `json:"max"`
	Deadline    time.Time       `json:"deadline"`
	VestingDays int             `json:"vesting_days"`
	Team        domain.TeamInfo `json:"team"`
}

// LaunchInfo is the read model of a launch record.
type LaunchInfo struct {
	ID                  domain.LaunchID   `json:"id"`
	Name                string            `json:"name"`
	Symbol              string            `json:"symbol"`
	Kind                domain.LaunchKind `json:"kind"`
	Metadata            domain.Metadata   `json:"metadata"`
	Founder             domain.Address    `json:"founder"`
	PlatformOwner       domain.Address    `json:"platform_owner"`
	Escrow              domain.Address    `json:"escrow"`
	TotalSupply         uint64            `json:"total_supply"`
	Circulating         uint64            `json:"circulating"`
	BurnLP              bool              `json:"burn_lp"`
	Graduation          string            `json:"graduation"`
	CreatedAt           time.Time         `json:"created_at"`
	CreatedBlock        uint64            `json:"created_block"`
	GraduatedAt         time.Time         `json:"graduated_at,omitempty"`
	GraduationMarketCap uint64            `json:"graduation_market_cap,omitempty"`
	Raise               *RaiseTerms       `json:"raise,omitempty"`
	InitialBuy          uint64            `json:"initial_buy,omitempty"`
}

func launchInfo(s *ledger.State, rec domain.LaunchRecord) LaunchInfo {
	info := LaunchInfo{
		ID:                  rec.ID,
		Name:                rec.Name,
		Symbol:              rec.Symbol,
		Kind:                rec.Type.Kind(),
		Metadata:            rec.Metadata,
		Founder:             rec.Founder,
		PlatformOwner:       rec.PlatformOwner,
		Escrow:              rec.Escrow(),
		TotalSupply:         rec.TotalSupply,
		Circulating:         s.CirculatingSupply(rec.ID),
		BurnLP:              rec.BurnLP,
		Graduation:          rec.Graduation.String(),
		CreatedAt:           rec.CreatedAt,
		CreatedBlock:        rec.CreatedBlock,
		GraduatedAt:         rec.GraduatedAt,
		GraduationMarketCap: rec.GraduationMarketCap,
	}
	switch t := rec.Type.(type) {
	case domain.ProjectRaise:
		info.Raise = &RaiseTerms{
			Target:      t.Target,
			Max:         t.Max,
			Deadline:    t.Deadline,
			VestingDays: t.VestingDays,
			Team:        t.Team,
		}
	case domain.InstantLaunch:
		info.InitialBuy = t.InitialBuy
	}
	return info
}

// LaunchOf returns the read model of one launch.
func LaunchOf(s *ledger.State, launch domain.LaunchID) (LaunchInfo, error) {
	rec, err := s.Launch(launch)
	if err != nil {
		return LaunchInfo{}, err
	}
	return launchInfo(s, rec), nil
}

// Filter narrows ListLaunches. Zero fields match everything.
type Filter struct {
	Kind      domain.LaunchKind
	Founder   domain.Address
	Graduated *bool
	Offset    int
	Limit     int
}

// DefaultListLimit caps a page when Filter.Limit is zero.
const DefaultListLimit = 50

func (f Filter) match(rec domain.LaunchRecord) bool {
	if f.Kind != "" && rec.Type.Kind() != f.Kind {
		return false
	}
	if !f.Founder.IsZero() && !rec.Founder.Equals(f.Founder) {
		return false
	}
	if f.Graduated != nil && (rec.Graduation != domain.NotGraduated) != *f.Graduated {
		return false
	}
	return true
}

// ListLaunches returns launches in creation order.
func ListLaunches(s *ledger.State, f Filter) []LaunchInfo {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	out := make([]LaunchInfo, 0, min(limit, s.Launches.Len()))
	skipped := 0
	s.Launches.Range(func(_ domain.LaunchID, rec domain.LaunchRecord) bool {
		if !f.match(rec) {
			return true
		}
		if skipped < f.Offset {
			skipped++
			return true
		}
		out = append(out, launchInfo(s, rec))
		return len(out) < limit
	})
	return out
}

// PoolInfo covers both markets: the curve before migration and the venue after.
type PoolInfo struct {
	Curve *curve.Info `json:"curve,omitempty"`
	Venue *VenueInfo  `json:"venue,omitempty"`
}

// VenueInfo is the read model of a venue pool.
type VenueInfo struct {
	Pool      domain.VenuePool `json:"pool"`
	SpotPrice decimal.Decimal  `json:"spot_price"`
	MarketCap uint64           `json:"market_cap"`
}

// PoolOf returns the market state of a launch. A raise has no pool until it
// graduates.
func PoolOf(s *ledger.State, launch domain.LaunchID, block uint64) (PoolInfo, error) {
	rec, err := s.Launch(launch)
	if err != nil {
		return PoolInfo{}, err
	}
	var out PoolInfo
	if _, ok := rec.Type.(domain.InstantLaunch); ok {
		ci, err := curve.InfoOf(s, launch, block)
		if err != nil {
			return PoolInfo{}, err
		}
		out.Curve = &ci
	}
	if vp, err := venue.Load(s, launch); err == nil {
		mc, err := venue.MarketCap(s, launch)
		if err != nil {
			return PoolInfo{}, err
		}
		out.Venue = &VenueInfo{Pool: vp, SpotPrice: venue.SpotPrice(vp), MarketCap: mc}
	}
	if out.Curve == nil && out.Venue == nil {
		return PoolInfo{}, domain.Precondition(domain.CodeNotGraduated, "%s has no market yet", rec.Symbol)
	}
	return out, nil
}

// FeesOf reports every fee accrual of a launch.
func FeesOf(s *ledger.State, launch domain.LaunchID, now time.Time) ([]fees.Status, error) {
	rec, err := s.Launch(launch)
	if err != nil {
		return nil, err
	}
	return []fees.Status{
		fees.StatusOf(s, now, rec, domain.RoleCreator),
		fees.StatusOf(s, now, rec, domain.RolePlatform),
		fees.StatusOf(s, now, rec, domain.RoleLiquidityProvider),
	}, nil
}

// Claimable is everything one address can take out of a launch right now.
type Claimable struct {
	Address domain.Address   `json:"address"`
	Raise   *raise.Claimable `json:"raise,omitempty"`
	Fees    []fees.Status    `json:"fees,omitempty"`
	// Vested is the founder's releasable vested allocation.
	Vested uint64 `json:"vested"`
}

// ClaimableOf collects the raise, fee and vesting payouts open to addr. rate
// may be zero; vesting then reports nothing releasable.
func ClaimableOf(s *ledger.State, launch domain.LaunchID, addr domain.Address, now time.Time, rate decimal.Decimal) (Claimable, error) {
	rec, err := s.Launch(launch)
	if err != nil {
		return Claimable{}, err
	}
	out := Claimable{Address: addr}

	switch rec.Type.(type) {
	case domain.ProjectRaise:
		rc, err := raise.ClaimableOf(s, launch, addr, now)
		if err != nil {
			return Claimable{}, err
		}
		out.Raise = &rc
		if rec.IsFounder(addr) {
			if vi, err := vesting.InfoOf(s, launch, now, rate); err == nil {
				out.Vested = vi.Releasable
			}
		}
	case domain.InstantLaunch:
	}

	if rec.IsFounder(addr) {
		out.Fees = append(out.Fees,
			fees.StatusOf(s, now, rec, domain.RoleCreator),
			fees.StatusOf(s, now, rec, domain.RoleLiquidityProvider))
	}
	if rec.IsPlatformOwner(addr) {
		out.Fees = append(out.Fees, fees.StatusOf(s, now, rec, domain.RolePlatform))
	}
	return out, nil
}

// Quote prices a trade on whichever market currently serves the launch.
type Quote struct {
	Market string `json:"market"`
	Quote  any    `json:"quote"`
}

// QuoteOf routes a quote to the curve until migration and to the venue after.
func QuoteOf(s *ledger.State, launch domain.LaunchID, block uint64, side Side, amount uint64) (Quote, error) {
	if amount == 0 {
		return Quote{}, domain.Validation(domain.CodeBadAmount, "quote amount must be positive")
	}
	rec, err := s.Launch(launch)
	if err != nil {
		return Quote{}, err
	}
	if onCurve(s, rec) {
		q, err := curve.QuoteAt(s, launch, block, side, amount)
		if err != nil {
			return Quote{}, err
		}
		return Quote{Market: curve.MarketName, Quote: q}, nil
	}

	vp, err := venue.Load(s, launch)
	if err != nil {
		return Quote{}, err
	}
	switch side {
	case SideBuy:
		return Quote{Market: graduation.MarketName, Quote: venue.QuoteBuy(vp, amount)}, nil
	case SideSell:
		return Quote{Market: graduation.MarketName, Quote: venue.QuoteSell(vp, amount)}, nil
	default:
		return Quote{}, domain.Validation(domain.CodeBadParams, "unknown side %q", side)
	}
}

// onCurve reports whether trades of rec still go to its bonding curve.
func onCurve(s *ledger.State, rec domain.LaunchRecord) bool {
	switch rec.Type.(type) {
	case domain.InstantLaunch:
		pool, err := curve.Load(s, rec.ID)
		return err == nil && !pool.Migrated
	case domain.ProjectRaise:
		return false
	default:
		return false
	}
}
