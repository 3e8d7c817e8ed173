// internal/domain/params.go
package domain

import (
	"errors"
	"fmt"
	"time"
)

// FeeTier applies Bps from FromBlock blocks after launch until the next tier.
type FeeTier struct {
	FromBlock uint64 `mapstructure:"from_block" json:"from_block"`
	Bps       uint64 `mapstructure:"bps" json:"bps"`
}

// Params are the platform constants. Every default is listed in DefaultParams
// and nowhere else.
type Params struct {
	// PROJECT_RAISE token split of total supply.
	RaiseContributorBps uint64 `mapstructure:"raise_contributor_bps" json:"raise_contributor_bps"`
	RaiseFounderBps     uint64 `mapstructure:"raise_founder_bps" json:"raise_founder_bps"`
	RaiseLiquidityBps   uint64 `mapstructure:"raise_liquidity_bps" json:"raise_liquidity_bps"`
	RaiseVestedBps      uint64 `mapstructure:"raise_vested_bps" json:"raise_vested_bps"`

	// INSTANT_LAUNCH token split of total supply.
	InstantCurveBps     uint64 `mapstructure:"instant_curve_bps" json:"instant_curve_bps"`
	InstantLiquidityBps uint64 `mapstructure:"instant_liquidity_bps" json:"instant_liquidity_bps"`

	// Split of raised funds; the rest stays locked as the reserve.
	FundsLiquidityBps uint64 `mapstructure:"funds_liquidity_bps" json:"funds_liquidity_bps"`
	FundsFounderBps   uint64 `mapstructure:"funds_founder_bps" json:"funds_founder_bps"`

	MinRaiseTarget  uint64        `mapstructure:"min_raise_target" json:"min_raise_target"`
	MaxRaiseTarget  uint64        `mapstructure:"max_raise_target" json:"max_raise_target"`
	MinContribution uint64        `mapstructure:"min_contribution" json:"min_contribution"`
	MaxPerWallet    uint64        `mapstructure:"max_per_wallet" json:"max_per_wallet"`
	RaiseDuration   time.Duration `mapstructure:"raise_duration" json:"raise_duration"`
	MinVestingDays  int           `mapstructure:"min_vesting_days" json:"min_vesting_days"`
	MaxVestingDays  int           `mapstructure:"max_vesting_days" json:"max_vesting_days"`
	MinNameLength   int           `mapstructure:"min_name_length" json:"min_name_length"`
	MaxNameLength   int           `mapstructure:"max_name_length" json:"max_name_length"`
	MinSymbolLength int           `mapstructure:"min_symbol_length" json:"min_symbol_length"`
	MaxSymbolLength int           `mapstructure:"max_symbol_length" json:"max_symbol_length"`

	VirtualReserve      uint64    `mapstructure:"virtual_reserve" json:"virtual_reserve"`
	GraduationThreshold uint64    `mapstructure:"graduation_threshold" json:"graduation_threshold"`
	FeeTiers            []FeeTier `mapstructure:"fee_tiers" json:"fee_tiers"`
	CreatorFeeBps       uint64    `mapstructure:"creator_fee_bps" json:"creator_fee_bps"`

	ClaimCooldown time.Duration `mapstructure:"claim_cooldown" json:"claim_cooldown"`
	MinClaim      uint64        `mapstructure:"min_claim" json:"min_claim"`

	VestingCheckInterval   time.Duration `mapstructure:"vesting_check_interval" json:"vesting_check_interval"`
	CommunityControlChecks int           `mapstructure:"community_control_checks" json:"community_control_checks"`
	CustodyDelay           time.Duration `mapstructure:"custody_delay" json:"custody_delay"`

	RouterFeeBps  uint64 `mapstructure:"router_fee_bps" json:"router_fee_bps"`
	RecycleBps    uint64 `mapstructure:"recycle_bps" json:"recycle_bps"`
	VenueFeeBps   uint64 `mapstructure:"venue_fee_bps" json:"venue_fee_bps"`
	MaxInitialBuy uint64 `mapstructure:"max_initial_buy" json:"max_initial_buy"`
}

// DefaultParams returns the platform defaults.
func DefaultParams() Params {
	return Params{
		RaiseContributorBps: 7000,
		RaiseFounderBps:     500,
		RaiseLiquidityBps:   2000,
		RaiseVestedBps:      500,

		InstantCurveBps:     8000,
		InstantLiquidityBps: 2000,

		FundsLiquidityBps: 5000,
		FundsFounderBps:   3000,

		MinRaiseTarget:  10 * NativeUnit,
		MaxRaiseTarget:  10_000 * NativeUnit,
		MinContribution: NativeUnit / 10,
		MaxPerWallet:    500 * NativeUnit,
		RaiseDuration:   72 * time.Hour,
		MinVestingDays:  30,
		MaxVestingDays:  1460,
		MinNameLength:   1,
		MaxNameLength:   32,
		MinSymbolLength: 2,
		MaxSymbolLength: 10,

		VirtualReserve:      30 * NativeUnit,
		GraduationThreshold: 85 * NativeUnit,
		FeeTiers: []FeeTier{
			{FromBlock: 0, Bps: 500},
			{FromBlock: 150, Bps: 300},
			{FromBlock: 600, Bps: 200},
			{FromBlock: 2400, Bps: 100},
		},
		CreatorFeeBps: 3000,

		ClaimCooldown: 24 * time.Hour,
		MinClaim:      NativeUnit / 100,

		VestingCheckInterval:   30 * 24 * time.Hour,
		CommunityControlChecks: 3,
		CustodyDelay:           48 * time.Hour,

		RouterFeeBps:  100,
		RecycleBps:    5000,
		VenueFeeBps:   25,
		MaxInitialBuy: 50 * NativeUnit,
	}
}

// Validate checks conservation of both allocation tables and the shape of the
// fee schedule.
func (p Params) Validate() error {
	var errs []error
	if s := p.RaiseContributorBps + p.RaiseFounderBps + p.RaiseLiquidityBps + p.RaiseVestedBps; s != BpsDenominator {
		errs = append(errs, fmt.Errorf("raise allocation sums to %d bps, want %d", s, BpsDenominator))
	}
	if s := p.InstantCurveBps + p.InstantLiquidityBps; s != BpsDenominator {
		errs = append(errs, fmt.Errorf("instant allocation sums to %d bps, want %d", s, BpsDenominator))
	}
	if p.FundsLiquidityBps+p.FundsFounderBps > BpsDenominator {
		errs = append(errs, errors.New("raised funds split exceeds 100%"))
	}
	if p.MinRaiseTarget == 0 || p.MinRaiseTarget > p.MaxRaiseTarget {
		errs = append(errs, fmt.Errorf("raise target bounds [%d, %d] are invalid", p.MinRaiseTarget, p.MaxRaiseTarget))
	}
	if p.MinContribution == 0 || p.MinContribution > p.MaxPerWallet {
		errs = append(errs, errors.New("min contribution must be positive and not above the wallet cap"))
	}
	if p.RaiseDuration <= 0 {
		errs = append(errs, errors.New("raise duration must be positive"))
	}
	if p.MinVestingDays <= 0 || p.MinVestingDays > p.MaxVestingDays {
		errs = append(errs, errors.New("vesting day bounds are invalid"))
	}
	if p.MinNameLength <= 0 || p.MinNameLength > p.MaxNameLength {
		errs = append(errs, errors.New("name length bounds are invalid"))
	}
	if p.MinSymbolLength <= 0 || p.MinSymbolLength > p.MaxSymbolLength {
		errs = append(errs, errors.New("symbol length bounds are invalid"))
	}
	if p.VirtualReserve == 0 {
		errs = append(errs, errors.New("virtual reserve must be positive"))
	}
	if p.GraduationThreshold == 0 {
		errs = append(errs, errors.New("graduation threshold must be positive"))
	}
	if err := validateTiers(p.FeeTiers); err != nil {
		errs = append(errs, err)
	}
	if p.CreatorFeeBps > BpsDenominator || p.RouterFeeBps > BpsDenominator ||
		p.RecycleBps > BpsDenominator || p.VenueFeeBps >= BpsDenominator {
		errs = append(errs, errors.New("fee bps out of range"))
	}
	if p.VestingCheckInterval <= 0 || p.CommunityControlChecks <= 0 || p.CustodyDelay < 0 {
		errs = append(errs, errors.New("vesting check parameters are invalid"))
	}
	if err := errors.Join(errs...); err != nil {
		return Validation(CodeBadParams, "%v", err)
	}
	return nil
}

func validateTiers(tiers []FeeTier) error {
	if len(tiers) == 0 {
		return errors.New("fee schedule is empty")
	}
	if tiers[0].FromBlock != 0 {
		return errors.New("first fee tier must start at block 0")
	}
	for i := 1; i < len(tiers); i++ {
		if tiers[i].FromBlock <= tiers[i-1].FromBlock {
			return fmt.Errorf("fee tier %d does not start after tier %d", i, i-1)
		}
		if tiers[i].Bps > tiers[i-1].Bps {
			return fmt.Errorf("fee tier %d raises the fee", i)
		}
	}
	if tiers[0].Bps >= BpsDenominator {
		return errors.New("fee tier bps out of range")
	}
	return nil
}

// Allocation is a split of SupplyUnits. Fields sum exactly to the supply.
type Allocation struct {
	Contributors uint64
	Founder      uint64
	Liquidity    uint64
	Vested       uint64
	Curve        uint64
}

// Total sums every bucket.
func (a Allocation) Total() uint64 {
	return a.Contributors + a.Founder + a.Liquidity + a.Vested + a.Curve
}

// Allocation splits supply for a launch kind. Rounding dust lands in the
// contributor pool (raise) or the curve (instant).
func (p Params) Allocation(kind LaunchKind, supply uint64) Allocation {
	switch kind {
	case KindProjectRaise:
		a := Allocation{
			Founder:   Bps(supply, p.RaiseFounderBps),
			Liquidity: Bps(supply, p.RaiseLiquidityBps),
			Vested:    Bps(supply, p.RaiseVestedBps),
		}
		a.Contributors = supply - a.Founder - a.Liquidity - a.Vested
		return a
	case KindInstantLaunch:
		a := Allocation{Liquidity: Bps(supply, p.InstantLiquidityBps)}
		a.Curve = supply - a.Liquidity
		return a
	default:
		panic(fmt.Sprintf("unknown launch kind %q", kind))
	}
}

// FundsSplit is how raised native funds are used after a successful raise.
type FundsSplit struct {
	Liquidity uint64
	Founder   uint64
	Reserve   uint64
}

// SplitFunds divides a raise total. Reserve takes the rounding remainder.
func (p Params) SplitFunds(total uint64) FundsSplit {
	s := FundsSplit{
		Liquidity: Bps(total, p.FundsLiquidityBps),
		Founder:   Bps(total, p.FundsFounderBps),
	}
	s.Reserve = total - s.Liquidity - s.Founder
	return s
}
