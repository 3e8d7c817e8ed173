// internal/domain/records.go
package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// RaiseStatus is the state of a PROJECT_RAISE contribution window.
type RaiseStatus int

const (
	RaiseCollecting RaiseStatus = iota
	RaiseSucceeded
	RaiseFailed
)

func (s RaiseStatus) String() string {
	switch s {
	case RaiseCollecting:
		return "collecting"
	case RaiseSucceeded:
		return "succeeded"
	case RaiseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RaiseState is the per-launch raise aggregate.
type RaiseState struct {
	Launch           LaunchID
	Status           RaiseStatus
	Target           uint64
	Max              uint64
	Deadline         time.Time
	TotalRaised      uint64
	Contributors     int
	CompletedAt      time.Time
	FounderClaimed   bool
	FundsClaimed     bool
	FailedSupplyBurn bool
	// LiquidityFunds is the part of TotalRaised committed to the venue at graduation.
	LiquidityFunds uint64
	// ReserveFunds is the part of TotalRaised that stays locked after graduation.
	ReserveFunds uint64
}

// ContributionKey addresses one contributor's record within a raise.
type ContributionKey struct {
	Launch      LaunchID
	Contributor Address
}

// ContributionRecord is kept for the life of the system as an audit trail.
type ContributionRecord struct {
	Launch      LaunchID
	Contributor Address
	Amount      uint64
	Claimed     bool
	ClaimedAt   time.Time
}

// PoolState is the bonding-curve market of an INSTANT_LAUNCH.
type PoolState struct {
	Launch         LaunchID
	RealReserve    uint64
	VirtualReserve uint64
	// TokenReserve holds the tokens still sellable from the curve.
	TokenReserve uint64
	// ReservedTokens are held back for the venue and cannot be bought.
	ReservedTokens      uint64
	LaunchBlock         uint64
	GraduationThreshold uint64
	// Graduated flips once the real reserve crosses the threshold.
	Graduated bool
	// Migrated flips once liquidity has been committed to the venue.
	Migrated bool
	// TotalVolume is informational, in native units.
	TotalVolume uint64
	TradeCount  uint64
}

// EffectiveReserve is the native side of the constant product.
func (p PoolState) EffectiveReserve() uint64 {
	return p.RealReserve + p.VirtualReserve
}

// MarketCapCheck is one entry of the monthly market-cap history.
type MarketCapCheck struct {
	At        time.Time
	MarketCap decimal.Decimal
	Below     bool
}

// VestingSchedule releases the held-back founder allocation of a PROJECT_RAISE.
type VestingSchedule struct {
	Launch            LaunchID
	StartMarketCapUSD decimal.Decimal
	Start             time.Time
	Duration          time.Duration
	Total             uint64
	Claimed           uint64
	History           []MarketCapCheck
	LastCheck         time.Time
	ConsecutiveBelow  int
	CommunityControl  bool
	ControlTriggered  time.Time
	VestedBurned      bool
	ReserveReleased   bool
}

// End is when the whole allocation becomes time-eligible.
func (v VestingSchedule) End() time.Time {
	return v.Start.Add(v.Duration)
}

// Clone copies the history so stored records never share backing arrays.
func (v VestingSchedule) Clone() VestingSchedule {
	v.History = slices.Clone(v.History)
	return v
}

// FeeRole names who an accrual belongs to.
type FeeRole string

const (
	RoleCreator           FeeRole = "creator"
	RolePlatform          FeeRole = "platform"
	RoleLiquidityProvider FeeRole = "liquidity_provider"
)

// FeeKey addresses one accrual.
type FeeKey struct {
	Launch LaunchID
	Role   FeeRole
}

// FeeAccrual is accumulated unclaimed fees for one role.
type FeeAccrual struct {
	Launch       LaunchID
	Role         FeeRole
	Accrued      uint64
	LastClaim    time.Time
	TotalClaimed uint64
	TotalAccrued uint64
}

// CustodyRecord holds raised funds moved under community control until the
// release delay elapses.
type CustodyRecord struct {
	Launch      LaunchID
	Amount      uint64
	InitiatedBy Address
	InitiatedAt time.Time
	ReleaseAt   time.Time
	Released    bool
	ReleasedAt  time.Time
}

// TokenKey addresses a token balance.
type TokenKey struct {
	Launch LaunchID
	Holder Address
}

// VenuePool is a constant-product pool on the external liquidity venue.
type VenuePool struct {
	Launch        LaunchID
	TokenReserve  uint64
	NativeReserve uint64
	LPSupply      uint64
	FeeBps        uint64
	// AccFeePerLP is accumulated native fee per LP unit, scaled by FeePrecision.
	AccFeePerLP uint64
	CreatedAt   time.Time
}

// FeePrecision scales VenuePool.AccFeePerLP.
const FeePrecision uint64 = 1_000_000_000_000

// LPKey addresses a liquidity position.
type LPKey struct {
	Launch LaunchID
	Owner  Address
}

// LPPosition is a share of a venue pool.
type LPPosition struct {
	Launch     LaunchID
	Owner      Address
	Liquidity  uint64
	RewardDebt uint64
}
