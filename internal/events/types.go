// internal/events/types.go
package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad/internal/domain"
)

// EventType represents the type of event.
type EventType string

const (
	// AllEvents subscribes a handler to every event type.
	AllEvents EventType = "*"

	// Registry events
	LaunchCreated EventType = "launch.created"

	// Raise events
	Contributed              EventType = "raise.contributed"
	RaiseCompleted           EventType = "raise.completed"
	RaiseFailed              EventType = "raise.failed"
	RefundClaimed            EventType = "raise.refund_claimed"
	ContributorTokensClaimed EventType = "raise.tokens_claimed"
	FounderTokensClaimed     EventType = "raise.founder_tokens_claimed"
	RaisedFundsClaimed       EventType = "raise.funds_claimed"
	FailedSupplyBurned       EventType = "raise.failed_supply_burned"

	// Market events
	TradeExecuted      EventType = "market.trade"
	GraduationEligible EventType = "market.graduation_eligible"

	// Graduation events
	Graduated      EventType = "graduation.completed"
	TradingEnabled EventType = "graduation.trading_enabled"

	// Fee events
	FeesClaimed     EventType = "fees.claimed"
	LPFeesHarvested EventType = "fees.lp_harvested"

	// Vesting events
	MarketCapUpdated          EventType = "vesting.market_cap_updated"
	CommunityControlTriggered EventType = "vesting.community_control"
	CustodyInitiated          EventType = "vesting.custody_initiated"
	CustodyReleased           EventType = "vesting.custody_released"
	VestedTokensClaimed       EventType = "vesting.claimed"
	VestedTokensBurned        EventType = "vesting.burned"
	ReserveReleased           EventType = "vesting.reserve_released"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	LaunchID() domain.LaunchID
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType       `json:"type"`
	EventTime time.Time       `json:"time"`
	Launch    domain.LaunchID `json:"launch"`
	Block     uint64          `json:"block"`
}

// NewBase stamps an event with the committing operation's time and block.
func NewBase(t EventType, launch domain.LaunchID, at time.Time, block uint64) BaseEvent {
	return BaseEvent{EventType: t, EventTime: at, Launch: launch, Block: block}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// LaunchID returns the launch the event belongs to.
func (e BaseEvent) LaunchID() domain.LaunchID {
	return e.Launch
}

// BlockNumber returns the ledger block the event was committed in.
func (e BaseEvent) BlockNumber() uint64 {
	return e.Block
}

// LaunchCreatedEvent is emitted when the registry records a new launch.
type LaunchCreatedEvent struct {
	BaseEvent
	Kind     domain.LaunchKind `json:"kind"`
	Name     string            `json:"name"`
	Symbol   string            `json:"symbol"`
	Founder  domain.Address    `json:"founder"`
	Supply   uint64            `json:"supply"`
	Target   uint64            `json:"target,omitempty"`
	Max      uint64            `json:"max,omitempty"`
	Deadline time.Time         `json:"deadline,omitempty"`
	BurnLP   bool              `json:"burn_lp"`
}

// ContributedEvent is emitted for every accepted contribution.
type ContributedEvent struct {
	BaseEvent
	Contributor domain.Address `json:"contributor"`
	Amount      uint64         `json:"amount"`
	TotalRaised uint64         `json:"total_raised"`
}

// RaiseCompletedEvent is emitted once when the target is reached.
type RaiseCompletedEvent struct {
	BaseEvent
	TotalRaised  uint64 `json:"total_raised"`
	Contributors int    `json:"contributors"`
}

// RaiseFailedEvent is emitted once when the deadline passes short of the target.
type RaiseFailedEvent struct {
	BaseEvent
	TotalRaised uint64 `json:"total_raised"`
	Target      uint64 `json:"target"`
}

// ClaimEvent covers the at-most-once payouts: refunds, contributor tokens,
// founder tokens, raised funds, vested tokens and the released reserve.
type ClaimEvent struct {
	BaseEvent
	Recipient domain.Address `json:"recipient"`
	Amount    uint64         `json:"amount"`
}

// BurnEvent is emitted when tokens leave circulation.
type BurnEvent struct {
	BaseEvent
	Amount uint64 `json:"amount"`
}

// TradeSide is buy or sell from the trader's point of view.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// TradeEvent is emitted for curve and router trades.
type TradeEvent struct {
	BaseEvent
	Trader       domain.Address  `json:"trader"`
	Side         TradeSide       `json:"side"`
	Market       string          `json:"market"`
	NativeAmount uint64          `json:"native_amount"`
	TokenAmount  uint64          `json:"token_amount"`
	Fee          uint64          `json:"fee"`
	FeeBps       uint64          `json:"fee_bps"`
	PriceAfter   decimal.Decimal `json:"price_after"`
}

// GraduationEligibleEvent is emitted once when a curve crosses its threshold.
type GraduationEligibleEvent struct {
	BaseEvent
	RealReserve uint64 `json:"real_reserve"`
	Threshold   uint64 `json:"threshold"`
}

// GraduatedEvent is emitted once per launch when liquidity reaches the venue.
type GraduatedEvent struct {
	BaseEvent
	Kind            domain.LaunchKind `json:"kind"`
	NativeLiquidity uint64            `json:"native_liquidity"`
	TokenLiquidity  uint64            `json:"token_liquidity"`
	LPMinted        uint64            `json:"lp_minted"`
	LPBurned        bool              `json:"lp_burned"`
	UnsoldBurned    uint64            `json:"unsold_burned,omitempty"`
	MarketCap       uint64            `json:"market_cap"`
	MarketCapUSD    decimal.Decimal   `json:"market_cap_usd"`
}

// TradingEnabledEvent is emitted when a raise opens router trading.
type TradingEnabledEvent struct {
	BaseEvent
	By domain.Address `json:"by"`
}

// FeesClaimedEvent is emitted for every fee payout.
type FeesClaimedEvent struct {
	BaseEvent
	Role      domain.FeeRole `json:"role"`
	Recipient domain.Address `json:"recipient"`
	Amount    uint64         `json:"amount"`
}

// LPFeesHarvestedEvent is emitted when venue fees move into the LP accrual.
type LPFeesHarvestedEvent struct {
	BaseEvent
	Amount uint64 `json:"amount"`
}

// MarketCapUpdatedEvent records one monthly market-health check.
type MarketCapUpdatedEvent struct {
	BaseEvent
	MarketCapUSD decimal.Decimal `json:"market_cap_usd"`
	StartUSD     decimal.Decimal `json:"start_usd"`
	Below        bool            `json:"below"`
	Consecutive  int             `json:"consecutive"`
}

// CommunityControlEvent is emitted once when control passes to the platform owner.
type CommunityControlEvent struct {
	BaseEvent
	Consecutive int `json:"consecutive"`
}

// CustodyEvent covers custody initiation and release.
type CustodyEvent struct {
	BaseEvent
	Amount    uint64         `json:"amount"`
	Recipient domain.Address `json:"recipient,omitempty"`
	ReleaseAt time.Time      `json:"release_at"`
}
