// internal/vesting/ops.go
package vesting

import (
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

// ClaimVestedTokens pays the founder what has vested so far. RateUSD is the
// native/USD rate read from the oracle when the op was built.
type ClaimVestedTokens struct {
	Launch  domain.LaunchID
	RateUSD decimal.Decimal
}

func (ClaimVestedTokens) Name() string { return "claim_vested_tokens" }

func (o ClaimVestedTokens) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	if err := rec.RequireFounder(tx.Caller); err != nil {
		return err
	}
	v, err := Load(tx.State, rec.ID)
	if err != nil {
		return err
	}
	if v.CommunityControl {
		return domain.Precondition(domain.CodeCommunityControl, "vesting of %s is under community control", rec.Symbol)
	}
	if err := RequireRate(o.RateUSD); err != nil {
		return err
	}
	current, err := MarketCapUSD(tx.State, rec.ID, o.RateUSD)
	if err != nil {
		return err
	}
	if current.LessThan(v.StartMarketCapUSD) {
		return domain.Precondition(domain.CodeMarketCapBelowStart,
			"market cap $%s is below start $%s", current.StringFixed(2), v.StartMarketCapUSD.StringFixed(2))
	}

	amount := Releasable(v, tx.Now, current)
	if amount == 0 {
		return domain.Precondition(domain.CodeNothingToClaim, "nothing vested for %s yet", rec.Symbol)
	}
	if err := tx.TransferTokens(rec.ID, rec.Escrow(), rec.Founder, amount); err != nil {
		return err
	}
	v.Claimed += amount
	tx.Vesting.Put(rec.ID, v)

	tx.Emit(&events.ClaimEvent{
		BaseEvent: tx.Base(events.VestedTokensClaimed, rec.ID),
		Recipient: rec.Founder,
		Amount:    amount,
	})
	return nil
}

// UpdateMarketCap records the monthly market cap check. Anyone may submit it
// once the interval since the previous check has passed.
type UpdateMarketCap struct {
	Launch  domain.LaunchID
	RateUSD decimal.Decimal
}

func (UpdateMarketCap) Name() string { return "update_market_cap" }

func (o UpdateMarketCap) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	v, err := Load(tx.State, rec.ID)
	if err != nil {
		return err
	}
	if v.CommunityControl {
		return domain.Precondition(domain.CodeCommunityControl, "vesting of %s is under community control", rec.Symbol)
	}
	p := tx.Params
	if next := NextCheck(v, p.VestingCheckInterval); tx.Now.Before(next) {
		return domain.Precondition(domain.CodeCheckTooEarly, "next check for %s is due at %s", rec.Symbol, next.UTC())
	}
	if err := RequireRate(o.RateUSD); err != nil {
		return err
	}
	current, err := MarketCapUSD(tx.State, rec.ID, o.RateUSD)
	if err != nil {
		return err
	}

	below := current.LessThan(v.StartMarketCapUSD)
	if below {
		v.ConsecutiveBelow++
	} else {
		v.ConsecutiveBelow = 0
	}
	v.History = append(v.History, domain.MarketCapCheck{At: tx.Now, MarketCap: current, Below: below})
	v.LastCheck = tx.Now

	triggered := v.ConsecutiveBelow >= p.CommunityControlChecks
	if triggered {
		v.CommunityControl = true
		v.ControlTriggered = tx.Now
	}
	tx.Vesting.Put(rec.ID, v)

	tx.Emit(&events.MarketCapUpdatedEvent{
		BaseEvent:    tx.Base(events.MarketCapUpdated, rec.ID),
		MarketCapUSD: current,
		StartUSD:     v.StartMarketCapUSD,
		Below:        below,
		Consecutive:  v.ConsecutiveBelow,
	})
	if triggered {
		tx.Emit(&events.CommunityControlEvent{
			BaseEvent:   tx.Base(events.CommunityControlTriggered, rec.ID),
			Consecutive: v.ConsecutiveBelow,
		})
	}
	return nil
}

// BurnRemainingVested burns the unclaimed vested allocation once community
// control is active. Platform owner only.
type BurnRemainingVested struct {
	Launch domain.LaunchID
}

func (BurnRemainingVested) Name() string { return "burn_remaining_vested" }

func (o BurnRemainingVested) Apply(tx *ledger.Tx) error {
	rec, v, err := underControl(tx, o.Launch)
	if err != nil {
		return err
	}
	if v.VestedBurned {
		return domain.Precondition(domain.CodeAlreadyBurned, "vested allocation of %s already burned", rec.Symbol)
	}

	amount := v.Total - v.Claimed
	if err := tx.BurnTokens(rec.ID, rec.Escrow(), amount); err != nil {
		return err
	}
	v.VestedBurned = true
	tx.Vesting.Put(rec.ID, v)

	tx.Emit(&events.BurnEvent{
		BaseEvent: tx.Base(events.VestedTokensBurned, rec.ID),
		Amount:    amount,
	})
	return nil
}

// ReleaseReserve pays the locked raised-funds reserve to the founder once the
// vesting window has ended without community control.
type ReleaseReserve struct {
	Launch domain.LaunchID
}

func (ReleaseReserve) Name() string { return "release_reserve" }

func (o ReleaseReserve) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	if err := rec.RequireFounder(tx.Caller); err != nil {
		return err
	}
	v, err := Load(tx.State, rec.ID)
	if err != nil {
		return err
	}
	if v.CommunityControl {
		return domain.Precondition(domain.CodeCommunityControl, "reserve of %s is under community control", rec.Symbol)
	}
	if tx.Now.Before(v.End()) {
		return domain.Precondition(domain.CodeWrongState, "vesting of %s runs until %s", rec.Symbol, v.End().UTC())
	}
	if v.ReserveReleased {
		return domain.Precondition(domain.CodeAlreadyClaimed, "reserve of %s already released", rec.Symbol)
	}
	st, ok := tx.Raises.Get(rec.ID)
	if !ok || st.ReserveFunds == 0 {
		return domain.Precondition(domain.CodeNothingToClaim, "%s has no reserve", rec.Symbol)
	}

	if err := tx.TransferNative(rec.Escrow(), rec.Founder, st.ReserveFunds); err != nil {
		return err
	}
	v.ReserveReleased = true
	tx.Vesting.Put(rec.ID, v)

	tx.Emit(&events.ClaimEvent{
		BaseEvent: tx.Base(events.ReserveReleased, rec.ID),
		Recipient: rec.Founder,
		Amount:    st.ReserveFunds,
	})
	return nil
}

// underControl loads a schedule for an action the platform owner may take
// only under community control.
func underControl(tx *ledger.Tx, launch domain.LaunchID) (domain.LaunchRecord, domain.VestingSchedule, error) {
	rec, err := tx.Launch(launch)
	if err != nil {
		return domain.LaunchRecord{}, domain.VestingSchedule{}, err
	}
	if err := rec.RequirePlatformOwner(tx.Caller); err != nil {
		return domain.LaunchRecord{}, domain.VestingSchedule{}, err
	}
	v, err := Load(tx.State, rec.ID)
	if err != nil {
		return domain.LaunchRecord{}, domain.VestingSchedule{}, err
	}
	if !v.CommunityControl {
		return domain.LaunchRecord{}, domain.VestingSchedule{}, domain.Precondition(domain.CodeNoCommunityControl,
			"%s is not under community control", rec.Symbol)
	}
	return rec, v, nil
}
