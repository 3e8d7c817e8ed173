// internal/vesting/custody.go
package vesting

import (
	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

// TransferReserveToCustody moves the locked raised-funds reserve into custody
// under community control. It is released to the platform owner after the
// custody delay.
type TransferReserveToCustody struct {
	Launch domain.LaunchID
}

func (TransferReserveToCustody) Name() string { return "transfer_reserve_to_custody" }

func (o TransferReserveToCustody) Apply(tx *ledger.Tx) error {
	rec, v, err := underControl(tx, o.Launch)
	if err != nil {
		return err
	}
	if tx.Custody.Has(rec.ID) {
		return domain.Precondition(domain.CodeAlreadyClaimed, "reserve of %s already in custody", rec.Symbol)
	}
	if v.ReserveReleased {
		return domain.Precondition(domain.CodeAlreadyClaimed, "reserve of %s already released", rec.Symbol)
	}
	st, ok := tx.Raises.Get(rec.ID)
	if !ok || st.ReserveFunds == 0 {
		return domain.Precondition(domain.CodeNothingToClaim, "%s has no reserve", rec.Symbol)
	}

	if err := tx.TransferNative(rec.Escrow(), domain.CustodyAddress(rec.ID), st.ReserveFunds); err != nil {
		return err
	}
	c := domain.CustodyRecord{
		Launch:      rec.ID,
		Amount:      st.ReserveFunds,
		InitiatedBy: tx.Caller,
		InitiatedAt: tx.Now,
		ReleaseAt:   tx.Now.Add(tx.Params.CustodyDelay),
	}
	tx.Custody.Put(rec.ID, c)
	v.ReserveReleased = true
	tx.Vesting.Put(rec.ID, v)

	tx.Emit(&events.CustodyEvent{
		BaseEvent: tx.Base(events.CustodyInitiated, rec.ID),
		Amount:    c.Amount,
		ReleaseAt: c.ReleaseAt,
	})
	return nil
}

// ReleaseCustody pays custody funds to the platform owner after the delay.
type ReleaseCustody struct {
	Launch domain.LaunchID
}

func (ReleaseCustody) Name() string { return "release_custody" }

func (o ReleaseCustody) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	if err := rec.RequirePlatformOwner(tx.Caller); err != nil {
		return err
	}
	c, ok := tx.Custody.Get(rec.ID)
	if !ok {
		return domain.Precondition(domain.CodeNothingToClaim, "%s has no custody record", rec.Symbol)
	}
	if c.Released {
		return domain.Precondition(domain.CodeAlreadyClaimed, "custody of %s already released", rec.Symbol)
	}
	if tx.Now.Before(c.ReleaseAt) {
		return domain.Precondition(domain.CodeCooldownActive, "custody of %s releases at %s", rec.Symbol, c.ReleaseAt.UTC())
	}

	if err := tx.TransferNative(domain.CustodyAddress(rec.ID), rec.PlatformOwner, c.Amount); err != nil {
		return err
	}
	c.Released = true
	c.ReleasedAt = tx.Now
	tx.Custody.Put(rec.ID, c)

	tx.Emit(&events.CustodyEvent{
		BaseEvent: tx.Base(events.CustodyReleased, rec.ID),
		Amount:    c.Amount,
		Recipient: rec.PlatformOwner,
		ReleaseAt: c.ReleaseAt,
	})
	return nil
}
