// =============================
// File: internal/launchpad/registry.go
// =============================
package launchpad

import (
	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/raise"
)

// CreateLaunch registers a PROJECT_RAISE for the caller and opens its raise.
type CreateLaunch struct {
	Request       CreateLaunchRequest
	PlatformOwner domain.Address
}

func (CreateLaunch) Name() string { return "create_launch" }

func (o CreateLaunch) Apply(tx *ledger.Tx) error {
	if err := o.Request.Validate(tx.Params); err != nil {
		return err
	}
	req := o.Request.withDefaults()

	rec, err := register(tx, o.PlatformOwner, req.Name, req.Symbol, req.Supply, req.Metadata, req.BurnLP, domain.ProjectRaise{
		Target:      req.Target,
		Max:         req.Max,
		Deadline:    tx.Now.Add(tx.Params.RaiseDuration),
		VestingDays: req.VestingDays,
		Team:        req.Team,
	})
	if err != nil {
		return err
	}
	st, err := raise.Open(tx, rec)
	if err != nil {
		return err
	}

	tx.Emit(&events.LaunchCreatedEvent{
		BaseEvent: tx.Base(events.LaunchCreated, rec.ID),
		Kind:      domain.KindProjectRaise,
		Name:      rec.Name,
		Symbol:    rec.Symbol,
		Founder:   rec.Founder,
		Supply:    rec.TotalSupply,
		Target:    st.Target,
		Max:       st.Max,
		Deadline:  st.Deadline,
		BurnLP:    rec.BurnLP,
	})
	return nil
}

// CreateInstantLaunch registers an INSTANT_LAUNCH, opens its curve and, when
// asked, executes the creator's first buy in the same operation.
type CreateInstantLaunch struct {
	Request       CreateInstantLaunchRequest
	PlatformOwner domain.Address
}

func (CreateInstantLaunch) Name() string { return "create_instant_launch" }

func (o CreateInstantLaunch) Apply(tx *ledger.Tx) error {
	if err := o.Request.Validate(tx.Params); err != nil {
		return err
	}
	req := o.Request.withDefaults()

	rec, err := register(tx, o.PlatformOwner, req.Name, req.Symbol, req.Supply, req.Metadata, req.BurnLP, domain.InstantLaunch{
		InitialBuy: req.InitialBuy,
	})
	if err != nil {
		return err
	}
	if _, err := curve.OpenPool(tx, rec); err != nil {
		return err
	}

	tx.Emit(&events.LaunchCreatedEvent{
		BaseEvent: tx.Base(events.LaunchCreated, rec.ID),
		Kind:      domain.KindInstantLaunch,
		Name:      rec.Name,
		Symbol:    rec.Symbol,
		Founder:   rec.Founder,
		Supply:    rec.TotalSupply,
		BurnLP:    rec.BurnLP,
	})

	if req.InitialBuy > 0 {
		if _, err := curve.ExecuteBuy(tx, rec, rec.Founder, req.InitialBuy, 0); err != nil {
			return err
		}
	}
	return nil
}

// register derives the launch ID, stores the record and mints the whole
// supply into the launch escrow.
func register(tx *ledger.Tx, owner domain.Address, name, symbol string, supply uint64, meta domain.Metadata, burnLP bool, typ domain.LaunchType) (domain.LaunchRecord, error) {
	if owner.IsZero() {
		return domain.LaunchRecord{}, domain.Validation(domain.CodeBadAddress, "platform owner is not set")
	}
	id, err := domain.DeriveLaunchID(tx.Caller, symbol, tx.NextNonce(tx.Caller))
	if err != nil {
		return domain.LaunchRecord{}, domain.Validation(domain.CodeBadSymbol, "%v", err)
	}
	if tx.Launches.Has(id) {
		return domain.LaunchRecord{}, domain.Validation(domain.CodeDuplicateLaunch, "launch %s already exists", id)
	}

	rec := domain.LaunchRecord{
		ID:            id,
		Name:          name,
		Symbol:        symbol,
		Metadata:      meta,
		Founder:       tx.Caller,
		PlatformOwner: owner,
		Type:          typ,
		TotalSupply:   supply,
		BurnLP:        burnLP,
		Graduation:    domain.NotGraduated,
		CreatedAt:     tx.Now,
		CreatedBlock:  tx.Block,
	}
	tx.Launches.Put(id, rec)
	tx.MintTokens(id, rec.Escrow(), supply)
	return rec, nil
}
