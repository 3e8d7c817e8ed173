// internal/fees/ops.go
package fees

import (
	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/venue"
)

// creatorGateOK blocks creator claims while the token trades below its
// graduation market cap. Before graduation there is no venue price and the
// gate is open.
func creatorGateOK(s *ledger.State, rec domain.LaunchRecord) error {
	if rec.Graduation == domain.NotGraduated {
		return nil
	}
	mc, err := venue.MarketCap(s, rec.ID)
	if err != nil {
		return err
	}
	if mc < rec.GraduationMarketCap {
		return domain.Precondition(domain.CodeMarketCapBelowGraduate,
			"market cap %d is below graduation market cap %d", mc, rec.GraduationMarketCap)
	}
	return nil
}

func creatorGate(tx *ledger.Tx, rec domain.LaunchRecord) error {
	return creatorGateOK(tx.State, rec)
}

// ClaimCreatorFees pays accrued creator fees to the founder.
type ClaimCreatorFees struct {
	Launch domain.LaunchID
}

func (ClaimCreatorFees) Name() string { return "claim_creator_fees" }

func (o ClaimCreatorFees) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	if err := rec.RequireFounder(tx.Caller); err != nil {
		return err
	}
	_, err = Claim(tx, rec, domain.RoleCreator, rec.Founder, creatorGate)
	return err
}

// ClaimPlatformFees pays accrued platform fees to the platform owner.
type ClaimPlatformFees struct {
	Launch domain.LaunchID
}

func (ClaimPlatformFees) Name() string { return "claim_platform_fees" }

func (o ClaimPlatformFees) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	if err := rec.RequirePlatformOwner(tx.Caller); err != nil {
		return err
	}
	_, err = Claim(tx, rec, domain.RolePlatform, rec.PlatformOwner, nil)
	return err
}

// HarvestLPFees collects venue fees earned by the escrow-held LP position into
// the liquidity-provider accrual. Anyone may call it.
type HarvestLPFees struct {
	Launch domain.LaunchID
}

func (HarvestLPFees) Name() string { return "harvest_lp_fees" }

func (o HarvestLPFees) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	if rec.Graduation == domain.NotGraduated {
		return domain.Precondition(domain.CodeNotGraduated, "%s has no venue position yet", rec.Symbol)
	}

	amount, err := venue.Harvest(tx, rec.ID, rec.Escrow(), rec.Escrow())
	if err != nil {
		return err
	}
	if amount == 0 {
		return domain.Precondition(domain.CodeNothingToClaim, "no LP fees to harvest for %s", rec.Symbol)
	}
	Accrue(tx, rec.ID, domain.RoleLiquidityProvider, amount)

	tx.Emit(&events.LPFeesHarvestedEvent{
		BaseEvent: tx.Base(events.LPFeesHarvested, rec.ID),
		Amount:    amount,
	})
	return nil
}

// ClaimLPFees pays harvested LP fees to the founder.
type ClaimLPFees struct {
	Launch domain.LaunchID
}

func (ClaimLPFees) Name() string { return "claim_lp_fees" }

func (o ClaimLPFees) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	if err := rec.RequireFounder(tx.Caller); err != nil {
		return err
	}
	_, err = Claim(tx, rec, domain.RoleLiquidityProvider, rec.Founder, nil)
	return err
}
