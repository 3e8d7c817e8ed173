// internal/raise/ops.go
package raise

import (
	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

// Contribute adds the caller's native funds to a collecting raise.
type Contribute struct {
	Launch domain.LaunchID
	Amount uint64
}

func (Contribute) Name() string { return "contribute" }

func (o Contribute) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	st, err := settle(tx, rec)
	if err != nil {
		return err
	}
	if st.Status == domain.RaiseFailed {
		return domain.Precondition(domain.CodeDeadlinePassed, "raise of %s closed at %s", rec.Symbol, st.Deadline.UTC())
	}
	if err := requireStatus(st, domain.RaiseCollecting, rec.Symbol); err != nil {
		return err
	}

	p := tx.Params
	if o.Amount == 0 {
		return domain.Validation(domain.CodeBadAmount, "contribution must be positive")
	}
	if o.Amount < p.MinContribution {
		return domain.Precondition(domain.CodeBelowMinimum, "contribution %d is below minimum %d", o.Amount, p.MinContribution)
	}

	key := domain.ContributionKey{Launch: rec.ID, Contributor: tx.Caller}
	c, existed := tx.Contributions.Get(key)
	if c.Amount+o.Amount > p.MaxPerWallet {
		return domain.Precondition(domain.CodeAboveWalletCap, "wallet total %d would exceed cap %d", c.Amount+o.Amount, p.MaxPerWallet)
	}
	if st.TotalRaised+o.Amount > st.Max {
		return domain.Precondition(domain.CodeExceedsMax, "raise total %d would exceed max %d", st.TotalRaised+o.Amount, st.Max)
	}

	if err := tx.TransferNative(tx.Caller, rec.Escrow(), o.Amount); err != nil {
		return err
	}

	if !existed {
		c = domain.ContributionRecord{Launch: rec.ID, Contributor: tx.Caller}
		st.Contributors++
	}
	c.Amount += o.Amount
	tx.Contributions.Put(key, c)

	st.TotalRaised += o.Amount
	completed := st.TotalRaised >= st.Target
	if completed {
		st.Status = domain.RaiseSucceeded
		st.CompletedAt = tx.Now
		split := tx.Params.SplitFunds(st.TotalRaised)
		st.LiquidityFunds = split.Liquidity
		st.ReserveFunds = split.Reserve
	}
	tx.Raises.Put(rec.ID, st)

	tx.Emit(&events.ContributedEvent{
		BaseEvent:   tx.Base(events.Contributed, rec.ID),
		Contributor: tx.Caller,
		Amount:      o.Amount,
		TotalRaised: st.TotalRaised,
	})
	if completed {
		tx.Emit(&events.RaiseCompletedEvent{
			BaseEvent:    tx.Base(events.RaiseCompleted, rec.ID),
			TotalRaised:  st.TotalRaised,
			Contributors: st.Contributors,
		})
	}
	return nil
}

// claimContribution loads the caller's unclaimed, non-zero contribution.
func claimContribution(tx *ledger.Tx, rec domain.LaunchRecord) (domain.ContributionRecord, error) {
	c, ok := Contribution(tx.State, rec.ID, tx.Caller)
	if !ok || c.Amount == 0 {
		return domain.ContributionRecord{}, domain.Precondition(domain.CodeNothingToClaim, "%s did not contribute to %s", tx.Caller, rec.Symbol)
	}
	if c.Claimed {
		return domain.ContributionRecord{}, domain.Precondition(domain.CodeAlreadyClaimed, "contribution of %s to %s already claimed", tx.Caller, rec.Symbol)
	}
	return c, nil
}

func markClaimed(tx *ledger.Tx, c domain.ContributionRecord) {
	c.Claimed = true
	c.ClaimedAt = tx.Now
	tx.Contributions.Put(domain.ContributionKey{Launch: c.Launch, Contributor: c.Contributor}, c)
}

// ClaimContributorTokens pays the caller's pro-rata share of the contributor pool.
type ClaimContributorTokens struct {
	Launch domain.LaunchID
}

func (ClaimContributorTokens) Name() string { return "claim_contributor_tokens" }

func (o ClaimContributorTokens) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	st, err := settle(tx, rec)
	if err != nil {
		return err
	}
	if err := requireStatus(st, domain.RaiseSucceeded, rec.Symbol); err != nil {
		return err
	}
	c, err := claimContribution(tx, rec)
	if err != nil {
		return err
	}

	share := ContributorShare(c.Amount, ContributorPool(tx.Params, rec), st.TotalRaised)
	if share == 0 {
		return domain.Validation(domain.CodeZeroOutput, "contribution %d earns no tokens", c.Amount)
	}
	if err := tx.TransferTokens(rec.ID, rec.Escrow(), tx.Caller, share); err != nil {
		return err
	}
	markClaimed(tx, c)

	tx.Emit(&events.ClaimEvent{
		BaseEvent: tx.Base(events.ContributorTokensClaimed, rec.ID),
		Recipient: tx.Caller,
		Amount:    share,
	})
	return nil
}

// ClaimRefund returns the caller's contribution after a failed raise.
type ClaimRefund struct {
	Launch domain.LaunchID
}

func (ClaimRefund) Name() string { return "claim_refund" }

func (o ClaimRefund) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	st, err := settle(tx, rec)
	if err != nil {
		return err
	}
	if st.Status == domain.RaiseCollecting {
		return domain.Precondition(domain.CodeDeadlineNotPassed, "raise of %s is open until %s", rec.Symbol, st.Deadline.UTC())
	}
	if err := requireStatus(st, domain.RaiseFailed, rec.Symbol); err != nil {
		return err
	}
	c, err := claimContribution(tx, rec)
	if err != nil {
		return err
	}

	if err := tx.TransferNative(rec.Escrow(), tx.Caller, c.Amount); err != nil {
		return err
	}
	markClaimed(tx, c)

	tx.Emit(&events.ClaimEvent{
		BaseEvent: tx.Base(events.RefundClaimed, rec.ID),
		Recipient: tx.Caller,
		Amount:    c.Amount,
	})
	return nil
}

// BurnFailedRaiseTokens destroys the escrowed supply of a failed raise. Anyone
// may call it, once.
type BurnFailedRaiseTokens struct {
	Launch domain.LaunchID
}

func (BurnFailedRaiseTokens) Name() string { return "burn_failed_raise_tokens" }

func (o BurnFailedRaiseTokens) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	st, err := settle(tx, rec)
	if err != nil {
		return err
	}
	if st.Status == domain.RaiseCollecting {
		return domain.Precondition(domain.CodeDeadlineNotPassed, "raise of %s is open until %s", rec.Symbol, st.Deadline.UTC())
	}
	if err := requireStatus(st, domain.RaiseFailed, rec.Symbol); err != nil {
		return err
	}
	if st.FailedSupplyBurn {
		return domain.Precondition(domain.CodeAlreadyBurned, "supply of %s already burned", rec.Symbol)
	}

	amount := tx.TokenBalance(rec.ID, rec.Escrow())
	if err := tx.BurnTokens(rec.ID, rec.Escrow(), amount); err != nil {
		return err
	}
	st.FailedSupplyBurn = true
	tx.Raises.Put(rec.ID, st)

	tx.Emit(&events.BurnEvent{
		BaseEvent: tx.Base(events.FailedSupplyBurned, rec.ID),
		Amount:    amount,
	})
	return nil
}

// ClaimFounderTokens pays the founder's immediate token allocation.
type ClaimFounderTokens struct {
	Launch domain.LaunchID
}

func (ClaimFounderTokens) Name() string { return "claim_founder_tokens" }

func (o ClaimFounderTokens) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	if err := rec.RequireFounder(tx.Caller); err != nil {
		return err
	}
	st, err := settle(tx, rec)
	if err != nil {
		return err
	}
	if err := requireStatus(st, domain.RaiseSucceeded, rec.Symbol); err != nil {
		return err
	}
	if st.FounderClaimed {
		return domain.Precondition(domain.CodeAlreadyClaimed, "founder tokens of %s already claimed", rec.Symbol)
	}

	amount := tx.Params.Allocation(domain.KindProjectRaise, rec.TotalSupply).Founder
	if err := tx.TransferTokens(rec.ID, rec.Escrow(), rec.Founder, amount); err != nil {
		return err
	}
	st.FounderClaimed = true
	tx.Raises.Put(rec.ID, st)

	tx.Emit(&events.ClaimEvent{
		BaseEvent: tx.Base(events.FounderTokensClaimed, rec.ID),
		Recipient: rec.Founder,
		Amount:    amount,
	})
	return nil
}

// ClaimRaisedFunds pays the founder's share of the raised funds.
type ClaimRaisedFunds struct {
	Launch domain.LaunchID
}

func (ClaimRaisedFunds) Name() string { return "claim_raised_funds" }

func (o ClaimRaisedFunds) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	if err := rec.RequireFounder(tx.Caller); err != nil {
		return err
	}
	st, err := settle(tx, rec)
	if err != nil {
		return err
	}
	if err := requireStatus(st, domain.RaiseSucceeded, rec.Symbol); err != nil {
		return err
	}
	if st.FundsClaimed {
		return domain.Precondition(domain.CodeAlreadyClaimed, "raised funds of %s already claimed", rec.Symbol)
	}

	amount := tx.Params.SplitFunds(st.TotalRaised).Founder
	if err := tx.TransferNative(rec.Escrow(), rec.Founder, amount); err != nil {
		return err
	}
	st.FundsClaimed = true
	tx.Raises.Put(rec.ID, st)

	tx.Emit(&events.ClaimEvent{
		BaseEvent: tx.Base(events.RaisedFundsClaimed, rec.ID),
		Recipient: rec.Founder,
		Amount:    amount,
	})
	return nil
}

// Finalize persists the failure of a raise whose deadline has passed.
type Finalize struct {
	Launch domain.LaunchID
}

func (Finalize) Name() string { return "finalize_raise" }

func (o Finalize) Apply(tx *ledger.Tx) error {
	rec, err := tx.Launch(o.Launch)
	if err != nil {
		return err
	}
	before, err := Load(tx.State, rec.ID)
	if err != nil {
		return err
	}
	st, err := settle(tx, rec)
	if err != nil {
		return err
	}
	if before.Status == st.Status {
		if st.Status == domain.RaiseCollecting {
			return domain.Precondition(domain.CodeDeadlineNotPassed, "raise of %s is open until %s", rec.Symbol, st.Deadline.UTC())
		}
		return domain.Precondition(domain.CodeWrongState, "raise of %s is already %s", rec.Symbol, st.Status)
	}
	return nil
}
