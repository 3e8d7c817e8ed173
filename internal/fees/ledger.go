// internal/fees/ledger.go
package fees

import (
	"time"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

// Gate is an extra claim condition checked after cooldown and minimum.
type Gate func(tx *ledger.Tx, rec domain.LaunchRecord) error

// Get returns the accrual for (launch, role), zero-valued if nothing accrued yet.
func Get(s *ledger.State, launch domain.LaunchID, role domain.FeeRole) domain.FeeAccrual {
	a, ok := s.Fees.Get(domain.FeeKey{Launch: launch, Role: role})
	if !ok {
		return domain.FeeAccrual{Launch: launch, Role: role}
	}
	return a
}

// Accrue credits amount to (launch, role). The funds must already sit in the
// launch escrow.
func Accrue(tx *ledger.Tx, launch domain.LaunchID, role domain.FeeRole, amount uint64) {
	if amount == 0 {
		return
	}
	a := Get(tx.State, launch, role)
	a.Accrued += amount
	a.TotalAccrued += amount
	tx.Fees.Put(domain.FeeKey{Launch: launch, Role: role}, a)
}

// CanClaim reports whether the cooldown has elapsed and how long is left.
func CanClaim(a domain.FeeAccrual, now time.Time, cooldown time.Duration) (bool, time.Duration) {
	if a.LastClaim.IsZero() {
		return true, 0
	}
	elapsed := now.Sub(a.LastClaim)
	if elapsed >= cooldown {
		return true, 0
	}
	return false, cooldown - elapsed
}

// Claim pays the whole accrual of (launch, role) from escrow to recipient,
// zeroes it and stamps the claim time. Nothing is written when any check fails.
func Claim(tx *ledger.Tx, rec domain.LaunchRecord, role domain.FeeRole, recipient domain.Address, gate Gate) (uint64, error) {
	a := Get(tx.State, rec.ID, role)

	if ok, wait := CanClaim(a, tx.Now, tx.Params.ClaimCooldown); !ok {
		return 0, domain.Precondition(domain.CodeCooldownActive, "%s fees of %s claimable in %s", role, rec.Symbol, wait.Round(time.Second))
	}
	if a.Accrued == 0 {
		return 0, domain.Precondition(domain.CodeNothingToClaim, "no %s fees accrued for %s", role, rec.Symbol)
	}
	if a.Accrued < tx.Params.MinClaim {
		return 0, domain.Precondition(domain.CodeBelowMinimum, "%d accrued is below minimum claim %d", a.Accrued, tx.Params.MinClaim)
	}
	if gate != nil {
		if err := gate(tx, rec); err != nil {
			return 0, err
		}
	}

	amount := a.Accrued
	if err := tx.TransferNative(rec.Escrow(), recipient, amount); err != nil {
		return 0, err
	}
	a.Accrued = 0
	a.LastClaim = tx.Now
	a.TotalClaimed += amount
	tx.Fees.Put(domain.FeeKey{Launch: rec.ID, Role: role}, a)

	tx.Emit(&events.FeesClaimedEvent{
		BaseEvent: tx.Base(events.FeesClaimed, rec.ID),
		Role:      role,
		Recipient: recipient,
		Amount:    amount,
	})
	return amount, nil
}

// Status is the read model of one accrual.
type Status struct {
	Role         domain.FeeRole `json:"role"`
	Accrued      uint64         `json:"accrued"`
	TotalClaimed uint64         `json:"total_claimed"`
	TotalAccrued uint64         `json:"total_accrued"`
	LastClaim    time.Time      `json:"last_claim,omitempty"`
	Ready        bool           `json:"ready"`
	Wait         time.Duration  `json:"wait"`
	// GateOK is false when the market condition currently blocks the claim.
	GateOK bool `json:"gate_ok"`
}

// StatusOf builds the read model for (launch, role).
func StatusOf(s *ledger.State, now time.Time, rec domain.LaunchRecord, role domain.FeeRole) Status {
	a := Get(s, rec.ID, role)
	ready, wait := CanClaim(a, now, s.Params.ClaimCooldown)
	st := Status{
		Role:         role,
		Accrued:      a.Accrued,
		TotalClaimed: a.TotalClaimed,
		TotalAccrued: a.TotalAccrued,
		LastClaim:    a.LastClaim,
		Ready:        ready && a.Accrued >= s.Params.MinClaim,
		Wait:         wait,
		GateOK:       true,
	}
	if role == domain.RoleCreator {
		st.GateOK = creatorGateOK(s, rec) == nil
		st.Ready = st.Ready && st.GateOK
	}
	return st
}
