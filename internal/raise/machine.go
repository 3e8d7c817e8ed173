// internal/raise/machine.go
package raise

import (
	"time"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

// Open records a new raise in Collecting for a PROJECT_RAISE launch.
func Open(tx *ledger.Tx, rec domain.LaunchRecord) (domain.RaiseState, error) {
	pr, err := rec.AsProjectRaise()
	if err != nil {
		return domain.RaiseState{}, err
	}
	if tx.Raises.Has(rec.ID) {
		return domain.RaiseState{}, domain.Validation(domain.CodeDuplicateLaunch, "raise for %s already exists", rec.ID)
	}
	st := domain.RaiseState{
		Launch:   rec.ID,
		Status:   domain.RaiseCollecting,
		Target:   pr.Target,
		Max:      pr.Max,
		Deadline: pr.Deadline,
	}
	tx.Raises.Put(rec.ID, st)
	return st, nil
}

// Load returns the stored raise of a launch.
func Load(s *ledger.State, launch domain.LaunchID) (domain.RaiseState, error) {
	st, ok := s.Raises.Get(launch)
	if !ok {
		return domain.RaiseState{}, domain.Precondition(domain.CodeWrongLaunchType, "launch %s has no raise", launch)
	}
	return st, nil
}

// DeriveStatus is the status a raise has at now, whether or not it was persisted.
// Success is decided when the target is reached, so a raise that met its
// target at the deadline instant stays Succeeded.
func DeriveStatus(st domain.RaiseState, now time.Time) domain.RaiseStatus {
	if st.Status != domain.RaiseCollecting {
		return st.Status
	}
	if now.After(st.Deadline) {
		return domain.RaiseFailed
	}
	return domain.RaiseCollecting
}

// settle loads the raise and persists Failed when the deadline has passed.
// Every raise operation starts here so stored state never lags the clock.
func settle(tx *ledger.Tx, rec domain.LaunchRecord) (domain.RaiseState, error) {
	if _, err := rec.AsProjectRaise(); err != nil {
		return domain.RaiseState{}, err
	}
	st, err := Load(tx.State, rec.ID)
	if err != nil {
		return domain.RaiseState{}, err
	}
	if st.Status == domain.RaiseCollecting && DeriveStatus(st, tx.Now) == domain.RaiseFailed {
		st.Status = domain.RaiseFailed
		st.CompletedAt = tx.Now
		tx.Raises.Put(rec.ID, st)
		tx.Emit(&events.RaiseFailedEvent{
			BaseEvent:   tx.Base(events.RaiseFailed, rec.ID),
			TotalRaised: st.TotalRaised,
			Target:      st.Target,
		})
	}
	return st, nil
}

func requireStatus(st domain.RaiseState, want domain.RaiseStatus, symbol string) error {
	if st.Status != want {
		return domain.Precondition(domain.CodeWrongState, "raise of %s is %s, needs %s", symbol, st.Status, want)
	}
	return nil
}

// ContributorPool is the token allocation shared pro rata among contributors.
func ContributorPool(p domain.Params, rec domain.LaunchRecord) uint64 {
	return p.Allocation(domain.KindProjectRaise, rec.TotalSupply).Contributors
}

// ContributorShare is amount * pool / totalRaised, floored.
func ContributorShare(amount, pool, totalRaised uint64) uint64 {
	return domain.MulDiv(amount, pool, totalRaised)
}

// Contribution returns the record for (launch, contributor), zero if none.
func Contribution(s *ledger.State, launch domain.LaunchID, contributor domain.Address) (domain.ContributionRecord, bool) {
	return s.Contributions.Get(domain.ContributionKey{Launch: launch, Contributor: contributor})
}
