// internal/launchpad/duties.go
package launchpad

import (
	"time"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
	"github.com/rovshanmuradov/launchpad/internal/raise"
	"github.com/rovshanmuradov/launchpad/internal/venue"
	"github.com/rovshanmuradov/launchpad/internal/vesting"
)

// Duties is the periodic work the keeper drives.
type Duties struct {
	// Finalize: raises past their deadline that still read Collecting.
	Finalize []domain.LaunchID
	// Graduate: succeeded raises and curves over threshold, not yet migrated.
	Graduate []domain.LaunchID
	// VestingChecks: schedules whose monthly check is due.
	VestingChecks []domain.LaunchID
	// Custody: schedules under community control whose reserve is still in escrow.
	Custody []domain.LaunchID
	// CustodyRelease: custody records past their release time.
	CustodyRelease []domain.LaunchID
	// Harvest: graduated launches with venue fees pending on the escrow position.
	Harvest []domain.LaunchID
}

// DutiesAt scans all launches for work due at now.
func DutiesAt(s *ledger.State, now time.Time) Duties {
	var d Duties
	s.Launches.Range(func(id domain.LaunchID, rec domain.LaunchRecord) bool {
		switch rec.Type.(type) {
		case domain.ProjectRaise:
			raiseDuties(s, &d, rec, now)
		case domain.InstantLaunch:
			if pool, err := curve.Load(s, id); err == nil && pool.Graduated && !pool.Migrated {
				d.Graduate = append(d.Graduate, id)
			}
		}
		if rec.Graduation != domain.NotGraduated {
			if venue.PendingFees(venuePool(s, id), venue.Position(s, id, rec.Escrow())) > 0 {
				d.Harvest = append(d.Harvest, id)
			}
		}
		return true
	})
	return d
}

func raiseDuties(s *ledger.State, d *Duties, rec domain.LaunchRecord, now time.Time) {
	st, err := raise.Load(s, rec.ID)
	if err != nil {
		return
	}
	switch raise.DeriveStatus(st, now) {
	case domain.RaiseFailed:
		if st.Status == domain.RaiseCollecting {
			d.Finalize = append(d.Finalize, rec.ID)
		}
	case domain.RaiseSucceeded:
		if rec.Graduation == domain.NotGraduated {
			d.Graduate = append(d.Graduate, rec.ID)
		}
	case domain.RaiseCollecting:
	}

	if c, ok := s.Custody.Get(rec.ID); ok && !c.Released && !now.Before(c.ReleaseAt) {
		d.CustodyRelease = append(d.CustodyRelease, rec.ID)
	}

	v, err := vesting.Load(s, rec.ID)
	if err != nil {
		return
	}
	switch {
	case v.CommunityControl:
		if !v.ReserveReleased && st.ReserveFunds > 0 {
			d.Custody = append(d.Custody, rec.ID)
		}
	case v.VestedBurned || v.Claimed >= v.Total:
	case !now.Before(vesting.NextCheck(v, s.Params.VestingCheckInterval)):
		d.VestingChecks = append(d.VestingChecks, rec.ID)
	}
}

func venuePool(s *ledger.State, id domain.LaunchID) domain.VenuePool {
	p, _ := venue.Load(s, id)
	return p
}
