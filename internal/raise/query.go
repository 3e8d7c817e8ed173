// internal/raise/query.go
package raise

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

// Info is the read model of a raise. Status is derived at the query time and
// may differ from the stored one until some operation settles the raise.
type Info struct {
	Raise           domain.RaiseState  `json:"raise"`
	Status          domain.RaiseStatus `json:"status"`
	StatusName      string             `json:"status_name"`
	Progress        decimal.Decimal    `json:"progress"`
	TimeLeft        time.Duration      `json:"time_left"`
	ContributorPool uint64             `json:"contributor_pool"`
}

// InfoOf derives the raise read model at now.
func InfoOf(s *ledger.State, launch domain.LaunchID, now time.Time) (Info, error) {
	rec, err := s.Launch(launch)
	if err != nil {
		return Info{}, err
	}
	st, err := Load(s, launch)
	if err != nil {
		return Info{}, err
	}
	status := DeriveStatus(st, now)
	info := Info{
		Raise:           st,
		Status:          status,
		StatusName:      status.String(),
		Progress:        decimal.Zero,
		ContributorPool: ContributorPool(s.Params, rec),
	}
	if st.Target > 0 {
		info.Progress = domain.NativeDec(st.TotalRaised).
			Div(domain.NativeDec(st.Target)).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	if status == domain.RaiseCollecting {
		info.TimeLeft = st.Deadline.Sub(now)
	}
	return info, nil
}

// Claimable is what an address can take out of a raise right now.
type Claimable struct {
	Contribution domain.ContributionRecord `json:"contribution"`
	Tokens       uint64                    `json:"tokens"`
	Refund       uint64                    `json:"refund"`
}

// ClaimableOf reports the contributor tokens or refund open to contributor at now.
func ClaimableOf(s *ledger.State, launch domain.LaunchID, contributor domain.Address, now time.Time) (Claimable, error) {
	rec, err := s.Launch(launch)
	if err != nil {
		return Claimable{}, err
	}
	st, err := Load(s, launch)
	if err != nil {
		return Claimable{}, err
	}
	c, _ := Contribution(s, launch, contributor)
	out := Claimable{Contribution: c}
	if c.Claimed || c.Amount == 0 {
		return out, nil
	}
	switch DeriveStatus(st, now) {
	case domain.RaiseSucceeded:
		out.Tokens = ContributorShare(c.Amount, ContributorPool(s.Params, rec), st.TotalRaised)
	case domain.RaiseFailed:
		out.Refund = c.Amount
	case domain.RaiseCollecting:
	}
	return out, nil
}
