// internal/ledger/state.go
package ledger

import (
	"github.com/rovshanmuradov/launchpad/internal/domain"
)

// State is everything the ledger holds. Operations mutate it through a Tx;
// queries read it through View.
type State struct {
	j *journal

	// Params is the platform configuration account. It is fixed for the life
	// of the ledger.
	Params domain.Params

	Launches      *Table[domain.LaunchID, domain.LaunchRecord]
	Raises        *Table[domain.LaunchID, domain.RaiseState]
	Contributions *Table[domain.ContributionKey, domain.ContributionRecord]
	Pools         *Table[domain.LaunchID, domain.PoolState]
	Vesting       *Table[domain.LaunchID, domain.VestingSchedule]
	Fees          *Table[domain.FeeKey, domain.FeeAccrual]
	Custody       *Table[domain.LaunchID, domain.CustodyRecord]
	VenuePools    *Table[domain.LaunchID, domain.VenuePool]
	Positions     *Table[domain.LPKey, domain.LPPosition]

	Native *Table[domain.Address, uint64]
	Tokens *Table[domain.TokenKey, uint64]
	Supply *Table[domain.LaunchID, uint64]
	Nonces *Table[domain.Address, uint64]
}

// NewState returns an empty ledger state.
func NewState(params domain.Params) *State {
	j := &journal{}
	return &State{
		j:             j,
		Params:        params,
		Launches:      newTable[domain.LaunchID, domain.LaunchRecord](j, nil),
		Raises:        newTable[domain.LaunchID, domain.RaiseState](j, nil),
		Contributions: newTable[domain.ContributionKey, domain.ContributionRecord](j, nil),
		Pools:         newTable[domain.LaunchID, domain.PoolState](j, nil),
		Vesting:       newTable[domain.LaunchID, domain.VestingSchedule](j, domain.VestingSchedule.Clone),
		Fees:          newTable[domain.FeeKey, domain.FeeAccrual](j, nil),
		Custody:       newTable[domain.LaunchID, domain.CustodyRecord](j, nil),
		VenuePools:    newTable[domain.LaunchID, domain.VenuePool](j, nil),
		Positions:     newTable[domain.LPKey, domain.LPPosition](j, nil),
		Native:        newTable[domain.Address, uint64](j, nil),
		Tokens:        newTable[domain.TokenKey, uint64](j, nil),
		Supply:        newTable[domain.LaunchID, uint64](j, nil),
		Nonces:        newTable[domain.Address, uint64](j, nil),
	}
}

// Launch loads a launch record or fails with unknown_launch.
func (s *State) Launch(id domain.LaunchID) (domain.LaunchRecord, error) {
	rec, ok := s.Launches.Get(id)
	if !ok {
		return domain.LaunchRecord{}, domain.Validation(domain.CodeUnknownLaunch, "launch %s not found", id)
	}
	return rec, nil
}

// NativeBalance returns the native balance of addr.
func (s *State) NativeBalance(addr domain.Address) uint64 {
	v, _ := s.Native.Get(addr)
	return v
}

// TokenBalance returns holder's balance of a launch's token.
func (s *State) TokenBalance(launch domain.LaunchID, holder domain.Address) uint64 {
	v, _ := s.Tokens.Get(domain.TokenKey{Launch: launch, Holder: holder})
	return v
}

// CirculatingSupply is minted minus burned for a launch.
func (s *State) CirculatingSupply(launch domain.LaunchID) uint64 {
	v, _ := s.Supply.Get(launch)
	return v
}

// Deposit credits native funds from outside the system (bridge, airdrop, test faucet).
func (s *State) Deposit(to domain.Address, amount uint64) error {
	bal := s.NativeBalance(to)
	sum, ok := domain.AddChecked(bal, amount)
	if !ok {
		return domain.Validation(domain.CodeBadAmount, "deposit overflows balance of %s", to)
	}
	s.Native.Put(to, sum)
	return nil
}

// TransferNative moves native funds between accounts.
func (s *State) TransferNative(from, to domain.Address, amount uint64) error {
	if amount == 0 || from.Equals(to) {
		return nil
	}
	bal := s.NativeBalance(from)
	if bal < amount {
		return domain.Precondition(domain.CodeInsufficientFunds, "%s holds %d, needs %d", from, bal, amount)
	}
	s.Native.Put(from, bal-amount)
	s.Native.Put(to, s.NativeBalance(to)+amount)
	return nil
}

// TransferTokens moves a launch's tokens between holders.
func (s *State) TransferTokens(launch domain.LaunchID, from, to domain.Address, amount uint64) error {
	if amount == 0 || from.Equals(to) {
		return nil
	}
	bal := s.TokenBalance(launch, from)
	if bal < amount {
		return domain.Precondition(domain.CodeInsufficientFunds, "%s holds %d tokens, needs %d", from, bal, amount)
	}
	s.Tokens.Put(domain.TokenKey{Launch: launch, Holder: from}, bal-amount)
	s.Tokens.Put(domain.TokenKey{Launch: launch, Holder: to}, s.TokenBalance(launch, to)+amount)
	return nil
}

// MintTokens creates new supply. Only the registry mints, once, at creation.
func (s *State) MintTokens(launch domain.LaunchID, to domain.Address, amount uint64) {
	s.Tokens.Put(domain.TokenKey{Launch: launch, Holder: to}, s.TokenBalance(launch, to)+amount)
	s.Supply.Put(launch, s.CirculatingSupply(launch)+amount)
}

// BurnTokens destroys tokens held by from.
func (s *State) BurnTokens(launch domain.LaunchID, from domain.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	bal := s.TokenBalance(launch, from)
	if bal < amount {
		return domain.Precondition(domain.CodeInsufficientFunds, "%s holds %d tokens, cannot burn %d", from, bal, amount)
	}
	s.Tokens.Put(domain.TokenKey{Launch: launch, Holder: from}, bal-amount)
	s.Supply.Put(launch, s.CirculatingSupply(launch)-amount)
	return nil
}

// NextNonce returns and advances the launch nonce of a founder.
func (s *State) NextNonce(founder domain.Address) uint64 {
	n, _ := s.Nonces.Get(founder)
	s.Nonces.Put(founder, n+1)
	return n
}
