// internal/ledger/tx.go
package ledger

import (
	"time"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
)

// Op is one atomic state transition. Apply checks every precondition against
// the state it is given and either mutates it or returns an error; on error
// all writes made through the Tx are undone.
type Op interface {
	Name() string
	Apply(tx *Tx) error
}

// Env is what the ledger knows about the operation being applied.
type Env struct {
	Caller domain.Address
	Now    time.Time
	Block  uint64
	Seq    uint64
}

// Tx is the handle an Op works through.
type Tx struct {
	*State
	Env
	events []events.Event
}

// Emit queues events for the receipt. They are dropped if the op fails.
func (tx *Tx) Emit(evs ...events.Event) {
	tx.events = append(tx.events, evs...)
}

// Base stamps a new event with this op's time and block.
func (tx *Tx) Base(t events.EventType, launch domain.LaunchID) events.BaseEvent {
	return events.NewBase(t, launch, tx.Now, tx.Block)
}

// Events returns what the op emitted so far.
func (tx *Tx) Events() []events.Event {
	return tx.events
}

