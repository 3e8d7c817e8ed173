// internal/ledger/pending.go
package ledger

import (
	"context"
	"time"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
)

// Receipt is the outcome of one applied operation.
type Receipt struct {
	Seq    uint64
	Op     string
	Caller domain.Address
	Block  uint64
	Time   time.Time
	Events []events.Event
	// Err is the business rejection, nil when the op committed.
	Err error
}

// Committed reports whether the op's writes are part of the ledger.
func (r Receipt) Committed() bool {
	return r.Err == nil
}

// Pending is the handle returned by Submit. It resolves exactly once.
type Pending struct {
	op      string
	done    chan struct{}
	receipt Receipt
}

func newPending(op string) *Pending {
	return &Pending{op: op, done: make(chan struct{})}
}

func (p *Pending) resolve(r Receipt) {
	p.receipt = r
	close(p.done)
}

// Done is closed when the receipt is available.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the op is applied or ctx ends. A rejected op returns its
// receipt together with the rejection error. Giving up on ctx does not cancel
// the op: it may still commit.
func (p *Pending) Await(ctx context.Context) (Receipt, error) {
	select {
	case <-p.done:
		return p.receipt, p.receipt.Err
	case <-ctx.Done():
		return Receipt{Op: p.op}, domain.LedgerFailure(domain.CodeConfirmTimeout, ctx.Err())
	}
}
