// Package testutil holds helpers shared by package tests that run operations
// against an in-memory ledger with a manual clock.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

// Genesis is the start time of every test ledger.
var Genesis = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Func adapts a closure to ledger.Op.
type Func struct {
	OpName string
	Fn     func(tx *ledger.Tx) error
}

func (f Func) Name() string {
	if f.OpName == "" {
		return "test"
	}
	return f.OpName
}

func (f Func) Apply(tx *ledger.Tx) error { return f.Fn(tx) }

// Chain is a ledger plus the clock that drives it.
type Chain struct {
	T      testing.TB
	Ledger *ledger.Memory
	Clock  *ledger.ManualClock
	Params domain.Params
}

// NewChain starts a ledger with the given params and closes it on cleanup.
func NewChain(t testing.TB, params domain.Params) *Chain {
	t.Helper()
	clock := ledger.NewManualClock(Genesis)
	l := ledger.NewMemory(zaptest.NewLogger(t), clock, params, ledger.Config{QueueSize: 64})
	t.Cleanup(l.Close)
	return &Chain{T: t, Ledger: l, Clock: clock, Params: params}
}

// Exec applies op as caller and returns the receipt and rejection, if any.
func (c *Chain) Exec(caller domain.Address, op ledger.Op) (ledger.Receipt, error) {
	c.T.Helper()
	p, err := c.Ledger.Submit(context.Background(), caller, op)
	require.NoError(c.T, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.Await(ctx)
}

// MustExec applies op and fails the test on rejection.
func (c *Chain) MustExec(caller domain.Address, op ledger.Op) ledger.Receipt {
	c.T.Helper()
	r, err := c.Exec(caller, op)
	require.NoError(c.T, err, "op %s", op.Name())
	return r
}

// Do applies fn as an anonymous op.
func (c *Chain) Do(fn func(tx *ledger.Tx) error) error {
	c.T.Helper()
	_, err := c.Exec(solana.PublicKey{}, Func{Fn: fn})
	return err
}

// View reads committed state.
func (c *Chain) View(fn func(s *ledger.State, env ledger.Env)) {
	c.T.Helper()
	require.NoError(c.T, c.Ledger.View(func(s *ledger.State, env ledger.Env) error {
		fn(s, env)
		return nil
	}))
}

// Fund deposits native coins to addr.
func (c *Chain) Fund(addr domain.Address, amount uint64) {
	c.T.Helper()
	c.MustExec(addr, ledger.DepositOp{To: addr, Amount: amount})
}

// NewAddress returns a fresh random address.
func NewAddress() domain.Address {
	return solana.NewWallet().PublicKey()
}

// Native converts whole coins to base units.
func Native(whole float64) uint64 {
	return uint64(whole * float64(domain.NativeUnit))
}
