// internal/ledger/ledger.go
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/domain"
)

var (
	// ErrClosed is wrapped by submissions made after Close.
	ErrClosed = errors.New("ledger closed")
	// ErrQueueFull is wrapped when the ledger cannot accept another operation.
	ErrQueueFull = errors.New("ledger queue full")
)

// Ledger is the transactional store the launchpad runs on. Operations are
// applied one at a time in submission order; each sees the state left by the
// previous one.
type Ledger interface {
	Submit(ctx context.Context, caller domain.Address, op Op) (*Pending, error)
	View(fn func(s *State, env Env) error) error
}

// CommitHook observes committed receipts. It runs on the ledger goroutine and
// must not block.
type CommitHook func(Receipt)

// Config tunes the in-memory ledger.
type Config struct {
	QueueSize int           `mapstructure:"queue_size"`
	BlockTime time.Duration `mapstructure:"block_time"`
}

type request struct {
	caller  domain.Address
	op      Op
	pending *Pending
}

// Memory is the in-process ledger. One goroutine applies queued operations;
// readers take a snapshot lock between operations.
type Memory struct {
	logger *zap.Logger
	clock  Clock

	mu    sync.RWMutex
	state *State
	seq   uint64
	hooks []CommitHook

	closeMu sync.RWMutex
	closed  bool
	queue   chan request
	wg      sync.WaitGroup
}

// NewMemory starts a ledger with empty state.
func NewMemory(logger *zap.Logger, clock Clock, params domain.Params, cfg Config) *Memory {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	m := &Memory{
		logger: logger.Named("ledger"),
		clock:  clock,
		state:  NewState(params),
		queue:  make(chan request, cfg.QueueSize),
	}

	m.wg.Add(1)
	go m.run()

	return m
}

// OnCommit registers a hook for committed receipts.
func (m *Memory) OnCommit(h CommitHook) {
	m.mu.Lock()
	m.hooks = append(m.hooks, h)
	m.mu.Unlock()
}

// Submit queues op on behalf of caller. It never blocks on a full queue.
func (m *Memory) Submit(ctx context.Context, caller domain.Address, op Op) (*Pending, error) {
	if op == nil {
		return nil, domain.Validation(domain.CodeBadParams, "nil operation")
	}

	m.closeMu.RLock()
	defer m.closeMu.RUnlock()

	if m.closed {
		return nil, domain.LedgerFailure(domain.CodeLedgerUnavailable, ErrClosed)
	}

	p := newPending(op.Name())
	select {
	case m.queue <- request{caller: caller, op: op, pending: p}:
		return p, nil
	case <-ctx.Done():
		return nil, domain.LedgerFailure(domain.CodeLedgerUnavailable, ctx.Err())
	default:
		return nil, domain.LedgerFailure(domain.CodeLedgerBusy, ErrQueueFull)
	}
}

// View runs fn against committed state. fn must not retain the state.
func (m *Memory) View(fn func(s *State, env Env) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return fn(m.state, Env{Now: m.clock.Now(), Block: m.clock.Block(), Seq: m.seq})
}

// Seq returns the sequence number of the last applied op.
func (m *Memory) Seq() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seq
}

// Pending returns how many ops are queued.
func (m *Memory) Pending() int {
	return len(m.queue)
}

// Close stops accepting operations and waits for queued ones to be applied.
func (m *Memory) Close() {
	m.closeMu.Lock()
	if m.closed {
		m.closeMu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.closeMu.Unlock()

	m.wg.Wait()
	m.logger.Info("Ledger closed", zap.Uint64("seq", m.Seq()))
}

func (m *Memory) run() {
	defer m.wg.Done()
	for req := range m.queue {
		m.apply(req)
	}
}

func (m *Memory) apply(req request) {
	start := time.Now()

	m.mu.Lock()
	m.seq++
	tx := &Tx{
		State: m.state,
		Env: Env{
			Caller: req.caller,
			Now:    m.clock.Now(),
			Block:  m.clock.Block(),
			Seq:    m.seq,
		},
	}

	m.state.j.begin()
	err := safeApply(req.op, tx)
	if err != nil {
		m.state.j.rollback()
	} else {
		m.state.j.commit()
	}
	hooks := m.hooks
	m.mu.Unlock()

	receipt := Receipt{
		Seq:    tx.Seq,
		Op:     req.op.Name(),
		Caller: req.caller,
		Block:  tx.Block,
		Time:   tx.Now,
		Err:    err,
	}
	if err == nil {
		receipt.Events = tx.events
	}

	m.logger.Debug("Operation applied",
		zap.String("op", receipt.Op),
		zap.Uint64("seq", receipt.Seq),
		zap.Uint64("block", receipt.Block),
		zap.String("caller", req.caller.String()),
		zap.Int("events", len(receipt.Events)),
		zap.Duration("took", time.Since(start)),
		zap.Error(err))

	req.pending.resolve(receipt)

	if err == nil {
		for _, h := range hooks {
			h(receipt)
		}
	}
}

func safeApply(op Op, tx *Tx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", op.Name(), r)
		}
	}()
	return op.Apply(tx)
}

// DepositOp credits native funds to an account from outside the system.
type DepositOp struct {
	To     domain.Address
	Amount uint64
}

func (DepositOp) Name() string { return "deposit" }

func (o DepositOp) Apply(tx *Tx) error {
	if o.Amount == 0 {
		return domain.Validation(domain.CodeBadAmount, "deposit amount must be positive")
	}
	return tx.Deposit(o.To, o.Amount)
}
