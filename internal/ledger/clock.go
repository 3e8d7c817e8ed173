// internal/ledger/clock.go
package ledger

import (
	"sync"
	"time"
)

// Clock supplies the time and block height stamped on every operation.
type Clock interface {
	Now() time.Time
	Block() uint64
}

// SystemClock derives block height from wall time since genesis.
type SystemClock struct {
	genesis   time.Time
	blockTime time.Duration
}

// NewSystemClock starts a chain at the current instant.
func NewSystemClock(blockTime time.Duration) *SystemClock {
	if blockTime <= 0 {
		blockTime = 400 * time.Millisecond
	}
	return &SystemClock{genesis: time.Now(), blockTime: blockTime}
}

func (c *SystemClock) Now() time.Time {
	return time.Now()
}

func (c *SystemClock) Block() uint64 {
	return uint64(time.Since(c.genesis) / c.blockTime)
}

// ManualClock only moves when told to. Tests and simulations drive deadlines,
// cooldowns and fee tiers with it.
type ManualClock struct {
	mu    sync.Mutex
	now   time.Time
	block uint64
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Block() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.block
}

// Advance moves time forward without producing blocks.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// AdvanceBlocks produces n blocks.
func (c *ManualClock) AdvanceBlocks(n uint64) {
	c.mu.Lock()
	c.block += n
	c.mu.Unlock()
}

// Set jumps to t. Moving backwards is ignored.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	if t.After(c.now) {
		c.now = t
	}
	c.mu.Unlock()
}
