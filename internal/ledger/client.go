// internal/ledger/client.go
package ledger

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/domain"
)

// ClientConfig controls submission retries and confirmation waits.
type ClientConfig struct {
	MaxTries        uint          `mapstructure:"max_tries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxElapsed      time.Duration `mapstructure:"max_elapsed"`
	ConfirmTimeout  time.Duration `mapstructure:"confirm_timeout"`
}

// DefaultClientConfig returns the client defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MaxTries:        5,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		MaxElapsed:      10 * time.Second,
		ConfirmTimeout:  30 * time.Second,
	}
}

// Client submits operations with retries on transient ledger failures and
// waits for their receipts.
type Client struct {
	ledger Ledger
	logger *zap.Logger
	cfg    ClientConfig
}

func NewClient(l Ledger, logger *zap.Logger, cfg ClientConfig) *Client {
	def := DefaultClientConfig()
	if cfg.MaxTries == 0 {
		cfg.MaxTries = def.MaxTries
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = def.MaxElapsed
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = def.ConfirmTimeout
	}
	return &Client{ledger: l, logger: logger.Named("ledger_client"), cfg: cfg}
}

// Submit queues op, retrying while the ledger is busy or unavailable.
// Business rejections are never retried.
func (c *Client) Submit(ctx context.Context, caller domain.Address, op Op) (*Pending, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.InitialInterval
	policy.MaxInterval = c.cfg.MaxInterval

	notify := func(err error, d time.Duration) {
		c.logger.Warn("Ledger submission failed, retrying",
			zap.String("op", op.Name()),
			zap.Duration("backoff", d),
			zap.Error(err))
	}

	operation := func() (*Pending, error) {
		p, err := c.ledger.Submit(ctx, caller, op)
		if err != nil {
			if domain.IsRetryable(err) && ctx.Err() == nil {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return p, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.cfg.MaxTries),
		backoff.WithMaxElapsedTime(c.cfg.MaxElapsed),
		backoff.WithNotify(notify))
}

// Execute submits op and waits for its receipt up to the confirmation timeout.
func (c *Client) Execute(ctx context.Context, caller domain.Address, op Op) (Receipt, error) {
	p, err := c.Submit(ctx, caller, op)
	if err != nil {
		return Receipt{Op: op.Name()}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmTimeout)
	defer cancel()

	return p.Await(ctx)
}

// View reads committed state.
func (c *Client) View(fn func(s *State, env Env) error) error {
	return c.ledger.View(fn)
}
