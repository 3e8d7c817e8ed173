// internal/storage/sink.go
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/events"
)

// SinkConfig tunes how the sink retries a failing store.
type SinkConfig struct {
	MaxRetries uint
	RetryDelay time.Duration
}

// Sink is a bus handler that persists every event it sees.
type Sink struct {
	store  EventStore
	cfg    SinkConfig
	logger *zap.Logger
}

// NewSink returns a handler for bus.Subscribe(events.AllEvents, ...).
func NewSink(store EventStore, cfg SinkConfig, logger *zap.Logger) *Sink {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	return &Sink{store: store, cfg: cfg, logger: logger.Named("event_sink")}
}

var _ events.Handler = (*Sink)(nil)

// Handle appends ev, retrying transient store failures.
func (s *Sink) Handle(ctx context.Context, ev events.Event) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.RetryDelay
	policy.MaxInterval = s.cfg.RetryDelay * 10

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := s.store.Append(ctx, ev)
		if errors.Is(err, ErrClosed) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(s.cfg.MaxRetries),
		backoff.WithNotify(func(err error, d time.Duration) {
			s.logger.Warn("Event append failed, retrying",
				zap.String("event_type", string(ev.Type())),
				zap.Duration("backoff", d),
				zap.Error(err))
		}))
	if err != nil {
		s.logger.Error("Event lost",
			zap.String("event_type", string(ev.Type())),
			zap.String("launch", ev.LaunchID().String()),
			zap.Error(err))
	}
	return err
}
