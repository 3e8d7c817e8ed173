// internal/storage/storage.go
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
)

// ErrClosed is returned by a store after Close.
var ErrClosed = errors.New("event store closed")

// Record is a persisted event. Seq is assigned by the store and grows with
// append order.
type Record struct {
	Seq     int64            `json:"seq"`
	Launch  domain.LaunchID  `json:"launch"`
	Type    events.EventType `json:"type"`
	Block   uint64           `json:"block"`
	Time    time.Time        `json:"time"`
	Payload json.RawMessage  `json:"payload"`
}

// Query selects records. Zero fields match everything.
type Query struct {
	Launch   domain.LaunchID
	Types    []events.EventType
	AfterSeq int64
	Limit    int
}

// DefaultLimit caps a page when Query.Limit is zero.
const DefaultLimit = 100

// EventStore определяет интерфейс durable журнала событий
type EventStore interface {
	// Append persists events in the given order.
	Append(ctx context.Context, evs ...events.Event) error
	// List returns matching records ordered by Seq.
	List(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Encode turns an event into a record without a sequence number.
func Encode(ev events.Event) (Record, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Record{}, fmt.Errorf("encode %s: %w", ev.Type(), err)
	}
	r := Record{
		Launch:  ev.LaunchID(),
		Type:    ev.Type(),
		Time:    ev.Timestamp().UTC(),
		Payload: payload,
	}
	if b, ok := ev.(interface{ BlockNumber() uint64 }); ok {
		r.Block = b.BlockNumber()
	}
	return r, nil
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

func (q Query) match(r Record) bool {
	if !q.Launch.IsZero() && !r.Launch.Equals(q.Launch) {
		return false
	}
	if r.Seq <= q.AfterSeq {
		return false
	}
	if len(q.Types) == 0 {
		return true
	}
	for _, t := range q.Types {
		if t == r.Type {
			return true
		}
	}
	return false
}
