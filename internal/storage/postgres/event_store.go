// internal/storage/postgres/event_store.go
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/storage"
)

// EventStore implements storage.EventStore on PostgreSQL.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore wraps an open pool. Close closes the pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

var _ storage.EventStore = (*EventStore)(nil)

const insertEvent = `
	INSERT INTO launch_events (launch, event_type, block, event_time, payload)
	VALUES ($1, $2, $3, $4, $5)
`

// Append inserts all events in one transaction.
func (s *EventStore) Append(ctx context.Context, evs ...events.Event) error {
	if len(evs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range evs {
		r, err := storage.Encode(ev)
		if err != nil {
			return err
		}
		batch.Queue(insertEvent, r.Launch.String(), string(r.Type), int64(r.Block), r.Time, r.Payload)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert events: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// List returns matching records ordered by seq.
func (s *EventStore) List(ctx context.Context, q storage.Query) ([]storage.Record, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	where = append(where, "seq > "+arg(q.AfterSeq))
	if !q.Launch.IsZero() {
		where = append(where, "launch = "+arg(q.Launch.String()))
	}
	if len(q.Types) > 0 {
		types := make([]string, len(q.Types))
		for i, t := range q.Types {
			types[i] = string(t)
		}
		where = append(where, "event_type = ANY("+arg(types)+")")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = storage.DefaultLimit
	}

	query := `
		SELECT seq, launch, event_type, block, event_time, payload
		FROM launch_events
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY seq ASC
		LIMIT ` + arg(limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []storage.Record
	for rows.Next() {
		var (
			r      storage.Record
			launch string
			typ    string
			block  int64
			at     time.Time
		)
		if err := rows.Scan(&r.Seq, &launch, &typ, &block, &at, &r.Payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if r.Launch, err = solana.PublicKeyFromBase58(launch); err != nil {
			return nil, fmt.Errorf("event %d: bad launch %q: %w", r.Seq, launch, err)
		}
		r.Type = events.EventType(typ)
		r.Block = uint64(block)
		r.Time = at.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// Close closes the pool.
func (s *EventStore) Close() error {
	s.pool.Close()
	return nil
}
