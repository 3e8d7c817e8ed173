package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/tidwall/gjson"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/testutil"
)

// setupTestDB starts a postgres container, migrates it and returns the pool.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container test skipped in -short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("launchpad"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, Config{URL: dsn, MaxConns: 4}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool, zaptest.NewLogger(t)))
	return pool
}

func TestEventStoreAppendAndList(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	store := NewEventStore(pool)

	a, b := testutil.NewAddress(), testutil.NewAddress()
	require.NoError(t, store.Append(ctx,
		&events.LaunchCreatedEvent{
			BaseEvent: events.NewBase(events.LaunchCreated, a, testutil.Genesis, 1),
			Kind:      domain.KindProjectRaise,
			Symbol:    "PGA",
		},
		&events.LaunchCreatedEvent{
			BaseEvent: events.NewBase(events.LaunchCreated, b, testutil.Genesis, 2),
			Kind:      domain.KindInstantLaunch,
			Symbol:    "PGB",
		},
		&events.ContributedEvent{
			BaseEvent: events.NewBase(events.Contributed, a, testutil.Genesis.Add(time.Minute), 3),
		},
	))

	all, err := store.List(ctx, storage.Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Less(t, all[0].Seq, all[1].Seq)
	assert.Equal(t, uint64(2), all[1].Block)
	assert.True(t, all[0].Time.Equal(testutil.Genesis))
	assert.Equal(t, "PGA", gjson.GetBytes(all[0].Payload, "symbol").String())
	assert.Equal(t, string(events.LaunchCreated), gjson.GetBytes(all[0].Payload, "type").String())

	byLaunch, err := store.List(ctx, storage.Query{Launch: a})
	require.NoError(t, err)
	require.Len(t, byLaunch, 2)
	assert.Equal(t, a, byLaunch[0].Launch)
	assert.Equal(t, events.Contributed, byLaunch[1].Type)

	byType, err := store.List(ctx, storage.Query{Types: []events.EventType{events.LaunchCreated}, AfterSeq: all[0].Seq})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, b, byType[0].Launch)

	limited, err := store.List(ctx, storage.Query{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMigrateIsIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	assert.NoError(t, Migrate(context.Background(), pool, zaptest.NewLogger(t)))
}

