package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testEvent(t EventType, launch solana.PublicKey) Event {
	return &BurnEvent{BaseEvent: NewBase(t, launch, time.Unix(1_700_000_000, 0), 7), Amount: 1}
}

func TestBusPublishSyncMatchesTypeAndWildcard(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 8)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	var typed, all int
	bus.SubscribeFunc(FailedSupplyBurned, func(context.Context, Event) error { typed++; return nil })
	bus.SubscribeFunc(AllEvents, func(context.Context, Event) error { all++; return nil })

	launch := solana.NewWallet().PublicKey()
	require.NoError(t, bus.PublishSync(context.Background(), testEvent(FailedSupplyBurned, launch)))
	require.NoError(t, bus.PublishSync(context.Background(), testEvent(VestedTokensBurned, launch)))

	assert.Equal(t, 1, typed)
	assert.Equal(t, 2, all)
}

func TestBusHandlerErrorsAreJoined(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 8)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	boom := errors.New("boom")
	bus.SubscribeFunc(AllEvents, func(context.Context, Event) error { return boom })

	err := bus.PublishSync(context.Background(), testEvent(Graduated, solana.NewWallet().PublicKey()))
	assert.ErrorIs(t, err, boom)
}

func TestBusAsyncDeliveryAndUnsubscribe(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 8)

	var mu sync.Mutex
	var got []EventType
	sub := bus.SubscribeFunc(AllEvents, func(_ context.Context, e Event) error {
		mu.Lock()
		got = append(got, e.Type())
		mu.Unlock()
		return nil
	})

	launch := solana.NewWallet().PublicKey()
	require.NoError(t, bus.PublishAll([]Event{
		testEvent(Contributed, launch),
		testEvent(RaiseCompleted, launch),
	}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []EventType{Contributed, RaiseCompleted}, got)
	mu.Unlock()

	sub.Unsubscribe()
	require.NoError(t, bus.Shutdown(context.Background()))
	assert.ErrorIs(t, bus.Publish(testEvent(Contributed, launch)), ErrBusClosed)
}

func TestForLaunchFilters(t *testing.T) {
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()

	var seen int
	h := ForLaunch(a, HandlerFunc(func(context.Context, Event) error { seen++; return nil }))
	_ = h.Handle(context.Background(), testEvent(Contributed, a))
	_ = h.Handle(context.Background(), testEvent(Contributed, b))

	assert.Equal(t, 1, seen)
}

func TestBusDropsWhenFullAndCountsIt(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 1)
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	bus.SubscribeFunc(AllEvents, func(context.Context, Event) error {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return nil
	})

	launch := solana.NewWallet().PublicKey()
	require.NoError(t, bus.Publish(testEvent(Contributed, launch)))
	<-entered // первый в обработчике, очередь пуста

	require.NoError(t, bus.Publish(testEvent(Contributed, launch)))
	assert.ErrorIs(t, bus.Publish(testEvent(Contributed, launch)), ErrBusFull)

	st := bus.Stats()
	assert.Equal(t, 1, st.Capacity)
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, 1, st.Subscribers)
	assert.Equal(t, uint64(1), st.Dropped)

	close(release)
	require.NoError(t, bus.Shutdown(context.Background()))
	assert.Equal(t, uint64(2), bus.Stats().Published)
}

func TestBusCallsSubscribersInOrder(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 8)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	var order []string
	bus.SubscribeFunc(AllEvents, func(context.Context, Event) error { order = append(order, "archive"); return nil })
	sub := bus.SubscribeFunc(Graduated, func(context.Context, Event) error { order = append(order, "typed"); return nil })
	bus.SubscribeFunc(AllEvents, func(context.Context, Event) error { order = append(order, "stream"); return nil })

	launch := solana.NewWallet().PublicKey()
	require.NoError(t, bus.PublishSync(context.Background(), testEvent(Graduated, launch)))
	assert.Equal(t, []string{"archive", "typed", "stream"}, order)

	sub.Unsubscribe()
	sub.Unsubscribe()
	order = nil
	require.NoError(t, bus.PublishSync(context.Background(), testEvent(Graduated, launch)))
	assert.Equal(t, []string{"archive", "stream"}, order)
}
