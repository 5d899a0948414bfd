package events

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishDeliversByType(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var got []*Event
	bus.Subscribe(OrderAccepted, func(e *Event) { got = append(got, e) })

	bus.Publish(&Event{Type: OrderAccepted, Module: "orders"})
	bus.Publish(&Event{Type: OrderRejected, Module: "orders"})

	require.Len(t, got, 1)
	assert.Equal(t, OrderAccepted, got[0].Type)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	calls := 0
	ids := bus.SubscribeAll(func(*Event) { calls++ })
	assert.Equal(t, 1, bus.SubscriberCount(OrderSubmitted))

	bus.Publish(&Event{Type: OrderSubmitted})
	bus.Unsubscribe(ids...)
	bus.Publish(&Event{Type: OrderSubmitted})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.SubscriberCount(OrderSubmitted))
}

func TestBus_PanickingHandlerIsIsolated(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	delivered := false
	bus.Subscribe(ErrorOccurred, func(*Event) { panic("bad handler") })
	bus.Subscribe(ErrorOccurred, func(*Event) { delivered = true })

	assert.NotPanics(t, func() { bus.Publish(&Event{Type: ErrorOccurred}) })
	assert.True(t, delivered)
}

func TestBus_ConcurrentPublishAndSubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var mu sync.Mutex
	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			bus.Subscribe(PositionBought, func(*Event) {
				mu.Lock()
				count++
				mu.Unlock()
			})
		}()
		go func() {
			defer wg.Done()
			bus.Publish(&Event{Type: PositionBought})
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, bus.SubscriberCount(PositionBought))
}

func TestManager_EmitTypedFlattensData(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	manager := NewManager(bus, zerolog.Nop())

	var received *Event
	bus.Subscribe(OrderRejected, func(e *Event) { received = e })

	manager.EmitTyped("orders", &OrderResolvedData{
		Action:      "reject",
		Message:     "Order rejected",
		OrderID:     42,
		RecipientID: 7,
	})

	require.NotNil(t, received)
	assert.NotEmpty(t, received.ID)
	assert.Equal(t, "orders", received.Module)
	assert.Equal(t, float64(42), received.Data["order_id"])
	assert.Equal(t, "Order rejected", received.Data["message"])
}

func TestManager_EmitError(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	manager := NewManager(bus, zerolog.Nop())

	var received *Event
	bus.Subscribe(ErrorOccurred, func(e *Event) { received = e })

	manager.EmitError("portfolio", errors.New("backend down"), map[string]interface{}{"user_id": 7})

	require.NotNil(t, received)
	assert.Equal(t, "backend down", received.Data["error"])
}

func TestEventDataTypes(t *testing.T) {
	assert.Equal(t, OrderAccepted, (&OrderResolvedData{Action: "accept"}).EventType())
	assert.Equal(t, OrderRejected, (&OrderResolvedData{Action: "reject"}).EventType())
	assert.Equal(t, PositionBought, (&PositionTradedData{Side: "BUY"}).EventType())
	assert.Equal(t, PositionSold, (&PositionTradedData{Side: "SELL"}).EventType())
	assert.Equal(t, OrderStateObserved, (&OrderStateObservedData{}).EventType())
	assert.Equal(t, AgentLinked, (&AgentLinkedData{}).EventType())
	assert.Equal(t, ProfileUpdated, (&ProfileUpdatedData{}).EventType())
	assert.Equal(t, QuotesRefreshed, (&QuotesRefreshedData{}).EventType())
	assert.Len(t, AllEventTypes(), 11)
}
