package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderState(t *testing.T) {
	for _, s := range AllOrderStates() {
		parsed, err := ParseOrderState(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseOrderState("PENDIENTE_APROBACION")
	assert.Error(t, err)
}

func TestCanTransition(t *testing.T) {
	allowed := map[OrderState][]OrderState{
		OrderStatePendingApproval: {OrderStateAccepted, OrderStateRejected},
		OrderStateAccepted:        {OrderStateExecuted, OrderStateExecutionError},
	}

	for _, from := range AllOrderStates() {
		for _, to := range AllOrderStates() {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
			if want {
				assert.Greater(t, to.Rank(), from.Rank(), "%s -> %s must move forward", from, to)
			}
		}
	}
}

func TestTerminalStates(t *testing.T) {
	tests := []struct {
		state      OrderState
		terminal   bool
		resolvable bool
	}{
		{OrderStatePendingApproval, false, true},
		{OrderStateAccepted, false, false},
		{OrderStateExecuted, true, false},
		{OrderStateRejected, true, false},
		{OrderStateExecutionError, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.state.IsTerminal())
			assert.Equal(t, tt.resolvable, tt.state.IsResolvable())
			assert.NotEmpty(t, tt.state.Label())
			assert.NotEmpty(t, tt.state.Tone())
		})
	}
}

func TestOrderAcceptExecute(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	order := Order{ID: 1, State: OrderStatePendingApproval, CreatedAt: created, Symbol: "EC", Quantity: 10}

	accepted, err := order.Accept(created.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, OrderStateAccepted, accepted.State)
	require.NotNil(t, accepted.AcceptedAt)
	assert.NoError(t, accepted.CheckConsistency())

	// The receiver is unchanged
	assert.Equal(t, OrderStatePendingApproval, order.State)

	executed, err := accepted.Execute(created.Add(2*time.Minute), decimal.NewFromInt(2450))
	require.NoError(t, err)
	assert.Equal(t, OrderStateExecuted, executed.State)
	assert.True(t, executed.ExecutionPrice.Equal(decimal.NewFromInt(2450)))
	assert.NoError(t, executed.CheckConsistency())

	_, err = executed.Reject()
	var transition *TransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, OrderStateExecuted, transition.From)
	assert.Equal(t, OrderStateRejected, transition.To)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestOrderFailAndReject(t *testing.T) {
	order := Order{ID: 2, State: OrderStatePendingApproval, CreatedAt: time.Now()}

	_, err := order.Fail("insufficient funds")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	accepted, err := order.Accept(time.Now())
	require.NoError(t, err)
	failed, err := accepted.Fail("insufficient funds")
	require.NoError(t, err)
	assert.Equal(t, "insufficient funds", failed.ErrorMessage)
	assert.NoError(t, failed.CheckConsistency())

	rejected, err := order.Reject()
	require.NoError(t, err)
	assert.Equal(t, OrderStateRejected, rejected.State)
	assert.Nil(t, rejected.AcceptedAt)

	_, err = rejected.Accept(time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCheckConsistency(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)
	price := decimal.NewFromInt(100)

	tests := []struct {
		name  string
		order Order
	}{
		{"pending with acceptance", Order{State: OrderStatePendingApproval, CreatedAt: earlier, AcceptedAt: &now}},
		{"accepted with execution price", Order{State: OrderStateAccepted, CreatedAt: earlier, ExecutionPrice: &price}},
		{"rejected with error message", Order{State: OrderStateRejected, ErrorMessage: "x"}},
		{"failed with execution price", Order{State: OrderStateExecutionError, ExecutionPrice: &price}},
		{"accepted before creation", Order{State: OrderStateAccepted, CreatedAt: now, AcceptedAt: &earlier}},
		{"unknown state", Order{State: "LOST"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.order.CheckConsistency())
		})
	}
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	orders := []Order{
		{ID: 1, CreatedAt: base},
		{ID: 2, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 3, CreatedAt: base.Add(time.Hour)},
		{ID: 4, CreatedAt: base.Add(2 * time.Hour)},
	}

	SortNewestFirst(orders)

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	// 2 and 4 tie and keep their original order
	assert.Equal(t, []int64{2, 4, 3, 1}, ids)
}

func TestIsMarketOrder(t *testing.T) {
	limit := decimal.NewFromInt(5)
	assert.True(t, Order{}.IsMarketOrder())
	assert.False(t, Order{LimitPrice: &limit}.IsMarketOrder())
}
