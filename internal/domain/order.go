// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// OrderState is the lifecycle state of an agent-issued order.
// The set is closed: every switch over it must handle all five values.
type OrderState string

const (
	// OrderStatePendingApproval is the only initial state
	OrderStatePendingApproval OrderState = "PENDING_APPROVAL"
	// OrderStateAccepted is transient: the backend immediately attempts the buy
	OrderStateAccepted OrderState = "ACCEPTED"
	// OrderStateExecuted means the automatic buy succeeded
	OrderStateExecuted OrderState = "EXECUTED"
	// OrderStateRejected means the recipient declined the order
	OrderStateRejected OrderState = "REJECTED"
	// OrderStateExecutionError means the automatic buy failed
	OrderStateExecutionError OrderState = "EXECUTION_ERROR"
)

// AllOrderStates lists every state in lifecycle order
func AllOrderStates() []OrderState {
	return []OrderState{
		OrderStatePendingApproval,
		OrderStateAccepted,
		OrderStateExecuted,
		OrderStateRejected,
		OrderStateExecutionError,
	}
}

// ParseOrderState validates a textual state
func ParseOrderState(s string) (OrderState, error) {
	state := OrderState(s)
	if !state.Valid() {
		return "", fmt.Errorf("unknown order state %q", s)
	}
	return state, nil
}

// Valid reports whether s is one of the known states
func (s OrderState) Valid() bool {
	switch s {
	case OrderStatePendingApproval, OrderStateAccepted, OrderStateExecuted,
		OrderStateRejected, OrderStateExecutionError:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s OrderState) IsTerminal() bool {
	switch s {
	case OrderStateExecuted, OrderStateRejected, OrderStateExecutionError:
		return true
	case OrderStatePendingApproval, OrderStateAccepted:
		return false
	}
	return false
}

// Rank is the position of the state along the lifecycle.
// A later observation of the same order must never have a lower rank.
func (s OrderState) Rank() int {
	switch s {
	case OrderStatePendingApproval:
		return 0
	case OrderStateAccepted:
		return 1
	case OrderStateExecuted, OrderStateRejected, OrderStateExecutionError:
		return 2
	}
	return -1
}

// CanTransition reports whether to is reachable from s in a single step.
func (s OrderState) CanTransition(to OrderState) bool {
	switch s {
	case OrderStatePendingApproval:
		return to == OrderStateAccepted || to == OrderStateRejected
	case OrderStateAccepted:
		return to == OrderStateExecuted || to == OrderStateExecutionError
	case OrderStateExecuted, OrderStateRejected, OrderStateExecutionError:
		return false
	}
	return false
}

// IsResolvable reports whether accept/reject may be attempted
func (s OrderState) IsResolvable() bool {
	return s == OrderStatePendingApproval
}

// Label is the display text for the state
func (s OrderState) Label() string {
	switch s {
	case OrderStatePendingApproval:
		return "Pending approval"
	case OrderStateAccepted:
		return "Accepted"
	case OrderStateExecuted:
		return "Executed"
	case OrderStateRejected:
		return "Rejected"
	case OrderStateExecutionError:
		return "Execution error"
	}
	return string(s)
}

// Tone is the badge colour for a state
type Tone string

const (
	ToneWarning Tone = "warning"
	ToneInfo    Tone = "info"
	ToneSuccess Tone = "success"
	ToneDanger  Tone = "danger"
	ToneMuted   Tone = "muted"
)

// Tone maps the state to its badge colour
func (s OrderState) Tone() Tone {
	switch s {
	case OrderStatePendingApproval:
		return ToneWarning
	case OrderStateAccepted:
		return ToneInfo
	case OrderStateExecuted:
		return ToneSuccess
	case OrderStateRejected:
		return ToneMuted
	case OrderStateExecutionError:
		return ToneDanger
	}
	return ToneMuted
}

// Order is an instruction relayed by a commission agent to one of their traders.
// The backend is the system of record; copies held here are read-refreshed.
type Order struct {
	CreatedAt      time.Time        `json:"created_at"`
	AcceptedAt     *time.Time       `json:"accepted_at,omitempty"`
	ExecutedAt     *time.Time       `json:"executed_at,omitempty"`
	LimitPrice     *decimal.Decimal `json:"limit_price,omitempty"`
	ExecutionPrice *decimal.Decimal `json:"execution_price,omitempty"`
	Symbol         string           `json:"symbol"`
	CompanyName    string           `json:"company_name,omitempty"`
	Message        string           `json:"message,omitempty"`
	State          OrderState       `json:"state"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	ID             int64            `json:"id"`
	IssuerID       int64            `json:"issuer_id"`
	RecipientID    int64            `json:"recipient_id"`
	Quantity       int              `json:"quantity"`
}

// IsMarketOrder reports whether the order carries no limit price
func (o Order) IsMarketOrder() bool {
	return o.LimitPrice == nil
}

// Accept moves a pending order to ACCEPTED
func (o Order) Accept(at time.Time) (Order, error) {
	next, err := o.transition(OrderStateAccepted)
	if err != nil {
		return o, err
	}
	next.AcceptedAt = &at
	return next, nil
}

// Reject moves a pending order to REJECTED
func (o Order) Reject() (Order, error) {
	return o.transition(OrderStateRejected)
}

// Execute records a successful automatic buy at price
func (o Order) Execute(at time.Time, price decimal.Decimal) (Order, error) {
	next, err := o.transition(OrderStateExecuted)
	if err != nil {
		return o, err
	}
	next.ExecutedAt = &at
	next.ExecutionPrice = &price
	return next, nil
}

// Fail records a failed automatic buy
func (o Order) Fail(reason string) (Order, error) {
	next, err := o.transition(OrderStateExecutionError)
	if err != nil {
		return o, err
	}
	next.ErrorMessage = reason
	return next, nil
}

func (o Order) transition(to OrderState) (Order, error) {
	if !o.State.CanTransition(to) {
		return o, &TransitionError{
			OrderID: o.ID,
			From:    o.State,
			To:      to,
		}
	}
	o.State = to
	return o, nil
}

// CheckConsistency verifies the timestamp/result fields agree with the state.
func (o Order) CheckConsistency() error {
	switch o.State {
	case OrderStatePendingApproval:
		if o.AcceptedAt != nil || o.ExecutedAt != nil || o.ErrorMessage != "" || o.ExecutionPrice != nil {
			return fmt.Errorf("order %d: pending order carries resolution fields", o.ID)
		}
	case OrderStateAccepted:
		if o.ExecutedAt != nil || o.ErrorMessage != "" || o.ExecutionPrice != nil {
			return fmt.Errorf("order %d: accepted order carries execution fields", o.ID)
		}
	case OrderStateExecuted:
		if o.ErrorMessage != "" {
			return fmt.Errorf("order %d: executed order carries an error message", o.ID)
		}
	case OrderStateRejected:
		if o.ExecutedAt != nil || o.ExecutionPrice != nil || o.ErrorMessage != "" {
			return fmt.Errorf("order %d: rejected order carries execution fields", o.ID)
		}
	case OrderStateExecutionError:
		if o.ExecutionPrice != nil {
			return fmt.Errorf("order %d: failed order carries an execution price", o.ID)
		}
	default:
		return fmt.Errorf("order %d: unknown state %q", o.ID, o.State)
	}
	if o.AcceptedAt != nil && o.AcceptedAt.Before(o.CreatedAt) {
		return fmt.Errorf("order %d: accepted before creation", o.ID)
	}
	if o.ExecutedAt != nil && o.AcceptedAt != nil && o.ExecutedAt.Before(*o.AcceptedAt) {
		return fmt.Errorf("order %d: executed before acceptance", o.ID)
	}
	return nil
}

// SortNewestFirst orders by CreatedAt descending.
// Ties keep the order in which the backend returned them.
func SortNewestFirst(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

// OrderDraft is what an agent fills in before submitting an order
type OrderDraft struct {
	LimitPrice  *decimal.Decimal `json:"limit_price,omitempty"`
	Symbol      string           `json:"symbol"`
	CompanyName string           `json:"company_name,omitempty"`
	Message     string           `json:"message,omitempty"`
	RecipientID int64            `json:"recipient_id"`
	Quantity    int              `json:"quantity"`
}

// OrderSubmission is a validated, normalized draft ready for the backend.
// Empty optionals are left zero and never sent.
type OrderSubmission struct {
	LimitPrice  *decimal.Decimal
	Symbol      string
	CompanyName string
	Message     string
	IssuerID    int64
	RecipientID int64
	Quantity    int
}

// SubmitReceipt is the backend's answer to a submission
type SubmitReceipt struct {
	Order   *Order `json:"order,omitempty"`
	OrderID *int64 `json:"order_id,omitempty"`
	Message string `json:"message"`
}
