package events

// EventType represents different event types
type EventType string

const (
	// Order lifecycle
	OrderSubmitted     EventType = "ORDER_SUBMITTED"
	OrderAccepted      EventType = "ORDER_ACCEPTED"
	OrderRejected      EventType = "ORDER_REJECTED"
	OrderStateObserved EventType = "ORDER_STATE_OBSERVED"

	// Paper account
	PositionBought EventType = "POSITION_BOUGHT"
	PositionSold   EventType = "POSITION_SOLD"

	// Users
	AgentLinked    EventType = "AGENT_LINKED"
	ProfileUpdated EventType = "PROFILE_UPDATED"

	// Market data
	QuotesRefreshed EventType = "QUOTES_REFRESHED"

	// System
	SystemStatusChanged EventType = "SYSTEM_STATUS_CHANGED"

	ErrorOccurred EventType = "ERROR_OCCURRED"
)

// AllEventTypes lists every event type streamed to clients
func AllEventTypes() []EventType {
	return []EventType{
		OrderSubmitted,
		OrderAccepted,
		OrderRejected,
		OrderStateObserved,
		PositionBought,
		PositionSold,
		AgentLinked,
		ProfileUpdated,
		QuotesRefreshed,
		SystemStatusChanged,
		ErrorOccurred,
	}
}
