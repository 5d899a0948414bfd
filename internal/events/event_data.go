package events

// EventData is implemented by every typed event payload
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// OrderSubmittedData contains data for OrderSubmitted events
type OrderSubmittedData struct {
	Symbol      string `json:"symbol"`
	OrderID     int64  `json:"order_id,omitempty"`
	IssuerID    int64  `json:"issuer_id"`
	RecipientID int64  `json:"recipient_id"`
	Quantity    int    `json:"quantity"`
}

// EventType returns the event type for OrderSubmittedData
func (d *OrderSubmittedData) EventType() EventType {
	return OrderSubmitted
}

// OrderResolvedData contains data for OrderAccepted and OrderRejected events
type OrderResolvedData struct {
	Action      string `json:"action"`
	Message     string `json:"message"`
	OrderID     int64  `json:"order_id"`
	RecipientID int64  `json:"recipient_id"`
}

// EventType returns OrderAccepted or OrderRejected depending on the action
func (d *OrderResolvedData) EventType() EventType {
	if d.Action == "reject" {
		return OrderRejected
	}
	return OrderAccepted
}

// OrderStateObservedData is published after the delayed refresh that follows
// an accept or reject
type OrderStateObservedData struct {
	State       string `json:"state"`
	OrderID     int64  `json:"order_id"`
	RecipientID int64  `json:"recipient_id"`
	Terminal    bool   `json:"terminal"`
}

// EventType returns the event type for OrderStateObservedData
func (d *OrderStateObservedData) EventType() EventType {
	return OrderStateObserved
}

// PositionTradedData contains data for PositionBought and PositionSold events
type PositionTradedData struct {
	Side     string `json:"side"`
	Symbol   string `json:"symbol"`
	Message  string `json:"message"`
	UserID   int64  `json:"user_id"`
	Quantity int    `json:"quantity"`
}

// EventType returns PositionBought or PositionSold depending on the side
func (d *PositionTradedData) EventType() EventType {
	if d.Side == "SELL" {
		return PositionSold
	}
	return PositionBought
}

// AgentLinkedData contains data for AgentLinked events
type AgentLinkedData struct {
	TraderID int64 `json:"trader_id"`
	AgentID  int64 `json:"agent_id"`
}

// EventType returns the event type for AgentLinkedData
func (d *AgentLinkedData) EventType() EventType {
	return AgentLinked
}

// ProfileUpdatedData contains data for ProfileUpdated events
type ProfileUpdatedData struct {
	UserID int64 `json:"user_id"`
}

// EventType returns the event type for ProfileUpdatedData
func (d *ProfileUpdatedData) EventType() EventType {
	return ProfileUpdated
}

// QuotesRefreshedData contains data for QuotesRefreshed events
type QuotesRefreshedData struct {
	Symbols []string `json:"symbols"`
	Failed  int      `json:"failed"`
}

// EventType returns the event type for QuotesRefreshedData
func (d *QuotesRefreshedData) EventType() EventType {
	return QuotesRefreshed
}

// SystemStatusData contains data for SystemStatusChanged events
type SystemStatusData struct {
	CacheError string `json:"cache_error,omitempty"`
	Healthy    bool   `json:"healthy"`
}

// EventType returns the event type for SystemStatusData
func (d *SystemStatusData) EventType() EventType {
	return SystemStatusChanged
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Context map[string]interface{} `json:"context,omitempty"`
	Error   string                 `json:"error"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
