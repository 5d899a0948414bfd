package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager handles event emission and logging
type Manager struct {
	bus *Bus
	log zerolog.Logger
	now func() time.Time
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
		now: time.Now,
	}
}

// Bus exposes the underlying bus for subscribers
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Emit publishes an event with an untyped payload
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: m.now(),
		Data:      data,
		Module:    module,
	}

	m.bus.Publish(event)

	eventJSON, err := json.Marshal(event)
	if err != nil {
		m.log.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to encode event for logging")
		return
	}
	m.log.Debug().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")
}

// EmitTyped publishes an event with typed data
func (m *Manager) EmitTyped(module string, data EventData) {
	m.Emit(data.EventType(), module, toMap(data))
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	m.EmitTyped(module, &ErrorEventData{
		Error:   err.Error(),
		Context: context,
	})
}

// toMap flattens typed data into the JSON object clients receive
func toMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}
	return result
}
