package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/paperdesk/internal/domain"
	"github.com/aristath/paperdesk/internal/events"
	"github.com/aristath/paperdesk/internal/session"
)

const (
	streamBuffer      = 100
	heartbeatInterval = 30 * time.Second
)

// EventsStreamHandler handles Server-Sent Events (SSE) streaming of bus events.
type EventsStreamHandler struct {
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler.
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus: eventBus,
		log:      log.With().Str("component", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/stream requests (SSE).
// ?types=ORDER_ACCEPTED,ORDER_STATE_OBSERVED limits the stream.
// Only events naming the session user are sent.
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, err := session.FromContext(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	typesFilter := r.URL.Query().Get("types")
	eventChan, unsubscribe := subscribe(h.eventBus, parseTypes(typesFilter), sess.UserID, h.log)
	defer unsubscribe()

	h.log.Info().
		Int64("user_id", sess.UserID).
		Str("types_filter", typesFilter).
		Msg("Client connected to event stream")

	fmt.Fprintf(w, "data: %s\n\n", h.encode(map[string]interface{}{
		"type":    "connected",
		"message": "Connected to event stream",
	}))
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Info().Msg("Client disconnected from event stream")
			return

		case event := <-eventChan:
			fmt.Fprintf(w, "id: %s\ndata: %s\n\n", event.ID, h.encode(wireEvent(event)))
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprintf(w, "data: %s\n\n", h.encode(map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Format(time.RFC3339),
			}))
			flusher.Flush()
		}
	}
}

func (h *EventsStreamHandler) encode(event map[string]interface{}) string {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return `{"error":"failed to encode event"}`
	}
	return string(data)
}

// wireEvent is the JSON shape clients receive on both transports
func wireEvent(event *events.Event) map[string]interface{} {
	return map[string]interface{}{
		"id":        event.ID,
		"type":      string(event.Type),
		"module":    event.Module,
		"timestamp": event.Timestamp.Format(time.RFC3339),
		"data":      event.Data,
	}
}

// parseTypes reads a comma separated type filter. Nil means every type.
func parseTypes(filter string) []events.EventType {
	if strings.TrimSpace(filter) == "" {
		return nil
	}
	var types []events.EventType
	for _, t := range strings.Split(filter, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, events.EventType(t))
		}
	}
	return types
}

// userKeys are the payload fields that tie an event to a user
var userKeys = []string{"recipient_id", "issuer_id", "user_id", "trader_id", "agent_id"}

// broadcastTypes carry no per-user data and reach every session
var broadcastTypes = map[events.EventType]bool{
	events.QuotesRefreshed:     true,
	events.SystemStatusChanged: true,
}

// concernsUser reports whether an event may be shown to userID
func concernsUser(event *events.Event, userID int64) bool {
	if broadcastTypes[event.Type] {
		return true
	}
	for _, key := range userKeys {
		if id, ok := payloadID(event.Data[key]); ok && id == userID {
			return true
		}
	}
	return false
}

func payloadID(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

// subscribe forwards the user's bus events of the given types (all when
// empty) to a buffered channel. Events are dropped rather than blocking
// publishers.
func subscribe(bus *events.Bus, types []events.EventType, userID int64, log zerolog.Logger) (<-chan *events.Event, func()) {
	eventChan := make(chan *events.Event, streamBuffer)
	handler := func(event *events.Event) {
		if !concernsUser(event, userID) {
			return
		}
		select {
		case eventChan <- event:
		default:
			log.Warn().
				Str("event_type", string(event.Type)).
				Int64("user_id", userID).
				Msg("Event channel full, dropping event")
		}
	}

	var ids []events.SubscriptionID
	if len(types) == 0 {
		ids = bus.SubscribeAll(handler)
	} else {
		for _, t := range types {
			ids = append(ids, bus.Subscribe(t, handler))
		}
	}
	return eventChan, func() { bus.Unsubscribe(ids...) }
}

// writeSessionError refuses a stream that has no acting user
func writeSessionError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(domain.HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": domain.UserMessage(err)})
}
