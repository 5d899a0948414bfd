package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/aristath/paperdesk/internal/events"
	"github.com/aristath/paperdesk/internal/session"
)

const writeWait = 10 * time.Second

// EventsSocketHandler pushes the session user's bus events over a WebSocket.
// Clients only listen; anything they send is discarded.
type EventsSocketHandler struct {
	eventBus       *events.Bus
	originPatterns []string
	log            zerolog.Logger
}

// NewEventsSocketHandler creates a new WebSocket events handler
func NewEventsSocketHandler(eventBus *events.Bus, origins []string, log zerolog.Logger) *EventsSocketHandler {
	return &EventsSocketHandler{
		eventBus:       eventBus,
		originPatterns: origins,
		log:            log.With().Str("component", "events_ws").Logger(),
	}
}

// ServeHTTP handles GET /api/events/ws
func (h *EventsSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, err := session.FromContext(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket handshake failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected close")

	eventChan, unsubscribe := subscribe(h.eventBus, parseTypes(r.URL.Query().Get("types")), sess.UserID, h.log)
	defer unsubscribe()

	// CloseRead cancels ctx once the peer closes the connection
	ctx := conn.CloseRead(r.Context())
	h.log.Info().Int64("user_id", sess.UserID).Msg("Client connected to event socket")

	if err := h.write(ctx, conn, map[string]interface{}{
		"type":    "connected",
		"message": "Connected to event socket",
	}); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from event socket")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case event := <-eventChan:
			if err := h.write(ctx, conn, wireEvent(event)); err != nil {
				return
			}

		case <-heartbeat.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Event socket ping failed")
				return
			}
		}
	}
}

func (h *EventsSocketHandler) write(ctx context.Context, conn *websocket.Conn, payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		h.log.Debug().Err(err).Msg("Failed to write to event socket")
		return err
	}
	return nil
}
