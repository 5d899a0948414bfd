// Package backend is the HTTP client for the external paper-trading backend.
// The backend is split in two services: users (profiles, agents, links) and
// market (quotes, paper accounts, agent orders). Wire payloads use the
// backend's Spanish field names and are mapped to domain types here.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/aristath/paperdesk/internal/domain"
)

const (
	tracerName = "github.com/aristath/paperdesk/internal/clients/backend"

	// maxErrorBody bounds how much of an error response is read for its message
	maxErrorBody = 64 << 10
	// maxTextMessage is the longest plain-text body surfaced as a message
	maxTextMessage = 300
)

// Config holds the backend endpoints
type Config struct {
	TracerProvider trace.TracerProvider // Defaults to the global provider
	UsersURL       string
	MarketURL      string
	Timeout        time.Duration
}

// Client talks to both backend services
type Client struct {
	usersURL   string
	marketURL  string
	httpClient *http.Client
	tracer     trace.Tracer
	log        zerolog.Logger
}

var (
	_ domain.OrderBackend        = (*Client)(nil)
	_ domain.PaperTradingBackend = (*Client)(nil)
	_ domain.MarketDataBackend   = (*Client)(nil)
	_ domain.AgentBackend        = (*Client)(nil)
	_ domain.ProfileBackend      = (*Client)(nil)
)

// NewClient creates a new backend client
func NewClient(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Client{
		usersURL:  strings.TrimRight(cfg.UsersURL, "/"),
		marketURL: strings.TrimRight(cfg.MarketURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tracer: tp.Tracer(tracerName),
		log:    log.With().Str("component", "backend_client").Logger(),
	}
}

// request describes one backend call
type request struct {
	op     string
	method string
	base   string
	path   string
	query  url.Values
	body   interface{}
}

// do executes req and returns the raw body of a 2xx answer.
// Every failure is a *domain.BackendError.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "backend."+req.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.method),
			attribute.String("http.route", req.path),
		),
	)
	defer span.End()

	fullURL := req.base + req.path
	if len(req.query) > 0 {
		fullURL += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, c.fail(span, &domain.BackendError{Op: req.op, Err: fmt.Errorf("failed to marshal request: %w", err)})
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, fullURL, body)
	if err != nil {
		return nil, c.fail(span, &domain.BackendError{Op: req.op, Err: fmt.Errorf("failed to create request: %w", err)})
	}
	httpReq.Header.Set("Accept", "application/json, text/plain")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	requestID := middleware.GetReqID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set("X-Request-ID", requestID)
	span.SetAttributes(attribute.String("request_id", requestID))
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Warn().
			Err(err).
			Str("op", req.op).
			Str("request_id", requestID).
			Msg("Backend request failed")
		return nil, c.fail(span, &domain.BackendError{Op: req.op, Err: err})
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		backendErr := &domain.BackendError{
			Op:      req.op,
			Status:  resp.StatusCode,
			Message: extractMessage(raw),
		}
		c.log.Warn().
			Str("op", req.op).
			Int("status", resp.StatusCode).
			Str("message", backendErr.Message).
			Str("request_id", requestID).
			Dur("duration", time.Since(started)).
			Msg("Backend returned an error")
		return nil, c.fail(span, backendErr)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(span, &domain.BackendError{Op: req.op, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)})
	}

	c.log.Debug().
		Str("op", req.op).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("duration", time.Since(started)).
		Msg("Backend request completed")

	return raw, nil
}

// getJSON executes req and decodes the JSON answer into out
func (c *Client) getJSON(ctx context.Context, req request, out interface{}) error {
	raw, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &domain.BackendError{Op: req.op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (c *Client) fail(span trace.Span, err *domain.BackendError) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// extractMessage pulls the human-readable message out of a backend error body.
// The services answer with {"mensaje": ...}, {"message": ...} or {"error": ...},
// or with a short plain-text body.
func extractMessage(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}

	if trimmed[0] == '{' {
		var fields map[string]interface{}
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return ""
		}
		for _, key := range []string{"mensaje", "message", "error"} {
			if s, ok := fields[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		return ""
	}

	if trimmed[0] == '<' || trimmed[0] == '[' {
		return ""
	}

	text := string(trimmed)
	if len(text) > maxTextMessage {
		return ""
	}
	return text
}

// textMessage turns a plain-text success body into a message
func textMessage(raw []byte, fallback string) string {
	if msg := extractMessage(raw); msg != "" {
		return msg
	}
	return fallback
}
