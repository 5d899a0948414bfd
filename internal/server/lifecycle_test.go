package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/paperdesk/internal/config"
	"github.com/aristath/paperdesk/internal/di"
	"github.com/aristath/paperdesk/internal/domain"
	"github.com/aristath/paperdesk/internal/events"
	"github.com/aristath/paperdesk/internal/session"
	testingpkg "github.com/aristath/paperdesk/internal/testing"
)

const (
	agentID  = 3
	traderID = 7
)

type listedOrder struct {
	State       string `json:"state"`
	StateLabel  string `json:"state_label"`
	Symbol      string `json:"symbol"`
	ID          int64  `json:"id"`
	IssuerID    int64  `json:"issuer_id"`
	RecipientID int64  `json:"recipient_id"`
	Quantity    int    `json:"quantity"`
}

type orderListing struct {
	Orders []listedOrder `json:"orders"`
	Count  int           `json:"count"`
}

type observedStates struct {
	mu     sync.Mutex
	states map[int64][]string
}

func (o *observedStates) record(e *events.Event) {
	id, _ := e.Data["order_id"].(float64)
	state, _ := e.Data["state"].(string)
	o.mu.Lock()
	o.states[int64(id)] = append(o.states[int64(id)], state)
	o.mu.Unlock()
}

func (o *observedStates) of(orderID int64) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.states[orderID]...)
}

func setupLifecycle(t *testing.T) (*httptest.Server, *testingpkg.FakeBackend, *observedStates) {
	t.Helper()

	fake := testingpkg.NewFakeBackend(t)
	cfg := &config.Config{
		DataDir:          t.TempDir(),
		UsersServiceURL:  fake.URL(),
		MarketServiceURL: fake.URL(),
		Port:             8090,
		DevMode:          true,
		Backend: config.BackendConfig{
			Timeout:            2 * time.Second,
			AcceptRefreshDelay: 50 * time.Millisecond,
			RejectRefreshDelay: 30 * time.Millisecond,
		},
		Jobs: config.JobsConfig{
			QuoteWarmupSchedule:  "@every 5m",
			CacheCleanupSchedule: "@every 1h",
		},
	}

	container, jobs, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	observed := &observedStates{states: make(map[int64][]string)}
	container.EventBus.Subscribe(events.OrderStateObserved, observed.record)

	srv := New(Config{Log: zerolog.Nop(), Config: cfg, Container: container, Jobs: jobs})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, fake, observed
}

func call(t *testing.T, ts *httptest.Server, method, path string, userID int64, role string, body interface{}) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(session.HeaderUserID, fmt.Sprint(userID))
	req.Header.Set(session.HeaderUserRole, role)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func listReceived(t *testing.T, ts *httptest.Server) orderListing {
	t.Helper()
	status, raw := call(t, ts, http.MethodGet, "/api/orders/received", traderID, "TRADER", nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	var listing orderListing
	require.NoError(t, json.Unmarshal(raw, &listing))
	return listing
}

func submit(t *testing.T, ts *httptest.Server) int64 {
	t.Helper()
	status, raw := call(t, ts, http.MethodPost, "/api/orders", agentID, "AGENT", map[string]interface{}{
		"recipient_id": traderID,
		"symbol":       "EC",
		"quantity":     10,
	})
	require.Equal(t, http.StatusCreated, status, string(raw))

	var receipt struct {
		OrderID int64 `json:"order_id"`
	}
	require.NoError(t, json.Unmarshal(raw, &receipt))
	require.Positive(t, receipt.OrderID)
	return receipt.OrderID
}

func TestOrderLifecycle_SubmitAcceptExecute(t *testing.T) {
	ts, fake, observed := setupLifecycle(t)

	orderID := submit(t, ts)

	listing := listReceived(t, ts)
	require.Equal(t, 1, listing.Count)
	got := listing.Orders[0]
	assert.Equal(t, orderID, got.ID)
	assert.Equal(t, "PENDING_APPROVAL", got.State)
	assert.Equal(t, "Pending approval", got.StateLabel)
	assert.Equal(t, "EC", got.Symbol)
	assert.Equal(t, 10, got.Quantity)
	assert.Equal(t, int64(agentID), got.IssuerID)
	assert.Equal(t, int64(traderID), got.RecipientID)

	status, raw := call(t, ts, http.MethodPost, fmt.Sprintf("/api/orders/%d/accept", orderID), traderID, "TRADER", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	var result struct {
		Action       string `json:"action"`
		RefreshAfter int64  `json:"refresh_after_ms"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, "accept", result.Action)
	assert.Equal(t, int64(50), result.RefreshAfter)

	// The delayed re-list reports the order past PENDING_APPROVAL
	assert.Eventually(t, func() bool { return len(observed.of(orderID)) > 0 }, 2*time.Second, 10*time.Millisecond)
	for _, state := range observed.of(orderID) {
		assert.NotEqual(t, "PENDING_APPROVAL", state)
	}

	for i := 0; i < 3; i++ {
		listing = listReceived(t, ts)
		require.Equal(t, 1, listing.Count)
		assert.Equal(t, "EXECUTED", listing.Orders[0].State)
	}
	assert.Equal(t, "EJECUTADA", fake.OrderState(orderID))

	// A second accept is refused locally without reaching the backend
	calls := fake.ResolutionCalls()
	status, _ = call(t, ts, http.MethodPost, fmt.Sprintf("/api/orders/%d/accept", orderID), traderID, "TRADER", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, calls, fake.ResolutionCalls())

	status, raw = call(t, ts, http.MethodGet, "/api/portfolio/positions", traderID, "TRADER", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	var positions struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(raw, &positions))
	assert.Equal(t, 1, positions.Count)
}

func TestOrderLifecycle_Reject(t *testing.T) {
	ts, fake, observed := setupLifecycle(t)

	orderID := submit(t, ts)
	require.Equal(t, "PENDING_APPROVAL", listReceived(t, ts).Orders[0].State)

	status, raw := call(t, ts, http.MethodPost, fmt.Sprintf("/api/orders/%d/reject", orderID), traderID, "TRADER", nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	assert.Eventually(t, func() bool {
		states := observed.of(orderID)
		return len(states) > 0 && states[len(states)-1] == "REJECTED"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "RECHAZADA", fake.OrderState(orderID))
	assert.Equal(t, "REJECTED", listReceived(t, ts).Orders[0].State)
}

func TestOrderLifecycle_BackendRefusesStaleResolution(t *testing.T) {
	ts, fake, _ := setupLifecycle(t)
	fake.SeedOrders(testingpkg.NewOrderFixtures(agentID, traderID)[0])
	require.Equal(t, "PENDING_APPROVAL", listReceived(t, ts).Orders[0].State)

	// Rejected behind our back after the book last saw it pending
	fake.SetOrderState(11, domain.OrderStateRejected)

	status, raw := call(t, ts, http.MethodPost, "/api/orders/11/accept", traderID, "TRADER", nil)
	assert.Equal(t, http.StatusConflict, status, string(raw))
	assert.Equal(t, 1, fake.ResolutionCalls())
	assert.Equal(t, "RECHAZADA", fake.OrderState(11))
}

func TestOrderLifecycle_EmptyBookRefusesResolvedOrder(t *testing.T) {
	ts, fake, _ := setupLifecycle(t)
	fake.SeedOrders(testingpkg.NewOrderFixtures(agentID, traderID)[2])

	// The book has never listed trader 7, so resolving lists first
	status, raw := call(t, ts, http.MethodPost, "/api/orders/13/accept", traderID, "TRADER", nil)
	assert.Equal(t, http.StatusConflict, status, string(raw))
	assert.Equal(t, 0, fake.ResolutionCalls())
	assert.Equal(t, "RECHAZADA", fake.OrderState(13))
}

func TestOrderLifecycle_ForeignOrderWithEmptyBook(t *testing.T) {
	ts, fake, observed := setupLifecycle(t)

	orderID := submit(t, ts)

	for _, action := range []string{"accept", "reject"} {
		status, raw := call(t, ts, http.MethodPost, fmt.Sprintf("/api/orders/%d/%s", orderID, action), 8, "TRADER", nil)
		assert.Equal(t, http.StatusNotFound, status, string(raw))
	}
	assert.Equal(t, 0, fake.ResolutionCalls())
	assert.Equal(t, "PENDIENTE_APROBACION", fake.OrderState(orderID))

	// Nothing was scheduled for the wrong trader
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, observed.of(orderID))
	assert.Equal(t, "PENDING_APPROVAL", listReceived(t, ts).Orders[0].State)
}

func TestOrderLifecycle_RolesAndOwnership(t *testing.T) {
	ts, fake, _ := setupLifecycle(t)
	fake.SeedOrders(testingpkg.NewOrderFixtures(agentID, traderID)...)

	// Traders cannot submit
	status, _ := call(t, ts, http.MethodPost, "/api/orders", traderID, "TRADER", map[string]interface{}{
		"recipient_id": 8, "symbol": "EC", "quantity": 1,
	})
	assert.Equal(t, http.StatusForbidden, status)

	// Another trader cannot see or resolve these orders
	status, _ = call(t, ts, http.MethodGet, fmt.Sprintf("/api/orders/received?trader_id=%d", traderID), 8, "TRADER", nil)
	assert.Equal(t, http.StatusForbidden, status)

	listReceived(t, ts)
	status, _ = call(t, ts, http.MethodPost, "/api/orders/11/accept", 8, "TRADER", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "PENDIENTE_APROBACION", fake.OrderState(11))

	// Agents only see the traders linked to them
	path := fmt.Sprintf("/api/orders/received?trader_id=%d", traderID)
	status, _ = call(t, ts, http.MethodGet, path, agentID, "AGENT", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, raw := call(t, ts, http.MethodPost, fmt.Sprintf("/api/agents/%d/link", agentID), traderID, "TRADER", nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	status, raw = call(t, ts, http.MethodGet, path, agentID, "AGENT", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	var listing orderListing
	require.NoError(t, json.Unmarshal(raw, &listing))
	assert.Equal(t, 4, listing.Count)

	status, _ = call(t, ts, http.MethodGet, path, 4, "AGENT", nil)
	assert.Equal(t, http.StatusForbidden, status)

	// No session at all
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/orders/received", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOrderLifecycle_SentListNewestFirst(t *testing.T) {
	ts, fake, _ := setupLifecycle(t)
	fake.SeedOrders(testingpkg.NewOrderFixtures(agentID, traderID)...)

	status, raw := call(t, ts, http.MethodGet, "/api/orders/sent", agentID, "AGENT", nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	var listing orderListing
	require.NoError(t, json.Unmarshal(raw, &listing))
	require.Equal(t, 4, listing.Count)
	ids := make([]int64, 0, len(listing.Orders))
	for _, o := range listing.Orders {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []int64{11, 12, 13, 14}, ids)
	assert.Equal(t, "EXECUTION_ERROR", listing.Orders[3].State)
}

func TestAgents_LinkThroughBackend(t *testing.T) {
	ts, _, _ := setupLifecycle(t)

	status, raw := call(t, ts, http.MethodPost, "/api/agents/3/link", traderID, "TRADER", nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	status, _ = call(t, ts, http.MethodPost, "/api/agents/9/link", traderID, "TRADER", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, raw = call(t, ts, http.MethodGet, "/api/agents/traders", agentID, "AGENT", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Contains(t, string(raw), `"id":7`)
}

func TestPortfolioAndMarket_AgainstBackend(t *testing.T) {
	ts, fake, _ := setupLifecycle(t)
	fake.SeedPositions(8, testingpkg.NewPositionFixtures()...)

	status, raw := call(t, ts, http.MethodGet, "/api/portfolio/positions", 8, "TRADER", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	var positions struct {
		Positions []struct {
			Symbol   string `json:"symbol"`
			Quantity int    `json:"quantity"`
		} `json:"positions"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(raw, &positions))
	require.Equal(t, 2, positions.Count)
	assert.Equal(t, "EC", positions.Positions[0].Symbol)
	assert.Equal(t, 100, positions.Positions[0].Quantity)

	status, raw = call(t, ts, http.MethodGet, "/api/market/quotes/ec", 8, "TRADER", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Contains(t, string(raw), `"company_name":"Ecopetrol"`)

	status, _ = call(t, ts, http.MethodGet, "/api/market/quotes/NOPE", 8, "TRADER", nil)
	assert.Equal(t, http.StatusNotFound, status)
}
