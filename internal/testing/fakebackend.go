package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/aristath/paperdesk/internal/domain"
)

const wireTimeLayout = "2006-01-02T15:04:05"

// FakeBackend is an in-memory stand-in for the users and market services.
// It speaks the same wire format as the real services. Accepted orders
// execute on the next listing that includes them, filling at the current
// price unless that price is above the order's limit.
type FakeBackend struct {
	server *httptest.Server

	mu         sync.Mutex
	nextID     int64
	orders     []*fakeOrder
	prices     map[string]decimal.Decimal
	names      map[string]string
	positions  map[int64][]domain.Position
	agents     map[int64]domain.Agent
	links      map[int64]int64
	resolution int
}

type fakeOrder struct {
	created   time.Time
	accepted  time.Time
	executed  time.Time
	limit     *decimal.Decimal
	execPrice *decimal.Decimal
	symbol    string
	company   string
	message   string
	state     string
	errMsg    string
	id        int64
	issuer    int64
	trader    int64
	quantity  int
}

// NewFakeBackend starts a fake backend seeded with the instrument fixtures.
// The server is closed when the test finishes.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	f := &FakeBackend{
		nextID:    100,
		prices:    make(map[string]decimal.Decimal),
		names:     make(map[string]string),
		positions: make(map[int64][]domain.Position),
		agents:    make(map[int64]domain.Agent),
		links:     make(map[int64]int64),
	}
	for _, q := range NewQuoteFixtures() {
		f.SetPrice(q.Symbol, q.CompanyName, q.Price)
	}
	for _, a := range NewAgentFixtures() {
		f.agents[a.ID] = a
	}

	f.server = httptest.NewServer(f.routes())
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the base URL serving both the users and market paths
func (f *FakeBackend) URL() string {
	return f.server.URL
}

// SetPrice sets the current price of a symbol
func (f *FakeBackend) SetPrice(symbol, name string, price decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	symbol = strings.ToUpper(symbol)
	f.prices[symbol] = price
	f.names[symbol] = name
}

// SeedOrders adds existing orders. Orders with an ID keep it.
func (f *FakeBackend) SeedOrders(orders ...domain.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range orders {
		id := o.ID
		if id == 0 {
			f.nextID++
			id = f.nextID
		}
		f.orders = append(f.orders, &fakeOrder{
			created:   o.CreatedAt,
			limit:     o.LimitPrice,
			execPrice: o.ExecutionPrice,
			symbol:    o.Symbol,
			company:   o.CompanyName,
			message:   o.Message,
			state:     wireState(o.State),
			errMsg:    o.ErrorMessage,
			id:        id,
			issuer:    o.IssuerID,
			trader:    o.RecipientID,
			quantity:  o.Quantity,
		})
	}
}

// SeedPositions replaces a trader's open positions
func (f *FakeBackend) SeedPositions(traderID int64, positions ...domain.Position) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions[traderID] = append([]domain.Position(nil), positions...)
}

// OrderState reports the wire state of an order, or "" when unknown
func (f *FakeBackend) OrderState(orderID int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o := f.find(orderID); o != nil {
		return o.state
	}
	return ""
}

// SetOrderState changes an order's state without going through the API
func (f *FakeBackend) SetOrderState(orderID int64, state domain.OrderState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o := f.find(orderID); o != nil {
		o.state = wireState(state)
	}
}

// ResolutionCalls counts accept and reject requests received
func (f *FakeBackend) ResolutionCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolution
}

func (f *FakeBackend) routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api/ordenes-comisionista", func(r chi.Router) {
		r.Post("/enviar", f.handleSubmit)
		r.Get("/trader/{id}", f.handleList(func(o *fakeOrder, id int64) bool { return o.trader == id }))
		r.Get("/comisionista/{id}", f.handleList(func(o *fakeOrder, id int64) bool { return o.issuer == id }))
		r.Post("/{id}/aceptar", f.handleResolve("ACEPTADA", "Orden aceptada"))
		r.Post("/{id}/rechazar", f.handleResolve("RECHAZADA", "Orden rechazada"))
	})

	r.Route("/api/mercado-colombia", func(r chi.Router) {
		r.Get("/listado", f.handleListing)
		r.Get("/accion/{symbol}", f.handleQuote)
		r.Get("/paper/posiciones", f.handlePositions)
	})

	r.Route("/comisionistas", func(r chi.Router) {
		r.Get("/listado", f.handleAgents)
		r.Post("/vincular", f.handleLink)
		r.Get("/traders/{id}", f.handleTraders)
		r.Get("/{id}", f.handleAgent)
	})

	return r
}

func (f *FakeBackend) handleSubmit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	issuer, errIssuer := strconv.ParseInt(q.Get("idComisionista"), 10, 64)
	trader, errTrader := strconv.ParseInt(q.Get("idTrader"), 10, 64)
	quantity, errQty := strconv.Atoi(q.Get("cantidad"))
	symbol := strings.ToUpper(q.Get("simbolo"))
	if errIssuer != nil || errTrader != nil || errQty != nil || symbol == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "mensaje": "Datos inválidos"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.prices[symbol]; !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "mensaje": "Acción no encontrada: " + symbol})
		return
	}

	f.nextID++
	o := &fakeOrder{
		created:  time.Now(),
		symbol:   symbol,
		company:  q.Get("nombreEmpresa"),
		message:  q.Get("mensaje"),
		state:    "PENDIENTE_APROBACION",
		id:       f.nextID,
		issuer:   issuer,
		trader:   trader,
		quantity: quantity,
	}
	if o.company == "" {
		o.company = f.names[symbol]
	}
	if raw := q.Get("precioLimite"); raw != "" {
		limit, err := decimal.NewFromString(raw)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "mensaje": "Precio límite inválido"})
			return
		}
		o.limit = &limit
	}
	f.orders = append(f.orders, o)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"mensaje": "Orden enviada al trader",
		"ordenId": o.id,
		"orden":   o.wire(),
	})
}

func (f *FakeBackend) handleList(match func(*fakeOrder, int64) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.settle()
		out := make([]wireOrder, 0)
		for _, o := range f.orders {
			if match(o, id) {
				out = append(out, o.wire())
			}
		}
		f.mu.Unlock()

		writeJSON(w, http.StatusOK, out)
	}
}

func (f *FakeBackend) handleResolve(target, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		f.resolution++

		o := f.find(id)
		if o == nil {
			http.Error(w, "Orden no encontrada", http.StatusNotFound)
			return
		}
		if o.state != "PENDIENTE_APROBACION" {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": false,
				"mensaje": fmt.Sprintf("La orden %d no está pendiente de aprobación", id),
			})
			return
		}

		o.state = target
		if target == "ACEPTADA" {
			o.accepted = time.Now()
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "mensaje": message})
	}
}

// settle executes accepted orders. Callers hold f.mu.
func (f *FakeBackend) settle() {
	for _, o := range f.orders {
		if o.state != "ACEPTADA" {
			continue
		}
		price := f.prices[o.symbol]
		if o.limit != nil && price.GreaterThan(*o.limit) {
			o.state = "ERROR_EJECUCION"
			o.errMsg = "El precio de mercado supera el precio límite"
			continue
		}
		o.state = "EJECUTADA"
		o.executed = time.Now()
		o.execPrice = &price
		f.positions[o.trader] = append(f.positions[o.trader], domain.Position{
			ID:           o.id,
			Symbol:       o.symbol,
			CompanyName:  o.company,
			Quantity:     o.quantity,
			AveragePrice: price,
			PurchasedAt:  o.executed,
		})
	}
}

func (f *FakeBackend) find(id int64) *fakeOrder {
	for _, o := range f.orders {
		if o.id == id {
			return o
		}
	}
	return nil
}

func (f *FakeBackend) handleListing(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	symbols := make([]string, 0, len(f.prices))
	for symbol := range f.prices {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	out := make([]wireQuote, 0, len(symbols))
	for _, symbol := range symbols {
		out = append(out, f.quote(symbol))
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (f *FakeBackend) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	f.mu.Lock()
	_, ok := f.prices[symbol]
	quote := f.quote(symbol)
	f.mu.Unlock()

	if !ok {
		http.Error(w, "Acción no encontrada", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (f *FakeBackend) quote(symbol string) wireQuote {
	return wireQuote{
		Timestamp:    time.Now().Format(wireTimeLayout),
		PrecioActual: f.prices[symbol],
		Simbolo:      symbol,
		Nombre:       f.names[symbol],
	}
}

func (f *FakeBackend) handlePositions(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("usuarioId"), 10, 64)
	if err != nil {
		http.Error(w, "usuarioId requerido", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.settle()
	out := make([]wirePosition, 0, len(f.positions[userID]))
	for _, p := range f.positions[userID] {
		price := f.prices[p.Symbol]
		value := price.Mul(decimal.NewFromInt(int64(p.Quantity)))
		cost := p.AveragePrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
		out = append(out, wirePosition{
			FechaCompra:        p.PurchasedAt.Format(wireTimeLayout),
			PrecioPromedio:     p.AveragePrice,
			ValorMercadoActual: value,
			GananciaPerdida:    value.Sub(cost),
			Simbolo:            p.Symbol,
			NombreEmpresa:      p.CompanyName,
			ID:                 p.ID,
			Cantidad:           p.Quantity,
		})
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (f *FakeBackend) handleAgents(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("soloActivos") == "true"

	f.mu.Lock()
	ids := make([]int64, 0, len(f.agents))
	for id := range f.agents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]wireAgent, 0, len(ids))
	for _, id := range ids {
		a := f.agents[id]
		if activeOnly && !a.Active {
			continue
		}
		out = append(out, agentToWire(a))
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (f *FakeBackend) handleAgent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	a, ok := f.agents[id]
	f.mu.Unlock()

	if !ok {
		http.Error(w, "Comisionista no encontrado", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, agentToWire(a))
}

func (f *FakeBackend) handleLink(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	traderID, errTrader := strconv.ParseInt(q.Get("idUsuario"), 10, 64)
	agentID, errAgent := strconv.ParseInt(q.Get("idComisionista"), 10, 64)
	if errTrader != nil || errAgent != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "mensaje": "Datos inválidos"})
		return
	}

	f.mu.Lock()
	f.links[traderID] = agentID
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "mensaje": "Comisionista vinculado"})
}

func (f *FakeBackend) handleTraders(w http.ResponseWriter, r *http.Request) {
	agentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	traders := make([]int64, 0)
	for traderID, linked := range f.links {
		if linked == agentID {
			traders = append(traders, traderID)
		}
	}
	f.mu.Unlock()

	sort.Slice(traders, func(i, j int) bool { return traders[i] < traders[j] })
	out := make([]map[string]interface{}, 0, len(traders))
	for _, id := range traders {
		out = append(out, map[string]interface{}{
			"id":       id,
			"nombre":   "Trader",
			"apellido": strconv.FormatInt(id, 10),
			"rol":      "TRADER",
			"estado":   true,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type wireOrder struct {
	FechaCreacion   string           `json:"fechaCreacion"`
	FechaAceptacion *string          `json:"fechaAceptacion,omitempty"`
	FechaEjecucion  *string          `json:"fechaEjecucion,omitempty"`
	PrecioLimite    *decimal.Decimal `json:"precioLimite,omitempty"`
	PrecioEjecucion *decimal.Decimal `json:"precioEjecucion,omitempty"`
	Simbolo         string           `json:"simbolo"`
	NombreEmpresa   string           `json:"nombreEmpresa,omitempty"`
	Mensaje         string           `json:"mensaje,omitempty"`
	Estado          string           `json:"estado"`
	ErrorMensaje    string           `json:"errorMensaje,omitempty"`
	ID              int64            `json:"id"`
	IDComisionista  int64            `json:"idComisionista"`
	IDTrader        int64            `json:"idTrader"`
	Cantidad        int              `json:"cantidad"`
}

func (o *fakeOrder) wire() wireOrder {
	w := wireOrder{
		FechaCreacion:   o.created.Format(wireTimeLayout),
		PrecioLimite:    o.limit,
		PrecioEjecucion: o.execPrice,
		Simbolo:         o.symbol,
		NombreEmpresa:   o.company,
		Mensaje:         o.message,
		Estado:          o.state,
		ErrorMensaje:    o.errMsg,
		ID:              o.id,
		IDComisionista:  o.issuer,
		IDTrader:        o.trader,
		Cantidad:        o.quantity,
	}
	if !o.accepted.IsZero() {
		s := o.accepted.Format(wireTimeLayout)
		w.FechaAceptacion = &s
	}
	if !o.executed.IsZero() {
		s := o.executed.Format(wireTimeLayout)
		w.FechaEjecucion = &s
	}
	return w
}

type wireQuote struct {
	Timestamp    string          `json:"timestamp"`
	PrecioActual decimal.Decimal `json:"precioActual"`
	Simbolo      string          `json:"simbolo"`
	Nombre       string          `json:"nombre"`
}

type wirePosition struct {
	FechaCompra        string          `json:"fechaCompra"`
	PrecioPromedio     decimal.Decimal `json:"precioPromedio"`
	ValorMercadoActual decimal.Decimal `json:"valorMercadoActual"`
	GananciaPerdida    decimal.Decimal `json:"gananciaPerdida"`
	Simbolo            string          `json:"simbolo"`
	NombreEmpresa      string          `json:"nombreEmpresa"`
	ID                 int64           `json:"id"`
	Cantidad           int             `json:"cantidad"`
}

type wireAgent struct {
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Telefono string `json:"telefono"`
	Email    string `json:"email"`
	ID       int64  `json:"id"`
	Estado   bool   `json:"estado"`
}

func agentToWire(a domain.Agent) wireAgent {
	return wireAgent{
		Nombre:   a.FirstName,
		Apellido: a.LastName,
		Telefono: a.Phone,
		Email:    a.Email,
		ID:       a.ID,
		Estado:   a.Active,
	}
}

func wireState(s domain.OrderState) string {
	switch s {
	case domain.OrderStateAccepted:
		return "ACEPTADA"
	case domain.OrderStateExecuted:
		return "EJECUTADA"
	case domain.OrderStateRejected:
		return "RECHAZADA"
	case domain.OrderStateExecutionError:
		return "ERROR_EJECUCION"
	}
	return "PENDIENTE_APROBACION"
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
