package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/paperdesk/internal/domain"
)

// backendTime accepts the timestamp shapes the backend serializes:
// ISO local date-times with or without zone and fraction, plain dates,
// compact YYYYMMDD dates, and Jackson's array form [y, m, d, h, min, s, nanos].
type backendTime struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102",
}

func (t *backendTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	if data[0] == '[' {
		var parts []int
		if err := json.Unmarshal(data, &parts); err != nil {
			return fmt.Errorf("invalid time array: %w", err)
		}
		if len(parts) < 3 {
			return fmt.Errorf("invalid time array: %s", data)
		}
		for len(parts) < 7 {
			parts = append(parts, 0)
		}
		t.Time = time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], parts[6], time.UTC)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid time: %w", err)
	}
	parsed, err := parseBackendTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func parseBackendTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", s)
}

func (t *backendTime) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// Order states as the backend spells them
const (
	wireStatePending        = "PENDIENTE_APROBACION"
	wireStateAccepted       = "ACEPTADA"
	wireStateExecuted       = "EJECUTADA"
	wireStateRejected       = "RECHAZADA"
	wireStateExecutionError = "ERROR_EJECUCION"
)

func stateFromWire(s string) (domain.OrderState, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case wireStatePending:
		return domain.OrderStatePendingApproval, nil
	case wireStateAccepted:
		return domain.OrderStateAccepted, nil
	case wireStateExecuted:
		return domain.OrderStateExecuted, nil
	case wireStateRejected:
		return domain.OrderStateRejected, nil
	case wireStateExecutionError:
		return domain.OrderStateExecutionError, nil
	}
	return "", fmt.Errorf("unknown order state %q", s)
}

func stateToWire(s domain.OrderState) string {
	switch s {
	case domain.OrderStatePendingApproval:
		return wireStatePending
	case domain.OrderStateAccepted:
		return wireStateAccepted
	case domain.OrderStateExecuted:
		return wireStateExecuted
	case domain.OrderStateRejected:
		return wireStateRejected
	case domain.OrderStateExecutionError:
		return wireStateExecutionError
	}
	return string(s)
}

type orderDTO struct {
	FechaCreacion   backendTime      `json:"fechaCreacion"`
	FechaAceptacion *backendTime     `json:"fechaAceptacion"`
	FechaEjecucion  *backendTime     `json:"fechaEjecucion"`
	PrecioLimite    *decimal.Decimal `json:"precioLimite"`
	PrecioEjecucion *decimal.Decimal `json:"precioEjecucion"`
	Simbolo         string           `json:"simbolo"`
	NombreEmpresa   string           `json:"nombreEmpresa"`
	Mensaje         string           `json:"mensaje"`
	Estado          string           `json:"estado"`
	ErrorMensaje    string           `json:"errorMensaje"`
	ID              int64            `json:"id"`
	IDComisionista  int64            `json:"idComisionista"`
	IDTrader        int64            `json:"idTrader"`
	Cantidad        int              `json:"cantidad"`
}

func (d orderDTO) toDomain() (domain.Order, error) {
	state, err := stateFromWire(d.Estado)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %d: %w", d.ID, err)
	}

	limit := d.PrecioLimite
	if limit != nil && !limit.IsPositive() {
		limit = nil
	}

	return domain.Order{
		ID:             d.ID,
		IssuerID:       d.IDComisionista,
		RecipientID:    d.IDTrader,
		Symbol:         strings.ToUpper(strings.TrimSpace(d.Simbolo)),
		CompanyName:    d.NombreEmpresa,
		Quantity:       d.Cantidad,
		LimitPrice:     limit,
		Message:        d.Mensaje,
		State:          state,
		CreatedAt:      d.FechaCreacion.Time,
		AcceptedAt:     d.FechaAceptacion.ptr(),
		ExecutedAt:     d.FechaEjecucion.ptr(),
		ExecutionPrice: d.PrecioEjecucion,
		ErrorMessage:   d.ErrorMensaje,
	}, nil
}

type submitResponseDTO struct {
	Orden   *orderDTO `json:"orden"`
	OrdenID *int64    `json:"ordenId"`
	Mensaje string    `json:"mensaje"`
	Success bool      `json:"success"`
}

type resultDTO struct {
	Success *bool  `json:"success"`
	Exitoso *bool  `json:"exitoso"`
	Mensaje string `json:"mensaje"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// ok reports the explicit success flag, defaulting to true when absent
func (r resultDTO) ok() bool {
	if r.Success != nil {
		return *r.Success
	}
	if r.Exitoso != nil {
		return *r.Exitoso
	}
	return true
}

func (r resultDTO) message() string {
	for _, m := range []string{r.Mensaje, r.Message, r.Error} {
		if s := strings.TrimSpace(m); s != "" {
			return s
		}
	}
	return ""
}

type positionDTO struct {
	FechaCompra        backendTime     `json:"fechaCompra"`
	PrecioPromedio     decimal.Decimal `json:"precioPromedio"`
	ValorMercadoActual decimal.Decimal `json:"valorMercadoActual"`
	GananciaPerdida    decimal.Decimal `json:"gananciaPerdida"`
	Simbolo            string          `json:"simbolo"`
	NombreEmpresa      string          `json:"nombreEmpresa"`
	ID                 int64           `json:"id"`
	Cantidad           int             `json:"cantidad"`
}

func (d positionDTO) toDomain() domain.Position {
	return domain.Position{
		ID:           d.ID,
		Symbol:       strings.ToUpper(strings.TrimSpace(d.Simbolo)),
		CompanyName:  d.NombreEmpresa,
		Quantity:     d.Cantidad,
		AveragePrice: d.PrecioPromedio,
		MarketValue:  d.ValorMercadoActual,
		GainLoss:     d.GananciaPerdida,
		PurchasedAt:  d.FechaCompra.Time,
	}
}

type summaryDTO struct {
	BalanceInicial    decimal.Decimal `json:"balanceInicial"`
	BalanceDisponible decimal.Decimal `json:"balanceDisponible"`
	ValorInvertido    decimal.Decimal `json:"valorInvertido"`
	ValorTotal        decimal.Decimal `json:"valorTotal"`
	GananciaPerdida   decimal.Decimal `json:"gananciaPerdida"`
	Porcentaje        decimal.Decimal `json:"porcentaje"`
	Estado            string          `json:"estado"`
	TotalAcciones     int             `json:"totalAcciones"`
	CantidadEmpresas  int             `json:"cantidadEmpresas"`
}

func (d summaryDTO) toDomain() domain.PortfolioSummary {
	return domain.PortfolioSummary{
		InitialBalance:   d.BalanceInicial,
		AvailableBalance: d.BalanceDisponible,
		InvestedValue:    d.ValorInvertido,
		TotalValue:       d.ValorTotal,
		GainLoss:         d.GananciaPerdida,
		Percentage:       d.Porcentaje,
		Status:           summaryStatusFromWire(d.Estado),
		SymbolCount:      d.CantidadEmpresas,
		TotalShares:      d.TotalAcciones,
	}
}

// summaryStatusFromWire maps GANANDO/PERDIENDO/NEUTRO; anything else is left
// empty so the caller derives it from the gain/loss sign.
func summaryStatusFromWire(s string) domain.SummaryStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GANANDO":
		return domain.SummaryStatusGaining
	case "PERDIENDO":
		return domain.SummaryStatusLosing
	case "NEUTRO":
		return domain.SummaryStatusNeutral
	}
	return ""
}

type accountDTO struct {
	FechaCreacion        backendTime     `json:"fechaCreacion"`
	BalanceInicial       decimal.Decimal `json:"balanceInicial"`
	BalanceActual        decimal.Decimal `json:"balanceActual"`
	BalanceDisponible    decimal.Decimal `json:"balanceDisponible"`
	BalanceInvertido     decimal.Decimal `json:"balanceInvertido"`
	GananciaPerdidaTotal decimal.Decimal `json:"gananciaPerdidaTotal"`
	ID                   int64           `json:"id"`
	UsuarioID            int64           `json:"usuarioId"`
	Activa               bool            `json:"activa"`
}

func (d accountDTO) toDomain() domain.Account {
	return domain.Account{
		ID:               d.ID,
		UserID:           d.UsuarioID,
		InitialBalance:   d.BalanceInicial,
		CurrentBalance:   d.BalanceActual,
		AvailableBalance: d.BalanceDisponible,
		InvestedBalance:  d.BalanceInvertido,
		TotalGainLoss:    d.GananciaPerdidaTotal,
		CreatedAt:        d.FechaCreacion.Time,
		Active:           d.Activa,
	}
}

type transactionDTO struct {
	FechaTransaccion backendTime     `json:"fechaTransaccion"`
	PrecioUnitario   decimal.Decimal `json:"precioUnitario"`
	MontoTotal       decimal.Decimal `json:"montoTotal"`
	Comision         decimal.Decimal `json:"comision"`
	BalanceAnterior  decimal.Decimal `json:"balanceAnterior"`
	BalancePosterior decimal.Decimal `json:"balancePosterior"`
	Tipo             string          `json:"tipo"`
	Simbolo          string          `json:"simbolo"`
	ID               int64           `json:"id"`
	Cantidad         int             `json:"cantidad"`
}

func (d transactionDTO) toDomain() (domain.Transaction, error) {
	var side domain.TransactionType
	switch strings.ToUpper(strings.TrimSpace(d.Tipo)) {
	case "COMPRA":
		side = domain.TransactionBuy
	case "VENTA":
		side = domain.TransactionSell
	default:
		return domain.Transaction{}, fmt.Errorf("transaction %d: unknown type %q", d.ID, d.Tipo)
	}

	return domain.Transaction{
		ID:            d.ID,
		Type:          side,
		Symbol:        strings.ToUpper(strings.TrimSpace(d.Simbolo)),
		Quantity:      d.Cantidad,
		UnitPrice:     d.PrecioUnitario,
		TotalAmount:   d.MontoTotal,
		Commission:    d.Comision,
		BalanceBefore: d.BalanceAnterior,
		BalanceAfter:  d.BalancePosterior,
		ExecutedAt:    d.FechaTransaccion.Time,
	}, nil
}

type quoteDTO struct {
	Timestamp           backendTime     `json:"timestamp"`
	PrecioActual        decimal.Decimal `json:"precioActual"`
	PrecioAnterior      decimal.Decimal `json:"precioAnterior"`
	Variacion           decimal.Decimal `json:"variacion"`
	VariacionPorcentual decimal.Decimal `json:"variacionPorcentual"`
	Simbolo             string          `json:"simbolo"`
	Nombre              string          `json:"nombre"`
	Volumen             int64           `json:"volumen"`
}

func (d quoteDTO) toDomain() domain.Quote {
	change := d.Variacion
	if change.IsZero() && !d.PrecioAnterior.IsZero() {
		change = d.PrecioActual.Sub(d.PrecioAnterior)
	}
	changePct := d.VariacionPorcentual
	if changePct.IsZero() && !d.PrecioAnterior.IsZero() {
		changePct = change.Div(d.PrecioAnterior).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return domain.Quote{
		Symbol:        strings.ToUpper(strings.TrimSpace(d.Simbolo)),
		CompanyName:   d.Nombre,
		Price:         d.PrecioActual,
		Change:        change,
		ChangePercent: changePct,
		Volume:        d.Volumen,
		UpdatedAt:     d.Timestamp.Time,
	}
}

type pricePointDTO struct {
	Fecha          backendTime     `json:"fecha"`
	PrecioCierre   decimal.Decimal `json:"precioCierre"`
	PrecioApertura decimal.Decimal `json:"precioApertura"`
	PrecioMaximo   decimal.Decimal `json:"precioMaximo"`
	PrecioMinimo   decimal.Decimal `json:"precioMinimo"`
	Volumen        int64           `json:"volumen"`
}

type priceHistoryDTO struct {
	Simbolo     string          `json:"simbolo"`
	Periodo     string          `json:"periodo"`
	Message     string          `json:"message"`
	Datos       []pricePointDTO `json:"datos"`
	TotalPuntos int             `json:"totalPuntos"`
	Success     bool            `json:"success"`
}

func (d priceHistoryDTO) toDomain() domain.PriceHistory {
	points := make([]domain.PricePoint, 0, len(d.Datos))
	for _, p := range d.Datos {
		points = append(points, domain.PricePoint{
			Date:   p.Fecha.Time,
			Open:   p.PrecioApertura,
			High:   p.PrecioMaximo,
			Low:    p.PrecioMinimo,
			Close:  p.PrecioCierre,
			Volume: p.Volumen,
		})
	}
	return domain.PriceHistory{
		Symbol: strings.ToUpper(strings.TrimSpace(d.Simbolo)),
		Period: d.Periodo,
		Points: points,
	}
}

type agentDTO struct {
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Telefono string `json:"telefono"`
	Email    string `json:"email"`
	ID       int64  `json:"id"`
	Estado   bool   `json:"estado"`
}

func (d agentDTO) toDomain() domain.Agent {
	return domain.Agent{
		ID:        d.ID,
		FirstName: d.Nombre,
		LastName:  d.Apellido,
		Phone:     d.Telefono,
		Email:     d.Email,
		Active:    d.Estado,
	}
}

type associatedTraderDTO struct {
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Email    string `json:"email"`
	Telefono string `json:"telefono"`
	Rol      string `json:"rol"`
	ID       int64  `json:"id"`
	Estado   bool   `json:"estado"`
}

func (d associatedTraderDTO) toDomain() domain.AssociatedTrader {
	return domain.AssociatedTrader{
		ID:        d.ID,
		FirstName: d.Nombre,
		LastName:  d.Apellido,
		Email:     d.Email,
		Phone:     d.Telefono,
		Role:      d.Rol,
		Active:    d.Estado,
	}
}

type profileDTO struct {
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Email    string `json:"email"`
	Telefono string `json:"telefono"`
	Rol      string `json:"rol"`
	ID       int64  `json:"id"`
	Estado   bool   `json:"estado"`
}

func (d profileDTO) toDomain() domain.Profile {
	return domain.Profile{
		ID:        d.ID,
		FirstName: d.Nombre,
		LastName:  d.Apellido,
		Email:     d.Email,
		Phone:     d.Telefono,
		Role:      d.Rol,
		Active:    d.Estado,
	}
}

type profileUpdateDTO struct {
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Email    string `json:"email"`
	Telefono string `json:"telefono"`
}
