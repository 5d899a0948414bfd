package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/aristath/paperdesk/internal/domain"
)

const marketPath = "/api/mercado-colombia"

// Listing returns the quotes of every instrument the backend tracks
func (c *Client) Listing(ctx context.Context) ([]domain.Quote, error) {
	var dtos []quoteDTO
	if err := c.getJSON(ctx, request{
		op:     "listing",
		method: http.MethodGet,
		base:   c.marketURL,
		path:   marketPath + "/listado",
	}, &dtos); err != nil {
		return nil, err
	}

	quotes := make([]domain.Quote, 0, len(dtos))
	for _, dto := range dtos {
		quotes = append(quotes, dto.toDomain())
	}
	return quotes, nil
}

// Quote returns the latest quote for one instrument. Instruments routed
// through a specific exchange (the US test symbols) carry it along.
func (c *Client) Quote(ctx context.Context, inst domain.Instrument) (*domain.Quote, error) {
	symbol := strings.ToUpper(strings.TrimSpace(inst.Symbol))
	var q url.Values
	if inst.Exchange != "" {
		q = url.Values{}
		q.Set("exchange", inst.Exchange)
		if inst.Currency != "" {
			q.Set("currency", inst.Currency)
		}
	}

	var dto quoteDTO
	if err := c.getJSON(ctx, request{
		op:     "quote",
		method: http.MethodGet,
		base:   c.marketURL,
		path:   marketPath + "/accion/" + url.PathEscape(symbol),
		query:  q,
	}, &dto); err != nil {
		return nil, err
	}

	quote := dto.toDomain()
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	if quote.CompanyName == "" {
		quote.CompanyName = inst.Name
	}
	return &quote, nil
}

// PriceHistory returns the daily bars for a symbol
func (c *Client) PriceHistory(ctx context.Context, symbol string) (*domain.PriceHistory, error) {
	const op = "price_history"
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	var dto priceHistoryDTO
	if err := c.getJSON(ctx, request{
		op:     op,
		method: http.MethodGet,
		base:   c.marketURL,
		path:   paperPath + "/historial-precios/" + url.PathEscape(symbol),
	}, &dto); err != nil {
		return nil, err
	}
	if !dto.Success {
		return nil, &domain.BackendError{Op: op, Status: http.StatusNotFound, Message: dto.Message}
	}

	history := dto.toDomain()
	if history.Symbol == "" {
		history.Symbol = symbol
	}
	return &history, nil
}
