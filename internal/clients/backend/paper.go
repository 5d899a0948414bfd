package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aristath/paperdesk/internal/domain"
)

const paperPath = "/api/mercado-colombia/paper"

func userQuery(userID int64) url.Values {
	q := url.Values{}
	q.Set("usuarioId", strconv.FormatInt(userID, 10))
	return q
}

// Positions returns the trader's open positions
func (c *Client) Positions(ctx context.Context, userID int64) ([]domain.Position, error) {
	var dtos []positionDTO
	if err := c.getJSON(ctx, request{
		op:     "positions",
		method: http.MethodGet,
		base:   c.marketURL,
		path:   paperPath + "/posiciones",
		query:  userQuery(userID),
	}, &dtos); err != nil {
		return nil, err
	}

	positions := make([]domain.Position, 0, len(dtos))
	for _, dto := range dtos {
		positions = append(positions, dto.toDomain())
	}
	return positions, nil
}

// Summary returns the backend-computed portfolio summary
func (c *Client) Summary(ctx context.Context, userID int64) (*domain.PortfolioSummary, error) {
	var dto summaryDTO
	if err := c.getJSON(ctx, request{
		op:     "portfolio_summary",
		method: http.MethodGet,
		base:   c.marketURL,
		path:   paperPath + "/resumen",
		query:  userQuery(userID),
	}, &dto); err != nil {
		return nil, err
	}
	summary := dto.toDomain()
	return &summary, nil
}

// Account returns the trader's paper account
func (c *Client) Account(ctx context.Context, userID int64) (*domain.Account, error) {
	var dto accountDTO
	if err := c.getJSON(ctx, request{
		op:     "account",
		method: http.MethodGet,
		base:   c.marketURL,
		path:   paperPath + "/cuenta",
		query:  userQuery(userID),
	}, &dto); err != nil {
		return nil, err
	}
	account := dto.toDomain()
	return &account, nil
}

// Transactions returns the account history as the backend orders it
func (c *Client) Transactions(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	const op = "transactions"
	var dtos []transactionDTO
	if err := c.getJSON(ctx, request{
		op:     op,
		method: http.MethodGet,
		base:   c.marketURL,
		path:   paperPath + "/historial",
		query:  userQuery(userID),
	}, &dtos); err != nil {
		return nil, err
	}

	txs := make([]domain.Transaction, 0, len(dtos))
	for _, dto := range dtos {
		tx, err := dto.toDomain()
		if err != nil {
			c.log.Warn().Err(err).Str("op", op).Msg("Skipping unreadable transaction")
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// Buy purchases shares at the current market price. The backend answers
// with a plain-text confirmation.
func (c *Client) Buy(ctx context.Context, req domain.BuyRequest) (string, error) {
	q := userQuery(req.UserID)
	q.Set("simbolo", req.Symbol)
	q.Set("nombreEmpresa", req.CompanyName)
	q.Set("cantidad", strconv.Itoa(req.Quantity))

	return c.trade(ctx, "buy", paperPath+"/comprar", q, "Purchase completed")
}

// Sell sells shares; the backend fetches the market price itself
func (c *Client) Sell(ctx context.Context, req domain.SellRequest) (string, error) {
	q := userQuery(req.UserID)
	q.Set("simbolo", req.Symbol)
	q.Set("cantidad", strconv.Itoa(req.Quantity))

	return c.trade(ctx, "sell", paperPath+"/vender", q, "Sale completed")
}

func (c *Client) trade(ctx context.Context, op, path string, q url.Values, fallback string) (string, error) {
	raw, err := c.do(ctx, request{op: op, method: http.MethodPost, base: c.marketURL, path: path, query: q})
	if err != nil {
		return "", err
	}

	result, isJSON := decodeResult(raw)
	if !isJSON {
		return textMessage(raw, fallback), nil
	}
	if !result.ok() {
		return "", &domain.BackendError{Op: op, Status: http.StatusBadRequest, Message: result.message()}
	}
	if msg := result.message(); msg != "" {
		return msg, nil
	}
	return fallback, nil
}

func decodeJSON(raw []byte, out interface{}) error {
	return json.Unmarshal(raw, out)
}

// decodeResult reads a {success, mensaje} style body. Plain-text bodies
// report isJSON=false.
func decodeResult(raw []byte) (resultDTO, bool) {
	var result resultDTO
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return result, false
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, false
	}
	return result, true
}
