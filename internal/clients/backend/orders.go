package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aristath/paperdesk/internal/domain"
)

const ordersPath = "/api/ordenes-comisionista"

// SubmitOrder relays an agent's order to the recipient trader.
// Optional fields travel only when set; the backend treats an absent
// parameter differently from an empty one.
func (c *Client) SubmitOrder(ctx context.Context, sub domain.OrderSubmission) (*domain.SubmitReceipt, error) {
	q := url.Values{}
	q.Set("idComisionista", strconv.FormatInt(sub.IssuerID, 10))
	q.Set("idTrader", strconv.FormatInt(sub.RecipientID, 10))
	q.Set("simbolo", sub.Symbol)
	q.Set("cantidad", strconv.Itoa(sub.Quantity))
	if sub.CompanyName != "" {
		q.Set("nombreEmpresa", sub.CompanyName)
	}
	if sub.LimitPrice != nil && sub.LimitPrice.IsPositive() {
		q.Set("precioLimite", sub.LimitPrice.String())
	}
	if sub.Message != "" {
		q.Set("mensaje", sub.Message)
	}

	const op = "submit_order"
	var resp submitResponseDTO
	if err := c.getJSON(ctx, request{
		op:     op,
		method: http.MethodPost,
		base:   c.marketURL,
		path:   ordersPath + "/enviar",
		query:  q,
	}, &resp); err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, &domain.BackendError{Op: op, Status: http.StatusBadRequest, Message: resp.Mensaje}
	}

	receipt := &domain.SubmitReceipt{
		Message: resp.Mensaje,
		OrderID: resp.OrdenID,
	}
	if resp.Orden != nil {
		order, err := resp.Orden.toDomain()
		if err != nil {
			c.log.Warn().Err(err).Msg("Submitted order payload not understood")
		} else {
			receipt.Order = &order
			if receipt.OrderID == nil {
				id := order.ID
				receipt.OrderID = &id
			}
		}
	}
	return receipt, nil
}

// OrdersByRecipient lists the orders addressed to a trader
func (c *Client) OrdersByRecipient(ctx context.Context, recipientID int64) ([]domain.Order, error) {
	return c.listOrders(ctx, "orders_by_recipient", ordersPath+"/trader/"+strconv.FormatInt(recipientID, 10))
}

// OrdersByIssuer lists the orders an agent has sent
func (c *Client) OrdersByIssuer(ctx context.Context, issuerID int64) ([]domain.Order, error) {
	return c.listOrders(ctx, "orders_by_issuer", ordersPath+"/comisionista/"+strconv.FormatInt(issuerID, 10))
}

func (c *Client) listOrders(ctx context.Context, op, path string) ([]domain.Order, error) {
	var dtos []orderDTO
	if err := c.getJSON(ctx, request{op: op, method: http.MethodGet, base: c.marketURL, path: path}, &dtos); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(dtos))
	for _, dto := range dtos {
		order, err := dto.toDomain()
		if err != nil {
			c.log.Warn().Err(err).Str("op", op).Msg("Skipping order with unreadable payload")
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// AcceptOrder asks the backend to accept a pending order, which triggers the
// automatic buy on the trader's account
func (c *Client) AcceptOrder(ctx context.Context, orderID int64) (string, error) {
	return c.resolveOrder(ctx, "accept_order", orderID, "aceptar", "Order accepted")
}

// RejectOrder asks the backend to reject a pending order
func (c *Client) RejectOrder(ctx context.Context, orderID int64) (string, error) {
	return c.resolveOrder(ctx, "reject_order", orderID, "rechazar", "Order rejected")
}

func (c *Client) resolveOrder(ctx context.Context, op string, orderID int64, action, fallback string) (string, error) {
	raw, err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		base:   c.marketURL,
		path:   ordersPath + "/" + strconv.FormatInt(orderID, 10) + "/" + action,
	})
	if err != nil {
		return "", err
	}

	result, isJSON := decodeResult(raw)
	if !isJSON {
		return textMessage(raw, fallback), nil
	}
	if !result.ok() {
		return "", &domain.BackendError{Op: op, Status: http.StatusConflict, Message: result.message()}
	}
	if msg := result.message(); msg != "" {
		return msg, nil
	}
	return fallback, nil
}
