// Package orders relays commission-agent orders to traders and resolves them.
package orders

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/paperdesk/internal/domain"
	"github.com/aristath/paperdesk/internal/events"
	"github.com/aristath/paperdesk/internal/session"
)

// DraftStore persists an agent's unsent order
type DraftStore interface {
	SaveOrderDraft(issuerID int64, draft domain.OrderDraft) error
	OrderDraft(issuerID int64) (*domain.OrderDraft, error)
	ClearOrderDraft(issuerID int64) error
}

// TraderDirectory reports which traders are linked to an agent
type TraderDirectory interface {
	AssociatedTraders(ctx context.Context, agentID int64) ([]domain.AssociatedTrader, error)
}

// DispatchService submits orders on behalf of agents and lists orders.
type DispatchService struct {
	backend      domain.OrderBackend
	traders      TraderDirectory
	drafts       DraftStore
	book         *Book
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewDispatchService creates a new dispatch service
func NewDispatchService(
	backend domain.OrderBackend,
	traders TraderDirectory,
	drafts DraftStore,
	book *Book,
	eventManager *events.Manager,
	log zerolog.Logger,
) *DispatchService {
	return &DispatchService{
		backend:      backend,
		traders:      traders,
		drafts:       drafts,
		book:         book,
		eventManager: eventManager,
		log:          log.With().Str("service", "order_dispatch").Logger(),
	}
}

// Normalize validates a draft and turns it into a submission.
// The symbol is trimmed and upper-cased; empty optionals and a zero limit
// price are dropped so they never reach the backend.
func Normalize(issuerID int64, draft domain.OrderDraft) (domain.OrderSubmission, error) {
	if draft.RecipientID <= 0 {
		return domain.OrderSubmission{}, domain.NewValidationError("recipient_id", "a trader must be selected")
	}
	symbol := strings.ToUpper(strings.TrimSpace(draft.Symbol))
	if symbol == "" {
		return domain.OrderSubmission{}, domain.NewValidationError("symbol", "symbol is required")
	}
	if draft.Quantity <= 0 {
		return domain.OrderSubmission{}, domain.NewValidationError("quantity", "quantity must be a positive integer")
	}

	sub := domain.OrderSubmission{
		IssuerID:    issuerID,
		RecipientID: draft.RecipientID,
		Symbol:      symbol,
		Quantity:    draft.Quantity,
		CompanyName: strings.TrimSpace(draft.CompanyName),
		Message:     strings.TrimSpace(draft.Message),
	}

	if draft.LimitPrice != nil {
		switch {
		case draft.LimitPrice.IsNegative():
			return domain.OrderSubmission{}, domain.NewValidationError("limit_price", "limit price must be positive")
		case draft.LimitPrice.IsPositive():
			limit := *draft.LimitPrice
			sub.LimitPrice = &limit
		}
	}
	return sub, nil
}

// Submit validates the draft and relays it to the recipient trader.
// Only agents may submit. The saved draft is cleared on success.
func (s *DispatchService) Submit(ctx context.Context, draft domain.OrderDraft) (*domain.SubmitReceipt, error) {
	sess, err := session.RequireRole(ctx, domain.RoleAgent)
	if err != nil {
		return nil, err
	}

	sub, err := Normalize(sess.UserID, draft)
	if err != nil {
		return nil, err
	}

	receipt, err := s.backend.SubmitOrder(ctx, sub)
	if err != nil {
		s.log.Warn().
			Err(err).
			Int64("issuer_id", sub.IssuerID).
			Int64("recipient_id", sub.RecipientID).
			Str("symbol", sub.Symbol).
			Msg("Order submission failed")
		return nil, submitError(err)
	}

	if s.drafts != nil {
		if err := s.drafts.ClearOrderDraft(sess.UserID); err != nil {
			s.log.Warn().Err(err).Int64("issuer_id", sess.UserID).Msg("Failed to clear order draft")
		}
	}

	var orderID int64
	if receipt.OrderID != nil {
		orderID = *receipt.OrderID
	}
	s.log.Info().
		Int64("order_id", orderID).
		Int64("issuer_id", sub.IssuerID).
		Int64("recipient_id", sub.RecipientID).
		Str("symbol", sub.Symbol).
		Int("quantity", sub.Quantity).
		Msg("Order submitted")

	if s.eventManager != nil {
		s.eventManager.EmitTyped("orders", &events.OrderSubmittedData{
			OrderID:     orderID,
			IssuerID:    sub.IssuerID,
			RecipientID: sub.RecipientID,
			Symbol:      sub.Symbol,
			Quantity:    sub.Quantity,
		})
	}
	return receipt, nil
}

// submitError gives a backend failure the message the agent sees:
// the backend's own text, "invalid data" for a bare 400, or a generic
// "could not submit" for everything else.
func submitError(err error) error {
	var backendErr *domain.BackendError
	if !errors.As(err, &backendErr) || backendErr.Message != "" {
		return err
	}
	mapped := *backendErr
	if mapped.Status == http.StatusBadRequest {
		mapped.Message = domain.MsgInvalidData
	} else {
		mapped.Message = domain.MsgCouldNotSubmit
	}
	return &mapped
}

// SaveDraft stores the agent's in-progress order
func (s *DispatchService) SaveDraft(ctx context.Context, draft domain.OrderDraft) error {
	sess, err := session.RequireRole(ctx, domain.RoleAgent)
	if err != nil {
		return err
	}
	if s.drafts == nil {
		return nil
	}
	if err := s.drafts.SaveOrderDraft(sess.UserID, draft); err != nil {
		return fmt.Errorf("failed to save order draft: %w", err)
	}
	return nil
}

// Draft returns the agent's saved draft, or nil
func (s *DispatchService) Draft(ctx context.Context) (*domain.OrderDraft, error) {
	sess, err := session.RequireRole(ctx, domain.RoleAgent)
	if err != nil {
		return nil, err
	}
	if s.drafts == nil {
		return nil, nil
	}
	draft, err := s.drafts.OrderDraft(sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order draft: %w", err)
	}
	return draft, nil
}

// ListForTrader returns the orders addressed to a trader, newest first.
// A trader may only list their own orders; agents may look at the traders
// linked to them.
func (s *DispatchService) ListForTrader(ctx context.Context, recipientID int64) ([]domain.Order, error) {
	sess, err := session.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if recipientID <= 0 {
		return nil, domain.NewValidationError("recipient_id", "trader id is required")
	}
	if sess.UserID != recipientID {
		if err := s.checkLinked(ctx, sess, recipientID); err != nil {
			return nil, err
		}
	}

	orders, err := s.backend.OrdersByRecipient(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	domain.SortNewestFirst(orders)
	s.book.ReplaceRecipient(recipientID, orders)
	return orders, nil
}

func (s *DispatchService) checkLinked(ctx context.Context, sess session.Session, traderID int64) error {
	if !sess.IsAgent() || s.traders == nil {
		return domain.ErrRoleNotPermitted
	}
	linked, err := s.traders.AssociatedTraders(ctx, sess.UserID)
	if err != nil {
		return err
	}
	for _, t := range linked {
		if t.ID == traderID {
			return nil
		}
	}
	s.log.Warn().
		Int64("agent_id", sess.UserID).
		Int64("trader_id", traderID).
		Msg("Agent asked for orders of an unlinked trader")
	return domain.ErrRoleNotPermitted
}

// ListForIssuer returns the orders an agent has sent, newest first.
func (s *DispatchService) ListForIssuer(ctx context.Context, issuerID int64) ([]domain.Order, error) {
	sess, err := session.RequireRole(ctx, domain.RoleAgent)
	if err != nil {
		return nil, err
	}
	if issuerID <= 0 {
		return nil, domain.NewValidationError("issuer_id", "agent id is required")
	}
	if sess.UserID != issuerID {
		return nil, domain.ErrRoleNotPermitted
	}

	orders, err := s.backend.OrdersByIssuer(ctx, issuerID)
	if err != nil {
		return nil, err
	}
	domain.SortNewestFirst(orders)
	s.book.ReplaceIssuer(issuerID, orders)
	return orders, nil
}
