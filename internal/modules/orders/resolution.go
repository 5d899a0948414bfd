package orders

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/paperdesk/internal/domain"
	"github.com/aristath/paperdesk/internal/events"
	"github.com/aristath/paperdesk/internal/session"
)

// Action is what the recipient does with a pending order
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

// target is the state the action moves a pending order to
func (a Action) target() domain.OrderState {
	switch a {
	case ActionAccept:
		return domain.OrderStateAccepted
	case ActionReject:
		return domain.OrderStateRejected
	}
	return ""
}

// Result is the outcome of an accept or reject
type Result struct {
	Action       Action `json:"action"`
	Message      string `json:"message"`
	OrderID      int64  `json:"order_id"`
	RefreshAfter int64  `json:"refresh_after_ms"`
}

// ResolutionService accepts and rejects orders on behalf of their recipient.
// Local order lists are never changed here; the refresher re-lists them
// once the backend has had time to run the automatic buy.
type ResolutionService struct {
	backend      domain.OrderBackend
	book         *Book
	inFlight     *InFlight
	refresher    *Refresher
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewResolutionService creates a new resolution service
func NewResolutionService(
	backend domain.OrderBackend,
	book *Book,
	inFlight *InFlight,
	refresher *Refresher,
	eventManager *events.Manager,
	log zerolog.Logger,
) *ResolutionService {
	return &ResolutionService{
		backend:      backend,
		book:         book,
		inFlight:     inFlight,
		refresher:    refresher,
		eventManager: eventManager,
		log:          log.With().Str("service", "order_resolution").Logger(),
	}
}

// Accept accepts a pending order, which makes the backend attempt the buy
func (s *ResolutionService) Accept(ctx context.Context, orderID int64) (*Result, error) {
	return s.resolve(ctx, orderID, ActionAccept)
}

// Reject rejects a pending order
func (s *ResolutionService) Reject(ctx context.Context, orderID int64) (*Result, error) {
	return s.resolve(ctx, orderID, ActionReject)
}

func (s *ResolutionService) resolve(ctx context.Context, orderID int64, action Action) (*Result, error) {
	sess, err := session.RequireRole(ctx, domain.RoleTrader)
	if err != nil {
		return nil, err
	}
	if orderID <= 0 {
		return nil, domain.NewValidationError("order_id", "order id is required")
	}

	release, err := s.inFlight.Acquire(orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	known, err := s.ownedOrder(ctx, sess.UserID, orderID)
	if err != nil {
		return nil, err
	}
	if !known.State.IsResolvable() {
		return nil, &domain.TransitionError{OrderID: orderID, From: known.State, To: action.target()}
	}

	var message string
	switch action {
	case ActionAccept:
		message, err = s.backend.AcceptOrder(ctx, orderID)
	case ActionReject:
		message, err = s.backend.RejectOrder(ctx, orderID)
	}
	if err != nil {
		s.log.Warn().
			Err(err).
			Int64("order_id", orderID).
			Str("action", string(action)).
			Msg("Order resolution failed")
		return nil, resolutionError(orderID, action, err)
	}

	s.log.Info().
		Int64("order_id", orderID).
		Int64("recipient_id", sess.UserID).
		Str("action", string(action)).
		Msg("Order resolved")

	if s.eventManager != nil {
		s.eventManager.EmitTyped("orders", &events.OrderResolvedData{
			Action:      string(action),
			Message:     message,
			OrderID:     orderID,
			RecipientID: sess.UserID,
		})
	}

	result := &Result{Action: action, Message: message, OrderID: orderID}
	if s.refresher != nil {
		s.refresher.Schedule(sess.UserID, orderID, action)
		result.RefreshAfter = s.refresher.DelayFor(action).Milliseconds()
	}
	return result, nil
}

// ownedOrder returns the order only if it was sent to recipientID. A book miss
// re-lists the recipient's orders so ownership never depends on cache state.
func (s *ResolutionService) ownedOrder(ctx context.Context, recipientID, orderID int64) (domain.Order, error) {
	if known, ok := s.book.Get(orderID); ok {
		if known.RecipientID != recipientID {
			return domain.Order{}, domain.ErrNotFound
		}
		return known, nil
	}

	list, err := s.backend.OrdersByRecipient(ctx, recipientID)
	if err != nil {
		return domain.Order{}, err
	}
	domain.SortNewestFirst(list)
	s.book.ReplaceRecipient(recipientID, list)

	for _, o := range list {
		if o.ID == orderID {
			return o, nil
		}
	}
	s.log.Warn().
		Int64("order_id", orderID).
		Int64("recipient_id", recipientID).
		Msg("Resolution refused for order outside the recipient's list")
	return domain.Order{}, domain.ErrNotFound
}

// resolutionError turns a backend refusal into a TransitionError carrying the
// backend's text. Transport and server failures stay BackendErrors.
func resolutionError(orderID int64, action Action, err error) error {
	var backendErr *domain.BackendError
	if !errors.As(err, &backendErr) {
		return err
	}
	switch backendErr.Status {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return &domain.TransitionError{
			OrderID: orderID,
			To:      action.target(),
			Message: backendErr.Message,
		}
	}
	return err
}
