// Package portfolio serves a trader's paper account: positions, summary,
// history, and market-price buys and sells.
package portfolio

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/paperdesk/internal/domain"
	"github.com/aristath/paperdesk/internal/events"
	"github.com/aristath/paperdesk/internal/session"
)

// PositionView is a position with its display-derived fields
type PositionView struct {
	domain.Position
	PricePerShare decimal.Decimal `json:"price_per_share"`
	DisplayPrice  string          `json:"display_price"`
	DerivedGain   decimal.Decimal `json:"derived_gain_loss"`
	StatusTone    domain.Tone     `json:"tone"`
	MaxSellShares int             `json:"max_sell_shares"`
}

// SummaryView is a summary with its display label and tone
type SummaryView struct {
	domain.PortfolioSummary
	StatusLabel string      `json:"status_label"`
	Tone        domain.Tone `json:"tone"`
}

// Service reads the paper account and relays trades to the backend.
// It never writes financial state itself.
type Service struct {
	backend      domain.PaperTradingBackend
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(backend domain.PaperTradingBackend, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		backend:      backend,
		eventManager: eventManager,
		log:          log.With().Str("service", "portfolio").Logger(),
	}
}

// Positions returns the acting user's positions with derived prices
func (s *Service) Positions(ctx context.Context) ([]PositionView, error) {
	sess, err := session.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	positions, err := s.backend.Positions(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	views := make([]PositionView, 0, len(positions))
	for _, p := range positions {
		gain := PositionGainLoss(p)
		views = append(views, PositionView{
			Position:      p,
			PricePerShare: DerivePricePerShare(p),
			DisplayPrice:  FormatPrice(p),
			DerivedGain:   gain,
			StatusTone:    DeriveSummaryStatus(gain).Tone(),
			MaxSellShares: p.Quantity,
		})
	}
	return views, nil
}

// Summary returns the backend summary, or one derived from the account and
// positions when the backend summary is unavailable.
func (s *Service) Summary(ctx context.Context) (*SummaryView, error) {
	sess, err := session.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := s.backend.Summary(ctx, sess.UserID)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", sess.UserID).Msg("Backend summary unavailable, deriving locally")
		derived, derr := s.deriveSummary(ctx, sess.UserID)
		if derr != nil {
			s.log.Warn().Err(derr).Int64("user_id", sess.UserID).Msg("Failed to derive summary")
			return nil, err
		}
		summary = derived
	}

	if summary.Status == "" {
		summary.Status = DeriveSummaryStatus(summary.GainLoss)
	}
	return &SummaryView{
		PortfolioSummary: *summary,
		StatusLabel:      summary.Status.Label(),
		Tone:             summary.Status.Tone(),
	}, nil
}

func (s *Service) deriveSummary(ctx context.Context, userID int64) (*domain.PortfolioSummary, error) {
	account, err := s.backend.Account(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	positions, err := s.backend.Positions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	summary := Summarize(*account, positions)
	return &summary, nil
}

// Account returns the acting user's paper account
func (s *Service) Account(ctx context.Context) (*domain.Account, error) {
	sess, err := session.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.backend.Account(ctx, sess.UserID)
}

// Transactions returns the account history, newest first
func (s *Service) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	sess, err := session.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	txs, err := s.backend.Transactions(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].ExecutedAt.After(txs[j].ExecutedAt)
	})
	return txs, nil
}

// Buy buys quantity shares at the current market price
func (s *Service) Buy(ctx context.Context, req domain.BuyRequest) (string, error) {
	sess, err := session.FromContext(ctx)
	if err != nil {
		return "", err
	}

	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		return "", domain.NewValidationError("symbol", "symbol is required")
	}
	if req.Quantity <= 0 {
		return "", domain.NewValidationError("quantity", "quantity must be a positive integer")
	}
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	if req.CompanyName == "" {
		req.CompanyName = req.Symbol
	}
	req.UserID = sess.UserID

	msg, err := s.backend.Buy(ctx, req)
	if err != nil {
		return "", err
	}

	s.log.Info().
		Int64("user_id", sess.UserID).
		Str("symbol", req.Symbol).
		Int("quantity", req.Quantity).
		Msg("Paper buy executed")
	s.emitTrade("BUY", sess.UserID, req.Symbol, req.Quantity, msg)
	return msg, nil
}

// Sell sells quantity shares of a held position. The quantity is checked
// against the current position before anything is sent.
func (s *Service) Sell(ctx context.Context, req domain.SellRequest) (string, error) {
	sess, err := session.FromContext(ctx)
	if err != nil {
		return "", err
	}

	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		return "", domain.NewValidationError("symbol", "symbol is required")
	}
	if req.Quantity <= 0 {
		return "", domain.NewValidationError("quantity", "quantity must be a positive integer")
	}

	positions, err := s.backend.Positions(ctx, sess.UserID)
	if err != nil {
		return "", err
	}
	var held *domain.Position
	for i := range positions {
		if positions[i].Symbol == req.Symbol {
			held = &positions[i]
			break
		}
	}
	if held == nil {
		return "", domain.NewValidationError("symbol", "no position held in "+req.Symbol)
	}
	if !ValidateSell(*held, req.Quantity) {
		return "", domain.NewValidationError("quantity", domain.MsgInsufficientShares)
	}
	req.UserID = sess.UserID

	msg, err := s.backend.Sell(ctx, req)
	if err != nil {
		return "", err
	}

	s.log.Info().
		Int64("user_id", sess.UserID).
		Str("symbol", req.Symbol).
		Int("quantity", req.Quantity).
		Msg("Paper sell executed")
	s.emitTrade("SELL", sess.UserID, req.Symbol, req.Quantity, msg)
	return msg, nil
}

func (s *Service) emitTrade(side string, userID int64, symbol string, quantity int, msg string) {
	if s.eventManager == nil {
		return
	}
	s.eventManager.EmitTyped("portfolio", &events.PositionTradedData{
		Side:     side,
		Symbol:   symbol,
		Message:  msg,
		UserID:   userID,
		Quantity: quantity,
	})
}
