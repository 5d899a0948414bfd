package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a trader's holding in one symbol, as reported by the backend
type Position struct {
	PurchasedAt  time.Time       `json:"purchased_at"`
	AveragePrice decimal.Decimal `json:"average_price"`
	MarketValue  decimal.Decimal `json:"market_value"`
	GainLoss     decimal.Decimal `json:"gain_loss"`
	Symbol       string          `json:"symbol"`
	CompanyName  string          `json:"company_name"`
	ID           int64           `json:"id"`
	Quantity     int             `json:"quantity"`
}

// SummaryStatus classifies a portfolio by the sign of its gain/loss
type SummaryStatus string

const (
	SummaryStatusGaining SummaryStatus = "GAINING"
	SummaryStatusLosing  SummaryStatus = "LOSING"
	SummaryStatusNeutral SummaryStatus = "NEUTRAL"
)

// Label is the display text for the status
func (s SummaryStatus) Label() string {
	switch s {
	case SummaryStatusGaining:
		return "Gaining"
	case SummaryStatusLosing:
		return "Losing"
	case SummaryStatusNeutral:
		return "Neutral"
	}
	return string(s)
}

// Tone maps the status to its colour
func (s SummaryStatus) Tone() Tone {
	switch s {
	case SummaryStatusGaining:
		return ToneSuccess
	case SummaryStatusLosing:
		return ToneDanger
	case SummaryStatusNeutral:
		return ToneMuted
	}
	return ToneMuted
}

// PortfolioSummary is the aggregate snapshot of a trader's paper account
type PortfolioSummary struct {
	InitialBalance   decimal.Decimal `json:"initial_balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	InvestedValue    decimal.Decimal `json:"invested_value"`
	TotalValue       decimal.Decimal `json:"total_value"`
	GainLoss         decimal.Decimal `json:"gain_loss"`
	Percentage       decimal.Decimal `json:"percentage"`
	Status           SummaryStatus   `json:"status"`
	SymbolCount      int             `json:"symbol_count"`
	TotalShares      int             `json:"total_shares"`
	// Derived is true when the summary was computed locally from the account
	// and positions because the backend summary was unavailable.
	Derived bool `json:"derived,omitempty"`
}

// TransactionType is the side of a paper transaction
type TransactionType string

const (
	TransactionBuy  TransactionType = "BUY"
	TransactionSell TransactionType = "SELL"
)

// Transaction is one entry of the paper account history
type Transaction struct {
	ExecutedAt    time.Time       `json:"executed_at"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Commission    decimal.Decimal `json:"commission"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Type          TransactionType `json:"type"`
	Symbol        string          `json:"symbol"`
	ID            int64           `json:"id"`
	Quantity      int             `json:"quantity"`
}

// Account is the trader's paper trading account
type Account struct {
	CreatedAt        time.Time       `json:"created_at"`
	InitialBalance   decimal.Decimal `json:"initial_balance"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	InvestedBalance  decimal.Decimal `json:"invested_balance"`
	TotalGainLoss    decimal.Decimal `json:"total_gain_loss"`
	ID               int64           `json:"id"`
	UserID           int64           `json:"user_id"`
	Active           bool            `json:"active"`
}

// BuyRequest asks the backend to buy at the current market price
type BuyRequest struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"company_name,omitempty"`
	UserID      int64  `json:"-"`
	Quantity    int    `json:"quantity"`
}

// SellRequest asks the backend to sell; the backend prices it
type SellRequest struct {
	Symbol   string `json:"symbol"`
	UserID   int64  `json:"-"`
	Quantity int    `json:"quantity"`
}
