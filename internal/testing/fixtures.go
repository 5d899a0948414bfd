package testing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/paperdesk/internal/domain"
)

// NewQuoteFixtures returns current prices for a few Colombian instruments
func NewQuoteFixtures() []domain.Quote {
	now := time.Now()
	return []domain.Quote{
		{Symbol: "EC", CompanyName: "Ecopetrol", Price: decimal.NewFromInt(2450), UpdatedAt: now},
		{Symbol: "CIB", CompanyName: "Bancolombia", Price: decimal.NewFromInt(38900), UpdatedAt: now},
		{Symbol: "AVH", CompanyName: "Avianca Holdings", Price: decimal.RequireFromString("512.5"), UpdatedAt: now},
		{Symbol: "ISA", CompanyName: "Interconexión Eléctrica", Price: decimal.NewFromInt(17220), UpdatedAt: now},
	}
}

// NewAgentFixtures returns two active agents and one inactive agent
func NewAgentFixtures() []domain.Agent {
	return []domain.Agent{
		{ID: 3, FirstName: "Laura", LastName: "Gómez", Email: "laura.gomez@example.com", Phone: "3001234567", Active: true},
		{ID: 4, FirstName: "Andrés", LastName: "Rojas", Email: "andres.rojas@example.com", Phone: "3109876543", Active: true},
		{ID: 9, FirstName: "Camilo", LastName: "Pérez", Email: "camilo.perez@example.com", Active: false},
	}
}

// NewOrderFixtures returns one order in each state, sent by issuerID to
// recipientID over the last few days
func NewOrderFixtures(issuerID, recipientID int64) []domain.Order {
	now := time.Now().Truncate(time.Second)
	limit := decimal.NewFromInt(40000)
	filled := decimal.NewFromInt(2400)

	return []domain.Order{
		{
			ID: 11, IssuerID: issuerID, RecipientID: recipientID,
			Symbol: "CIB", CompanyName: "Bancolombia", Quantity: 5,
			LimitPrice: &limit,
			State:      domain.OrderStatePendingApproval,
			CreatedAt:  now.Add(-1 * time.Hour),
		},
		{
			ID: 12, IssuerID: issuerID, RecipientID: recipientID,
			Symbol: "EC", CompanyName: "Ecopetrol", Quantity: 20,
			ExecutionPrice: &filled,
			State:          domain.OrderStateExecuted,
			CreatedAt:      now.Add(-48 * time.Hour),
		},
		{
			ID: 13, IssuerID: issuerID, RecipientID: recipientID,
			Symbol: "AVH", CompanyName: "Avianca Holdings", Quantity: 100,
			State:     domain.OrderStateRejected,
			CreatedAt: now.Add(-72 * time.Hour),
		},
		{
			ID: 14, IssuerID: issuerID, RecipientID: recipientID,
			Symbol: "ISA", CompanyName: "Interconexión Eléctrica", Quantity: 3,
			State:        domain.OrderStateExecutionError,
			ErrorMessage: "Saldo insuficiente",
			CreatedAt:    now.Add(-96 * time.Hour),
		},
	}
}

// NewPositionFixtures returns open positions bought below the quote fixtures
func NewPositionFixtures() []domain.Position {
	bought := time.Now().Add(-30 * 24 * time.Hour).Truncate(time.Second)
	return []domain.Position{
		{ID: 1, Symbol: "EC", CompanyName: "Ecopetrol", Quantity: 100, AveragePrice: decimal.NewFromInt(2300), PurchasedAt: bought},
		{ID: 2, Symbol: "CIB", CompanyName: "Bancolombia", Quantity: 10, AveragePrice: decimal.NewFromInt(37000), PurchasedAt: bought},
	}
}
