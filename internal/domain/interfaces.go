package domain

import "context"

// OrderBackend is the system of record for agent-issued orders.
// List results come back unordered.
type OrderBackend interface {
	SubmitOrder(ctx context.Context, submission OrderSubmission) (*SubmitReceipt, error)
	OrdersByRecipient(ctx context.Context, recipientID int64) ([]Order, error)
	OrdersByIssuer(ctx context.Context, issuerID int64) ([]Order, error)
	// AcceptOrder and RejectOrder are not idempotent: a second call on a
	// resolved order fails.
	AcceptOrder(ctx context.Context, orderID int64) (string, error)
	RejectOrder(ctx context.Context, orderID int64) (string, error)
}

// PaperTradingBackend owns paper accounts, positions and transactions
type PaperTradingBackend interface {
	Positions(ctx context.Context, userID int64) ([]Position, error)
	Summary(ctx context.Context, userID int64) (*PortfolioSummary, error)
	Account(ctx context.Context, userID int64) (*Account, error)
	Transactions(ctx context.Context, userID int64) ([]Transaction, error)
	Buy(ctx context.Context, req BuyRequest) (string, error)
	Sell(ctx context.Context, req SellRequest) (string, error)
}

// MarketDataBackend serves quotes and price histories
type MarketDataBackend interface {
	Listing(ctx context.Context) ([]Quote, error)
	Quote(ctx context.Context, instrument Instrument) (*Quote, error)
	PriceHistory(ctx context.Context, symbol string) (*PriceHistory, error)
}

// AgentBackend manages commission agents and their trader links
type AgentBackend interface {
	ListAgents(ctx context.Context, activeOnly bool) ([]Agent, error)
	GetAgent(ctx context.Context, agentID int64) (*Agent, error)
	LinkTrader(ctx context.Context, traderID, agentID int64) (string, error)
	AssociatedTraders(ctx context.Context, agentID int64) ([]AssociatedTrader, error)
}

// ProfileBackend reads and updates user profiles
type ProfileBackend interface {
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) (*Profile, error)
}
