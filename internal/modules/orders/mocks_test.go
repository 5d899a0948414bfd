package orders

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/aristath/paperdesk/internal/domain"
	"github.com/aristath/paperdesk/internal/session"
)

// MockOrderBackend is a mock order backend for testing
type MockOrderBackend struct {
	mock.Mock
}

func (m *MockOrderBackend) SubmitOrder(ctx context.Context, sub domain.OrderSubmission) (*domain.SubmitReceipt, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubmitReceipt), args.Error(1)
}

func (m *MockOrderBackend) OrdersByRecipient(ctx context.Context, recipientID int64) ([]domain.Order, error) {
	args := m.Called(ctx, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return cloneOrders(args.Get(0).([]domain.Order)), args.Error(1)
}

func (m *MockOrderBackend) OrdersByIssuer(ctx context.Context, issuerID int64) ([]domain.Order, error) {
	args := m.Called(ctx, issuerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return cloneOrders(args.Get(0).([]domain.Order)), args.Error(1)
}

func (m *MockOrderBackend) AcceptOrder(ctx context.Context, orderID int64) (string, error) {
	args := m.Called(ctx, orderID)
	return args.String(0), args.Error(1)
}

func (m *MockOrderBackend) RejectOrder(ctx context.Context, orderID int64) (string, error) {
	args := m.Called(ctx, orderID)
	return args.String(0), args.Error(1)
}

// linkedTraders maps an agent to the traders linked to it
type linkedTraders map[int64][]domain.AssociatedTrader

func (l linkedTraders) AssociatedTraders(_ context.Context, agentID int64) ([]domain.AssociatedTrader, error) {
	return l[agentID], nil
}

type failingDirectory struct {
	err error
}

func (f failingDirectory) AssociatedTraders(context.Context, int64) ([]domain.AssociatedTrader, error) {
	return nil, f.err
}

func cloneOrders(in []domain.Order) []domain.Order {
	out := make([]domain.Order, len(in))
	copy(out, in)
	return out
}

// memoryDrafts is an in-memory DraftStore
type memoryDrafts struct {
	mu     sync.Mutex
	drafts map[int64]domain.OrderDraft
}

func newMemoryDrafts() *memoryDrafts {
	return &memoryDrafts{drafts: make(map[int64]domain.OrderDraft)}
}

func (d *memoryDrafts) SaveOrderDraft(issuerID int64, draft domain.OrderDraft) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drafts[issuerID] = draft
	return nil
}

func (d *memoryDrafts) OrderDraft(issuerID int64) (*domain.OrderDraft, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	draft, ok := d.drafts[issuerID]
	if !ok {
		return nil, nil
	}
	return &draft, nil
}

func (d *memoryDrafts) ClearOrderDraft(issuerID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.drafts, issuerID)
	return nil
}

func agentCtx(id int64) context.Context {
	return session.WithSession(context.Background(), session.Session{UserID: id, Role: domain.RoleAgent})
}

func traderCtx(id int64) context.Context {
	return session.WithSession(context.Background(), session.Session{UserID: id, Role: domain.RoleTrader})
}

func at(minutes int) time.Time {
	return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
}

func pendingOrder(id, recipientID int64, created time.Time) domain.Order {
	return domain.Order{
		ID:          id,
		IssuerID:    3,
		RecipientID: recipientID,
		Symbol:      "EC",
		Quantity:    10,
		State:       domain.OrderStatePendingApproval,
		CreatedAt:   created,
	}
}
