package orders

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/paperdesk/internal/domain"
)

// Book holds the most recently fetched order lists.
// Each fetch overwrites the list it belongs to; nothing here is written
// except by a successful fetch.
type Book struct {
	mu          sync.RWMutex
	byRecipient map[int64][]domain.Order
	byIssuer    map[int64][]domain.Order
	byID        map[int64]domain.Order
	log         zerolog.Logger
}

// NewBook creates an empty book
func NewBook(log zerolog.Logger) *Book {
	return &Book{
		byRecipient: make(map[int64][]domain.Order),
		byIssuer:    make(map[int64][]domain.Order),
		byID:        make(map[int64]domain.Order),
		log:         log.With().Str("component", "order_book").Logger(),
	}
}

// ReplaceRecipient stores the received-orders list of a trader
func (b *Book) ReplaceRecipient(recipientID int64, orders []domain.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byRecipient[recipientID] = clone(orders)
	b.index(orders)
}

// ReplaceIssuer stores the sent-orders list of an agent
func (b *Book) ReplaceIssuer(issuerID int64, orders []domain.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byIssuer[issuerID] = clone(orders)
	b.index(orders)
}

// index must be called with the lock held
func (b *Book) index(orders []domain.Order) {
	for _, o := range orders {
		if prev, ok := b.byID[o.ID]; ok && o.State.Rank() < prev.State.Rank() {
			b.log.Warn().
				Int64("order_id", o.ID).
				Str("previous", string(prev.State)).
				Str("observed", string(o.State)).
				Msg("Backend reported an earlier lifecycle state than already observed")
		}
		b.byID[o.ID] = o
	}
}

// Get returns the last observed copy of an order
func (b *Book) Get(orderID int64) (domain.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.byID[orderID]
	return o, ok
}

// ForRecipient returns the last fetched received-orders list
func (b *Book) ForRecipient(recipientID int64) []domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return clone(b.byRecipient[recipientID])
}

// ForIssuer returns the last fetched sent-orders list
func (b *Book) ForIssuer(issuerID int64) []domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return clone(b.byIssuer[issuerID])
}

func clone(orders []domain.Order) []domain.Order {
	if orders == nil {
		return nil
	}
	out := make([]domain.Order, len(orders))
	copy(out, orders)
	return out
}
