package orders

import (
	"sync"

	"github.com/aristath/paperdesk/internal/domain"
)

// InFlight tracks the orders with an accept/reject call currently running.
// It only stops duplicate submissions from this process; the backend remains
// the authority on exclusivity.
type InFlight struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

// NewInFlight creates an empty in-flight set
func NewInFlight() *InFlight {
	return &InFlight{ids: make(map[int64]struct{})}
}

// Acquire marks orderID as in flight. The returned release func clears the
// mark and is safe to call more than once.
func (g *InFlight) Acquire(orderID int64) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.ids[orderID]; busy {
		return nil, domain.ErrOrderInFlight
	}
	g.ids[orderID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.ids, orderID)
			g.mu.Unlock()
		})
	}, nil
}

// Busy reports whether orderID is in flight
func (g *InFlight) Busy(orderID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.ids[orderID]
	return busy
}

// Len returns the number of orders in flight
func (g *InFlight) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.ids)
}
