package orders

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/paperdesk/internal/domain"
	"github.com/aristath/paperdesk/internal/events"
)

// RefreshConfig holds the re-list delays after a resolution
type RefreshConfig struct {
	AcceptDelay time.Duration
	RejectDelay time.Duration
	Timeout     time.Duration
}

// Refresher re-lists a trader's orders a short while after an accept or
// reject so the terminal state produced by the backend gets observed.
// Every observation is published as ORDER_STATE_OBSERVED for push clients.
type Refresher struct {
	backend      domain.OrderBackend
	book         *Book
	eventManager *events.Manager
	cfg          RefreshConfig
	log          zerolog.Logger

	mu     sync.Mutex
	timers map[*time.Timer]struct{}
	wg     sync.WaitGroup
	closed bool
}

// NewRefresher creates a new refresher
func NewRefresher(backend domain.OrderBackend, book *Book, eventManager *events.Manager, cfg RefreshConfig, log zerolog.Logger) *Refresher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Refresher{
		backend:      backend,
		book:         book,
		eventManager: eventManager,
		cfg:          cfg,
		timers:       make(map[*time.Timer]struct{}),
		log:          log.With().Str("component", "order_refresher").Logger(),
	}
}

// DelayFor returns the re-list delay that follows action
func (r *Refresher) DelayFor(action Action) time.Duration {
	if action == ActionReject {
		return r.cfg.RejectDelay
	}
	return r.cfg.AcceptDelay
}

// Schedule re-lists recipientID's orders after the delay for action
func (r *Refresher) Schedule(recipientID, orderID int64, action Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	r.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(r.DelayFor(action), func() {
		defer r.wg.Done()
		r.mu.Lock()
		delete(r.timers, timer)
		r.mu.Unlock()
		r.Refresh(recipientID, orderID)
	})
	r.timers[timer] = struct{}{}
}

// Refresh re-lists the trader's orders now and publishes what it saw of orderID
func (r *Refresher) Refresh(recipientID, orderID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()

	orders, err := r.backend.OrdersByRecipient(ctx, recipientID)
	if err != nil {
		r.log.Warn().
			Err(err).
			Int64("recipient_id", recipientID).
			Int64("order_id", orderID).
			Msg("Failed to refresh orders after resolution")
		return
	}
	domain.SortNewestFirst(orders)
	r.book.ReplaceRecipient(recipientID, orders)

	for _, o := range orders {
		if o.ID != orderID {
			continue
		}
		r.log.Debug().
			Int64("order_id", o.ID).
			Str("state", string(o.State)).
			Msg("Observed order state after resolution")
		if r.eventManager != nil {
			r.eventManager.EmitTyped("orders", &events.OrderStateObservedData{
				OrderID:     o.ID,
				RecipientID: recipientID,
				State:       string(o.State),
				Terminal:    o.State.IsTerminal(),
			})
		}
		return
	}
	r.log.Warn().Int64("order_id", orderID).Msg("Resolved order missing from refreshed list")
}

// Pending returns the number of scheduled refreshes not yet started
func (r *Refresher) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Close cancels scheduled refreshes and waits for running ones
func (r *Refresher) Close() {
	r.mu.Lock()
	r.closed = true
	for timer := range r.timers {
		if timer.Stop() {
			r.wg.Done()
		}
		delete(r.timers, timer)
	}
	r.mu.Unlock()
	r.wg.Wait()
}
