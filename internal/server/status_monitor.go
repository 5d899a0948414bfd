package server

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/paperdesk/internal/database"
	"github.com/aristath/paperdesk/internal/events"
)

// StatusMonitor periodically checks the market cache and emits an event
// when its health changes.
type StatusMonitor struct {
	eventManager *events.Manager
	cacheDB      *database.DB
	log          zerolog.Logger

	stop     chan struct{}
	stopOnce sync.Once

	// Track previous state; the first check always emits
	checked     bool
	lastHealthy bool
}

// NewStatusMonitor creates a new status monitor
func NewStatusMonitor(eventManager *events.Manager, cacheDB *database.DB, log zerolog.Logger) *StatusMonitor {
	return &StatusMonitor{
		eventManager: eventManager,
		cacheDB:      cacheDB,
		log:          log.With().Str("component", "status_monitor").Logger(),
		stop:         make(chan struct{}),
	}
}

// Start begins periodic status monitoring
func (m *StatusMonitor) Start(interval time.Duration) {
	go m.monitor(interval)
}

// Stop ends monitoring. It is safe to call more than once.
func (m *StatusMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *StatusMonitor) monitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.checkStatus()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.checkStatus()
		}
	}
}

// checkStatus pings the cache and emits SYSTEM_STATUS_CHANGED on a flip
func (m *StatusMonitor) checkStatus() {
	if m.cacheDB == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data := &events.SystemStatusData{Healthy: true}
	if err := m.cacheDB.QuickCheck(ctx); err != nil {
		data.Healthy = false
		data.CacheError = err.Error()
	}

	if m.checked && data.Healthy == m.lastHealthy {
		return
	}
	m.checked = true
	m.lastHealthy = data.Healthy

	if !data.Healthy {
		m.log.Warn().Str("error", data.CacheError).Msg("Market cache unhealthy")
	}
	if m.eventManager != nil {
		m.eventManager.EmitTyped("status_monitor", data)
	}
}
