/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to services.
 */
package di

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/paperdesk/internal/clientdata"
	"github.com/aristath/paperdesk/internal/clients/backend"
	"github.com/aristath/paperdesk/internal/config"
	"github.com/aristath/paperdesk/internal/database"
	"github.com/aristath/paperdesk/internal/events"
	"github.com/aristath/paperdesk/internal/modules/agents"
	"github.com/aristath/paperdesk/internal/modules/market"
	"github.com/aristath/paperdesk/internal/modules/orders"
	"github.com/aristath/paperdesk/internal/modules/portfolio"
	"github.com/aristath/paperdesk/internal/modules/profile"
	"github.com/aristath/paperdesk/internal/scheduler"
	"github.com/aristath/paperdesk/pkg/telemetry"
)

// tracingShutdownTimeout bounds the final span flush on Close
const tracingShutdownTimeout = 5 * time.Second

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Databases: a single market cache (quotes, listing, histories, order drafts)
 * - Clients: the external users and market backends behind one client
 * - Services: order dispatch and resolution, paper account, market, agents, profile
 * - Background: cron scheduler and the delayed order list refresher
 *
 * Financial state lives in the backend; nothing here is authoritative.
 */
type Container struct {
	// Databases
	MarketCacheDB *database.DB // Ephemeral market data and order drafts

	// Repositories
	ClientDataRepo *clientdata.Repository

	// Clients
	BackendClient *backend.Client
	Tracing       *telemetry.Provider // Spans of backend calls

	// Configuration
	Catalogue *config.Catalogue

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Order orchestration
	OrderBook         *orders.Book
	InFlight          *orders.InFlight
	Refresher         *orders.Refresher
	DispatchService   *orders.DispatchService
	ResolutionService *orders.ResolutionService

	// Other services
	PortfolioService *portfolio.Service
	MarketService    *market.Service
	AgentsService    *agents.Service
	ProfileService   *profile.Service

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds registered jobs for manual triggering
type JobInstances struct {
	CacheCleanup scheduler.Job
	QuoteWarmup  scheduler.Job
}

// Close stops background work, flushes pending spans and closes databases.
// Safe to call on a partially initialized container.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Refresher != nil {
		c.Refresher.Close()
	}

	var errs []error
	if c.Tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
		errs = append(errs, c.Tracing.Shutdown(ctx))
		cancel()
	}
	if c.MarketCacheDB != nil {
		errs = append(errs, c.MarketCacheDB.Close())
	}
	return errors.Join(errs...)
}
