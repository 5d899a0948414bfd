// Package di provides dependency injection for services.
package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/paperdesk/internal/clientdata"
	"github.com/aristath/paperdesk/internal/clients/backend"
	"github.com/aristath/paperdesk/internal/config"
	"github.com/aristath/paperdesk/internal/events"
	"github.com/aristath/paperdesk/internal/modules/agents"
	"github.com/aristath/paperdesk/internal/modules/market"
	"github.com/aristath/paperdesk/internal/modules/orders"
	"github.com/aristath/paperdesk/internal/modules/portfolio"
	"github.com/aristath/paperdesk/internal/modules/profile"
	"github.com/aristath/paperdesk/internal/scheduler"
	"github.com/aristath/paperdesk/pkg/telemetry"
)

// InitializeServices creates clients and services in dependency order
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	catalogue, err := config.LoadCatalogue(cfg.MarketsFile)
	if err != nil {
		return fmt.Errorf("failed to load market catalogue: %w", err)
	}
	container.Catalogue = catalogue

	container.ClientDataRepo = clientdata.NewRepository(container.MarketCacheDB.Conn())

	environment := "production"
	if cfg.DevMode {
		environment = "development"
	}
	tracing, err := telemetry.Setup(context.Background(), telemetry.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Environment: environment,
		SampleRatio: cfg.Tracing.SampleRatio,
		Enabled:     cfg.Tracing.Enabled,
		Insecure:    cfg.Tracing.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	container.Tracing = tracing

	container.BackendClient = backend.NewClient(backend.Config{
		TracerProvider: tracing.TracerProvider(),
		UsersURL:       cfg.UsersServiceURL,
		MarketURL:      cfg.MarketServiceURL,
		Timeout:        cfg.Backend.Timeout,
	}, log)

	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	// Orders: the book is shared by dispatch, resolution and the refresher
	container.OrderBook = orders.NewBook(log)
	container.InFlight = orders.NewInFlight()
	container.Refresher = orders.NewRefresher(
		container.BackendClient,
		container.OrderBook,
		container.EventManager,
		orders.RefreshConfig{
			AcceptDelay: cfg.Backend.AcceptRefreshDelay,
			RejectDelay: cfg.Backend.RejectRefreshDelay,
			Timeout:     cfg.Backend.Timeout,
		},
		log,
	)
	container.DispatchService = orders.NewDispatchService(
		container.BackendClient,
		container.BackendClient,
		container.ClientDataRepo,
		container.OrderBook,
		container.EventManager,
		log,
	)
	container.ResolutionService = orders.NewResolutionService(
		container.BackendClient,
		container.OrderBook,
		container.InFlight,
		container.Refresher,
		container.EventManager,
		log,
	)

	container.PortfolioService = portfolio.NewService(container.BackendClient, container.EventManager, log)
	container.MarketService = market.NewService(
		container.BackendClient,
		container.ClientDataRepo,
		container.Catalogue,
		container.EventManager,
		log,
	)
	container.AgentsService = agents.NewService(container.BackendClient, container.EventManager, log)
	container.ProfileService = profile.NewService(container.BackendClient, container.EventManager, log)

	container.Scheduler = scheduler.New(log)

	log.Info().
		Int("markets", len(catalogue.Markets)).
		Str("users_backend", cfg.UsersServiceURL).
		Str("market_backend", cfg.MarketServiceURL).
		Msg("Services initialized")

	return nil
}
