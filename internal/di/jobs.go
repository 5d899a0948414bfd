// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/paperdesk/internal/clientdata"
	"github.com/aristath/paperdesk/internal/config"
	"github.com/aristath/paperdesk/internal/modules/market"
)

// RegisterJobs registers background jobs with the scheduler.
// Returns JobInstances for manual triggering via API.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	instances := &JobInstances{
		CacheCleanup: clientdata.NewCleanupJob(container.ClientDataRepo, log),
		QuoteWarmup:  market.NewQuoteWarmupJob(container.MarketService, cfg.Backend.Timeout, log),
	}

	if err := container.Scheduler.AddJob(cfg.Jobs.CacheCleanupSchedule, instances.CacheCleanup); err != nil {
		return nil, err
	}
	if err := container.Scheduler.AddJob(cfg.Jobs.QuoteWarmupSchedule, instances.QuoteWarmup); err != nil {
		return nil, err
	}

	log.Info().Int("jobs", 2).Msg("Jobs registered")

	return instances, nil
}
