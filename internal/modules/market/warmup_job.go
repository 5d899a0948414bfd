package market

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/paperdesk/internal/events"
)

// QuoteWarmupJob refreshes the cached quotes of featured instruments so the
// landing page never waits on the backend.
type QuoteWarmupJob struct {
	service *Service
	timeout time.Duration
	log     zerolog.Logger
}

// NewQuoteWarmupJob creates a new warmup job
func NewQuoteWarmupJob(service *Service, timeout time.Duration, log zerolog.Logger) *QuoteWarmupJob {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &QuoteWarmupJob{
		service: service,
		timeout: timeout,
		log:     log.With().Str("job", "quote_warmup").Logger(),
	}
}

// Run fetches a fresh quote for every featured instrument.
// It fails only when every refresh failed.
func (j *QuoteWarmupJob) Run() error {
	featured := j.service.catalogue.Featured()
	if len(featured) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	refreshed := make([]string, 0, len(featured))
	failed := 0
	for _, inst := range featured {
		if _, err := j.service.RefreshQuote(ctx, inst); err != nil {
			failed++
			j.log.Warn().Err(err).Str("symbol", inst.Symbol).Msg("Failed to refresh quote")
			continue
		}
		refreshed = append(refreshed, inst.Symbol)
	}

	j.log.Debug().
		Int("refreshed", len(refreshed)).
		Int("failed", failed).
		Msg("Quote warmup completed")

	if j.service.eventManager != nil && len(refreshed) > 0 {
		j.service.eventManager.EmitTyped("market", &events.QuotesRefreshedData{
			Symbols: refreshed,
			Failed:  failed,
		})
	}

	if len(refreshed) == 0 {
		return fmt.Errorf("failed to refresh any of %d featured quotes", failed)
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *QuoteWarmupJob) Name() string {
	return "quote_warmup"
}
