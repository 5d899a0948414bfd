// Package market serves the instrument catalogue and cached market data.
package market

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/paperdesk/internal/clientdata"
	"github.com/aristath/paperdesk/internal/config"
	"github.com/aristath/paperdesk/internal/domain"
	"github.com/aristath/paperdesk/internal/events"
)

// listingKey is the cache key of the full listing
const listingKey = "all"

// Cache is the subset of the client data repository the service needs
type Cache interface {
	Store(table, key string, value interface{}, ttl time.Duration) error
	GetIfFresh(table, key string, out interface{}) (bool, error)
	Get(table, key string, out interface{}) (bool, error)
}

// Service reads market data cache-first and falls back to stale cache
// entries when the backend cannot be reached.
type Service struct {
	backend      domain.MarketDataBackend
	cache        Cache
	catalogue    *config.Catalogue
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewService creates a new market service
func NewService(
	backend domain.MarketDataBackend,
	cache Cache,
	catalogue *config.Catalogue,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		backend:      backend,
		cache:        cache,
		catalogue:    catalogue,
		eventManager: eventManager,
		log:          log.With().Str("service", "market").Logger(),
	}
}

// Catalogue returns the configured markets
func (s *Service) Catalogue() []domain.Market {
	return s.catalogue.Markets
}

// Instrument resolves a symbol against the catalogue. Unknown symbols are
// still served, as a bare instrument without chart support.
func (s *Service) Instrument(symbol string) domain.Instrument {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if inst, _, ok := s.catalogue.Lookup(symbol); ok {
		return inst
	}
	return domain.Instrument{Symbol: symbol}
}

// Listing returns the backend's listing of quoted instruments
func (s *Service) Listing(ctx context.Context) ([]domain.Quote, error) {
	var quotes []domain.Quote
	err := s.cached(clientdata.TableListing, listingKey, &quotes, func() (interface{}, time.Duration, error) {
		fresh, err := s.backend.Listing(ctx)
		if err != nil {
			return nil, 0, err
		}
		quotes = fresh
		return fresh, clientdata.TTLListing, nil
	})
	return quotes, err
}

// Quote returns the latest quote for symbol
func (s *Service) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	inst := s.Instrument(symbol)
	if inst.Symbol == "" {
		return nil, domain.NewValidationError("symbol", "symbol is required")
	}

	var quote domain.Quote
	err := s.cached(clientdata.TableQuotes, inst.Symbol, &quote, func() (interface{}, time.Duration, error) {
		fresh, err := s.backend.Quote(ctx, inst)
		if err != nil {
			return nil, 0, err
		}
		quote = *fresh
		return fresh, clientdata.TTLQuote, nil
	})
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// History returns the daily price history for symbol, oldest first
func (s *Service) History(ctx context.Context, symbol string) (*domain.PriceHistory, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, domain.NewValidationError("symbol", "symbol is required")
	}

	var history domain.PriceHistory
	err := s.cached(clientdata.TablePriceHistory, symbol, &history, func() (interface{}, time.Duration, error) {
		fresh, err := s.backend.PriceHistory(ctx, symbol)
		if err != nil {
			return nil, 0, err
		}
		history = *fresh
		return fresh, clientdata.TTLPriceHistory, nil
	})
	if err != nil {
		return nil, err
	}
	return &history, nil
}

// RefreshQuote fetches a quote from the backend and stores it, skipping the cache read
func (s *Service) RefreshQuote(ctx context.Context, inst domain.Instrument) (*domain.Quote, error) {
	quote, err := s.backend.Quote(ctx, inst)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Store(clientdata.TableQuotes, inst.Symbol, quote, clientdata.TTLQuote); err != nil {
		s.log.Warn().Err(err).Str("symbol", inst.Symbol).Msg("Failed to cache quote")
	}
	return quote, nil
}

// cached serves out from a fresh cache row; otherwise fetch is called and its
// result stored. If fetch fails, a stale row is served instead of the error.
func (s *Service) cached(table, key string, out interface{}, fetch func() (interface{}, time.Duration, error)) error {
	if found, err := s.cache.GetIfFresh(table, key, out); err != nil {
		s.log.Warn().Err(err).Str("table", table).Str("key", key).Msg("Cache read failed")
	} else if found {
		return nil
	}

	value, ttl, fetchErr := fetch()
	if fetchErr == nil {
		if err := s.cache.Store(table, key, value, ttl); err != nil {
			s.log.Warn().Err(err).Str("table", table).Str("key", key).Msg("Failed to cache market data")
		}
		return nil
	}

	found, err := s.cache.Get(table, key, out)
	if err == nil && found {
		s.log.Warn().
			Err(fetchErr).
			Str("table", table).
			Str("key", key).
			Msg("Backend unavailable, serving stale market data")
		return nil
	}
	return fetchErr
}
