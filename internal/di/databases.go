// Package di provides dependency injection for database connections.
package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/paperdesk/internal/config"
	"github.com/aristath/paperdesk/internal/database"
)

// InitializeDatabases opens the market cache and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	marketCacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "market_cache.db"),
		Profile: database.ProfileCache, // Maximum speed for ephemeral data
		Name:    "market_cache",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize market cache database: %w", err)
	}
	container.MarketCacheDB = marketCacheDB

	if err := marketCacheDB.Migrate(); err != nil {
		marketCacheDB.Close()
		return nil, fmt.Errorf("failed to apply schema to %s: %w", marketCacheDB.Name(), err)
	}

	log.Info().Str("path", marketCacheDB.Path()).Msg("Market cache database initialized")

	return container, nil
}
