// Package app wires configuration into the runtime components shared by the
// service binaries.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/helixir/research-analytics-service/internal/config"
	"github.com/helixir/research-analytics-service/internal/database"
	"github.com/helixir/research-analytics-service/internal/store"
	"github.com/helixir/research-analytics-service/internal/store/pgstore"
	"github.com/helixir/research-analytics-service/internal/store/postgrest"
)

// UserAgent identifies the service to remote stores.
const UserAgent = "research-analytics-service"

// OpenStore connects the configured backend. The returned func releases it.
func OpenStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (store.Store, func(), error) {
	switch strings.ToLower(cfg.Store.Backend) {
	case config.BackendPostgREST:
		pc := cfg.Store.PostgREST
		client, err := postgrest.New(postgrest.Config{
			BaseURL:   pc.BaseURL,
			Path:      pc.Path,
			APIKey:    pc.APIKey,
			MaxInList: cfg.Store.MaxInList,
			Transport: postgrest.TransportConfig{
				Timeout:    pc.Timeout,
				RateLimit:  pc.RateLimit,
				BurstSize:  pc.Burst,
				MaxRetries: pc.MaxRetries,
				RetryDelay: pc.RetryDelay,
				UserAgent:  UserAgent,
			},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create postgrest client: %w", err)
		}
		logger.Info().Str("base_url", pc.BaseURL).Msg("postgrest store configured")
		return client, func() {}, nil

	default:
		if cfg.Database.MigrationAutoRun {
			if err := migrate(ctx, cfg, logger); err != nil {
				return nil, nil, err
			}
		}

		db, err := database.New(ctx, &cfg.Database, logger, database.ReadOnly())
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		logger.Info().Msg("database connection established")
		return pgstore.New(db, cfg.Store.MaxInList), db.Close, nil
	}
}

// migrate applies pending migrations over a short-lived read-write pool.
func migrate(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	migrator, release, err := OpenMigrator(ctx, cfg, "", logger)
	if err != nil {
		return err
	}
	defer release()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
