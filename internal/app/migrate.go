package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/helixir/research-analytics-service/internal/config"
	"github.com/helixir/research-analytics-service/internal/database"
)

// ErrNoLocalSchema is returned when migrations are requested for a backend
// that reads the graph through a remote API.
var ErrNoLocalSchema = errors.New("store backend has no local schema to migrate")

// OpenMigrator connects a read-write pool and a migrator for the research
// graph schema. path overrides database.migration_path when non-empty.
// The returned func closes both.
func OpenMigrator(ctx context.Context, cfg *config.Config, path string, logger zerolog.Logger) (*database.Migrator, func(), error) {
	if strings.EqualFold(cfg.Store.Backend, config.BackendPostgREST) {
		return nil, nil, fmt.Errorf("%w: the %s backend reads a remote database, migrate that database directly",
			ErrNoLocalSchema, config.BackendPostgREST)
	}
	if path == "" {
		path = cfg.Database.MigrationPath
	}

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database for migrations: %w", err)
	}

	migrator, err := database.NewMigrator(db, path, logger)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create migrator: %w", err)
	}

	release := func() {
		if err := migrator.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close migrator")
		}
		db.Close()
	}
	return migrator, release, nil
}
