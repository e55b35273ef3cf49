package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

// MigrationsTable is the bookkeeping table golang-migrate writes to.
const MigrationsTable = "schema_migrations"

// MigrationStatus describes the schema version of the research graph.
type MigrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
	// Applied is false on a database no migration has touched yet.
	Applied bool `json:"applied"`
}

// Migrator applies the research graph schema.
type Migrator struct {
	migrate *migrate.Migrate
	sqlDB   *sql.DB
	logger  zerolog.Logger
}

// NewMigrator creates a migrator over db reading migrations from migrationsPath.
// db must not be opened with ReadOnly.
func NewMigrator(db *DB, migrationsPath string, logger zerolog.Logger) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if db.pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}
	if migrationsPath == "" {
		return nil, fmt.Errorf("migrations path is required")
	}
	if _, err := os.Stat(migrationsPath); err != nil {
		return nil, fmt.Errorf("migrations path validation failed: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db.pool)

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{
		MigrationsTable: MigrationsTable,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return &Migrator{
		migrate: m,
		sqlDB:   sqlDB,
		logger:  logger.With().Str("migrations_path", migrationsPath).Logger(),
	}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up() error {
	return m.apply("up", 0, m.migrate.Up)
}

// Down rolls back every migration.
func (m *Migrator) Down() error {
	return m.apply("down", 0, m.migrate.Down)
}

// Steps applies n migrations (positive = up, negative = down).
func (m *Migrator) Steps(n int) error {
	return m.apply("steps", n, func() error { return m.migrate.Steps(n) })
}

// apply runs one migration action, treating "nothing to do" as success.
func (m *Migrator) apply(action string, steps int, fn func() error) error {
	logger := m.logger.With().Str("action", action).Logger()
	if steps != 0 {
		logger = logger.With().Int("steps", steps).Logger()
	}
	logger.Info().Msg("applying migrations")

	err := fn()
	switch {
	case err == nil:
		logger.Info().Msg("migrations applied")
		return nil
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info().Msg("schema already at target version")
		return nil
	case steps != 0 && errors.Is(err, os.ErrNotExist):
		// Stepping past the first or last migration.
		logger.Info().Msg("no more migrations available")
		return nil
	default:
		return fmt.Errorf("failed to migrate %s: %w", action, err)
	}
}

// Version returns the current migration version.
func (m *Migrator) Version() (uint, bool, error) {
	return m.migrate.Version()
}

// Status reports the schema version, treating an untouched database as version 0.
func (m *Migrator) Status() (MigrationStatus, error) {
	v, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, nil
	}
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to read migration version: %w", err)
	}
	return MigrationStatus{Version: v, Dirty: dirty, Applied: true}, nil
}

// Force sets the migration version without running migrations.
// Used to recover from a failed migration.
func (m *Migrator) Force(version int) error {
	m.logger.Warn().Int("version", version).Msg("forcing migration version")
	return m.migrate.Force(version)
}

// Close releases the migration source and the sql.DB wrapper.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if m.sqlDB != nil {
		if err := m.sqlDB.Close(); err != nil && dbErr == nil {
			dbErr = err
		}
	}
	return errors.Join(sourceErr, dbErr)
}
