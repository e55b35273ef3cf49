// Package main is the entry point for migrate, which applies the research
// graph schema (countries, institutions, researchers, articles and their
// authorships) to the Postgres database the service reads from.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/research-analytics-service/internal/app"
	"github.com/helixir/research-analytics-service/internal/config"
	"github.com/helixir/research-analytics-service/internal/database"
	"github.com/helixir/research-analytics-service/internal/observability"
)

const connectTimeout = 30 * time.Second

// schemaMigrator is the part of *database.Migrator the commands drive.
type schemaMigrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (database.MigrationStatus, error)
}

var (
	migrator      schemaMigrator
	closeMigrator = func() {}
	logger        = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the research graph schema",
	Long: `migrate applies the SQL migrations under database.migration_path to the
database configured through RANALYTICS_DATABASE_* variables or config.yaml.
It refuses to run when store.backend is postgrest: that database is remote
and is migrated where it is hosted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger = observability.NewLogger(observability.LoggingConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stderr",
			TimeFormat: time.RFC3339,
		}).With().Str("component", "migrate").Logger()

		path, _ := cmd.Flags().GetString("path")
		ctx, cancel := context.WithTimeout(cmd.Context(), connectTimeout)
		defer cancel()

		m, release, err := app.OpenMigrator(ctx, cfg, path, logger)
		if err != nil {
			return err
		}
		migrator, closeMigrator = m, release
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		closeMigrator()
	},
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		if steps < 0 {
			return fmt.Errorf("--steps must be positive, use down to roll back")
		}

		var err error
		if steps > 0 {
			err = migrator.Steps(steps)
		} else {
			err = migrator.Up()
		}
		if err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		return report(cmd)
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	Long: `down rolls back --steps migrations, or the whole schema with --all.
Rolling back drops research graph tables and their rows.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		all, _ := cmd.Flags().GetBool("all")

		var err error
		switch {
		case all && steps != 0:
			return fmt.Errorf("--all and --steps are mutually exclusive")
		case all:
			logger.Warn().Msg("rolling back the whole research graph schema")
			err = migrator.Down()
		case steps > 0:
			logger.Warn().Int("steps", steps).Msg("rolling back migrations")
			err = migrator.Steps(-steps)
		default:
			return fmt.Errorf("specify --steps N or --all")
		}
		if err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		return report(cmd)
	},
}

var forceCmd = &cobra.Command{
	Use:   "force VERSION",
	Short: "Mark the schema as VERSION without running migrations",
	Long: `force records VERSION as applied and clears the dirty flag. Use it after
repairing a failed migration by hand. -1 marks the schema as untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < -1 {
			return fmt.Errorf("invalid version %q: must be an integer of at least -1", args[0])
		}
		if err := migrator.Force(v); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
		return report(cmd)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return report(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().String("path", "", "migrations directory, overrides database.migration_path")
	upCmd.Flags().Int("steps", 0, "apply at most N migrations")
	downCmd.Flags().Int("steps", 0, "roll back N migrations")
	downCmd.Flags().Bool("all", false, "roll back every migration")

	rootCmd.AddCommand(upCmd, downCmd, forceCmd, versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		closeMigrator()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// report prints the schema version reached by the last action.
func report(cmd *cobra.Command) error {
	status, err := migrator.Status()
	if err != nil {
		return err
	}
	logger.Info().
		Uint("version", status.Version).
		Bool("dirty", status.Dirty).
		Bool("applied", status.Applied).
		Msg("research graph schema version")
	_, err = fmt.Fprintln(cmd.OutOrStdout(), describe(status))
	return err
}

func describe(s database.MigrationStatus) string {
	switch {
	case !s.Applied:
		return "research graph schema: no migrations applied"
	case s.Dirty:
		return fmt.Sprintf("research graph schema: version %d (dirty: repair the failed migration, then run force)", s.Version)
	default:
		return fmt.Sprintf("research graph schema: version %d", s.Version)
	}
}
