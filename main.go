package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/msomdec/library-api/internal/config"
	"github.com/msomdec/library-api/internal/domain"
	"github.com/msomdec/library-api/internal/repository/postgres"
	"github.com/msomdec/library-api/internal/repository/sqlite"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "library-api",
		Short:         "Library catalogue and loans API",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Running the binary without a subcommand starts the server.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newUserAddCommand())
	return root
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context()); err != nil {
				slog.Error("failed to run migrations", "error", err)
				return err
			}
			slog.Info("database migrations applied")
			return nil
		},
	}
}

// loadConfig reads the configuration and installs the default logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		// The configured logger does not exist yet.
		slog.Error("invalid configuration", "error", err)
		return nil, err
	}

	slog.SetDefault(newLogger(cfg, os.Stdout, os.Stderr))
	return cfg, nil
}

// newLogger writes human-readable text to stdout and JSON to stderr. In
// production only the JSON stream is kept for the log collector.
func newLogger(cfg *config.Config, stdout, stderr io.Writer) *slog.Logger {
	logOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	jsonHandler := slog.NewJSONHandler(stderr, logOpts)
	if cfg.IsProduction() {
		return slog.New(jsonHandler).With("environment", cfg.Environment)
	}
	return slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(stdout, logOpts),
		jsonHandler,
	)).With("environment", cfg.Environment)
}

func openStore(ctx context.Context, cfg *config.Config) (domain.Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to open database", "driver", cfg.DatabaseDriver, "error", err)
			return nil, err
		}
		return db, nil
	case config.DriverSQLite:
		db, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			slog.Error("failed to open database", "driver", cfg.DatabaseDriver, "path", cfg.DatabasePath, "error", err)
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}
