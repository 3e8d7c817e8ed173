// cmd/launchpad/main.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/app"
	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/storage/postgres"
	"github.com/rovshanmuradov/launchpad/internal/utils/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "launchpad",
	Short:         "Token launchpad: project raises, bonding curves, graduation and vesting",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml or json); env LAUNCHPAD_* overrides")
	rootCmd.AddCommand(serveCmd(), migrateCmd(), paramsCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "launchpad failed: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the config and builds the logger shared by every command.
func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API, the event stream and the keeper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("Starting launchpad", zap.String("config", configPath))
			runner := app.NewRunner(cfg, log)
			if err := runner.Initialize(ctx); err != nil {
				log.Error("Failed to initialize launchpad", zap.Error(err))
				return err
			}
			return runner.Run(ctx)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply event store migrations to postgres.url",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres.url is not set")
			}

			end := log.TrackPerformance("migrate")
			defer end()

			ctx := cmd.Context()
			opLog := log.WithOperation("migrate")
			pool, err := postgres.NewPool(ctx, postgres.Config{URL: cfg.Postgres.URL, MaxConns: 1}, opLog)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := postgres.Migrate(ctx, pool, opLog); err != nil {
				return err
			}
			opLog.Info("Migrations applied")
			return nil
		},
	}
}

func paramsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Print the effective platform parameters as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cfg.Platform)
		},
	}
}

