// Package cmd holds the storectl commands.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ariefcatur/bagstore/internal/config"
	"github.com/ariefcatur/bagstore/internal/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storectl",
	Short: "Operator tool for the bagstore backend",
	Long: `storectl runs the trusted operations that have no HTTP surface:
schema migration, staff role grants, development sessions and catalog seeding.

It reads the same environment (.env, POSTGRES_DSN, REDIS_ADDR, ...) as the api.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openDB(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, "storectl")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
