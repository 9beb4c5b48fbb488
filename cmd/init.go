package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"pgblast/internal/config"
	"pgblast/internal/schema"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize database tables with test data",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Config{
			Target:       target,
			Prefix:       prefix,
			Scale:        scale,
			Processes:    1,
			Jobs:         1,
			Transactions: 0,
		}.WithDefaults()
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		pool, err := pgxpool.New(ctx, cfg.Target)
		if err != nil {
			return fmt.Errorf("opening connection pool: %w", err)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("pinging database: %w", err)
		}

		return schema.New(pool, cfg.Prefix, cfg.Scale).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
