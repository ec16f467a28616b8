package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	pgstore "github.com/indipendencepark/sana-intraprendenza/internal/store/postgres"
)

// server migrate [up|down|status]
var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply or inspect the postgres schema migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		command := "up"
		if len(args) == 1 {
			command = args[0]
		}

		cfg, logger, err := bootConfig(os.Stderr)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		pg, err := openPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		defer pg.Close()

		logger.Info().Str("command", command).Msg("running migrations")
		return pgstore.Migrate(ctx, pg.DB(), command)
	},
}

// server export prints the shared ledger document.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the shared ledger document as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Logs go to stderr so the document can be piped.
		cfg, _, err := bootConfig(os.Stderr)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		pg, err := openPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		defer pg.Close()

		state, err := pg.LoadState(ctx)
		if err != nil {
			return fmt.Errorf("loading document %q: %w", cfg.StateDocumentID, err)
		}

		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(state)
	},
}
