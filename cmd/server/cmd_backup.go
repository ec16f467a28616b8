package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/indipendencepark/sana-intraprendenza/internal/backup"
	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
	"github.com/indipendencepark/sana-intraprendenza/internal/replication"
	"github.com/indipendencepark/sana-intraprendenza/internal/store"
)

const restoreOrigin = "restore-backup"

// server restore-backup pushes the newest backup to the shared store and
// announces it to running servers.
var restoreBackupCmd = &cobra.Command{
	Use:   "restore-backup",
	Short: "Overwrite the shared ledger document with the newest backup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootConfig(os.Stderr)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		var cleanup closers
		defer func() { cleanup.closeAll(logger) }()

		backups, backupClosers, err := openBackups(ctx, cfg, logger)
		if err != nil {
			return err
		}
		cleanup = append(cleanup, backupClosers...)
		if backups == nil {
			return fmt.Errorf("no backup target configured")
		}

		pg, err := openPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		cleanup = append(cleanup, pg.Close)

		bus := replication.Bus(replication.NoopBus{})
		if client := openRedis(ctx, cfg, logger); client != nil {
			bus = replication.NewRedisBus(client, cfg.StateDocumentID)
			cleanup = append(cleanup, client.Close)
		}

		state, err := restoreLatest(ctx, backups, pg, bus)
		if err != nil {
			return err
		}
		logger.Info().
			Int("products", len(state.Products)).
			Int("logs", len(state.Logs)).
			Str("cash", state.CashRegister.CurrentBalance.StringFixed(2)).
			Msg("backup restored")
		return nil
	},
}

func restoreLatest(ctx context.Context, src backup.Store, dst store.StateRepository, bus replication.Bus) (domain.State, error) {
	latest, err := src.Latest(ctx)
	if err != nil {
		return domain.State{}, fmt.Errorf("reading latest backup: %w", err)
	}
	if err := dst.SaveState(ctx, *latest); err != nil {
		return domain.State{}, fmt.Errorf("writing shared document: %w", err)
	}
	err = bus.Publish(ctx, domain.RemoteSnapshot{
		Origin:     restoreOrigin,
		State:      *latest,
		ReceivedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.State{}, fmt.Errorf("announcing restored document: %w", err)
	}
	return *latest, nil
}
