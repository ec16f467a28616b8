package main

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/indipendencepark/sana-intraprendenza/internal/backup"
	"github.com/indipendencepark/sana-intraprendenza/internal/cache"
	"github.com/indipendencepark/sana-intraprendenza/internal/config"
	"github.com/indipendencepark/sana-intraprendenza/internal/logger"
	"github.com/indipendencepark/sana-intraprendenza/internal/store"
	"github.com/indipendencepark/sana-intraprendenza/internal/store/memory"
	pgstore "github.com/indipendencepark/sana-intraprendenza/internal/store/postgres"
)

const serviceName = "sana-intraprendenza"

// closers are run in reverse order on shutdown.
type closers []func() error

func (c closers) closeAll(logger zerolog.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			logger.Warn().Err(err).Msg("close error")
		}
	}
}

// bootConfig loads configuration and installs the process-wide logger
// writing to out.
func bootConfig(out io.Writer) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	l := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
		Output:      out,
	})
	log.Logger = l
	return cfg, l, nil
}

// openPostgres connects to the shared document store. Commands other than
// serve have nothing to work on without one.
func openPostgres(ctx context.Context, cfg config.Config) (*pgstore.Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("%s_DATABASE_URL is not set", config.EnvPrefix)
	}
	pg, err := pgstore.New(ctx, cfg.DatabaseURL, cfg.StateDocumentID)
	if err != nil {
		return nil, fmt.Errorf("postgres unavailable: %w", err)
	}
	return pg, nil
}

// openRepository picks postgres when DATABASE_URL is set, running pending
// migrations first, and the seeded in-memory store otherwise.
func openRepository(ctx context.Context, cfg config.Config, startingCash decimal.Decimal, logger zerolog.Logger) (store.Repository, closers, error) {
	if cfg.DatabaseURL == "" {
		logger.Info().Str("repository", "memory").Msg("repository selected")
		return memory.NewSeeded(startingCash), nil, nil
	}

	pg, err := openPostgres(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("%w; refusing to start with in-memory fallback", err)
	}
	if err := pgstore.Migrate(ctx, pg.DB(), "up"); err != nil {
		_ = pg.Close()
		return nil, nil, err
	}
	logger.Info().Str("repository", "postgres").Str("document", cfg.StateDocumentID).Msg("repository selected")
	return pg, closers{pg.Close}, nil
}

// openBackups returns nil when no backup target is configured.
func openBackups(ctx context.Context, cfg config.Config, logger zerolog.Logger) (backup.Store, closers, error) {
	var (
		targets backup.Fanout
		cleanup closers
	)

	if cfg.BackupPath != "" {
		local, err := backup.NewSQLite(cfg.BackupPath, cfg.BackupRetention)
		if err != nil {
			return nil, nil, fmt.Errorf("opening local backup: %w", err)
		}
		targets = append(targets, local)
		cleanup = append(cleanup, local.Close)
		logger.Info().Str("path", cfg.BackupPath).Int("retention", cfg.BackupRetention).Msg("local backup enabled")
	}

	if cfg.S3Bucket != "" {
		archive, err := backup.NewS3Archive(ctx, backup.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			Prefix:    cfg.S3Prefix,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			cleanup.closeAll(logger)
			return nil, nil, err
		}
		targets = append(targets, archive)
		logger.Info().Str("bucket", cfg.S3Bucket).Str("prefix", cfg.S3Prefix).Msg("s3 archive enabled")
	}

	if len(targets) == 0 {
		logger.Warn().Msg("no backup target configured")
		return nil, nil, nil
	}
	return targets, cleanup, nil
}

// openRedis returns nil when REDIS_ADDR is unset or the server does not
// answer; callers then fall back to the no-op bus and cache.
func openRedis(ctx context.Context, cfg config.Config, logger zerolog.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		logger.Info().Msg("redis not configured, replication and insight cache disabled")
		return nil
	}
	client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, replication and insight cache disabled")
		_ = client.Close()
		return nil
	}
	logger.Info().Str("addr", cfg.RedisAddr).Msg("redis connected")
	return client
}
