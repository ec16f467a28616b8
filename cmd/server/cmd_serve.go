package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/indipendencepark/sana-intraprendenza/internal/cache"
	"github.com/indipendencepark/sana-intraprendenza/internal/config"
	"github.com/indipendencepark/sana-intraprendenza/internal/gateway"
	"github.com/indipendencepark/sana-intraprendenza/internal/httpapi"
	"github.com/indipendencepark/sana-intraprendenza/internal/insight"
	"github.com/indipendencepark/sana-intraprendenza/internal/ledger"
	"github.com/indipendencepark/sana-intraprendenza/internal/metrics"
	"github.com/indipendencepark/sana-intraprendenza/internal/replication"
	"github.com/indipendencepark/sana-intraprendenza/internal/service"
	"github.com/indipendencepark/sana-intraprendenza/internal/xid"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
	cfg, logger, err := bootConfig(os.Stdout)
	if err != nil {
		return err
	}
	if err := validateSecurityConfig(cfg); err != nil {
		return fmt.Errorf("invalid security configuration: %w", err)
	}
	startingCash, err := cfg.StartingCashAmount()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var cleanup closers
	defer func() { cleanup.closeAll(logger) }()

	repo, repoClosers, err := openRepository(ctx, cfg, startingCash, logger)
	if err != nil {
		return err
	}
	cleanup = append(cleanup, repoClosers...)

	backups, backupClosers, err := openBackups(ctx, cfg, logger)
	if err != nil {
		return err
	}
	cleanup = append(cleanup, backupClosers...)

	bus := replication.Bus(replication.NoopBus{})
	insightCache := cache.InsightCache(cache.NoopInsightCache{})
	if client := openRedis(ctx, cfg, logger); client != nil {
		bus = replication.NewRedisBus(client, cfg.StateDocumentID)
		insightCache = cache.NewRedisInsightCache(client)
		cleanup = append(cleanup, client.Close)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine := ledger.NewEngine(startingCash)
	gw := gateway.New(gateway.Options{
		Store:  repo,
		Backup: backups,
		Bus:    bus,
		Origin: xid.New("node"),
		Logger: logger,
	})
	svc := service.New(service.Options{
		Engine:    engine,
		Persister: gw,
		Insights: insight.NewEngine(
			insightCache,
			time.Duration(cfg.InsightTTLSeconds)*time.Second,
			insight.NewRuleGenerator(engine.FormatMoney),
		),
		Metrics:           metrics.NewLedgerMetrics(registry),
		Logger:            logger,
		LowStockThreshold: cfg.LowStockThreshold,
		RecentLogLimit:    cfg.RecentLogLimit,
	})
	if err := svc.Bootstrap(ctx); err != nil {
		return fmt.Errorf("loading ledger: %w", err)
	}

	runCtx, stopGateway := context.WithCancel(context.Background())
	gatewayDone := make(chan struct{})
	go func() {
		defer close(gatewayDone)
		if err := gw.Run(runCtx); err != nil {
			logger.Error().Err(err).Msg("final flush failed")
		}
	}()

	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo, svc.Members())
	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		Logger:        logger,
		Gatherer:      registry,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Address()).Msg("mini-bar ledger listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-serverErr:
		logger.Error().Err(err).Msg("server error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("shutdown error")
	}

	stopGateway()
	<-gatewayDone

	logger.Info().Msg("server stopped")
	return nil
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("%s_AUTH_SECRET must be set and at least 32 characters", config.EnvPrefix)
	}
	if cfg.AllowedOrigin == "" {
		return fmt.Errorf("%s_ALLOWED_ORIGIN must not be empty", config.EnvPrefix)
	}
	return nil
}
