package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"conti/internal/amqp"
	"conti/internal/cli"
	"conti/internal/log"
	metricsprom "conti/internal/metrics/prometheus"
	"conti/internal/services"
	gsheet "conti/internal/sheets/google"
	"conti/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting ledger-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("ledger-worker needs GOOGLE_SPREADSHEET_ID to export entries")
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("ledger-worker needs AMQP_URL to receive ledger events")
		os.Exit(1)
	}

	// SQLite is the source of truth the worker exports from
	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	registry := prometheus.NewRegistry()
	collector := metricsprom.NewPrometheusCollector("conti")
	collector.MustRegister(registry)

	sheetsClient, err := gsheet.Dial(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(sqliteRepo, sheetsClient, collector, cfg.ExportBatchSize)
	backfill := services.NewExportProcessor(exportWorker, services.ExportProcessorConfig{
		PollInterval: cfg.ExportInterval,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := backfill.Stop(stopCtx); err != nil {
			logger.Warn("Export processor did not stop cleanly", log.FieldError, err)
		}
	})

	// On startup, export any entries whose events were missed
	logger.Info("Performing startup export check...")
	if err := exportWorker.StartupExportCheck(ctx); err != nil {
		logger.Error("Failed startup export check", log.FieldError, err)
		// Don't exit - continue with normal operation
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeLedgerEvents(gctx, exportWorker.HandleLedgerEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		if err := backfill.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return nil
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			logger.Info("Metrics server listening", "addr", cfg.MetricsAddr)
			return metricsprom.Serve(gctx, cfg.MetricsAddr, metricsprom.Handler(registry))
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Ledger-worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Ledger-worker shutdown complete")
}
