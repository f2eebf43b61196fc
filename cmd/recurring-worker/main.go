package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"conti/internal/amqp"
	"conti/internal/cli"
	"conti/internal/ledger"
	"conti/internal/log"
	metricsprom "conti/internal/metrics/prometheus"
	"conti/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentRecurring)
	logger.Info("Starting recurring-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	registry := prometheus.NewRegistry()
	collector := metricsprom.NewPrometheusCollector("conti")
	collector.MustRegister(registry)

	// Events let the ledger-worker export fired instances to Google Sheets.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in SQLite-only mode", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized - fired instances will be exported by ledger-worker")
		}
	} else {
		logger.Info("AMQP disabled - fired instances will not be exported")
	}

	l := ledger.New(sqliteRepo,
		ledger.WithMetrics(collector),
		ledger.WithLogger(log.Default(log.ComponentLedger)))
	ledgerService := services.NewLedgerService(l, publisher, collector)

	processor := services.NewRecurringProcessor(sqliteRepo, ledgerService, nil, collector)
	processor.SetMaxCatchUp(cfg.RecurringMaxCatchUp)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	run := func() {
		count, err := processor.ProcessDue(ctx, time.Now())
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Recurring processing failed", log.FieldError, err)
			}
			return
		}
		logger.Info("Recurring processing complete", "instances_fired", count)
	}

	// Run initial processing on startup
	logger.Info("Running initial recurring processing...")
	run()

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := scheduler.AddFunc(cfg.RecurringSchedule, run); err != nil {
		logger.Error("Invalid recurring schedule", log.FieldError, err, "schedule", cfg.RecurringSchedule)
		os.Exit(1)
	}
	logger.Info("Recurring processor scheduled",
		"schedule", cfg.RecurringSchedule,
		"max_catch_up", cfg.RecurringMaxCatchUp,
		"sqlite_db", cfg.SQLiteDBPath)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()
		// Wait for a running job to finish.
		<-scheduler.Stop().Done()
		return nil
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			logger.Info("Metrics server listening", "addr", cfg.MetricsAddr)
			return metricsprom.Serve(gctx, cfg.MetricsAddr, metricsprom.Handler(registry))
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Recurring-worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Recurring-worker shutdown complete")
}
