package main

import (
	"context"
	"errors"
	"os"
	"time"

	"bankrecon/internal/amqp"
	"bankrecon/internal/cli"
	"bankrecon/internal/log"
	gsheet "bankrecon/internal/sheets/google"
	"bankrecon/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	boot := cli.SetupLogger(nil, log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	banks := cli.LoadBanks(logger, cfg)

	logger.Info("Starting ledger-worker", "banks", banks.IDs())

	if cfg.AMQPURL == "" || cfg.GoogleSpreadsheetID == "" {
		logger.Error("ledger-worker needs AMQP_URL and GOOGLE_SPREADSHEET_ID")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	sheetsClient, err := gsheet.NewFromEnv(context.Background(), banks.Worksheets())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	if err := sheetsClient.Prepare(context.Background()); err != nil {
		logger.Error("Failed to prepare worksheets", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(repo, sheetsClient)
	resyncer := worker.NewResyncer(syncWorker, worker.DefaultResyncConfig())

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := resyncer.Stop(shutdownCtx); err != nil {
			logger.Warn("Resyncer did not stop in time", log.FieldError, err)
		}
		if err := errors.Join(amqpClient.Close(), repo.Close()); err != nil {
			logger.Error("Worker cleanup failed", log.FieldError, err)
		}
	})

	// The first full copy runs inside the resyncer before its first tick.
	if err := resyncer.Start(ctx); err != nil {
		logger.LogError(ctx, "Failed to start resyncer", err, log.OpStartup, nil)
		os.Exit(1)
	}

	go func() {
		err := amqpClient.ConsumeLedgerSync(ctx, syncWorker.HandleLedgerSync)
		if err != nil && ctx.Err() == nil {
			logger.Error("Message consumption failed", log.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
