package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
	"github.com/prometheus/exporter-toolkit/web"

	"bankrecon/internal/backend"
	"bankrecon/internal/cache"
	"bankrecon/internal/cli"
	"bankrecon/internal/core"
	"bankrecon/internal/extract"
	apphttp "bankrecon/internal/http"
	"bankrecon/internal/log"
	"bankrecon/internal/metrics"
	"bankrecon/internal/services"
)

const (
	AppName = "bankrecon"
	AppDesc = "Bank statement extraction, ledger reconciliation and monthly budget dashboard."
)

func main() {
	cli.LoadEnvFile()
	boot := cli.SetupLogger(nil, log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	banks := cli.LoadBanks(logger, cfg)

	logger.Info("Starting "+AppName, "version", version.Info(), "backend", cfg.DataBackend, "banks", banks.IDs())

	backendCfg, err := backend.FromAppConfig(cfg, banks)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		versioncollector.NewCollector(AppName),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.NewLedgerCollector(result.Backend, banks.IDs()),
	)
	m := metrics.New(reg)

	dashCache := cache.NewLRUCache[core.Dashboard](cfg.DashboardCacheSize, cfg.DashboardCacheTTL)
	cacheManager := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	cacheManager.Register(dashCache)
	cacheManager.StartCleanup(cfg.DashboardCacheTTL)

	dashboard := services.NewDashboardService(result.Backend, result.Backend,
		core.ParseNetConvention(cfg.NetConvention), dashCache, m)

	ledgerOpts := []services.LedgerOption{
		services.WithInvalidator(dashboard),
		services.WithMetrics(m),
	}
	if result.Publisher != nil {
		ledgerOpts = append(ledgerOpts, services.WithPublisher(result.Publisher))
	}
	if result.Cleanup != nil {
		ledgerOpts = append(ledgerOpts, services.WithCloser(result.Cleanup))
	}
	ledger := services.NewLedgerService(result.Backend, ledgerOpts...)

	landing, err := web.NewLandingPage(web.LandingConfig{
		Name:        AppName,
		Description: AppDesc,
		Version:     version.Print(AppName),
		Links: []web.LandingLinks{
			{Address: "/metrics", Text: "Metrics"},
			{Address: "/healthz", Text: "Health"},
			{Address: "/readyz", Text: "Readiness"},
		},
	})
	if err != nil {
		logger.Error("Failed to build landing page", log.FieldError, err)
		os.Exit(1)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Extractor:      extract.New(banks),
		Reconciler:     services.NewReconciler(result.Backend, m),
		Ledger:         ledger,
		Categories:     services.NewCategoryService(result.Backend),
		Dashboard:      dashboard,
		Banks:          banks,
		Metrics:        m,
		Ready:          result.Ready,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Landing:        landing,
		Logger:         logger,
	}, apphttp.Options{
		MaxUploadBytes:     cfg.MaxUploadBytes(),
		PageSize:           cfg.PageSize,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		DefaultBank:        core.BankID(cfg.DefaultBank),
	})
	if err != nil {
		logger.Error("Failed to create server", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if err := ledger.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	})

	go func() {
		logger.Info("HTTP server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
