package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/receivables/internal/app"
	"github.com/odyssey-erp/receivables/internal/chart"
	"github.com/odyssey-erp/receivables/internal/doctypes"
	"github.com/odyssey-erp/receivables/internal/observability"
	"github.com/odyssey-erp/receivables/internal/platform/cache"
	"github.com/odyssey-erp/receivables/internal/platform/db"
	"github.com/odyssey-erp/receivables/internal/receivables"
	"github.com/odyssey-erp/receivables/internal/reports"
	"github.com/odyssey-erp/receivables/internal/shared"
	"github.com/odyssey-erp/receivables/jobs"
	"github.com/odyssey-erp/receivables/migrations"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if cfg.PGMigrate {
		applied, err := db.Migrate(ctx, dbpool, migrations.FS)
		if err != nil {
			logger.Error("apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied", slog.Any("files", applied))
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	sessions := shared.NewSessionStore(redisClient, cfg.SessionPrefix)
	auditLogger := shared.NewAuditLogger(dbpool)

	chartService := chart.NewService(chart.NewRepository(dbpool))
	chartHandler := chart.NewHandler(logger, chartService)
	docTypeHandler := doctypes.NewHandler(logger, doctypes.NewRepository(dbpool))

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportService := reports.NewService(reports.NewRepository(dbpool), reportCache, logger)
	reportHandler := reports.NewHandler(logger, reportService)

	postingService := receivables.NewService(receivables.NewRepository(dbpool), auditLogger, logger)
	postingService.WithMetrics(metrics)
	postingService.WithInvalidator(reportCache)
	receivablesHandler := receivables.NewHandler(logger, postingService)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Principals:         sessions,
		ChartHandler:       chartHandler,
		DocTypeHandler:     docTypeHandler,
		ReceivablesHandler: receivablesHandler,
		ReportHandler:      reportHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
