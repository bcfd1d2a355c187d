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

	"github.com/corebox-crm/corebox/internal/analytics"
	analytichttp "github.com/corebox-crm/corebox/internal/analytics/http"
	"github.com/corebox-crm/corebox/internal/app"
	"github.com/corebox-crm/corebox/internal/billing"
	"github.com/corebox-crm/corebox/internal/observability"
	"github.com/corebox-crm/corebox/internal/parentreport"
	"github.com/corebox-crm/corebox/internal/platform/cache"
	"github.com/corebox-crm/corebox/internal/platform/db"
	"github.com/corebox-crm/corebox/internal/rates"
	"github.com/corebox-crm/corebox/internal/students"
	"github.com/corebox-crm/corebox/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	studentsRepo := students.NewRepository(dbpool)
	studentsService := students.NewService(studentsRepo)
	studentsHandler := students.NewHandler(logger, studentsService)

	ratesRepo := rates.NewRepository(dbpool)
	ratesService := rates.NewService(ratesRepo)
	ratesHandler := rates.NewHandler(logger, ratesService)

	reportCache := analytics.NewCache(redisClient, cfg.CacheTTL)
	analyticsRepo := analytics.NewRepository(dbpool)
	analyticsService := analytics.NewService(analyticsRepo, reportCache)
	analyticsHandler := analytichttp.NewHandler(logger, analyticsService)

	billingRepo := billing.NewRepository(dbpool)
	billingService := billing.NewService(billingRepo, studentsService, ratesService, reportCache)
	billingService.WithLogger(logger)
	billingHandler := billing.NewHandler(logger, billingService, metrics)

	parentReportService := parentreport.NewService(studentsService, analyticsService, billingService)
	parentReportHandler := parentreport.NewHandler(logger, parentReportService)

	if err := reportCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		StudentsHandler:     studentsHandler,
		RatesHandler:        ratesHandler,
		BillingHandler:      billingHandler,
		AnalyticsHandler:    analyticsHandler,
		ParentReportHandler: parentReportHandler,
		JobHandler:          jobHandler,
		Metrics:             metrics,
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
