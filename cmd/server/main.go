package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/quantdesk/quantdesk-go/internal/api"
	"github.com/quantdesk/quantdesk-go/internal/api/handlers"
	"github.com/quantdesk/quantdesk-go/internal/config"
	"github.com/quantdesk/quantdesk-go/internal/database"
	"github.com/quantdesk/quantdesk-go/internal/logging"
	"github.com/quantdesk/quantdesk-go/internal/marketdata"
	"github.com/quantdesk/quantdesk-go/internal/models"
	"github.com/quantdesk/quantdesk-go/internal/quant"
	"github.com/quantdesk/quantdesk-go/internal/report"
	"github.com/quantdesk/quantdesk-go/internal/telemetry"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.Environment)

	ctx := context.Background()
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, cfg.Telemetry)
		if err != nil {
			logger.WithError(err).Warn("Telemetry disabled: initialization failed")
		} else {
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(flushCtx)
			}()
		}
	}

	// The database and Redis are optional backends: without them the API
	// still serves analysis requests, just without report storage and
	// series caching.
	var db *database.PostgresDB
	if conn, err := database.NewPostgresConnection(ctx, cfg.Database, logger); err != nil {
		logger.WithError(err).Warn("Running without report storage")
	} else {
		db = conn
		defer db.Close()
	}

	var redisClient *database.RedisClient
	if conn, err := database.NewRedisConnection(ctx, cfg.Redis, logger); err != nil {
		logger.WithError(err).Warn("Running without series cache")
	} else {
		redisClient = conn
		defer redisClient.Close()
	}

	var cache marketdata.SeriesCache
	if redisClient != nil {
		cache = marketdata.NewRedisSeriesCache(redisClient.Client, cfg.MarketData.CacheTTLDuration(), logger)
	}
	marketDataService := marketdata.NewService(marketdata.NewClient(&cfg.MarketData), cache, logger)

	engine := quant.NewEngine(logger)
	engineDefaults := engineConfig(cfg.Analytics)

	var store *database.ReportStore
	if db != nil {
		store = database.NewReportStore(db.Pool)
	}
	var assembler *report.Assembler
	if len(cfg.Report.Symbols) > 0 {
		var s report.Store
		if store != nil {
			s = store
		}
		assembler = report.NewAssembler(marketDataService, s, cfg.Report, engineDefaults, logger)
	}

	var scheduler *report.Scheduler
	if cfg.Report.Enabled && assembler != nil {
		scheduler = report.NewScheduler(assembler, cfg.Report.Schedule, logger)
		if err := scheduler.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start report scheduler")
		}
		defer scheduler.Stop()
	}

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, api.Dependencies{
		Analysis: handlers.NewAnalysisHandler(engine, marketDataService, engineDefaults, logger),
		Reports:  handlers.NewReportsHandler(assembler, store, logger),
		Health:   handlers.NewHealthHandler(db, redisClient),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}
}

// engineConfig maps the application defaults onto a per-request analytics
// configuration.
func engineConfig(a config.AnalyticsConfig) quant.Config {
	return quant.Config{
		ShortWindow:     a.ShortWindow,
		LongWindow:      a.LongWindow,
		ADXWindow:       a.ADXWindow,
		ADXThreshold:    a.ADXThreshold,
		ADXFilter:       &a.ADXFilter,
		MAKind:          a.MAKind,
		ReturnKind:      models.ReturnKind(a.ReturnKind),
		PeriodsPerYear:  a.PeriodsPerYear,
		RiskFreeRate:    a.RiskFreeRate,
		ForecastHorizon: a.ForecastHorizon,
		Confidence:      a.Confidence,
		Rebalance:       a.Rebalance,
	}.Normalize()
}
