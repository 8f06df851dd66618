package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harborgate/site-api/internal/analytics"
	"github.com/harborgate/site-api/internal/api/router"
	"github.com/harborgate/site-api/internal/app/bootstrap"
	appconfig "github.com/harborgate/site-api/internal/config"
	"github.com/harborgate/site-api/internal/health"
	"github.com/harborgate/site-api/internal/leads"
	"github.com/harborgate/site-api/internal/notify"
	"github.com/harborgate/site-api/internal/observability/metrics"
	"github.com/harborgate/site-api/internal/uploads"
	"github.com/harborgate/site-api/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting site-api server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	m := metrics.New(nil)

	// External dependency handles. All of them may be nil/disabled; the
	// health endpoint reports what is actually reachable.
	pool := bootstrap.BuildPgxPool(ctx, cfg, logger, true)
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)

	awsCfg, err := bootstrap.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	s3Client := bootstrap.BuildS3Client(awsCfg, cfg)
	uploadStore := uploads.NewStore(s3Client, cfg.UploadBucket, logger)

	var collector analytics.Collector = analytics.MultiCollector{
		analytics.NewRedisCollector(redisClient, cfg.AnalyticsStream, logger),
		analytics.MetricsCollector{Metrics: m},
	}

	var leadsRepo leads.Repository
	if pool != nil {
		leadsRepo = leads.NewPostgresRepository(pool, collector)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory lead store")
		leadsRepo = leads.NewInMemoryRepository()
	}

	emailSender := bootstrap.BuildEmailSender(awsCfg, cfg, logger)
	notifier := notify.NewContactNotifier(emailSender, cfg.NotifyRecipient, logger)

	leadsHandler := leads.NewHandler(leadsRepo, notifier, m, logger)
	healthHandler := health.NewHandler(pool, redisClient, uploadStore, cfg.HealthProbeTimeout, logger)
	uploadsHandler := uploads.NewHandler(uploadStore, cfg.UploadMaxBytes, m, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		LeadsHandler:       leadsHandler,
		HealthHandler:      healthHandler,
		UploadsHandler:     uploadsHandler,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ContactRateLimit:   cfg.ContactRateLimit,
		ContactRateBurst:   cfg.ContactRateBurst,
		AuthSecret:         cfg.UploadAuthSecret,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if pool != nil {
		pool.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("server stopped")
}
