package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lynixmail/internal/api"
	"lynixmail/internal/automation"
	"lynixmail/internal/config"
	"lynixmail/internal/db"
	"lynixmail/internal/mailer"
	"lynixmail/internal/metrics"
	"lynixmail/internal/models"
	"lynixmail/internal/repository"
)

func main() {

	// ------------------------------------------------
	// Logger
	// ------------------------------------------------
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// ------------------------------------------------
	// Config
	// ------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ------------------------------------------------
	// Root Context + Shutdown
	// ------------------------------------------------
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	// ------------------------------------------------
	// Database
	// ------------------------------------------------
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	// ------------------------------------------------
	// Metrics
	// ------------------------------------------------
	metrics.Init()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metricsMux,
	}

	go func() {
		logger.Info("metrics server started", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("metrics server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Repositories
	// ------------------------------------------------
	rules := repository.NewRuleRepository(pool)
	jobs := repository.NewJobRepository(pool)
	settings := repository.NewSettingsRepository(pool)
	subscribers := repository.NewSubscriberRepository(pool)
	contacts := repository.NewContactRepository(pool)
	events := repository.NewEventRepository(pool)

	// ------------------------------------------------
	// Mailer (settings provider + transporter cache)
	// ------------------------------------------------
	smtpFallback := models.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		ReplyTo:  cfg.SMTPReplyTo,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}
	transporterCache := mailer.NewCache(mailer.NewSettings(settings, smtpFallback, logger))

	// ------------------------------------------------
	// Automation Facade
	// ------------------------------------------------
	auto := automation.New(automation.Deps{
		Rules:       rules,
		Jobs:        jobs,
		Subscribers: subscribers,
		Transports:  transporterCache,
		Events:      events,
		Log:         logger,
	}, automation.Options{
		SiteURL:       cfg.SiteURL,
		CompanyName:   cfg.CompanyName,
		AdminEmail:    cfg.AdminEmail,
		BroadcastRate: cfg.BroadcastRateLimit,
	})

	// ------------------------------------------------
	// HTTP API Server
	// ------------------------------------------------
	handler := &api.Handler{
		Rules:       rules,
		Jobs:        jobs,
		Settings:    settings,
		Subscribers: subscribers,
		Contacts:    contacts,
		Automation:  auto,
		Cache:       transporterCache,
		Log:         logger,
	}

	apiServer := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: api.Routes(handler, &api.StaticVerifier{Token: cfg.AdminAPIToken}),
	}

	go func() {
		logger.Info("api server started", zap.String("port", cfg.APIPort))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("api server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Wait for shutdown
	// ------------------------------------------------
	<-ctx.Done()

	logger.Info("shutting down services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", zap.Error(err))
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", zap.Error(err))
	}

	logger.Info("application shutdown complete")
}
