package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/openbanking-labs/consent-admin-api/internal/audit"
	"github.com/openbanking-labs/consent-admin-api/internal/auth"
	"github.com/openbanking-labs/consent-admin-api/internal/consent"
	"github.com/openbanking-labs/consent-admin-api/internal/consent/lineage"
	"github.com/openbanking-labs/consent-admin-api/internal/system/config"
	"github.com/openbanking-labs/consent-admin-api/internal/system/constants"
	"github.com/openbanking-labs/consent-admin-api/internal/system/middleware"
	"github.com/openbanking-labs/consent-admin-api/internal/upstream"
)

// Version information (set by build script)
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	// Optional .env for local development; ignored when absent.
	_ = godotenv.Load()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	logger.WithFields(logrus.Fields{
		"version":    version,
		"build_date": buildDate,
	}).Info("Starting Consent Admin API Server...")

	// Load configuration
	// Priority: CONFIG_PATH env var > repository/conf/deployment.yaml > cmd/server/repository/conf/deployment.yaml
	configPath := os.Getenv("CONFIG_PATH")

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	// Set log level from config
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logger.WithFields(logrus.Fields{
		"config_path": configPath,
		"log_level":   logger.GetLevel().String(),
	}).Info("Configuration loaded successfully")

	// Upstream collaborators
	client := upstream.NewClient(&cfg.Upstream, logger)
	recordSource := upstream.NewRecordSource(client)
	auditSource := upstream.NewAuditSource(client)

	backfiller := lineage.NewBackfiller(auditSource.ListByConsent, cfg.Upstream.BackfillConcurrency, logger)

	logger.WithFields(logrus.Fields{
		"candidates":           len(cfg.Upstream.Candidates()),
		"backfill_concurrency": cfg.Upstream.BackfillConcurrency,
	}).Info("Upstream collaborators initialized")

	// Router
	if logger.GetLevel() != logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CorrelationIDMiddleware())
	if cfg.CORS.Enabled {
		engine.Use(middleware.CORSMiddleware(cfg.CORS))
	}
	engine.Use(middleware.NewMetrics().Handler())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := engine.Group(constants.APIBasePath)
	authService := auth.Initialize(public, &cfg.Auth, logger)
	logger.Info("Auth module initialized")

	protected := engine.Group(constants.APIBasePath)
	protected.Use(auth.RequireAuth(authService))

	_ = consent.Initialize(protected, recordSource, backfiller, logger)
	logger.Info("Consent module initialized")

	_ = audit.Initialize(protected, auditSource, recordSource, logger)
	logger.Info("Audit module initialized")

	// Configure HTTP server
	serverAddr := cfg.Server.GetServerAddress()
	server := &http.Server{
		Addr:           serverAddr,
		Handler:        engine,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	// Start server in a goroutine
	go func() {
		logger.WithFields(logrus.Fields{
			"hostname": cfg.Server.Hostname,
			"port":     cfg.Server.Port,
			"addr":     serverAddr,
		}).Info("Starting HTTP server...")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	logger.WithField("address", serverAddr).Info("Server is running")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited gracefully")
}
