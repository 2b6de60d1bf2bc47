// Package main is the entry point for the price-tracker server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/Rubayet19/price-tracker/internal/archive"
	"github.com/Rubayet19/price-tracker/internal/auth"
	"github.com/Rubayet19/price-tracker/internal/batchrunner"
	"github.com/Rubayet19/price-tracker/internal/billing"
	"github.com/Rubayet19/price-tracker/internal/config"
	"github.com/Rubayet19/price-tracker/internal/crypto"
	"github.com/Rubayet19/price-tracker/internal/database"
	"github.com/Rubayet19/price-tracker/internal/digestjob"
	"github.com/Rubayet19/price-tracker/internal/discovery"
	"github.com/Rubayet19/price-tracker/internal/http/routes"
	"github.com/Rubayet19/price-tracker/internal/logging"
	"github.com/Rubayet19/price-tracker/internal/mailer"
	"github.com/Rubayet19/price-tracker/internal/repository"
	"github.com/Rubayet19/price-tracker/internal/version"
)

func main() {
	logger := logging.New()

	v := version.Get()
	logger.Info("starting price-tracker",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := database.MigrateWithLogger(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	if schemaVersion, err := database.GetLatestSchemaVersion(db); err != nil {
		logger.Warn("failed to get schema version", "error", err)
	} else if schemaVersion != "" {
		count, _ := database.GetMigrationCount(db)
		logger.Info("database schema ready", "schema_version", schemaVersion, "migrations_applied", count)
	}

	repos := repository.NewRepositories(db)

	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set - bearer auth and trial-start issuance will fail closed")
	}

	var encryptor *crypto.Encryptor
	if cfg.EncryptionKeySeed != "" {
		encryptor, err = crypto.NewEncryptorFromSeed(cfg.EncryptionKeySeed, "stripe_customer_id")
		if err != nil {
			logger.Error("failed to derive encryption key", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("ENCRYPTION_KEY not set - stripe customer ids will be stored in plaintext")
	}

	billingHandler := billing.New(repos.User, repos.WebhookEvent, encryptor, cfg.StripeWebhookSecret, logger)

	archiveCtx, archiveCancel := context.WithTimeout(context.Background(), 10*time.Second)
	archiver, err := archive.New(archiveCtx, archive.Options{
		Enabled:   cfg.StorageEnabled,
		Endpoint:  cfg.StorageEndpoint,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		Bucket:    cfg.StorageBucket,
		Region:    cfg.StorageRegion,
	}, logger)
	archiveCancel()
	if err != nil {
		logger.Error("failed to initialize raw capture archive", "error", err)
		os.Exit(1)
	}
	if archiver.IsEnabled() {
		logger.Info("raw capture archiving enabled", "bucket", cfg.StorageBucket)
	}

	discoverer := discovery.NewDiscoverer(cfg.CrawlFetchTimeoutMS, cfg.CrawlMaxHTMLLength, logger)
	runner := batchrunner.New(repos, discoverer, archiver, cfg, logger)

	resendMailer := mailer.NewResendMailer(cfg.MailerAPIKey, logger)
	digest := digestjob.New(repos, resendMailer, digestjob.Options{
		LookbackDays:     cfg.DigestLookbackDays,
		MaxDiffsPerEmail: cfg.DigestMaxDiffsPerEmail,
		FromAddress:      cfg.DigestFromAddress,
	}, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Cron-Secret", "Stripe-Signature"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(middleware.RequestSize(1 * 1024 * 1024))
	router.Use(httprate.LimitByIP(100, time.Minute))

	routes.Register(router, routes.Deps{
		Repos:      repos,
		Discoverer: discoverer,
		Runner:     runner,
		Digest:     digest,
		Billing:    billingHandler,
		Verifier:   verifier,
		Cfg:        cfg,
		Logger:     logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan

		logger.Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "port", cfg.Port, "base_url", cfg.BaseURL)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
