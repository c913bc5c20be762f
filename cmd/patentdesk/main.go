package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/patentdesk/pkg/api"
	"github.com/platinummonkey/patentdesk/pkg/auth"
	"github.com/platinummonkey/patentdesk/pkg/billing"
	"github.com/platinummonkey/patentdesk/pkg/config"
	"github.com/platinummonkey/patentdesk/pkg/folders"
	"github.com/platinummonkey/patentdesk/pkg/jobs"
	"github.com/platinummonkey/patentdesk/pkg/middleware"
	"github.com/platinummonkey/patentdesk/pkg/observability"
	"github.com/platinummonkey/patentdesk/pkg/orgs"
	"github.com/platinummonkey/patentdesk/pkg/plans"
	"github.com/platinummonkey/patentdesk/pkg/storage"
	"github.com/platinummonkey/patentdesk/pkg/storage/objectstore"
	"github.com/platinummonkey/patentdesk/pkg/storage/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("PatentDesk exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, cancel := context.WithCancel(observability.WithLogger(context.Background(), logger))
	defer cancel()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return err
	}

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	db, err := postgres.Open(postgres.ConnectionConfig{
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.MaxLifetime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		return err
	}
	logger.Info("Connected to PostgreSQL")

	if cfg.Database.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Info("Database schema is up to date")
	}

	redisClient, err := storage.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("Connected to Redis")

	var objects objectstore.Store
	if cfg.S3.Bucket != "" {
		s3Store, err := objectstore.NewS3Store(ctx, cfg.S3)
		if err != nil {
			return err
		}
		objects = s3Store
		logger.Infof("Storing imported files in bucket %s", cfg.S3.Bucket)
	} else {
		objects = objectstore.NewMemoryStore()
		logger.Warn("No S3 bucket configured, imported files are kept in memory")
	}

	catalog := plans.NewCatalog(plans.NewPostgresStore(db), cfg.Plans.CacheSize)
	if cfg.Plans.SeedFile != "" {
		applied, err := plans.Seed(ctx, catalog, cfg.Plans.SeedFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Warnf("Plan seed file %s not found, using stored plans", cfg.Plans.SeedFile)
		case err != nil:
			return err
		default:
			logger.Infof("Seeded %d plans from %s", applied, cfg.Plans.SeedFile)
		}
		if cfg.Plans.WatchSeed {
			go func() {
				if err := plans.Watch(ctx, catalog, cfg.Plans.SeedFile); err != nil {
					logger.WithError(err).Error("Plan seed watcher stopped")
				}
			}()
		}
	}

	orgService := orgs.NewPostgresService(db, cfg.Server.AppBaseURL, metrics)

	billingService := billing.NewService(db, catalog,
		billing.NewGateway(cfg.Payments.RazorpayKeyID, cfg.Payments.RazorpayKeySecret),
		billing.Config{
			Currency:            cfg.Payments.Currency,
			StripeWebhookSecret: cfg.Payments.StripeWebhookSecret,
		}, metrics)
	billingService.SetOrganizationSync(orgService)

	var mailer auth.Mailer
	if cfg.Mail.BrevoAPIKey != "" {
		mailer = auth.NewBrevoMailer(cfg.Mail.BrevoAPIKey, cfg.Mail.FromEmail, cfg.Mail.FromName)
	} else {
		mailer = auth.NewLogMailer(logger)
		logger.Warn("No Brevo API key configured, OTP emails are written to the log")
	}

	users := auth.NewPostgresUserStore(db)
	otpStore := auth.NewOTPStore(redisClient, auth.OTPStoreConfig{
		OTPTTL:           cfg.Auth.OTPTTL,
		PendingSignupTTL: cfg.Auth.PendingSignupTTL,
		ResendInterval:   cfg.Auth.OTPResendInterval,
		MaxAttempts:      cfg.Auth.OTPMaxAttempts,
	})
	authService := auth.NewService(users, otpStore,
		auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		mailer, orgService, metrics)

	folderService := folders.NewPostgresService(db, objects, metrics)

	health := observability.NewHealthChecker(db, redisClient).
		WithVersion(cfg.Observability.OTelServiceVersion).
		Optional("objectstore", objects.HealthCheck)

	server := api.NewServer(api.Services{
		Auth:          authService,
		Authenticator: authService,
		Billing:       billingService,
		Plans:         catalog,
		Orgs:          orgService,
		Folders:       folderService,
		Users:         users,
	}, api.Options{
		Logger:         logger,
		Metrics:        metrics,
		Health:         health,
		RateLimiter:    middleware.NewRateLimiter(redisClient, middleware.AuthRateLimitConfig(), "ratelimit:auth"),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Tracing:        otelProviders != nil,
	})

	scheduler := jobs.NewScheduler(billingService, orgService, db, metrics, logger)
	if err := scheduler.Register(); err != nil {
		return err
	}
	scheduler.Start()

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc("scheduler", scheduler.Stop)
	shutdown.RegisterShutdownFunc("background", func(ctx context.Context) error {
		cancel()
		return nil
	})
	shutdown.RegisterShutdownFunc("postgres", func(ctx context.Context) error {
		return db.Close()
	})
	shutdown.RegisterShutdownFunc("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})
	shutdown.RegisterShutdownFunc("tracing", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, otelProviders, logger)
	})

	go func() {
		logger.Infof("PatentDesk API listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("HTTP server failed")
			shutdown.Trigger()
		}
	}()

	return shutdown.WaitForShutdown()
}
