package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"vehiclerental/internal/app"
	"vehiclerental/internal/config"
	"vehiclerental/internal/gateway"
	"vehiclerental/internal/handler"
	"vehiclerental/internal/jobs"
	"vehiclerental/internal/logger"
	internalRedis "vehiclerental/internal/redis"
	"vehiclerental/internal/repository"
	"vehiclerental/internal/repository/memory"
	"vehiclerental/internal/repository/postgres"
	"vehiclerental/internal/service"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log := logger.New(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.WithError(err).Warn("failed to initialize New Relic")
			nrApp = nil
		} else {
			log.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	store, closeStore, err := openStore(ctx, cfg, nrApp, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open storage")
	}
	defer closeStore()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer redisClient.Close()
		log.WithField("addr", cfg.Redis.Addr).Info("connected to Redis")
	}

	gw, parsers, err := newGateway(cfg.Gateway, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize payment gateway")
	}

	// Wire dependencies.
	server, reconciler, scheduler, err := wireServer(cfg, store, redisClient, gw, parsers, nrApp, log)
	if err != nil {
		log.WithError(err).Fatal("failed to wire server")
	}

	scheduler.Start()

	// Start server in goroutine.
	go func() {
		log.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	if err := reconciler.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("confirmation tasks still running at shutdown")
	}
	scheduler.Stop(shutdownCtx)

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Info("server exited")
}

// openStore selects the persistence backend.
func openStore(ctx context.Context, cfg *config.Config, nrApp *newrelic.Application, log *logrus.Logger) (repository.Store, func(), error) {
	if cfg.Storage.Driver == "memory" {
		store := memory.NewStore()
		if cfg.Storage.SeedFile != "" {
			if err := store.LoadSeed(cfg.Storage.SeedFile); err != nil {
				return nil, nil, err
			}
		}
		log.WithField("seed", cfg.Storage.SeedFile).Warn("using in-memory storage")
		return store, func() {}, nil
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		return nil, nil, err
	}
	log.Info("connected to PostgreSQL")
	return postgres.NewStore(db), func() { _ = db.Close() }, nil
}

// newGateway builds the configured payment gateway and the notification
// parsers served by the webhook route.
func newGateway(cfg config.GatewayConfig, log *logrus.Logger) (service.Gateway, map[string]service.NotificationParser, error) {
	parsers := make(map[string]service.NotificationParser)

	switch cfg.Provider {
	case "midtrans":
		m, err := gateway.NewMidtrans(gateway.MidtransConfig{
			ServerKey:   cfg.MidtransServerKey,
			Production:  cfg.MidtransProduction,
			SnapBaseURL: cfg.MidtransSnapURL,
			APIBaseURL:  cfg.MidtransAPIURL,
			FinishURL:   cfg.FinishURL,
			Timeout:     cfg.HTTPTimeout,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		parsers[m.Name()] = m
		return m, parsers, nil

	case "stripe":
		s, err := gateway.NewStripe(gateway.StripeConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			Currency:      cfg.Currency,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		parsers[s.Name()] = s
		return s, parsers, nil
	}

	log.Warn("using mock payment gateway")
	return service.NewMockGateway(), parsers, nil
}

// wireServer wires all dependencies and returns the HTTP server together
// with the background workers main must stop.
func wireServer(
	cfg *config.Config,
	store repository.Store,
	redisClient *redis.Client,
	gw service.Gateway,
	parsers map[string]service.NotificationParser,
	nrApp *newrelic.Application,
	log *logrus.Logger,
) (*http.Server, *service.Reconciler, *jobs.Scheduler, error) {
	// Locks and cache live in Redis when it is configured.
	var (
		locker service.Locker = service.NewLocalLocker()
		cache  service.PaymentCache
		replay redis.Cmdable
	)
	if redisClient != nil {
		locker = internalRedis.NewLockStore(redisClient, cfg.Locks.TTL, cfg.Locks.Wait, log)
		cache = internalRedis.NewCacheStore(redisClient, cfg.Redis.CacheTTL)
		replay = redisClient
	}

	// Initialize services.
	notificationService := service.NewNotificationService(log)
	ledger := service.NewLedger(store, locker, log)
	rentalService := service.NewRentalService(store, locker, ledger, gw, cache, notificationService, log)
	paymentService := service.NewPaymentService(store, locker, ledger, gw, cache, notificationService, log)
	approvalService := service.NewApprovalService(store, locker, ledger, cache, notificationService, log)
	verificationService := service.NewVerificationService(store, locker, notificationService, log)
	reconciler := service.NewReconciler(paymentService, service.ReconcilerConfig{
		Attempts:    cfg.Reconcile.Attempts,
		Interval:    cfg.Reconcile.Interval,
		CallTimeout: cfg.Reconcile.CallTimeout,
	}, log)

	scheduler, err := jobs.NewScheduler(paymentService, jobs.SweepConfig{
		Spec:   cfg.Reconcile.SweepSpec,
		MinAge: cfg.Reconcile.SweepMinAge,
		Limit:  cfg.Reconcile.SweepLimit,
	}, nrApp, log)
	if err != nil {
		return nil, nil, nil, err
	}

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		RentalHandler:  handler.NewRentalHandler(rentalService),
		PaymentHandler: handler.NewPaymentHandler(rentalService, paymentService, reconciler, parsers),
		AdminHandler:   handler.NewAdminHandler(approvalService, rentalService),
		UnitHandler:    handler.NewUnitHandler(ledger),
		UserHandler:    handler.NewUserHandler(verificationService),
		Auth:           cfg.Auth,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RedisClient:    replay,
		NewRelicApp:    nrApp,
		Logger:         log,
	})

	// Create HTTP server.
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return server, reconciler, scheduler, nil
}
