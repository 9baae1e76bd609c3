// Command hubserver is the Hub's HTTP entrypoint: it wires configuration,
// storage, the reliability substrate, every internal service, and the
// HTTP router, then serves until a termination signal arrives.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/careerhub/hub/infrastructure/cache"
	"github.com/careerhub/hub/infrastructure/keymanager"
	"github.com/careerhub/hub/infrastructure/logging"
	"github.com/careerhub/hub/infrastructure/metrics"
	"github.com/careerhub/hub/infrastructure/middleware"
	"github.com/careerhub/hub/infrastructure/ratelimit"
	"github.com/careerhub/hub/infrastructure/resilience"
	"github.com/careerhub/hub/internal/api"
	"github.com/careerhub/hub/internal/auth"
	"github.com/careerhub/hub/internal/billing"
	"github.com/careerhub/hub/internal/config"
	"github.com/careerhub/hub/internal/events"
	"github.com/careerhub/hub/internal/gate"
	"github.com/careerhub/hub/internal/gdpr"
	"github.com/careerhub/hub/internal/ledger"
	"github.com/careerhub/hub/internal/narrative"
	"github.com/careerhub/hub/internal/orchestrator"
	"github.com/careerhub/hub/internal/platform/database"
	"github.com/careerhub/hub/internal/platform/migrations"
	"github.com/careerhub/hub/pkg/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := logging.New("hubserver", cfg.LogLevel, cfg.LogFormat)

	rootCtx := context.Background()

	db, err := database.Open(rootCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.DBMaxConnections)
	db.SetConnMaxIdleTime(cfg.DBIdleTimeout)

	if err := migrations.Apply(rootCtx, db); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("parse REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
	}

	m := metrics.New("hub")

	tier, err := cache.NewTier(cache.TierConfig{
		Redis:        redisClient,
		FallbackSize: 2000,
		DefaultTTL:   5 * time.Minute,
		OnFallbackUse: func() {
			m.IncCacheFallback()
		},
	})
	if err != nil {
		log.Fatalf("build cache tier: %v", err)
	}

	eventStore := events.NewPostgresStore(db)

	ledgerSvc := ledger.New(ledger.NewPostgresStore(db), tier, eventStore, logger, m)

	narrativeBuilder, err := narrative.New(eventStore, tier, logger)
	if err != nil {
		log.Fatalf("build narrative builder: %v", err)
	}

	gateSvc := gate.New(ledgerSvc)

	rateLimiter := ratelimit.New(ratelimit.Config{
		Redis:  redisClient,
		Rules:  ratelimit.DefaultRules(),
		Logger: logger,
		OnFallbackUse: func(scope string) {
			m.IncRateLimitFallback(scope)
		},
	})
	loginGuard := ratelimit.NewLoginGuard(rateLimiter)

	tokenIssuer := auth.NewTokenIssuer(cfg.JWTSecret, "careerhub.hub")
	authSvc := auth.New(auth.NewPostgresStore(db), tokenIssuer, ledgerSvc, eventStore, loginGuard, logger)

	var aiProvider orchestrator.Provider = orchestrator.EchoProvider{}
	aiBreaker := resilience.New(resilience.DefaultServiceCBConfig(logger))
	orchestratorSvc := orchestrator.New(gateSvc, narrativeBuilder, aiProvider, aiBreaker, resilience.DefaultRetryConfig(), eventStore, logger)

	var paymentProvider billing.Provider = billing.DevProvider{}
	billingBreaker := resilience.New(resilience.StrictServiceCBConfig(logger))
	billingSvc := billing.New(billing.NewPostgresStore(db), ledgerSvc, paymentProvider, billingBreaker, eventStore, logger)

	gdprRecorder := gdpr.New(eventStore)

	keys := keymanager.New(keymanager.Config{Logger: logger})
	sweeper := keymanager.NewSweeper(keys, logger)
	if err := sweeper.Start("0 */6 * * *"); err != nil {
		log.Fatalf("start key rotation sweep: %v", err)
	}
	defer sweeper.Stop()

	router := api.NewRouter(api.Deps{
		Auth:         authSvc,
		Gate:         gateSvc,
		Orchestrator: orchestratorSvc,
		Billing:      billingSvc,
		Events:       eventStore,
		GDPR:         gdprRecorder,
		Metrics:      m,
		Logger:       logger,
		RateLimiter:  rateLimiter,
		CORSOrigins:  cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	shutdown := middleware.NewGracefulShutdown(server, 15*time.Second)
	shutdown.OnShutdown(func() {
		sweeper.Stop()
	})
	shutdown.ListenForSignals()

	logger.WithContext(rootCtx).WithFields(map[string]interface{}{
		"addr": server.Addr, "env": string(cfg.Env), "version": version.FullVersion(),
	}).Info("hub server starting")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("serve: %v", err)
	}

	shutdown.Wait()
}
