// main wires high-level dependencies, exposes the HTTP router, and keeps
// the server lifecycle small. Business logic lives in the internal service
// packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	adminhandler "chapel/internal/admin/handler"
	"chapel/internal/assetlog"
	assetpg "chapel/internal/assetlog/store/postgres"
	"chapel/internal/assetlog/sweeper"
	"chapel/internal/audit"
	"chapel/internal/auth"
	authhandler "chapel/internal/auth/handler"
	"chapel/internal/auth/lockout"
	authservice "chapel/internal/auth/service"
	authpg "chapel/internal/auth/store/postgres"
	"chapel/internal/auth/token"
	"chapel/internal/content"
	contenthandler "chapel/internal/content/handler"
	contentservice "chapel/internal/content/service"
	contentpg "chapel/internal/content/store/postgres"
	"chapel/internal/platform/config"
	"chapel/internal/platform/database"
	"chapel/internal/platform/httpserver"
	"chapel/internal/platform/logger"
	"chapel/internal/platform/metrics"
	"chapel/internal/platform/middleware"
	platformredis "chapel/internal/platform/redis"
	"chapel/internal/provenance"
	provenancepg "chapel/internal/provenance/store/postgres"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// Stores. Without a DATABASE_URL everything runs in memory, which is
	// enough for local development but loses both ledgers on restart.
	var (
		eventStore   provenance.Store = provenance.NewInMemoryStore()
		assetStore   assetlog.Store   = assetlog.NewInMemoryStore()
		contentStore content.Store    = content.NewInMemoryStore()
		userStore    auth.Store       = auth.NewInMemoryStore()
		txRunner     content.TxRunner = content.MemoryTxRunner{}
	)
	if cfg.DatabaseURL != "" {
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			log.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			log.Error("database migration failed", "error", err)
			os.Exit(1)
		}

		eventStore = provenancepg.New(db)
		assetStore = assetpg.New(db)
		contentStore = contentpg.New(db)
		userStore = authpg.New(db)
		txRunner = database.NewSQLRunner(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	// Lockout state lives in Redis when available so it survives restarts
	// and is shared across instances.
	var lockouts lockout.Tracker = lockout.NewMemoryTracker(cfg.LockoutThreshold, cfg.LockoutWindow)
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		lockouts = lockout.NewRedisTracker(redisClient.Client, cfg.LockoutThreshold, cfg.LockoutWindow)
	}

	observer := audit.NewObserver(
		eventStore,
		assetStore,
		audit.DefaultRegistry(),
		log,
		m,
		audit.Config{EscalateEventFailures: cfg.EscalateEventFailures},
	)

	tokens := token.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.TokenTTL)
	validator := token.NewMiddlewareAdapter(tokens)

	contentSvc := contentservice.New(contentStore, txRunner, observer, log)
	authSvc := authservice.New(userStore, tokens, lockouts, observer, log, m)

	router := buildRouter(routerDeps{
		logger:    log,
		registry:  reg,
		validator: validator,
		observer:  observer,
		content:   contentSvc,
		auth:      authSvc,
		events:    eventStore,
		assets:    assetStore,
		tokenTTL:  cfg.TokenTTL,
	})

	// Nightly reconciliation of the asset ledger against the content
	// tables.
	sweep := sweeper.New(assetStore, contentStore, audit.DefaultRegistry(), log, m)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := sweep.Sweep(ctx); err != nil {
			log.Error("asset sweep failed", "error", err)
		}
	}); err != nil {
		log.Error("invalid sweep schedule", "schedule", cfg.SweepSchedule, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting chapel server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

type routerDeps struct {
	logger    *slog.Logger
	registry  *prometheus.Registry
	validator middleware.JWTValidator
	observer  *audit.Observer
	content   *contentservice.Service
	auth      *authservice.Service
	events    provenance.Reader
	assets    assetlog.Reader
	tokenTTL  time.Duration
}

// buildRouter composes every handler on one router alongside the metrics and
// health endpoints.
func buildRouter(deps routerDeps) *chi.Mux {
	router := chi.NewRouter()
	contenthandler.New(deps.content, deps.logger, deps.validator, deps.observer).Register(router)
	authhandler.New(deps.auth, deps.logger, deps.validator, deps.tokenTTL).Register(router)
	adminhandler.New(deps.events, deps.assets, deps.logger, deps.validator).Register(router)
	router.Handle("/metrics", promhttp.HandlerFor(deps.registry, promhttp.HandlerOpts{}))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return router
}
