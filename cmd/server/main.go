// main wires the ledger authority: stores (postgres or in-memory),
// domain services, the notification dispatcher, and the HTTP server
// lifecycle. Business logic lives in the internal packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"centralledger/internal/alert"
	"centralledger/internal/compliance"
	"centralledger/internal/events"
	"centralledger/internal/ficlient"
	"centralledger/internal/institution"
	"centralledger/internal/ledger"
	"centralledger/internal/nullifier"
	"centralledger/internal/platform/config"
	"centralledger/internal/platform/httpserver"
	"centralledger/internal/platform/logger"
	"centralledger/internal/platform/metrics"
	"centralledger/internal/platform/middleware"
	"centralledger/internal/platform/postgres"
	platformredis "centralledger/internal/platform/redis"
	"centralledger/internal/reconcile"
	"centralledger/internal/screening"
	httptransport "centralledger/internal/transport/http"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Stores: postgres when a DSN is configured, in-memory otherwise.
	var (
		fiStore        institution.Store
		nullifierStore nullifier.Store
		screeningStore screening.Store
		ruleStore      compliance.RuleStore
		statusStore    compliance.StatusStore
		alertStore     alert.Store
		alertRuleStore alert.RuleStore
		ledgerStore    ledger.Store
	)
	if cfg.PostgresDSN != "" {
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		fiStore = institution.NewPostgres(db)
		nullifierStore = nullifier.NewPostgres(db)
		screeningStore = screening.NewPostgres(db)
		ruleStore = compliance.NewPostgresRules(db)
		statusStore = compliance.NewPostgresStatus(db)
		alertStore = alert.NewPostgres(db)
		alertRuleStore = alert.NewPostgresRules(db)
		ledgerStore = ledger.NewPostgres(db)
		log.Info("using postgres storage")
	} else {
		fiStore = institution.NewInMemory()
		nullifierStore = nullifier.NewInMemory()
		screeningStore = screening.NewInMemory()
		ruleStore = compliance.NewInMemoryRules()
		statusStore = compliance.NewInMemoryStatus()
		alertStore = alert.NewInMemory()
		alertRuleStore = alert.NewInMemoryRules()
		ledgerStore = ledger.NewInMemory(fiStore)
		log.Warn("no postgres dsn configured, state is in-memory only")
	}

	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher := events.NewPublisher(cfg.NotifyBuffer, log)

	institutions := institution.New(fiStore, institution.WithLogger(log))
	alerts := alert.New(alertStore, alert.WithLogger(log), alert.WithMetrics(m))
	scr := screening.New(screeningStore, alerts,
		screening.WithLogger(log),
		screening.WithCache(screening.NewCache(redisClient, log)),
		screening.WithEventPublisher(publisher))
	nullifiers := nullifier.New(nullifierStore, nullifier.WithLogger(log))
	engine := compliance.New(ruleStore, statusStore, scr, alerts,
		compliance.WithLogger(log), compliance.WithMetrics(m))
	monitor := alert.NewMonitor(alertRuleStore, alerts, log)
	ledgerSvc := ledger.New(ledgerStore, fiStore,
		ledger.WithLogger(log),
		ledger.WithMetrics(m),
		ledger.WithEvents(publisher))

	fiClient := ficlient.New(ficlient.WithTimeout(cfg.FICallTimeout))
	reconciler := reconcile.New(fiStore, fiClient,
		reconcile.WithLogger(log), reconcile.WithMetrics(m))

	if err := alert.SeedDefaultRules(ctx, alertRuleStore); err != nil {
		log.Error("seeding monitor rules failed", "error", err)
		os.Exit(1)
	}

	dispatcher := events.NewDispatcher(publisher.Events(), fiClient, fiStore,
		events.WithLogger(log),
		events.WithMetrics(m),
		events.WithRetry(cfg.NotifyAttempts, cfg.NotifyBackoff))
	go dispatcher.Run(ctx)

	handler := httptransport.NewHandler(institutions, nullifiers, engine, scr,
		alerts, monitor, ledgerSvc, reconciler, log)
	router := httptransport.NewRouter(handler, middleware.NewJWTValidator(cfg.JWTSigningKey))
	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("central ledger listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
