package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"tradeledger/internal/audit"
	auditHandler "tradeledger/internal/audit/handler"
	"tradeledger/internal/enrollment"
	enrollmentHandler "tradeledger/internal/enrollment/handler"
	"tradeledger/internal/jwtauth"
	"tradeledger/internal/ledger"
	ledgerHandler "tradeledger/internal/ledger/handler"
	ledgerMetrics "tradeledger/internal/ledger/metrics"
	"tradeledger/internal/platform/config"
	"tradeledger/internal/platform/httpserver"
	"tradeledger/internal/platform/logger"
	platformRedis "tradeledger/internal/platform/redis"
	"tradeledger/internal/signer"
	signerHandler "tradeledger/internal/signer/handler"
	"tradeledger/internal/storage"
	httptransport "tradeledger/internal/transport/http"
)

// main wires the dependency graph and owns the process lifecycle. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		log.Error("store init failed", "backend", cfg.Backend, "error", err.Error())
		os.Exit(1)
	}
	defer cleanup()

	signing := signer.New(store)
	if err := signing.EnsureFromSeed(ctx, cfg.SignerSeed); err != nil {
		log.Error("signing identity init failed", "error", err.Error())
		os.Exit(1)
	}

	auditStore := audit.NewStorageStore(store)
	inbox := make(chan audit.Event, 256)
	worker := audit.NewWorker(auditStore, inbox, log)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err.Error())
		}
	}()

	repo := ledger.NewRepo(store)
	ledgerSvc := ledger.NewService(repo, signing,
		ledger.WithLogger(log),
		ledger.WithMetrics(ledgerMetrics.New()),
		ledger.WithAuditor(audit.NewEmitter(inbox)),
	)
	enrollmentSvc := enrollment.NewService(enrollment.NewRepo(store), repo, ledgerSvc, signing, log)

	jwtSvc := jwtauth.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	enrollH := enrollmentHandler.New(enrollmentSvc, jwtSvc, cfg.TokenTTL, log)
	router := httptransport.NewRouter(
		log,
		jwtauth.NewMiddlewareAdapter(jwtSvc),
		[]httptransport.PublicRegistrar{enrollH},
		[]httptransport.Registrar{
			ledgerHandler.New(ledgerSvc, log),
			enrollH,
			signerHandler.New(signing, log),
			auditHandler.New(audit.NewPublisher(auditStore), log),
		},
	)

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting tradeledger", "addr", cfg.Addr, "backend", cfg.Backend)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
	}
	<-workerDone
}

// buildStore selects the record-store backend from configuration.
func buildStore(ctx context.Context, cfg config.Server) (storage.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendRedis:
		client, err := platformRedis.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		if client == nil {
			return nil, nil, errors.New("redis backend requires TRADELEDGER_REDIS_URL")
		}
		return storage.NewRedisStore(client.Client), func() { _ = client.Close() }, nil

	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		store := storage.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, func() { _ = db.Close() }, nil

	default:
		return storage.NewInMemoryStore(), func() {}, nil
	}
}
