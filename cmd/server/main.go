package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"mimir/internal/auth"
	"mimir/internal/infraction"
	infractionhandler "mimir/internal/infraction/handler"
	infractionmetrics "mimir/internal/infraction/metrics"
	"mimir/internal/infraction/service"
	"mimir/internal/lock"
	"mimir/internal/platform/config"
	"mimir/internal/platform/httpserver"
	"mimir/internal/platform/logger"
	"mimir/internal/platform/metrics"
	"mimir/internal/platform/middleware"
	platformredis "mimir/internal/platform/redis"
	"mimir/pkg/platform/audit"
	auditkafka "mimir/pkg/platform/audit/kafka"
	auditmemory "mimir/pkg/platform/audit/memory"
	"mimir/pkg/platform/audit/publisher"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	locker, closeLocker, err := buildLocker(cfg, log)
	if err != nil {
		return err
	}
	defer closeLocker()

	auditPublisher, err := buildAuditPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer auditPublisher.Close()

	verifier := auth.NewVerifier(auth.Config{
		SigningKey:   cfg.JWTSigningKey,
		AuthGroups:   cfg.AuthGroups,
		CNAllowlist:  cfg.CNAllowlist,
		APIKeyHashes: cfg.APIKeyHashes,
	})
	if !verifier.Enabled() {
		log.Warn("authentication disabled, no signing key configured")
	}

	svc := service.New(store, locker,
		service.WithLogger(log),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(infractionmetrics.New()),
		service.WithDedupWindow(cfg.DedupWindow),
	)

	httpMetrics := metrics.New()
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.LatencyMiddleware(httpMetrics))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.Timeout(30 * time.Second))

	infractionhandler.New(svc, log).Register(router, middleware.RequireAuth(verifier, log))
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting mimir", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildStore opens Postgres when configured and falls back to the
// in-memory store for local development.
func buildStore(cfg config.Server, log *slog.Logger) (infraction.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory store")
		return infraction.NewInMemoryStore(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, err
	}

	return infraction.NewPostgres(db), func() { db.Close() }, nil
}

// buildLocker uses Redis when configured so locks hold across instances,
// and the in-process locker otherwise.
func buildLocker(cfg config.Server, log *slog.Logger) (lock.Locker, func(), error) {
	client, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Warn("REDIS_URL not set, using in-process locker")
		return lock.NewMemoryLocker(), func() {}, nil
	}
	return lock.NewRedisLocker(client.Client), func() { client.Close() }, nil
}

// buildAuditPublisher wires the Kafka sink when brokers are configured,
// falling back to the in-memory sink so the trail still exists locally.
func buildAuditPublisher(cfg config.Server, log *slog.Logger) (*publisher.Publisher, error) {
	var sink audit.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := auditkafka.NewSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		sink = kafkaSink
	} else {
		log.Warn("KAFKA_BROKERS not set, audit events stay in memory")
		sink = auditmemory.NewInMemorySink()
	}
	return publisher.NewPublisher(sink,
		publisher.WithAsyncBuffer(1024),
		publisher.WithLogger(log),
	), nil
}
