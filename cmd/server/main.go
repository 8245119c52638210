package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	jwttoken "ledgerreg/internal/jwt_token"
	"ledgerreg/internal/ledger"
	"ledgerreg/internal/platform/config"
	"ledgerreg/internal/platform/httpserver"
	"ledgerreg/internal/platform/kafka"
	"ledgerreg/internal/platform/logger"
	platformmetrics "ledgerreg/internal/platform/metrics"
	"ledgerreg/internal/platform/middleware"
	"ledgerreg/internal/registry/credential"
	"ledgerreg/internal/registry/handler"
	registrymetrics "ledgerreg/internal/registry/metrics"
	"ledgerreg/internal/registry/outbox"
	"ledgerreg/internal/registry/schema"
	"ledgerreg/internal/registry/service"
	"ledgerreg/internal/registry/store"
	"ledgerreg/pkg/domain"
	authmw "ledgerreg/pkg/platform/middleware/auth"
	"ledgerreg/pkg/platform/middleware/requesttime"
)

// main wires the registries, their HTTP surface and the outbox relay, and
// keeps the process lifecycle small. Registration logic lives in
// internal/registry.
func main() {
	if err := run(); err != nil {
		slog.Error("registry server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	regMetrics := registrymetrics.New(reg)
	httpMetrics := platformmetrics.New(reg)

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()
	log.Info("storage ready", "backend", cfg.StorageBackend)

	accounts := make([]domain.Account, 0, len(cfg.Auth.RegistrarAccounts))
	for _, raw := range cfg.Auth.RegistrarAccounts {
		a, err := domain.ParseAccount(raw)
		if err != nil {
			return fmt.Errorf("REGISTRAR_ACCOUNTS: %q: %w", raw, err)
		}
		accounts = append(accounts, a)
	}
	authz := ledger.NewRoleAuthorizer(cfg.Auth.RegistrarRole, accounts...)
	clock := ledger.NewMonotonicClock(ledger.RequestClock)

	credentials := service.New(credential.Spec, b.credentials, authz,
		service.WithLogger[credential.Property](log),
		service.WithMetrics[credential.Property](regMetrics),
		service.WithClock[credential.Property](clock),
	)
	schemas := service.New(schema.Spec, b.schemas, authz,
		service.WithLogger[schema.Property](log),
		service.WithMetrics[schema.Property](regMetrics),
		service.WithClock[schema.Property](clock),
	)

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	requireAuth := authmw.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), log)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recover(log))
	router.Use(requesttime.Middleware)
	router.Use(middleware.Logger(log))
	router.Use(httpMetrics.Middleware)

	publisher, publisherHealth, closePublisher, err := newPublisher(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	checks := []healthCheck{{name: "storage", check: b.health}}
	if publisherHealth != nil {
		checks = append(checks, healthCheck{name: "kafka", check: publisherHealth})
	}
	router.Get("/healthz", healthHandler(log, checks...))
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	handler.New(credentials, requireAuth, log).Register(router)
	handler.New(schemas, requireAuth, log).Register(router)

	relay := outbox.NewRelay(publisher, []store.OutboxReader{b.credentials, b.schemas},
		outbox.WithInterval(cfg.Outbox.PollInterval),
		outbox.WithBatchSize(cfg.Outbox.BatchSize),
		outbox.WithLogger(log),
		outbox.WithMetrics(regMetrics),
	)

	srv := httpserver.New(cfg.Addr, router)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting registry server", "addr", cfg.Addr)
		return httpserver.Run(gctx, srv)
	})
	g.Go(func() error {
		return relay.Run(gctx)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	// deliver what was committed before shutdown
	drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if n, err := relay.Drain(drainCtx); err != nil {
		log.Warn("final outbox drain failed", "published", n, "error", err)
	}
	return nil
}

// newPublisher returns the event publisher, a broker health check (nil when
// events only go to the log) and a close func.
func newPublisher(ctx context.Context, cfg config.Server, log *slog.Logger) (outbox.Publisher, func(context.Context) error, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("no kafka brokers configured, registry events go to the log")
		return outbox.NewLogPublisher(log), nil, func() {}, nil
	}
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := producer.EnsureTopic(ctx, 3, 1); err != nil {
		log.Warn("could not ensure kafka topic", "topic", cfg.Kafka.Topic, "error", err)
	}
	return outbox.NewKafkaPublisher(producer), producer.Ping, producer.Close, nil
}
