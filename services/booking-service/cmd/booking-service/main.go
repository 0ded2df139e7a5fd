package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/md-rashed-zaman/reserva/libs/config"
	"github.com/md-rashed-zaman/reserva/libs/db"
	"github.com/md-rashed-zaman/reserva/libs/httpx"
	"github.com/md-rashed-zaman/reserva/libs/kafkax"
	otelx "github.com/md-rashed-zaman/reserva/libs/otel"
	"github.com/md-rashed-zaman/reserva/libs/runtime"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/blocks"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/storage/memstore"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// scheduleStore is implemented by both the Postgres repository and memstore.
type scheduleStore interface {
	booking.Store
	blocks.Store
}

func main() {
	if err := config.LoadDotenv(); err != nil {
		slog.Error("dotenv load failed", "err", err)
		os.Exit(1)
	}
	cfg, err := loadSettings()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := runtime.NewLogger(cfg.Service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var (
		store  scheduleStore
		checks []runtime.ReadyCheck
		opts   []booking.Option
	)
	switch cfg.Store {
	case "memory":
		var memOpts []memstore.Option
		if len(cfg.ClientIDs) > 0 {
			memOpts = append(memOpts, memstore.WithClients(cfg.ClientIDs...))
		}
		mem := memstore.New(memOpts...)
		store = mem
		opts = append(opts, booking.WithClients(mem))
		logger.Warn("using in-memory store; data is lost on restart")
	default:
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("db connection failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		if cfg.MigrateOnStart {
			if err := storage.Migrate(ctx, pool); err != nil {
				logger.Error("schema migration failed", "err", err)
				os.Exit(1)
			}
			logger.Info("schema migrated")
		}

		outboxRepo := outbox.NewRepository()
		store = storage.NewRepository(pool, outboxRepo)
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})

		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		})
		go publisher.Run(ctx)
		if cfg.KafkaBrokers != "" {
			checks = append(checks, runtime.ReadyCheck{Name: "kafka", Optional: true, Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
		}
	}

	var bookLimit httpx.Middleware
	if cfg.RateLimit > 0 {
		var limiter httpx.Limiter = httpx.NewMemoryRateLimiter(cfg.RateLimit, time.Minute)
		if cfg.RedisAddr != "" {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			defer func() { _ = rdb.Close() }()
			limiter = httpx.NewRedisRateLimiter(rdb, cfg.RateLimit, time.Minute, "booking:rl")
			checks = append(checks, runtime.ReadyCheck{Name: "redis", Optional: true, Check: httpx.RedisReadyCheck(rdb)})
		}
		bookLimit = httpx.RateLimit(limiter, "book", logger, true)
	}

	registry := blocks.NewRegistry(store, time.Now)
	calc := availability.NewCalculator(store, registry, cfg.Policy)
	opts = append(opts, booking.WithInitialState(cfg.InitialState))
	coord := booking.New(store, calc, logger, opts...)

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("GET /metrics", metrics.Handler())
	handlers.Routes{
		Booking:   handlers.NewBookingHandler(coord, logger),
		Blocks:    handlers.NewBlockHandler(registry, logger),
		Catalog:   handlers.NewCatalogHandler(coord, logger),
		BookLimit: bookLimit,
	}.Register(mux)

	httpHandler := httpx.Chain(httpx.RecordRoute(mux),
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger, metrics.ObserveRequest),
		httpx.WithCORS(httpx.DefaultCORSPolicy(cfg.CORSOrigins)),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(cfg.RequestTimeout),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stopGRPC, err := startGRPC(ctx, logger, cfg.GRPCPort, checks)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("http server starting",
			"addr", srv.Addr,
			"store", cfg.Store,
			"timezone", cfg.Policy.Loc().String(),
			"initial_state", cfg.InitialState,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	stopGRPC()
	logger.Info("http server stopped")
}
