package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/hawosalon/salon/libs/auth"
	"github.com/hawosalon/salon/libs/db"
	"github.com/hawosalon/salon/libs/grpcx"
	"github.com/hawosalon/salon/libs/httpx"
	"github.com/hawosalon/salon/libs/kafkax"
	"github.com/hawosalon/salon/libs/metrics"
	"github.com/hawosalon/salon/libs/otelx"
	"github.com/hawosalon/salon/libs/runtime"
	"github.com/hawosalon/salon/services/salon-service/internal/booking"
	"github.com/hawosalon/salon/services/salon-service/internal/handlers"
	"github.com/hawosalon/salon/services/salon-service/internal/notify"
	"github.com/hawosalon/salon/services/salon-service/internal/reviews"
	"github.com/hawosalon/salon/services/salon-service/internal/store"
	"github.com/hawosalon/salon/services/salon-service/internal/store/memory"
	"github.com/hawosalon/salon/services/salon-service/internal/store/postgres"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	logger := runtime.NewLogger(cfg.Service)
	if err := run(cfg, logger); err != nil {
		logger.Error("salon service exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := runtime.SignalContext(context.Background())
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

	reg := metrics.New(cfg.Service)
	checks := []runtime.ReadyCheck{}

	var st store.Store
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		st = memory.New()
	default:
		pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{MaxConns: int32(cfg.DBMaxConns)})
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer pool.Close()
		st = postgres.NewStore(pool)
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	}

	var publisher notify.Publisher = notify.LogPublisher{Logger: logger}
	if len(cfg.KafkaBrokers) > 0 {
		writer := kafkax.NewWriter(cfg.KafkaBrokers)
		defer func() { _ = writer.Close() }()
		publisher = writer
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
	} else {
		logger.Warn("KAFKA_BROKERS not set; notifications are only logged")
	}
	dispatcher := notify.NewDispatcher(publisher, st, logger, reg, notify.Options{
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueueSize,
		Timeout:   cfg.NotifyTimeout,
	})

	bookings, err := booking.NewManager(st, dispatcher, logger, booking.Options{
		InitialStatus: cfg.InitialStatus,
		Now:           booking.LocalClock(cfg.Timezone),
		Metrics:       reg,
	})
	if err != nil {
		return err
	}
	api := handlers.NewAPI(bookings, reviews.NewManager(st, logger), st, logger)

	verifierOpts := auth.VerifierOptions{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, Leeway: 30 * time.Second}
	if cfg.JWKSURL != "" {
		verifierOpts.JWKS = auth.NewJWKSClient(cfg.JWKSURL, cfg.JWKSTTL)
	}
	verifier, err := auth.NewVerifier(verifierOpts)
	if err != nil {
		return err
	}

	rateLimit := httpx.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow).Middleware()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		rateLimit = httpx.NewRedisRateLimiter(rdb, cfg.RateLimit, cfg.RateLimitWindow, "salon:rl").Middleware(logger, cfg.RateLimitFailOpen)
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }})
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("GET /metrics", reg.Handler())
	api.Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger, reg.ObserveHTTP),
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.CORSPolicy{AllowedOrigins: cfg.CORSOrigins, MaxAge: 10 * time.Minute}),
		rateLimit,
		httpx.WithBodyLimit(int64(cfg.MaxBodyBytes)),
		httpx.WithTimeout(cfg.RequestTimeout),
		auth.Authenticate(verifier, logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "salon")
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv, health := grpcx.NewServer(logger)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		logger.Info("grpc health server starting", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		logger.Error("server failed", "err", runErr)
	}

	health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	grpcSrv.GracefulStop()
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Error("notification drain incomplete", "err", err)
	}
	logger.Info("salon service stopped")
	return runErr
}
