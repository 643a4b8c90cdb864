package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hawosalon/salon/libs/config"
	"github.com/hawosalon/salon/libs/db"
	"github.com/hawosalon/salon/libs/events"
	"github.com/hawosalon/salon/libs/httpx"
	"github.com/hawosalon/salon/libs/kafkax"
	"github.com/hawosalon/salon/libs/metrics"
	"github.com/hawosalon/salon/libs/otelx"
	"github.com/hawosalon/salon/libs/runtime"
	"github.com/hawosalon/salon/services/notification-service/internal/consumer"
	"github.com/hawosalon/salon/services/notification-service/internal/dispatch"
	"github.com/hawosalon/salon/services/notification-service/internal/email"
	"github.com/hawosalon/salon/services/notification-service/internal/inbox"
	"github.com/hawosalon/salon/services/notification-service/internal/sms"
	"github.com/hawosalon/salon/services/notification-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Config struct {
	Service      string
	Port         string
	DatabaseURL  string
	Brokers      []string
	GroupID      string
	SMTP         email.SMTPConfig
	SMSProvider  string
	SMSURL       string
	SMSToken     string
	MaxAttempts  int
	RetryBackoff time.Duration
}

func loadConfig() (Config, error) {
	if err := config.LoadDotenv(); err != nil {
		return Config{}, err
	}
	var (
		cfg  Config
		errs []error
		err  error
	)
	collect := func(e error) {
		if e != nil {
			errs = append(errs, e)
		}
	}

	cfg.Service = config.String("SERVICE_NAME", "notification-service")
	cfg.Port, err = config.Port("PORT", "8085")
	collect(err)
	cfg.DatabaseURL, err = config.RequiredString("DATABASE_URL")
	collect(err)
	cfg.Brokers = kafkax.SplitBrokers(config.String("KAFKA_BROKERS", ""))
	if len(cfg.Brokers) == 0 {
		collect(errors.New("KAFKA_BROKERS is required"))
	}
	cfg.GroupID = config.String("KAFKA_GROUP_ID", "notification-service")

	cfg.SMTP.Host = config.String("SMTP_HOST", "mailpit")
	cfg.SMTP.Port, err = config.Int("SMTP_PORT", 1025)
	collect(err)
	cfg.SMTP.Username = config.String("SMTP_USERNAME", "")
	cfg.SMTP.Password = config.String("SMTP_PASSWORD", "")
	cfg.SMTP.From = config.String("SMTP_FROM", "no-reply@salon.local")
	cfg.SMTP.Insecure, err = config.Bool("SMTP_INSECURE_TLS", false)
	collect(err)

	cfg.SMSProvider = strings.ToLower(config.String("SMS_PROVIDER", "none"))
	cfg.SMSURL = config.String("SMS_WEBHOOK_URL", "")
	cfg.SMSToken = config.String("SMS_WEBHOOK_TOKEN", "")
	cfg.MaxAttempts, err = config.Int("HANDLER_MAX_ATTEMPTS", 3)
	collect(err)
	cfg.RetryBackoff, err = config.Duration("HANDLER_RETRY_BACKOFF", time.Second)
	collect(err)
	return cfg, errors.Join(errs...)
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	logger := runtime.NewLogger(cfg.Service)
	if err := run(cfg, logger); err != nil {
		logger.Error("notification service exited", "err", err)
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

	pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()

	var smsSender sms.Sender
	switch cfg.SMSProvider {
	case "webhook":
		smsSender = sms.NewWebhookSender(cfg.SMSURL, cfg.SMSToken, 5*time.Second)
	case "noop":
		smsSender = sms.NoopSender{}
	}

	reg := metrics.New(cfg.Service)
	processor := dispatch.NewProcessor(email.NewSMTPSender(cfg.SMTP), smsSender, storage.NewRepository(pool), logger, reg)
	reader := kafkax.NewReader(cfg.Brokers, cfg.GroupID, events.Topics())
	eventConsumer := consumer.New(reader, inbox.NewRepository(pool), processor.Handle, logger, consumer.Options{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     cfg.RetryBackoff,
	})
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		eventConsumer.Run(ctx)
	}()

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.Brokers)},
	)
	mux.Handle("GET /metrics", reg.Handler())
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger, reg.ObserveHTTP),
		httpx.WithRecover(logger),
	)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(handler, "notification"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "topics", events.Topics())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		logger.Warn("consumer did not stop in time")
	}
	logger.Info("notification service stopped")
	return nil
}
