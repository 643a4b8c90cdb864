package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hawosalon/salon/libs/config"
	"github.com/hawosalon/salon/libs/kafkax"
	"github.com/hawosalon/salon/services/salon-service/internal/model"
)

type Config struct {
	Service  string
	HTTPPort string
	GRPCPort string

	StoreDriver string // postgres or memory
	DatabaseURL string
	DBMaxConns  int

	JWTSecret string
	JWTIssuer string
	JWKSURL   string
	JWKSTTL   time.Duration

	InitialStatus model.Status
	Timezone      *time.Location

	KafkaBrokers      []string
	NotifyWorkers     int
	NotifyQueueSize   int
	NotifyTimeout     time.Duration
	RedisAddr         string
	RateLimit         int
	RateLimitWindow   time.Duration
	RateLimitFailOpen bool
	CORSOrigins       []string
	RequestTimeout    time.Duration
	MaxBodyBytes      int
	ShutdownTimeout   time.Duration
}

// LoadConfig reads the environment, after .env if one is present.
func LoadConfig() (Config, error) {
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

	cfg.Service = config.String("SERVICE_NAME", "salon-service")
	cfg.HTTPPort, err = config.Port("PORT", "8080")
	collect(err)
	cfg.GRPCPort, err = config.Port("GRPC_PORT", "9090")
	collect(err)

	cfg.StoreDriver = strings.ToLower(config.String("STORE_DRIVER", "postgres"))
	switch cfg.StoreDriver {
	case "postgres":
		cfg.DatabaseURL, err = config.RequiredString("DATABASE_URL")
		collect(err)
	case "memory":
	default:
		collect(fmt.Errorf("STORE_DRIVER must be postgres or memory (got %q)", cfg.StoreDriver))
	}
	cfg.DBMaxConns, err = config.Int("DB_MAX_CONNS", 10)
	collect(err)

	cfg.JWTSecret = config.String("JWT_SECRET", "")
	cfg.JWTIssuer = config.String("JWT_ISSUER", "")
	cfg.JWKSURL = config.String("JWKS_URL", "")
	cfg.JWKSTTL, err = config.Duration("JWKS_CACHE_TTL", 5*time.Minute)
	collect(err)
	if cfg.JWTSecret == "" && cfg.JWKSURL == "" {
		collect(errors.New("JWT_SECRET or JWKS_URL is required"))
	}

	switch raw := model.Status(config.String("BOOKING_INITIAL_STATUS", string(model.StatusPending))); raw {
	case model.StatusPending, model.StatusConfirmed:
		cfg.InitialStatus = raw
	default:
		collect(fmt.Errorf("BOOKING_INITIAL_STATUS must be pending or confirmed (got %q)", raw))
	}
	cfg.Timezone, err = time.LoadLocation(config.String("SALON_TIMEZONE", "UTC"))
	collect(err)

	cfg.KafkaBrokers = kafkax.SplitBrokers(config.String("KAFKA_BROKERS", ""))
	cfg.NotifyWorkers, err = config.Int("NOTIFY_WORKERS", 4)
	collect(err)
	cfg.NotifyQueueSize, err = config.Int("NOTIFY_QUEUE_SIZE", 256)
	collect(err)
	cfg.NotifyTimeout, err = config.Duration("NOTIFY_TIMEOUT", 10*time.Second)
	collect(err)

	cfg.RedisAddr = config.String("REDIS_ADDR", "")
	cfg.RateLimit, err = config.Int("RATE_LIMIT_PER_WINDOW", 120)
	collect(err)
	cfg.RateLimitWindow, err = config.Duration("RATE_LIMIT_WINDOW", time.Minute)
	collect(err)
	cfg.RateLimitFailOpen, err = config.Bool("RATE_LIMIT_FAIL_OPEN", true)
	collect(err)

	cfg.CORSOrigins = config.List("CORS_ALLOWED_ORIGINS", nil)
	cfg.RequestTimeout, err = config.Duration("HTTP_REQUEST_TIMEOUT", 15*time.Second)
	collect(err)
	cfg.MaxBodyBytes, err = config.Int("HTTP_MAX_BODY_BYTES", 1<<20)
	collect(err)
	cfg.ShutdownTimeout, err = config.Duration("SHUTDOWN_TIMEOUT", 10*time.Second)
	collect(err)

	return cfg, errors.Join(errs...)
}
