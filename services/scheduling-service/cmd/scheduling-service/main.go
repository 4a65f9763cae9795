package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/meethub/libs/auth"
	"github.com/md-rashed-zaman/meethub/libs/config"
	"github.com/md-rashed-zaman/meethub/libs/db"
	"github.com/md-rashed-zaman/meethub/libs/grpcx"
	"github.com/md-rashed-zaman/meethub/libs/httpx"
	"github.com/md-rashed-zaman/meethub/libs/kafkax"
	"github.com/md-rashed-zaman/meethub/libs/mq"
	otelx "github.com/md-rashed-zaman/meethub/libs/otel"
	"github.com/md-rashed-zaman/meethub/libs/runtime"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/booking"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/handlers"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/migrations"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"scheduling-service"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort    string `envconfig:"HTTP_PORT" default:"8080"`
	GRPCPort    string `envconfig:"GRPC_PORT" default:"9090"`

	StoreDriver    string        `envconfig:"STORE_DRIVER" default:"postgres"`
	DatabaseURL    string        `envconfig:"DATABASE_URL"`
	DBMaxConns     int32         `envconfig:"DB_MAX_CONNS" default:"10"`
	RunMigrations  bool          `envconfig:"RUN_MIGRATIONS" default:"true"`
	TxTimeout      time.Duration `envconfig:"BOOKING_TX_TIMEOUT" default:"5s"`
	TxMaxAttempts  int           `envconfig:"BOOKING_TX_ATTEMPTS" default:"3"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	MaxBodyBytes   int64         `envconfig:"MAX_BODY_BYTES" default:"65536"`

	JWTSecret string `envconfig:"JWT_SECRET"`
	JWKSURL   string `envconfig:"JWKS_URL"`
	JWTIssuer string `envconfig:"JWT_ISSUER"`

	KafkaBrokers  string        `envconfig:"KAFKA_BROKERS"`
	AMQPURL       string        `envconfig:"AMQP_URL"`
	AMQPExchange  string        `envconfig:"AMQP_EXCHANGE" default:"meethub.events"`
	OutboxPoll    time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"2s"`
	OutboxBatch   int           `envconfig:"OUTBOX_BATCH_SIZE" default:"50"`
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RateLimit     int           `envconfig:"PUBLIC_RATE_LIMIT_PER_MINUTE" default:"120"`
	RateBurst     int           `envconfig:"PUBLIC_RATE_LIMIT_BURST" default:"20"`
	RateFailOpen  bool          `envconfig:"PUBLIC_RATE_LIMIT_FAIL_OPEN" default:"true"`
	CORSOrigins   []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	ShutdownGrace time.Duration `envconfig:"SHUTDOWN_GRACE" default:"10s"`

	Otel otelx.Config `envconfig:"OTEL"`
}

// store is what the service needs from either storage driver.
type store interface {
	booking.Store
	handlers.HostStore
	outbox.Source
}

func main() {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := runtime.NewLogger(cfg.ServiceName, cfg.LogLevel)
	if err := run(cfg, logger); err != nil {
		logger.Error("service failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	httpPort, err := config.Port("HTTP_PORT", cfg.HTTPPort)
	if err != nil {
		return err
	}
	grpcPort, err := config.Port("GRPC_PORT", cfg.GRPCPort)
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" && cfg.JWKSURL == "" {
		return errors.New("one of JWT_SECRET or JWKS_URL is required")
	}

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, cfg.ServiceName, cfg.Otel)
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	st, checks, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	sink, err := newSink(cfg)
	if err != nil {
		return err
	}
	if cfg.KafkaBrokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
	}
	publisher := outbox.NewPublisher(st, sink, logger, outbox.PublisherConfig{
		PollEvery: cfg.OutboxPoll,
		BatchSize: cfg.OutboxBatch,
	})
	go publisher.Run(ctx)

	limiter, limiterCheck, closeLimiter := newLimiter(ctx, cfg)
	defer closeLimiter()
	if limiterCheck != nil {
		checks = append(checks, *limiterCheck)
	}

	var jwks *auth.JWKSClient
	if cfg.JWKSURL != "" {
		jwks = auth.NewJWKSClient(cfg.JWKSURL, 10*time.Minute)
	}
	verifier := auth.NewVerifier(cfg.JWTSecret, jwks, cfg.JWTIssuer)

	svc := booking.NewService(st, logger)
	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.Register(mux,
		handlers.NewPublicHandler(svc, logger),
		handlers.NewHostHandler(st, svc, logger),
		httpx.WithRateLimit(limiter, logger, cfg.RateFailOpen, time.Minute),
		verifier.Require,
	)

	httpHandler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{AllowedOrigins: cfg.CORSOrigins}),
		httpx.WithBodyLimit(cfg.MaxBodyBytes),
		httpx.WithTimeout(cfg.RequestTimeout),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + httpPort,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stopGRPC, err := serveGRPC(grpcPort, logger)
	if err != nil {
		return err
	}
	defer stopGRPC()

	return runtime.ServeHTTP(ctx, srv, logger, cfg.ShutdownGrace)
}

func openStore(ctx context.Context, cfg Config, logger *slog.Logger) (store, []runtime.ReadyCheck, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StoreDriver)) {
	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		return storage.NewMemory(), nil, func() {}, nil
	case "postgres", "":
	default:
		return nil, nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.DatabaseURL == "" {
		return nil, nil, nil, errors.New("DATABASE_URL is required for the postgres store")
	}
	pool, err := db.Open(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: cfg.DBMaxConns})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, migrations.FS, logger); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	ob := outbox.NewRepository(pool)
	repo := storage.NewRepository(pool, ob, storage.Options{
		TxTimeout:   cfg.TxTimeout,
		MaxAttempts: cfg.TxMaxAttempts,
	})
	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	return postgresStore{Repository: repo, outbox: ob}, checks, pool.Close, nil
}

// postgresStore pairs the scheduling repository with the outbox it writes to.
type postgresStore struct {
	*storage.Repository
	outbox *outbox.Repository
}

func (s postgresStore) Drain(ctx context.Context, limit int, send func(context.Context, outbox.Record) error) (int, error) {
	return s.outbox.Drain(ctx, limit, send)
}

// newSink picks the broker for outbox events. Kafka wins when both are set.
func newSink(cfg Config) (outbox.Sink, error) {
	switch {
	case cfg.KafkaBrokers != "":
		return outbox.NewKafkaSink(cfg.KafkaBrokers), nil
	case cfg.AMQPURL != "":
		pub, err := mq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, fmt.Errorf("amqp connect: %w", err)
		}
		return outbox.NewAMQPSink(pub), nil
	}
	return nil, nil
}

func newLimiter(ctx context.Context, cfg Config) (httpx.Limiter, *runtime.ReadyCheck, func()) {
	if cfg.RedisAddr == "" {
		ml := httpx.NewMemoryLimiter(cfg.RateLimit, cfg.RateBurst)
		go ml.Sweep(ctx, time.Minute)
		return ml, nil, func() {}
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	check := &runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}}
	return httpx.NewRedisLimiter(rdb, cfg.RateLimit, time.Minute, "meethub:ratelimit:"), check, func() { _ = rdb.Close() }
}

func serveGRPC(port string, logger *slog.Logger) (func(), error) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, fmt.Errorf("grpc listen: %w", err)
	}
	srv, hs := grpcx.NewServer(logger)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	go func() {
		logger.Info("grpc listening", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()
	return func() {
		hs.Shutdown()
		stopped := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			srv.Stop()
		}
	}, nil
}
