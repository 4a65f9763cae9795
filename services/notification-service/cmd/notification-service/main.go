package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/md-rashed-zaman/meethub/libs/config"
	"github.com/md-rashed-zaman/meethub/libs/db"
	"github.com/md-rashed-zaman/meethub/libs/httpx"
	"github.com/md-rashed-zaman/meethub/libs/kafkax"
	"github.com/md-rashed-zaman/meethub/libs/mq"
	otelx "github.com/md-rashed-zaman/meethub/libs/otel"
	"github.com/md-rashed-zaman/meethub/libs/runtime"
	"github.com/md-rashed-zaman/meethub/services/notification-service/internal/consumer"
	"github.com/md-rashed-zaman/meethub/services/notification-service/internal/dispatch"
	"github.com/md-rashed-zaman/meethub/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/meethub/services/notification-service/internal/inbox"
	"github.com/md-rashed-zaman/meethub/services/notification-service/internal/storage"
	"github.com/md-rashed-zaman/meethub/services/notification-service/migrations"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Config struct {
	ServiceName   string        `envconfig:"SERVICE_NAME" default:"notification-service"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort      string        `envconfig:"HTTP_PORT" default:"8085"`
	DatabaseURL   string        `envconfig:"DATABASE_URL" required:"true"`
	RunMigrations bool          `envconfig:"RUN_MIGRATIONS" default:"true"`
	ShutdownGrace time.Duration `envconfig:"SHUTDOWN_GRACE" default:"10s"`

	KafkaBrokers string `envconfig:"KAFKA_BROKERS"`
	KafkaGroupID string `envconfig:"KAFKA_GROUP_ID" default:"notification-service"`
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"meethub.events"`
	AMQPQueue    string `envconfig:"AMQP_QUEUE" default:"notification-service.meetings"`

	SMTP email.SMTPConfig `envconfig:"SMTP"`

	Otel otelx.Config `envconfig:"OTEL"`
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
	port, err := config.Port("HTTP_PORT", cfg.HTTPPort)
	if err != nil {
		return err
	}
	if cfg.KafkaBrokers == "" && cfg.AMQPURL == "" {
		return errors.New("one of KAFKA_BROKERS or AMQP_URL is required")
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

	pool, err := db.Open(ctx, cfg.DatabaseURL, db.PoolOptions{})
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, migrations.FS, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	dispatcher := dispatch.New(email.NewSMTPSender(cfg.SMTP), storage.NewRepository(pool), logger)
	handle := func(ctx context.Context, d consumer.Delivery) error {
		return dispatcher.Handle(ctx, d.EventID, d.EventType, d.Body)
	}
	inboxRepo := inbox.NewRepository(pool)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if cfg.KafkaBrokers != "" {
		c := consumer.NewKafka(logger, inboxRepo, consumer.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
			Topics:  dispatch.Topics,
		}, handle)
		go c.Run(ctx)
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
	} else {
		source, err := mq.NewConsumer(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, dispatch.Topics)
		if err != nil {
			return fmt.Errorf("amqp connect: %w", err)
		}
		go consumer.NewAMQP(logger, inboxRepo, source, handle).Run(ctx)
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return runtime.ServeHTTP(ctx, srv, logger, cfg.ShutdownGrace)
}
