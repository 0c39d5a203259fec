package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	appconfig "github.com/rajibhasenraju/modern-url-shortener/internal/config"
	"github.com/rajibhasenraju/modern-url-shortener/internal/events"
	"github.com/rajibhasenraju/modern-url-shortener/internal/infrastructure/logger"
	"github.com/rajibhasenraju/modern-url-shortener/internal/infrastructure/telemetry"
	"github.com/rajibhasenraju/modern-url-shortener/internal/kv"
	kvmongo "github.com/rajibhasenraju/modern-url-shortener/internal/kv/mongo"
	kvredis "github.com/rajibhasenraju/modern-url-shortener/internal/kv/redis"
	"github.com/rajibhasenraju/modern-url-shortener/internal/processing/links"
	"github.com/rajibhasenraju/modern-url-shortener/internal/storage/kvstore"
)

type config struct {
	appEnv     string
	appName    string
	appVersion string
	logLevel   string

	otelEnabled  bool
	otelEndpoint string

	kvBackend     string
	redisAddr     string
	redisPassword string
	redisDB       int
	mongoURI      string
	mongoDatabase string

	kafkaBrokers []string
	kafkaTopic   string
	kafkaGroupID string

	fetchMaxWait   time.Duration
	operationTTL   time.Duration
	consumeBackoff time.Duration
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.appEnv, cfg.logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var shutdownTracer func(context.Context) error
	if cfg.otelEnabled {
		shutdownTracer, err = telemetry.InitTracer(
			cfg.otelEndpoint,
			fmt.Sprintf("%s-click-consumer", cfg.appName),
			cfg.appVersion,
		)
		if err != nil {
			logger.Warn("failed to initialize tracer, continuing without tracing", zap.Error(err))
			shutdownTracer = nil
		}
	}
	defer func() {
		if shutdownTracer == nil {
			return
		}
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn("failed to shutdown tracer", zap.Error(err))
		}
	}()

	var backend kv.Store
	switch cfg.kvBackend {
	case "mongo":
		store, err := kvmongo.Connect(cfg.mongoURI, cfg.mongoDatabase)
		if err != nil {
			logger.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = store.Close(closeCtx)
		}()
		backend = store

	default:
		store, err := kvredis.New(kvredis.Config{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		if err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer func() { _ = store.Close() }()
		backend = store
	}

	linksStore := kvstore.NewLinksStore(backend)
	clicksStore := kvstore.NewClicksStore(backend)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.kafkaBrokers,
		Topic:       cfg.kafkaTopic,
		GroupID:     cfg.kafkaGroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     cfg.fetchMaxWait,
		StartOffset: kafka.FirstOffset,
	})
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Warn("failed to close kafka reader", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("click consumer started",
		zap.Strings("kafka_brokers", cfg.kafkaBrokers),
		zap.String("kafka_topic", cfg.kafkaTopic),
		zap.String("kafka_group", cfg.kafkaGroupID),
		zap.String("kv_backend", cfg.kvBackend),
	)

	tracer := otel.Tracer("click-consumer")
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("click consumer stopping")
				return
			}
			logger.Error("failed to fetch kafka message", zap.Error(err))
			time.Sleep(cfg.consumeBackoff)
			continue
		}

		consumeCtx := contextFromKafkaHeaders(ctx, msg.Headers)
		consumeCtx, span := tracer.Start(
			consumeCtx,
			"kafka.consume.click_recorded",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.system", "kafka"),
				attribute.String("messaging.destination.name", msg.Topic),
				attribute.String("messaging.operation", "process"),
				attribute.Int("messaging.kafka.partition", msg.Partition),
				attribute.Int64("messaging.kafka.offset", msg.Offset),
			),
		)

		if err := processMessage(consumeCtx, msg, linksStore, clicksStore, cfg.operationTTL); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "process click event failed")
			logger.Error("failed to process click event",
				zap.Error(err),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			span.End()
			time.Sleep(cfg.consumeBackoff)
			continue
		}

		if err := reader.CommitMessages(consumeCtx, msg); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "commit kafka offset failed")
			logger.Error("failed to commit kafka offset",
				zap.Error(err),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			span.End()
			time.Sleep(cfg.consumeBackoff)
			continue
		}

		span.End()
	}
}

func processMessage(
	ctx context.Context,
	msg kafka.Message,
	linksStore *kvstore.LinksStore,
	clicksStore *kvstore.ClicksStore,
	operationTTL time.Duration,
) error {
	var event events.ClickRecorded
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logger.Warn("invalid click event payload, skipping",
			zap.Error(err),
			zap.ByteString("payload", msg.Value),
		)
		return nil
	}
	if strings.TrimSpace(event.Code) == "" {
		logger.Warn("click event missing code, skipping", zap.String("event_id", event.EventID))
		return nil
	}

	occurredAt := msg.Time.UTC()
	if strings.TrimSpace(event.OccurredAt) != "" {
		parsed, err := time.Parse(time.RFC3339Nano, event.OccurredAt)
		if err != nil {
			logger.Warn("invalid event occurredAt, using kafka timestamp",
				zap.Error(err),
				zap.String("event_id", event.EventID),
			)
		} else {
			occurredAt = parsed.UTC()
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, operationTTL)
	defer cancel()

	if _, err := linksStore.Get(opCtx, event.Code); err != nil {
		if errors.Is(err, links.ErrNotFound) {
			// Event is stale relative to current data (deleted link). Safe to skip.
			logger.Info("click event skipped for missing link",
				zap.String("event_id", event.EventID),
				zap.String("code", event.Code),
			)
			return nil
		}
		return err
	}

	return clicksStore.Append(opCtx, event.Code, links.ClickEvent{
		Timestamp: occurredAt,
		Country:   event.Country,
		Device:    event.Device,
		Browser:   event.Browser,
		Referrer:  event.Referrer,
	})
}

func loadConfig() (config, error) {
	cfg := config{
		appEnv:         appconfig.GetEnv("APP_ENV", "production"),
		appName:        appconfig.GetEnv("APP_NAME", "url-shortener"),
		appVersion:     appconfig.GetEnv("APP_VERSION", "0.1.0"),
		logLevel:       appconfig.GetEnv("LOG_LEVEL", "info"),
		otelEnabled:    appconfig.GetEnvBool("OTEL_ENABLED", false),
		otelEndpoint:   appconfig.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		kvBackend:      appconfig.GetEnv("KV_BACKEND", "redis"),
		redisAddr:      appconfig.GetEnv("REDIS_ADDR", "localhost:6379"),
		redisPassword:  appconfig.GetEnv("REDIS_PASSWORD", ""),
		redisDB:        appconfig.GetEnvInt("REDIS_DB", 0),
		mongoURI:       appconfig.GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
		mongoDatabase:  appconfig.GetEnv("MONGODB_DATABASE", "shortener"),
		kafkaBrokers:   appconfig.SplitCSV(appconfig.GetEnv("KAFKA_BROKERS", "localhost:9092")),
		kafkaTopic:     appconfig.GetEnv("KAFKA_CLICKS_TOPIC", "link-clicks"),
		kafkaGroupID:   appconfig.GetEnv("KAFKA_GROUP_ID", "click-consumer"),
		fetchMaxWait:   appconfig.GetEnvDuration("KAFKA_CONSUMER_MAX_WAIT", 500*time.Millisecond),
		operationTTL:   appconfig.GetEnvDuration("KAFKA_CONSUMER_OPERATION_TIMEOUT", 5*time.Second),
		consumeBackoff: appconfig.GetEnvDuration("KAFKA_CONSUMER_BACKOFF", 500*time.Millisecond),
	}

	if len(cfg.kafkaBrokers) == 0 {
		return config{}, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if strings.TrimSpace(cfg.kafkaTopic) == "" {
		return config{}, fmt.Errorf("KAFKA_CLICKS_TOPIC must not be empty")
	}
	if strings.TrimSpace(cfg.kafkaGroupID) == "" {
		return config{}, fmt.Errorf("KAFKA_GROUP_ID must not be empty")
	}
	if cfg.operationTTL <= 0 {
		return config{}, fmt.Errorf("KAFKA_CONSUMER_OPERATION_TIMEOUT must be > 0")
	}

	return cfg, nil
}

func contextFromKafkaHeaders(parent context.Context, headers []kafka.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, header := range headers {
		key := strings.ToLower(strings.TrimSpace(header.Key))
		if key == "" {
			continue
		}
		carrier.Set(key, string(header.Value))
	}
	return otel.GetTextMapPropagator().Extract(parent, carrier)
}
