package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rajibhasenraju/modern-url-shortener/internal/config"
	"github.com/rajibhasenraju/modern-url-shortener/internal/infrastructure/logger"
	"github.com/rajibhasenraju/modern-url-shortener/internal/infrastructure/telemetry"
	"github.com/rajibhasenraju/modern-url-shortener/internal/kv"
	kvmemory "github.com/rajibhasenraju/modern-url-shortener/internal/kv/memory"
	kvmongo "github.com/rajibhasenraju/modern-url-shortener/internal/kv/mongo"
	kvredis "github.com/rajibhasenraju/modern-url-shortener/internal/kv/redis"
	"github.com/rajibhasenraju/modern-url-shortener/internal/processing/auth"
	"github.com/rajibhasenraju/modern-url-shortener/internal/processing/links"
	kafkaStorage "github.com/rajibhasenraju/modern-url-shortener/internal/storage/kafka"
	"github.com/rajibhasenraju/modern-url-shortener/internal/storage/kvstore"
	httpTransport "github.com/rajibhasenraju/modern-url-shortener/internal/transport/http"
	"github.com/rajibhasenraju/modern-url-shortener/internal/transport/http/middleware"
	"github.com/rajibhasenraju/modern-url-shortener/pkg/httpclient"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.App.Env, cfg.App.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
	)

	var shutdownTracer func(context.Context) error
	if cfg.OTel.Enabled {
		var err error
		shutdownTracer, err = telemetry.InitTracer(cfg.OTel.Endpoint, cfg.App.Name, cfg.App.Version)
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			logger.Info("OpenTelemetry tracer initialized", zap.String("endpoint", cfg.OTel.Endpoint))
		}
	}

	var (
		backend    kv.Store
		redisStore *kvredis.Store
		closeKV    func()
	)
	switch cfg.KV.Backend {
	case "redis":
		store, err := kvredis.New(kvredis.Config{
			Addr:     cfg.KV.Redis.Addr,
			Password: cfg.KV.Redis.Password,
			DB:       cfg.KV.Redis.DB,
			PoolSize: cfg.KV.Redis.PoolSize,
		})
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		backend = store
		redisStore = store
		closeKV = func() { _ = store.Close() }

	case "mongo":
		store, err := kvmongo.Connect(cfg.KV.Mongo.URI, cfg.KV.Mongo.Database)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		backend = store
		closeKV = func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = store.Close(ctx)
		}

	default:
		logger.Warn("Using in-memory KV store, data will not survive restarts")
		backend = kvmemory.New()
		closeKV = func() {}
	}
	defer closeKV()

	linksStore := kvstore.NewLinksStore(backend)
	clicksStore := kvstore.NewClicksStore(backend)
	sessionsStore := kvstore.NewSessionsStore(backend)

	var sink links.ClickSink
	if cfg.Kafka.Enabled {
		publisher := kafkaStorage.NewClickPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() { _ = publisher.Close() }()
		sink = publisher
		logger.Info("Kafka click pipeline enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	linkSvc := links.NewService(linksStore, clicksStore, sink, links.NewCryptoKeyGenerator(), cfg.Shortener.KeyLength)

	oauthClient := httpclient.New(10*time.Second, 5, 30*time.Second)
	authSvc := auth.NewService(sessionsStore, auth.OAuthConfig{
		ClientID:     cfg.Auth.GoogleClientID,
		ClientSecret: cfg.Auth.GoogleClientSecret,
		RedirectURL:  cfg.Auth.RedirectURL,
	}, cfg.Auth.SessionTTL, oauthClient)

	routerOpts := httpTransport.DefaultRouterOptions()
	if redisStore != nil {
		limiterStore := kvredis.NewFixedWindowLimiter(redisStore, "rl:create", time.Minute)
		routerOpts.RateLimiter = middleware.NewFixedWindowLimiter(limiterStore, cfg.Security.CreateRatePerMinute)
	}
	router := httpTransport.NewRouterWithOptions(cfg, linkSvc, authSvc, routerOpts)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if shutdownTracer != nil {
			_ = shutdownTracer(shutdownCtx)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("Server starting",
		zap.String("port", cfg.Server.Port),
		zap.String("kv_backend", cfg.KV.Backend),
		zap.String("address", fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)),
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
