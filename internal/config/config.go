package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	KV        KVConfig
	Shortener ShortenerConfig
	Auth      AuthConfig
	Kafka     KafkaConfig
	Security  SecurityConfig
	OTel      OTelConfig
}

type AppConfig struct {
	Name     string
	Version  string
	Env      string
	LogLevel string
}

type ServerConfig struct {
	Port string
	Host string
}

// KVConfig selects and configures the key-value backend. Backend is one of
// "redis", "mongo" or "memory".
type KVConfig struct {
	Backend string
	Redis   RedisConfig
	Mongo   MongoConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

type MongoConfig struct {
	URI      string
	Database string
}

type ShortenerConfig struct {
	BaseURL        string
	KeyLength      int
	RedirectStatus int // 301 or 302
}

type AuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	RedirectURL        string
	AppURL             string
	SessionTTL         time.Duration
	SecureCookies      bool
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
	GroupID string
}

type SecurityConfig struct {
	CreateRatePerMinute int
}

type OTelConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{
		App: AppConfig{
			Name:     GetEnv("APP_NAME", "url-shortener"),
			Version:  GetEnv("APP_VERSION", "0.1.0"),
			Env:      GetEnv("APP_ENV", "development"),
			LogLevel: GetEnv("LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port: GetEnv("APP_PORT", "8080"),
			Host: GetEnv("APP_HOST", "localhost"),
		},
		KV: KVConfig{
			Backend: GetEnv("KV_BACKEND", "redis"),
			Redis: RedisConfig{
				Addr:     GetEnv("REDIS_ADDR", "localhost:6379"),
				Password: GetEnv("REDIS_PASSWORD", ""),
				DB:       GetEnvInt("REDIS_DB", 0),
				PoolSize: GetEnvInt("REDIS_POOL_SIZE", 10),
			},
			Mongo: MongoConfig{
				URI:      GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
				Database: GetEnv("MONGODB_DATABASE", "shortener"),
			},
		},
		Shortener: ShortenerConfig{
			BaseURL:        GetEnv("SHORTENER_BASE_URL", "http://localhost:8080"),
			KeyLength:      GetEnvInt("KEY_LENGTH", 6),
			RedirectStatus: GetEnvInt("REDIRECT_STATUS", 302),
		},
		Auth: AuthConfig{
			GoogleClientID:     GetEnv("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: GetEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:        GetEnv("OAUTH_REDIRECT_URL", "http://localhost:8080/auth/callback"),
			AppURL:             GetEnv("APP_URL", "http://localhost:3000"),
			SessionTTL:         GetEnvDuration("SESSION_TTL", 30*24*time.Hour),
			SecureCookies:      GetEnvBool("SECURE_COOKIES", false),
		},
		Kafka: KafkaConfig{
			Enabled: GetEnvBool("KAFKA_ENABLED", false),
			Brokers: SplitCSV(GetEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   GetEnv("KAFKA_CLICKS_TOPIC", "link-clicks"),
			GroupID: GetEnv("KAFKA_GROUP_ID", "click-consumer"),
		},
		Security: SecurityConfig{
			CreateRatePerMinute: GetEnvInt("CREATE_RATE_PER_MINUTE", 30),
		},
		OTel: OTelConfig{
			Enabled:  GetEnvBool("OTEL_ENABLED", false),
			Endpoint: GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		},
	}

	if cfg.Shortener.RedirectStatus != 301 && cfg.Shortener.RedirectStatus != 302 {
		return nil, fmt.Errorf("REDIRECT_STATUS must be 301 or 302 (got %d)", cfg.Shortener.RedirectStatus)
	}
	if cfg.Shortener.KeyLength < 4 || cfg.Shortener.KeyLength > 32 {
		return nil, fmt.Errorf("KEY_LENGTH must be between 4 and 32 (got %d)", cfg.Shortener.KeyLength)
	}
	switch cfg.KV.Backend {
	case "redis", "mongo", "memory":
	default:
		return nil, fmt.Errorf("KV_BACKEND must be redis, mongo or memory (got %q)", cfg.KV.Backend)
	}

	return cfg, nil
}
