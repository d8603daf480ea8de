package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Mail         MailConfig
	Queue        QueueConfig
	Routing      RoutingConfig
	Attachments  AttachmentConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines how bearer tokens from the auth layer are verified.
type AuthConfig struct {
	JWTSecret string
}

// MailConfig holds the organization mailbox settings.
type MailConfig struct {
	// OutboundAddress is the address the connector sends advisor mail from.
	OutboundAddress string
}

// QueueConfig controls inbound event consumption.
type QueueConfig struct {
	Name string
	// ConsumerID names this process's processing list. It must survive restarts so
	// in-flight entries are recovered by the same process.
	ConsumerID          string
	Workers             int
	MaxAttempts         int
	BlockTimeoutSeconds int
}

// RoutingConfig tunes advisor selection and rebalancing.
type RoutingConfig struct {
	RoundRobinBackend  string
	RebalanceCron      string
	RebalanceTolerance int
}

// AttachmentConfig configures the attachment storage backend.
type AttachmentConfig struct {
	Dir     string
	BaseURL string

	// BlobPrefix is the Redis key prefix the connector stages attachment content under.
	BlobPrefix string
}

// NotificationConfig holds the real-time channel name.
type NotificationConfig struct {
	Channel string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "email-routing-worker"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", "dev-secret"),
		},
		Mail: MailConfig{
			OutboundAddress: strings.TrimSpace(os.Getenv("MAIL_OUTBOUND_ADDRESS")),
		},
		Queue: QueueConfig{
			Name:                getEnv("QUEUE_NAME", "mail:inbound"),
			ConsumerID:          getEnv("QUEUE_CONSUMER_ID", defaultConsumerID()),
			Workers:             getEnvAsInt("QUEUE_WORKERS", 4),
			MaxAttempts:         getEnvAsInt("QUEUE_MAX_ATTEMPTS", 5),
			BlockTimeoutSeconds: getEnvAsInt("QUEUE_BLOCK_TIMEOUT_SECONDS", 5),
		},
		Routing: RoutingConfig{
			RoundRobinBackend:  strings.ToLower(getEnv("ROUND_ROBIN_BACKEND", "memory")),
			RebalanceCron:      os.Getenv("REBALANCE_CRON"),
			RebalanceTolerance: getEnvAsInt("REBALANCE_TOLERANCE", 1),
		},
		Attachments: AttachmentConfig{
			Dir:        getEnv("ATTACHMENT_DIR", "./data/attachments"),
			BaseURL:    getEnv("ATTACHMENT_BASE_URL", "http://localhost:8080/files"),
			BlobPrefix: getEnv("ATTACHMENT_BLOB_PREFIX", "mail:attachment"),
		},
		Notification: NotificationConfig{
			Channel: getEnv("NOTIFY_CHANNEL", "contact-center:tickets"),
		},
	}

	if cfg.Routing.RoundRobinBackend != "memory" && cfg.Routing.RoundRobinBackend != "redis" {
		return nil, fmt.Errorf("invalid ROUND_ROBIN_BACKEND %q", cfg.Routing.RoundRobinBackend)
	}
	if cfg.Queue.Workers <= 0 {
		cfg.Queue.Workers = 1
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// BlockTimeout returns how long a consumer waits on an empty queue.
func (q QueueConfig) BlockTimeout() time.Duration {
	if q.BlockTimeoutSeconds <= 0 {
		return time.Second
	}
	return time.Duration(q.BlockTimeoutSeconds) * time.Second
}

func defaultConsumerID() string {
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		return "default"
	}
	return host
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
