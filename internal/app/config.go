package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// StorageDriver выбирает реализацию хранилища заказов.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска сервиса оформления заказов.
//
// KafkaBrokers и RedisAddr опциональны: без брокеров outbox-воркер не
// стартует, без Redis корзины живут в памяти процесса.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CartTTL       time.Duration

	JWTSecret     string
	WebhookSecret string

	GatewayBaseURL     string
	GatewayAccessToken string
	GatewayTimeout     time.Duration

	// AllowMockIntegrations подменяет шлюз mock-клиентом при пустом токене.
	// Без флага отсутствие учётных данных означает fail-fast на оплатах.
	AllowMockIntegrations bool

	KafkaBrokers string
	OutboxTopic  string
	DLQTopic     string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	WebhookCleanupInterval  time.Duration
	WebhookCleanupRetention time.Duration
	WebhookCleanupBatchSize int
}

// DefaultConfig возвращает настройки для локального запуска в памяти.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                ":8080",
		MetricsAddr:             ":9090",
		StorageDriver:           StorageDriverMemory,
		PostgresAutoMigrate:     true,
		CartTTL:                 7 * 24 * time.Hour,
		GatewayTimeout:          10 * time.Second,
		OutboxTopic:             "checkout.order.events",
		DLQTopic:                "checkout.dlq",
		OutboxPollInterval:      time.Second,
		OutboxBatchSize:         100,
		OutboxMaxAttempts:       3,
		OutboxRetryDelay:        100 * time.Millisecond,
		WebhookCleanupInterval:  time.Hour,
		WebhookCleanupRetention: 30 * 24 * time.Hour,
		WebhookCleanupBatchSize: 500,
	}
}

// LoadConfig читает настройки из окружения поверх DefaultConfig.
// Файл .env подхватывается, если есть; его отсутствие не ошибка.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	cfg.HTTPAddr = envString("CHECKOUT_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = envString("CHECKOUT_METRICS_ADDR", cfg.MetricsAddr)

	switch driver := StorageDriver(envString("CHECKOUT_STORAGE_DRIVER", string(cfg.StorageDriver))); driver {
	case StorageDriverMemory, StorageDriverPostgres:
		cfg.StorageDriver = driver
	default:
		return Config{}, fmt.Errorf("unknown storage driver %q", driver)
	}
	cfg.PostgresDSN = envString("CHECKOUT_POSTGRES_DSN", cfg.PostgresDSN)
	var err error
	if cfg.PostgresAutoMigrate, err = envBool("CHECKOUT_POSTGRES_AUTO_MIGRATE", cfg.PostgresAutoMigrate); err != nil {
		return Config{}, err
	}
	if cfg.StorageDriver == StorageDriverPostgres && cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("CHECKOUT_POSTGRES_DSN is required for the postgres driver")
	}

	cfg.RedisAddr = envString("CHECKOUT_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = envString("CHECKOUT_REDIS_PASSWORD", cfg.RedisPassword)
	if cfg.RedisDB, err = envInt("CHECKOUT_REDIS_DB", cfg.RedisDB); err != nil {
		return Config{}, err
	}
	if cfg.CartTTL, err = envDuration("CHECKOUT_CART_TTL", cfg.CartTTL); err != nil {
		return Config{}, err
	}

	cfg.JWTSecret = envString("CHECKOUT_JWT_SECRET", cfg.JWTSecret)
	cfg.WebhookSecret = envString("CHECKOUT_WEBHOOK_SECRET", cfg.WebhookSecret)
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("CHECKOUT_JWT_SECRET is required")
	}
	if cfg.WebhookSecret == "" {
		return Config{}, fmt.Errorf("CHECKOUT_WEBHOOK_SECRET is required")
	}

	cfg.GatewayBaseURL = envString("CHECKOUT_GATEWAY_BASE_URL", cfg.GatewayBaseURL)
	cfg.GatewayAccessToken = envString("CHECKOUT_GATEWAY_ACCESS_TOKEN", cfg.GatewayAccessToken)
	if cfg.GatewayTimeout, err = envDuration("CHECKOUT_GATEWAY_TIMEOUT", cfg.GatewayTimeout); err != nil {
		return Config{}, err
	}
	if cfg.AllowMockIntegrations, err = envBool("CHECKOUT_ALLOW_MOCK_INTEGRATIONS", cfg.AllowMockIntegrations); err != nil {
		return Config{}, err
	}

	cfg.KafkaBrokers = envString("CHECKOUT_KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.OutboxTopic = envString("CHECKOUT_OUTBOX_TOPIC", cfg.OutboxTopic)
	cfg.DLQTopic = envString("CHECKOUT_DLQ_TOPIC", cfg.DLQTopic)

	if cfg.OutboxPollInterval, err = envDuration("CHECKOUT_OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.OutboxBatchSize, err = envInt("CHECKOUT_OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize); err != nil {
		return Config{}, err
	}
	if cfg.OutboxMaxAttempts, err = envInt("CHECKOUT_OUTBOX_MAX_ATTEMPTS", cfg.OutboxMaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.OutboxRetryDelay, err = envDuration("CHECKOUT_OUTBOX_RETRY_DELAY", cfg.OutboxRetryDelay); err != nil {
		return Config{}, err
	}

	if cfg.WebhookCleanupInterval, err = envDuration("CHECKOUT_WEBHOOK_CLEANUP_INTERVAL", cfg.WebhookCleanupInterval); err != nil {
		return Config{}, err
	}
	if cfg.WebhookCleanupRetention, err = envDuration("CHECKOUT_WEBHOOK_CLEANUP_RETENTION", cfg.WebhookCleanupRetention); err != nil {
		return Config{}, err
	}
	if cfg.WebhookCleanupBatchSize, err = envInt("CHECKOUT_WEBHOOK_CLEANUP_BATCH_SIZE", cfg.WebhookCleanupBatchSize); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func envBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
