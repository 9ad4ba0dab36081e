package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/gateway"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
	"github.com/vladislavdragonenkov/checkout/internal/storage/postgres"
	"github.com/vladislavdragonenkov/checkout/internal/storage/redis"
)

// Dependencies содержит инфраструктурные зависимости приложения.
//
// Корзины пишет витринный сервис; checkout их только читает и очищает,
// поэтому здесь достаточно read/clear-адаптера поверх общего Redis.
type Dependencies struct {
	Orders      domain.OrderRepository
	Checkout    domain.CheckoutStore
	Ledger      domain.InventoryLedger
	Carts       domain.CartService
	Addresses   domain.AddressService
	Outbox      domain.OutboxRepository
	Timeline    domain.TimelineRepository
	WebhookLogs domain.WebhookLogRepository
	Gateway     domain.GatewayClient

	Store       *postgres.Store
	RedisClient *goredis.Client
	Logger      *log.Entry
}

// NewDependencies собирает хранилища и клиентов по конфигу.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{Logger: logger}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		deps.Store = store
		deps.Orders = postgres.NewOrderRepository(store)
		deps.Checkout = postgres.NewCheckoutStore(store)
		deps.Ledger = postgres.NewInventoryRepository(store)
		deps.Outbox = postgres.NewOutboxRepository(store)
		deps.Timeline = postgres.NewTimelineRepository(store)
		deps.WebhookLogs = postgres.NewWebhookLogRepository(store)
		logger.Info("storage: postgres")
	case StorageDriverMemory:
		orders := memory.NewOrderRepository()
		inventory := memory.NewInventory()
		deps.Orders = orders
		deps.Checkout = memory.NewCheckoutStore(orders, inventory)
		deps.Ledger = inventory
		deps.Outbox = memory.NewOutboxRepository()
		deps.Timeline = memory.NewTimelineRepository()
		deps.WebhookLogs = memory.NewWebhookLog()
		logger.Info("storage: in-memory")
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	if cfg.RedisAddr != "" {
		client, err := redis.Open(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			deps.close()
			return nil, fmt.Errorf("open redis: %w", err)
		}
		deps.RedisClient = client
		deps.Carts = redis.NewCartStore(client, cfg.CartTTL)
		logger.WithField("addr", cfg.RedisAddr).Info("carts: redis")
	} else {
		deps.Carts = memory.NewCartStore()
		logger.Info("carts: in-memory")
	}

	// Адресная книга живёт в профильном сервисе; здесь локальная копия.
	deps.Addresses = memory.NewAddressBook()

	// Пустой токен без явного разрешения на mock оставляет боевой клиент:
	// оплаты падают быстро с ErrGatewayUnavailable, а не проходят "успешно".
	if cfg.GatewayAccessToken == "" && cfg.AllowMockIntegrations {
		deps.Gateway = gateway.NewMockClient()
		logger.Warn("gateway: access token is empty, using mock client")
	} else {
		deps.Gateway = gateway.NewClient(gateway.Config{
			BaseURL:     cfg.GatewayBaseURL,
			AccessToken: cfg.GatewayAccessToken,
			Timeout:     cfg.GatewayTimeout,
		}, logger.WithField("component", "gateway-client"))
		if cfg.GatewayAccessToken == "" {
			logger.Warn("gateway: access token is empty, payment endpoints will fail fast")
		} else {
			logger.Info("gateway: live client")
		}
	}

	return deps, nil
}

// Close освобождает подключения к внешним системам.
func (d *Dependencies) Close() {
	d.close()
}

func (d *Dependencies) close() {
	if d.RedisClient != nil {
		if err := d.RedisClient.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close redis client")
		}
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
