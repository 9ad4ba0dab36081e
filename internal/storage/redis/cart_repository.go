package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const defaultOpTimeout = 3 * time.Second

// Config — параметры подключения к Redis.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Open открывает подключение к Redis и проверяет его ping-ом.
func Open(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  defaultOpTimeout,
		WriteTimeout: defaultOpTimeout,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// CartStore хранит корзины пользователей в Redis.
// Корзина — JSON-документ под ключом cart:<user_id>. Сервис заказов
// читает снимок и очищает корзину; наполняет её отдельный фронтовый сервис.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartStore создаёт CartStore. ttl=0 означает корзины без срока жизни.
func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{client: client, ttl: ttl}
}

func cartKey(userID string) string {
	return "cart:" + userID
}

// Get возвращает снимок корзины или ErrCartNotFound.
func (s *CartStore) Get(userID string) (domain.CartSnapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultOpTimeout)
	defer cancel()

	raw, err := s.client.Get(ctx, cartKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.CartSnapshot{}, domain.ErrCartNotFound
		}
		return domain.CartSnapshot{}, fmt.Errorf("get cart: %w", err)
	}

	var lines []domain.CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("decode cart: %w", err)
	}
	return domain.CartSnapshot{UserID: userID, Lines: lines}, nil
}

// Put сохраняет строки корзины пользователя.
func (s *CartStore) Put(userID string, lines []domain.CartLine) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultOpTimeout)
	defer cancel()

	raw, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.client.Set(ctx, cartKey(userID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set cart: %w", err)
	}
	return nil
}

// Clear удаляет корзину пользователя. Отсутствующая корзина не ошибка.
func (s *CartStore) Clear(userID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultOpTimeout)
	defer cancel()

	if err := s.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

var _ domain.CartService = (*CartStore)(nil)
