package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

const (
	cartKeyPrefix = "cart:"
	pingTimeout   = 5 * time.Second
)

// CartStore хранит корзины в Redis: JSON-значение на ключ cart:<user_id>
// с TTL. Отсутствующий или истёкший ключ означает пустую корзину.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Entry
}

// NewCartStore подключается к Redis и проверяет соединение.
func NewCartStore(addr, password string, db int, ttl time.Duration, logger *log.Entry) (*CartStore, error) {
	if logger == nil {
		logger = log.New().WithField("component", "redis-cart-store")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}

	logger.WithField("addr", addr).Info("connected to redis")
	return &CartStore{client: client, ttl: ttl, logger: logger}, nil
}

// SaveCart сохраняет снимок корзины и продлевает TTL.
func (s *CartStore) SaveCart(ctx context.Context, cart domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := s.client.Set(ctx, cartKey(cart.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save cart for user %s: %w", cart.UserID, err)
	}
	return nil
}

// GetCart возвращает корзину пользователя; отсутствующий ключ — пустая корзина.
func (s *CartStore) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	data, err := s.client.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Cart{UserID: userID}, nil
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("load cart for user %s: %w", userID, err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return domain.Cart{}, fmt.Errorf("unmarshal cart for user %s: %w", userID, err)
	}
	return cart, nil
}

// ClearCart удаляет корзину пользователя.
func (s *CartStore) ClearCart(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear cart for user %s: %w", userID, err)
	}
	return nil
}

// Ping проверяет доступность Redis, используется health-пробами.
func (s *CartStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close закрывает соединение с Redis.
func (s *CartStore) Close() error {
	return s.client.Close()
}

func cartKey(userID string) string {
	return cartKeyPrefix + userID
}

var _ domain.CartStore = (*CartStore)(nil)
