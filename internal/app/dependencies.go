package app

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
	"github.com/vladislavdragonenkov/orderflow/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orderflow/internal/messaging/rabbit"
	"github.com/vladislavdragonenkov/orderflow/internal/service/inventory"
	"github.com/vladislavdragonenkov/orderflow/internal/service/payment"
	"github.com/vladislavdragonenkov/orderflow/internal/service/rest"
	"github.com/vladislavdragonenkov/orderflow/internal/storage/memory"
	"github.com/vladislavdragonenkov/orderflow/internal/storage/postgres"
	"github.com/vladislavdragonenkov/orderflow/internal/storage/redis"
)

// Dependencies содержит собранные зависимости сервиса. Каждая внешняя
// система опциональна: при отсутствии адреса используется in-memory замена,
// что позволяет запускать сервис и тесты без инфраструктуры.
type Dependencies struct {
	Orders    domain.OrderRepository
	Carts     rest.CartManager
	Ledger    domain.InventoryLedger
	Gateway   domain.PaymentGateway
	Publisher domain.EventPublisher
	Telemetry *kafka.Producer

	Store      *postgres.Store
	RedisCarts *redis.CartStore

	rabbitConn *amqp.Connection
	rabbitCh   *amqp.Channel

	Logger *log.Entry
}

// NewDependencies собирает зависимости согласно конфигурации.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{Logger: logger}

	if cfg.PostgresDSN != "" {
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("setup postgres: %w", err)
		}
		if err := store.MigrateUp(ctx, 0); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		deps.Store = store
		deps.Orders = postgres.NewOrderRepository(store)
		deps.Ledger = postgres.NewInventoryRepository(store)
		logger.Info("using postgres storage")
	} else {
		deps.Orders = memory.NewOrderRepository()
		deps.Ledger = inventory.NewLedger(logger.WithField("component", "inventory-ledger"))
		logger.Info("using in-memory storage")
	}

	if cfg.RedisAddr != "" {
		carts, err := redis.NewCartStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CartTTL, nil)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("setup redis: %w", err)
		}
		deps.RedisCarts = carts
		deps.Carts = carts
	} else {
		deps.Carts = memory.NewCartStore(cfg.CartTTL)
		logger.Info("using in-memory cart store")
	}

	if cfg.RabbitURL != "" {
		conn, ch, err := rabbit.SetupConn(cfg.RabbitURL, logger.WithField("component", "rabbit"))
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("setup rabbitmq: %w", err)
		}
		deps.rabbitConn = conn
		deps.rabbitCh = ch
		deps.Publisher = rabbit.NewPublisher(ch, nil)
		logger.Info("rabbitmq publisher initialized")
	} else {
		deps.Publisher = rabbit.NewNoopPublisher(nil)
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without saga telemetry")
		} else {
			deps.Telemetry = producer
			logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
		}
	}

	deps.Gateway = payment.NewGateway(
		cfg.PaymentSuccessRate,
		cfg.PaymentDelay,
		deps.Publisher,
		logger.WithField("component", "payment-gateway"),
	)

	return deps, nil
}

// Close освобождает внешние подключения в обратном порядке инициализации.
func (d *Dependencies) Close() {
	if d.Telemetry != nil {
		if err := d.Telemetry.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close kafka producer")
		}
	}
	if d.rabbitCh != nil {
		_ = d.rabbitCh.Close()
	}
	if d.rabbitConn != nil {
		_ = d.rabbitConn.Close()
	}
	if d.RedisCarts != nil {
		if err := d.RedisCarts.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close redis client")
		}
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
