package rabbit

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

const (
	// ExchangeOrders — topic exchange для событий заказов.
	ExchangeOrders = "order.events"
	// ExchangePayments — topic exchange для событий платежей.
	ExchangePayments = "payment.events"

	// RoutingKeyOrderPlaced — ключ события об успешно оформленном заказе.
	RoutingKeyOrderPlaced = "order.placed"
	// RoutingKeyPaymentProcessed — ключ события об исходе платежа (любом).
	RoutingKeyPaymentProcessed = "payment.processed"

	exchangeType = "topic"
	dialAttempts = 5
	dialBackoff  = 2 * time.Second
)

// SetupConn устанавливает соединение с RabbitMQ и объявляет exchanges.
// Несколько попыток dial покрывают старт брокера в контейнере.
func SetupConn(url string, logger *log.Entry) (*amqp.Connection, *amqp.Channel, error) {
	if logger == nil {
		logger = log.New().WithField("component", "rabbit")
	}

	var conn *amqp.Connection
	var err error
	for i := 0; i < dialAttempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.WithError(err).WithField("attempt", i+1).Warn("failed to connect to rabbitmq")
		time.Sleep(dialBackoff)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	for _, exchange := range []string{ExchangeOrders, ExchangePayments} {
		if err := ch.ExchangeDeclare(
			exchange,     // name
			exchangeType, // type
			true,         // durable
			false,        // auto-deleted
			false,        // internal
			false,        // no-wait
			nil,          // arguments
		); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
		}
	}

	return conn, ch, nil
}
