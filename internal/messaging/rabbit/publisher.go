package rabbit

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// Publisher публикует доменные события в topic exchange RabbitMQ.
// Доставка at-most-once: подтверждений не запрашиваем.
type Publisher struct {
	ch     *amqp.Channel
	logger *log.Entry
}

// NewPublisher создаёт паблишер поверх открытого канала.
func NewPublisher(ch *amqp.Channel, logger *log.Entry) *Publisher {
	if logger == nil {
		logger = log.New().WithField("component", "rabbit-publisher")
	}
	return &Publisher{ch: ch, logger: logger}
}

// Publish сериализует событие в JSON и отправляет его в exchange с заданным routing key.
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.ch.PublishWithContext(ctx,
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}

	p.logger.WithFields(log.Fields{
		"exchange":    exchange,
		"routing_key": routingKey,
	}).Debug("event published")
	return nil
}

var _ domain.EventPublisher = (*Publisher)(nil)
