package rabbit

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// noopPublisher используется, когда RabbitMQ не сконфигурирован: события
// только логируются.
type noopPublisher struct {
	logger *log.Entry
}

// NewNoopPublisher возвращает паблишер-заглушку для локальной разработки и тестов.
func NewNoopPublisher(logger *log.Entry) domain.EventPublisher {
	if logger == nil {
		logger = log.New().WithField("component", "rabbit-noop")
	}
	return &noopPublisher{logger: logger}
}

func (n *noopPublisher) Publish(_ context.Context, exchange, routingKey string, _ interface{}) error {
	n.logger.WithFields(log.Fields{
		"exchange":    exchange,
		"routing_key": routingKey,
	}).Debug("event dropped (no broker configured)")
	return nil
}

var _ domain.EventPublisher = (*noopPublisher)(nil)
