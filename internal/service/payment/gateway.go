package payment

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
	"github.com/vladislavdragonenkov/orderflow/internal/messaging/rabbit"
)

const (
	// DefaultSuccessRate — вероятность успешного списания у заглушки провайдера.
	DefaultSuccessRate = 0.9
)

// Gateway — заглушка платёжного провайдера: исход выбирается случайно с
// фиксированной вероятностью успеха, событие об исходе публикуется всегда.
// Для оркестратора это чёрный ящик; внутренних retry нет.
type Gateway struct {
	successRate float64
	delay       time.Duration
	publisher   domain.EventPublisher
	logger      *log.Entry
}

// NewGateway создаёт заглушку провайдера. successRate вне [0,1] обрезается,
// delay имитирует латентность реального провайдера (0 — без задержки).
func NewGateway(successRate float64, delay time.Duration, publisher domain.EventPublisher, logger *log.Entry) *Gateway {
	if successRate < 0 {
		successRate = 0
	}
	if successRate > 1 {
		successRate = 1
	}
	if logger == nil {
		logger = log.New().WithField("component", "payment-gateway")
	}
	return &Gateway{
		successRate: successRate,
		delay:       delay,
		publisher:   publisher,
		logger:      logger,
	}
}

// ProcessPayment имитирует списание: генерирует payment ref, бросает монету с
// вероятностью successRate и публикует payment-событие независимо от исхода.
func (g *Gateway) ProcessPayment(ctx context.Context, orderID, userID string, amountMinor int64) (domain.PaymentResult, error) {
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return domain.PaymentResult{}, ctx.Err()
		}
	}

	result := domain.PaymentResult{
		PaymentRef: "PAY-" + uuid.NewString(),
	}

	if rand.Float64() < g.successRate {
		result.Status = domain.PaymentOutcomeSuccess
		result.Message = "payment processed successfully"
		g.logger.WithFields(log.Fields{
			"order_id":     orderID,
			"payment_ref":  result.PaymentRef,
			"amount_minor": amountMinor,
		}).Info("payment succeeded")
	} else {
		result.Status = domain.PaymentOutcomeFailed
		result.Message = "payment failed: insufficient funds"
		g.logger.WithFields(log.Fields{
			"order_id":     orderID,
			"payment_ref":  result.PaymentRef,
			"amount_minor": amountMinor,
		}).Warn("payment declined")
	}

	g.publishEvent(ctx, orderID, userID, amountMinor, result)

	return result, nil
}

// publishEvent отправляет payment-событие fire-and-forget: ошибка публикации
// логируется и не влияет на результат платежа.
func (g *Gateway) publishEvent(ctx context.Context, orderID, userID string, amountMinor int64, result domain.PaymentResult) {
	if g.publisher == nil {
		return
	}

	event := domain.PaymentEvent{
		PaymentRef:  result.PaymentRef,
		OrderID:     orderID,
		UserID:      userID,
		AmountMinor: amountMinor,
		Status:      string(result.Status),
		Timestamp:   time.Now().UTC(),
	}
	if err := g.publisher.Publish(ctx, rabbit.ExchangePayments, rabbit.RoutingKeyPaymentProcessed, event); err != nil {
		g.logger.WithError(err).WithFields(log.Fields{
			"order_id":    orderID,
			"payment_ref": result.PaymentRef,
		}).Warn("failed to publish payment event")
	}
}

var _ domain.PaymentGateway = (*Gateway)(nil)
