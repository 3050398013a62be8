package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
	"github.com/vladislavdragonenkov/orderflow/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orderflow/internal/messaging/rabbit"
	"github.com/vladislavdragonenkov/orderflow/internal/metrics"
)

const (
	// defaultCurrency — валюта заказа; корзина цен в валюте не несёт.
	defaultCurrency = "USD"
	// maxSaveAttempts ограничивает число повторов при конфликте версий.
	maxSaveAttempts = 3
)

// Orchestrator управляет сагой оформления заказа и операциями над заказами.
// Сага выполняется синхронно: резерв склада, платёж, подтверждение либо
// компенсация. Любой провал после создания заказа заканчивается освобождением
// набранных резервов и ошибкой с первопричиной в цепочке.
type Orchestrator interface {
	// CreateOrder оформляет заказ из текущей корзины пользователя.
	CreateOrder(ctx context.Context, userID, userEmail string) (domain.Order, error)
	// GetOrder возвращает заказ; чужой заказ отдаётся как ErrUnauthorized.
	GetOrder(ctx context.Context, orderID, userID string) (domain.Order, error)
	// ListUserOrders возвращает заказы пользователя, новые первыми.
	ListUserOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error)
	// CancelOrder переводит заказ в cancelled и возвращает резервы на склад.
	CancelOrder(ctx context.Context, orderID, userID string) (domain.Order, error)
}

// TelemetryPublisher публикует события жизненного цикла саги во внутреннюю
// шину для аналитики. Публикация не влияет на исход саги.
type TelemetryPublisher interface {
	PublishEvent(topic string, key string, event interface{}) error
}

type orchestrator struct {
	orders    domain.OrderRepository
	carts     domain.CartStore
	ledger    domain.InventoryLedger
	payments  domain.PaymentGateway
	publisher domain.EventPublisher
	telemetry TelemetryPublisher
	metrics   *metrics.SagaMetrics
	logger    *log.Entry
}

// NewOrchestrator создает оркестратор саги с метриками в default registry.
func NewOrchestrator(
	orders domain.OrderRepository,
	carts domain.CartStore,
	ledger domain.InventoryLedger,
	payments domain.PaymentGateway,
	publisher domain.EventPublisher,
	logger *log.Entry,
) Orchestrator {
	return newOrchestrator(orders, carts, ledger, payments, publisher, nil, metrics.NewSagaMetrics(), logger)
}

// NewOrchestratorWithTelemetry дополнительно публикует события саги в Kafka.
func NewOrchestratorWithTelemetry(
	orders domain.OrderRepository,
	carts domain.CartStore,
	ledger domain.InventoryLedger,
	payments domain.PaymentGateway,
	publisher domain.EventPublisher,
	telemetry TelemetryPublisher,
	logger *log.Entry,
) Orchestrator {
	return newOrchestrator(orders, carts, ledger, payments, publisher, telemetry, metrics.NewSagaMetrics(), logger)
}

// NewOrchestratorWithoutMetrics используется в тестах, чтобы не трогать
// глобальный prometheus registry.
func NewOrchestratorWithoutMetrics(
	orders domain.OrderRepository,
	carts domain.CartStore,
	ledger domain.InventoryLedger,
	payments domain.PaymentGateway,
	publisher domain.EventPublisher,
	logger *log.Entry,
) Orchestrator {
	return newOrchestrator(orders, carts, ledger, payments, publisher, nil, nil, logger)
}

func newOrchestrator(
	orders domain.OrderRepository,
	carts domain.CartStore,
	ledger domain.InventoryLedger,
	payments domain.PaymentGateway,
	publisher domain.EventPublisher,
	telemetry TelemetryPublisher,
	m *metrics.SagaMetrics,
	logger *log.Entry,
) *orchestrator {
	if logger == nil {
		logger = log.New().WithField("component", "saga-orchestrator")
	}
	if publisher == nil {
		publisher = rabbit.NewNoopPublisher(logger)
	}
	return &orchestrator{
		orders:    orders,
		carts:     carts,
		ledger:    ledger,
		payments:  payments,
		publisher: publisher,
		telemetry: telemetry,
		metrics:   m,
		logger:    logger,
	}
}

// CreateOrder — единственная точка входа саги. Пустая корзина отклоняется до
// создания записи заказа; после создания любой провал идёт через failOrder.
func (o *orchestrator) CreateOrder(ctx context.Context, userID, userEmail string) (domain.Order, error) {
	logger := o.logger.WithField("user_id", userID)

	cart, err := o.carts.GetCart(ctx, userID)
	if err != nil {
		return domain.Order{}, domain.NewOrderCreationError(fmt.Errorf("load cart for user %s: %w", userID, err))
	}
	if cart.IsEmpty() {
		return domain.Order{}, fmt.Errorf("create order for user %s: %w", userID, domain.ErrEmptyCart)
	}

	start := time.Now()
	if o.metrics != nil {
		o.metrics.RecordSagaStarted()
	}

	order := buildOrder(userID, cart)
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, domain.NewOrderCreationError(fmt.Errorf("invalid cart snapshot: %w", errors.Join(errs...)))
	}
	if err := o.orders.Create(order); err != nil {
		return domain.Order{}, domain.NewOrderCreationError(fmt.Errorf("persist order: %w", err))
	}

	logger = logger.WithField("order_id", order.ID)
	logger.WithField("total_minor", order.TotalMinor).Info("order created, starting saga")
	o.publishTelemetry(kafka.EventTypeSagaStarted, order.ID, map[string]interface{}{
		"user_id":     userID,
		"total_minor": order.TotalMinor,
	})

	// Шаг 1: резервирование. Резервы набираются по одному, чтобы при провале
	// освободить ровно то, что успели удержать.
	stepStart := time.Now()
	var reserved []domain.ReservationRequest
	for _, item := range order.Items {
		req := domain.ReservationRequest{ProductID: item.ProductID, Qty: item.Qty}
		if err := o.ledger.Reserve(ctx, req); err != nil {
			return o.failOrder(ctx, order, reserved, err, logger)
		}
		reserved = append(reserved, req)
	}
	o.recordStep("reserve", stepStart)
	o.publishTelemetry(kafka.EventTypeStepReserved, order.ID, map[string]interface{}{
		"items": len(reserved),
	})

	order.Status = domain.OrderStatusPaymentProcessing
	if err := o.saveOrder(&order); err != nil {
		return o.failOrder(ctx, order, reserved, fmt.Errorf("update order status: %w", err), logger)
	}

	// Шаг 2: платёж. Ошибка здесь — сбой транспорта; отклонённый платёж
	// приходит отдельным статусом и идёт своей веткой компенсации.
	stepStart = time.Now()
	result, err := o.payments.ProcessPayment(ctx, order.ID, userID, order.TotalMinor)
	if err != nil {
		return o.failOrder(ctx, order, reserved, fmt.Errorf("process payment: %w", err), logger)
	}
	o.recordStep("payment", stepStart)

	if result.Status != domain.PaymentOutcomeSuccess {
		return o.declinePayment(ctx, order, reserved, result, logger)
	}

	order.Status = domain.OrderStatusCompleted
	order.PaymentRef = result.PaymentRef
	if err := o.saveOrder(&order); err != nil {
		return o.failOrder(ctx, order, reserved, fmt.Errorf("complete order: %w", err), logger)
	}

	// Шаг 3: подтверждение резервов. Неподтверждённый хвост освобождается.
	stepStart = time.Now()
	for i, req := range reserved {
		if err := o.ledger.Confirm(ctx, req); err != nil {
			return o.failOrder(ctx, order, reserved[i:], fmt.Errorf("confirm reservation: %w", err), logger)
		}
	}
	o.recordStep("confirm", stepStart)

	// Товар списан и оплачен: отсюда заказ уже не разворачивается.
	if err := o.carts.ClearCart(ctx, userID); err != nil {
		logger.WithError(err).Error("failed to clear cart after checkout")
	}

	o.publishOrderEvent(ctx, order, userEmail, logger)
	o.publishTelemetry(kafka.EventTypeSagaCompleted, order.ID, map[string]interface{}{
		"payment_ref": order.PaymentRef,
	})

	if o.metrics != nil {
		o.metrics.RecordSagaCompleted()
		o.metrics.RecordSagaDuration(time.Since(start))
	}
	logger.WithField("payment_ref", order.PaymentRef).Info("saga completed")

	return order, nil
}

// GetOrder возвращает заказ по идентификатору с проверкой владельца.
func (o *orchestrator) GetOrder(ctx context.Context, orderID, userID string) (domain.Order, error) {
	order, err := o.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if order.UserID != userID {
		return domain.Order{}, fmt.Errorf("get order %s: %w", orderID, domain.ErrUnauthorized)
	}
	return order, nil
}

// ListUserOrders возвращает заказы пользователя, новые первыми.
func (o *orchestrator) ListUserOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	orders, err := o.orders.ListByUser(userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders for user %s: %w", userID, err)
	}
	return orders, nil
}

// CancelOrder выполняет явную отмену владельцем. Отменяются только заказы без
// успешного списания; резервы возвращаются best-effort.
func (o *orchestrator) CancelOrder(ctx context.Context, orderID, userID string) (domain.Order, error) {
	logger := o.logger.WithFields(log.Fields{"order_id": orderID, "user_id": userID})

	order, err := o.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	if order.UserID != userID {
		return domain.Order{}, fmt.Errorf("cancel order %s: %w", orderID, domain.ErrUnauthorized)
	}
	if !order.Status.IsCancellable() {
		return domain.Order{}, fmt.Errorf("cancel order %s in status %s: %w", orderID, order.Status, domain.ErrInvalidOrderState)
	}

	prev := order.Status
	order.Status = domain.OrderStatusCancelled
	if err := o.saveOrder(&order); err != nil {
		return domain.Order{}, fmt.Errorf("cancel order %s: %w", orderID, err)
	}

	// У payment_failed заказа резервы уже возвращены в саге; повторный release
	// отклонится учётом и просто попадёт в лог.
	if prev == domain.OrderStatusPending {
		o.releaseReservations(ctx, order, logger)
	}

	if o.metrics != nil {
		o.metrics.RecordOrderCancelled()
	}
	o.publishTelemetry(kafka.EventTypeSagaCancelled, order.ID, map[string]interface{}{
		"previous_status": string(prev),
	})
	logger.Info("order cancelled by user")

	return order, nil
}

// failOrder — общий путь провала саги: заказ помечается cancelled, набранные
// резервы освобождаются, первопричина оборачивается в OrderCreationError.
func (o *orchestrator) failOrder(ctx context.Context, order domain.Order, reserved []domain.ReservationRequest, cause error, logger *log.Entry) (domain.Order, error) {
	logger.WithError(cause).Warn("saga failed, compensating")

	order.Status = domain.OrderStatusCancelled
	if err := o.saveOrder(&order); err != nil {
		logger.WithError(err).Error("failed to mark order cancelled during compensation")
	}

	for _, req := range reserved {
		if err := o.ledger.Release(ctx, req); err != nil {
			logger.WithError(err).WithField("product_id", req.ProductID).Error("failed to release reservation during compensation")
			if o.metrics != nil {
				o.metrics.RecordCompensationFailure()
			}
		}
	}

	if o.metrics != nil {
		o.metrics.RecordSagaFailed()
	}
	o.publishTelemetry(kafka.EventTypeSagaFailed, order.ID, map[string]interface{}{
		"reason": cause.Error(),
	})

	return domain.Order{}, domain.NewOrderCreationError(cause)
}

// declinePayment — ветка отклонённого платежа: терминальный статус
// payment_failed вместо cancelled, резервы возвращаются на склад.
func (o *orchestrator) declinePayment(ctx context.Context, order domain.Order, reserved []domain.ReservationRequest, result domain.PaymentResult, logger *log.Entry) (domain.Order, error) {
	logger.WithField("payment_ref", result.PaymentRef).Warn("payment declined, compensating")

	order.Status = domain.OrderStatusPaymentFailed
	if err := o.saveOrder(&order); err != nil {
		logger.WithError(err).Error("failed to mark order payment_failed")
	}

	for _, req := range reserved {
		if err := o.ledger.Release(ctx, req); err != nil {
			logger.WithError(err).WithField("product_id", req.ProductID).Error("failed to release reservation during compensation")
			if o.metrics != nil {
				o.metrics.RecordCompensationFailure()
			}
		}
	}

	if o.metrics != nil {
		o.metrics.RecordPaymentDeclined()
		o.metrics.RecordSagaFailed()
	}
	o.publishTelemetry(kafka.EventTypeStepPaymentDeclined, order.ID, map[string]interface{}{
		"payment_ref": result.PaymentRef,
		"message":     result.Message,
	})

	return domain.Order{}, domain.NewOrderCreationError(fmt.Errorf("%s: %w", result.Message, domain.ErrPaymentDeclined))
}

// releaseReservations возвращает на склад резервы по позициям заказа.
func (o *orchestrator) releaseReservations(ctx context.Context, order domain.Order, logger *log.Entry) {
	for _, item := range order.Items {
		req := domain.ReservationRequest{ProductID: item.ProductID, Qty: item.Qty}
		if err := o.ledger.Release(ctx, req); err != nil {
			logger.WithError(err).WithField("product_id", item.ProductID).Error("failed to release reservation on cancel")
			if o.metrics != nil {
				o.metrics.RecordCompensationFailure()
			}
		}
	}
}

// saveOrder сохраняет заказ с повтором при конфликте версий: свежая версия
// перечитывается, поверх неё применяются статус и payment_ref.
func (o *orchestrator) saveOrder(order *domain.Order) error {
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		order.UpdatedAt = time.Now().UTC()
		err := o.orders.Save(*order)
		if err == nil {
			order.Version++
			return nil
		}
		if !domain.IsVersionConflict(err) {
			return err
		}

		fresh, getErr := o.orders.Get(order.ID)
		if getErr != nil {
			return getErr
		}
		status, ref := order.Status, order.PaymentRef
		*order = fresh
		order.Status = status
		order.PaymentRef = ref
	}
	return fmt.Errorf("save order %s: %w", order.ID, domain.ErrOrderVersionConflict)
}

func (o *orchestrator) publishOrderEvent(ctx context.Context, order domain.Order, userEmail string, logger *log.Entry) {
	event := domain.OrderEvent{
		OrderID:    order.ID,
		UserID:     order.UserID,
		UserEmail:  userEmail,
		TotalMinor: order.TotalMinor,
		Status:     string(order.Status),
		Timestamp:  time.Now().UTC(),
	}
	if err := o.publisher.Publish(ctx, rabbit.ExchangeOrders, rabbit.RoutingKeyOrderPlaced, event); err != nil {
		logger.WithError(err).Warn("failed to publish order event")
		return
	}
	if o.metrics != nil {
		o.metrics.RecordEventPublished()
	}
}

func (o *orchestrator) publishTelemetry(eventType kafka.EventType, orderID string, metadata map[string]interface{}) {
	if o.telemetry == nil {
		return
	}
	event := kafka.NewSagaEvent(eventType, orderID, metadata)
	if err := o.telemetry.PublishEvent(kafka.TopicSagaEvents, orderID, event); err != nil {
		o.logger.WithError(err).WithField("order_id", orderID).Warn("failed to publish saga telemetry event")
	}
}

func (o *orchestrator) recordStep(step string, start time.Time) {
	if o.metrics != nil {
		o.metrics.RecordStepDuration(step, time.Since(start))
	}
}

// buildOrder формирует снимок заказа из корзины со статусом pending.
func buildOrder(userID string, cart domain.Cart) domain.Order {
	now := time.Now().UTC()
	order := domain.Order{
		ID:         uuid.NewString(),
		UserID:     userID,
		Status:     domain.OrderStatusPending,
		Currency:   defaultCurrency,
		TotalMinor: cart.TotalMinor,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, item := range cart.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ID:            uuid.NewString(),
			ProductID:     item.ProductID,
			Name:          item.Name,
			Qty:           item.Qty,
			PriceMinor:    item.PriceMinor,
			SubtotalMinor: item.SubtotalMinor,
			CreatedAt:     now,
		})
	}
	return order
}

var _ Orchestrator = (*orchestrator)(nil)
