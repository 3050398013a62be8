package domain

import "context"

// InventoryLedger описывает складской учёт с двухфазным резервированием.
// Все мутирующие операции линеаризуемы в рамках одного product_id: два
// конкурентных Reserve по одному товару никогда не пройдут оба при
// недостаточном остатке.
type InventoryLedger interface {
	// Reserve удерживает qty единиц: available -= qty, reserved += qty.
	Reserve(ctx context.Context, req ReservationRequest) error
	// Release снимает резерв обратно в available (компенсация).
	Release(ctx context.Context, req ReservationRequest) error
	// Confirm списывает резерв окончательно: reserved -= qty, товар продан.
	Confirm(ctx context.Context, req ReservationRequest) error
	// AddStock создаёт запись при отсутствии и пополняет available. Административная операция.
	AddStock(ctx context.Context, productID int64, qty int32) (InventoryRecord, error)
	// IsInStock отвечает, хватает ли свободного остатка под qty единиц.
	IsInStock(ctx context.Context, productID int64, qty int32) (bool, error)
	// Get возвращает запись учёта или ErrProductNotFound.
	Get(ctx context.Context, productID int64) (InventoryRecord, error)
}

// CartStore описывает взаимодействие с внешним хранилищем корзин.
type CartStore interface {
	// GetCart возвращает текущий снимок корзины; пустая корзина — не ошибка.
	GetCart(ctx context.Context, userID string) (Cart, error)
	// ClearCart удаляет корзину после успешного оформления заказа.
	ClearCart(ctx context.Context, userID string) error
}

// PaymentOutcome — статус платежа в ответе провайдера.
type PaymentOutcome string

const (
	// PaymentOutcomeSuccess — средства списаны.
	PaymentOutcomeSuccess PaymentOutcome = "SUCCESS"
	// PaymentOutcomeFailed — провайдер отклонил платёж.
	PaymentOutcomeFailed PaymentOutcome = "FAILED"
)

// PaymentResult — ответ платёжного провайдера на попытку списания.
type PaymentResult struct {
	// PaymentRef — идентификатор платежа у провайдера.
	PaymentRef string
	Status     PaymentOutcome
	// Message — человекочитаемое описание исхода.
	Message string
}

// PaymentGateway описывает взаимодействие с платёжным провайдером.
// Ошибка означает сбой транспорта; отклонённый платёж приходит как
// PaymentOutcomeFailed без ошибки.
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, orderID, userID string, amountMinor int64) (PaymentResult, error)
}

// EventPublisher публикует доменные события fire-and-forget (at-most-once,
// подтверждение доставки не требуется).
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, event interface{}) error
}
