package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора пользователя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("total_minor must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия subtotal позиции и qty*price.
	ErrSubtotalMismatch = errors.New("item subtotal does not match qty * price")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order total does not match items sum")
	// Ошибка отсутствующего идентификатора товара в запросе резервирования.
	ErrReservationProductRequired = errors.New("reservation product_id is required")
	// Ошибка некорректного количества в резерве.
	ErrReservationQtyInvalid = errors.New("reservation qty must be greater than zero")

	// ErrEmptyCart возвращается при попытке оформить заказ из пустой корзины.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInsufficientStock — на складе недостаточно свободного остатка для резерва.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidReservation — попытка снять или подтвердить больше, чем зарезервировано.
	ErrInvalidReservation = errors.New("invalid reservation")
	// ErrProductNotFound — товар отсутствует в складском учёте.
	ErrProductNotFound = errors.New("product not found in inventory")
	// ErrPaymentDeclined — платёж отклонён провайдером (бизнес-ошибка).
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrOrderCreationFailed оборачивает первопричину провала саги после компенсации.
	ErrOrderCreationFailed = errors.New("order creation failed")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrUnauthorized — вызывающий не владеет заказом.
	ErrUnauthorized = errors.New("order belongs to another user")
	// ErrInvalidOrderState — операция недопустима в текущем статусе заказа.
	ErrInvalidOrderState = errors.New("invalid order state for operation")
	// ErrServiceUnavailable — circuit breaker открыт, вызов отклонён без выполнения.
	ErrServiceUnavailable = errors.New("order service is temporarily unavailable")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
)

// OrderCreationError — ошибка провала саги. Сохраняет первопричину в цепочке
// ошибок, поэтому errors.Is находит и ErrOrderCreationFailed, и исходную ошибку.
type OrderCreationError struct {
	Cause error
}

func (e *OrderCreationError) Error() string {
	return "order creation failed: " + e.Cause.Error()
}

func (e *OrderCreationError) Unwrap() error { return e.Cause }

func (e *OrderCreationError) Is(target error) bool { return target == ErrOrderCreationFailed }

// NewOrderCreationError оборачивает первопричину провала саги.
func NewOrderCreationError(cause error) error {
	return &OrderCreationError{Cause: cause}
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// IsBusinessRejection отделяет ожидаемые отказы (ошибка клиента или решение
// бизнес-правила) от признаков нездоровья сервиса. Такие ошибки не должны
// учитываться circuit breaker'ом при подсчёте failure rate.
func IsBusinessRejection(err error) bool {
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInvalidReservation) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrPaymentDeclined) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidOrderState)
}
