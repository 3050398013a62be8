package domain

import "time"

// OrderStatus описывает жизненный цикл заказа в пайплайне оформления.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан из корзины, резервирование ещё не выполнено.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaymentProcessing — резерв получен, платёж отправлен провайдеру.
	OrderStatusPaymentProcessing OrderStatus = "payment_processing"
	// OrderStatusCompleted — платёж прошёл, резерв подтверждён, корзина очищена.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusPaymentFailed — провайдер отклонил платёж, резерв возвращён на склад.
	OrderStatusPaymentFailed OrderStatus = "payment_failed"
	// OrderStatusCancelled — заказ отменён (компенсация или явная отмена клиентом).
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsTerminal сообщает, достиг ли заказ конечного состояния.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// IsCancellable сообщает, допускает ли статус явную отмену клиентом.
// Отменить можно только заказ, по которому не прошло успешное списание.
func (s OrderStatus) IsCancellable() bool {
	return s == OrderStatusPending || s == OrderStatusPaymentFailed
}

// OrderItem представляет одну позицию заказа — снимок строки корзины.
type OrderItem struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID string
	// ProductID — идентификатор товара в каталоге.
	ProductID int64
	// Name — название товара на момент оформления.
	Name string
	// Qty — количество единиц товара.
	Qty int32
	// PriceMinor — цена за единицу в минимальных денежных единицах.
	PriceMinor int64
	// SubtotalMinor — стоимость строки: qty * price.
	SubtotalMinor int64
	// CreatedAt фиксирует момент добавления позиции в заказ.
	CreatedAt time.Time
}

// Order агрегирует состояние заказа и его позиции. Заказы никогда не
// удаляются: терминальные состояния остаются доступными для аудита.
type Order struct {
	ID         string
	UserID     string
	Status     OrderStatus
	Currency   string
	TotalMinor int64
	// PaymentRef — ссылка на платёж у провайдера; заполняется при успешной оплате.
	PaymentRef string
	Items      []OrderItem
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if o.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.TotalMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	// Сверяем сумму заказа с суммой позиций.
	var calc int64
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if item.SubtotalMinor != int64(item.Qty)*item.PriceMinor {
			errs = append(errs, ErrSubtotalMismatch)
		}
		calc += item.SubtotalMinor
	}
	if calc != o.TotalMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
