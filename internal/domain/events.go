package domain

import "time"

// OrderEvent — событие об оформленном заказе для downstream-потребителей
// (notification-сервис и пр.).
type OrderEvent struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	UserEmail  string    `json:"user_email"`
	TotalMinor int64     `json:"total_minor"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// PaymentEvent — событие об исходе платежа; публикуется при любом статусе.
type PaymentEvent struct {
	PaymentRef  string    `json:"payment_ref"`
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	AmountMinor int64     `json:"amount_minor"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}
