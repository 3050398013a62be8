package payment

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// MockGateway — конфигурируемая заглушка PaymentGateway для тестов.
type MockGateway struct {
	mu sync.Mutex

	Result domain.PaymentResult
	Err    error

	Calls int
}

// NewMockGateway возвращает mock с успешным платежом по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Result: domain.PaymentResult{
			PaymentRef: "PAY-test",
			Status:     domain.PaymentOutcomeSuccess,
			Message:    "payment processed successfully",
		},
	}
}

// ProcessPayment возвращает заранее настроенный результат и считает вызовы.
func (m *MockGateway) ProcessPayment(context.Context, string, string, int64) (domain.PaymentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	return m.Result, m.Err
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
