package inventory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// MockLedger — конфигурируемая заглушка InventoryLedger для тестов.
type MockLedger struct {
	mu sync.Mutex

	ReserveErr error
	ReleaseErr error
	ConfirmErr error

	ReserveCalls []domain.ReservationRequest
	ReleaseCalls []domain.ReservationRequest
	ConfirmCalls []domain.ReservationRequest

	// FailReserveAfter задаёт, начиная с какого по счёту вызова Reserve
	// возвращать ReserveErr (0 — с первого).
	FailReserveAfter int
}

// NewMockLedger возвращает mock с успешным сценарием по умолчанию.
func NewMockLedger() *MockLedger {
	return &MockLedger{}
}

// Reserve считает вызовы и возвращает настроенную ошибку.
func (m *MockLedger) Reserve(_ context.Context, req domain.ReservationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReserveCalls = append(m.ReserveCalls, req)
	if m.ReserveErr != nil && len(m.ReserveCalls) > m.FailReserveAfter {
		return m.ReserveErr
	}
	return nil
}

// Release считает вызовы и возвращает настроенную ошибку.
func (m *MockLedger) Release(_ context.Context, req domain.ReservationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReleaseCalls = append(m.ReleaseCalls, req)
	return m.ReleaseErr
}

// Confirm считает вызовы и возвращает настроенную ошибку.
func (m *MockLedger) Confirm(_ context.Context, req domain.ReservationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConfirmCalls = append(m.ConfirmCalls, req)
	return m.ConfirmErr
}

// AddStock в mock'е не ведёт учёта и всегда успешен.
func (m *MockLedger) AddStock(_ context.Context, productID int64, qty int32) (domain.InventoryRecord, error) {
	return domain.InventoryRecord{ProductID: productID, Available: qty}, nil
}

// IsInStock всегда отвечает положительно.
func (m *MockLedger) IsInStock(context.Context, int64, int32) (bool, error) {
	return true, nil
}

// Get возвращает пустую запись.
func (m *MockLedger) Get(_ context.Context, productID int64) (domain.InventoryRecord, error) {
	return domain.InventoryRecord{ProductID: productID}, nil
}

var _ domain.InventoryLedger = (*MockLedger)(nil)
