package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

func integrationOrder(userID string) domain.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	orderID := uuid.NewString()
	return domain.Order{
		ID:         orderID,
		UserID:     userID,
		Status:     domain.OrderStatusPending,
		Currency:   "USD",
		TotalMinor: 13000,
		Items: []domain.OrderItem{
			{ID: uuid.NewString(), ProductID: 101, Name: "keyboard", Qty: 2, PriceMinor: 5000, SubtotalMinor: 10000, CreatedAt: now},
			{ID: uuid.NewString(), ProductID: 102, Name: "mouse", Qty: 1, PriceMinor: 3000, SubtotalMinor: 3000, CreatedAt: now},
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderRepository_Integration_RoundTrip(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	order := integrationOrder("u-int-1")
	if err := repo.Create(order); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != order.UserID || got.TotalMinor != order.TotalMinor || len(got.Items) != 2 {
		t.Fatalf("unexpected order: %+v", got)
	}

	if _, err := repo.Get(uuid.NewString()); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_Integration_SaveOptimisticLock(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	order := integrationOrder("u-int-2")
	if err := repo.Create(order); err != nil {
		t.Fatalf("create: %v", err)
	}

	order.Status = domain.OrderStatusPaymentProcessing
	order.UpdatedAt = time.Now().UTC()
	if err := repo.Save(order); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Сохранение с устаревшей версией должно конфликтовать.
	order.Status = domain.OrderStatusCompleted
	if err := repo.Save(order); !domain.IsVersionConflict(err) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	order.Version = 2
	order.PaymentRef = "PAY-int"
	if err := repo.Save(order); err != nil {
		t.Fatalf("save with fresh version: %v", err)
	}

	got, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.OrderStatusCompleted || got.Version != 3 || got.PaymentRef != "PAY-int" {
		t.Fatalf("unexpected stored order: status=%s version=%d ref=%s", got.Status, got.Version, got.PaymentRef)
	}
}

func TestOrderRepository_Integration_ListByUser(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	for i := 0; i < 3; i++ {
		order := integrationOrder("u-int-3")
		order.CreatedAt = order.CreatedAt.Add(time.Duration(i) * time.Second)
		if err := repo.Create(order); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	orders, err := repo.ListByUser("u-int-3", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}
	for i := 1; i < len(orders); i++ {
		if orders[i].CreatedAt.After(orders[i-1].CreatedAt) {
			t.Fatal("expected newest-first ordering")
		}
	}

	limited, err := repo.ListByUser("u-int-3", 2)
	if err != nil {
		t.Fatalf("list with limit: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(limited))
	}
}
