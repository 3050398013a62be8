package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

func testOrder(id, userID string, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:         id,
		UserID:     userID,
		Status:     domain.OrderStatusPending,
		Currency:   "USD",
		TotalMinor: 10000,
		Items: []domain.OrderItem{
			{ID: id + "-1", ProductID: 101, Name: "keyboard", Qty: 2, PriceMinor: 5000, SubtotalMinor: 10000},
		},
		Version:   1,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	repo := NewOrderRepository()
	order := testOrder("o-1", "u-1", time.Now())

	if err := repo.Create(order); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(order); err == nil {
		t.Fatal("expected error on duplicate create")
	}

	got, err := repo.Get("o-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != "u-1" || len(got.Items) != 1 {
		t.Fatalf("unexpected order: %+v", got)
	}

	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_SaveVersionConflict(t *testing.T) {
	repo := NewOrderRepository()
	order := testOrder("o-1", "u-1", time.Now())
	if err := repo.Create(order); err != nil {
		t.Fatalf("create: %v", err)
	}

	order.Status = domain.OrderStatusPaymentProcessing
	if err := repo.Save(order); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Повтор с устаревшей версией должен конфликтовать.
	order.Status = domain.OrderStatusCompleted
	err := repo.Save(order)
	if !domain.IsVersionConflict(err) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	order.Version = 2
	if err := repo.Save(order); err != nil {
		t.Fatalf("save with fresh version: %v", err)
	}

	got, err := repo.Get("o-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.OrderStatusCompleted || got.Version != 3 {
		t.Fatalf("unexpected stored order: status=%s version=%d", got.Status, got.Version)
	}
}

func TestOrderRepository_ListByUserNewestFirst(t *testing.T) {
	repo := NewOrderRepository()
	base := time.Now()
	for i, id := range []string{"o-1", "o-2", "o-3"} {
		if err := repo.Create(testOrder(id, "u-1", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if err := repo.Create(testOrder("o-other", "u-2", base)); err != nil {
		t.Fatalf("create: %v", err)
	}

	orders, err := repo.ListByUser("u-1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}
	if orders[0].ID != "o-3" || orders[2].ID != "o-1" {
		t.Fatalf("expected newest first, got %s..%s", orders[0].ID, orders[2].ID)
	}

	limited, err := repo.ListByUser("u-1", 2)
	if err != nil {
		t.Fatalf("list with limit: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 orders with limit, got %d", len(limited))
	}
}

// Мутация возвращённого заказа не должна протекать в хранилище.
func TestOrderRepository_GetReturnsCopy(t *testing.T) {
	repo := NewOrderRepository()
	if err := repo.Create(testOrder("o-1", "u-1", time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, _ := repo.Get("o-1")
	got.Items[0].Qty = 99

	fresh, _ := repo.Get("o-1")
	if fresh.Items[0].Qty != 2 {
		t.Fatalf("stored order mutated through returned copy: qty=%d", fresh.Items[0].Qty)
	}
}
