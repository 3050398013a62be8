package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

func TestInventoryRepository_Integration_ReserveReleaseConfirm(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ledger := NewInventoryRepository(store)
	ctx := context.Background()

	if _, err := ledger.AddStock(ctx, 201, 10); err != nil {
		t.Fatalf("add stock: %v", err)
	}

	if err := ledger.Reserve(ctx, domain.ReservationRequest{ProductID: 201, Qty: 4}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	rec, err := ledger.Get(ctx, 201)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Available != 6 || rec.Reserved != 4 {
		t.Fatalf("after reserve: available=%d reserved=%d", rec.Available, rec.Reserved)
	}

	if err := ledger.Release(ctx, domain.ReservationRequest{ProductID: 201, Qty: 1}); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := ledger.Confirm(ctx, domain.ReservationRequest{ProductID: 201, Qty: 3}); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	rec, err = ledger.Get(ctx, 201)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Available != 7 || rec.Reserved != 0 {
		t.Fatalf("after release+confirm: available=%d reserved=%d", rec.Available, rec.Reserved)
	}
}

func TestInventoryRepository_Integration_Guards(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ledger := NewInventoryRepository(store)
	ctx := context.Background()

	if _, err := ledger.AddStock(ctx, 202, 2); err != nil {
		t.Fatalf("add stock: %v", err)
	}

	if err := ledger.Reserve(ctx, domain.ReservationRequest{ProductID: 202, Qty: 5}); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if err := ledger.Release(ctx, domain.ReservationRequest{ProductID: 202, Qty: 1}); !errors.Is(err, domain.ErrInvalidReservation) {
		t.Fatalf("expected ErrInvalidReservation, got %v", err)
	}
	if err := ledger.Reserve(ctx, domain.ReservationRequest{ProductID: 999, Qty: 1}); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	inStock, err := ledger.IsInStock(ctx, 999, 1)
	if err != nil {
		t.Fatalf("is in stock: %v", err)
	}
	if inStock {
		t.Fatal("unknown product must not be in stock")
	}
}

// Конкурентные резервы не должны продать больше, чем есть на складе.
func TestInventoryRepository_Integration_NoOverselling(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ledger := NewInventoryRepository(store)
	ctx := context.Background()

	const stock = 20
	const workers = 50

	if _, err := ledger.AddStock(ctx, 203, stock); err != nil {
		t.Fatalf("add stock: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- ledger.Reserve(ctx, domain.ReservationRequest{ProductID: 203, Qty: 1})
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, domain.ErrInsufficientStock) {
			t.Fatalf("unexpected reserve error: %v", err)
		}
	}
	if succeeded != stock {
		t.Fatalf("expected exactly %d successful reserves, got %d", stock, succeeded)
	}

	rec, err := ledger.Get(ctx, 203)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Available != 0 || rec.Reserved != stock {
		t.Fatalf("after concurrent reserves: available=%d reserved=%d", rec.Available, rec.Reserved)
	}
}
