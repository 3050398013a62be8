package domain

import (
	"errors"
	"testing"
	"time"
)

func validOrder() Order {
	now := time.Now().UTC()
	return Order{
		ID:         "order-1",
		UserID:     "user-1",
		Status:     OrderStatusPending,
		Currency:   "USD",
		TotalMinor: 25000,
		Items: []OrderItem{
			{ID: "item-1", ProductID: 101, Name: "keyboard", Qty: 2, PriceMinor: 10000, SubtotalMinor: 20000, CreatedAt: now},
			{ID: "item-2", ProductID: 102, Name: "mouse", Qty: 1, PriceMinor: 5000, SubtotalMinor: 5000, CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrder_ValidateInvariants_OK(t *testing.T) {
	order := validOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrder_ValidateInvariants_TotalMismatch(t *testing.T) {
	order := validOrder()
	order.TotalMinor = 100

	errs := order.ValidateInvariants()
	if len(errs) == 0 {
		t.Fatal("expected validation errors")
	}

	found := false
	for _, err := range errs {
		if errors.Is(err, ErrAmountMismatch) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ErrAmountMismatch, got %v", errs)
	}
}

func TestOrder_ValidateInvariants_SubtotalMismatch(t *testing.T) {
	order := validOrder()
	order.Items[0].SubtotalMinor = 1
	order.TotalMinor = 5001

	errs := order.ValidateInvariants()
	found := false
	for _, err := range errs {
		if errors.Is(err, ErrSubtotalMismatch) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ErrSubtotalMismatch, got %v", errs)
	}
}

func TestOrder_ValidateInvariants_MissingFields(t *testing.T) {
	order := Order{}

	errs := order.ValidateInvariants()
	want := []error{ErrUserRequired, ErrCurrencyRequired, ErrItemsRequired}
	for _, sentinel := range want {
		found := false
		for _, err := range errs {
			if errors.Is(err, sentinel) {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %v in validation errors, got %v", sentinel, errs)
		}
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	cases := map[OrderStatus]bool{
		OrderStatusPending:           false,
		OrderStatusPaymentProcessing: false,
		OrderStatusPaymentFailed:     false,
		OrderStatusCompleted:         true,
		OrderStatusCancelled:         true,
	}

	for status, want := range cases {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s: IsTerminal() = %v, want %v", status, got, want)
		}
	}
}

func TestOrderStatus_IsCancellable(t *testing.T) {
	cases := map[OrderStatus]bool{
		OrderStatusPending:           true,
		OrderStatusPaymentFailed:     true,
		OrderStatusPaymentProcessing: false,
		OrderStatusCompleted:         false,
		OrderStatusCancelled:         false,
	}

	for status, want := range cases {
		if got := status.IsCancellable(); got != want {
			t.Errorf("%s: IsCancellable() = %v, want %v", status, got, want)
		}
	}
}

func TestReservationRequest_Validate(t *testing.T) {
	if errs := (ReservationRequest{ProductID: 101, Qty: 2}).Validate(); len(errs) != 0 {
		t.Fatalf("expected valid request, got %v", errs)
	}

	errs := (ReservationRequest{ProductID: 0, Qty: 0}).Validate()
	if len(errs) != 2 {
		t.Fatalf("expected 2 validation errors, got %v", errs)
	}
}
