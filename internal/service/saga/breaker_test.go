package saga

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 0.5,
		MinSamples:       4,
		Window:           time.Minute,
		Cooldown:         10 * time.Second,
	}
}

// newTestBreaker возвращает breaker с управляемыми часами.
func newTestBreaker(cfg BreakerConfig) (*CircuitBreaker, *time.Time) {
	cb := NewCircuitBreaker(cfg, nil, nil)
	current := time.Now()
	cb.now = func() time.Time { return current }
	return cb, &current
}

func failingCall() error { return errors.New("upstream down") }

func TestBreaker_OpensOnFailureRatio(t *testing.T) {
	cb, _ := newTestBreaker(testBreakerConfig())

	for i := 0; i < 4; i++ {
		if err := cb.Do(failingCall); err == nil {
			t.Fatal("expected error from fn")
		}
	}
	if cb.State() != BreakerOpen {
		t.Fatalf("expected open after failure burst, got %s", cb.State())
	}

	called := false
	err := cb.Do(func() error { called = true; return nil })
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if called {
		t.Fatal("open breaker must not invoke fn")
	}
}

func TestBreaker_StaysClosedBelowMinSamples(t *testing.T) {
	cb, _ := newTestBreaker(testBreakerConfig())

	for i := 0; i < 3; i++ {
		_ = cb.Do(failingCall)
	}
	if cb.State() != BreakerClosed {
		t.Fatalf("expected closed below min samples, got %s", cb.State())
	}
}

// Бизнес-отказы не должны открывать breaker, даже обёрнутые в ошибку саги.
func TestBreaker_BusinessRejectionsNotCounted(t *testing.T) {
	cb, _ := newTestBreaker(testBreakerConfig())

	businessErr := domain.NewOrderCreationError(
		fmt.Errorf("reserve product 101: %w", domain.ErrInsufficientStock))

	for i := 0; i < 20; i++ {
		if err := cb.Do(func() error { return businessErr }); err == nil {
			t.Fatal("expected business error from fn")
		}
	}
	if cb.State() != BreakerClosed {
		t.Fatalf("expected closed after business rejections, got %s", cb.State())
	}
}

func TestBreaker_MixedRatioBelowThreshold(t *testing.T) {
	cb, _ := newTestBreaker(testBreakerConfig())

	// 2 ошибки из 6 наблюдений: 0.33 < 0.5.
	for i := 0; i < 4; i++ {
		_ = cb.Do(func() error { return nil })
	}
	for i := 0; i < 2; i++ {
		_ = cb.Do(failingCall)
	}
	if cb.State() != BreakerClosed {
		t.Fatalf("expected closed at ratio below threshold, got %s", cb.State())
	}
}

func TestBreaker_HalfOpenProbeSuccessCloses(t *testing.T) {
	cb, clock := newTestBreaker(testBreakerConfig())

	for i := 0; i < 4; i++ {
		_ = cb.Do(failingCall)
	}
	if cb.State() != BreakerOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	*clock = clock.Add(11 * time.Second)
	if cb.State() != BreakerHalfOpen {
		t.Fatalf("expected half-open after cooldown, got %s", cb.State())
	}

	if err := cb.Do(func() error { return nil }); err != nil {
		t.Fatalf("probe call: %v", err)
	}
	if cb.State() != BreakerClosed {
		t.Fatalf("expected closed after successful probe, got %s", cb.State())
	}
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(testBreakerConfig())

	for i := 0; i < 4; i++ {
		_ = cb.Do(failingCall)
	}
	*clock = clock.Add(11 * time.Second)

	if err := cb.Do(failingCall); err == nil {
		t.Fatal("expected error from probe")
	}
	if cb.State() != BreakerOpen {
		t.Fatalf("expected open after failed probe, got %s", cb.State())
	}

	// Новый cooldown отсчитывается от провалившейся пробы.
	if err := cb.Do(func() error { return nil }); !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("expected rejection during fresh cooldown, got %v", err)
	}
}

// Проба с бизнес-отказом означает живой сервис: breaker закрывается.
func TestBreaker_HalfOpenBusinessProbeCloses(t *testing.T) {
	cb, clock := newTestBreaker(testBreakerConfig())

	for i := 0; i < 4; i++ {
		_ = cb.Do(failingCall)
	}
	*clock = clock.Add(11 * time.Second)

	if err := cb.Do(func() error { return domain.ErrPaymentDeclined }); err == nil {
		t.Fatal("expected business error from probe")
	}
	if cb.State() != BreakerClosed {
		t.Fatalf("expected closed after business probe, got %s", cb.State())
	}
}

func TestBreaker_HalfOpenSingleProbe(t *testing.T) {
	cb, clock := newTestBreaker(testBreakerConfig())

	for i := 0; i < 4; i++ {
		_ = cb.Do(failingCall)
	}
	*clock = clock.Add(11 * time.Second)

	probeStarted := make(chan struct{})
	probeFinish := make(chan struct{})
	probeDone := make(chan error, 1)

	go func() {
		probeDone <- cb.Do(func() error {
			close(probeStarted)
			<-probeFinish
			return nil
		})
	}()

	<-probeStarted
	// Пока идёт проба, второй вызов отклоняется.
	if err := cb.Do(func() error { return nil }); !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("expected rejection while probe in flight, got %v", err)
	}

	close(probeFinish)
	if err := <-probeDone; err != nil {
		t.Fatalf("probe: %v", err)
	}
	if cb.State() != BreakerClosed {
		t.Fatalf("expected closed after probe, got %s", cb.State())
	}
}

func TestBreaker_WindowPrunesOldSamples(t *testing.T) {
	cb, clock := newTestBreaker(testBreakerConfig())

	// Три старых ошибки выпадают из окна до четвёртой.
	for i := 0; i < 3; i++ {
		_ = cb.Do(failingCall)
	}
	*clock = clock.Add(2 * time.Minute)
	_ = cb.Do(failingCall)

	if cb.State() != BreakerClosed {
		t.Fatalf("expected closed after window pruning, got %s", cb.State())
	}
}

type stubOrchestrator struct {
	createErr   error
	createCalls int
}

func (s *stubOrchestrator) CreateOrder(context.Context, string, string) (domain.Order, error) {
	s.createCalls++
	return domain.Order{}, s.createErr
}

func (s *stubOrchestrator) GetOrder(context.Context, string, string) (domain.Order, error) {
	return domain.Order{ID: "o-1"}, nil
}

func (s *stubOrchestrator) ListUserOrders(context.Context, string, int) ([]domain.Order, error) {
	return nil, nil
}

func (s *stubOrchestrator) CancelOrder(context.Context, string, string) (domain.Order, error) {
	return domain.Order{ID: "o-1", Status: domain.OrderStatusCancelled}, nil
}

func TestBreakerOrchestrator_ShortCircuitsCreateOnly(t *testing.T) {
	inner := &stubOrchestrator{createErr: errors.New("db down")}
	cb, _ := newTestBreaker(testBreakerConfig())
	orch := NewBreakerOrchestrator(inner, cb)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := orch.CreateOrder(ctx, "u-1", "e"); err == nil {
			t.Fatal("expected error")
		}
	}

	calls := inner.createCalls
	if _, err := orch.CreateOrder(ctx, "u-1", "e"); !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if inner.createCalls != calls {
		t.Fatal("open breaker must not reach the orchestrator")
	}

	// Чтение и отмена проходят мимо breaker'а.
	if _, err := orch.GetOrder(ctx, "o-1", "u-1"); err != nil {
		t.Fatalf("get order while open: %v", err)
	}
	if _, err := orch.CancelOrder(ctx, "o-1", "u-1"); err != nil {
		t.Fatalf("cancel order while open: %v", err)
	}
}
