package saga

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
	"github.com/vladislavdragonenkov/orderflow/internal/metrics"
)

// BreakerState — состояние circuit breaker'а.
type BreakerState int

const (
	// BreakerClosed — вызовы проходят, ошибки считаются.
	BreakerClosed BreakerState = iota
	// BreakerOpen — вызовы отклоняются без выполнения.
	BreakerOpen
	// BreakerHalfOpen — пропускается один пробный вызов.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// BreakerConfig — параметры circuit breaker'а.
type BreakerConfig struct {
	// FailureThreshold — доля ошибок в окне, при которой breaker открывается.
	FailureThreshold float64
	// MinSamples — минимум наблюдений в окне до принятия решения.
	MinSamples int
	// Window — длительность скользящего окна наблюдений.
	Window time.Duration
	// Cooldown — пауза в open до пробного вызова.
	Cooldown time.Duration
}

// DefaultBreakerConfig возвращает параметры по умолчанию.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 0.5,
		MinSamples:       10,
		Window:           time.Minute,
		Cooldown:         30 * time.Second,
	}
}

type sample struct {
	at     time.Time
	failed bool
}

// CircuitBreaker защищает сагу от каскадных отказов. Бизнес-отказы
// (пустая корзина, нехватка остатка, отклонённый платёж и пр.) не считаются
// признаком нездоровья и в окно наблюдений не попадают.
type CircuitBreaker struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	state    BreakerState
	samples  []sample
	openedAt time.Time
	probing  bool

	metrics *metrics.SagaMetrics
	logger  *log.Entry

	// now подменяется в тестах.
	now func() time.Time
}

// NewCircuitBreaker создает breaker в состоянии closed.
func NewCircuitBreaker(cfg BreakerConfig, m *metrics.SagaMetrics, logger *log.Entry) *CircuitBreaker {
	if logger == nil {
		logger = log.New().WithField("component", "circuit-breaker")
	}
	if cfg.FailureThreshold <= 0 || cfg.MinSamples <= 0 || cfg.Window <= 0 || cfg.Cooldown <= 0 {
		cfg = DefaultBreakerConfig()
	}
	return &CircuitBreaker{
		cfg:     cfg,
		state:   BreakerClosed,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// State возвращает текущее состояние с учётом истёкшего cooldown.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == BreakerOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.Cooldown {
		return BreakerHalfOpen
	}
	return cb.state
}

// Do выполняет fn под защитой breaker'а. В open возвращается
// ErrServiceUnavailable без вызова fn; в half-open проходит только один
// пробный вызов за раз.
func (cb *CircuitBreaker) Do(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := fn()
	cb.observe(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerOpen:
		if cb.now().Sub(cb.openedAt) < cb.cfg.Cooldown {
			return cb.reject()
		}
		cb.transition(BreakerHalfOpen)
		cb.probing = true
		return nil
	case BreakerHalfOpen:
		if cb.probing {
			return cb.reject()
		}
		cb.probing = true
		return nil
	default:
		return nil
	}
}

func (cb *CircuitBreaker) reject() error {
	if cb.metrics != nil {
		cb.metrics.RecordBreakerRejection()
	}
	return domain.ErrServiceUnavailable
}

func (cb *CircuitBreaker) observe(err error) {
	// Бизнес-отказ означает, что сервис отработал корректно: проба в half-open
	// считается успешной, в окно closed наблюдение не попадает.
	business := err != nil && domain.IsBusinessRejection(err)
	failed := err != nil && !business

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == BreakerHalfOpen {
		cb.probing = false
		if failed {
			cb.trip()
		} else {
			cb.samples = nil
			cb.transition(BreakerClosed)
		}
		return
	}

	if business {
		return
	}

	now := cb.now()
	cb.samples = append(cb.samples, sample{at: now, failed: failed})
	cb.prune(now)

	total, failures := 0, 0
	for _, s := range cb.samples {
		total++
		if s.failed {
			failures++
		}
	}
	if total >= cb.cfg.MinSamples && float64(failures)/float64(total) >= cb.cfg.FailureThreshold {
		cb.trip()
	}
}

// trip переводит breaker в open и сбрасывает окно. Вызывается под mu.
func (cb *CircuitBreaker) trip() {
	cb.openedAt = cb.now()
	cb.samples = nil
	cb.transition(BreakerOpen)
}

// transition меняет состояние с логом и метрикой. Вызывается под mu.
func (cb *CircuitBreaker) transition(next BreakerState) {
	if cb.state == next {
		return
	}
	cb.logger.WithFields(log.Fields{
		"from": cb.state.String(),
		"to":   next.String(),
	}).Warn("circuit breaker state changed")
	cb.state = next
	if cb.metrics != nil {
		cb.metrics.RecordBreakerState(int(next))
	}
}

// prune отбрасывает наблюдения старше окна. Вызывается под mu.
func (cb *CircuitBreaker) prune(now time.Time) {
	cutoff := now.Add(-cb.cfg.Window)
	idx := 0
	for idx < len(cb.samples) && cb.samples[idx].at.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		cb.samples = cb.samples[idx:]
	}
}

// BreakerOrchestrator оборачивает оркестратор circuit breaker'ом. Через
// breaker проходит только CreateOrder: чтение и отмена не трогают платёжный
// провайдер и деградировать не должны.
type BreakerOrchestrator struct {
	inner   Orchestrator
	breaker *CircuitBreaker
}

// NewBreakerOrchestrator создает защищённый оркестратор.
func NewBreakerOrchestrator(inner Orchestrator, breaker *CircuitBreaker) *BreakerOrchestrator {
	return &BreakerOrchestrator{inner: inner, breaker: breaker}
}

// CreateOrder выполняет сагу под защитой breaker'а.
func (b *BreakerOrchestrator) CreateOrder(ctx context.Context, userID, userEmail string) (domain.Order, error) {
	var order domain.Order
	err := b.breaker.Do(func() error {
		var innerErr error
		order, innerErr = b.inner.CreateOrder(ctx, userID, userEmail)
		return innerErr
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// GetOrder проксирует чтение без участия breaker'а.
func (b *BreakerOrchestrator) GetOrder(ctx context.Context, orderID, userID string) (domain.Order, error) {
	return b.inner.GetOrder(ctx, orderID, userID)
}

// ListUserOrders проксирует чтение без участия breaker'а.
func (b *BreakerOrchestrator) ListUserOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	return b.inner.ListUserOrders(ctx, userID, limit)
}

// CancelOrder проксирует отмену без участия breaker'а.
func (b *BreakerOrchestrator) CancelOrder(ctx context.Context, orderID, userID string) (domain.Order, error) {
	return b.inner.CancelOrder(ctx, orderID, userID)
}

var _ Orchestrator = (*BreakerOrchestrator)(nil)
