package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SagaMetrics содержит метрики саги оформления заказа и circuit breaker'а.
type SagaMetrics struct {
	sagaStarted     prometheus.Counter
	sagaCompleted   prometheus.Counter
	sagaFailed      prometheus.Counter
	paymentDeclined prometheus.Counter
	ordersCancelled prometheus.Counter

	sagaDuration prometheus.Histogram
	stepDuration *prometheus.HistogramVec

	// compensationFailures — release, упавшие во время компенсации; сигнал для
	// операторского алёрта вместо retry внутри саги.
	compensationFailures prometheus.Counter

	breakerState      prometheus.Gauge
	breakerRejections prometheus.Counter

	eventsPublished prometheus.Counter
}

// NewSagaMetrics регистрирует метрики в default registerer.
func NewSagaMetrics() *SagaMetrics {
	return newSagaMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newSagaMetricsWithRegisterer(registerer prometheus.Registerer) *SagaMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &SagaMetrics{
		sagaStarted: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderflow_saga_started_total",
			Help: "Total number of order creation sagas started",
		})),
		sagaCompleted: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderflow_saga_completed_total",
			Help: "Total number of sagas finished with a completed order",
		})),
		sagaFailed: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderflow_saga_failed_total",
			Help: "Total number of sagas that ended in compensation",
		})),
		paymentDeclined: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderflow_payment_declined_total",
			Help: "Total number of sagas rejected by the payment provider",
		})),
		ordersCancelled: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderflow_orders_cancelled_total",
			Help: "Total number of explicit order cancellations",
		})),
		sagaDuration: register(registerer, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "orderflow_saga_duration_seconds",
			Help:    "Duration of order creation sagas in seconds",
			Buckets: prometheus.DefBuckets,
		})),
		stepDuration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orderflow_saga_step_duration_seconds",
			Help:    "Duration of individual saga steps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"step"})),
		compensationFailures: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderflow_compensation_failures_total",
			Help: "Total number of release calls that failed during compensation",
		})),
		breakerState: register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orderflow_breaker_state",
			Help: "Circuit breaker state: 0 closed, 1 open, 2 half-open",
		})),
		breakerRejections: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderflow_breaker_rejections_total",
			Help: "Total number of calls short-circuited by the open breaker",
		})),
		eventsPublished: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderflow_events_published_total",
			Help: "Total number of domain events handed to the publisher",
		})),
	}
}

// register терпимо относится к повторной регистрации: при AlreadyRegisteredError
// возвращает существующий collector того же типа.
func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) T {
	if err := registerer.Register(collector); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
			panic(fmt.Sprintf("collector already registered with unexpected type: %v", err))
		}
		panic(fmt.Sprintf("register collector: %v", err))
	}
	return collector
}

// RecordSagaStarted увеличивает счётчик запущенных саг.
func (m *SagaMetrics) RecordSagaStarted() {
	m.sagaStarted.Inc()
}

// RecordSagaCompleted увеличивает счётчик успешно завершённых саг.
func (m *SagaMetrics) RecordSagaCompleted() {
	m.sagaCompleted.Inc()
}

// RecordSagaFailed увеличивает счётчик саг, закончившихся компенсацией.
func (m *SagaMetrics) RecordSagaFailed() {
	m.sagaFailed.Inc()
}

// RecordPaymentDeclined увеличивает счётчик отклонённых провайдером платежей.
func (m *SagaMetrics) RecordPaymentDeclined() {
	m.paymentDeclined.Inc()
}

// RecordOrderCancelled увеличивает счётчик явных отмен.
func (m *SagaMetrics) RecordOrderCancelled() {
	m.ordersCancelled.Inc()
}

// RecordSagaDuration записывает время выполнения саги.
func (m *SagaMetrics) RecordSagaDuration(duration time.Duration) {
	m.sagaDuration.Observe(duration.Seconds())
}

// RecordStepDuration записывает время выполнения шага саги.
func (m *SagaMetrics) RecordStepDuration(step string, duration time.Duration) {
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordCompensationFailure увеличивает счётчик неудачных release при компенсации.
func (m *SagaMetrics) RecordCompensationFailure() {
	m.compensationFailures.Inc()
}

// RecordBreakerState публикует числовое состояние circuit breaker'а.
func (m *SagaMetrics) RecordBreakerState(state int) {
	m.breakerState.Set(float64(state))
}

// RecordBreakerRejection увеличивает счётчик отклонённых breaker'ом вызовов.
func (m *SagaMetrics) RecordBreakerRejection() {
	m.breakerRejections.Inc()
}

// RecordEventPublished увеличивает счётчик опубликованных доменных событий.
func (m *SagaMetrics) RecordEventPublished() {
	m.eventsPublished.Inc()
}
