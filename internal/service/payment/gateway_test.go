package payment

import (
	"context"
	"strings"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []domain.PaymentEvent
	keys   []string
}

func (c *capturingPublisher) Publish(_ context.Context, _, routingKey string, event interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pe, ok := event.(domain.PaymentEvent); ok {
		c.events = append(c.events, pe)
	}
	c.keys = append(c.keys, routingKey)
	return nil
}

func TestGateway_ForcedSuccess(t *testing.T) {
	pub := &capturingPublisher{}
	gw := NewGateway(1.0, 0, pub, log.New().WithField("test", "success"))

	result, err := gw.ProcessPayment(context.Background(), "order-1", "user-1", 25000)
	if err != nil {
		t.Fatalf("process payment: %v", err)
	}

	if result.Status != domain.PaymentOutcomeSuccess {
		t.Fatalf("expected SUCCESS with rate 1.0, got %s", result.Status)
	}
	if !strings.HasPrefix(result.PaymentRef, "PAY-") {
		t.Fatalf("unexpected payment ref format: %s", result.PaymentRef)
	}
	if result.Message == "" {
		t.Fatal("expected human-readable message")
	}
}

func TestGateway_ForcedFailure(t *testing.T) {
	pub := &capturingPublisher{}
	gw := NewGateway(0, 0, pub, log.New().WithField("test", "failure"))

	result, err := gw.ProcessPayment(context.Background(), "order-1", "user-1", 25000)
	if err != nil {
		t.Fatalf("declined payment must not be a transport error, got %v", err)
	}
	if result.Status != domain.PaymentOutcomeFailed {
		t.Fatalf("expected FAILED with rate 0, got %s", result.Status)
	}
}

// Событие об исходе публикуется всегда, независимо от статуса платежа.
func TestGateway_AlwaysPublishesEvent(t *testing.T) {
	pub := &capturingPublisher{}
	gw := NewGateway(1.0, 0, pub, log.New().WithField("test", "events"))

	if _, err := gw.ProcessPayment(context.Background(), "order-1", "user-1", 100); err != nil {
		t.Fatalf("process payment: %v", err)
	}

	gwFail := NewGateway(0, 0, pub, log.New().WithField("test", "events"))
	if _, err := gwFail.ProcessPayment(context.Background(), "order-2", "user-1", 100); err != nil {
		t.Fatalf("process payment: %v", err)
	}

	if len(pub.events) != 2 {
		t.Fatalf("expected 2 payment events, got %d", len(pub.events))
	}
	if pub.events[0].Status != string(domain.PaymentOutcomeSuccess) {
		t.Fatalf("first event must be SUCCESS, got %s", pub.events[0].Status)
	}
	if pub.events[1].Status != string(domain.PaymentOutcomeFailed) {
		t.Fatalf("second event must be FAILED, got %s", pub.events[1].Status)
	}
	for _, key := range pub.keys {
		if key != "payment.processed" {
			t.Fatalf("unexpected routing key %s", key)
		}
	}
}

func TestNewGateway_ClampsRate(t *testing.T) {
	gw := NewGateway(42, 0, nil, nil)
	if gw.successRate != 1 {
		t.Fatalf("expected rate clamped to 1, got %f", gw.successRate)
	}

	gw = NewGateway(-1, 0, nil, nil)
	if gw.successRate != 0 {
		t.Fatalf("expected rate clamped to 0, got %f", gw.successRate)
	}
}
