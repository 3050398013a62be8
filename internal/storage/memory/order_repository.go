package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// OrderRepository — потокобезопасное in-memory хранилище заказов с optimistic
// locking по полю Version. Используется в тестах и локальной разработке.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

// NewOrderRepository создает пустое хранилище заказов.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]domain.Order),
	}
}

// Create сохраняет новый заказ. Повторный ID — ошибка.
func (r *OrderRepository) Create(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

// Get возвращает копию заказа или ErrOrderNotFound.
func (r *OrderRepository) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, exists := r.orders[id]
	if !exists {
		return domain.Order{}, fmt.Errorf("order %s: %w", id, domain.ErrOrderNotFound)
	}
	return cloneOrder(order), nil
}

// ListByUser возвращает заказы пользователя, новые первыми. limit <= 0 — без ограничения.
func (r *OrderRepository) ListByUser(userID string, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			result = append(result, cloneOrder(order))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Save применяет обновление с проверкой версии: при несовпадении возвращается
// ErrOrderVersionConflict, при успехе версия в хранилище увеличивается.
func (r *OrderRepository) Save(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.orders[order.ID]
	if !exists {
		return fmt.Errorf("order %s: %w", order.ID, domain.ErrOrderNotFound)
	}
	if stored.Version != order.Version {
		return fmt.Errorf("order %s: expected version %d, got %d: %w",
			order.ID, stored.Version, order.Version, domain.ErrOrderVersionConflict)
	}

	updated := cloneOrder(order)
	updated.Version = order.Version + 1
	r.orders[order.ID] = updated
	return nil
}

func cloneOrder(order domain.Order) domain.Order {
	clone := order
	clone.Items = make([]domain.OrderItem, len(order.Items))
	copy(clone.Items, order.Items)
	return clone
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
