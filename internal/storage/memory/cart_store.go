package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// DefaultCartTTL — время жизни корзины до автоматического истечения.
const DefaultCartTTL = 24 * time.Hour

type cartEntry struct {
	cart      domain.Cart
	expiresAt time.Time
}

// CartStore — in-memory хранилище корзин с TTL. Истёкшая корзина
// эквивалентна пустой.
type CartStore struct {
	mu    sync.RWMutex
	carts map[string]cartEntry
	ttl   time.Duration

	// now подменяется в тестах.
	now func() time.Time
}

// NewCartStore создает хранилище корзин с указанным TTL.
func NewCartStore(ttl time.Duration) *CartStore {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	return &CartStore{
		carts: make(map[string]cartEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// SaveCart сохраняет снимок корзины и обновляет срок её жизни.
func (s *CartStore) SaveCart(ctx context.Context, cart domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.carts[cart.UserID] = cartEntry{
		cart:      cloneCart(cart),
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

// GetCart возвращает корзину пользователя; отсутствующая или истёкшая
// корзина приходит пустой без ошибки.
func (s *CartStore) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.carts[userID]
	if !exists || s.now().After(entry.expiresAt) {
		return domain.Cart{UserID: userID}, nil
	}
	return cloneCart(entry.cart), nil
}

// ClearCart удаляет корзину пользователя.
func (s *CartStore) ClearCart(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, userID)
	return nil
}

func cloneCart(cart domain.Cart) domain.Cart {
	clone := cart
	clone.Items = make([]domain.CartItem, len(cart.Items))
	copy(clone.Items, cart.Items)
	return clone
}

var _ domain.CartStore = (*CartStore)(nil)
