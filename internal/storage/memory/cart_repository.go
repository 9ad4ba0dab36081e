package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// CartStore — in-memory реализация CartService для тестов и локального запуска.
// Корзина принадлежит внешней системе; здесь хранится лишь то, что нужно
// оформлению заказа: строки и операция очистки.
type CartStore struct {
	mu    sync.RWMutex
	carts map[string][]domain.CartLine
}

// NewCartStore создаёт пустое хранилище корзин.
func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string][]domain.CartLine)}
}

// Put задаёт содержимое корзины пользователя (сидинг).
func (c *CartStore) Put(userID string, lines []domain.CartLine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.carts[userID] = append([]domain.CartLine(nil), lines...)
}

// Get возвращает снимок корзины или ErrCartNotFound.
func (c *CartStore) Get(userID string) (domain.CartSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lines, ok := c.carts[userID]
	if !ok {
		return domain.CartSnapshot{}, domain.ErrCartNotFound
	}
	return domain.CartSnapshot{
		UserID: userID,
		Lines:  append([]domain.CartLine(nil), lines...),
	}, nil
}

// Clear удаляет корзину пользователя.
func (c *CartStore) Clear(userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, userID)
	return nil
}

var _ domain.CartService = (*CartStore)(nil)
