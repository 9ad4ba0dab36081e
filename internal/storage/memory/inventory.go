package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Inventory — in-memory реализация InventoryLedger.
// Один мьютекс на всю книгу: в тестах и локальной разработке этого достаточно,
// а ReserveAll получает нужную атомарность "все строки или ни одной".
type Inventory struct {
	mu    sync.Mutex
	stock map[string]int32
	names map[string]string
}

// NewInventory создаёт пустую складскую книгу.
func NewInventory() *Inventory {
	return &Inventory{
		stock: make(map[string]int32),
		names: make(map[string]string),
	}
}

// SetStock задаёт остаток товара (для сидинга в тестах и локальном запуске).
func (i *Inventory) SetStock(productID, name string, qty int32) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.stock[productID] = qty
	i.names[productID] = name
}

// Available возвращает свободный остаток товара.
func (i *Inventory) Available(productID string) (int32, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	qty, ok := i.stock[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	return qty, nil
}

// Reserve выполняет условное списание: остаток не может уйти в минус.
func (i *Inventory) Reserve(productID string, qty int32) error {
	if qty <= 0 {
		return domain.ErrItemQtyInvalid
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	return i.reserveLocked(productID, qty)
}

// Release возвращает qty единиц в свободный остаток.
func (i *Inventory) Release(productID string, qty int32) error {
	if qty <= 0 {
		return domain.ErrItemQtyInvalid
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.stock[productID]; !ok {
		return domain.ErrProductNotFound
	}
	i.stock[productID] += qty
	return nil
}

// ReserveAll списывает сток под все позиции заказа под одним замком.
// При нехватке хотя бы по одной позиции ничего не списывается и возвращается
// *InsufficientStockError со всеми короткими строками.
func (i *Inventory) ReserveAll(items []domain.OrderItem) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	var shortages []domain.StockShortage
	for _, item := range items {
		available := i.stock[item.ProductID]
		if available < item.Qty {
			shortages = append(shortages, domain.StockShortage{
				ProductID: item.ProductID,
				Name:      i.displayName(item),
				Available: available,
				Requested: item.Qty,
			})
		}
	}
	if len(shortages) > 0 {
		return &domain.InsufficientStockError{Shortages: shortages}
	}

	for _, item := range items {
		if err := i.reserveLocked(item.ProductID, item.Qty); err != nil {
			// Недостижимо после проверки выше, но откатываем уже списанное.
			for _, done := range items {
				if done.ProductID == item.ProductID {
					break
				}
				i.stock[done.ProductID] += done.Qty
			}
			return err
		}
	}
	return nil
}

// ReleaseAll возвращает сток по всем позициям заказа.
func (i *Inventory) ReleaseAll(items []domain.OrderItem) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, item := range items {
		i.stock[item.ProductID] += item.Qty
	}
	return nil
}

func (i *Inventory) reserveLocked(productID string, qty int32) error {
	available, ok := i.stock[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if available < qty {
		return domain.ErrStockInsufficient
	}
	i.stock[productID] = available - qty
	return nil
}

func (i *Inventory) displayName(item domain.OrderItem) string {
	if name, ok := i.names[item.ProductID]; ok && name != "" {
		return name
	}
	return item.Name
}

var _ domain.InventoryLedger = (*Inventory)(nil)
