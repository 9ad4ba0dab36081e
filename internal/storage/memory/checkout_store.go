package memory

import "github.com/vladislavdragonenkov/checkout/internal/domain"

// checkoutStore комбинирует репозиторий заказов и складскую книгу в атомарную
// операцию создания. Настоящей межхранилищной транзакции в памяти нет, поэтому
// порядок фиксирован: сначала резерв (всё или ничего), затем заказ, с
// компенсирующим возвратом стока при неудаче записи.
type checkoutStore struct {
	orders    domain.OrderRepository
	inventory *Inventory
}

// NewCheckoutStore собирает CheckoutStore поверх in-memory хранилищ.
func NewCheckoutStore(orders domain.OrderRepository, inventory *Inventory) domain.CheckoutStore {
	return &checkoutStore{orders: orders, inventory: inventory}
}

// CreateOrderReservingStock резервирует сток под все позиции и сохраняет заказ.
func (s *checkoutStore) CreateOrderReservingStock(order domain.Order) error {
	if err := s.inventory.ReserveAll(order.Items); err != nil {
		return err
	}
	if err := s.orders.Create(order); err != nil {
		_ = s.inventory.ReleaseAll(order.Items)
		return err
	}
	return nil
}

var _ domain.CheckoutStore = (*checkoutStore)(nil)
