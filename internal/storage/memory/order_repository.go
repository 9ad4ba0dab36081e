package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.Order),
	}
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepositoryInMemory) Create(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderVersionConflict
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[order.ID] = cloneOrder(order)
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// ListByUser возвращает заказы пользователя, ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) ListByUser(userID string, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if order.UserID != userID {
			continue
		}
		result = append(result, cloneOrder(order))
	}

	sortOrders(result)

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// List возвращает страницу всех заказов и общее количество.
func (r *orderRepositoryInMemory) List(offset, limit int, sort domain.OrderSort) ([]domain.Order, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		all = append(all, cloneOrder(order))
	}
	sortOrdersBy(all, sort)

	total := len(all)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []domain.Order{}, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking).
func (r *orderRepositoryInMemory) Save(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}
	// Инкрементируем версию перед сохранением.
	order.Version++
	r.items[order.ID] = cloneOrder(order)
	return nil
}

func sortOrders(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

// sortOrdersBy упорядочивает заказы по заданному полю; при равенстве
// ключа порядок добивается по ID для стабильной пагинации.
func sortOrdersBy(orders []domain.Order, by domain.OrderSort) {
	sort.Slice(orders, func(i, j int) bool {
		var less, equal bool
		switch by.Field {
		case domain.OrderSortTotal:
			less = orders[i].TotalPriceMinor < orders[j].TotalPriceMinor
			equal = orders[i].TotalPriceMinor == orders[j].TotalPriceMinor
		default:
			less = orders[i].CreatedAt.Before(orders[j].CreatedAt)
			equal = orders[i].CreatedAt.Equal(orders[j].CreatedAt)
		}
		if equal {
			return orders[i].ID < orders[j].ID
		}
		if by.Asc {
			return less
		}
		return !less
	})
}

// cloneOrder копирует заказ вместе со слайсом позиций и платёжным снимком.
func cloneOrder(src domain.Order) domain.Order {
	dst := src
	dst.Items = append([]domain.OrderItem(nil), src.Items...)
	if src.PaymentResult != nil {
		pr := *src.PaymentResult
		dst.PaymentResult = &pr
	}
	if src.PaidAt != nil {
		t := *src.PaidAt
		dst.PaidAt = &t
	}
	if src.DeliveredAt != nil {
		t := *src.DeliveredAt
		dst.DeliveredAt = &t
	}
	return dst
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
