package domain

import "time"

// OrderSortField — поле сортировки админского списка заказов.
type OrderSortField string

const (
	OrderSortCreatedAt OrderSortField = "created_at"
	OrderSortTotal     OrderSortField = "total"
)

// OrderSort задаёт порядок выдачи страницы заказов.
// Нулевое значение означает "новые первыми".
type OrderSort struct {
	Field OrderSortField
	Asc   bool
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// ListByUser возвращает заказы пользователя с опциональным ограничением на количество.
	ListByUser(userID string, limit int) ([]Order, error)
	// List возвращает страницу всех заказов в заданном порядке.
	List(offset, limit int, sort OrderSort) ([]Order, int, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(order Order) error
}

// CheckoutStore атомарно сохраняет заказ и списывает сток под его позиции.
// Если хотя бы по одной позиции стока не хватает, ничего не сохраняется и
// возвращается *InsufficientStockError со всеми короткими позициями.
type CheckoutStore interface {
	CreateOrderReservingStock(order Order) error
}

// WebhookLogRepository фиксирует обработанные доставки webhook для операторов.
type WebhookLogRepository interface {
	Record(entry WebhookDelivery) error
	List(limit int) ([]WebhookDelivery, error)
	// DeleteOlderThan удаляет записи старше отметки; возвращает число удалённых.
	DeleteOlderThan(before time.Time, limit int) (int, error)
}
