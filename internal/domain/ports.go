package domain

import "time"

// InventoryLedger — единственный источник истины по стоку.
// Reserve и Release атомарны в пределах одного товара: условное списание
// не проходит, если остаток ушёл бы в минус.
type InventoryLedger interface {
	// Available возвращает свободный остаток товара.
	Available(productID string) (int32, error)
	// Reserve списывает qty единиц под заказ; ErrStockInsufficient при нехватке.
	Reserve(productID string, qty int32) error
	// Release возвращает qty единиц в свободный остаток.
	Release(productID string, qty int32) error
}

// CartService предоставляет снимок корзины пользователя и её очистку.
type CartService interface {
	Get(userID string) (CartSnapshot, error)
	Clear(userID string) error
}

// AddressService отдаёт адрес доставки, если он принадлежит пользователю.
type AddressService interface {
	Get(userID, addressID string) (Address, error)
}

// GatewayClient — абстракция над платёжным провайдером.
// Сетевые ошибки и ответы 4xx/5xx поднимаются как типизированные ошибки:
// *GatewayRequestError для отклонённого запроса, ErrGatewayUnavailable для
// недоступности или отсутствия учётных данных.
type GatewayClient interface {
	CreatePayment(req GatewayRequest) (GatewayResult, error)
	GetPayment(id string) (GatewayResult, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// OutboxMessage — событие заказа, ожидающее публикации в брокер.
// Все события outbox привязаны к заказу: OrderID служит и ключом партиционирования.
type OutboxMessage struct {
	ID        string
	OrderID   string
	EventType string
	Payload   []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
