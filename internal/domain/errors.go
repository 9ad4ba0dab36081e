package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Ошибка отсутствующего идентификатора пользователя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствующей метки способа оплаты.
	ErrPaymentMethodRequired = errors.New("payment_method is required")
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы.
	ErrAmountNegative = errors.New("amount must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия ItemsPrice и сумм позиций.
	ErrAmountMismatch = errors.New("items price does not match items sum")
	// Ошибка нарушения равенства total = items + shipping.
	ErrTotalMismatch = errors.New("total price does not equal items price plus shipping")

	// ErrCartNotFound возвращается, если у пользователя нет корзины.
	ErrCartNotFound = errors.New("cart not found")
	// ErrCartEmpty возвращается при попытке оформить пустую корзину.
	ErrCartEmpty = errors.New("cart is empty")
	// ErrAddressNotFound — адрес не существует или принадлежит другому пользователю.
	ErrAddressNotFound = errors.New("shipping address not found")

	// ErrOrderNotFound возвращается, если заказ не найден или принадлежит другому пользователю.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNotPending — заказ уже вышел из статуса ожидания оплаты.
	ErrOrderNotPending = errors.New("order is no longer pending payment")
	// ErrPaymentAlreadyInitiated — по заказу уже есть платёжная попытка.
	ErrPaymentAlreadyInitiated = errors.New("payment already started for this order")
	// ErrOrderNotShippable — заказ нельзя отправить из текущего статуса.
	ErrOrderNotShippable = errors.New("order is not ready to be shipped")
	// ErrOrderNotDeliverable — заказ нельзя пометить доставленным из текущего статуса.
	ErrOrderNotDeliverable = errors.New("order has not been shipped")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")

	// ErrProductNotFound — товар отсутствует в складской книге.
	ErrProductNotFound = errors.New("product not found")
	// ErrStockInsufficient — условное списание стока не прошло (ушло бы в минус).
	ErrStockInsufficient = errors.New("insufficient stock")

	// ErrGatewayUnavailable — нет учётных данных шлюза или он недоступен.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrMissingSignature — входящий webhook пришёл без подписи.
	ErrMissingSignature = errors.New("missing webhook signature")
	// ErrInvalidSignature — подпись webhook не сошлась с вычисленной.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// StockShortage описывает одну позицию корзины, по которой не хватило стока.
type StockShortage struct {
	ProductID string
	Name      string
	Available int32
	Requested int32
}

// InsufficientStockError перечисляет все позиции с нехваткой стока.
// Создание заказа проверяет каждую строку корзины и возвращает полный список,
// а не первую попавшуюся нехватку.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s (available: %d, requested: %d)", s.Name, s.Available, s.Requested))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

// IsInsufficientStock извлекает InsufficientStockError из цепочки ошибок.
func IsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var target *InsufficientStockError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// GatewayRequestError означает, что шлюз отверг сам запрос (например,
// некорректный токен карты). Состояние заказа и стока при этом не меняется.
type GatewayRequestError struct {
	StatusCode int
	Message    string
}

func (e *GatewayRequestError) Error() string {
	return fmt.Sprintf("gateway rejected request: %s (http %d)", e.Message, e.StatusCode)
}

// IsGatewayRequestError извлекает GatewayRequestError из цепочки ошибок.
func IsGatewayRequestError(err error) (*GatewayRequestError, bool) {
	var target *GatewayRequestError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
