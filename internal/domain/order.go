package domain

import "time"

// OrderStatus описывает жизненный цикл заказа от создания до доставки.
type OrderStatus string

const (
	// OrderStatusPendingPayment — заказ создан, сток зарезервирован, оплата не подтверждена.
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	// OrderStatusProcessing — оплата подтверждена шлюзом, заказ готовится к отправке.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusPaid — синоним успешной оплаты для заказов, отмеченных вручную.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusFailed — шлюз отклонил оплату, резерв стока снят.
	OrderStatusFailed OrderStatus = "failed"
	// OrderStatusShipped — заказ передан в доставку (админ-операция).
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ доставлен получателю (админ-операция).
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён вне платёжного цикла.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusRefunded — по заказу выполнен возврат средств.
	OrderStatusRefunded OrderStatus = "refunded"
)

// OrderItem — неизменяемый снимок позиции каталога на момент создания заказа.
// Последующие изменения цены или названия товара не влияют на прошлые заказы.
type OrderItem struct {
	// ProductID — внешний идентификатор товара в каталоге.
	ProductID string
	// Name — название товара на момент покупки.
	Name string
	// Qty — количество единиц, всегда >= 1.
	Qty int32
	// UnitPriceMinor — цена за единицу в минимальных денежных единицах.
	UnitPriceMinor int64
	// Image — ссылка на изображение товара на момент покупки.
	Image string
}

// Address — снимок адреса доставки, скопированный из адресной книги при создании.
type Address struct {
	FullName   string
	Line1      string
	City       string
	PostalCode string
	Country    string
}

// PaymentResult хранит последнее известное состояние платежа по данным шлюза.
type PaymentResult struct {
	ID           string
	Status       GatewayStatus
	UpdateTime   time.Time
	PayerEmail   string
	CardBrand    string
	CardLastFour string
}

// Order агрегирует состояние заказа, его позиции и платёжные атрибуты.
type Order struct {
	ID     string
	UserID string
	// Items — снимок корзины; после создания не перечитывается из каталога.
	Items []OrderItem
	// ShippingAddress копируется из адресной книги и далее не меняется.
	ShippingAddress Address
	// Денежные суммы в минимальных единицах; Total = Items + Shipping всегда.
	ItemsPriceMinor    int64
	ShippingPriceMinor int64
	TotalPriceMinor    int64
	// PaymentMethod — свободная метка способа оплаты, информационная.
	PaymentMethod string
	// GatewayPaymentID устанавливается не более одного раза — при первой
	// успешной отправке платежа в шлюз. Пустое значение означает "попыток не было".
	GatewayPaymentID string
	PaymentResult    *PaymentResult
	Status           OrderStatus
	// PaidAt и DeliveredAt выставляются ровно один раз и никогда не очищаются.
	PaidAt      *time.Time
	DeliveredAt *time.Time
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if o.PaymentMethod == "" {
		errs = append(errs, ErrPaymentMethodRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.ShippingPriceMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	// Сверяем сумму позиций с ItemsPriceMinor: qty * unit price.
	var calc int64
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += int64(item.Qty) * item.UnitPriceMinor
	}
	if calc != o.ItemsPriceMinor {
		errs = append(errs, ErrAmountMismatch)
	}
	if o.TotalPriceMinor != o.ItemsPriceMinor+o.ShippingPriceMinor {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}

// Reconcilable сообщает, применима ли ещё к заказу таблица платёжных переходов.
// После терминального статуса повторные уведомления шлюза становятся no-op.
func (o *Order) Reconcilable() bool {
	return o.Status == OrderStatusPendingPayment
}
