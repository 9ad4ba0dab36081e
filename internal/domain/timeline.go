package domain

import "time"

// Имена событий жизненного цикла заказа. Эти же строки уходят в outbox
// как EventType, поэтому менять их — значит ломать консьюмеров.
const (
	EventOrderCreated    = "OrderCreated"
	EventOrderShipped    = "OrderShipped"
	EventOrderDelivered  = "OrderDelivered"
	EventPaymentApproved = "PaymentApproved"
	EventPaymentRejected = "PaymentRejected"
	EventPaymentUpdated  = "PaymentUpdated"
)

// TimelineEvent — запись в истории заказа: что произошло, когда и почему.
// Reason свободного формата, для платёжных событий туда кладётся статус шлюза.
type TimelineEvent struct {
	OrderID  string
	Type     string
	Reason   string
	Occurred time.Time
}
