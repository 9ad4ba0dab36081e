package domain

import "time"

// WebhookNotification — проверенное тело входящего уведомления шлюза.
type WebhookNotification struct {
	// EventID приходит в query string и участвует в подписи.
	EventID string
	// Type — тип уведомления; обрабатывается только "payment".
	Type string
	// Action — действие шлюза (payment.updated и т.п.), информационное.
	Action string
	// PaymentID — data.id из тела уведомления.
	PaymentID string
}

// WebhookOutcome классифицирует итог обработки доставки webhook.
type WebhookOutcome string

const (
	// WebhookOutcomeProcessed — переход применён к заказу.
	WebhookOutcomeProcessed WebhookOutcome = "processed"
	// WebhookOutcomeIgnored — уведомление не про платёж или без data.id.
	WebhookOutcomeIgnored WebhookOutcome = "ignored"
	// WebhookOutcomeDuplicate — заказ уже в терминальном статусе, no-op.
	WebhookOutcomeDuplicate WebhookOutcome = "duplicate"
	// WebhookOutcomeOrderMissing — заказ по external_reference не найден.
	WebhookOutcomeOrderMissing WebhookOutcome = "order_missing"
	// WebhookOutcomeFailed — обработка упала (например, шлюз недоступен);
	// отправителю всё равно отвечаем 200.
	WebhookOutcomeFailed WebhookOutcome = "failed"
)

// WebhookDelivery — запись журнала доставок для операторской видимости.
type WebhookDelivery struct {
	EventID    string
	PaymentID  string
	OrderID    string
	Outcome    WebhookOutcome
	Error      string
	ReceivedAt time.Time
}
