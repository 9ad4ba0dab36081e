package domain

import "time"

// GatewayStatus — статус платежа в терминах внешнего платёжного шлюза.
type GatewayStatus string

const (
	// GatewayStatusApproved — шлюз подтвердил списание средств.
	GatewayStatusApproved GatewayStatus = "approved"
	// GatewayStatusRejected — шлюз отклонил платёж.
	GatewayStatusRejected GatewayStatus = "rejected"
	// GatewayStatusPending — платёж принят шлюзом, решение ещё не вынесено.
	GatewayStatusPending GatewayStatus = "pending"
	// GatewayStatusInProcess — платёж обрабатывается на стороне шлюза.
	GatewayStatusInProcess GatewayStatus = "in_process"
)

// GatewayRequest — запрос на создание платежа в шлюзе.
type GatewayRequest struct {
	// TransactionAmountMinor равен TotalPriceMinor заказа.
	TransactionAmountMinor int64
	// Token — одноразовый токен карты, полученный клиентом от шлюза.
	Token string
	// PaymentMethodID — код способа оплаты в терминах шлюза.
	PaymentMethodID string
	// Installments — количество платежей рассрочки.
	Installments int32
	// ExternalReference — идентификатор заказа, по которому входящее
	// уведомление сопоставляется с заказом.
	ExternalReference string
	// PayerEmail — e-mail плательщика.
	PayerEmail string
}

// GatewayCard — данные карты, которые шлюз возвращает в ответе.
type GatewayCard struct {
	Brand    string
	LastFour string
}

// GatewayResult — ответ шлюза на CreatePayment/GetPayment.
type GatewayResult struct {
	ID                     string
	Status                 GatewayStatus
	ExternalReference      string
	PaymentMethodID        string
	Card                   GatewayCard
	PayerEmail             string
	TransactionAmountMinor int64
	DateLastUpdated        time.Time
}

// ToPaymentResult переводит ответ шлюза в снимок, хранимый на заказе.
func (r GatewayResult) ToPaymentResult() *PaymentResult {
	return &PaymentResult{
		ID:           r.ID,
		Status:       r.Status,
		UpdateTime:   r.DateLastUpdated,
		PayerEmail:   r.PayerEmail,
		CardBrand:    r.Card.Brand,
		CardLastFour: r.Card.LastFour,
	}
}
