package payment

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
)

// InitiateRequest — данные клиента для синхронной оплаты заказа.
type InitiateRequest struct {
	OrderID         string
	UserID          string
	Token           string
	PaymentMethodID string
	Installments    int32
	PayerEmail      string
}

// Initiator выполняет синхронную оплату: проверяет предусловия, вызывает
// шлюз и применяет ответ через общий Applier.
type Initiator struct {
	orders  domain.OrderRepository
	gateway domain.GatewayClient
	applier *Applier
	metrics *metrics.CheckoutMetrics
	logger  *log.Entry
}

// NewInitiator конструирует Initiator.
func NewInitiator(
	orders domain.OrderRepository,
	gateway domain.GatewayClient,
	applier *Applier,
	m *metrics.CheckoutMetrics,
	logger *log.Entry,
) *Initiator {
	if logger == nil {
		logger = log.WithField("component", "payment-initiator")
	}
	return &Initiator{
		orders:  orders,
		gateway: gateway,
		applier: applier,
		metrics: m,
		logger:  logger,
	}
}

// Initiate проводит оплату заказа.
//
// Предусловия проверяются по порядку: заказ существует и принадлежит
// пользователю, заказ ещё ждёт оплату, платёж по нему ещё не создавался.
// Ошибка шлюза не меняет состояние заказа: клиент может повторить запрос.
func (i *Initiator) Initiate(req InitiateRequest) (domain.Order, error) {
	start := time.Now()
	defer func() {
		if i.metrics != nil {
			i.metrics.RecordPaymentDuration(time.Since(start))
		}
	}()

	order, err := i.orders.Get(req.OrderID)
	if err != nil {
		return domain.Order{}, err
	}
	// Чужой заказ неотличим от несуществующего: не раскрываем его наличие.
	if order.UserID != req.UserID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if !order.Reconcilable() {
		return domain.Order{}, domain.ErrOrderNotPending
	}
	if order.GatewayPaymentID != "" {
		return domain.Order{}, domain.ErrPaymentAlreadyInitiated
	}

	result, err := i.gateway.CreatePayment(domain.GatewayRequest{
		TransactionAmountMinor: order.TotalPriceMinor,
		Token:                  req.Token,
		PaymentMethodID:        req.PaymentMethodID,
		Installments:           req.Installments,
		ExternalReference:      order.ID,
		PayerEmail:             req.PayerEmail,
	})
	if err != nil {
		// Заказ остаётся pending_payment без GatewayPaymentID:
		// повторная попытка оплаты разрешена.
		i.logger.WithError(err).WithField("order_id", order.ID).Error("gateway payment failed")
		return domain.Order{}, err
	}

	applied, err := i.applier.Apply(order.ID, result)
	if err != nil {
		return domain.Order{}, err
	}

	i.logger.WithFields(log.Fields{
		"order_id":   applied.Order.ID,
		"payment_id": result.ID,
		"status":     string(result.Status),
	}).Info("payment initiated")

	return applied.Order, nil
}
