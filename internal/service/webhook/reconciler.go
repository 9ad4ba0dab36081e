package webhook

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
	"github.com/vladislavdragonenkov/checkout/internal/service/payment"
)

// Result — итог обработки уже проверенного уведомления.
// Processed=false при исходах ignored, duplicate и order_missing — не
// ошибка: отправителю всё равно отвечают 200.
type Result struct {
	Outcome   domain.WebhookOutcome
	OrderID   string
	Processed bool
	Message   string
}

// Reconciler сверяет заказ с фактическим состоянием платежа в шлюзе.
//
// Webhook несёт только идентификатор платежа: состояние всегда
// перечитывается из шлюза, телу уведомления не доверяем. Применение
// перехода делегируется общему payment.Applier, поэтому гонка с
// синхронной оплатой разрешается оптимистической блокировкой заказа.
type Reconciler struct {
	gateway domain.GatewayClient
	applier *payment.Applier
	logs    domain.WebhookLogRepository
	metrics *metrics.CheckoutMetrics
	logger  *log.Entry
}

// NewReconciler конструирует Reconciler. Доступ к заказам идёт только
// через applier: свой репозиторий заказов реконсайлеру не нужен.
func NewReconciler(
	gateway domain.GatewayClient,
	applier *payment.Applier,
	logs domain.WebhookLogRepository,
	m *metrics.CheckoutMetrics,
	logger *log.Entry,
) *Reconciler {
	if logger == nil {
		logger = log.WithField("component", "webhook-reconciler")
	}
	return &Reconciler{
		gateway: gateway,
		applier: applier,
		logs:    logs,
		metrics: m,
		logger:  logger,
	}
}

// Reconcile обрабатывает проверенное уведомление шлюза.
//
// Любой исход, кроме ошибки хранилища при применении перехода, считается
// обработанной доставкой: шлюзу отвечают 200, чтобы он не ретраил вечно
// события, которые не станут лучше от повтора.
func (r *Reconciler) Reconcile(n domain.WebhookNotification) (Result, error) {
	res := r.reconcile(n)

	if r.metrics != nil {
		r.metrics.RecordWebhookOutcome(string(res.Outcome))
	}
	r.record(n, res)

	return res, nil
}

func (r *Reconciler) reconcile(n domain.WebhookNotification) Result {
	if n.Type != "payment" || n.PaymentID == "" {
		return Result{Outcome: domain.WebhookOutcomeIgnored, Message: "not a payment notification"}
	}

	// Состояние платежа перечитывается из шлюза: webhook — только сигнал.
	result, err := r.gateway.GetPayment(n.PaymentID)
	if err != nil {
		r.logger.WithError(err).WithField("payment_id", n.PaymentID).Error("gateway lookup failed")
		return Result{Outcome: domain.WebhookOutcomeFailed, Message: err.Error()}
	}

	orderID := result.ExternalReference
	if orderID == "" {
		return Result{Outcome: domain.WebhookOutcomeIgnored, Message: "payment has no external reference"}
	}

	applied, err := r.applier.Apply(orderID, result)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return Result{Outcome: domain.WebhookOutcomeOrderMissing, OrderID: orderID, Message: "order not found"}
		}
		r.logger.WithError(err).WithField("order_id", orderID).Error("apply payment status failed")
		return Result{Outcome: domain.WebhookOutcomeFailed, OrderID: orderID, Message: err.Error()}
	}

	if !applied.Applied {
		return Result{Outcome: domain.WebhookOutcomeDuplicate, OrderID: orderID, Message: "order already reconciled"}
	}

	r.logger.WithFields(log.Fields{
		"order_id":   orderID,
		"payment_id": n.PaymentID,
		"status":     string(result.Status),
		"released":   applied.StockReleased,
	}).Info("webhook reconciled")

	return Result{Outcome: domain.WebhookOutcomeProcessed, OrderID: orderID, Processed: true}
}

func (r *Reconciler) record(n domain.WebhookNotification, res Result) {
	if r.logs == nil {
		return
	}
	entry := domain.WebhookDelivery{
		EventID:    n.EventID,
		PaymentID:  n.PaymentID,
		OrderID:    res.OrderID,
		Outcome:    res.Outcome,
		ReceivedAt: time.Now().UTC(),
	}
	if res.Outcome == domain.WebhookOutcomeFailed {
		entry.Error = res.Message
	}
	if err := r.logs.Record(entry); err != nil {
		r.logger.WithError(err).WithField("event_id", n.EventID).Warn("record webhook delivery failed")
	}
}
