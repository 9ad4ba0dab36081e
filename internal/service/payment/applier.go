package payment

import (
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
)

// ApplyConfig задаёт параметры повторов при конфликте версий.
type ApplyConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultApplyConfig возвращает конфигурацию повторов по умолчанию.
func DefaultApplyConfig() ApplyConfig {
	return ApplyConfig{
		MaxAttempts:  5,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     200 * time.Millisecond,
	}
}

// Applier применяет статус платёжного шлюза к заказу и доводит изменение до
// хранилища. Это единственная точка, через которую меняется платёжное
// состояние заказа: ей пользуются и синхронная оплата, и webhook.
//
// Конфликт версий не ошибка, а проигранная гонка: заказ перечитывается и
// таблица переходов применяется заново. Победитель гонки один, поэтому
// снятие резерва стока выполняется не более одного раза.
type Applier struct {
	orders   domain.OrderRepository
	ledger   domain.InventoryLedger
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
	config   ApplyConfig
	metrics  *metrics.CheckoutMetrics
	logger   *log.Entry
}

// NewApplier конструирует Applier.
func NewApplier(
	orders domain.OrderRepository,
	ledger domain.InventoryLedger,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	config ApplyConfig,
	m *metrics.CheckoutMetrics,
	logger *log.Entry,
) *Applier {
	if logger == nil {
		logger = log.WithField("component", "payment-applier")
	}
	if config.MaxAttempts <= 0 {
		config = DefaultApplyConfig()
	}
	return &Applier{
		orders:   orders,
		ledger:   ledger,
		outbox:   outbox,
		timeline: timeline,
		config:   config,
		metrics:  m,
		logger:   logger,
	}
}

// ApplyResult — итог применения статуса шлюза.
type ApplyResult struct {
	Order domain.Order
	// Applied — заказ был изменён и сохранён этим вызовом.
	Applied bool
	// StockReleased — резерв стока снят этим вызовом.
	StockReleased bool
}

// Apply применяет результат шлюза к заказу orderID и сохраняет заказ.
//
// При конфликте версий заказ перечитывается: если конкурент уже вывел его
// из pending_payment, вызов завершается как no-op. Снятие резерва стока
// выполняется только после успешного сохранения перехода rejected.
func (a *Applier) Apply(orderID string, result domain.GatewayResult) (ApplyResult, error) {
	delay := a.config.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= a.config.MaxAttempts; attempt++ {
		order, err := a.orders.Get(orderID)
		if err != nil {
			return ApplyResult{}, err
		}

		transition := domain.ApplyGatewayStatus(&order, result, time.Now().UTC())
		if !transition.Applied {
			// Терминальный или промежуточный чужой статус: повторная
			// доставка того же события, менять нечего.
			return ApplyResult{Order: order, Applied: false}, nil
		}

		if err := a.orders.Save(order); err != nil {
			if domain.IsVersionConflict(err) {
				lastErr = err
				a.logger.WithFields(log.Fields{
					"order_id": orderID,
					"attempt":  attempt,
				}).Warn("version conflict applying payment status, retrying")
				time.Sleep(delay)
				delay *= 2
				if delay > a.config.MaxDelay {
					delay = a.config.MaxDelay
				}
				continue
			}
			return ApplyResult{}, err
		}
		order.Version++

		applied := ApplyResult{Order: order, Applied: true}
		if transition.ReleaseStock {
			applied.StockReleased = a.releaseStock(order)
		}
		a.afterApply(&order, result, transition)
		return applied, nil
	}

	return ApplyResult{}, lastErr
}

// releaseStock возвращает позиции заказа в свободный остаток.
// Ошибка по отдельной позиции логируется, остальные позиции всё равно
// возвращаются: частичный возврат лучше зависшего резерва.
func (a *Applier) releaseStock(order domain.Order) bool {
	released := false
	for _, item := range order.Items {
		if err := a.ledger.Release(item.ProductID, item.Qty); err != nil {
			a.logger.WithError(err).WithFields(log.Fields{
				"order_id":   order.ID,
				"product_id": item.ProductID,
			}).Error("stock release failed")
			continue
		}
		released = true
	}
	if released && a.metrics != nil {
		a.metrics.RecordStockRelease()
	}
	return released
}

func (a *Applier) afterApply(order *domain.Order, result domain.GatewayResult, transition domain.Transition) {
	if a.metrics != nil {
		a.metrics.RecordPaymentResult(string(result.Status))
	}

	eventType := domain.EventPaymentUpdated
	if transition.StatusChanged {
		switch order.Status {
		case domain.OrderStatusProcessing:
			eventType = domain.EventPaymentApproved
		case domain.OrderStatusFailed:
			eventType = domain.EventPaymentRejected
		}
	}

	payload, err := json.Marshal(map[string]interface{}{
		"order_id":   order.ID,
		"payment_id": result.ID,
		"status":     string(result.Status),
		"ts":         order.UpdatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		a.logger.WithError(err).WithField("order_id", order.ID).Error("marshal payment event failed")
		return
	}

	msg := domain.OutboxMessage{
		OrderID:   order.ID,
		EventType: eventType,
		Payload:   payload,
	}
	if _, err := a.outbox.Enqueue(msg); err != nil {
		a.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("enqueue payment event failed")
	} else if a.metrics != nil {
		a.metrics.RecordOutboxEvent()
	}

	if a.timeline != nil {
		event := domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     eventType,
			Reason:   string(result.Status),
			Occurred: order.UpdatedAt,
		}
		if err := a.timeline.Append(event); err != nil {
			a.logger.WithError(err).WithField("order_id", order.ID).Warn("append timeline event failed")
		} else if a.metrics != nil {
			a.metrics.RecordTimelineEvent()
		}
	}
}
