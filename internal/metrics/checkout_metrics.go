package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики оформления заказов и платёжной сверки.
type CheckoutMetrics struct {
	// Счётчики операций
	ordersCreated    prometheus.Counter
	ordersRejected   prometheus.Counter
	paymentsByStatus *prometheus.CounterVec
	webhooksByResult *prometheus.CounterVec
	stockReleases    prometheus.Counter

	// Гистограммы времени выполнения
	checkoutDuration prometheus.Histogram
	paymentDuration  prometheus.Histogram

	// Счётчики событий timeline/outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter
}

// NewCheckoutMetrics создаёт метрики на default registerer.
func NewCheckoutMetrics() *CheckoutMetrics {
	return newCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_orders_created_total",
			Help: "Total number of orders created with stock reserved",
		}),
		ordersRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_orders_rejected_total",
			Help: "Total number of order creations rejected (validation, stock, address)",
		}),
		paymentsByStatus: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "checkout_payments_total",
			Help: "Total number of gateway payment results grouped by status",
		}, []string{"status"}),
		webhooksByResult: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "checkout_webhooks_total",
			Help: "Total number of processed webhook deliveries grouped by outcome",
		}, []string{"outcome"}),
		stockReleases: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_stock_releases_total",
			Help: "Total number of stock reservations released after payment rejection",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "checkout_order_creation_duration_seconds",
			Help:    "Duration of the order creation transaction in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		paymentDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "checkout_payment_duration_seconds",
			Help:    "Duration of the synchronous payment flow in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *CheckoutMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordOrderRejected увеличивает счётчик отклонённых оформлений.
func (m *CheckoutMetrics) RecordOrderRejected() {
	m.ordersRejected.Inc()
}

// RecordPaymentResult увеличивает счётчик платежей по статусу шлюза.
func (m *CheckoutMetrics) RecordPaymentResult(status string) {
	m.paymentsByStatus.WithLabelValues(status).Inc()
}

// RecordWebhookOutcome увеличивает счётчик доставок webhook по итогу.
func (m *CheckoutMetrics) RecordWebhookOutcome(outcome string) {
	m.webhooksByResult.WithLabelValues(outcome).Inc()
}

// RecordStockRelease увеличивает счётчик снятых резервов стока.
func (m *CheckoutMetrics) RecordStockRelease() {
	m.stockReleases.Inc()
}

// RecordCheckoutDuration записывает время транзакции создания заказа.
func (m *CheckoutMetrics) RecordCheckoutDuration(duration time.Duration) {
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordPaymentDuration записывает время синхронной оплаты.
func (m *CheckoutMetrics) RecordPaymentDuration(duration time.Duration) {
	m.paymentDuration.Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *CheckoutMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *CheckoutMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
