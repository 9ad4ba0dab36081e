package checkout

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
)

// ShippingPolicy задаёт плоский тариф доставки: бесплатно выше порога,
// иначе фиксированная надбавка.
type ShippingPolicy struct {
	FreeThresholdMinor int64
	FlatRateMinor      int64
}

// DefaultShippingPolicy — доставка бесплатна при сумме позиций свыше 100.00.
func DefaultShippingPolicy() ShippingPolicy {
	return ShippingPolicy{
		FreeThresholdMinor: 10000,
		FlatRateMinor:      1000,
	}
}

// PriceFor возвращает стоимость доставки для суммы позиций.
func (p ShippingPolicy) PriceFor(itemsPriceMinor int64) int64 {
	if itemsPriceMinor > p.FreeThresholdMinor {
		return 0
	}
	return p.FlatRateMinor
}

// Service реализует транзакцию создания заказа и админские переходы
// shipped/delivered. Снимок корзины и адрес читаются из внешних систем,
// заказ и резерв стока пишутся атомарно через CheckoutStore.
type Service struct {
	orders    domain.OrderRepository
	store     domain.CheckoutStore
	ledger    domain.InventoryLedger
	carts     domain.CartService
	addresses domain.AddressService
	outbox    domain.OutboxRepository
	timeline  domain.TimelineRepository
	shipping  ShippingPolicy
	metrics   *metrics.CheckoutMetrics
	logger    *log.Entry
}

// Option настраивает Service.
type Option func(*Service)

// WithShippingPolicy переопределяет тариф доставки.
func WithShippingPolicy(policy ShippingPolicy) Option {
	return func(s *Service) {
		s.shipping = policy
	}
}

// WithMetrics подключает метрики (в тестах обычно не нужны).
func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService конструирует сервис оформления заказа.
func NewService(
	orders domain.OrderRepository,
	store domain.CheckoutStore,
	ledger domain.InventoryLedger,
	carts domain.CartService,
	addresses domain.AddressService,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
	options ...Option,
) *Service {
	if logger == nil {
		logger = log.WithField("component", "checkout")
	}
	s := &Service{
		orders:    orders,
		store:     store,
		ledger:    ledger,
		carts:     carts,
		addresses: addresses,
		outbox:    outbox,
		timeline:  timeline,
		shipping:  DefaultShippingPolicy(),
		logger:    logger,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// CreateOrder оформляет заказ из корзины пользователя.
//
// Порядок шагов фиксирован: снимок корзины → адрес → проверка стока по всем
// строкам → цены → атомарная запись заказа с резервом → очистка корзины.
// До записи заказа никакое частичное состояние не видно снаружи.
func (s *Service) CreateOrder(userID, addressID, paymentMethod string) (domain.Order, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordCheckoutDuration(time.Since(start))
		}
	}()

	if paymentMethod == "" {
		return domain.Order{}, s.reject(domain.ErrPaymentMethodRequired)
	}

	cart, err := s.carts.Get(userID)
	if err != nil {
		return domain.Order{}, s.reject(err)
	}
	if cart.Empty() {
		return domain.Order{}, s.reject(domain.ErrCartEmpty)
	}

	address, err := s.addresses.Get(userID, addressID)
	if err != nil {
		return domain.Order{}, s.reject(err)
	}

	// Собираем все короткие позиции, не останавливаясь на первой:
	// клиент должен увидеть полный список, а не чинить корзину по одной строке.
	if err := s.checkStock(cart.Lines); err != nil {
		return domain.Order{}, s.reject(err)
	}

	now := time.Now().UTC()
	items := make([]domain.OrderItem, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		items = append(items, domain.OrderItem{
			ProductID:      line.ProductID,
			Name:           line.Name,
			Qty:            line.Qty,
			UnitPriceMinor: line.UnitPriceMinor,
			Image:          line.Image,
		})
	}

	itemsPrice := cart.ItemsPriceMinor()
	shippingPrice := s.shipping.PriceFor(itemsPrice)

	order := domain.Order{
		ID:                 uuid.NewString(),
		UserID:             userID,
		Items:              items,
		ShippingAddress:    address,
		ItemsPriceMinor:    itemsPrice,
		ShippingPriceMinor: shippingPrice,
		TotalPriceMinor:    itemsPrice + shippingPrice,
		PaymentMethod:      paymentMethod,
		Status:             domain.OrderStatusPendingPayment,
		Version:            0,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, s.reject(errs[0])
	}

	// Заказ и резерв стока пишутся как одна единица: при гонке за остатки
	// store сам вернёт InsufficientStockError с полным списком нехваток.
	if err := s.store.CreateOrderReservingStock(order); err != nil {
		return domain.Order{}, s.reject(err)
	}

	// Очистка корзины идёт после фиксации заказа. Провал очистки не
	// откатывает заказ: корзина в другом хранилище и транзакцией не
	// покрывается, поэтому ошибка только логируется.
	if err := s.carts.Clear(userID); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("cart clear failed after order creation")
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}
	s.emitEvent(&order, domain.EventOrderCreated, map[string]interface{}{
		"user_id":     order.UserID,
		"total_minor": order.TotalPriceMinor,
		"ts":          now.Format(time.RFC3339Nano),
	})
	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"user_id":     order.UserID,
		"total_minor": order.TotalPriceMinor,
	}).Info("order created, stock reserved")

	return order, nil
}

// checkStock проверяет доступность каждой строки и агрегирует все нехватки.
func (s *Service) checkStock(lines []domain.CartLine) error {
	var shortages []domain.StockShortage
	for _, line := range lines {
		available, err := s.ledger.Available(line.ProductID)
		if err != nil {
			available = 0
		}
		if available < line.Qty {
			shortages = append(shortages, domain.StockShortage{
				ProductID: line.ProductID,
				Name:      line.Name,
				Available: available,
				Requested: line.Qty,
			})
		}
	}
	if len(shortages) > 0 {
		return &domain.InsufficientStockError{Shortages: shortages}
	}
	return nil
}

// Ship переводит оплаченный заказ в shipped (админ-операция).
func (s *Service) Ship(orderID string) (domain.Order, error) {
	return s.adminTransition(orderID, domain.EventOrderShipped, func(order *domain.Order, now time.Time) error {
		if order.Status != domain.OrderStatusProcessing && order.Status != domain.OrderStatusPaid {
			return domain.ErrOrderNotShippable
		}
		order.Status = domain.OrderStatusShipped
		return nil
	})
}

// Deliver переводит отправленный заказ в delivered и один раз ставит DeliveredAt.
func (s *Service) Deliver(orderID string) (domain.Order, error) {
	return s.adminTransition(orderID, domain.EventOrderDelivered, func(order *domain.Order, now time.Time) error {
		if order.Status != domain.OrderStatusShipped {
			return domain.ErrOrderNotDeliverable
		}
		order.Status = domain.OrderStatusDelivered
		if order.DeliveredAt == nil {
			deliveredAt := now
			order.DeliveredAt = &deliveredAt
		}
		return nil
	})
}

func (s *Service) adminTransition(orderID, eventType string, apply func(*domain.Order, time.Time) error) (domain.Order, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}

	now := time.Now().UTC()
	if err := apply(&order, now); err != nil {
		return domain.Order{}, err
	}
	order.UpdatedAt = now

	if err := s.orders.Save(order); err != nil {
		return domain.Order{}, err
	}
	order.Version++

	s.emitEvent(&order, eventType, map[string]interface{}{
		"status": string(order.Status),
		"ts":     now.Format(time.RFC3339Nano),
	})
	return order, nil
}

func (s *Service) reject(err error) error {
	if s.metrics != nil {
		s.metrics.RecordOrderRejected()
	}
	return err
}

func (s *Service) emitEvent(order *domain.Order, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = order.ID
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		OrderID:   order.ID,
		EventType: eventType,
		Payload:   data,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("enqueue event failed")
	} else if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}

	if s.timeline != nil {
		event := domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     eventType,
			Occurred: order.UpdatedAt,
		}
		if err := s.timeline.Append(event); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Warn("append timeline event failed")
		} else if s.metrics != nil {
			s.metrics.RecordTimelineEvent()
		}
	}
}
