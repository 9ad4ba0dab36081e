package payment

import (
	"errors"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/gateway"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
)

type fixture struct {
	initiator *Initiator
	applier   *Applier
	orders    domain.OrderRepository
	inventory *memory.Inventory
	gateway   *gateway.MockClient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	orders := memory.NewOrderRepository()
	inventory := memory.NewInventory()
	outbox := memory.NewOutboxRepository()
	timeline := memory.NewTimelineRepository()
	client := gateway.NewMockClient()

	logger := log.NewEntry(log.New())
	logger.Logger.SetLevel(log.ErrorLevel)

	applier := NewApplier(orders, inventory, outbox, timeline, DefaultApplyConfig(), nil, logger)

	return &fixture{
		initiator: NewInitiator(orders, client, applier, nil, logger),
		applier:   applier,
		orders:    orders,
		inventory: inventory,
		gateway:   client,
	}
}

func (f *fixture) seedOrder(t *testing.T, mut func(*domain.Order)) domain.Order {
	t.Helper()

	now := time.Now().UTC()
	order := domain.Order{
		ID:     "order-1",
		UserID: "user-1",
		Items: []domain.OrderItem{
			{ProductID: "p1", Name: "mouse", Qty: 2, UnitPriceMinor: 2500},
		},
		ItemsPriceMinor: 5000,
		// Доставка платная: сумма позиций ниже порога.
		ShippingPriceMinor: 1000,
		TotalPriceMinor:    6000,
		PaymentMethod:      "card",
		Status:             domain.OrderStatusPendingPayment,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if mut != nil {
		mut(&order)
	}
	if err := f.orders.Create(order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func (f *fixture) request() InitiateRequest {
	return InitiateRequest{
		OrderID:         "order-1",
		UserID:          "user-1",
		Token:           "tok-abc",
		PaymentMethodID: "visa",
		Installments:    1,
		PayerEmail:      "payer@example.com",
	}
}

func TestInitiateApproved(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, nil)

	order, err := f.initiator.Initiate(f.request())
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if order.Status != domain.OrderStatusProcessing {
		t.Errorf("status = %s, want %s", order.Status, domain.OrderStatusProcessing)
	}
	if order.PaidAt == nil {
		t.Error("PaidAt not set after approval")
	}
	if order.GatewayPaymentID == "" {
		t.Error("GatewayPaymentID not set after approval")
	}
	if order.PaymentResult == nil || order.PaymentResult.Status != domain.GatewayStatusApproved {
		t.Error("PaymentResult not stored")
	}

	stored, err := f.orders.Get(order.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != domain.OrderStatusProcessing {
		t.Errorf("stored status = %s, want %s", stored.Status, domain.OrderStatusProcessing)
	}
}

func TestInitiateRejectedReleasesStock(t *testing.T) {
	f := newFixture(t)
	f.inventory.SetStock("p1", "mouse", 0) // резерв уже списан при создании заказа
	f.seedOrder(t, nil)
	f.gateway.CreateStatus = domain.GatewayStatusRejected

	order, err := f.initiator.Initiate(f.request())
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if order.Status != domain.OrderStatusFailed {
		t.Errorf("status = %s, want %s", order.Status, domain.OrderStatusFailed)
	}
	if order.PaidAt != nil {
		t.Error("PaidAt set for rejected payment")
	}

	available, err := f.inventory.Available("p1")
	if err != nil {
		t.Fatalf("Available: %v", err)
	}
	if available != 2 {
		t.Errorf("available after release = %d, want 2", available)
	}
}

func TestInitiatePendingKeepsOrderPending(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, nil)
	f.gateway.CreateStatus = domain.GatewayStatusPending

	order, err := f.initiator.Initiate(f.request())
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if order.Status != domain.OrderStatusPendingPayment {
		t.Errorf("status = %s, want %s", order.Status, domain.OrderStatusPendingPayment)
	}
	if order.GatewayPaymentID == "" {
		t.Error("GatewayPaymentID should be stored for pending payment")
	}
	if order.PaymentResult == nil || order.PaymentResult.Status != domain.GatewayStatusPending {
		t.Error("pending payment fields not stored")
	}

	// Повторная синхронная оплата больше не разрешена: платёж уже создан.
	if _, err := f.initiator.Initiate(f.request()); !errors.Is(err, domain.ErrPaymentAlreadyInitiated) {
		t.Errorf("second Initiate error = %v, want %v", err, domain.ErrPaymentAlreadyInitiated)
	}
}

func TestInitiatePreconditions(t *testing.T) {
	tests := []struct {
		name    string
		seed    func(f *fixture)
		mutReq  func(req *InitiateRequest)
		wantErr error
	}{
		{
			name:    "order not found",
			seed:    func(f *fixture) {},
			wantErr: domain.ErrOrderNotFound,
		},
		{
			name: "foreign order looks missing",
			seed: func(f *fixture) {
				f.seedOrder(t, func(o *domain.Order) { o.UserID = "someone-else" })
			},
			wantErr: domain.ErrOrderNotFound,
		},
		{
			name: "order already processing",
			seed: func(f *fixture) {
				f.seedOrder(t, func(o *domain.Order) { o.Status = domain.OrderStatusProcessing })
			},
			wantErr: domain.ErrOrderNotPending,
		},
		{
			name: "order already failed",
			seed: func(f *fixture) {
				f.seedOrder(t, func(o *domain.Order) { o.Status = domain.OrderStatusFailed })
			},
			wantErr: domain.ErrOrderNotPending,
		},
		{
			name: "payment already initiated",
			seed: func(f *fixture) {
				f.seedOrder(t, func(o *domain.Order) { o.GatewayPaymentID = "pay-1" })
			},
			wantErr: domain.ErrPaymentAlreadyInitiated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.seed(f)

			req := f.request()
			if tt.mutReq != nil {
				tt.mutReq(&req)
			}

			_, err := f.initiator.Initiate(req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Initiate error = %v, want %v", err, tt.wantErr)
			}
			if f.gateway.CreateCalls != 0 {
				t.Errorf("gateway called %d times for failed precondition", f.gateway.CreateCalls)
			}
		})
	}
}

func TestInitiateGatewayFailureLeavesOrderUntouched(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, nil)
	f.gateway.CreateErr = domain.ErrGatewayUnavailable

	_, err := f.initiator.Initiate(f.request())
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("Initiate error = %v, want %v", err, domain.ErrGatewayUnavailable)
	}

	stored, err := f.orders.Get("order-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != domain.OrderStatusPendingPayment {
		t.Errorf("status = %s, want %s", stored.Status, domain.OrderStatusPendingPayment)
	}
	if stored.GatewayPaymentID != "" {
		t.Error("GatewayPaymentID set despite gateway failure")
	}

	// После сбоя шлюза оплату можно повторить.
	f.gateway.CreateErr = nil
	order, err := f.initiator.Initiate(f.request())
	if err != nil {
		t.Fatalf("retry Initiate: %v", err)
	}
	if order.Status != domain.OrderStatusProcessing {
		t.Errorf("retry status = %s, want %s", order.Status, domain.OrderStatusProcessing)
	}
}
