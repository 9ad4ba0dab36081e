package checkout

import (
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
)

type fixture struct {
	service   *Service
	orders    domain.OrderRepository
	inventory *memory.Inventory
	carts     *memory.CartStore
	addresses *memory.AddressBook
	outbox    interface{ AllPending() []domain.OutboxMessage }
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	orders := memory.NewOrderRepository()
	inventory := memory.NewInventory()
	carts := memory.NewCartStore()
	addresses := memory.NewAddressBook()
	outbox := memory.NewOutboxRepository()
	timeline := memory.NewTimelineRepository()

	logger := log.NewEntry(log.New())
	logger.Logger.SetLevel(log.ErrorLevel)

	service := NewService(
		orders,
		memory.NewCheckoutStore(orders, inventory),
		inventory,
		carts,
		addresses,
		outbox,
		timeline,
		logger,
	)

	return &fixture{
		service:   service,
		orders:    orders,
		inventory: inventory,
		carts:     carts,
		addresses: addresses,
		outbox:    outbox,
	}
}

func (f *fixture) seedCart(userID string, lines ...domain.CartLine) {
	f.carts.Put(userID, lines)
}

func (f *fixture) seedAddress(userID, addressID string) {
	f.addresses.Put(userID, addressID, domain.Address{
		FullName:   "Ivan Petrov",
		Line1:      "Lenina 1",
		City:       "Moscow",
		PostalCode: "101000",
		Country:    "RU",
	})
}

func TestCreateOrderPricing(t *testing.T) {
	tests := []struct {
		name         string
		lines        []domain.CartLine
		wantItems    int64
		wantShipping int64
		wantTotal    int64
	}{
		{
			name: "below free shipping threshold pays flat rate",
			lines: []domain.CartLine{
				{ProductID: "p1", Name: "mouse", Qty: 2, UnitPriceMinor: 2500},
			},
			wantItems:    5000,
			wantShipping: 1000,
			wantTotal:    6000,
		},
		{
			name: "exactly at threshold still pays flat rate",
			lines: []domain.CartLine{
				{ProductID: "p1", Name: "keyboard", Qty: 1, UnitPriceMinor: 10000},
			},
			wantItems:    10000,
			wantShipping: 1000,
			wantTotal:    11000,
		},
		{
			name: "above threshold ships free",
			lines: []domain.CartLine{
				{ProductID: "p1", Name: "mouse", Qty: 2, UnitPriceMinor: 2500},
				{ProductID: "p2", Name: "monitor", Qty: 1, UnitPriceMinor: 10000},
			},
			wantItems:    15000,
			wantShipping: 0,
			wantTotal:    15000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			for _, line := range tt.lines {
				f.inventory.SetStock(line.ProductID, line.Name, line.Qty)
			}
			f.seedCart("user-1", tt.lines...)
			f.seedAddress("user-1", "addr-1")

			order, err := f.service.CreateOrder("user-1", "addr-1", "card")
			if err != nil {
				t.Fatalf("CreateOrder: %v", err)
			}
			if order.ItemsPriceMinor != tt.wantItems {
				t.Errorf("items price = %d, want %d", order.ItemsPriceMinor, tt.wantItems)
			}
			if order.ShippingPriceMinor != tt.wantShipping {
				t.Errorf("shipping price = %d, want %d", order.ShippingPriceMinor, tt.wantShipping)
			}
			if order.TotalPriceMinor != tt.wantTotal {
				t.Errorf("total price = %d, want %d", order.TotalPriceMinor, tt.wantTotal)
			}
			if order.Status != domain.OrderStatusPendingPayment {
				t.Errorf("status = %s, want %s", order.Status, domain.OrderStatusPendingPayment)
			}
		})
	}
}

func TestCreateOrderReservesStockAndClearsCart(t *testing.T) {
	f := newFixture(t)
	f.inventory.SetStock("p1", "mouse", 13)
	f.seedCart("user-1", domain.CartLine{ProductID: "p1", Name: "mouse", Qty: 2, UnitPriceMinor: 2500})
	f.seedAddress("user-1", "addr-1")

	order, err := f.service.CreateOrder("user-1", "addr-1", "card")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	available, err := f.inventory.Available("p1")
	if err != nil {
		t.Fatalf("Available: %v", err)
	}
	if available != 11 {
		t.Errorf("available after reserve = %d, want 11", available)
	}

	cart, err := f.carts.Get("user-1")
	if err == nil && !cart.Empty() {
		t.Error("cart was not cleared after order creation")
	}

	stored, err := f.orders.Get(order.ID)
	if err != nil {
		t.Fatalf("Get stored order: %v", err)
	}
	if stored.Status != domain.OrderStatusPendingPayment {
		t.Errorf("stored status = %s, want %s", stored.Status, domain.OrderStatusPendingPayment)
	}

	pending := f.outbox.AllPending()
	if len(pending) != 1 {
		t.Fatalf("outbox pending = %d, want 1", len(pending))
	}
	if pending[0].EventType != "OrderCreated" {
		t.Errorf("event type = %s, want OrderCreated", pending[0].EventType)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	tests := []struct {
		name          string
		paymentMethod string
		prepare       func(f *fixture)
		wantErr       error
	}{
		{
			name:          "missing payment method",
			paymentMethod: "",
			prepare:       func(f *fixture) {},
			wantErr:       domain.ErrPaymentMethodRequired,
		},
		{
			name:          "cart not found",
			paymentMethod: "card",
			prepare:       func(f *fixture) {},
			wantErr:       domain.ErrCartNotFound,
		},
		{
			name:          "empty cart",
			paymentMethod: "card",
			prepare: func(f *fixture) {
				f.seedCart("user-1")
			},
			wantErr: domain.ErrCartEmpty,
		},
		{
			name:          "address not found",
			paymentMethod: "card",
			prepare: func(f *fixture) {
				f.inventory.SetStock("p1", "mouse", 5)
				f.seedCart("user-1", domain.CartLine{ProductID: "p1", Name: "mouse", Qty: 1, UnitPriceMinor: 100})
			},
			wantErr: domain.ErrAddressNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.prepare(f)

			_, err := f.service.CreateOrder("user-1", "addr-1", tt.paymentMethod)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateOrder error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateOrderReportsAllShortages(t *testing.T) {
	f := newFixture(t)
	f.inventory.SetStock("p1", "mouse", 1)
	f.inventory.SetStock("p2", "keyboard", 0)
	f.seedCart("user-1",
		domain.CartLine{ProductID: "p1", Name: "mouse", Qty: 3, UnitPriceMinor: 2500},
		domain.CartLine{ProductID: "p2", Name: "keyboard", Qty: 2, UnitPriceMinor: 4000},
		domain.CartLine{ProductID: "p3", Name: "cable", Qty: 1, UnitPriceMinor: 500},
	)
	f.seedAddress("user-1", "addr-1")

	_, err := f.service.CreateOrder("user-1", "addr-1", "card")
	stockErr, ok := domain.IsInsufficientStock(err)
	if !ok {
		t.Fatalf("CreateOrder error = %v, want InsufficientStockError", err)
	}
	if len(stockErr.Shortages) != 3 {
		t.Fatalf("shortages = %d, want 3", len(stockErr.Shortages))
	}

	// Резерв не должен был тронуть ни одну позицию.
	available, _ := f.inventory.Available("p1")
	if available != 1 {
		t.Errorf("p1 available = %d, want 1", available)
	}
}

func TestShipAndDeliver(t *testing.T) {
	f := newFixture(t)
	f.inventory.SetStock("p1", "mouse", 5)
	f.seedCart("user-1", domain.CartLine{ProductID: "p1", Name: "mouse", Qty: 1, UnitPriceMinor: 2500})
	f.seedAddress("user-1", "addr-1")

	order, err := f.service.CreateOrder("user-1", "addr-1", "card")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	// Заказ ещё не оплачен: отправлять нельзя.
	if _, err := f.service.Ship(order.ID); !errors.Is(err, domain.ErrOrderNotShippable) {
		t.Fatalf("Ship pending order error = %v, want %v", err, domain.ErrOrderNotShippable)
	}
	// Доставлять без отправки тоже нельзя.
	if _, err := f.service.Deliver(order.ID); !errors.Is(err, domain.ErrOrderNotDeliverable) {
		t.Fatalf("Deliver unshipped order error = %v, want %v", err, domain.ErrOrderNotDeliverable)
	}

	stored, _ := f.orders.Get(order.ID)
	stored.Status = domain.OrderStatusProcessing
	if err := f.orders.Save(stored); err != nil {
		t.Fatalf("Save: %v", err)
	}

	shipped, err := f.service.Ship(order.ID)
	if err != nil {
		t.Fatalf("Ship: %v", err)
	}
	if shipped.Status != domain.OrderStatusShipped {
		t.Errorf("status = %s, want %s", shipped.Status, domain.OrderStatusShipped)
	}

	delivered, err := f.service.Deliver(order.ID)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if delivered.Status != domain.OrderStatusDelivered {
		t.Errorf("status = %s, want %s", delivered.Status, domain.OrderStatusDelivered)
	}
	if delivered.DeliveredAt == nil {
		t.Error("DeliveredAt is nil after delivery")
	}

	if _, err := f.service.Deliver(order.ID); !errors.Is(err, domain.ErrOrderNotDeliverable) {
		t.Errorf("second Deliver error = %v, want %v", err, domain.ErrOrderNotDeliverable)
	}
}

func TestShipUnknownOrder(t *testing.T) {
	f := newFixture(t)
	if _, err := f.service.Ship("nope"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("Ship error = %v, want %v", err, domain.ErrOrderNotFound)
	}
}
