package domain_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// helper для создания базового заказа с двумя позициями.
func makeOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:     "order-1",
		UserID: "user-1",
		Items: []domain.OrderItem{
			{ProductID: "prod-1", Name: "Keyboard", Qty: 2, UnitPriceMinor: 2500},
			{ProductID: "prod-2", Name: "Monitor", Qty: 1, UnitPriceMinor: 10000},
		},
		ShippingAddress: domain.Address{
			FullName:   "Ivan Petrov",
			Line1:      "Lenina 1",
			City:       "Moscow",
			PostalCode: "101000",
			Country:    "RU",
		},
		ItemsPriceMinor:    15000,
		ShippingPriceMinor: 0,
		TotalPriceMinor:    15000,
		PaymentMethod:      "card",
		Status:             domain.OrderStatusPendingPayment,
		Version:            0,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
		want error
	}{
		{
			name: "no user",
			mut: func(o *domain.Order) {
				o.UserID = ""
			},
			want: domain.ErrUserRequired,
		},
		{
			name: "no payment method",
			mut: func(o *domain.Order) {
				o.PaymentMethod = ""
			},
			want: domain.ErrPaymentMethodRequired,
		},
		{
			name: "no items",
			mut: func(o *domain.Order) {
				o.Items = nil
				o.ItemsPriceMinor = 0
				o.TotalPriceMinor = 0
			},
			want: domain.ErrItemsRequired,
		},
		{
			name: "zero qty",
			mut: func(o *domain.Order) {
				o.Items[0].Qty = 0
			},
			want: domain.ErrItemQtyInvalid,
		},
		{
			name: "negative price",
			mut: func(o *domain.Order) {
				o.Items[0].UnitPriceMinor = -1
			},
			want: domain.ErrItemPriceInvalid,
		},
		{
			name: "items sum mismatch",
			mut: func(o *domain.Order) {
				o.ItemsPriceMinor = 14999
				o.TotalPriceMinor = 14999
			},
			want: domain.ErrAmountMismatch,
		},
		{
			name: "total mismatch",
			mut: func(o *domain.Order) {
				o.TotalPriceMinor = 20000
			},
			want: domain.ErrTotalMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			tc.mut(&order)

			errs := order.ValidateInvariants()
			if len(errs) == 0 {
				t.Fatalf("expected validation errors, got none")
			}
			found := false
			for _, err := range errs {
				if err == tc.want {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %v among %v", tc.want, errs)
			}
		})
	}
}

func TestOrderReconcilable(t *testing.T) {
	statuses := map[domain.OrderStatus]bool{
		domain.OrderStatusPendingPayment: true,
		domain.OrderStatusProcessing:     false,
		domain.OrderStatusPaid:           false,
		domain.OrderStatusFailed:         false,
		domain.OrderStatusShipped:        false,
		domain.OrderStatusDelivered:      false,
		domain.OrderStatusCancelled:      false,
		domain.OrderStatusRefunded:       false,
	}

	for status, want := range statuses {
		order := makeOrder()
		order.Status = status
		if got := order.Reconcilable(); got != want {
			t.Fatalf("Reconcilable() for %s = %v, want %v", status, got, want)
		}
	}
}
