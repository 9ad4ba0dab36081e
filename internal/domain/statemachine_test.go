package domain_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

func makeGatewayResult(status domain.GatewayStatus) domain.GatewayResult {
	return domain.GatewayResult{
		ID:                "pay-1",
		Status:            status,
		ExternalReference: "order-1",
		PaymentMethodID:   "visa",
		Card:              domain.GatewayCard{Brand: "visa", LastFour: "4242"},
		PayerEmail:        "payer@example.com",
		DateLastUpdated:   time.Now().UTC(),
	}
}

func TestApplyGatewayStatus_Approved(t *testing.T) {
	order := makeOrder()
	now := time.Now().UTC()

	tr := domain.ApplyGatewayStatus(&order, makeGatewayResult(domain.GatewayStatusApproved), now)

	if !tr.Applied || !tr.StatusChanged || tr.ReleaseStock {
		t.Fatalf("unexpected transition: %+v", tr)
	}
	if order.Status != domain.OrderStatusProcessing {
		t.Fatalf("status = %s, want processing", order.Status)
	}
	if order.PaidAt == nil || !order.PaidAt.Equal(now) {
		t.Fatalf("paidAt not set to now: %v", order.PaidAt)
	}
	if order.GatewayPaymentID != "pay-1" {
		t.Fatalf("gatewayPaymentID = %q", order.GatewayPaymentID)
	}
	if order.PaymentResult == nil || order.PaymentResult.Status != domain.GatewayStatusApproved {
		t.Fatalf("payment result not stored: %+v", order.PaymentResult)
	}
}

func TestApplyGatewayStatus_Rejected(t *testing.T) {
	order := makeOrder()

	tr := domain.ApplyGatewayStatus(&order, makeGatewayResult(domain.GatewayStatusRejected), time.Now().UTC())

	if !tr.Applied || !tr.StatusChanged || !tr.ReleaseStock {
		t.Fatalf("unexpected transition: %+v", tr)
	}
	if order.Status != domain.OrderStatusFailed {
		t.Fatalf("status = %s, want failed", order.Status)
	}
	if order.PaidAt != nil {
		t.Fatalf("paidAt must stay unset on rejection")
	}
}

// Промежуточные статусы шлюза не двигают статус заказа, но сохраняют
// платёжные поля — поздний webhook завершит обработку.
func TestApplyGatewayStatus_Intermediate(t *testing.T) {
	for _, status := range []domain.GatewayStatus{
		domain.GatewayStatusPending,
		domain.GatewayStatusInProcess,
		domain.GatewayStatus("authorized"),
	} {
		order := makeOrder()

		tr := domain.ApplyGatewayStatus(&order, makeGatewayResult(status), time.Now().UTC())

		if !tr.Applied || tr.StatusChanged || tr.ReleaseStock {
			t.Fatalf("status %s: unexpected transition %+v", status, tr)
		}
		if order.Status != domain.OrderStatusPendingPayment {
			t.Fatalf("status %s: order status moved to %s", status, order.Status)
		}
		if order.GatewayPaymentID != "pay-1" || order.PaymentResult == nil {
			t.Fatalf("status %s: payment fields not stored", status)
		}
	}
}

// Повторное применение к заказу в терминальном статусе — no-op: это и есть
// гарантия идемпотентности при дублированной доставке webhook.
func TestApplyGatewayStatus_TerminalNoop(t *testing.T) {
	for _, status := range []domain.OrderStatus{
		domain.OrderStatusProcessing,
		domain.OrderStatusPaid,
		domain.OrderStatusFailed,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
		domain.OrderStatusCancelled,
		domain.OrderStatusRefunded,
	} {
		order := makeOrder()
		order.Status = status
		before := order

		tr := domain.ApplyGatewayStatus(&order, makeGatewayResult(domain.GatewayStatusRejected), time.Now().UTC())

		if tr.Applied || tr.StatusChanged || tr.ReleaseStock {
			t.Fatalf("status %s: expected no-op, got %+v", status, tr)
		}
		if order.Status != before.Status || order.PaymentResult != before.PaymentResult {
			t.Fatalf("status %s: order mutated on no-op", status)
		}
	}
}

// Двойное применение approved не перезаписывает PaidAt.
func TestApplyGatewayStatus_PaidAtSetOnce(t *testing.T) {
	order := makeOrder()
	first := time.Now().UTC()

	domain.ApplyGatewayStatus(&order, makeGatewayResult(domain.GatewayStatusApproved), first)
	domain.ApplyGatewayStatus(&order, makeGatewayResult(domain.GatewayStatusApproved), first.Add(time.Hour))

	if order.PaidAt == nil || !order.PaidAt.Equal(first) {
		t.Fatalf("paidAt = %v, want %v", order.PaidAt, first)
	}
}
