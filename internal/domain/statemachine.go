package domain

import "time"

// Transition описывает итог применения статуса шлюза к заказу.
type Transition struct {
	// Applied — заказ изменился и его нужно сохранить.
	Applied bool
	// StatusChanged — изменился именно статус заказа (а не только платёжные поля).
	StatusChanged bool
	// ReleaseStock — после сохранения нужно снять резерв стока по позициям заказа.
	ReleaseStock bool
}

// ApplyGatewayStatus — единая таблица переходов для синхронной оплаты и webhook.
//
//	pending_payment + approved  → processing, PaidAt := now
//	pending_payment + rejected  → failed, снять резерв стока
//	pending_payment + прочее    → статус не меняется, сохраняются только платёжные поля
//	любой другой статус         → no-op (защита от повторной доставки)
//
// Функция мутирует заказ, но не сохраняет его: персист и снятие резерва —
// ответственность вызывающего, причём резерв снимается только если сохранение
// перехода прошло (иначе проигравший гонку повторил бы снятие).
func ApplyGatewayStatus(order *Order, result GatewayResult, now time.Time) Transition {
	if !order.Reconcilable() {
		return Transition{}
	}

	if order.GatewayPaymentID == "" {
		order.GatewayPaymentID = result.ID
	}
	order.PaymentResult = result.ToPaymentResult()
	order.UpdatedAt = now

	switch result.Status {
	case GatewayStatusApproved:
		order.Status = OrderStatusProcessing
		if order.PaidAt == nil {
			paidAt := now
			order.PaidAt = &paidAt
		}
		return Transition{Applied: true, StatusChanged: true}
	case GatewayStatusRejected:
		order.Status = OrderStatusFailed
		return Transition{Applied: true, StatusChanged: true, ReleaseStock: true}
	default:
		// pending, in_process и любые будущие промежуточные статусы:
		// заказ остаётся pending_payment, но платёжные поля сохраняются,
		// чтобы поздний webhook мог завершить обработку.
		return Transition{Applied: true}
	}
}
