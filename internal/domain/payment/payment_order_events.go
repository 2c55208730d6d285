package payment

import (
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const aggregateType = "PaymentOrder"

// PaymentOrderCreatedEvent is raised when a payment order is created
type PaymentOrderCreatedEvent struct {
	shared.BaseDomainEvent
	RecipientName string          `json:"recipient_name"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Category      Category        `json:"category"`
}

// NewPaymentOrderCreatedEvent creates a new PaymentOrderCreatedEvent
func NewPaymentOrderCreatedEvent(po *PaymentOrder) *PaymentOrderCreatedEvent {
	return &PaymentOrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("payment_order.created", aggregateType, po.ID),
		RecipientName:   po.RecipientName,
		Amount:          po.Amount,
		Currency:        string(po.Currency),
		Category:        po.Category,
	}
}

// PaymentOrderApprovedEvent is raised when a payment order is approved
type PaymentOrderApprovedEvent struct {
	shared.BaseDomainEvent
	Amount decimal.Decimal `json:"amount"`
}

// NewPaymentOrderApprovedEvent creates a new PaymentOrderApprovedEvent
func NewPaymentOrderApprovedEvent(po *PaymentOrder) *PaymentOrderApprovedEvent {
	return &PaymentOrderApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("payment_order.approved", aggregateType, po.ID),
		Amount:          po.Amount,
	}
}

// PaymentOrderRejectedEvent is raised when a payment order is rejected
type PaymentOrderRejectedEvent struct {
	shared.BaseDomainEvent
	Reason string `json:"reason"`
}

// NewPaymentOrderRejectedEvent creates a new PaymentOrderRejectedEvent
func NewPaymentOrderRejectedEvent(po *PaymentOrder, reason string) *PaymentOrderRejectedEvent {
	return &PaymentOrderRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("payment_order.rejected", aggregateType, po.ID),
		Reason:          reason,
	}
}

// PaymentOrderCompletedEvent is raised when a payment order settles
type PaymentOrderCompletedEvent struct {
	shared.BaseDomainEvent
	NetAmountDeducted decimal.Decimal `json:"net_amount_deducted"`
	TotalFees         decimal.Decimal `json:"total_fees"`
}

// NewPaymentOrderCompletedEvent creates a new PaymentOrderCompletedEvent
func NewPaymentOrderCompletedEvent(po *PaymentOrder) *PaymentOrderCompletedEvent {
	return &PaymentOrderCompletedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent("payment_order.completed", aggregateType, po.ID),
		NetAmountDeducted: po.NetAmountDeducted,
		TotalFees:         po.TotalFees,
	}
}

// PaymentOrderCancelledEvent is raised when a payment order is cancelled
type PaymentOrderCancelledEvent struct {
	shared.BaseDomainEvent
	PreviousStatus OrderStatus `json:"previous_status"`
}

// NewPaymentOrderCancelledEvent creates a new PaymentOrderCancelledEvent
func NewPaymentOrderCancelledEvent(po *PaymentOrder, previous OrderStatus) *PaymentOrderCancelledEvent {
	return &PaymentOrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("payment_order.cancelled", aggregateType, po.ID),
		PreviousStatus:  previous,
	}
}
