package payment

import (
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of a payment order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsValid returns true for a known status value
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusCompleted, OrderStatusRejected, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true when no further transitions are possible
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusRejected, OrderStatusCancelled:
		return true
	}
	return false
}

// CanApprove reports whether an order in this status may be approved
func (s OrderStatus) CanApprove() bool { return s == OrderStatusPending }

// CanReject reports whether an order in this status may be rejected
func (s OrderStatus) CanReject() bool { return s == OrderStatusPending }

// CanComplete reports whether an order in this status may be completed
func (s OrderStatus) CanComplete() bool { return s == OrderStatusApproved }

// CanCancel reports whether an order in this status may be cancelled.
// Cancelling an already-approved order is subject to policy.
func (s OrderStatus) CanCancel(allowApproved bool) bool {
	if s == OrderStatusPending {
		return true
	}
	return s == OrderStatusApproved && allowApproved
}

// Category is the closed set of payment categories
type Category string

const (
	CategoryOfficeSupplies Category = "office_supplies"
	CategoryUtilities      Category = "utilities"
	CategorySalary         Category = "salary"
	CategoryRent           Category = "rent"
	CategoryInsurance      Category = "insurance"
	CategoryTax            Category = "tax"
	CategoryLoan           Category = "loan"
	CategorySupplier       Category = "supplier"
	CategoryService        Category = "service"
	CategoryOther          Category = "other"
)

// IsValid returns true for a known category
func (c Category) IsValid() bool {
	switch c {
	case CategoryOfficeSupplies, CategoryUtilities, CategorySalary, CategoryRent,
		CategoryInsurance, CategoryTax, CategoryLoan, CategorySupplier, CategoryService, CategoryOther:
		return true
	}
	return false
}

// PaymentOrder is the aggregate root for a request to pay a named
// recipient. Funds move only after approval and settlement; the amount
// and currency are immutable once the order exists.
type PaymentOrder struct {
	shared.OwnedAggregateRoot
	RecipientName     string               `gorm:"type:varchar(200);not null"`
	RecipientIBAN     string               `gorm:"type:varchar(34);not null"`
	Amount            decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Currency          valueobject.Currency `gorm:"type:varchar(3);not null;default:'TRY'"`
	Description       string               `gorm:"type:varchar(500);not null"`
	Category          Category             `gorm:"type:varchar(30);default:'other'"`
	DueDate           *time.Time           `gorm:"index"`
	Status            OrderStatus          `gorm:"type:varchar(20);not null;default:'pending';index"`
	AIDescription     string               `gorm:"type:text"`        // Advisory, never authoritative
	AISuggestedCat    *Category            `gorm:"type:varchar(30)"` // Advisory, never authoritative
	ReceiptURL        string               `gorm:"type:varchar(500)"`
	BankAccountID     *uuid.UUID           `gorm:"type:uuid;index"` // Settling account, set at completion
	ApprovedBy        *uuid.UUID           `gorm:"type:uuid"`
	ApprovedAt        *time.Time
	RejectedBy        *uuid.UUID `gorm:"type:uuid"`
	RejectionReason   string     `gorm:"type:varchar(500)"`
	ActualAmount      decimal.Decimal `gorm:"type:decimal(18,4)"` // Transfer amount per receipt
	TotalFees         decimal.Decimal `gorm:"type:decimal(18,4)"` // Extracted fees per receipt
	NetAmountDeducted decimal.Decimal `gorm:"type:decimal(18,4)"` // What actually left the account
	CompletedBy       *uuid.UUID      `gorm:"type:uuid"`
	CompletedAt       *time.Time
}

// TableName returns the table name for GORM
func (PaymentOrder) TableName() string {
	return "payment_orders"
}

// NewPaymentOrder creates a pending payment order after validating its
// immutable fields. The IBAN must carry a valid mod-97 checksum.
func NewPaymentOrder(
	createdBy uuid.UUID,
	recipientName string,
	recipientIBAN string,
	amount valueobject.Money,
	description string,
	category Category,
	dueDate *time.Time,
) (*PaymentOrder, error) {
	if createdBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Creating user ID is required")
	}
	if recipientName == "" {
		return nil, shared.NewDomainError("INVALID_RECIPIENT", "Recipient name cannot be empty")
	}
	if len(recipientName) > 200 {
		return nil, shared.NewDomainError("INVALID_RECIPIENT", "Recipient name cannot exceed 200 characters")
	}
	iban, err := valueobject.NewIBAN(recipientIBAN)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_IBAN", "Recipient IBAN is not valid: "+err.Error())
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	if !amount.Currency().IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency is not supported")
	}
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot be empty")
	}
	if len(description) > 500 {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot exceed 500 characters")
	}
	if category == "" {
		category = CategoryOther
	}
	if !category.IsValid() {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Category is not valid")
	}

	po := &PaymentOrder{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(createdBy),
		RecipientName:      recipientName,
		RecipientIBAN:      iban.String(),
		Amount:             amount.Amount(),
		Currency:           amount.Currency(),
		Description:        description,
		Category:           category,
		DueDate:            dueDate,
		Status:             OrderStatusPending,
	}

	po.AddDomainEvent(NewPaymentOrderCreatedEvent(po))

	return po, nil
}

// Approve transitions the order from pending to approved.
// Authorization is the caller's concern; the aggregate only guards state.
func (po *PaymentOrder) Approve(approvedBy uuid.UUID) error {
	if !po.Status.CanApprove() {
		return shared.NewInvalidTransitionError(string(po.Status), "approve", string(OrderStatusPending))
	}
	if approvedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Approving user ID is required")
	}

	now := time.Now()
	po.Status = OrderStatusApproved
	po.ApprovedBy = &approvedBy
	po.ApprovedAt = &now
	po.UpdatedAt = now
	po.IncrementVersion()

	po.AddDomainEvent(NewPaymentOrderApprovedEvent(po))

	return nil
}

// Reject transitions the order from pending to rejected.
// A non-empty reason is mandatory and persisted.
func (po *PaymentOrder) Reject(rejectedBy uuid.UUID, reason string) error {
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Rejection reason is required")
	}
	if !po.Status.CanReject() {
		return shared.NewInvalidTransitionError(string(po.Status), "reject", string(OrderStatusPending))
	}
	if rejectedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Rejecting user ID is required")
	}

	now := time.Now()
	po.Status = OrderStatusRejected
	po.RejectionReason = reason
	po.RejectedBy = &rejectedBy
	po.UpdatedAt = now
	po.IncrementVersion()

	po.AddDomainEvent(NewPaymentOrderRejectedEvent(po, reason))

	return nil
}

// Settlement carries the amounts an order settles with. For direct
// completion the actual amount equals the order amount and fees are zero;
// receipt-verified completion fills all three from the analyzed receipt.
type Settlement struct {
	BankAccountID uuid.UUID
	ActualAmount  decimal.Decimal
	TotalFees     decimal.Decimal
	NetDeducted   decimal.Decimal
	ReceiptURL    string
}

// DirectSettlement builds a Settlement for completion without a receipt
func DirectSettlement(bankAccountID uuid.UUID, amount decimal.Decimal) Settlement {
	return Settlement{
		BankAccountID: bankAccountID,
		ActualAmount:  amount,
		TotalFees:     decimal.Zero,
		NetDeducted:   amount,
	}
}

// Complete transitions the order from approved to completed and records
// the settlement. CompletedAt is stamped here and nowhere else, keeping
// the invariant that it is set exactly when status is completed.
func (po *PaymentOrder) Complete(completedBy uuid.UUID, s Settlement) error {
	if !po.Status.CanComplete() {
		return shared.NewInvalidTransitionError(string(po.Status), "complete", string(OrderStatusApproved))
	}
	if completedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Completing user ID is required")
	}
	if s.BankAccountID == uuid.Nil {
		return shared.NewDomainError("INVALID_ACCOUNT", "Settling bank account ID is required")
	}
	if s.NetDeducted.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Net deducted amount must be positive")
	}

	now := time.Now()
	po.Status = OrderStatusCompleted
	po.BankAccountID = &s.BankAccountID
	po.ActualAmount = s.ActualAmount
	po.TotalFees = s.TotalFees
	po.NetAmountDeducted = s.NetDeducted
	if s.ReceiptURL != "" {
		po.ReceiptURL = s.ReceiptURL
	}
	po.CompletedBy = &completedBy
	po.CompletedAt = &now
	po.UpdatedAt = now
	po.IncrementVersion()

	po.AddDomainEvent(NewPaymentOrderCompletedEvent(po))

	return nil
}

// Cancel transitions the order to cancelled. Pending orders can always be
// cancelled; approved orders only when allowApproved policy permits.
func (po *PaymentOrder) Cancel(cancelledBy uuid.UUID, allowApproved bool) error {
	if !po.Status.CanCancel(allowApproved) {
		required := []string{string(OrderStatusPending)}
		if allowApproved {
			required = append(required, string(OrderStatusApproved))
		}
		return shared.NewInvalidTransitionError(string(po.Status), "cancel", required...)
	}
	if cancelledBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Cancelling user ID is required")
	}

	now := time.Now()
	previous := po.Status
	po.Status = OrderStatusCancelled
	po.UpdatedAt = now
	po.IncrementVersion()

	po.AddDomainEvent(NewPaymentOrderCancelledEvent(po, previous))

	return nil
}

// UpdateDetails changes the mutable fields of a pending order. Amount and
// currency are immutable after creation and are deliberately absent here.
func (po *PaymentOrder) UpdateDetails(recipientName, recipientIBAN, description string, category Category, dueDate *time.Time) error {
	if po.Status != OrderStatusPending {
		return shared.NewInvalidTransitionError(string(po.Status), "update", string(OrderStatusPending))
	}
	if recipientName != "" {
		po.RecipientName = recipientName
	}
	if recipientIBAN != "" {
		iban, err := valueobject.NewIBAN(recipientIBAN)
		if err != nil {
			return shared.NewDomainError("INVALID_IBAN", "Recipient IBAN is not valid: "+err.Error())
		}
		po.RecipientIBAN = iban.String()
	}
	if description != "" {
		if len(description) > 500 {
			return shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot exceed 500 characters")
		}
		po.Description = description
	}
	if category != "" {
		if !category.IsValid() {
			return shared.NewDomainError("INVALID_CATEGORY", "Category is not valid")
		}
		po.Category = category
	}
	if dueDate != nil {
		po.DueDate = dueDate
	}

	po.UpdatedAt = time.Now()
	po.IncrementVersion()

	return nil
}

// ApplyAISuggestion records the advisory output of the categorization
// service. It never overrides a category the creator chose explicitly.
func (po *PaymentOrder) ApplyAISuggestion(description string, category Category) {
	po.AIDescription = description
	if category.IsValid() {
		po.AISuggestedCat = &category
	}
	po.UpdatedAt = time.Now()
}

// AttachReceipt stores the durable receipt location without changing status
func (po *PaymentOrder) AttachReceipt(url string) error {
	if url == "" {
		return shared.NewDomainError("INVALID_RECEIPT", "Receipt URL cannot be empty")
	}
	po.ReceiptURL = url
	po.UpdatedAt = time.Now()
	return nil
}

// GetAmountMoney returns the order amount as Money
func (po *PaymentOrder) GetAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(po.Amount, po.Currency)
	return m
}

// IsPending returns true if the order awaits approval
func (po *PaymentOrder) IsPending() bool { return po.Status == OrderStatusPending }

// IsApproved returns true if the order awaits settlement
func (po *PaymentOrder) IsApproved() bool { return po.Status == OrderStatusApproved }

// IsCompleted returns true if the order has settled
func (po *PaymentOrder) IsCompleted() bool { return po.Status == OrderStatusCompleted }
