package treasury

import (
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DebtStatus represents the repayment state of a debt
type DebtStatus string

const (
	DebtStatusActive    DebtStatus = "active"
	DebtStatusPartial   DebtStatus = "partial"
	DebtStatusPaid      DebtStatus = "paid"
	DebtStatusOverdue   DebtStatus = "overdue"
	DebtStatusCancelled DebtStatus = "cancelled"
)

// IsValid returns true for a known status value
func (s DebtStatus) IsValid() bool {
	switch s {
	case DebtStatusActive, DebtStatusPartial, DebtStatusPaid, DebtStatusOverdue, DebtStatusCancelled:
		return true
	}
	return false
}

// DebtPayment is an installment recorded against a debt
type DebtPayment struct {
	shared.BaseEntity
	DebtID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BankAccountID *uuid.UUID      `gorm:"type:uuid"`
	Note          string          `gorm:"type:varchar(500)"`
	PaidBy        uuid.UUID       `gorm:"type:uuid;not null"`
	PaidAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DebtPayment) TableName() string {
	return "debt_payments"
}

// Debt is the aggregate root for money owed to a creditor. The paid
// amount never exceeds the total; the remaining amount is derived and
// never negative.
type Debt struct {
	shared.OwnedAggregateRoot
	CreditorName string               `gorm:"type:varchar(200);not null"`
	Description  string               `gorm:"type:varchar(500)"`
	TotalAmount  decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	PaidAmount   decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Currency     valueobject.Currency `gorm:"type:varchar(3);not null;default:'TRY'"`
	DueDate      *time.Time           `gorm:"index"`
	Status       DebtStatus           `gorm:"type:varchar(20);not null;default:'active';index"`
	Payments     []DebtPayment        `gorm:"foreignKey:DebtID"`
}

// TableName returns the table name for GORM
func (Debt) TableName() string {
	return "debts"
}

// NewDebt creates an active debt
func NewDebt(
	createdBy uuid.UUID,
	creditorName string,
	description string,
	total valueobject.Money,
	dueDate *time.Time,
) (*Debt, error) {
	if createdBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Creating user ID is required")
	}
	if creditorName == "" {
		return nil, shared.NewDomainError("INVALID_DEBT", "Creditor name cannot be empty")
	}
	if !total.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Debt amount must be positive")
	}

	return &Debt{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(createdBy),
		CreditorName:       creditorName,
		Description:        description,
		TotalAmount:        total.Amount(),
		PaidAmount:         decimal.Zero,
		Currency:           total.Currency(),
		DueDate:            dueDate,
		Status:             DebtStatusActive,
	}, nil
}

// RemainingAmount returns total minus paid; by construction never negative
func (d *Debt) RemainingAmount() decimal.Decimal {
	return d.TotalAmount.Sub(d.PaidAmount)
}

// IsOpen returns true while the debt still accepts payments
func (d *Debt) IsOpen() bool {
	switch d.Status {
	case DebtStatusActive, DebtStatusPartial, DebtStatusOverdue:
		return true
	}
	return false
}

// RecordPayment applies an installment. Overpaying is rejected so the
// remaining amount can never go negative. Full repayment moves the debt
// to paid, anything less to partial.
func (d *Debt) RecordPayment(paidBy uuid.UUID, amount decimal.Decimal, bankAccountID *uuid.UUID, note string) (*DebtPayment, error) {
	if !d.IsOpen() {
		return nil, shared.NewInvalidTransitionError(string(d.Status), "pay",
			string(DebtStatusActive), string(DebtStatusPartial), string(DebtStatusOverdue))
	}
	if paidBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Paying user ID is required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if amount.GreaterThan(d.RemainingAmount()) {
		return nil, shared.NewDomainError("OVERPAYMENT", "Payment exceeds remaining debt amount")
	}

	payment := DebtPayment{
		BaseEntity:    shared.NewBaseEntity(),
		DebtID:        d.ID,
		Amount:        amount,
		BankAccountID: bankAccountID,
		Note:          note,
		PaidBy:        paidBy,
		PaidAt:        time.Now(),
	}
	d.Payments = append(d.Payments, payment)
	d.PaidAmount = d.PaidAmount.Add(amount)

	if d.RemainingAmount().IsZero() {
		d.Status = DebtStatusPaid
	} else {
		d.Status = DebtStatusPartial
	}
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	return &d.Payments[len(d.Payments)-1], nil
}

// MarkOverdue flags an open debt whose due date has passed
func (d *Debt) MarkOverdue(now time.Time) error {
	if !d.IsOpen() || d.Status == DebtStatusOverdue {
		return shared.NewInvalidTransitionError(string(d.Status), "mark_overdue",
			string(DebtStatusActive), string(DebtStatusPartial))
	}
	if d.DueDate == nil || now.Before(*d.DueDate) {
		return shared.NewDomainError("NOT_DUE", "Debt due date has not passed")
	}
	d.Status = DebtStatusOverdue
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
	return nil
}

// Cancel voids a debt that has received no payments
func (d *Debt) Cancel() error {
	if !d.IsOpen() {
		return shared.NewInvalidTransitionError(string(d.Status), "cancel",
			string(DebtStatusActive), string(DebtStatusPartial), string(DebtStatusOverdue))
	}
	if d.PaidAmount.IsPositive() {
		return shared.NewDomainError("HAS_PAYMENTS", "Debt with recorded payments cannot be cancelled")
	}
	d.Status = DebtStatusCancelled
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
	return nil
}
