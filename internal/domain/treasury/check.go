package treasury

import (
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckStatus represents the lifecycle state of a check
type CheckStatus string

const (
	CheckStatusActive      CheckStatus = "active"
	CheckStatusCashed      CheckStatus = "cashed"
	CheckStatusEarlyCashed CheckStatus = "early_cashed"
	CheckStatusReturned    CheckStatus = "returned"
	CheckStatusCancelled   CheckStatus = "cancelled"
	CheckStatusLost        CheckStatus = "lost"
)

// IsValid returns true for a known status value
func (s CheckStatus) IsValid() bool {
	switch s {
	case CheckStatusActive, CheckStatusCashed, CheckStatusEarlyCashed,
		CheckStatusReturned, CheckStatusCancelled, CheckStatusLost:
		return true
	}
	return false
}

// IsTerminal returns true when no further operations are possible
func (s CheckStatus) IsTerminal() bool {
	return s != CheckStatusActive
}

// CheckDirection distinguishes checks we hold from checks we wrote
type CheckDirection string

const (
	CheckReceived CheckDirection = "received"
	CheckIssued   CheckDirection = "issued"
)

// IsValid returns true for a known direction
func (d CheckDirection) IsValid() bool {
	return d == CheckReceived || d == CheckIssued
}

// CheckOperationType names an operation performed on a check
type CheckOperationType string

const (
	CheckOpCash      CheckOperationType = "cash"
	CheckOpEarlyCash CheckOperationType = "early_cash"
	CheckOpReturn    CheckOperationType = "return"
	CheckOpCancel    CheckOperationType = "cancel"
	CheckOpMarkLost  CheckOperationType = "mark_lost"
)

// CheckOperation is an audit entry for an operation on a check. Early
// cashing records the discounted amount actually received.
type CheckOperation struct {
	shared.BaseEntity
	CheckID       uuid.UUID          `gorm:"type:uuid;not null;index"`
	Type          CheckOperationType `gorm:"type:varchar(20);not null"`
	Amount        decimal.Decimal    `gorm:"type:decimal(18,4)"`
	BankAccountID *uuid.UUID         `gorm:"type:uuid"`
	Note          string             `gorm:"type:varchar(500)"`
	PerformedBy   uuid.UUID          `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (CheckOperation) TableName() string {
	return "check_operations"
}

// Check is the aggregate root for a post-dated check, either received
// from a customer or issued to a supplier.
type Check struct {
	shared.OwnedAggregateRoot
	CheckNumber  string               `gorm:"type:varchar(50);not null"`
	BankName     string               `gorm:"type:varchar(100);not null"`
	Counterparty string               `gorm:"type:varchar(200);not null"`
	Direction    CheckDirection       `gorm:"type:varchar(10);not null;index"`
	Amount       decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Currency     valueobject.Currency `gorm:"type:varchar(3);not null;default:'TRY'"`
	IssueDate    time.Time            `gorm:"not null"`
	DueDate      time.Time            `gorm:"not null;index"`
	Status       CheckStatus          `gorm:"type:varchar(20);not null;default:'active';index"`
	Operations   []CheckOperation     `gorm:"foreignKey:CheckID"`
}

// TableName returns the table name for GORM
func (Check) TableName() string {
	return "checks"
}

// NewCheck creates an active check
func NewCheck(
	createdBy uuid.UUID,
	checkNumber string,
	bankName string,
	counterparty string,
	direction CheckDirection,
	amount valueobject.Money,
	issueDate time.Time,
	dueDate time.Time,
) (*Check, error) {
	if createdBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Creating user ID is required")
	}
	if checkNumber == "" {
		return nil, shared.NewDomainError("INVALID_CHECK", "Check number cannot be empty")
	}
	if bankName == "" {
		return nil, shared.NewDomainError("INVALID_CHECK", "Bank name cannot be empty")
	}
	if counterparty == "" {
		return nil, shared.NewDomainError("INVALID_CHECK", "Counterparty cannot be empty")
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_CHECK", "Check direction must be received or issued")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Check amount must be positive")
	}
	if dueDate.Before(issueDate) {
		return nil, shared.NewDomainError("INVALID_DATE", "Due date cannot precede issue date")
	}

	return &Check{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(createdBy),
		CheckNumber:        checkNumber,
		BankName:           bankName,
		Counterparty:       counterparty,
		Direction:          direction,
		Amount:             amount.Amount(),
		Currency:           amount.Currency(),
		IssueDate:          issueDate,
		DueDate:            dueDate,
		Status:             CheckStatusActive,
	}, nil
}

func (c *Check) record(opType CheckOperationType, amount decimal.Decimal, bankAccountID *uuid.UUID, note string, performedBy uuid.UUID) {
	c.Operations = append(c.Operations, CheckOperation{
		BaseEntity:    shared.NewBaseEntity(),
		CheckID:       c.ID,
		Type:          opType,
		Amount:        amount,
		BankAccountID: bankAccountID,
		Note:          note,
		PerformedBy:   performedBy,
	})
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// Cash marks the check as cashed at or past its due date for face value
func (c *Check) Cash(performedBy uuid.UUID, bankAccountID uuid.UUID, on time.Time) error {
	if c.Status != CheckStatusActive {
		return shared.NewInvalidTransitionError(string(c.Status), "cash", string(CheckStatusActive))
	}
	if on.Before(c.DueDate) {
		return shared.NewDomainError("NOT_DUE", "Check is not due yet; use early cashing")
	}
	if bankAccountID == uuid.Nil {
		return shared.NewDomainError("INVALID_ACCOUNT", "Bank account ID is required")
	}
	c.Status = CheckStatusCashed
	c.record(CheckOpCash, c.Amount, &bankAccountID, "", performedBy)
	return nil
}

// EarlyCash marks the check as cashed before its due date at a discount.
// The received amount must be positive and at most the face value.
func (c *Check) EarlyCash(performedBy uuid.UUID, bankAccountID uuid.UUID, received decimal.Decimal) error {
	if c.Status != CheckStatusActive {
		return shared.NewInvalidTransitionError(string(c.Status), "early_cash", string(CheckStatusActive))
	}
	if bankAccountID == uuid.Nil {
		return shared.NewDomainError("INVALID_ACCOUNT", "Bank account ID is required")
	}
	if received.LessThanOrEqual(decimal.Zero) || received.GreaterThan(c.Amount) {
		return shared.NewDomainError("INVALID_AMOUNT", "Received amount must be positive and not exceed face value")
	}
	c.Status = CheckStatusEarlyCashed
	c.record(CheckOpEarlyCash, received, &bankAccountID, "", performedBy)
	return nil
}

// Return marks the check as bounced
func (c *Check) Return(performedBy uuid.UUID, note string) error {
	if c.Status != CheckStatusActive {
		return shared.NewInvalidTransitionError(string(c.Status), "return", string(CheckStatusActive))
	}
	c.Status = CheckStatusReturned
	c.record(CheckOpReturn, decimal.Zero, nil, note, performedBy)
	return nil
}

// Cancel voids the check
func (c *Check) Cancel(performedBy uuid.UUID, note string) error {
	if c.Status != CheckStatusActive {
		return shared.NewInvalidTransitionError(string(c.Status), "cancel", string(CheckStatusActive))
	}
	c.Status = CheckStatusCancelled
	c.record(CheckOpCancel, decimal.Zero, nil, note, performedBy)
	return nil
}

// MarkLost records the check as lost
func (c *Check) MarkLost(performedBy uuid.UUID, note string) error {
	if c.Status != CheckStatusActive {
		return shared.NewInvalidTransitionError(string(c.Status), "mark_lost", string(CheckStatusActive))
	}
	c.Status = CheckStatusLost
	c.record(CheckOpMarkLost, decimal.Zero, nil, note, performedBy)
	return nil
}

// CashedAmount returns the amount actually received, zero if not cashed
func (c *Check) CashedAmount() decimal.Decimal {
	for _, op := range c.Operations {
		if op.Type == CheckOpCash || op.Type == CheckOpEarlyCash {
			return op.Amount
		}
	}
	return decimal.Zero
}
