package treasury

import (
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IncomeSource classifies where income came from
type IncomeSource string

const (
	IncomeSourceSales      IncomeSource = "sales"
	IncomeSourceServices   IncomeSource = "services"
	IncomeSourceInterest   IncomeSource = "interest"
	IncomeSourceRefund     IncomeSource = "refund"
	IncomeSourceCollection IncomeSource = "collection"
	IncomeSourceOther      IncomeSource = "other"
)

// IsValid returns true for a known income source
func (s IncomeSource) IsValid() bool {
	switch s {
	case IncomeSourceSales, IncomeSourceServices, IncomeSourceInterest,
		IncomeSourceRefund, IncomeSourceCollection, IncomeSourceOther:
		return true
	}
	return false
}

// IncomeRecord is the aggregate root for money received. Once deposited
// into a bank account the record is immutable.
type IncomeRecord struct {
	shared.OwnedAggregateRoot
	PayerName     string               `gorm:"type:varchar(200);not null"`
	Description   string               `gorm:"type:varchar(500)"`
	Amount        decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Currency      valueobject.Currency `gorm:"type:varchar(3);not null;default:'TRY'"`
	Source        IncomeSource         `gorm:"type:varchar(20);not null;default:'other'"`
	ReceivedOn    time.Time            `gorm:"not null;index"`
	BankAccountID *uuid.UUID           `gorm:"type:uuid;index"`
	DepositedAt   *time.Time
}

// TableName returns the table name for GORM
func (IncomeRecord) TableName() string {
	return "income_records"
}

// NewIncomeRecord creates an income record not yet deposited
func NewIncomeRecord(
	createdBy uuid.UUID,
	payerName string,
	description string,
	amount valueobject.Money,
	source IncomeSource,
	receivedOn time.Time,
) (*IncomeRecord, error) {
	if createdBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Creating user ID is required")
	}
	if payerName == "" {
		return nil, shared.NewDomainError("INVALID_INCOME", "Payer name cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Income amount must be positive")
	}
	if source == "" {
		source = IncomeSourceOther
	}
	if !source.IsValid() {
		return nil, shared.NewDomainError("INVALID_INCOME", "Income source is not valid")
	}
	if receivedOn.IsZero() {
		receivedOn = time.Now()
	}

	return &IncomeRecord{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(createdBy),
		PayerName:          payerName,
		Description:        description,
		Amount:             amount.Amount(),
		Currency:           amount.Currency(),
		Source:             source,
		ReceivedOn:         receivedOn,
	}, nil
}

// IsDeposited returns true once the income has hit a bank account
func (r *IncomeRecord) IsDeposited() bool {
	return r.DepositedAt != nil
}

// Deposit ties the income to the bank account it was credited to
func (r *IncomeRecord) Deposit(bankAccountID uuid.UUID) error {
	if r.IsDeposited() {
		return shared.NewInvalidTransitionError("deposited", "deposit", "undeposited")
	}
	if bankAccountID == uuid.Nil {
		return shared.NewDomainError("INVALID_ACCOUNT", "Bank account ID is required")
	}
	now := time.Now()
	r.BankAccountID = &bankAccountID
	r.DepositedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}
