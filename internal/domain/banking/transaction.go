package banking

import (
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger entry
type TransactionType string

const (
	TransactionTypeIncome     TransactionType = "income"
	TransactionTypeExpense    TransactionType = "expense"
	TransactionTypeAdjustment TransactionType = "adjustment"
)

// IsValid returns true for a known transaction type
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeAdjustment:
		return true
	}
	return false
}

// ReferenceType names the aggregate a transaction settles, if any
type ReferenceType string

const (
	ReferencePaymentOrder ReferenceType = "payment_order"
	ReferenceCheck        ReferenceType = "check"
	ReferenceDebtPayment  ReferenceType = "debt_payment"
	ReferenceIncomeRecord ReferenceType = "income_record"
	ReferenceManual       ReferenceType = "manual"
)

// Transaction is an immutable ledger entry against a bank account.
// BalanceAfter snapshots the account balance right after the entry so
// statements can be rendered without replaying history.
type Transaction struct {
	shared.BaseEntity
	BankAccountID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type          TransactionType `gorm:"type:varchar(20);not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Description   string          `gorm:"type:varchar(500)"`
	ReferenceType ReferenceType   `gorm:"type:varchar(30);not null;default:'manual';index"`
	ReferenceID   *uuid.UUID      `gorm:"type:uuid;index"`
	RecordedBy    uuid.UUID       `gorm:"type:uuid;not null"`
	OccurredOn    time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (Transaction) TableName() string {
	return "transactions"
}

// NewTransaction records a ledger entry for the given account
func NewTransaction(
	account *BankAccount,
	txType TransactionType,
	amount decimal.Decimal,
	description string,
	refType ReferenceType,
	refID *uuid.UUID,
	recordedBy uuid.UUID,
) (*Transaction, error) {
	if account == nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Bank account is required")
	}
	if !txType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TYPE", "Transaction type is not valid")
	}
	if txType != TransactionTypeAdjustment && amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Transaction amount must be positive")
	}
	if recordedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Recording user ID is required")
	}
	if refType == "" {
		refType = ReferenceManual
	}

	return &Transaction{
		BaseEntity:    shared.NewBaseEntity(),
		BankAccountID: account.ID,
		Type:          txType,
		Amount:        amount,
		BalanceAfter:  account.Balance,
		Description:   description,
		ReferenceType: refType,
		ReferenceID:   refID,
		RecordedBy:    recordedBy,
		OccurredOn:    time.Now(),
	}, nil
}
