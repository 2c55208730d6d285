package banking

import (
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountStatus represents the lifecycle state of a bank account
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusFrozen AccountStatus = "frozen"
	AccountStatusClosed AccountStatus = "closed"
)

// IsValid returns true for a known status value
func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountStatusActive, AccountStatusFrozen, AccountStatusClosed:
		return true
	}
	return false
}

// BankAccount is the aggregate root for a company bank account. The
// balance only moves through Deposit, Withdraw and Adjust so that every
// change leaves a matching transaction record.
type BankAccount struct {
	shared.OwnedAggregateRoot
	Name          string               `gorm:"type:varchar(100);not null"`
	BankName      string               `gorm:"type:varchar(100);not null"`
	IBAN          string               `gorm:"type:varchar(34);not null;uniqueIndex"`
	AccountNumber string               `gorm:"type:varchar(30)"`
	Currency      valueobject.Currency `gorm:"type:varchar(3);not null;default:'TRY'"`
	Balance       decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Status        AccountStatus        `gorm:"type:varchar(20);not null;default:'active';index"`
	ClosedAt      *time.Time
}

// TableName returns the table name for GORM
func (BankAccount) TableName() string {
	return "bank_accounts"
}

// NewBankAccount creates an active bank account with the given opening balance
func NewBankAccount(
	createdBy uuid.UUID,
	name string,
	bankName string,
	rawIBAN string,
	accountNumber string,
	currency valueobject.Currency,
	openingBalance decimal.Decimal,
) (*BankAccount, error) {
	if createdBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Creating user ID is required")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Account name cannot be empty")
	}
	if bankName == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Bank name cannot be empty")
	}
	iban, err := valueobject.NewIBAN(rawIBAN)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_IBAN", "Account IBAN is not valid: "+err.Error())
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency is not supported")
	}
	if openingBalance.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Opening balance cannot be negative")
	}

	return &BankAccount{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(createdBy),
		Name:               name,
		BankName:           bankName,
		IBAN:               iban.String(),
		AccountNumber:      accountNumber,
		Currency:           currency,
		Balance:            openingBalance,
		Status:             AccountStatusActive,
	}, nil
}

// CanDebit returns nil when the account can cover the given amount
func (a *BankAccount) CanDebit(amount decimal.Decimal) error {
	if a.Status != AccountStatusActive {
		return shared.NewDomainError("ACCOUNT_INACTIVE", "Account is not active")
	}
	if a.Balance.LessThan(amount) {
		return shared.ErrInsufficientBalance
	}
	return nil
}

// Withdraw decreases the balance by amount. The amount must be positive
// and covered by the current balance.
func (a *BankAccount) Withdraw(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Withdrawal amount must be positive")
	}
	if err := a.CanDebit(amount); err != nil {
		return err
	}
	a.Balance = a.Balance.Sub(amount)
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// Deposit increases the balance by amount
func (a *BankAccount) Deposit(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Deposit amount must be positive")
	}
	if a.Status != AccountStatusActive {
		return shared.NewDomainError("ACCOUNT_INACTIVE", "Account is not active")
	}
	a.Balance = a.Balance.Add(amount)
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// Adjust sets the balance to a new value for manual reconciliation.
// Unlike Withdraw it may take the balance down arbitrarily, but never
// below zero.
func (a *BankAccount) Adjust(newBalance decimal.Decimal) error {
	if a.Status == AccountStatusClosed {
		return shared.NewDomainError("ACCOUNT_INACTIVE", "Account is closed")
	}
	if newBalance.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Balance cannot be adjusted below zero")
	}
	a.Balance = newBalance
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// Freeze blocks debits and credits without closing the account
func (a *BankAccount) Freeze() error {
	if a.Status != AccountStatusActive {
		return shared.NewInvalidTransitionError(string(a.Status), "freeze", string(AccountStatusActive))
	}
	a.Status = AccountStatusFrozen
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// Unfreeze reactivates a frozen account
func (a *BankAccount) Unfreeze() error {
	if a.Status != AccountStatusFrozen {
		return shared.NewInvalidTransitionError(string(a.Status), "unfreeze", string(AccountStatusFrozen))
	}
	a.Status = AccountStatusActive
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// Close closes the account permanently. Only an account with zero
// balance can be closed.
func (a *BankAccount) Close() error {
	if a.Status == AccountStatusClosed {
		return shared.NewInvalidTransitionError(string(a.Status), "close", string(AccountStatusActive), string(AccountStatusFrozen))
	}
	if !a.Balance.IsZero() {
		return shared.NewDomainError("BALANCE_NOT_ZERO", "Account with non-zero balance cannot be closed")
	}
	now := time.Now()
	a.Status = AccountStatusClosed
	a.ClosedAt = &now
	a.UpdatedAt = now
	a.IncrementVersion()
	return nil
}

// GetBalanceMoney returns the current balance as Money
func (a *BankAccount) GetBalanceMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(a.Balance, a.Currency)
	return m
}
