package banking

import (
	"context"
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankAccountRepository defines the persistence interface for bank accounts
type BankAccountRepository interface {
	Save(ctx context.Context, account *BankAccount) error
	SaveWithLock(ctx context.Context, account *BankAccount, expectedVersion int) error
	FindByID(ctx context.Context, id uuid.UUID) (*BankAccount, error)
	FindByIBAN(ctx context.Context, iban string) (*BankAccount, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]*BankAccount, int64, error)
	TotalBalance(ctx context.Context) (decimal.Decimal, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TransactionFilter narrows ledger queries
type TransactionFilter struct {
	shared.Filter
	BankAccountID *uuid.UUID
	Type          *TransactionType
	ReferenceType *ReferenceType
	From          *time.Time
	To            *time.Time
}

// TransactionRepository defines the persistence interface for the ledger.
// Entries are append-only; there is no update or delete.
type TransactionRepository interface {
	Save(ctx context.Context, tx *Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	FindAll(ctx context.Context, filter TransactionFilter) ([]*Transaction, int64, error)
	FindByReference(ctx context.Context, refType ReferenceType, refID uuid.UUID) ([]*Transaction, error)
	SumByType(ctx context.Context, from, to time.Time) (map[TransactionType]decimal.Decimal, error)
}
