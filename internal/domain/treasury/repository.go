package treasury

import (
	"context"
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckFilter narrows check queries
type CheckFilter struct {
	shared.Filter
	Status    *CheckStatus
	Direction *CheckDirection
	CreatedBy *uuid.UUID
	DueBefore *time.Time
}

// CheckRepository defines the persistence interface for checks
type CheckRepository interface {
	Save(ctx context.Context, check *Check) error
	SaveWithLock(ctx context.Context, check *Check, expectedVersion int) error
	FindByID(ctx context.Context, id uuid.UUID) (*Check, error)
	FindAll(ctx context.Context, filter CheckFilter) ([]*Check, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// DebtFilter narrows debt queries
type DebtFilter struct {
	shared.Filter
	Status    *DebtStatus
	CreatedBy *uuid.UUID
	DueBefore *time.Time
}

// DebtRepository defines the persistence interface for debts
type DebtRepository interface {
	Save(ctx context.Context, debt *Debt) error
	SaveWithLock(ctx context.Context, debt *Debt, expectedVersion int) error
	FindByID(ctx context.Context, id uuid.UUID) (*Debt, error)
	FindAll(ctx context.Context, filter DebtFilter) ([]*Debt, int64, error)
	FindOpenDue(ctx context.Context, before time.Time) ([]*Debt, error)
	TotalOutstanding(ctx context.Context, createdBy *uuid.UUID) (decimal.Decimal, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// IncomeFilter narrows income record queries
type IncomeFilter struct {
	shared.Filter
	Source    *IncomeSource
	CreatedBy *uuid.UUID
	From      *time.Time
	To        *time.Time
}

// IncomeRecordRepository defines the persistence interface for income records
type IncomeRecordRepository interface {
	Save(ctx context.Context, record *IncomeRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*IncomeRecord, error)
	FindAll(ctx context.Context, filter IncomeFilter) ([]*IncomeRecord, int64, error)
	SumBySource(ctx context.Context, from, to time.Time) (map[IncomeSource]decimal.Decimal, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
