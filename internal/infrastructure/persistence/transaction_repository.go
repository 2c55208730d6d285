package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/backoffice/backend/internal/domain/banking"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormTransactionRepository implements TransactionRepository using GORM.
// The ledger is append-only; this repository exposes no update or delete.
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// Save appends a ledger entry
func (r *GormTransactionRepository) Save(ctx context.Context, tx *banking.Transaction) error {
	return session(ctx, r.db).Create(tx).Error
}

// FindByID finds a ledger entry by ID. Returns (nil, nil) when absent.
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*banking.Transaction, error) {
	var tx banking.Transaction
	if err := session(ctx, r.db).First(&tx, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

// FindAll finds ledger entries matching the filter with pagination
func (r *GormTransactionRepository) FindAll(ctx context.Context, filter banking.TransactionFilter) ([]*banking.Transaction, int64, error) {
	var txs []*banking.Transaction
	var total int64

	query := session(ctx, r.db).Model(&banking.Transaction{})
	query = r.applyFilter(query, filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, TransactionSortFields, "occurred_on")
	orderDir := ValidateSortOrder(filter.OrderDir)

	if err := query.
		Order(fmt.Sprintf("%s %s", orderBy, orderDir)).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&txs).Error; err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// FindByReference finds ledger entries written for a source document
func (r *GormTransactionRepository) FindByReference(ctx context.Context, refType banking.ReferenceType, refID uuid.UUID) ([]*banking.Transaction, error) {
	var txs []*banking.Transaction
	if err := session(ctx, r.db).
		Where("reference_type = ? AND reference_id = ?", refType, refID).
		Order("occurred_on DESC").
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// SumByType sums ledger amounts per transaction type within a date range
func (r *GormTransactionRepository) SumByType(ctx context.Context, from, to time.Time) (map[banking.TransactionType]decimal.Decimal, error) {
	var rows []struct {
		Type  banking.TransactionType
		Total decimal.Decimal
	}

	if err := session(ctx, r.db).
		Model(&banking.Transaction{}).
		Select("type, COALESCE(SUM(amount), 0) as total").
		Where("occurred_on >= ? AND occurred_on <= ?", from, to).
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	sums := make(map[banking.TransactionType]decimal.Decimal, len(rows))
	for _, row := range rows {
		sums[row.Type] = row.Total
	}
	return sums, nil
}

func (r *GormTransactionRepository) applyFilter(query *gorm.DB, filter banking.TransactionFilter) *gorm.DB {
	if filter.BankAccountID != nil {
		query = query.Where("bank_account_id = ?", *filter.BankAccountID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.ReferenceType != nil {
		query = query.Where("reference_type = ?", *filter.ReferenceType)
	}
	if filter.From != nil {
		query = query.Where("occurred_on >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("occurred_on <= ?", *filter.To)
	}
	return query
}

// Ensure GormTransactionRepository implements the interface
var _ banking.TransactionRepository = (*GormTransactionRepository)(nil)
