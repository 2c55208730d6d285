package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/backoffice/backend/internal/domain/banking"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormBankAccountRepository implements BankAccountRepository using GORM
type GormBankAccountRepository struct {
	db *gorm.DB
}

// NewGormBankAccountRepository creates a new GormBankAccountRepository
func NewGormBankAccountRepository(db *gorm.DB) *GormBankAccountRepository {
	return &GormBankAccountRepository{db: db}
}

// Save creates or updates a bank account
func (r *GormBankAccountRepository) Save(ctx context.Context, account *banking.BankAccount) error {
	return session(ctx, r.db).Save(account).Error
}

// SaveWithLock updates a bank account with optimistic locking. Balance
// changes always go through this path so concurrent settlements collide
// instead of silently overwriting each other.
func (r *GormBankAccountRepository) SaveWithLock(ctx context.Context, account *banking.BankAccount, expectedVersion int) error {
	result := session(ctx, r.db).
		Model(account).
		Where("id = ? AND version = ?", account.ID, expectedVersion).
		Select("*").
		Updates(account)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds a bank account by ID. Returns (nil, nil) when absent.
func (r *GormBankAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*banking.BankAccount, error) {
	var account banking.BankAccount
	if err := session(ctx, r.db).First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// FindByIBAN finds a bank account by its normalized IBAN
func (r *GormBankAccountRepository) FindByIBAN(ctx context.Context, iban string) (*banking.BankAccount, error) {
	var account banking.BankAccount
	if err := session(ctx, r.db).First(&account, "iban = ?", iban).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// FindAll finds bank accounts with pagination
func (r *GormBankAccountRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*banking.BankAccount, int64, error) {
	var accounts []*banking.BankAccount
	var total int64

	query := session(ctx, r.db).Model(&banking.BankAccount{})
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR bank_name ILIKE ?", pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, BankAccountSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	if err := query.
		Order(fmt.Sprintf("%s %s", orderBy, orderDir)).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&accounts).Error; err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// TotalBalance sums balances over all non-closed accounts
func (r *GormBankAccountRepository) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := session(ctx, r.db).
		Model(&banking.BankAccount{}).
		Select("COALESCE(SUM(balance), 0)").
		Where("status <> ?", banking.AccountStatusClosed).
		Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// Delete removes a bank account
func (r *GormBankAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return session(ctx, r.db).Delete(&banking.BankAccount{}, "id = ?", id).Error
}

// Ensure GormBankAccountRepository implements the interface
var _ banking.BankAccountRepository = (*GormBankAccountRepository)(nil)
