package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDebtRepository implements DebtRepository using GORM
type GormDebtRepository struct {
	db *gorm.DB
}

// NewGormDebtRepository creates a new GormDebtRepository
func NewGormDebtRepository(db *gorm.DB) *GormDebtRepository {
	return &GormDebtRepository{db: db}
}

// Save creates or updates a debt together with its payment history
func (r *GormDebtRepository) Save(ctx context.Context, debt *treasury.Debt) error {
	return session(ctx, r.db).Session(&gorm.Session{FullSaveAssociations: true}).Save(debt).Error
}

// SaveWithLock updates a debt with optimistic locking. Payments are
// append-only children and are saved in the same transaction.
func (r *GormDebtRepository) SaveWithLock(ctx context.Context, debt *treasury.Debt, expectedVersion int) error {
	return session(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(debt).
			Where("id = ? AND version = ?", debt.ID, expectedVersion).
			Select("*").
			Omit(clause.Associations).
			Updates(debt)

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		for i := range debt.Payments {
			debt.Payments[i].DebtID = debt.ID
			if err := tx.Save(&debt.Payments[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID finds a debt by ID with its payments. Returns (nil, nil) when absent.
func (r *GormDebtRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.Debt, error) {
	var debt treasury.Debt
	if err := session(ctx, r.db).
		Preload("Payments").
		First(&debt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &debt, nil
}

// FindAll finds debts matching the filter with pagination
func (r *GormDebtRepository) FindAll(ctx context.Context, filter treasury.DebtFilter) ([]*treasury.Debt, int64, error) {
	var debts []*treasury.Debt
	var total int64

	query := session(ctx, r.db).Model(&treasury.Debt{})
	query = r.applyFilter(query, filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, DebtSortFields, "due_date")
	orderDir := ValidateSortOrder(filter.OrderDir)

	if err := query.
		Preload("Payments").
		Order(fmt.Sprintf("%s %s", orderBy, orderDir)).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&debts).Error; err != nil {
		return nil, 0, err
	}
	return debts, total, nil
}

// FindOpenDue finds open debts whose due date has passed, for the overdue sweep
func (r *GormDebtRepository) FindOpenDue(ctx context.Context, before time.Time) ([]*treasury.Debt, error) {
	var debts []*treasury.Debt
	if err := session(ctx, r.db).
		Preload("Payments").
		Where("status IN ? AND due_date < ?",
			[]treasury.DebtStatus{treasury.DebtStatusActive, treasury.DebtStatusPartial},
			before).
		Find(&debts).Error; err != nil {
		return nil, err
	}
	return debts, nil
}

// TotalOutstanding sums remaining amounts over open debts, optionally per creator
func (r *GormDebtRepository) TotalOutstanding(ctx context.Context, createdBy *uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := session(ctx, r.db).
		Model(&treasury.Debt{}).
		Select("COALESCE(SUM(total_amount - paid_amount), 0)").
		Where("status IN ?", []treasury.DebtStatus{
			treasury.DebtStatusActive, treasury.DebtStatusPartial, treasury.DebtStatusOverdue,
		})
	if createdBy != nil {
		query = query.Where("created_by = ?", *createdBy)
	}
	if err := query.Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// Delete removes a debt and its payments
func (r *GormDebtRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return session(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&treasury.DebtPayment{}, "debt_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&treasury.Debt{}, "id = ?", id).Error
	})
}

func (r *GormDebtRepository) applyFilter(query *gorm.DB, filter treasury.DebtFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.DueBefore != nil {
		query = query.Where("due_date <= ?", *filter.DueBefore)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("creditor_name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}
	return query
}

// Ensure GormDebtRepository implements the interface
var _ treasury.DebtRepository = (*GormDebtRepository)(nil)
