package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/domain/treasury"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCheckRepository implements CheckRepository using GORM
type GormCheckRepository struct {
	db *gorm.DB
}

// NewGormCheckRepository creates a new GormCheckRepository
func NewGormCheckRepository(db *gorm.DB) *GormCheckRepository {
	return &GormCheckRepository{db: db}
}

// Save creates or updates a check together with its operation history
func (r *GormCheckRepository) Save(ctx context.Context, check *treasury.Check) error {
	return session(ctx, r.db).Session(&gorm.Session{FullSaveAssociations: true}).Save(check).Error
}

// SaveWithLock updates a check with optimistic locking. Operations are
// append-only children and are saved in the same transaction.
func (r *GormCheckRepository) SaveWithLock(ctx context.Context, check *treasury.Check, expectedVersion int) error {
	return session(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(check).
			Where("id = ? AND version = ?", check.ID, expectedVersion).
			Select("*").
			Omit(clause.Associations).
			Updates(check)

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		for i := range check.Operations {
			check.Operations[i].CheckID = check.ID
			if err := tx.Save(&check.Operations[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID finds a check by ID with its operations. Returns (nil, nil) when absent.
func (r *GormCheckRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.Check, error) {
	var check treasury.Check
	if err := session(ctx, r.db).
		Preload("Operations").
		First(&check, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &check, nil
}

// FindAll finds checks matching the filter with pagination
func (r *GormCheckRepository) FindAll(ctx context.Context, filter treasury.CheckFilter) ([]*treasury.Check, int64, error) {
	var checks []*treasury.Check
	var total int64

	query := session(ctx, r.db).Model(&treasury.Check{})
	query = r.applyFilter(query, filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, CheckSortFields, "due_date")
	orderDir := ValidateSortOrder(filter.OrderDir)

	if err := query.
		Preload("Operations").
		Order(fmt.Sprintf("%s %s", orderBy, orderDir)).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&checks).Error; err != nil {
		return nil, 0, err
	}
	return checks, total, nil
}

// Delete removes a check and its operations
func (r *GormCheckRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return session(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&treasury.CheckOperation{}, "check_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&treasury.Check{}, "id = ?", id).Error
	})
}

func (r *GormCheckRepository) applyFilter(query *gorm.DB, filter treasury.CheckFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Direction != nil {
		query = query.Where("direction = ?", *filter.Direction)
	}
	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.DueBefore != nil {
		query = query.Where("due_date <= ?", *filter.DueBefore)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("check_number ILIKE ? OR counterparty ILIKE ?", pattern, pattern)
	}
	return query
}

// Ensure GormCheckRepository implements the interface
var _ treasury.CheckRepository = (*GormCheckRepository)(nil)
