package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/backoffice/backend/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormIncomeRecordRepository implements IncomeRecordRepository using GORM
type GormIncomeRecordRepository struct {
	db *gorm.DB
}

// NewGormIncomeRecordRepository creates a new GormIncomeRecordRepository
func NewGormIncomeRecordRepository(db *gorm.DB) *GormIncomeRecordRepository {
	return &GormIncomeRecordRepository{db: db}
}

// Save creates or updates an income record
func (r *GormIncomeRecordRepository) Save(ctx context.Context, record *treasury.IncomeRecord) error {
	return session(ctx, r.db).Save(record).Error
}

// FindByID finds an income record by ID. Returns (nil, nil) when absent.
func (r *GormIncomeRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.IncomeRecord, error) {
	var record treasury.IncomeRecord
	if err := session(ctx, r.db).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// FindAll finds income records matching the filter with pagination
func (r *GormIncomeRecordRepository) FindAll(ctx context.Context, filter treasury.IncomeFilter) ([]*treasury.IncomeRecord, int64, error) {
	var records []*treasury.IncomeRecord
	var total int64

	query := session(ctx, r.db).Model(&treasury.IncomeRecord{})
	query = r.applyFilter(query, filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, IncomeRecordSortFields, "received_on")
	orderDir := ValidateSortOrder(filter.OrderDir)

	if err := query.
		Order(fmt.Sprintf("%s %s", orderBy, orderDir)).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// SumBySource sums income amounts per source within a date range
func (r *GormIncomeRecordRepository) SumBySource(ctx context.Context, from, to time.Time) (map[treasury.IncomeSource]decimal.Decimal, error) {
	var rows []struct {
		Source treasury.IncomeSource
		Total  decimal.Decimal
	}

	if err := session(ctx, r.db).
		Model(&treasury.IncomeRecord{}).
		Select("source, COALESCE(SUM(amount), 0) as total").
		Where("received_on >= ? AND received_on <= ?", from, to).
		Group("source").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	sums := make(map[treasury.IncomeSource]decimal.Decimal, len(rows))
	for _, row := range rows {
		sums[row.Source] = row.Total
	}
	return sums, nil
}

// Delete removes an income record
func (r *GormIncomeRecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return session(ctx, r.db).Delete(&treasury.IncomeRecord{}, "id = ?", id).Error
}

func (r *GormIncomeRecordRepository) applyFilter(query *gorm.DB, filter treasury.IncomeFilter) *gorm.DB {
	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}
	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.From != nil {
		query = query.Where("received_on >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("received_on <= ?", *filter.To)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("payer_name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}
	return query
}

// Ensure GormIncomeRecordRepository implements the interface
var _ treasury.IncomeRecordRepository = (*GormIncomeRecordRepository)(nil)
