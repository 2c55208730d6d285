package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/backoffice/backend/internal/domain/payment"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentOrderRepository implements PaymentOrderRepository using GORM
type GormPaymentOrderRepository struct {
	db *gorm.DB
}

// NewGormPaymentOrderRepository creates a new GormPaymentOrderRepository
func NewGormPaymentOrderRepository(db *gorm.DB) *GormPaymentOrderRepository {
	return &GormPaymentOrderRepository{db: db}
}

// Save creates or updates a payment order
func (r *GormPaymentOrderRepository) Save(ctx context.Context, order *payment.PaymentOrder) error {
	return session(ctx, r.db).Save(order).Error
}

// SaveWithLock updates a payment order with optimistic locking. The update
// only succeeds when the stored row still carries expectedVersion.
func (r *GormPaymentOrderRepository) SaveWithLock(ctx context.Context, order *payment.PaymentOrder, expectedVersion int) error {
	result := session(ctx, r.db).
		Model(order).
		Where("id = ? AND version = ?", order.ID, expectedVersion).
		Select("*").
		Updates(order)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds a payment order by ID. Returns (nil, nil) when absent.
func (r *GormPaymentOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.PaymentOrder, error) {
	var order payment.PaymentOrder
	if err := session(ctx, r.db).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// FindAll finds payment orders matching the filter with pagination
func (r *GormPaymentOrderRepository) FindAll(ctx context.Context, filter payment.OrderFilter) ([]*payment.PaymentOrder, int64, error) {
	var orders []*payment.PaymentOrder
	var total int64

	base := session(ctx, r.db).Model(&payment.PaymentOrder{})
	base = r.applyFilter(base, filter)

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, PaymentOrderSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	if err := base.
		Order(fmt.Sprintf("%s %s", orderBy, orderDir)).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// CountByStatus counts orders grouped by status, optionally scoped to a creator
func (r *GormPaymentOrderRepository) CountByStatus(ctx context.Context, createdBy *uuid.UUID) (map[payment.OrderStatus]int64, error) {
	var rows []struct {
		Status payment.OrderStatus
		Count  int64
	}

	query := session(ctx, r.db).
		Model(&payment.PaymentOrder{}).
		Select("status, COUNT(*) as count").
		Group("status")
	if createdBy != nil {
		query = query.Where("created_by = ?", *createdBy)
	}

	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[payment.OrderStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Delete removes a payment order
func (r *GormPaymentOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return session(ctx, r.db).Delete(&payment.PaymentOrder{}, "id = ?", id).Error
}

func (r *GormPaymentOrderRepository) applyFilter(query *gorm.DB, filter payment.OrderFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.DueBefore != nil {
		query = query.Where("due_date <= ?", *filter.DueBefore)
	}
	if filter.DueAfter != nil {
		query = query.Where("due_date >= ?", *filter.DueAfter)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("recipient_name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}
	return query
}

// Ensure GormPaymentOrderRepository implements the interface
var _ payment.PaymentOrderRepository = (*GormPaymentOrderRepository)(nil)
