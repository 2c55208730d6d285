package payment

import (
	"context"
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderFilter narrows payment order queries. A nil CreatedBy means all
// users (admin view); non-admin callers must set it to their own ID.
type OrderFilter struct {
	shared.Filter
	Status    *OrderStatus
	Category  *Category
	CreatedBy *uuid.UUID
	DueBefore *time.Time
	DueAfter  *time.Time
}

// PaymentOrderRepository defines the persistence interface for payment orders
type PaymentOrderRepository interface {
	Save(ctx context.Context, order *PaymentOrder) error
	SaveWithLock(ctx context.Context, order *PaymentOrder, expectedVersion int) error
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentOrder, error)
	FindAll(ctx context.Context, filter OrderFilter) ([]*PaymentOrder, int64, error)
	CountByStatus(ctx context.Context, createdBy *uuid.UUID) (map[OrderStatus]int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
