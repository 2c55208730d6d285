package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/backoffice/backend/internal/domain/banking"
	"github.com/backoffice/backend/internal/domain/identity"
	"github.com/backoffice/backend/internal/domain/payment"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/domain/shared/valueobject"
	"github.com/backoffice/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Policy holds workflow policy toggles for payment orders
type Policy struct {
	AllowCancelApproved bool
}

// OrderService provides application-level payment order operations
type OrderService struct {
	orders      payment.PaymentOrderRepository
	accounts    banking.BankAccountRepository
	ledger      banking.TransactionRepository
	uow         TransactionManager
	categorizer Categorizer
	policy      Policy
	logger      *zap.Logger
}

// NewOrderService creates a new OrderService. The categorizer is optional;
// when nil no category suggestions are produced.
func NewOrderService(
	orders payment.PaymentOrderRepository,
	accounts banking.BankAccountRepository,
	ledger banking.TransactionRepository,
	uow TransactionManager,
	categorizer Categorizer,
	policy Policy,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orders:      orders,
		accounts:    accounts,
		ledger:      ledger,
		uow:         uow,
		categorizer: categorizer,
		policy:      policy,
		logger:      logger,
	}
}

// OrderResponse represents a payment order in API responses
type OrderResponse struct {
	ID                uuid.UUID        `json:"id"`
	RecipientName     string           `json:"recipient_name"`
	RecipientIBAN     string           `json:"recipient_iban"`
	Amount            decimal.Decimal  `json:"amount"`
	Currency          string           `json:"currency"`
	Description       string           `json:"description"`
	Category          string           `json:"category"`
	DueDate           *time.Time       `json:"due_date,omitempty"`
	Status            string           `json:"status"`
	AIDescription     string           `json:"ai_description,omitempty"`
	AISuggestedCat    string           `json:"ai_suggested_category,omitempty"`
	ReceiptURL        string           `json:"receipt_url,omitempty"`
	BankAccountID     *uuid.UUID       `json:"bank_account_id,omitempty"`
	ApprovedBy        *uuid.UUID       `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time       `json:"approved_at,omitempty"`
	RejectedBy        *uuid.UUID       `json:"rejected_by,omitempty"`
	RejectionReason   string           `json:"rejection_reason,omitempty"`
	ActualAmount      *decimal.Decimal `json:"actual_amount,omitempty"`
	TotalFees         *decimal.Decimal `json:"total_fees,omitempty"`
	NetAmountDeducted *decimal.Decimal `json:"net_amount_deducted,omitempty"`
	CompletedBy       *uuid.UUID       `json:"completed_by,omitempty"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
	CreatedBy         uuid.UUID        `json:"created_by"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	Version           int              `json:"version"`
}

// OrderSummary is a lightweight order projection for list overviews
type OrderSummary struct {
	ID            uuid.UUID       `json:"id"`
	RecipientName string          `json:"recipient_name"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	Category      string          `json:"category"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CreateOrderRequest represents a request to create a payment order
type CreateOrderRequest struct {
	RecipientName string          `json:"recipient_name" binding:"required"`
	RecipientIBAN string          `json:"recipient_iban" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Currency      string          `json:"currency"`
	Description   string          `json:"description" binding:"required"`
	Category      string          `json:"category"`
	DueDate       *time.Time      `json:"due_date"`
}

// UpdateOrderRequest represents a request to update a pending payment order.
// Amount and currency are immutable and deliberately absent.
type UpdateOrderRequest struct {
	RecipientName string     `json:"recipient_name"`
	RecipientIBAN string     `json:"recipient_iban"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	DueDate       *time.Time `json:"due_date"`
}

// RejectOrderRequest represents a request to reject a payment order
type RejectOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CompleteOrderRequest represents a request to complete an order without
// a receipt, settling at face value with zero fees
type CompleteOrderRequest struct {
	BankAccountID uuid.UUID `json:"bank_account_id" binding:"required"`
}

// OrderListFilter defines filtering options for order list queries
type OrderListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status"`
	Category string `form:"category"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// Create creates a new payment order. Orders created by admins start
// approved since the creator could immediately approve them anyway.
func (s *OrderService) Create(ctx context.Context, actor identity.Actor, req CreateOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_order", "create")
	defer span.End()

	currency := valueobject.Currency(req.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	amount, err := valueobject.NewMoney(req.Amount, currency)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_AMOUNT", err.Error())
	}

	order, err := payment.NewPaymentOrder(
		actor.UserID,
		req.RecipientName,
		req.RecipientIBAN,
		amount,
		req.Description,
		payment.Category(req.Category),
		req.DueDate,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if actor.IsAdmin() {
		if err := order.Approve(actor.UserID); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	s.suggestCategory(ctx, order, req.Category)

	if err := s.orders.Save(ctx, order); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment order: %w", err)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, order.ID.String(),
		telemetry.SpanAttrOrderStatus, string(order.Status),
		telemetry.SpanAttrAmount, order.Amount.String(),
	)

	return toOrderResponse(order), nil
}

// suggestCategory asks the categorizer for an advisory category. Failures
// are logged and ignored; suggestions never block order creation.
func (s *OrderService) suggestCategory(ctx context.Context, order *payment.PaymentOrder, explicitCategory string) {
	if s.categorizer == nil {
		return
	}
	suggested, summary, err := s.categorizer.SuggestCategory(ctx, order.Description+" "+order.RecipientName)
	if err != nil {
		s.logger.Warn("category suggestion failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
		return
	}
	order.ApplyAISuggestion(summary, suggested)
	// Only fill the category when the creator did not pick one.
	if explicitCategory == "" && suggested.IsValid() {
		order.Category = suggested
	}
}

// GetByID gets a payment order, enforcing ownership for non-admins
func (s *OrderService) GetByID(ctx context.Context, actor identity.Actor, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.findAccessible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return toOrderResponse(order), nil
}

// List lists payment orders. Non-admin actors only see their own.
func (s *OrderService) List(ctx context.Context, actor identity.Actor, filter OrderListFilter) ([]OrderResponse, int64, error) {
	orders, total, err := s.findOrders(ctx, actor, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]OrderResponse, len(orders))
	for i, order := range orders {
		responses[i] = *toOrderResponse(order)
	}
	return responses, total, nil
}

// Summaries lists orders as lightweight projections, leaving out
// settlement and audit detail. Meant for overview screens that only
// need who gets paid, how much, and where the order stands.
func (s *OrderService) Summaries(ctx context.Context, actor identity.Actor, filter OrderListFilter) ([]OrderSummary, int64, error) {
	orders, total, err := s.findOrders(ctx, actor, filter)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]OrderSummary, len(orders))
	for i, order := range orders {
		summaries[i] = OrderSummary{
			ID:            order.ID,
			RecipientName: order.RecipientName,
			Amount:        order.Amount,
			Currency:      string(order.Currency),
			Status:        string(order.Status),
			Category:      string(order.Category),
			DueDate:       order.DueDate,
			CreatedAt:     order.CreatedAt,
		}
	}
	return summaries, total, nil
}

func (s *OrderService) findOrders(ctx context.Context, actor identity.Actor, filter OrderListFilter) ([]*payment.PaymentOrder, int64, error) {
	domainFilter := payment.OrderFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			Search:   filter.Search,
		},
	}
	if filter.Status != "" {
		status := payment.OrderStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown order status")
		}
		domainFilter.Status = &status
	}
	if filter.Category != "" {
		category := payment.Category(filter.Category)
		if !category.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_CATEGORY", "Unknown category")
		}
		domainFilter.Category = &category
	}
	if !actor.IsAdmin() {
		userID := actor.UserID
		domainFilter.CreatedBy = &userID
	}

	orders, total, err := s.orders.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payment orders: %w", err)
	}
	return orders, total, nil
}

// Update updates a pending payment order
func (s *OrderService) Update(ctx context.Context, actor identity.Actor, id uuid.UUID, req UpdateOrderRequest) (*OrderResponse, error) {
	order, err := s.findAccessible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if err := order.UpdateDetails(req.RecipientName, req.RecipientIBAN, req.Description, payment.Category(req.Category), req.DueDate); err != nil {
		return nil, err
	}

	if err := s.orders.SaveWithLock(ctx, order, order.Version-1); err != nil {
		return nil, fmt.Errorf("failed to update payment order: %w", err)
	}
	return toOrderResponse(order), nil
}

// Approve approves a pending payment order (admin only)
func (s *OrderService) Approve(ctx context.Context, actor identity.Actor, id uuid.UUID) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_order", "approve")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrOrderID, id.String())

	if err := actor.Authorize(identity.CapApproveOrders); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	order, err := s.findOrder(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := order.Approve(actor.UserID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.orders.SaveWithLock(ctx, order, order.Version-1); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment order: %w", err)
	}
	return toOrderResponse(order), nil
}

// Reject rejects a pending payment order (admin only)
func (s *OrderService) Reject(ctx context.Context, actor identity.Actor, id uuid.UUID, req RejectOrderRequest) (*OrderResponse, error) {
	if err := actor.Authorize(identity.CapApproveOrders); err != nil {
		return nil, err
	}

	order, err := s.findOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := order.Reject(actor.UserID, req.Reason); err != nil {
		return nil, err
	}

	if err := s.orders.SaveWithLock(ctx, order, order.Version-1); err != nil {
		return nil, fmt.Errorf("failed to save payment order: %w", err)
	}
	return toOrderResponse(order), nil
}

// Cancel cancels a payment order. Pending orders can be cancelled by their
// owner; cancelling approved orders is controlled by policy.
func (s *OrderService) Cancel(ctx context.Context, actor identity.Actor, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.findAccessible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if err := order.Cancel(actor.UserID, s.policy.AllowCancelApproved); err != nil {
		return nil, err
	}

	if err := s.orders.SaveWithLock(ctx, order, order.Version-1); err != nil {
		return nil, fmt.Errorf("failed to save payment order: %w", err)
	}
	return toOrderResponse(order), nil
}

// Complete completes an approved order without a receipt, settling at
// face value with zero fees (admin only).
func (s *OrderService) Complete(ctx context.Context, actor identity.Actor, id uuid.UUID, req CompleteOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_order", "complete")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, id.String(),
		telemetry.SpanAttrAccountID, req.BankAccountID.String(),
	)

	if err := actor.Authorize(identity.CapCompleteOrders); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	order, err := s.findOrder(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	settlement := payment.DirectSettlement(req.BankAccountID, order.Amount)
	if err := s.settle(ctx, actor, order, settlement); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.AddEvent(span, "order_settled",
		telemetry.SpanAttrAmount, order.NetAmountDeducted.String())
	return toOrderResponse(order), nil
}

// Delete deletes a payment order. Only pending or cancelled orders can be
// deleted, and only by an admin or their owner.
func (s *OrderService) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	order, err := s.findAccessible(ctx, actor, id)
	if err != nil {
		return err
	}
	if order.Status != payment.OrderStatusPending && order.Status != payment.OrderStatusCancelled {
		return shared.NewInvalidTransitionError(string(order.Status), "delete",
			string(payment.OrderStatusPending), string(payment.OrderStatusCancelled))
	}
	return s.orders.Delete(ctx, id)
}

// StatusCounts returns per-status order counts for dashboards
func (s *OrderService) StatusCounts(ctx context.Context, actor identity.Actor) (map[payment.OrderStatus]int64, error) {
	var createdBy *uuid.UUID
	if !actor.IsAdmin() {
		userID := actor.UserID
		createdBy = &userID
	}
	return s.orders.CountByStatus(ctx, createdBy)
}

// settle moves the money for an order: debits the bank account, completes
// the order, and writes exactly one ledger transaction. Optimistic locks
// on both aggregates keep concurrent settlements from double-spending.
func (s *OrderService) settle(ctx context.Context, actor identity.Actor, order *payment.PaymentOrder, settlement payment.Settlement) error {
	account, err := s.accounts.FindByID(ctx, settlement.BankAccountID)
	if err != nil {
		return fmt.Errorf("failed to get bank account: %w", err)
	}
	if account == nil {
		return shared.NewDomainError("ACCOUNT_NOT_FOUND", "Bank account not found")
	}
	if account.Currency != order.Currency {
		return shared.NewDomainError("CURRENCY_MISMATCH", "Order and account currencies differ")
	}

	// Guard state before touching the balance so a bad order leaves the
	// account untouched.
	if !order.Status.CanComplete() {
		return shared.NewInvalidTransitionError(string(order.Status), "complete", string(payment.OrderStatusApproved))
	}

	if err := account.Withdraw(settlement.NetDeducted); err != nil {
		return err
	}
	if err := order.Complete(actor.UserID, settlement); err != nil {
		return err
	}

	orderID := order.ID
	entry, err := banking.NewTransaction(
		account,
		banking.TransactionTypeExpense,
		settlement.NetDeducted,
		fmt.Sprintf("Payment to %s: %s", order.RecipientName, order.Description),
		banking.ReferencePaymentOrder,
		&orderID,
		actor.UserID,
	)
	if err != nil {
		return err
	}

	// All three writes commit or none do; a lock conflict on either
	// aggregate rolls the debit back.
	err = s.uow.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.accounts.SaveWithLock(ctx, account, account.Version-1); err != nil {
			return fmt.Errorf("failed to save bank account: %w", err)
		}
		if err := s.orders.SaveWithLock(ctx, order, order.Version-1); err != nil {
			return fmt.Errorf("failed to save payment order: %w", err)
		}
		if err := s.ledger.Save(ctx, entry); err != nil {
			return fmt.Errorf("failed to save transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("payment order settled",
		zap.String("order_id", order.ID.String()),
		zap.String("account_id", account.ID.String()),
		zap.String("net_deducted", settlement.NetDeducted.String()),
	)
	return nil
}

func (s *OrderService) findOrder(ctx context.Context, id uuid.UUID) (*payment.PaymentOrder, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment order: %w", err)
	}
	if order == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment order not found")
	}
	return order, nil
}

func (s *OrderService) findAccessible(ctx context.Context, actor identity.Actor, id uuid.UUID) (*payment.PaymentOrder, error) {
	order, err := s.findOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.CreatedBy) {
		return nil, shared.ErrForbidden
	}
	return order, nil
}

func toOrderResponse(order *payment.PaymentOrder) *OrderResponse {
	resp := &OrderResponse{
		ID:              order.ID,
		RecipientName:   order.RecipientName,
		RecipientIBAN:   order.RecipientIBAN,
		Amount:          order.Amount,
		Currency:        string(order.Currency),
		Description:     order.Description,
		Category:        string(order.Category),
		DueDate:         order.DueDate,
		Status:          string(order.Status),
		AIDescription:   order.AIDescription,
		ReceiptURL:      order.ReceiptURL,
		BankAccountID:   order.BankAccountID,
		ApprovedBy:      order.ApprovedBy,
		ApprovedAt:      order.ApprovedAt,
		RejectedBy:      order.RejectedBy,
		RejectionReason: order.RejectionReason,
		CompletedBy:     order.CompletedBy,
		CompletedAt:     order.CompletedAt,
		CreatedBy:       order.CreatedBy,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
		Version:         order.Version,
	}
	if order.AISuggestedCat != nil {
		resp.AISuggestedCat = string(*order.AISuggestedCat)
	}
	if order.IsCompleted() {
		actual := order.ActualAmount
		fees := order.TotalFees
		net := order.NetAmountDeducted
		resp.ActualAmount = &actual
		resp.TotalFees = &fees
		resp.NetAmountDeducted = &net
	}
	return resp
}
