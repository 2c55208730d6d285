package banking

import (
	"context"
	"fmt"
	"time"

	"github.com/backoffice/backend/internal/domain/banking"
	"github.com/backoffice/backend/internal/domain/identity"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/domain/shared/valueobject"
	"github.com/backoffice/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransactionManager runs a function inside a single database
// transaction. Repository calls made with the context passed to fn share
// that transaction.
type TransactionManager interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// AccountService provides application-level bank account operations
type AccountService struct {
	accounts banking.BankAccountRepository
	ledger   banking.TransactionRepository
	uow      TransactionManager
	logger   *zap.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(
	accounts banking.BankAccountRepository,
	ledger banking.TransactionRepository,
	uow TransactionManager,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		ledger:   ledger,
		uow:      uow,
		logger:   logger,
	}
}

// AccountResponse represents a bank account in API responses
type AccountResponse struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	BankName      string          `json:"bank_name"`
	IBAN          string          `json:"iban"`
	AccountNumber string          `json:"account_number,omitempty"`
	Currency      string          `json:"currency"`
	Balance       decimal.Decimal `json:"balance"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

// CreateAccountRequest represents a request to create a bank account
type CreateAccountRequest struct {
	Name           string          `json:"name" binding:"required"`
	BankName       string          `json:"bank_name" binding:"required"`
	IBAN           string          `json:"iban" binding:"required"`
	AccountNumber  string          `json:"account_number"`
	Currency       string          `json:"currency"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// AdjustBalanceRequest represents a manual balance correction
type AdjustBalanceRequest struct {
	NewBalance decimal.Decimal `json:"new_balance" binding:"required"`
	Note       string          `json:"note"`
}

// TransactionResponse represents a ledger entry in API responses
type TransactionResponse struct {
	ID            uuid.UUID       `json:"id"`
	BankAccountID uuid.UUID       `json:"bank_account_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Description   string          `json:"description,omitempty"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   *uuid.UUID      `json:"reference_id,omitempty"`
	RecordedBy    uuid.UUID       `json:"recorded_by"`
	OccurredOn    time.Time       `json:"occurred_on"`
}

// TransactionListFilter defines filtering options for ledger queries
type TransactionListFilter struct {
	BankAccountID *uuid.UUID `form:"bank_account_id"`
	Type          string     `form:"type"`
	From          *time.Time `form:"from"`
	To            *time.Time `form:"to"`
	Page          int        `form:"page"`
	PageSize      int        `form:"page_size"`
}

// Create creates a new bank account (admin only)
func (s *AccountService) Create(ctx context.Context, actor identity.Actor, req CreateAccountRequest) (*AccountResponse, error) {
	if err := actor.Authorize(identity.CapManageAccounts); err != nil {
		return nil, err
	}

	account, err := banking.NewBankAccount(
		actor.UserID,
		req.Name,
		req.BankName,
		req.IBAN,
		req.AccountNumber,
		valueobject.Currency(req.Currency),
		req.OpeningBalance,
	)
	if err != nil {
		return nil, err
	}

	existing, err := s.accounts.FindByIBAN(ctx, account.IBAN)
	if err != nil {
		return nil, fmt.Errorf("failed to check IBAN uniqueness: %w", err)
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "An account with this IBAN already exists")
	}

	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save bank account: %w", err)
	}

	s.logger.Info("bank account created",
		zap.String("account_id", account.ID.String()),
		zap.String("iban", account.IBAN))

	return toAccountResponse(account), nil
}

// GetByID gets a bank account by ID
func (s *AccountService) GetByID(ctx context.Context, id uuid.UUID) (*AccountResponse, error) {
	account, err := s.findAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	return toAccountResponse(account), nil
}

// List lists bank accounts
func (s *AccountService) List(ctx context.Context, filter shared.Filter) ([]AccountResponse, int64, error) {
	accounts, total, err := s.accounts.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bank accounts: %w", err)
	}
	responses := make([]AccountResponse, len(accounts))
	for i, account := range accounts {
		responses[i] = *toAccountResponse(account)
	}
	return responses, total, nil
}

// AdjustBalance corrects an account balance and writes an adjustment
// entry to the ledger (admin only)
func (s *AccountService) AdjustBalance(ctx context.Context, actor identity.Actor, id uuid.UUID, req AdjustBalanceRequest) (*AccountResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bank_account", "adjust_balance")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrAccountID, id.String())

	if err := actor.Authorize(identity.CapManageAccounts); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	account, err := s.findAccount(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	delta := req.NewBalance.Sub(account.Balance)
	if err := account.Adjust(req.NewBalance); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	note := req.Note
	if note == "" {
		note = "Manual balance adjustment"
	}
	tx, err := banking.NewTransaction(account, banking.TransactionTypeAdjustment, delta, note, banking.ReferenceManual, nil, actor.UserID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.uow.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.accounts.SaveWithLock(ctx, account, account.Version-1); err != nil {
			return fmt.Errorf("failed to save bank account: %w", err)
		}
		if err := s.ledger.Save(ctx, tx); err != nil {
			return fmt.Errorf("failed to save transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return toAccountResponse(account), nil
}

// Freeze freezes an account (admin only)
func (s *AccountService) Freeze(ctx context.Context, actor identity.Actor, id uuid.UUID) (*AccountResponse, error) {
	return s.statusChange(ctx, actor, id, (*banking.BankAccount).Freeze)
}

// Unfreeze reactivates a frozen account (admin only)
func (s *AccountService) Unfreeze(ctx context.Context, actor identity.Actor, id uuid.UUID) (*AccountResponse, error) {
	return s.statusChange(ctx, actor, id, (*banking.BankAccount).Unfreeze)
}

// Close closes an account with zero balance (admin only)
func (s *AccountService) Close(ctx context.Context, actor identity.Actor, id uuid.UUID) (*AccountResponse, error) {
	return s.statusChange(ctx, actor, id, (*banking.BankAccount).Close)
}

func (s *AccountService) statusChange(ctx context.Context, actor identity.Actor, id uuid.UUID, op func(*banking.BankAccount) error) (*AccountResponse, error) {
	if err := actor.Authorize(identity.CapManageAccounts); err != nil {
		return nil, err
	}
	account, err := s.findAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := op(account); err != nil {
		return nil, err
	}
	if err := s.accounts.SaveWithLock(ctx, account, account.Version-1); err != nil {
		return nil, fmt.Errorf("failed to save bank account: %w", err)
	}
	return toAccountResponse(account), nil
}

// ListTransactions lists ledger entries
func (s *AccountService) ListTransactions(ctx context.Context, filter TransactionListFilter) ([]TransactionResponse, int64, error) {
	domainFilter := banking.TransactionFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
		},
		BankAccountID: filter.BankAccountID,
		From:          filter.From,
		To:            filter.To,
	}
	if filter.Type != "" {
		txType := banking.TransactionType(filter.Type)
		if !txType.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_TYPE", "Unknown transaction type")
		}
		domainFilter.Type = &txType
	}

	txs, total, err := s.ledger.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	responses := make([]TransactionResponse, len(txs))
	for i, tx := range txs {
		responses[i] = *toTransactionResponse(tx)
	}
	return responses, total, nil
}

func (s *AccountService) findAccount(ctx context.Context, id uuid.UUID) (*banking.BankAccount, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get bank account: %w", err)
	}
	if account == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Bank account not found")
	}
	return account, nil
}

func toAccountResponse(account *banking.BankAccount) *AccountResponse {
	return &AccountResponse{
		ID:            account.ID,
		Name:          account.Name,
		BankName:      account.BankName,
		IBAN:          account.IBAN,
		AccountNumber: account.AccountNumber,
		Currency:      string(account.Currency),
		Balance:       account.Balance,
		Status:        string(account.Status),
		CreatedAt:     account.CreatedAt,
		UpdatedAt:     account.UpdatedAt,
		Version:       account.Version,
	}
}

func toTransactionResponse(tx *banking.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:            tx.ID,
		BankAccountID: tx.BankAccountID,
		Type:          string(tx.Type),
		Amount:        tx.Amount,
		BalanceAfter:  tx.BalanceAfter,
		Description:   tx.Description,
		ReferenceType: string(tx.ReferenceType),
		ReferenceID:   tx.ReferenceID,
		RecordedBy:    tx.RecordedBy,
		OccurredOn:    tx.OccurredOn,
	}
}
