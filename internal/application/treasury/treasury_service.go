package treasury

import (
	"context"
	"fmt"
	"time"

	"github.com/backoffice/backend/internal/domain/banking"
	"github.com/backoffice/backend/internal/domain/identity"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/domain/shared/valueobject"
	"github.com/backoffice/backend/internal/domain/treasury"
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

// TreasuryService provides application-level check, debt, and income
// operations. Money movement always goes through a bank account and
// leaves a ledger entry.
type TreasuryService struct {
	checks   treasury.CheckRepository
	debts    treasury.DebtRepository
	income   treasury.IncomeRecordRepository
	accounts banking.BankAccountRepository
	ledger   banking.TransactionRepository
	uow      TransactionManager
	logger   *zap.Logger
}

// NewTreasuryService creates a new TreasuryService
func NewTreasuryService(
	checks treasury.CheckRepository,
	debts treasury.DebtRepository,
	income treasury.IncomeRecordRepository,
	accounts banking.BankAccountRepository,
	ledger banking.TransactionRepository,
	uow TransactionManager,
	logger *zap.Logger,
) *TreasuryService {
	return &TreasuryService{
		checks:   checks,
		debts:    debts,
		income:   income,
		accounts: accounts,
		ledger:   ledger,
		uow:      uow,
		logger:   logger,
	}
}

// ===================== Check Operations =====================

// CheckResponse represents a check in API responses
type CheckResponse struct {
	ID           uuid.UUID       `json:"id"`
	CheckNumber  string          `json:"check_number"`
	BankName     string          `json:"bank_name"`
	Counterparty string          `json:"counterparty"`
	Direction    string          `json:"direction"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	IssueDate    time.Time       `json:"issue_date"`
	DueDate      time.Time       `json:"due_date"`
	Status       string          `json:"status"`
	CashedAmount decimal.Decimal `json:"cashed_amount"`
	CreatedBy    uuid.UUID       `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Version      int             `json:"version"`
}

// CreateCheckRequest represents a request to register a check
type CreateCheckRequest struct {
	CheckNumber  string          `json:"check_number" binding:"required"`
	BankName     string          `json:"bank_name" binding:"required"`
	Counterparty string          `json:"counterparty" binding:"required"`
	Direction    string          `json:"direction" binding:"required"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	Currency     string          `json:"currency"`
	IssueDate    time.Time       `json:"issue_date" binding:"required"`
	DueDate      time.Time       `json:"due_date" binding:"required"`
}

// CashCheckRequest represents cashing a check at face value
type CashCheckRequest struct {
	BankAccountID uuid.UUID `json:"bank_account_id" binding:"required"`
}

// EarlyCashCheckRequest represents cashing a check before due date at a discount
type EarlyCashCheckRequest struct {
	BankAccountID  uuid.UUID       `json:"bank_account_id" binding:"required"`
	ReceivedAmount decimal.Decimal `json:"received_amount" binding:"required"`
}

// CheckNoteRequest carries a free-form note for return/cancel/lost operations
type CheckNoteRequest struct {
	Note string `json:"note"`
}

// CheckListFilter defines filtering options for check list queries
type CheckListFilter struct {
	Status    string `form:"status"`
	Direction string `form:"direction"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}

// CreateCheck registers a new check
func (s *TreasuryService) CreateCheck(ctx context.Context, actor identity.Actor, req CreateCheckRequest) (*CheckResponse, error) {
	if err := actor.Authorize(identity.CapManageTreasury); err != nil {
		return nil, err
	}

	currency := valueobject.Currency(req.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	amount, err := valueobject.NewMoney(req.Amount, currency)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_AMOUNT", err.Error())
	}

	check, err := treasury.NewCheck(
		actor.UserID,
		req.CheckNumber,
		req.BankName,
		req.Counterparty,
		treasury.CheckDirection(req.Direction),
		amount,
		req.IssueDate,
		req.DueDate,
	)
	if err != nil {
		return nil, err
	}

	if err := s.checks.Save(ctx, check); err != nil {
		return nil, fmt.Errorf("failed to save check: %w", err)
	}
	return toCheckResponse(check), nil
}

// GetCheck gets a check by ID
func (s *TreasuryService) GetCheck(ctx context.Context, actor identity.Actor, id uuid.UUID) (*CheckResponse, error) {
	check, err := s.findCheck(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return toCheckResponse(check), nil
}

// ListChecks lists checks. Non-admin actors only see their own.
func (s *TreasuryService) ListChecks(ctx context.Context, actor identity.Actor, filter CheckListFilter) ([]CheckResponse, int64, error) {
	domainFilter := treasury.CheckFilter{
		Filter: shared.Filter{Page: filter.Page, PageSize: filter.PageSize},
	}
	if filter.Status != "" {
		status := treasury.CheckStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown check status")
		}
		domainFilter.Status = &status
	}
	if filter.Direction != "" {
		direction := treasury.CheckDirection(filter.Direction)
		if !direction.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_DIRECTION", "Unknown check direction")
		}
		domainFilter.Direction = &direction
	}
	if !actor.IsAdmin() {
		userID := actor.UserID
		domainFilter.CreatedBy = &userID
	}

	checks, total, err := s.checks.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list checks: %w", err)
	}
	responses := make([]CheckResponse, len(checks))
	for i, check := range checks {
		responses[i] = *toCheckResponse(check)
	}
	return responses, total, nil
}

// CashCheck cashes a due check at face value. Received checks credit the
// account; issued checks debit it.
func (s *TreasuryService) CashCheck(ctx context.Context, actor identity.Actor, id uuid.UUID, req CashCheckRequest) (*CheckResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "check", "cash")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrCheckID, id.String())

	if err := actor.Authorize(identity.CapManageTreasury); err != nil {
		return nil, err
	}
	check, err := s.findCheck(ctx, actor, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	account, err := s.findAccount(ctx, req.BankAccountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := check.Cash(actor.UserID, account.ID, time.Now()); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.uow.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.moveCheckMoney(ctx, actor, check, account, check.Amount); err != nil {
			return err
		}
		if err := s.checks.SaveWithLock(ctx, check, check.Version-1); err != nil {
			return fmt.Errorf("failed to save check: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return toCheckResponse(check), nil
}

// EarlyCashCheck cashes a check before its due date at a discounted amount
func (s *TreasuryService) EarlyCashCheck(ctx context.Context, actor identity.Actor, id uuid.UUID, req EarlyCashCheckRequest) (*CheckResponse, error) {
	if err := actor.Authorize(identity.CapManageTreasury); err != nil {
		return nil, err
	}
	check, err := s.findCheck(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	account, err := s.findAccount(ctx, req.BankAccountID)
	if err != nil {
		return nil, err
	}

	if err := check.EarlyCash(actor.UserID, account.ID, req.ReceivedAmount); err != nil {
		return nil, err
	}

	err = s.uow.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.moveCheckMoney(ctx, actor, check, account, req.ReceivedAmount); err != nil {
			return err
		}
		if err := s.checks.SaveWithLock(ctx, check, check.Version-1); err != nil {
			return fmt.Errorf("failed to save check: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toCheckResponse(check), nil
}

// ReturnCheck marks a check as bounced
func (s *TreasuryService) ReturnCheck(ctx context.Context, actor identity.Actor, id uuid.UUID, req CheckNoteRequest) (*CheckResponse, error) {
	return s.checkStatusChange(ctx, actor, id, func(c *treasury.Check) error {
		return c.Return(actor.UserID, req.Note)
	})
}

// CancelCheck voids a check
func (s *TreasuryService) CancelCheck(ctx context.Context, actor identity.Actor, id uuid.UUID, req CheckNoteRequest) (*CheckResponse, error) {
	return s.checkStatusChange(ctx, actor, id, func(c *treasury.Check) error {
		return c.Cancel(actor.UserID, req.Note)
	})
}

// MarkCheckLost records a check as lost
func (s *TreasuryService) MarkCheckLost(ctx context.Context, actor identity.Actor, id uuid.UUID, req CheckNoteRequest) (*CheckResponse, error) {
	return s.checkStatusChange(ctx, actor, id, func(c *treasury.Check) error {
		return c.MarkLost(actor.UserID, req.Note)
	})
}

func (s *TreasuryService) checkStatusChange(ctx context.Context, actor identity.Actor, id uuid.UUID, op func(*treasury.Check) error) (*CheckResponse, error) {
	if err := actor.Authorize(identity.CapManageTreasury); err != nil {
		return nil, err
	}
	check, err := s.findCheck(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := op(check); err != nil {
		return nil, err
	}
	if err := s.checks.SaveWithLock(ctx, check, check.Version-1); err != nil {
		return nil, fmt.Errorf("failed to save check: %w", err)
	}
	return toCheckResponse(check), nil
}

// moveCheckMoney applies the cashing movement: received checks deposit,
// issued checks withdraw. A matching ledger entry is written either way.
func (s *TreasuryService) moveCheckMoney(ctx context.Context, actor identity.Actor, check *treasury.Check, account *banking.BankAccount, amount decimal.Decimal) error {
	txType := banking.TransactionTypeIncome
	if check.Direction == treasury.CheckIssued {
		txType = banking.TransactionTypeExpense
		if err := account.Withdraw(amount); err != nil {
			return err
		}
	} else {
		if err := account.Deposit(amount); err != nil {
			return err
		}
	}

	checkID := check.ID
	tx, err := banking.NewTransaction(
		account,
		txType,
		amount,
		fmt.Sprintf("Check %s (%s)", check.CheckNumber, check.Counterparty),
		banking.ReferenceCheck,
		&checkID,
		actor.UserID,
	)
	if err != nil {
		return err
	}

	if err := s.accounts.SaveWithLock(ctx, account, account.Version-1); err != nil {
		return fmt.Errorf("failed to save bank account: %w", err)
	}
	if err := s.ledger.Save(ctx, tx); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

// ===================== Debt Operations =====================

// DebtResponse represents a debt in API responses
type DebtResponse struct {
	ID              uuid.UUID       `json:"id"`
	CreditorName    string          `json:"creditor_name"`
	Description     string          `json:"description,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Currency        string          `json:"currency"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	Status          string          `json:"status"`
	PaymentCount    int             `json:"payment_count"`
	CreatedBy       uuid.UUID       `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Version         int             `json:"version"`
}

// CreateDebtRequest represents a request to register a debt
type CreateDebtRequest struct {
	CreditorName string          `json:"creditor_name" binding:"required"`
	Description  string          `json:"description"`
	TotalAmount  decimal.Decimal `json:"total_amount" binding:"required"`
	Currency     string          `json:"currency"`
	DueDate      *time.Time      `json:"due_date"`
}

// PayDebtRequest represents an installment against a debt. When a bank
// account is given the installment debits it and leaves a ledger entry.
type PayDebtRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	BankAccountID *uuid.UUID      `json:"bank_account_id"`
	Note          string          `json:"note"`
}

// DebtListFilter defines filtering options for debt list queries
type DebtListFilter struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// CreateDebt registers a new debt
func (s *TreasuryService) CreateDebt(ctx context.Context, actor identity.Actor, req CreateDebtRequest) (*DebtResponse, error) {
	if err := actor.Authorize(identity.CapManageTreasury); err != nil {
		return nil, err
	}

	currency := valueobject.Currency(req.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	total, err := valueobject.NewMoney(req.TotalAmount, currency)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_AMOUNT", err.Error())
	}

	debt, err := treasury.NewDebt(actor.UserID, req.CreditorName, req.Description, total, req.DueDate)
	if err != nil {
		return nil, err
	}

	if err := s.debts.Save(ctx, debt); err != nil {
		return nil, fmt.Errorf("failed to save debt: %w", err)
	}
	return toDebtResponse(debt), nil
}

// GetDebt gets a debt by ID
func (s *TreasuryService) GetDebt(ctx context.Context, actor identity.Actor, id uuid.UUID) (*DebtResponse, error) {
	debt, err := s.findDebt(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return toDebtResponse(debt), nil
}

// ListDebts lists debts. Non-admin actors only see their own.
func (s *TreasuryService) ListDebts(ctx context.Context, actor identity.Actor, filter DebtListFilter) ([]DebtResponse, int64, error) {
	domainFilter := treasury.DebtFilter{
		Filter: shared.Filter{Page: filter.Page, PageSize: filter.PageSize},
	}
	if filter.Status != "" {
		status := treasury.DebtStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown debt status")
		}
		domainFilter.Status = &status
	}
	if !actor.IsAdmin() {
		userID := actor.UserID
		domainFilter.CreatedBy = &userID
	}

	debts, total, err := s.debts.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list debts: %w", err)
	}
	responses := make([]DebtResponse, len(debts))
	for i, debt := range debts {
		responses[i] = *toDebtResponse(debt)
	}
	return responses, total, nil
}

// PayDebt records an installment against a debt
func (s *TreasuryService) PayDebt(ctx context.Context, actor identity.Actor, id uuid.UUID, req PayDebtRequest) (*DebtResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "debt", "pay")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrDebtID, id.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	if err := actor.Authorize(identity.CapManageTreasury); err != nil {
		return nil, err
	}
	debt, err := s.findDebt(ctx, actor, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	// Debit the account first so an insufficient balance rejects the
	// installment before the debt aggregate changes.
	var account *banking.BankAccount
	if req.BankAccountID != nil {
		account, err = s.findAccount(ctx, *req.BankAccountID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if err := account.Withdraw(req.Amount); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	payment, err := debt.RecordPayment(actor.UserID, req.Amount, req.BankAccountID, req.Note)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var entry *banking.Transaction
	if account != nil {
		debtPaymentID := payment.ID
		entry, err = banking.NewTransaction(
			account,
			banking.TransactionTypeExpense,
			req.Amount,
			fmt.Sprintf("Debt payment to %s", debt.CreditorName),
			banking.ReferenceDebtPayment,
			&debtPaymentID,
			actor.UserID,
		)
		if err != nil {
			return nil, err
		}
	}

	err = s.uow.InTransaction(ctx, func(ctx context.Context) error {
		if account != nil {
			if err := s.accounts.SaveWithLock(ctx, account, account.Version-1); err != nil {
				return fmt.Errorf("failed to save bank account: %w", err)
			}
			if err := s.ledger.Save(ctx, entry); err != nil {
				return fmt.Errorf("failed to save transaction: %w", err)
			}
		}
		if err := s.debts.SaveWithLock(ctx, debt, debt.Version-1); err != nil {
			return fmt.Errorf("failed to save debt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toDebtResponse(debt), nil
}

// CancelDebt voids a debt with no recorded payments
func (s *TreasuryService) CancelDebt(ctx context.Context, actor identity.Actor, id uuid.UUID) (*DebtResponse, error) {
	if err := actor.Authorize(identity.CapManageTreasury); err != nil {
		return nil, err
	}
	debt, err := s.findDebt(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := debt.Cancel(); err != nil {
		return nil, err
	}
	if err := s.debts.SaveWithLock(ctx, debt, debt.Version-1); err != nil {
		return nil, fmt.Errorf("failed to save debt: %w", err)
	}
	return toDebtResponse(debt), nil
}

// SweepOverdueDebts flags open debts whose due date has passed. Intended
// for a periodic job; returns how many debts were flagged.
func (s *TreasuryService) SweepOverdueDebts(ctx context.Context) (int, error) {
	now := time.Now()
	due, err := s.debts.FindOpenDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to find due debts: %w", err)
	}

	flagged := 0
	for _, debt := range due {
		if err := debt.MarkOverdue(now); err != nil {
			continue
		}
		if err := s.debts.SaveWithLock(ctx, debt, debt.Version-1); err != nil {
			s.logger.Warn("failed to mark debt overdue",
				zap.String("debt_id", debt.ID.String()),
				zap.Error(err))
			continue
		}
		flagged++
	}
	return flagged, nil
}

// ===================== Income Operations =====================

// IncomeResponse represents an income record in API responses
type IncomeResponse struct {
	ID            uuid.UUID       `json:"id"`
	PayerName     string          `json:"payer_name"`
	Description   string          `json:"description,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Source        string          `json:"source"`
	ReceivedOn    time.Time       `json:"received_on"`
	BankAccountID *uuid.UUID      `json:"bank_account_id,omitempty"`
	DepositedAt   *time.Time      `json:"deposited_at,omitempty"`
	CreatedBy     uuid.UUID       `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CreateIncomeRequest represents a request to record income
type CreateIncomeRequest struct {
	PayerName   string          `json:"payer_name" binding:"required"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Currency    string          `json:"currency"`
	Source      string          `json:"source"`
	ReceivedOn  time.Time       `json:"received_on"`
}

// DepositIncomeRequest ties recorded income to the credited bank account
type DepositIncomeRequest struct {
	BankAccountID uuid.UUID `json:"bank_account_id" binding:"required"`
}

// IncomeListFilter defines filtering options for income list queries
type IncomeListFilter struct {
	Source   string `form:"source"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// CreateIncome records received income, not yet tied to an account
func (s *TreasuryService) CreateIncome(ctx context.Context, actor identity.Actor, req CreateIncomeRequest) (*IncomeResponse, error) {
	currency := valueobject.Currency(req.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	amount, err := valueobject.NewMoney(req.Amount, currency)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_AMOUNT", err.Error())
	}

	record, err := treasury.NewIncomeRecord(actor.UserID, req.PayerName, req.Description, amount, treasury.IncomeSource(req.Source), req.ReceivedOn)
	if err != nil {
		return nil, err
	}

	if err := s.income.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save income record: %w", err)
	}
	return toIncomeResponse(record), nil
}

// GetIncome gets an income record by ID
func (s *TreasuryService) GetIncome(ctx context.Context, actor identity.Actor, id uuid.UUID) (*IncomeResponse, error) {
	record, err := s.findIncome(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return toIncomeResponse(record), nil
}

// ListIncome lists income records. Non-admin actors only see their own.
func (s *TreasuryService) ListIncome(ctx context.Context, actor identity.Actor, filter IncomeListFilter) ([]IncomeResponse, int64, error) {
	domainFilter := treasury.IncomeFilter{
		Filter: shared.Filter{Page: filter.Page, PageSize: filter.PageSize},
	}
	if filter.Source != "" {
		source := treasury.IncomeSource(filter.Source)
		if !source.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_SOURCE", "Unknown income source")
		}
		domainFilter.Source = &source
	}
	if !actor.IsAdmin() {
		userID := actor.UserID
		domainFilter.CreatedBy = &userID
	}

	records, total, err := s.income.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list income records: %w", err)
	}
	responses := make([]IncomeResponse, len(records))
	for i, record := range records {
		responses[i] = *toIncomeResponse(record)
	}
	return responses, total, nil
}

// DepositIncome credits the income to a bank account and writes the
// matching ledger entry
func (s *TreasuryService) DepositIncome(ctx context.Context, actor identity.Actor, id uuid.UUID, req DepositIncomeRequest) (*IncomeResponse, error) {
	if err := actor.Authorize(identity.CapManageTreasury); err != nil {
		return nil, err
	}
	record, err := s.findIncome(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	account, err := s.findAccount(ctx, req.BankAccountID)
	if err != nil {
		return nil, err
	}
	if account.Currency != record.Currency {
		return nil, shared.NewDomainError("CURRENCY_MISMATCH", "Income and account currencies differ")
	}

	if err := account.Deposit(record.Amount); err != nil {
		return nil, err
	}
	if err := record.Deposit(account.ID); err != nil {
		return nil, err
	}

	recordID := record.ID
	tx, err := banking.NewTransaction(
		account,
		banking.TransactionTypeIncome,
		record.Amount,
		fmt.Sprintf("Income from %s", record.PayerName),
		banking.ReferenceIncomeRecord,
		&recordID,
		actor.UserID,
	)
	if err != nil {
		return nil, err
	}

	err = s.uow.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.accounts.SaveWithLock(ctx, account, account.Version-1); err != nil {
			return fmt.Errorf("failed to save bank account: %w", err)
		}
		if err := s.income.Save(ctx, record); err != nil {
			return fmt.Errorf("failed to save income record: %w", err)
		}
		if err := s.ledger.Save(ctx, tx); err != nil {
			return fmt.Errorf("failed to save transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toIncomeResponse(record), nil
}

// ===================== Helpers =====================

func (s *TreasuryService) findCheck(ctx context.Context, actor identity.Actor, id uuid.UUID) (*treasury.Check, error) {
	check, err := s.checks.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get check: %w", err)
	}
	if check == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Check not found")
	}
	if !actor.CanAccess(check.CreatedBy) {
		return nil, shared.ErrForbidden
	}
	return check, nil
}

func (s *TreasuryService) findDebt(ctx context.Context, actor identity.Actor, id uuid.UUID) (*treasury.Debt, error) {
	debt, err := s.debts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}
	if debt == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Debt not found")
	}
	if !actor.CanAccess(debt.CreatedBy) {
		return nil, shared.ErrForbidden
	}
	return debt, nil
}

func (s *TreasuryService) findIncome(ctx context.Context, actor identity.Actor, id uuid.UUID) (*treasury.IncomeRecord, error) {
	record, err := s.income.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get income record: %w", err)
	}
	if record == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Income record not found")
	}
	if !actor.CanAccess(record.CreatedBy) {
		return nil, shared.ErrForbidden
	}
	return record, nil
}

func (s *TreasuryService) findAccount(ctx context.Context, id uuid.UUID) (*banking.BankAccount, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get bank account: %w", err)
	}
	if account == nil {
		return nil, shared.NewDomainError("ACCOUNT_NOT_FOUND", "Bank account not found")
	}
	return account, nil
}

func toCheckResponse(check *treasury.Check) *CheckResponse {
	return &CheckResponse{
		ID:           check.ID,
		CheckNumber:  check.CheckNumber,
		BankName:     check.BankName,
		Counterparty: check.Counterparty,
		Direction:    string(check.Direction),
		Amount:       check.Amount,
		Currency:     string(check.Currency),
		IssueDate:    check.IssueDate,
		DueDate:      check.DueDate,
		Status:       string(check.Status),
		CashedAmount: check.CashedAmount(),
		CreatedBy:    check.CreatedBy,
		CreatedAt:    check.CreatedAt,
		UpdatedAt:    check.UpdatedAt,
		Version:      check.Version,
	}
}

func toDebtResponse(debt *treasury.Debt) *DebtResponse {
	return &DebtResponse{
		ID:              debt.ID,
		CreditorName:    debt.CreditorName,
		Description:     debt.Description,
		TotalAmount:     debt.TotalAmount,
		PaidAmount:      debt.PaidAmount,
		RemainingAmount: debt.RemainingAmount(),
		Currency:        string(debt.Currency),
		DueDate:         debt.DueDate,
		Status:          string(debt.Status),
		PaymentCount:    len(debt.Payments),
		CreatedBy:       debt.CreatedBy,
		CreatedAt:       debt.CreatedAt,
		UpdatedAt:       debt.UpdatedAt,
		Version:         debt.Version,
	}
}

func toIncomeResponse(record *treasury.IncomeRecord) *IncomeResponse {
	return &IncomeResponse{
		ID:            record.ID,
		PayerName:     record.PayerName,
		Description:   record.Description,
		Amount:        record.Amount,
		Currency:      string(record.Currency),
		Source:        string(record.Source),
		ReceivedOn:    record.ReceivedOn,
		BankAccountID: record.BankAccountID,
		DepositedAt:   record.DepositedAt,
		CreatedBy:     record.CreatedBy,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}
