package client

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment order lifecycle states as the API reports them
const (
	OrderStatusPending   = "pending"
	OrderStatusApproved  = "approved"
	OrderStatusRejected  = "rejected"
	OrderStatusCancelled = "cancelled"
	OrderStatusCompleted = "completed"
)

// Order is a payment order as returned by the API
type Order struct {
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

// OrderSummary is the lightweight order projection returned by the
// summary endpoint
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

// CreateOrderInput is the payload for creating a payment order
type CreateOrderInput struct {
	RecipientName string          `json:"recipient_name"`
	RecipientIBAN string          `json:"recipient_iban"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
	Description   string          `json:"description"`
	Category      string          `json:"category,omitempty"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
}

// UpdateOrderInput is the payload for editing a pending order. Amount
// and currency are immutable server-side and deliberately absent.
type UpdateOrderInput struct {
	RecipientName string     `json:"recipient_name"`
	RecipientIBAN string     `json:"recipient_iban"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	DueDate       *time.Time `json:"due_date,omitempty"`
}

// ReceiptAnalysis is what the backend extracted from an uploaded receipt
type ReceiptAnalysis struct {
	RecipientName string          `json:"recipient_name"`
	RecipientIBAN string          `json:"recipient_iban"`
	Amount        decimal.Decimal `json:"amount"`
	TotalFees     decimal.Decimal `json:"total_fees"`
	Currency      string          `json:"currency"`
	TransferDate  *time.Time      `json:"transfer_date,omitempty"`
	Summary       string          `json:"summary,omitempty"`
	Confidence    float64         `json:"confidence"`
}

// StageResult is the outcome of the verify phase. The staging reference
// is the handle the confirm phase requires; mismatches and the balance
// flag are advisory.
type StageResult struct {
	StagingRef          string          `json:"staging_ref"`
	ExpiresAt           time.Time       `json:"expires_at"`
	Analysis            ReceiptAnalysis `json:"analysis"`
	Mismatches          []string        `json:"mismatches,omitempty"`
	InsufficientBalance bool            `json:"insufficient_balance"`
}

// ReceiptFile is a receipt document to upload
type ReceiptFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Account is a bank account as returned by the API
type Account struct {
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

// CreateAccountInput is the payload for registering a bank account
type CreateAccountInput struct {
	Name           string          `json:"name"`
	BankName       string          `json:"bank_name"`
	IBAN           string          `json:"iban"`
	AccountNumber  string          `json:"account_number,omitempty"`
	Currency       string          `json:"currency,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// Transaction is a ledger entry as returned by the API
type Transaction struct {
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

// Check is a check as returned by the API
type Check struct {
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

// CreateCheckInput is the payload for registering a check
type CreateCheckInput struct {
	CheckNumber  string          `json:"check_number"`
	BankName     string          `json:"bank_name"`
	Counterparty string          `json:"counterparty"`
	Direction    string          `json:"direction"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency,omitempty"`
	IssueDate    time.Time       `json:"issue_date"`
	DueDate      time.Time       `json:"due_date"`
}

// Debt is a registered debt as returned by the API
type Debt struct {
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

// CreateDebtInput is the payload for registering a debt
type CreateDebtInput struct {
	CreditorName string          `json:"creditor_name"`
	Description  string          `json:"description,omitempty"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Currency     string          `json:"currency,omitempty"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
}

// PayDebtInput is the payload for an installment against a debt
type PayDebtInput struct {
	Amount        decimal.Decimal `json:"amount"`
	BankAccountID *uuid.UUID      `json:"bank_account_id,omitempty"`
	Note          string          `json:"note,omitempty"`
}

// Income is an income record as returned by the API
type Income struct {
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

// CreateIncomeInput is the payload for recording income
type CreateIncomeInput struct {
	PayerName   string          `json:"payer_name"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Source      string          `json:"source,omitempty"`
	ReceivedOn  time.Time       `json:"received_on"`
}

// User is an account holder as returned by the API
type User struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	FullName    string     `json:"full_name,omitempty"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Dashboard is the landing-screen summary
type Dashboard struct {
	OrderCounts     map[string]int64 `json:"order_counts"`
	OutstandingDebt decimal.Decimal  `json:"outstanding_debt"`
	TotalBalance    *decimal.Decimal `json:"total_balance,omitempty"`
	MonthlyIncome   *decimal.Decimal `json:"monthly_income,omitempty"`
	MonthlyExpense  *decimal.Decimal `json:"monthly_expense,omitempty"`
	MonthlyNet      *decimal.Decimal `json:"monthly_net,omitempty"`
	PeriodStart     time.Time        `json:"period_start"`
	PeriodEnd       time.Time        `json:"period_end"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// CashFlow summarizes ledger movement per type over a date range
type CashFlow struct {
	From     time.Time                  `json:"from"`
	To       time.Time                  `json:"to"`
	Totals   map[string]decimal.Decimal `json:"totals"`
	NetTotal decimal.Decimal            `json:"net_total"`
}

// IncomeBySource breaks income down by source over a date range
type IncomeBySource struct {
	From   time.Time                  `json:"from"`
	To     time.Time                  `json:"to"`
	Totals map[string]decimal.Decimal `json:"totals"`
	Total  decimal.Decimal            `json:"total"`
}

// Meta carries pagination details for list responses
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// ListOptions are the common pagination and filter parameters for list
// endpoints. Zero values are omitted from the query string.
type ListOptions struct {
	Page      int
	PageSize  int
	Search    string
	Status    string
	Category  string
	Source    string
	Direction string
}
