package payment

import (
	"context"
	"time"

	"github.com/backoffice/backend/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionManager runs a function inside a single database
// transaction. Repository calls made with the context passed to fn share
// that transaction.
type TransactionManager interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// FileUpload carries an uploaded receipt through the application layer
type FileUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ReceiptAnalysis is the structured result of analyzing a receipt file.
// All fields are extracted, advisory values; the order itself stays
// authoritative for what was requested.
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

// NetDeducted returns the total amount that left the account
func (a ReceiptAnalysis) NetDeducted() decimal.Decimal {
	return a.Amount.Add(a.TotalFees)
}

// ReceiptAnalyzer extracts structured data from a receipt document
type ReceiptAnalyzer interface {
	AnalyzeReceipt(ctx context.Context, file FileUpload) (*ReceiptAnalysis, error)
}

// Categorizer suggests a payment category for free-form text
type Categorizer interface {
	SuggestCategory(ctx context.Context, text string) (payment.Category, string, error)
}

// StagedReceipt is a receipt held between the verify and confirm phases.
// It lives in the artifact store under a TTL; once expired the staging
// reference no longer resolves and confirmation must restart.
type StagedReceipt struct {
	Ref           string          `json:"ref"`
	OrderID       uuid.UUID       `json:"order_id"`
	BankAccountID uuid.UUID       `json:"bank_account_id"`
	StagedBy      uuid.UUID       `json:"staged_by"`
	FileName      string          `json:"file_name"`
	ContentType   string          `json:"content_type"`
	Data          []byte          `json:"data"`
	Analysis      ReceiptAnalysis `json:"analysis"`
	StagedAt      time.Time       `json:"staged_at"`
}

// ArtifactStore holds staged receipts between verification phases.
// Get returns (nil, nil) for an unknown or expired reference.
type ArtifactStore interface {
	Put(ctx context.Context, artifact *StagedReceipt, ttl time.Duration) error
	Get(ctx context.Context, ref string) (*StagedReceipt, error)
	Delete(ctx context.Context, ref string) error
}

// ReceiptStorage persists receipt files durably after confirmation
type ReceiptStorage interface {
	StoreReceipt(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
