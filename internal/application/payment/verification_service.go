package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/backoffice/backend/internal/domain/banking"
	"github.com/backoffice/backend/internal/domain/identity"
	"github.com/backoffice/backend/internal/domain/payment"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultStagingTTL bounds how long a staged receipt stays confirmable
const DefaultStagingTTL = 30 * time.Minute

// VerificationService implements two-phase receipt verification for
// payment orders. Staging analyzes the receipt and parks it under a TTL
// without mutating anything; confirmation settles the order using the
// staged artifact. The deprecated single-call path does both at once.
type VerificationService struct {
	orders     payment.PaymentOrderRepository
	accounts   banking.BankAccountRepository
	orderSvc   *OrderService
	analyzer   ReceiptAnalyzer
	artifacts  ArtifactStore
	storage    ReceiptStorage
	stagingTTL time.Duration
	logger     *zap.Logger
}

// NewVerificationService creates a new VerificationService
func NewVerificationService(
	orders payment.PaymentOrderRepository,
	accounts banking.BankAccountRepository,
	orderSvc *OrderService,
	analyzer ReceiptAnalyzer,
	artifacts ArtifactStore,
	storage ReceiptStorage,
	stagingTTL time.Duration,
	logger *zap.Logger,
) *VerificationService {
	if stagingTTL <= 0 {
		stagingTTL = DefaultStagingTTL
	}
	return &VerificationService{
		orders:     orders,
		accounts:   accounts,
		orderSvc:   orderSvc,
		analyzer:   analyzer,
		artifacts:  artifacts,
		storage:    storage,
		stagingTTL: stagingTTL,
		logger:     logger,
	}
}

// StageResult is returned from the verify phase. The staging reference
// is the handle for a later confirmation; mismatches and the balance
// flag are advisory discrepancies between the receipt, the order, and
// the chosen account.
type StageResult struct {
	StagingRef          string          `json:"staging_ref"`
	ExpiresAt           time.Time       `json:"expires_at"`
	Analysis            ReceiptAnalysis `json:"analysis"`
	Mismatches          []string        `json:"mismatches,omitempty"`
	InsufficientBalance bool            `json:"insufficient_balance"`
}

// ConfirmRequest represents the confirm phase of receipt verification
type ConfirmRequest struct {
	StagingRef    string    `json:"staging_ref" binding:"required"`
	BankAccountID uuid.UUID `json:"bank_account_id" binding:"required"`
}

// StageReceipt runs the verify phase: the receipt is analyzed and staged
// against the settling account, but no order, account, or ledger state
// changes. The order must be in a completable state so obviously doomed
// confirmations fail early; a balance shortfall on the chosen account is
// reported as advisory, not fatal, since funds may land before confirm.
func (s *VerificationService) StageReceipt(ctx context.Context, actor identity.Actor, orderID uuid.UUID, bankAccountID uuid.UUID, file FileUpload) (*StageResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt_verification", "stage")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrOrderID, orderID.String())

	if err := actor.Authorize(identity.CapCompleteOrders); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(file.Data) == 0 {
		return nil, shared.NewDomainError("INVALID_RECEIPT", "Receipt file is empty")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get payment order: %w", err)
	}
	if order == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment order not found")
	}
	if !order.Status.CanComplete() {
		return nil, shared.NewInvalidTransitionError(string(order.Status), "verify_receipt", string(payment.OrderStatusApproved))
	}

	account, err := s.accounts.FindByID(ctx, bankAccountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get bank account: %w", err)
	}
	if account == nil {
		return nil, shared.NewDomainError("ACCOUNT_NOT_FOUND", "Bank account not found")
	}

	analysis, err := s.analyzer.AnalyzeReceipt(ctx, file)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.NewDomainError("ANALYSIS_FAILED", "Receipt analysis failed: "+err.Error())
	}

	artifact := &StagedReceipt{
		Ref:           uuid.New().String(),
		OrderID:       order.ID,
		BankAccountID: account.ID,
		StagedBy:      actor.UserID,
		FileName:      file.FileName,
		ContentType:   file.ContentType,
		Data:          file.Data,
		Analysis:      *analysis,
		StagedAt:      time.Now(),
	}
	if err := s.artifacts.Put(ctx, artifact, s.stagingTTL); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to stage receipt: %w", err)
	}

	telemetry.AddEvent(span, "receipt_staged",
		telemetry.SpanAttrStagingRef, artifact.Ref,
		telemetry.SpanAttrAmount, analysis.Amount.String(),
	)

	return &StageResult{
		StagingRef:          artifact.Ref,
		ExpiresAt:           artifact.StagedAt.Add(s.stagingTTL),
		Analysis:            *analysis,
		Mismatches:          compareWithOrder(order, analysis),
		InsufficientBalance: account.Balance.LessThan(analysis.NetDeducted()),
	}, nil
}

// ConfirmReceipt runs the confirm phase: the staged artifact is resolved,
// the receipt is stored durably, and the order settles with the analyzed
// amounts. An expired or unknown staging reference yields STALE_ARTIFACT
// and leaves every aggregate untouched.
func (s *VerificationService) ConfirmReceipt(ctx context.Context, actor identity.Actor, orderID uuid.UUID, req ConfirmRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt_verification", "confirm")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, orderID.String(),
		telemetry.SpanAttrStagingRef, req.StagingRef,
	)

	if err := actor.Authorize(identity.CapCompleteOrders); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	artifact, err := s.artifacts.Get(ctx, req.StagingRef)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load staged receipt: %w", err)
	}
	if artifact == nil {
		telemetry.RecordError(span, shared.ErrStaleArtifact)
		return nil, shared.ErrStaleArtifact
	}
	if artifact.OrderID != orderID {
		// A reference staged for another order is as useless as an
		// expired one.
		return nil, shared.ErrStaleArtifact
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get payment order: %w", err)
	}
	if order == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment order not found")
	}

	receiptURL, err := s.storage.StoreReceipt(ctx, receiptKey(order.ID, artifact.FileName), artifact.Data, artifact.ContentType)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to store receipt: %w", err)
	}

	settlement := payment.Settlement{
		BankAccountID: req.BankAccountID,
		ActualAmount:  artifact.Analysis.Amount,
		TotalFees:     artifact.Analysis.TotalFees,
		NetDeducted:   artifact.Analysis.NetDeducted(),
		ReceiptURL:    receiptURL,
	}
	if err := s.orderSvc.settle(ctx, actor, order, settlement); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	// Best effort: an artifact left behind simply expires.
	if err := s.artifacts.Delete(ctx, req.StagingRef); err != nil {
		s.logger.Warn("failed to delete staged receipt",
			zap.String("staging_ref", req.StagingRef),
			zap.Error(err))
	}

	telemetry.AddEvent(span, "order_settled",
		telemetry.SpanAttrAmount, settlement.NetDeducted.String())
	return toOrderResponse(order), nil
}

// CompleteWithReceipt analyzes and settles in a single call. When the
// receipt cannot be analyzed the order still settles, at face value with
// zero fees, because single-phase callers have no review step to retry
// from.
//
// Deprecated: use StageReceipt followed by ConfirmReceipt. The two-phase
// flow lets the caller review extracted amounts before money moves and
// keeps extraction failures distinct from settlement failures.
func (s *VerificationService) CompleteWithReceipt(ctx context.Context, actor identity.Actor, orderID uuid.UUID, bankAccountID uuid.UUID, file FileUpload) (*OrderResponse, error) {
	staged, err := s.StageReceipt(ctx, actor, orderID, bankAccountID, file)
	if err != nil {
		var dErr *shared.DomainError
		if errors.As(err, &dErr) && dErr.Code == "ANALYSIS_FAILED" {
			return s.completeAtFaceValue(ctx, actor, orderID, bankAccountID, file)
		}
		return nil, err
	}
	resp, err := s.ConfirmReceipt(ctx, actor, orderID, ConfirmRequest{
		StagingRef:    staged.StagingRef,
		BankAccountID: bankAccountID,
	})
	if err != nil && errors.Is(err, shared.ErrStaleArtifact) {
		// Should not happen back to back; surface as an internal failure
		// rather than asking the caller to restart a flow they never saw.
		return nil, fmt.Errorf("staged receipt vanished during single-phase completion: %w", err)
	}
	return resp, err
}

// completeAtFaceValue settles an order with the requested amount when
// receipt analysis is unavailable. The receipt is still stored against
// the order for the audit trail.
func (s *VerificationService) completeAtFaceValue(ctx context.Context, actor identity.Actor, orderID uuid.UUID, bankAccountID uuid.UUID, file FileUpload) (*OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment order: %w", err)
	}
	if order == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment order not found")
	}

	receiptURL, err := s.storage.StoreReceipt(ctx, receiptKey(order.ID, file.FileName), file.Data, file.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store receipt: %w", err)
	}

	s.logger.Warn("receipt analysis unavailable, settling at face value",
		zap.String("order_id", order.ID.String()),
		zap.String("amount", order.Amount.String()),
	)

	settlement := payment.Settlement{
		BankAccountID: bankAccountID,
		ActualAmount:  order.Amount,
		TotalFees:     decimal.Zero,
		NetDeducted:   order.Amount,
		ReceiptURL:    receiptURL,
	}
	if err := s.orderSvc.settle(ctx, actor, order, settlement); err != nil {
		return nil, err
	}
	return toOrderResponse(order), nil
}

// UploadReceipt stores a receipt document against an order without
// settling anything. Used to archive supporting documents ahead of the
// verification flow.
func (s *VerificationService) UploadReceipt(ctx context.Context, actor identity.Actor, orderID uuid.UUID, file FileUpload) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt_verification", "upload")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrOrderID, orderID.String())

	if len(file.Data) == 0 {
		return nil, shared.NewDomainError("INVALID_RECEIPT", "Receipt file is empty")
	}

	order, err := s.orderSvc.findAccessible(ctx, actor, orderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	url, err := s.storage.StoreReceipt(ctx, receiptKey(order.ID, file.FileName), file.Data, file.ContentType)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to store receipt: %w", err)
	}
	if err := order.AttachReceipt(url); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment order: %w", err)
	}
	return toOrderResponse(order), nil
}

// compareWithOrder lists advisory discrepancies between the analyzed
// receipt and what the order requested
func compareWithOrder(order *payment.PaymentOrder, analysis *ReceiptAnalysis) []string {
	var mismatches []string
	if !analysis.Amount.Equal(order.Amount) {
		mismatches = append(mismatches,
			fmt.Sprintf("receipt amount %s differs from order amount %s", analysis.Amount, order.Amount))
	}
	if analysis.RecipientIBAN != "" && normalizeIBAN(analysis.RecipientIBAN) != order.RecipientIBAN {
		mismatches = append(mismatches,
			fmt.Sprintf("receipt IBAN %s differs from order IBAN %s", analysis.RecipientIBAN, order.RecipientIBAN))
	}
	if analysis.Currency != "" && analysis.Currency != string(order.Currency) {
		mismatches = append(mismatches,
			fmt.Sprintf("receipt currency %s differs from order currency %s", analysis.Currency, order.Currency))
	}
	return mismatches
}

func normalizeIBAN(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, " ", ""))
}

func receiptKey(orderID uuid.UUID, fileName string) string {
	now := time.Now()
	return fmt.Sprintf("receipts/%04d/%02d/%s-%s", now.Year(), now.Month(), orderID, fileName)
}
