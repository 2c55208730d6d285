package payment

import (
	"context"
	"testing"
	"time"

	"github.com/backoffice/backend/internal/domain/banking"
	"github.com/backoffice/backend/internal/domain/identity"
	"github.com/backoffice/backend/internal/domain/payment"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// Mocks
// =============================================================================

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Save(ctx context.Context, order *payment.PaymentOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) SaveWithLock(ctx context.Context, order *payment.PaymentOrder, expectedVersion int) error {
	args := m.Called(ctx, order, expectedVersion)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.PaymentOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentOrder), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter payment.OrderFilter) ([]*payment.PaymentOrder, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*payment.PaymentOrder), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) CountByStatus(ctx context.Context, createdBy *uuid.UUID) (map[payment.OrderStatus]int64, error) {
	args := m.Called(ctx, createdBy)
	return args.Get(0).(map[payment.OrderStatus]int64), args.Error(1)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Save(ctx context.Context, account *banking.BankAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) SaveWithLock(ctx context.Context, account *banking.BankAccount, expectedVersion int) error {
	args := m.Called(ctx, account, expectedVersion)
	return args.Error(0)
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*banking.BankAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*banking.BankAccount), args.Error(1)
}

func (m *MockAccountRepository) FindByIBAN(ctx context.Context, iban string) (*banking.BankAccount, error) {
	args := m.Called(ctx, iban)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*banking.BankAccount), args.Error(1)
}

func (m *MockAccountRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*banking.BankAccount, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*banking.BankAccount), args.Get(1).(int64), args.Error(2)
}

func (m *MockAccountRepository) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Save(ctx context.Context, tx *banking.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*banking.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*banking.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindAll(ctx context.Context, filter banking.TransactionFilter) ([]*banking.Transaction, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*banking.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) FindByReference(ctx context.Context, refType banking.ReferenceType, refID uuid.UUID) ([]*banking.Transaction, error) {
	args := m.Called(ctx, refType, refID)
	return args.Get(0).([]*banking.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SumByType(ctx context.Context, from, to time.Time) (map[banking.TransactionType]decimal.Decimal, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(map[banking.TransactionType]decimal.Decimal), args.Error(1)
}

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) AnalyzeReceipt(ctx context.Context, file FileUpload) (*ReceiptAnalysis, error) {
	args := m.Called(ctx, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ReceiptAnalysis), args.Error(1)
}

type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) Put(ctx context.Context, artifact *StagedReceipt, ttl time.Duration) error {
	args := m.Called(ctx, artifact, ttl)
	return args.Error(0)
}

func (m *MockArtifactStore) Get(ctx context.Context, ref string) (*StagedReceipt, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*StagedReceipt), args.Error(1)
}

func (m *MockArtifactStore) Delete(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

type MockReceiptStorage struct {
	mock.Mock
}

func (m *MockReceiptStorage) StoreReceipt(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.String(0), args.Error(1)
}

// recordingTxManager runs the callback inline and records each outcome,
// letting tests assert which writes ran inside a transaction boundary
// and whether that transaction would have committed.
type recordingTxManager struct {
	calls   int
	results []error
}

func (m *recordingTxManager) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	err := fn(ctx)
	m.results = append(m.results, err)
	return err
}

// =============================================================================
// Fixtures
// =============================================================================

type verificationFixture struct {
	orders    *MockOrderRepository
	accounts  *MockAccountRepository
	ledger    *MockTransactionRepository
	analyzer  *MockAnalyzer
	artifacts *MockArtifactStore
	storage   *MockReceiptStorage
	uow       *recordingTxManager
	svc       *VerificationService
}

func newVerificationFixture() *verificationFixture {
	f := &verificationFixture{
		orders:    new(MockOrderRepository),
		accounts:  new(MockAccountRepository),
		ledger:    new(MockTransactionRepository),
		analyzer:  new(MockAnalyzer),
		artifacts: new(MockArtifactStore),
		storage:   new(MockReceiptStorage),
		uow:       new(recordingTxManager),
	}
	orderSvc := NewOrderService(f.orders, f.accounts, f.ledger, f.uow, nil, Policy{AllowCancelApproved: true}, zap.NewNop())
	f.svc = NewVerificationService(f.orders, f.accounts, orderSvc, f.analyzer, f.artifacts, f.storage, DefaultStagingTTL, zap.NewNop())
	return f
}

func adminActor() identity.Actor {
	return identity.Actor{UserID: uuid.New(), Username: "admin", Role: identity.RoleAdmin}
}

func userActor() identity.Actor {
	return identity.Actor{UserID: uuid.New(), Username: "clerk", Role: identity.RoleUser}
}

func approvedOrder(t *testing.T) *payment.PaymentOrder {
	t.Helper()
	order, err := payment.NewPaymentOrder(
		uuid.New(),
		"Acme Supplies Ltd",
		"TR330006100519786457841326",
		valueobject.NewMoneyTRY(decimal.NewFromInt(1000)),
		"Office chairs",
		payment.CategoryOfficeSupplies,
		nil,
	)
	require.NoError(t, err)
	require.NoError(t, order.Approve(uuid.New()))
	return order
}

func fundedAccount(t *testing.T, balance int64) *banking.BankAccount {
	t.Helper()
	acc, err := banking.NewBankAccount(
		uuid.New(), "Operating", "Ziraat Bankasi",
		"TR330006100519786457841326", "", valueobject.TRY, decimal.NewFromInt(balance))
	require.NoError(t, err)
	return acc
}

func receiptFile() FileUpload {
	return FileUpload{FileName: "receipt.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 test")}
}

// =============================================================================
// Stage phase
// =============================================================================

func TestStageReceipt_NoSideEffects(t *testing.T) {
	f := newVerificationFixture()
	order := approvedOrder(t)
	account := fundedAccount(t, 5000)
	versionBefore := order.Version
	statusBefore := order.Status
	balanceBefore := account.Balance

	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.accounts.On("FindByID", mock.Anything, account.ID).Return(account, nil)
	f.analyzer.On("AnalyzeReceipt", mock.Anything, mock.Anything).Return(&ReceiptAnalysis{
		RecipientIBAN: order.RecipientIBAN,
		Amount:        decimal.NewFromInt(1000),
		TotalFees:     decimal.NewFromInt(20),
		Currency:      "TRY",
	}, nil)
	f.artifacts.On("Put", mock.Anything, mock.Anything, DefaultStagingTTL).Return(nil)

	result, err := f.svc.StageReceipt(context.Background(), adminActor(), order.ID, account.ID, receiptFile())
	require.NoError(t, err)
	assert.NotEmpty(t, result.StagingRef)
	assert.True(t, result.Analysis.NetDeducted().Equal(decimal.NewFromInt(1020)))
	assert.False(t, result.InsufficientBalance)

	// Verify phase is read-only: no order save, no account touch, no ledger write.
	assert.Equal(t, statusBefore, order.Status)
	assert.Equal(t, versionBefore, order.Version)
	assert.True(t, account.Balance.Equal(balanceBefore))
	f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything, mock.Anything)
	f.accounts.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything, mock.Anything)
	f.ledger.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestStageReceipt_FlagsInsufficientBalance(t *testing.T) {
	f := newVerificationFixture()
	order := approvedOrder(t)
	account := fundedAccount(t, 500)

	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.accounts.On("FindByID", mock.Anything, account.ID).Return(account, nil)
	f.analyzer.On("AnalyzeReceipt", mock.Anything, mock.Anything).Return(&ReceiptAnalysis{
		RecipientIBAN: order.RecipientIBAN,
		Amount:        decimal.NewFromInt(1000),
		TotalFees:     decimal.NewFromInt(20),
		Currency:      "TRY",
	}, nil)
	f.artifacts.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.StageReceipt(context.Background(), adminActor(), order.ID, account.ID, receiptFile())
	require.NoError(t, err, "a balance shortfall is advisory at the verify phase")
	assert.True(t, result.InsufficientBalance)
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(500)), "nothing is withdrawn")
	f.accounts.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything, mock.Anything)
}

func TestStageReceipt_UnknownAccountFails(t *testing.T) {
	f := newVerificationFixture()
	order := approvedOrder(t)
	accountID := uuid.New()

	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.accounts.On("FindByID", mock.Anything, accountID).Return(nil, nil)

	_, err := f.svc.StageReceipt(context.Background(), adminActor(), order.ID, accountID, receiptFile())
	var dErr *shared.DomainError
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, "ACCOUNT_NOT_FOUND", dErr.Code)
	f.analyzer.AssertNotCalled(t, "AnalyzeReceipt", mock.Anything, mock.Anything)
}

func TestStageReceipt_ReportsMismatches(t *testing.T) {
	f := newVerificationFixture()
	order := approvedOrder(t)
	account := fundedAccount(t, 5000)

	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.accounts.On("FindByID", mock.Anything, account.ID).Return(account, nil)
	f.analyzer.On("AnalyzeReceipt", mock.Anything, mock.Anything).Return(&ReceiptAnalysis{
		RecipientIBAN: "DE89370400440532013000",
		Amount:        decimal.NewFromInt(995),
		Currency:      "TRY",
	}, nil)
	f.artifacts.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.StageReceipt(context.Background(), adminActor(), order.ID, account.ID, receiptFile())
	require.NoError(t, err)
	assert.Len(t, result.Mismatches, 2, "amount and IBAN both differ")
}

func TestStageReceipt_PendingOrderFailsEarly(t *testing.T) {
	f := newVerificationFixture()
	order := approvedOrder(t)
	order.Status = payment.OrderStatusPending

	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	_, err := f.svc.StageReceipt(context.Background(), adminActor(), order.ID, uuid.New(), receiptFile())
	var tErr *shared.InvalidTransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, []string{"approved"}, tErr.RequiredIn)
	f.analyzer.AssertNotCalled(t, "AnalyzeReceipt", mock.Anything, mock.Anything)
}

func TestStageReceipt_AnalysisFailureStagesNothing(t *testing.T) {
	f := newVerificationFixture()
	order := approvedOrder(t)
	account := fundedAccount(t, 5000)

	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.accounts.On("FindByID", mock.Anything, account.ID).Return(account, nil)
	f.analyzer.On("AnalyzeReceipt", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	_, err := f.svc.StageReceipt(context.Background(), adminActor(), order.ID, account.ID, receiptFile())
	require.Error(t, err)
	f.artifacts.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
}

func TestStageReceipt_RequiresAdmin(t *testing.T) {
	f := newVerificationFixture()

	_, err := f.svc.StageReceipt(context.Background(), userActor(), uuid.New(), uuid.New(), receiptFile())
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

// =============================================================================
// Confirm phase
// =============================================================================

func TestConfirmReceipt_SettlesWithAnalyzedAmounts(t *testing.T) {
	f := newVerificationFixture()
	actor := adminActor()
	order := approvedOrder(t)
	account := fundedAccount(t, 5000)

	artifact := &StagedReceipt{
		Ref:         "stage-ref-1",
		OrderID:     order.ID,
		FileName:    "receipt.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF"),
		Analysis: ReceiptAnalysis{
			Amount:    decimal.NewFromInt(1000),
			TotalFees: decimal.NewFromInt(20),
			Currency:  "TRY",
		},
		StagedAt: time.Now(),
	}

	f.artifacts.On("Get", mock.Anything, "stage-ref-1").Return(artifact, nil)
	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.storage.On("StoreReceipt", mock.Anything, mock.Anything, artifact.Data, "application/pdf").
		Return("local://receipts/receipt.pdf", nil)
	f.accounts.On("FindByID", mock.Anything, account.ID).Return(account, nil)
	f.accounts.On("SaveWithLock", mock.Anything, account, mock.Anything).Return(nil)
	f.orders.On("SaveWithLock", mock.Anything, order, mock.Anything).Return(nil)
	f.ledger.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.artifacts.On("Delete", mock.Anything, "stage-ref-1").Return(nil)

	resp, err := f.svc.ConfirmReceipt(context.Background(), actor, order.ID, ConfirmRequest{
		StagingRef:    "stage-ref-1",
		BankAccountID: account.ID,
	})
	require.NoError(t, err)

	// Transfer of 1000 plus 20 in fees: 1020 leaves the account.
	assert.Equal(t, "completed", resp.Status)
	assert.True(t, resp.NetAmountDeducted.Equal(decimal.NewFromInt(1020)))
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(3980)), "balance drops by net deducted")
	assert.NotNil(t, resp.CompletedAt)
	assert.Equal(t, "local://receipts/receipt.pdf", resp.ReceiptURL)

	// Exactly one ledger transaction referencing the order.
	f.ledger.AssertNumberOfCalls(t, "Save", 1)
	tx := f.ledger.Calls[0].Arguments.Get(1).(*banking.Transaction)
	assert.Equal(t, banking.ReferencePaymentOrder, tx.ReferenceType)
	assert.Equal(t, order.ID, *tx.ReferenceID)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(1020)))
}

func TestConfirmReceipt_StaleReferenceLeavesStateUntouched(t *testing.T) {
	f := newVerificationFixture()
	order := approvedOrder(t)

	f.artifacts.On("Get", mock.Anything, "expired-ref").Return(nil, nil)

	_, err := f.svc.ConfirmReceipt(context.Background(), adminActor(), order.ID, ConfirmRequest{
		StagingRef:    "expired-ref",
		BankAccountID: uuid.New(),
	})
	assert.ErrorIs(t, err, shared.ErrStaleArtifact)

	assert.Equal(t, payment.OrderStatusApproved, order.Status)
	f.orders.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything, mock.Anything)
	f.accounts.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything, mock.Anything)
	f.ledger.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.storage.AssertNotCalled(t, "StoreReceipt", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmReceipt_ReferenceForAnotherOrderIsStale(t *testing.T) {
	f := newVerificationFixture()
	order := approvedOrder(t)

	artifact := &StagedReceipt{Ref: "ref", OrderID: uuid.New(), Analysis: ReceiptAnalysis{Amount: decimal.NewFromInt(10)}}
	f.artifacts.On("Get", mock.Anything, "ref").Return(artifact, nil)

	_, err := f.svc.ConfirmReceipt(context.Background(), adminActor(), order.ID, ConfirmRequest{
		StagingRef:    "ref",
		BankAccountID: uuid.New(),
	})
	assert.ErrorIs(t, err, shared.ErrStaleArtifact)
}

func TestConfirmReceipt_InsufficientBalance(t *testing.T) {
	f := newVerificationFixture()
	order := approvedOrder(t)
	account := fundedAccount(t, 500)

	artifact := &StagedReceipt{
		Ref:     "ref",
		OrderID: order.ID,
		Data:    []byte("%PDF"),
		Analysis: ReceiptAnalysis{
			Amount:    decimal.NewFromInt(1000),
			TotalFees: decimal.NewFromInt(20),
		},
	}
	f.artifacts.On("Get", mock.Anything, "ref").Return(artifact, nil)
	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.storage.On("StoreReceipt", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("url", nil)
	f.accounts.On("FindByID", mock.Anything, account.ID).Return(account, nil)

	_, err := f.svc.ConfirmReceipt(context.Background(), adminActor(), order.ID, ConfirmRequest{
		StagingRef:    "ref",
		BankAccountID: account.ID,
	})
	assert.ErrorIs(t, err, shared.ErrInsufficientBalance)
	assert.Equal(t, payment.OrderStatusApproved, order.Status, "order stays approved")
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(500)))
	f.ledger.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestConfirmReceipt_LockConflictStaysInsideTransaction(t *testing.T) {
	f := newVerificationFixture()
	order := approvedOrder(t)
	account := fundedAccount(t, 5000)

	artifact := &StagedReceipt{
		Ref:           "ref",
		OrderID:       order.ID,
		BankAccountID: account.ID,
		Data:          []byte("%PDF"),
		Analysis: ReceiptAnalysis{
			Amount:    decimal.NewFromInt(1000),
			TotalFees: decimal.NewFromInt(20),
			Currency:  "TRY",
		},
	}
	f.artifacts.On("Get", mock.Anything, "ref").Return(artifact, nil)
	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.storage.On("StoreReceipt", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("url", nil)
	f.accounts.On("FindByID", mock.Anything, account.ID).Return(account, nil)
	f.accounts.On("SaveWithLock", mock.Anything, account, mock.Anything).Return(nil)
	f.orders.On("SaveWithLock", mock.Anything, order, mock.Anything).Return(shared.ErrConcurrencyConflict)

	_, err := f.svc.ConfirmReceipt(context.Background(), adminActor(), order.ID, ConfirmRequest{
		StagingRef:    "ref",
		BankAccountID: account.ID,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	// The debit and the order update share one transaction boundary, so
	// the conflict aborts it and the account write never becomes durable.
	require.Equal(t, 1, f.uow.calls)
	assert.ErrorIs(t, f.uow.results[0], shared.ErrConcurrencyConflict)
	f.ledger.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// =============================================================================
// Deprecated single-phase path
// =============================================================================

func TestCompleteWithReceipt_SinglePhase(t *testing.T) {
	f := newVerificationFixture()
	order := approvedOrder(t)
	account := fundedAccount(t, 2000)

	var stagedRef string
	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.analyzer.On("AnalyzeReceipt", mock.Anything, mock.Anything).Return(&ReceiptAnalysis{
		Amount:    decimal.NewFromInt(1000),
		TotalFees: decimal.NewFromInt(20),
		Currency:  "TRY",
	}, nil)
	f.artifacts.On("Put", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			artifact := args.Get(1).(*StagedReceipt)
			stagedRef = artifact.Ref
			f.artifacts.On("Get", mock.Anything, artifact.Ref).Return(artifact, nil)
			f.artifacts.On("Delete", mock.Anything, artifact.Ref).Return(nil)
		}).Return(nil)
	f.storage.On("StoreReceipt", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("url", nil)
	f.accounts.On("FindByID", mock.Anything, account.ID).Return(account, nil)
	f.accounts.On("SaveWithLock", mock.Anything, account, mock.Anything).Return(nil)
	f.orders.On("SaveWithLock", mock.Anything, order, mock.Anything).Return(nil)
	f.ledger.On("Save", mock.Anything, mock.Anything).Return(nil)

	resp, err := f.svc.CompleteWithReceipt(context.Background(), adminActor(), order.ID, account.ID, receiptFile())
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Status)
	assert.NotEmpty(t, stagedRef)
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(980)))
	f.ledger.AssertNumberOfCalls(t, "Save", 1)
}

func TestCompleteWithReceipt_AnalysisFailureSettlesAtFaceValue(t *testing.T) {
	f := newVerificationFixture()
	order := approvedOrder(t)
	account := fundedAccount(t, 2000)

	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.accounts.On("FindByID", mock.Anything, account.ID).Return(account, nil)
	f.analyzer.On("AnalyzeReceipt", mock.Anything, mock.Anything).Return(nil, assert.AnError)
	f.storage.On("StoreReceipt", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("url", nil)
	f.accounts.On("SaveWithLock", mock.Anything, account, mock.Anything).Return(nil)
	f.orders.On("SaveWithLock", mock.Anything, order, mock.Anything).Return(nil)
	f.ledger.On("Save", mock.Anything, mock.Anything).Return(nil)

	resp, err := f.svc.CompleteWithReceipt(context.Background(), adminActor(), order.ID, account.ID, receiptFile())
	require.NoError(t, err, "single-phase completion survives a broken analyzer")

	// The requested amount settles with zero fees and the receipt is
	// still archived.
	assert.Equal(t, "completed", resp.Status)
	require.NotNil(t, resp.TotalFees)
	assert.True(t, resp.TotalFees.IsZero())
	assert.True(t, resp.NetAmountDeducted.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "url", resp.ReceiptURL)
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(1000)))
	f.artifacts.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
	f.ledger.AssertNumberOfCalls(t, "Save", 1)
}
