package treasury

import (
	"testing"
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCheck(t *testing.T) *Check {
	t.Helper()
	issue := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	due := issue.AddDate(0, 3, 0)
	c, err := NewCheck(
		uuid.New(), "CHK-0042", "Garanti BBVA", "Demir Insaat AS",
		CheckReceived, valueobject.NewMoneyTRY(decimal.NewFromInt(15000)),
		issue, due,
	)
	require.NoError(t, err)
	return c
}

func TestNewCheck(t *testing.T) {
	c := newTestCheck(t)
	assert.Equal(t, CheckStatusActive, c.Status)
	assert.Empty(t, c.Operations)

	issue := time.Now()
	_, err := NewCheck(uuid.New(), "n", "b", "c", CheckReceived,
		valueobject.NewMoneyTRY(decimal.NewFromInt(1)), issue, issue.AddDate(0, 0, -1))
	assert.Error(t, err, "due date before issue date")

	_, err = NewCheck(uuid.New(), "n", "b", "c", CheckDirection("pending"),
		valueobject.NewMoneyTRY(decimal.NewFromInt(1)), issue, issue)
	assert.Error(t, err)
}

func TestCheck_Cash(t *testing.T) {
	c := newTestCheck(t)
	account := uuid.New()

	err := c.Cash(uuid.New(), account, c.DueDate.AddDate(0, 0, -1))
	assert.Error(t, err, "cashing before due date must fail")
	assert.Equal(t, CheckStatusActive, c.Status)

	require.NoError(t, c.Cash(uuid.New(), account, c.DueDate))
	assert.Equal(t, CheckStatusCashed, c.Status)
	require.Len(t, c.Operations, 1)
	assert.Equal(t, CheckOpCash, c.Operations[0].Type)
	assert.True(t, c.CashedAmount().Equal(c.Amount), "cashing at due date yields face value")

	var tErr *shared.InvalidTransitionError
	assert.ErrorAs(t, c.Cash(uuid.New(), account, c.DueDate), &tErr)
}

func TestCheck_EarlyCash(t *testing.T) {
	c := newTestCheck(t)
	account := uuid.New()

	assert.Error(t, c.EarlyCash(uuid.New(), account, c.Amount.Add(decimal.NewFromInt(1))),
		"received amount above face value rejected")
	assert.Error(t, c.EarlyCash(uuid.New(), account, decimal.Zero))

	discounted := decimal.NewFromInt(14250)
	require.NoError(t, c.EarlyCash(uuid.New(), account, discounted))
	assert.Equal(t, CheckStatusEarlyCashed, c.Status)
	assert.True(t, c.CashedAmount().Equal(discounted))
}

func TestCheck_TerminalOperations(t *testing.T) {
	t.Run("return", func(t *testing.T) {
		c := newTestCheck(t)
		require.NoError(t, c.Return(uuid.New(), "insufficient funds"))
		assert.Equal(t, CheckStatusReturned, c.Status)
		assert.True(t, c.Status.IsTerminal())
	})
	t.Run("cancel", func(t *testing.T) {
		c := newTestCheck(t)
		require.NoError(t, c.Cancel(uuid.New(), "agreement voided"))
		assert.Equal(t, CheckStatusCancelled, c.Status)
	})
	t.Run("mark lost", func(t *testing.T) {
		c := newTestCheck(t)
		require.NoError(t, c.MarkLost(uuid.New(), ""))
		assert.Equal(t, CheckStatusLost, c.Status)
		assert.Error(t, c.Cancel(uuid.New(), ""), "lost check accepts no further operations")
	})
}

func newTestDebt(t *testing.T, total int64) *Debt {
	t.Helper()
	d, err := NewDebt(uuid.New(), "Tax Office", "Q2 corporate tax",
		valueobject.NewMoneyTRY(decimal.NewFromInt(total)), nil)
	require.NoError(t, err)
	return d
}

func TestDebt_RecordPayment(t *testing.T) {
	d := newTestDebt(t, 10000)

	p, err := d.RecordPayment(uuid.New(), decimal.NewFromInt(4000), nil, "first installment")
	require.NoError(t, err)
	assert.Equal(t, DebtStatusPartial, d.Status)
	assert.True(t, d.RemainingAmount().Equal(decimal.NewFromInt(6000)))
	assert.True(t, p.Amount.Equal(decimal.NewFromInt(4000)))

	_, err = d.RecordPayment(uuid.New(), decimal.NewFromInt(6001), nil, "")
	require.Error(t, err, "overpayment rejected")
	assert.True(t, d.RemainingAmount().Equal(decimal.NewFromInt(6000)), "state unchanged after rejection")
	assert.False(t, d.RemainingAmount().IsNegative())

	_, err = d.RecordPayment(uuid.New(), decimal.NewFromInt(6000), nil, "final")
	require.NoError(t, err)
	assert.Equal(t, DebtStatusPaid, d.Status)
	assert.True(t, d.RemainingAmount().IsZero())
	assert.Len(t, d.Payments, 2)

	_, err = d.RecordPayment(uuid.New(), decimal.NewFromInt(1), nil, "")
	var tErr *shared.InvalidTransitionError
	assert.ErrorAs(t, err, &tErr, "paid debt accepts no more payments")
}

func TestDebt_Overdue(t *testing.T) {
	due := time.Now().AddDate(0, 0, -1)
	d, err := NewDebt(uuid.New(), "Supplier", "", valueobject.NewMoneyTRY(decimal.NewFromInt(500)), &due)
	require.NoError(t, err)

	require.NoError(t, d.MarkOverdue(time.Now()))
	assert.Equal(t, DebtStatusOverdue, d.Status)

	// Overdue debts still accept payments.
	_, err = d.RecordPayment(uuid.New(), decimal.NewFromInt(500), nil, "")
	require.NoError(t, err)
	assert.Equal(t, DebtStatusPaid, d.Status)
}

func TestDebt_Cancel(t *testing.T) {
	d := newTestDebt(t, 100)
	require.NoError(t, d.Cancel())
	assert.Equal(t, DebtStatusCancelled, d.Status)

	d2 := newTestDebt(t, 100)
	_, err := d2.RecordPayment(uuid.New(), decimal.NewFromInt(50), nil, "")
	require.NoError(t, err)
	assert.Error(t, d2.Cancel(), "debt with payments cannot be cancelled")
}

func TestIncomeRecord(t *testing.T) {
	r, err := NewIncomeRecord(uuid.New(), "Yilmaz Ltd", "invoice 2026-118",
		valueobject.NewMoneyTRY(decimal.NewFromInt(7500)), IncomeSourceSales, time.Now())
	require.NoError(t, err)
	assert.False(t, r.IsDeposited())

	account := uuid.New()
	require.NoError(t, r.Deposit(account))
	assert.True(t, r.IsDeposited())
	assert.Equal(t, account, *r.BankAccountID)

	var tErr *shared.InvalidTransitionError
	assert.ErrorAs(t, r.Deposit(uuid.New()), &tErr, "double deposit rejected")

	_, err = NewIncomeRecord(uuid.New(), "", "", valueobject.NewMoneyTRY(decimal.NewFromInt(1)), IncomeSourceSales, time.Now())
	assert.Error(t, err)
}
