// Package report assembles dashboard and summary figures from the other
// modules' repositories. It writes nothing.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/backoffice/backend/internal/domain/banking"
	"github.com/backoffice/backend/internal/domain/identity"
	"github.com/backoffice/backend/internal/domain/payment"
	"github.com/backoffice/backend/internal/domain/treasury"
	"github.com/backoffice/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReportService provides read-only reporting over all modules
type ReportService struct {
	orders   payment.PaymentOrderRepository
	accounts banking.BankAccountRepository
	ledger   banking.TransactionRepository
	debts    treasury.DebtRepository
	income   treasury.IncomeRecordRepository
	logger   *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	orders payment.PaymentOrderRepository,
	accounts banking.BankAccountRepository,
	ledger banking.TransactionRepository,
	debts treasury.DebtRepository,
	income treasury.IncomeRecordRepository,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		orders:   orders,
		accounts: accounts,
		ledger:   ledger,
		debts:    debts,
		income:   income,
		logger:   logger,
	}
}

// DashboardResponse is the aggregate view shown on the landing screen.
// Treasury figures are present only for actors who may see all records.
type DashboardResponse struct {
	OrderCounts      map[string]int64 `json:"order_counts"`
	OutstandingDebt  decimal.Decimal  `json:"outstanding_debt"`
	TotalBalance     *decimal.Decimal `json:"total_balance,omitempty"`
	MonthlyIncome    *decimal.Decimal `json:"monthly_income,omitempty"`
	MonthlyExpense   *decimal.Decimal `json:"monthly_expense,omitempty"`
	MonthlyNet       *decimal.Decimal `json:"monthly_net,omitempty"`
	PeriodStart      time.Time        `json:"period_start"`
	PeriodEnd        time.Time        `json:"period_end"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

// CashFlowResponse summarizes ledger movement per type over a date range
type CashFlowResponse struct {
	From     time.Time                  `json:"from"`
	To       time.Time                  `json:"to"`
	Totals   map[string]decimal.Decimal `json:"totals"`
	NetTotal decimal.Decimal            `json:"net_total"`
}

// IncomeBySourceResponse breaks income down by source over a date range
type IncomeBySourceResponse struct {
	From   time.Time                  `json:"from"`
	To     time.Time                  `json:"to"`
	Totals map[string]decimal.Decimal `json:"totals"`
	Total  decimal.Decimal            `json:"total"`
}

// Dashboard builds the landing-screen summary for the actor. Non-admin
// actors see only figures derived from their own records.
func (s *ReportService) Dashboard(ctx context.Context, actor identity.Actor) (*DashboardResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "dashboard")
	defer span.End()

	if err := actor.Authorize(identity.CapViewReports); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var scope *uuid.UUID
	if !actor.Can(identity.CapViewAllRecords) {
		scope = &actor.UserID
	}

	counts, err := s.orders.CountByStatus(ctx, scope)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	outstanding, err := s.debts.TotalOutstanding(ctx, scope)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to sum outstanding debts: %w", err)
	}

	now := time.Now()
	periodStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	resp := &DashboardResponse{
		OrderCounts:     make(map[string]int64, len(counts)),
		OutstandingDebt: outstanding,
		PeriodStart:     periodStart,
		PeriodEnd:       now,
		GeneratedAt:     now,
	}
	for status, count := range counts {
		resp.OrderCounts[string(status)] = count
	}

	if actor.Can(identity.CapViewAllRecords) {
		balance, err := s.accounts.TotalBalance(ctx)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to sum account balances: %w", err)
		}
		resp.TotalBalance = &balance

		sums, err := s.ledger.SumByType(ctx, periodStart, now)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to sum ledger: %w", err)
		}
		incomeTotal := sums[banking.TransactionTypeIncome]
		expenseTotal := sums[banking.TransactionTypeExpense]
		net := incomeTotal.Sub(expenseTotal)
		resp.MonthlyIncome = &incomeTotal
		resp.MonthlyExpense = &expenseTotal
		resp.MonthlyNet = &net
	}

	return resp, nil
}

// CashFlow summarizes ledger movement between from and to (admin only)
func (s *ReportService) CashFlow(ctx context.Context, actor identity.Actor, from, to time.Time) (*CashFlowResponse, error) {
	if err := actor.Authorize(identity.CapViewAllRecords); err != nil {
		return nil, err
	}
	if to.Before(from) {
		from, to = to, from
	}

	sums, err := s.ledger.SumByType(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger: %w", err)
	}

	resp := &CashFlowResponse{
		From:   from,
		To:     to,
		Totals: make(map[string]decimal.Decimal, len(sums)),
	}
	for txType, total := range sums {
		resp.Totals[string(txType)] = total
		switch txType {
		case banking.TransactionTypeIncome:
			resp.NetTotal = resp.NetTotal.Add(total)
		case banking.TransactionTypeExpense:
			resp.NetTotal = resp.NetTotal.Sub(total)
		case banking.TransactionTypeAdjustment:
			resp.NetTotal = resp.NetTotal.Add(total)
		}
	}
	return resp, nil
}

// IncomeBySource breaks income records down per source (admin only)
func (s *ReportService) IncomeBySource(ctx context.Context, actor identity.Actor, from, to time.Time) (*IncomeBySourceResponse, error) {
	if err := actor.Authorize(identity.CapViewAllRecords); err != nil {
		return nil, err
	}
	if to.Before(from) {
		from, to = to, from
	}

	sums, err := s.income.SumBySource(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to sum income: %w", err)
	}

	resp := &IncomeBySourceResponse{
		From:   from,
		To:     to,
		Totals: make(map[string]decimal.Decimal, len(sums)),
	}
	for source, total := range sums {
		resp.Totals[string(source)] = total
		resp.Total = resp.Total.Add(total)
	}
	return resp, nil
}
