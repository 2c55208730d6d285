package handler

import (
	"context"

	treasuryapp "github.com/backoffice/backend/internal/application/treasury"
	"github.com/backoffice/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TreasuryHandler handles check, debt, and income record endpoints
type TreasuryHandler struct {
	BaseHandler
	treasury *treasuryapp.TreasuryService
}

// NewTreasuryHandler creates a new TreasuryHandler
func NewTreasuryHandler(treasury *treasuryapp.TreasuryService) *TreasuryHandler {
	return &TreasuryHandler{treasury: treasury}
}

// ===================== Checks =====================

// ListChecks lists checks
func (h *TreasuryHandler) ListChecks(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	var filter treasuryapp.CheckListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	normalizePaging(&filter.Page, &filter.PageSize)

	checks, total, err := h.treasury.ListChecks(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, checks, total, filter.Page, filter.PageSize)
}

// GetCheck gets a check by ID
func (h *TreasuryHandler) GetCheck(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	check, err := h.treasury.GetCheck(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, check)
}

// CreateCheck registers a new check
func (h *TreasuryHandler) CreateCheck(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	var req treasuryapp.CreateCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	check, err := h.treasury.CreateCheck(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, check)
}

// CashCheck cashes a due check at face value
func (h *TreasuryHandler) CashCheck(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req treasuryapp.CashCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	check, err := h.treasury.CashCheck(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, check)
}

// EarlyCashCheck cashes a check before its due date at a discount
func (h *TreasuryHandler) EarlyCashCheck(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req treasuryapp.EarlyCashCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	check, err := h.treasury.EarlyCashCheck(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, check)
}

// ReturnCheck marks a check as bounced
func (h *TreasuryHandler) ReturnCheck(c *gin.Context) {
	h.checkNoteOp(c, h.treasury.ReturnCheck)
}

// CancelCheck voids a check
func (h *TreasuryHandler) CancelCheck(c *gin.Context) {
	h.checkNoteOp(c, h.treasury.CancelCheck)
}

// MarkCheckLost records a check as lost
func (h *TreasuryHandler) MarkCheckLost(c *gin.Context) {
	h.checkNoteOp(c, h.treasury.MarkCheckLost)
}

func (h *TreasuryHandler) checkNoteOp(c *gin.Context, op func(ctx context.Context, actor identity.Actor, id uuid.UUID, req treasuryapp.CheckNoteRequest) (*treasuryapp.CheckResponse, error)) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	// Note body is optional on these operations
	var req treasuryapp.CheckNoteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	check, err := op(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, check)
}

// ===================== Debts =====================

// ListDebts lists debts
func (h *TreasuryHandler) ListDebts(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	var filter treasuryapp.DebtListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	normalizePaging(&filter.Page, &filter.PageSize)

	debts, total, err := h.treasury.ListDebts(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, debts, total, filter.Page, filter.PageSize)
}

// GetDebt gets a debt by ID
func (h *TreasuryHandler) GetDebt(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	debt, err := h.treasury.GetDebt(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, debt)
}

// CreateDebt registers a new debt
func (h *TreasuryHandler) CreateDebt(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	var req treasuryapp.CreateDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	debt, err := h.treasury.CreateDebt(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, debt)
}

// PayDebt records an installment against a debt
func (h *TreasuryHandler) PayDebt(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req treasuryapp.PayDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	debt, err := h.treasury.PayDebt(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, debt)
}

// CancelDebt voids a debt with no recorded payments
func (h *TreasuryHandler) CancelDebt(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	debt, err := h.treasury.CancelDebt(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, debt)
}

// ===================== Income Records =====================

// ListIncome lists income records
func (h *TreasuryHandler) ListIncome(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	var filter treasuryapp.IncomeListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	normalizePaging(&filter.Page, &filter.PageSize)

	records, total, err := h.treasury.ListIncome(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, records, total, filter.Page, filter.PageSize)
}

// GetIncome gets an income record by ID
func (h *TreasuryHandler) GetIncome(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	record, err := h.treasury.GetIncome(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, record)
}

// CreateIncome records received income
func (h *TreasuryHandler) CreateIncome(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	var req treasuryapp.CreateIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	record, err := h.treasury.CreateIncome(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, record)
}

// DepositIncome credits a recorded income to a bank account
func (h *TreasuryHandler) DepositIncome(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req treasuryapp.DepositIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	record, err := h.treasury.DepositIncome(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, record)
}

func normalizePaging(page, pageSize *int) {
	if *page <= 0 {
		*page = 1
	}
	if *pageSize <= 0 {
		*pageSize = 20
	}
}

// RegisterRoutes registers treasury routes
func (h *TreasuryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	checks := rg.Group("/checks")
	{
		checks.GET("", h.ListChecks)
		checks.GET("/:id", h.GetCheck)
		checks.POST("", h.CreateCheck)
		checks.POST("/:id/cash", h.CashCheck)
		checks.POST("/:id/early-cash", h.EarlyCashCheck)
		checks.POST("/:id/return", h.ReturnCheck)
		checks.POST("/:id/cancel", h.CancelCheck)
		checks.POST("/:id/mark-lost", h.MarkCheckLost)
	}

	debts := rg.Group("/debts")
	{
		debts.GET("", h.ListDebts)
		debts.GET("/:id", h.GetDebt)
		debts.POST("", h.CreateDebt)
		debts.POST("/:id/pay", h.PayDebt)
		debts.POST("/:id/cancel", h.CancelDebt)
	}

	income := rg.Group("/income-records")
	{
		income.GET("", h.ListIncome)
		income.GET("/:id", h.GetIncome)
		income.POST("", h.CreateIncome)
		income.POST("/:id/deposit", h.DepositIncome)
	}
}
