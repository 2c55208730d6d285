package handler

import (
	"context"

	bankingapp "github.com/backoffice/backend/internal/application/banking"
	"github.com/backoffice/backend/internal/domain/identity"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BankAccountHandler handles bank account and ledger endpoints
type BankAccountHandler struct {
	BaseHandler
	accounts *bankingapp.AccountService
}

// NewBankAccountHandler creates a new BankAccountHandler
func NewBankAccountHandler(accounts *bankingapp.AccountService) *BankAccountHandler {
	return &BankAccountHandler{accounts: accounts}
}

// List lists bank accounts
func (h *BankAccountHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.Normalize()

	accounts, total, err := h.accounts.List(c.Request.Context(), shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Search:   req.Search,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, accounts, total, req.Page, req.PageSize)
}

// Get gets a bank account by ID
func (h *BankAccountHandler) Get(c *gin.Context) {
	if _, ok := h.getActor(c); !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	account, err := h.accounts.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, account)
}

// Create creates a new bank account
func (h *BankAccountHandler) Create(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	var req bankingapp.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	account, err := h.accounts.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, account)
}

// AdjustBalance applies a manual balance correction
func (h *BankAccountHandler) AdjustBalance(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req bankingapp.AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	account, err := h.accounts.AdjustBalance(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, account)
}

// Freeze freezes a bank account
func (h *BankAccountHandler) Freeze(c *gin.Context) {
	h.statusChange(c, h.accounts.Freeze)
}

// Unfreeze reactivates a frozen bank account
func (h *BankAccountHandler) Unfreeze(c *gin.Context) {
	h.statusChange(c, h.accounts.Unfreeze)
}

// Close closes a bank account
func (h *BankAccountHandler) Close(c *gin.Context) {
	h.statusChange(c, h.accounts.Close)
}

func (h *BankAccountHandler) statusChange(c *gin.Context, op func(ctx context.Context, actor identity.Actor, id uuid.UUID) (*bankingapp.AccountResponse, error)) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	account, err := op(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, account)
}

// ListTransactions lists ledger entries, optionally scoped to one account
func (h *BankAccountHandler) ListTransactions(c *gin.Context) {
	if _, ok := h.getActor(c); !ok {
		return
	}

	var filter bankingapp.TransactionListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	txs, total, err := h.accounts.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, txs, total, filter.Page, filter.PageSize)
}

// RegisterRoutes registers bank account routes
func (h *BankAccountHandler) RegisterRoutes(rg *gin.RouterGroup) {
	accounts := rg.Group("/bank-accounts")
	{
		accounts.GET("", h.List)
		accounts.GET("/:id", h.Get)
		accounts.POST("", h.Create)
		accounts.POST("/:id/adjust-balance", h.AdjustBalance)
		accounts.POST("/:id/freeze", h.Freeze)
		accounts.POST("/:id/unfreeze", h.Unfreeze)
		accounts.POST("/:id/close", h.Close)
	}
	rg.GET("/transactions", h.ListTransactions)
}
