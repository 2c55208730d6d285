package handler

import (
	"io"
	"mime/multipart"

	paymentapp "github.com/backoffice/backend/internal/application/payment"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentOrderHandler handles payment order endpoints, including the
// two-phase receipt verification flow
type PaymentOrderHandler struct {
	BaseHandler
	orders       *paymentapp.OrderService
	verification *paymentapp.VerificationService
}

// NewPaymentOrderHandler creates a new PaymentOrderHandler
func NewPaymentOrderHandler(orders *paymentapp.OrderService, verification *paymentapp.VerificationService) *PaymentOrderHandler {
	return &PaymentOrderHandler{orders: orders, verification: verification}
}

// List lists payment orders visible to the actor
func (h *PaymentOrderHandler) List(c *gin.Context) {
	h.list(c, "")
}

// Pending lists orders awaiting approval
func (h *PaymentOrderHandler) Pending(c *gin.Context) {
	h.list(c, "pending")
}

func (h *PaymentOrderHandler) list(c *gin.Context, forcedStatus string) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	var filter paymentapp.OrderListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	if forcedStatus != "" {
		filter.Status = forcedStatus
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	orders, total, err := h.orders.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

// Summary lists orders as lightweight projections
func (h *PaymentOrderHandler) Summary(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	var filter paymentapp.OrderListFilter
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

	summaries, total, err := h.orders.Summaries(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, summaries, total, filter.Page, filter.PageSize)
}

// StatusCounts returns per-status order counts
func (h *PaymentOrderHandler) StatusCounts(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	counts, err := h.orders.StatusCounts(c.Request.Context(), actor)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	resp := make(map[string]int64, len(counts))
	for status, count := range counts {
		resp[string(status)] = count
	}
	h.Success(c, resp)
}

// Get gets a payment order by ID
func (h *PaymentOrderHandler) Get(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	order, err := h.orders.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, order)
}

// Create creates a new payment order
func (h *PaymentOrderHandler) Create(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	var req paymentapp.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	order, err := h.orders.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, order)
}

// Update updates a pending payment order
func (h *PaymentOrderHandler) Update(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req paymentapp.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	order, err := h.orders.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, order)
}

// Delete deletes a pending or cancelled payment order
func (h *PaymentOrderHandler) Delete(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.orders.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, nil)
}

// Approve approves a pending payment order
func (h *PaymentOrderHandler) Approve(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	order, err := h.orders.Approve(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, order)
}

// Reject rejects a pending payment order
func (h *PaymentOrderHandler) Reject(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	// Older clients send the reason as a query parameter instead of a body.
	var req paymentapp.RejectOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	} else if req.Reason = c.Query("reason"); req.Reason == "" {
		h.BadRequest(c, "A rejection reason is required")
		return
	}

	order, err := h.orders.Reject(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, order)
}

// Cancel cancels a payment order
func (h *PaymentOrderHandler) Cancel(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	order, err := h.orders.Cancel(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, order)
}

// Complete settles an approved order at face value without a receipt
func (h *PaymentOrderHandler) Complete(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	// Older clients send the account as a query parameter instead of a body.
	var req paymentapp.CompleteOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	} else {
		accountID, err := uuid.Parse(c.Query("bank_account_id"))
		if err != nil {
			h.BadRequest(c, "Invalid or missing bank_account_id")
			return
		}
		req.BankAccountID = accountID
	}

	order, err := h.orders.Complete(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, order)
}

// UploadReceipt attaches a receipt document to an order without settling
func (h *PaymentOrderHandler) UploadReceipt(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	upload, ok := h.readReceiptFile(c)
	if !ok {
		return
	}

	order, err := h.verification.UploadReceipt(c.Request.Context(), actor, id, upload)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, order)
}

// VerifyPayment runs the verify phase: the uploaded receipt is analyzed
// and staged against the settling account. Nothing settles until the
// staged result is confirmed.
func (h *PaymentOrderHandler) VerifyPayment(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	accountID, err := uuid.Parse(c.PostForm("bank_account_id"))
	if err != nil {
		h.BadRequest(c, "Invalid or missing bank_account_id")
		return
	}

	upload, ok := h.readReceiptFile(c)
	if !ok {
		return
	}

	result, err := h.verification.StageReceipt(c.Request.Context(), actor, id, accountID, upload)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// ConfirmPayment runs the confirm phase: the staged receipt settles the
// order against the given bank account
func (h *PaymentOrderHandler) ConfirmPayment(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req paymentapp.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	order, err := h.verification.ConfirmReceipt(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, order)
}

// CompleteWithReceipt analyzes and settles in a single call.
//
// Deprecated: kept for older clients. New clients should call
// verify-payment and then confirm-payment.
func (h *PaymentOrderHandler) CompleteWithReceipt(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	accountID, err := uuid.Parse(c.PostForm("bank_account_id"))
	if err != nil {
		h.BadRequest(c, "Invalid or missing bank_account_id")
		return
	}

	upload, ok := h.readReceiptFile(c)
	if !ok {
		return
	}

	order, err := h.verification.CompleteWithReceipt(c.Request.Context(), actor, id, accountID, upload)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, order)
}

// readReceiptFile reads the multipart "receipt" file into memory
func (h *PaymentOrderHandler) readReceiptFile(c *gin.Context) (paymentapp.FileUpload, bool) {
	fileHeader, err := c.FormFile("receipt")
	if err != nil {
		h.BadRequest(c, "A receipt file is required")
		return paymentapp.FileUpload{}, false
	}

	data, err := readMultipartFile(fileHeader)
	if err != nil {
		h.BadRequest(c, "Failed to read receipt file")
		return paymentapp.FileUpload{}, false
	}

	return paymentapp.FileUpload{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}, true
}

func readMultipartFile(fileHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// RegisterRoutes registers payment order routes
func (h *PaymentOrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/payment-orders")
	{
		orders.GET("", h.List)
		orders.GET("/summary", h.Summary)
		orders.GET("/statistics", h.StatusCounts)
		orders.GET("/pending", h.Pending)
		orders.GET("/:id", h.Get)
		orders.POST("", h.Create)
		orders.PUT("/:id", h.Update)
		orders.DELETE("/:id", h.Delete)
		orders.POST("/:id/approve", h.Approve)
		orders.POST("/:id/upload-receipt", h.UploadReceipt)
		orders.POST("/:id/reject", h.Reject)
		orders.POST("/:id/cancel", h.Cancel)
		orders.POST("/:id/complete", h.Complete)
		orders.POST("/:id/verify-payment", h.VerifyPayment)
		orders.POST("/:id/confirm-payment", h.ConfirmPayment)
		orders.POST("/:id/complete-with-receipt", h.CompleteWithReceipt)
	}
}
