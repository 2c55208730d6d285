package client

import (
	"context"

	"github.com/google/uuid"
)

// Policy mirrors the server-side workflow toggles the controller can
// check locally. It must match the server configuration or the local
// fast-fail will disagree with the backend.
type Policy struct {
	// AllowCancelApproved permits cancelling an order that is already
	// approved, not just a pending one.
	AllowCancelApproved bool
}

// DefaultPolicy matches the server's default workflow configuration
func DefaultPolicy() Policy {
	return Policy{AllowCancelApproved: true}
}

// Controller drives the payment order lifecycle on top of the Gateway.
// Every operation checks the transition against the locally known order
// first and returns *InvalidTransitionError without touching the
// network when it cannot succeed. On success the server-returned entity
// is handed back; the controller never predicts the result locally.
type Controller struct {
	gateway *Gateway
	policy  Policy
}

// NewController creates a Controller over the given gateway
func NewController(gateway *Gateway, policy Policy) *Controller {
	return &Controller{gateway: gateway, policy: policy}
}

// Approve moves a pending order to approved
func (c *Controller) Approve(ctx context.Context, order *Order) (*Order, error) {
	if order.Status != OrderStatusPending {
		return nil, &InvalidTransitionError{Current: order.Status, Requested: "approve", Required: OrderStatusPending}
	}
	return c.gateway.ApproveOrder(ctx, order.ID)
}

// Reject moves a pending order to rejected. The reason is mandatory and
// checked before any network call.
func (c *Controller) Reject(ctx context.Context, order *Order, reason string) (*Order, error) {
	if reason == "" {
		return nil, validationError("rejection reason must not be empty")
	}
	if order.Status != OrderStatusPending {
		return nil, &InvalidTransitionError{Current: order.Status, Requested: "reject", Required: OrderStatusPending}
	}
	return c.gateway.RejectOrder(ctx, order.ID, reason)
}

// Cancel cancels a pending order, or an approved one when the policy
// allows it
func (c *Controller) Cancel(ctx context.Context, order *Order) (*Order, error) {
	switch order.Status {
	case OrderStatusPending:
	case OrderStatusApproved:
		if !c.policy.AllowCancelApproved {
			return nil, &InvalidTransitionError{Current: order.Status, Requested: "cancel", Required: OrderStatusPending}
		}
	default:
		required := OrderStatusPending
		if c.policy.AllowCancelApproved {
			required = OrderStatusPending + " or " + OrderStatusApproved
		}
		return nil, &InvalidTransitionError{Current: order.Status, Requested: "cancel", Required: required}
	}
	return c.gateway.CancelOrder(ctx, order.ID)
}

// Complete settles an approved order at face value with zero fees
func (c *Controller) Complete(ctx context.Context, order *Order, bankAccountID uuid.UUID) (*Order, error) {
	if order.Status != OrderStatusApproved {
		return nil, &InvalidTransitionError{Current: order.Status, Requested: "complete", Required: OrderStatusApproved}
	}
	return c.gateway.CompleteOrder(ctx, order.ID, bankAccountID)
}

// StageReceipt uploads a receipt for analysis against the settling
// account without moving money. The order must be approved; a doomed
// upload is refused locally.
func (c *Controller) StageReceipt(ctx context.Context, order *Order, bankAccountID uuid.UUID, file ReceiptFile) (*StageResult, error) {
	if order.Status != OrderStatusApproved {
		return nil, &InvalidTransitionError{Current: order.Status, Requested: "complete", Required: OrderStatusApproved}
	}
	return c.gateway.VerifyPayment(ctx, order.ID, bankAccountID, file)
}

// ConfirmReceipt settles a previously staged receipt. A stale staging
// reference surfaces as KindStaleArtifact; restart with StageReceipt.
func (c *Controller) ConfirmReceipt(ctx context.Context, order *Order, stagingRef string, bankAccountID uuid.UUID) (*Order, error) {
	if stagingRef == "" {
		return nil, validationError("staging reference must not be empty")
	}
	if order.Status != OrderStatusApproved {
		return nil, &InvalidTransitionError{Current: order.Status, Requested: "complete", Required: OrderStatusApproved}
	}
	return c.gateway.ConfirmPayment(ctx, order.ID, stagingRef, bankAccountID)
}

// CompleteWithReceipt uploads and settles in one shot.
//
// Deprecated: use StageReceipt followed by ConfirmReceipt so the
// analysis can be reviewed before anything settles.
func (c *Controller) CompleteWithReceipt(ctx context.Context, order *Order, bankAccountID uuid.UUID, file ReceiptFile) (*Order, error) {
	if order.Status != OrderStatusApproved {
		return nil, &InvalidTransitionError{Current: order.Status, Requested: "complete", Required: OrderStatusApproved}
	}
	return c.gateway.CompleteWithReceipt(ctx, order.ID, bankAccountID, file)
}
