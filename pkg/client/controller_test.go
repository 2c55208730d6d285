package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingServer records how many requests actually reached the backend
// so tests can prove that local fast-fail never touches the network.
func countingServer(t *testing.T, handler http.HandlerFunc) (*Gateway, *atomic.Int64) {
	t.Helper()
	var count atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		if handler != nil {
			handler(w, r)
		} else {
			writeSuccess(w, http.StatusOK, nil)
		}
	}))
	t.Cleanup(server.Close)
	return NewGateway(server.URL), &count
}

func orderInStatus(status string) *Order {
	return &Order{ID: uuid.New(), Status: status, Version: 1}
}

func TestControllerInvalidTransitionSkipsNetwork(t *testing.T) {
	gateway, requests := countingServer(t, nil)
	controller := NewController(gateway, DefaultPolicy())
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"approve completed", func() error {
			_, err := controller.Approve(ctx, orderInStatus(OrderStatusCompleted))
			return err
		}},
		{"approve rejected", func() error {
			_, err := controller.Approve(ctx, orderInStatus(OrderStatusRejected))
			return err
		}},
		{"reject approved", func() error {
			_, err := controller.Reject(ctx, orderInStatus(OrderStatusApproved), "too expensive")
			return err
		}},
		{"cancel completed", func() error {
			_, err := controller.Cancel(ctx, orderInStatus(OrderStatusCompleted))
			return err
		}},
		{"complete pending", func() error {
			_, err := controller.Complete(ctx, orderInStatus(OrderStatusPending), uuid.New())
			return err
		}},
		{"stage receipt on cancelled", func() error {
			_, err := controller.StageReceipt(ctx, orderInStatus(OrderStatusCancelled), uuid.New(), ReceiptFile{Name: "r.pdf"})
			return err
		}},
		{"confirm receipt on pending", func() error {
			_, err := controller.ConfirmReceipt(ctx, orderInStatus(OrderStatusPending), "stage-1", uuid.New())
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)

			var transitionErr *InvalidTransitionError
			require.ErrorAs(t, err, &transitionErr)
			assert.Equal(t, int64(0), requests.Load(), "local fast-fail must not hit the backend")
		})
	}
}

func TestControllerCompleteNamesRequiredStatus(t *testing.T) {
	gateway, requests := countingServer(t, nil)
	controller := NewController(gateway, DefaultPolicy())

	_, err := controller.Complete(context.Background(), orderInStatus(OrderStatusPending), uuid.New())
	require.Error(t, err)

	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, OrderStatusApproved, transitionErr.Required)
	assert.Equal(t, OrderStatusPending, transitionErr.Current)
	assert.True(t, strings.Contains(err.Error(), "approved"))
	assert.Equal(t, int64(0), requests.Load())
}

func TestControllerRejectRequiresReason(t *testing.T) {
	gateway, requests := countingServer(t, nil)
	controller := NewController(gateway, DefaultPolicy())

	_, err := controller.Reject(context.Background(), orderInStatus(OrderStatusPending), "")
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, apiErr.Kind)
	assert.Equal(t, int64(0), requests.Load())
}

func TestControllerConfirmRequiresStagingRef(t *testing.T) {
	gateway, requests := countingServer(t, nil)
	controller := NewController(gateway, DefaultPolicy())

	_, err := controller.ConfirmReceipt(context.Background(), orderInStatus(OrderStatusApproved), "", uuid.New())
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, apiErr.Kind)
	assert.Equal(t, int64(0), requests.Load())
}

func TestControllerCancelApprovedPolicy(t *testing.T) {
	t.Run("forbidden by policy", func(t *testing.T) {
		gateway, requests := countingServer(t, nil)
		controller := NewController(gateway, Policy{AllowCancelApproved: false})

		_, err := controller.Cancel(context.Background(), orderInStatus(OrderStatusApproved))
		require.Error(t, err)

		var transitionErr *InvalidTransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, int64(0), requests.Load())
	})

	t.Run("allowed by policy", func(t *testing.T) {
		order := orderInStatus(OrderStatusApproved)
		gateway, requests := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeSuccess(w, http.StatusOK, map[string]any{"id": order.ID.String(), "status": "cancelled"})
		})
		controller := NewController(gateway, Policy{AllowCancelApproved: true})

		cancelled, err := controller.Cancel(context.Background(), order)
		require.NoError(t, err)
		assert.Equal(t, OrderStatusCancelled, cancelled.Status)
		assert.Equal(t, int64(1), requests.Load())
	})
}

func TestControllerAppliesServerEntity(t *testing.T) {
	order := orderInStatus(OrderStatusPending)
	approvedBy := uuid.New()
	gateway, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/payment-orders/"+order.ID.String()+"/approve", r.URL.Path)
		writeSuccess(w, http.StatusOK, map[string]any{
			"id":          order.ID.String(),
			"status":      "approved",
			"approved_by": approvedBy.String(),
			"version":     2,
		})
	})
	controller := NewController(gateway, DefaultPolicy())

	approved, err := controller.Approve(context.Background(), order)
	require.NoError(t, err)

	// The server response is authoritative, including fields the client
	// could not have predicted.
	assert.Equal(t, OrderStatusApproved, approved.Status)
	assert.Equal(t, 2, approved.Version)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, approvedBy, *approved.ApprovedBy)
	assert.Equal(t, OrderStatusPending, order.Status, "the input order is never mutated")
}

func TestControllerBackendRejectionPassesThrough(t *testing.T) {
	// The local check can pass on stale knowledge; the backend still has
	// the final word and its classification must surface untouched.
	order := orderInStatus(OrderStatusApproved)
	gateway, requests := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusConflict, "STALE_ARTIFACT", "Staged verification expired")
	})
	controller := NewController(gateway, DefaultPolicy())

	_, err := controller.ConfirmReceipt(context.Background(), order, "stage-old", uuid.New())
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, KindStaleArtifact, apiErr.Kind)
	assert.Equal(t, int64(1), requests.Load())

	var transitionErr *InvalidTransitionError
	assert.False(t, errors.As(err, &transitionErr))
}

func TestControllerStageThenConfirm(t *testing.T) {
	order := orderInStatus(OrderStatusApproved)
	accountID := uuid.New()
	gateway, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/verify-payment"):
			writeSuccess(w, http.StatusOK, map[string]any{"staging_ref": "stage-42"})
		case strings.HasSuffix(r.URL.Path, "/confirm-payment"):
			writeSuccess(w, http.StatusOK, map[string]any{"id": order.ID.String(), "status": "completed"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})
	controller := NewController(gateway, DefaultPolicy())
	ctx := context.Background()

	staged, err := controller.StageReceipt(ctx, order, accountID, ReceiptFile{Name: "dekont.pdf", Data: []byte("x")})
	require.NoError(t, err)
	require.Equal(t, "stage-42", staged.StagingRef)

	completed, err := controller.ConfirmReceipt(ctx, order, staged.StagingRef, accountID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCompleted, completed.Status)
}
