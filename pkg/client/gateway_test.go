package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeFailure(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]string{"code": code, "message": message, "request_id": "req-test"},
	})
}

func loginFixture() map[string]any {
	return map[string]any{
		"access_token":             "access-abc",
		"refresh_token":            "refresh-abc",
		"access_token_expires_at":  time.Now().Add(15 * time.Minute).Format(time.RFC3339),
		"refresh_token_expires_at": time.Now().Add(168 * time.Hour).Format(time.RFC3339),
		"token_type":               "Bearer",
		"user": map[string]any{
			"id":       uuid.New().String(),
			"username": "ayse.demir",
			"role":     "admin",
			"status":   "active",
		},
	}
}

func TestGatewayLogin(t *testing.T) {
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			writeSuccess(w, http.StatusOK, loginFixture())
		case "/api/v1/auth/me":
			authHeader = r.Header.Get("Authorization")
			writeSuccess(w, http.StatusOK, map[string]any{"username": "ayse.demir", "role": "admin"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	gateway := NewGateway(server.URL)
	session, err := gateway.Login(context.Background(), "ayse.demir", "s3cret")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "access-abc", session.AccessToken())
	assert.Equal(t, "ayse.demir", session.User().Username)
	assert.False(t, session.Expired())

	user, err := gateway.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ayse.demir", user.Username)
	assert.Equal(t, "Bearer access-abc", authHeader)
}

func TestGatewayLoginFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
	}))
	defer server.Close()

	gateway := NewGateway(server.URL)
	_, err := gateway.Login(context.Background(), "ayse.demir", "wrong")
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, KindUnauthenticated, apiErr.Kind)
	assert.Equal(t, "INVALID_CREDENTIALS", apiErr.Code)
	assert.Equal(t, "req-test", apiErr.RequestID)
	assert.Nil(t, gateway.Session())
}

func TestGatewayRefresh(t *testing.T) {
	var sentRefreshToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			writeSuccess(w, http.StatusOK, loginFixture())
		case "/api/v1/auth/refresh":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			sentRefreshToken = body["refresh_token"]
			writeSuccess(w, http.StatusOK, map[string]any{
				"access_token":             "access-new",
				"refresh_token":            "refresh-new",
				"access_token_expires_at":  time.Now().Add(15 * time.Minute).Format(time.RFC3339),
				"refresh_token_expires_at": time.Now().Add(168 * time.Hour).Format(time.RFC3339),
				"token_type":               "Bearer",
			})
		}
	}))
	defer server.Close()

	gateway := NewGateway(server.URL)
	_, err := gateway.Login(context.Background(), "ayse.demir", "s3cret")
	require.NoError(t, err)

	require.NoError(t, gateway.Refresh(context.Background()))
	assert.Equal(t, "refresh-abc", sentRefreshToken)
	assert.Equal(t, "access-new", gateway.Session().AccessToken())
}

func TestGatewayRefreshWithoutSession(t *testing.T) {
	gateway := NewGateway("http://localhost:0")
	err := gateway.Refresh(context.Background())
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, apiErr.Kind)
}

func TestGatewayLogoutDropsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			writeSuccess(w, http.StatusOK, loginFixture())
		case "/api/v1/auth/logout":
			writeSuccess(w, http.StatusOK, nil)
		}
	}))
	defer server.Close()

	gateway := NewGateway(server.URL)
	_, err := gateway.Login(context.Background(), "ayse.demir", "s3cret")
	require.NoError(t, err)
	require.NotNil(t, gateway.Session())

	require.NoError(t, gateway.Logout(context.Background()))
	assert.Nil(t, gateway.Session())
}

func TestGatewayErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		code     string
		wantKind ErrorKind
	}{
		{"unauthenticated", http.StatusUnauthorized, "TOKEN_EXPIRED", KindUnauthenticated},
		{"unauthorized", http.StatusForbidden, "FORBIDDEN", KindUnauthorized},
		{"not found", http.StatusNotFound, "NOT_FOUND", KindNotFound},
		{"validation", http.StatusUnprocessableEntity, "INVALID_AMOUNT", KindValidation},
		{"bad request", http.StatusBadRequest, "BAD_REQUEST", KindValidation},
		{"conflict", http.StatusConflict, "CONCURRENCY_CONFLICT", KindConflict},
		{"invalid transition", http.StatusConflict, "INVALID_TRANSITION", KindConflict},
		{"stale artifact", http.StatusConflict, "STALE_ARTIFACT", KindStaleArtifact},
		{"server error", http.StatusInternalServerError, "INTERNAL_ERROR", KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeFailure(w, tt.status, tt.code, "boom")
			}))
			defer server.Close()

			gateway := NewGateway(server.URL)
			_, err := gateway.GetOrder(context.Background(), uuid.New())
			require.Error(t, err)

			apiErr, ok := AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.wantKind == KindTransport, apiErr.Retryable())
		})
	}
}

func TestGatewayTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	gateway := NewGateway(server.URL)
	_, err := gateway.GetOrder(context.Background(), uuid.New())
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.True(t, apiErr.Retryable())
}

func TestGatewayListOrders(t *testing.T) {
	orderID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/payment-orders", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "pending", r.URL.Query().Get("status"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{{
				"id":             orderID.String(),
				"recipient_name": "Demir Insaat Ltd",
				"amount":         "1250.00",
				"status":         "pending",
			}},
			"meta": map[string]any{"total": 41, "page": 2, "page_size": 20, "total_pages": 3},
		})
	}))
	defer server.Close()

	gateway := NewGateway(server.URL)
	orders, meta, err := gateway.ListOrders(context.Background(), ListOptions{Page: 2, Status: "pending"})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, orderID, orders[0].ID)
	assert.True(t, orders[0].Amount.Equal(decimal.RequireFromString("1250.00")))
	require.NotNil(t, meta)
	assert.Equal(t, int64(41), meta.Total)
	assert.Equal(t, 3, meta.TotalPages)
}

func TestGatewayOrderSummaries(t *testing.T) {
	orderID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/payment-orders/summary", r.URL.Path)
		writeSuccess(w, http.StatusOK, []map[string]any{{
			"id":             orderID.String(),
			"recipient_name": "Demir Insaat Ltd",
			"amount":         "1250.00",
			"currency":       "TRY",
			"status":         "approved",
			"category":       "supplier",
			"created_at":     time.Now().Format(time.RFC3339),
		}})
	}))
	defer server.Close()

	gateway := NewGateway(server.URL)
	summaries, _, err := gateway.OrderSummaries(context.Background(), ListOptions{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, orderID, summaries[0].ID)
	assert.Equal(t, "Demir Insaat Ltd", summaries[0].RecipientName)
	assert.Equal(t, OrderStatusApproved, summaries[0].Status)
	assert.True(t, summaries[0].Amount.Equal(decimal.RequireFromString("1250.00")))
}

func TestGatewayVerifyPaymentMultipart(t *testing.T) {
	orderID := uuid.New()
	accountID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/payment-orders/"+orderID.String()+"/verify-payment", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, accountID.String(), r.FormValue("bank_account_id"))

		file, header, err := r.FormFile("receipt")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "dekont.pdf", header.Filename)

		writeSuccess(w, http.StatusOK, map[string]any{
			"staging_ref": "stage-123",
			"expires_at":  time.Now().Add(30 * time.Minute).Format(time.RFC3339),
			"analysis": map[string]any{
				"recipient_name": "Demir Insaat Ltd",
				"amount":         "1250.00",
				"total_fees":     "4.50",
				"currency":       "TRY",
				"confidence":     0.93,
			},
			"mismatches":           []string{"recipient name differs"},
			"insufficient_balance": true,
		})
	}))
	defer server.Close()

	gateway := NewGateway(server.URL)
	result, err := gateway.VerifyPayment(context.Background(), orderID, accountID, ReceiptFile{
		Name:        "dekont.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4 fake"),
	})
	require.NoError(t, err)
	assert.Equal(t, "stage-123", result.StagingRef)
	assert.Equal(t, []string{"recipient name differs"}, result.Mismatches)
	assert.True(t, result.InsufficientBalance, "balance shortfall is advisory, not an error")
	assert.InDelta(t, 0.93, result.Analysis.Confidence, 0.001)
}

func TestGatewayConfirmPayment(t *testing.T) {
	orderID := uuid.New()
	accountID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/payment-orders/"+orderID.String()+"/confirm-payment", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "stage-123", body["staging_ref"])
		assert.Equal(t, accountID.String(), body["bank_account_id"])

		writeSuccess(w, http.StatusOK, map[string]any{
			"id":     orderID.String(),
			"status": "completed",
		})
	}))
	defer server.Close()

	gateway := NewGateway(server.URL)
	order, err := gateway.ConfirmPayment(context.Background(), orderID, "stage-123", accountID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCompleted, order.Status)
}

func TestGatewayCompleteWithReceiptFormField(t *testing.T) {
	orderID := uuid.New()
	accountID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, accountID.String(), r.FormValue("bank_account_id"))

		_, _, err := r.FormFile("receipt")
		require.NoError(t, err)

		writeSuccess(w, http.StatusOK, map[string]any{"id": orderID.String(), "status": "completed"})
	}))
	defer server.Close()

	gateway := NewGateway(server.URL)
	order, err := gateway.CompleteWithReceipt(context.Background(), orderID, accountID, ReceiptFile{
		Name: "dekont.png", ContentType: "image/png", Data: []byte{0x89, 0x50},
	})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCompleted, order.Status)
}

func TestGatewayNonEnvelopeErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>upstream down</html>"))
	}))
	defer server.Close()

	gateway := NewGateway(server.URL)
	_, err := gateway.GetOrder(context.Background(), uuid.New())
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}
