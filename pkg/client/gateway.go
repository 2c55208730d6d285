package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultTimeout = 30 * time.Second

// Gateway is the typed HTTP layer over the back office API. Every call
// returns either the decoded payload or an *APIError classifying the
// failure. The gateway never retries; callers decide based on the kind.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
}

// Option configures a Gateway
type Option func(*Gateway)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.httpClient = c }
}

// WithTimeout sets the per-request timeout on the default client
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.httpClient.Timeout = d }
}

// NewGateway creates a Gateway for the given server base URL, e.g.
// "https://backoffice.example.com". The /api/v1 prefix is appended
// internally.
func NewGateway(baseURL string, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Session returns the active session, or nil before Login
func (g *Gateway) Session() *Session {
	return g.session
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *envelopeError  `json:"error"`
	Meta    *Meta           `json:"meta"`
}

type envelopeError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// do executes one request and decodes the response envelope into out.
// A nil out discards the payload.
func (g *Gateway) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) (*Meta, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+"/api/v1"+path, body)
	if err != nil {
		return nil, transportError(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if g.session != nil {
		req.Header.Set("Authorization", "Bearer "+g.session.AccessToken())
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{
				Kind:       classify(resp.StatusCode, ""),
				StatusCode: resp.StatusCode,
				Message:    http.StatusText(resp.StatusCode),
			}
		}
		return nil, transportError(fmt.Errorf("decoding response: %w", err))
	}

	if resp.StatusCode >= 400 || !env.Success {
		apiErr := &APIError{
			Kind:       classify(resp.StatusCode, ""),
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
		if env.Error != nil {
			apiErr.Kind = classify(resp.StatusCode, env.Error.Code)
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.RequestID = env.Error.RequestID
		}
		return nil, apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, transportError(fmt.Errorf("decoding payload: %w", err))
		}
	}
	return env.Meta, nil
}

func (g *Gateway) doJSON(ctx context.Context, method, path string, in, out any) (*Meta, error) {
	var body io.Reader
	contentType := ""
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, transportError(err)
		}
		body = bytes.NewReader(buf)
		contentType = "application/json"
	}
	return g.do(ctx, method, path, body, contentType, out)
}

// doMultipart uploads a receipt file, plus optional extra form fields
func (g *Gateway) doMultipart(ctx context.Context, path string, file ReceiptFile, fields map[string]string, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return transportError(err)
		}
	}
	part, err := writer.CreateFormFile("receipt", file.Name)
	if err != nil {
		return transportError(err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return transportError(err)
	}
	if err := writer.Close(); err != nil {
		return transportError(err)
	}
	_, err = g.do(ctx, http.MethodPost, path, &buf, writer.FormDataContentType(), out)
	return err
}

func listQuery(opts ListOptions) string {
	values := url.Values{}
	if opts.Page > 0 {
		values.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		values.Set("page_size", strconv.Itoa(opts.PageSize))
	}
	if opts.Search != "" {
		values.Set("search", opts.Search)
	}
	if opts.Status != "" {
		values.Set("status", opts.Status)
	}
	if opts.Category != "" {
		values.Set("category", opts.Category)
	}
	if opts.Source != "" {
		values.Set("source", opts.Source)
	}
	if opts.Direction != "" {
		values.Set("direction", opts.Direction)
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}

// Login authenticates and installs a fresh session on the gateway
func (g *Gateway) Login(ctx context.Context, username, password string) (*Session, error) {
	payload := map[string]string{"username": username, "password": password}
	var resp loginPayload
	if _, err := g.doJSON(ctx, http.MethodPost, "/auth/login", payload, &resp); err != nil {
		return nil, err
	}
	g.session = newSession(resp)
	return g.session, nil
}

// Refresh exchanges the refresh token for a new token pair. This is the
// only way an existing session is renewed.
func (g *Gateway) Refresh(ctx context.Context) error {
	if g.session == nil {
		return validationError("no active session to refresh")
	}
	payload := map[string]string{"refresh_token": g.session.refreshTokenValue()}
	var resp refreshPayload
	if _, err := g.doJSON(ctx, http.MethodPost, "/auth/refresh", payload, &resp); err != nil {
		return err
	}
	g.session.update(resp)
	return nil
}

// Logout invalidates the session server-side and drops it locally. The
// local session is dropped even when the server call fails.
func (g *Gateway) Logout(ctx context.Context) error {
	if g.session == nil {
		return nil
	}
	_, err := g.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil)
	g.session = nil
	return err
}

// Me returns the user behind the current session
func (g *Gateway) Me(ctx context.Context) (*User, error) {
	var user User
	if _, err := g.doJSON(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListOrders returns a page of payment orders
func (g *Gateway) ListOrders(ctx context.Context, opts ListOptions) ([]Order, *Meta, error) {
	var orders []Order
	meta, err := g.doJSON(ctx, http.MethodGet, "/payment-orders"+listQuery(opts), nil, &orders)
	if err != nil {
		return nil, nil, err
	}
	return orders, meta, nil
}

// OrderSummaries returns a page of lightweight order projections
func (g *Gateway) OrderSummaries(ctx context.Context, opts ListOptions) ([]OrderSummary, *Meta, error) {
	var summaries []OrderSummary
	meta, err := g.doJSON(ctx, http.MethodGet, "/payment-orders/summary"+listQuery(opts), nil, &summaries)
	if err != nil {
		return nil, nil, err
	}
	return summaries, meta, nil
}

// OrderStatistics returns how many visible orders sit in each status
func (g *Gateway) OrderStatistics(ctx context.Context) (map[string]int64, error) {
	var counts map[string]int64
	if _, err := g.doJSON(ctx, http.MethodGet, "/payment-orders/statistics", nil, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// PendingOrders returns a page of orders awaiting approval
func (g *Gateway) PendingOrders(ctx context.Context, opts ListOptions) ([]Order, *Meta, error) {
	var orders []Order
	meta, err := g.doJSON(ctx, http.MethodGet, "/payment-orders/pending"+listQuery(opts), nil, &orders)
	if err != nil {
		return nil, nil, err
	}
	return orders, meta, nil
}

// GetOrder fetches one payment order
func (g *Gateway) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	if _, err := g.doJSON(ctx, http.MethodGet, "/payment-orders/"+id.String(), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateOrder creates a payment order
func (g *Gateway) CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error) {
	var order Order
	if _, err := g.doJSON(ctx, http.MethodPost, "/payment-orders", in, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrder edits a pending payment order
func (g *Gateway) UpdateOrder(ctx context.Context, id uuid.UUID, in UpdateOrderInput) (*Order, error) {
	var order Order
	if _, err := g.doJSON(ctx, http.MethodPut, "/payment-orders/"+id.String(), in, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// DeleteOrder removes a pending payment order
func (g *Gateway) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	_, err := g.doJSON(ctx, http.MethodDelete, "/payment-orders/"+id.String(), nil, nil)
	return err
}

// ApproveOrder moves a pending order to approved
func (g *Gateway) ApproveOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	if _, err := g.doJSON(ctx, http.MethodPost, "/payment-orders/"+id.String()+"/approve", nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// RejectOrder moves a pending order to rejected with a reason
func (g *Gateway) RejectOrder(ctx context.Context, id uuid.UUID, reason string) (*Order, error) {
	payload := map[string]string{"reason": reason}
	var order Order
	if _, err := g.doJSON(ctx, http.MethodPost, "/payment-orders/"+id.String()+"/reject", payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder cancels a pending or approved order
func (g *Gateway) CancelOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	if _, err := g.doJSON(ctx, http.MethodPost, "/payment-orders/"+id.String()+"/cancel", nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CompleteOrder settles an approved order at face value with zero fees
func (g *Gateway) CompleteOrder(ctx context.Context, id, bankAccountID uuid.UUID) (*Order, error) {
	payload := map[string]uuid.UUID{"bank_account_id": bankAccountID}
	var order Order
	if _, err := g.doJSON(ctx, http.MethodPost, "/payment-orders/"+id.String()+"/complete", payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UploadReceipt attaches a receipt document to an order without settling
func (g *Gateway) UploadReceipt(ctx context.Context, id uuid.UUID, file ReceiptFile) (*Order, error) {
	var order Order
	if err := g.doMultipart(ctx, "/payment-orders/"+id.String()+"/upload-receipt", file, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// VerifyPayment uploads a receipt for analysis and staging against the
// settling account. Nothing is settled; the returned staging reference
// feeds ConfirmPayment.
func (g *Gateway) VerifyPayment(ctx context.Context, id, bankAccountID uuid.UUID, file ReceiptFile) (*StageResult, error) {
	fields := map[string]string{"bank_account_id": bankAccountID.String()}
	var result StageResult
	if err := g.doMultipart(ctx, "/payment-orders/"+id.String()+"/verify-payment", file, fields, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ConfirmPayment settles a previously staged receipt against an account
func (g *Gateway) ConfirmPayment(ctx context.Context, id uuid.UUID, stagingRef string, bankAccountID uuid.UUID) (*Order, error) {
	payload := struct {
		StagingRef    string    `json:"staging_ref"`
		BankAccountID uuid.UUID `json:"bank_account_id"`
	}{StagingRef: stagingRef, BankAccountID: bankAccountID}
	var order Order
	if _, err := g.doJSON(ctx, http.MethodPost, "/payment-orders/"+id.String()+"/confirm-payment", payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CompleteWithReceipt uploads a receipt and settles in a single call.
//
// Deprecated: use VerifyPayment followed by ConfirmPayment so the
// analysis can be reviewed before anything settles.
func (g *Gateway) CompleteWithReceipt(ctx context.Context, id, bankAccountID uuid.UUID, file ReceiptFile) (*Order, error) {
	fields := map[string]string{"bank_account_id": bankAccountID.String()}
	var order Order
	if err := g.doMultipart(ctx, "/payment-orders/"+id.String()+"/complete-with-receipt", file, fields, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListAccounts returns a page of bank accounts
func (g *Gateway) ListAccounts(ctx context.Context, opts ListOptions) ([]Account, *Meta, error) {
	var accounts []Account
	meta, err := g.doJSON(ctx, http.MethodGet, "/bank-accounts"+listQuery(opts), nil, &accounts)
	if err != nil {
		return nil, nil, err
	}
	return accounts, meta, nil
}

// GetAccount fetches one bank account
func (g *Gateway) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	var account Account
	if _, err := g.doJSON(ctx, http.MethodGet, "/bank-accounts/"+id.String(), nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// CreateAccount registers a bank account
func (g *Gateway) CreateAccount(ctx context.Context, in CreateAccountInput) (*Account, error) {
	var account Account
	if _, err := g.doJSON(ctx, http.MethodPost, "/bank-accounts", in, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// AdjustBalance corrects an account balance with an audit note
func (g *Gateway) AdjustBalance(ctx context.Context, id uuid.UUID, newBalance decimal.Decimal, note string) (*Account, error) {
	payload := struct {
		NewBalance decimal.Decimal `json:"new_balance"`
		Note       string          `json:"note,omitempty"`
	}{NewBalance: newBalance, Note: note}
	var account Account
	if _, err := g.doJSON(ctx, http.MethodPost, "/bank-accounts/"+id.String()+"/adjust-balance", payload, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// FreezeAccount blocks an account from further movement
func (g *Gateway) FreezeAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	return g.accountAction(ctx, id, "freeze")
}

// UnfreezeAccount lifts a freeze
func (g *Gateway) UnfreezeAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	return g.accountAction(ctx, id, "unfreeze")
}

// CloseAccount closes an account permanently
func (g *Gateway) CloseAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	return g.accountAction(ctx, id, "close")
}

func (g *Gateway) accountAction(ctx context.Context, id uuid.UUID, action string) (*Account, error) {
	var account Account
	if _, err := g.doJSON(ctx, http.MethodPost, "/bank-accounts/"+id.String()+"/"+action, nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// ListTransactions returns a page of ledger entries
func (g *Gateway) ListTransactions(ctx context.Context, opts ListOptions) ([]Transaction, *Meta, error) {
	var transactions []Transaction
	meta, err := g.doJSON(ctx, http.MethodGet, "/transactions"+listQuery(opts), nil, &transactions)
	if err != nil {
		return nil, nil, err
	}
	return transactions, meta, nil
}

// ListChecks returns a page of checks
func (g *Gateway) ListChecks(ctx context.Context, opts ListOptions) ([]Check, *Meta, error) {
	var checks []Check
	meta, err := g.doJSON(ctx, http.MethodGet, "/checks"+listQuery(opts), nil, &checks)
	if err != nil {
		return nil, nil, err
	}
	return checks, meta, nil
}

// GetCheck fetches one check
func (g *Gateway) GetCheck(ctx context.Context, id uuid.UUID) (*Check, error) {
	var check Check
	if _, err := g.doJSON(ctx, http.MethodGet, "/checks/"+id.String(), nil, &check); err != nil {
		return nil, err
	}
	return &check, nil
}

// CreateCheck registers a check
func (g *Gateway) CreateCheck(ctx context.Context, in CreateCheckInput) (*Check, error) {
	var check Check
	if _, err := g.doJSON(ctx, http.MethodPost, "/checks", in, &check); err != nil {
		return nil, err
	}
	return &check, nil
}

// CashCheck cashes a check at face value into an account
func (g *Gateway) CashCheck(ctx context.Context, id, bankAccountID uuid.UUID) (*Check, error) {
	payload := map[string]uuid.UUID{"bank_account_id": bankAccountID}
	var check Check
	if _, err := g.doJSON(ctx, http.MethodPost, "/checks/"+id.String()+"/cash", payload, &check); err != nil {
		return nil, err
	}
	return &check, nil
}

// EarlyCashCheck cashes a check before due date at a discounted amount
func (g *Gateway) EarlyCashCheck(ctx context.Context, id, bankAccountID uuid.UUID, receivedAmount decimal.Decimal) (*Check, error) {
	payload := struct {
		BankAccountID  uuid.UUID       `json:"bank_account_id"`
		ReceivedAmount decimal.Decimal `json:"received_amount"`
	}{BankAccountID: bankAccountID, ReceivedAmount: receivedAmount}
	var check Check
	if _, err := g.doJSON(ctx, http.MethodPost, "/checks/"+id.String()+"/early-cash", payload, &check); err != nil {
		return nil, err
	}
	return &check, nil
}

// ReturnCheck marks a check as bounced
func (g *Gateway) ReturnCheck(ctx context.Context, id uuid.UUID, note string) (*Check, error) {
	return g.checkNoteAction(ctx, id, "return", note)
}

// CancelCheck voids a check
func (g *Gateway) CancelCheck(ctx context.Context, id uuid.UUID, note string) (*Check, error) {
	return g.checkNoteAction(ctx, id, "cancel", note)
}

// MarkCheckLost records a check as lost
func (g *Gateway) MarkCheckLost(ctx context.Context, id uuid.UUID, note string) (*Check, error) {
	return g.checkNoteAction(ctx, id, "mark-lost", note)
}

func (g *Gateway) checkNoteAction(ctx context.Context, id uuid.UUID, action, note string) (*Check, error) {
	var payload any
	if note != "" {
		payload = map[string]string{"note": note}
	}
	var check Check
	if _, err := g.doJSON(ctx, http.MethodPost, "/checks/"+id.String()+"/"+action, payload, &check); err != nil {
		return nil, err
	}
	return &check, nil
}

// ListDebts returns a page of debts
func (g *Gateway) ListDebts(ctx context.Context, opts ListOptions) ([]Debt, *Meta, error) {
	var debts []Debt
	meta, err := g.doJSON(ctx, http.MethodGet, "/debts"+listQuery(opts), nil, &debts)
	if err != nil {
		return nil, nil, err
	}
	return debts, meta, nil
}

// GetDebt fetches one debt
func (g *Gateway) GetDebt(ctx context.Context, id uuid.UUID) (*Debt, error) {
	var debt Debt
	if _, err := g.doJSON(ctx, http.MethodGet, "/debts/"+id.String(), nil, &debt); err != nil {
		return nil, err
	}
	return &debt, nil
}

// CreateDebt registers a debt
func (g *Gateway) CreateDebt(ctx context.Context, in CreateDebtInput) (*Debt, error) {
	var debt Debt
	if _, err := g.doJSON(ctx, http.MethodPost, "/debts", in, &debt); err != nil {
		return nil, err
	}
	return &debt, nil
}

// PayDebt records an installment against a debt
func (g *Gateway) PayDebt(ctx context.Context, id uuid.UUID, in PayDebtInput) (*Debt, error) {
	var debt Debt
	if _, err := g.doJSON(ctx, http.MethodPost, "/debts/"+id.String()+"/pay", in, &debt); err != nil {
		return nil, err
	}
	return &debt, nil
}

// CancelDebt voids a debt
func (g *Gateway) CancelDebt(ctx context.Context, id uuid.UUID) (*Debt, error) {
	var debt Debt
	if _, err := g.doJSON(ctx, http.MethodPost, "/debts/"+id.String()+"/cancel", nil, &debt); err != nil {
		return nil, err
	}
	return &debt, nil
}

// ListIncome returns a page of income records
func (g *Gateway) ListIncome(ctx context.Context, opts ListOptions) ([]Income, *Meta, error) {
	var records []Income
	meta, err := g.doJSON(ctx, http.MethodGet, "/income-records"+listQuery(opts), nil, &records)
	if err != nil {
		return nil, nil, err
	}
	return records, meta, nil
}

// GetIncome fetches one income record
func (g *Gateway) GetIncome(ctx context.Context, id uuid.UUID) (*Income, error) {
	var record Income
	if _, err := g.doJSON(ctx, http.MethodGet, "/income-records/"+id.String(), nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateIncome records received income
func (g *Gateway) CreateIncome(ctx context.Context, in CreateIncomeInput) (*Income, error) {
	var record Income
	if _, err := g.doJSON(ctx, http.MethodPost, "/income-records", in, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// DepositIncome credits recorded income to a bank account
func (g *Gateway) DepositIncome(ctx context.Context, id, bankAccountID uuid.UUID) (*Income, error) {
	payload := map[string]uuid.UUID{"bank_account_id": bankAccountID}
	var record Income
	if _, err := g.doJSON(ctx, http.MethodPost, "/income-records/"+id.String()+"/deposit", payload, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Dashboard fetches the landing-screen summary
func (g *Gateway) Dashboard(ctx context.Context) (*Dashboard, error) {
	var dashboard Dashboard
	if _, err := g.doJSON(ctx, http.MethodGet, "/reports/dashboard", nil, &dashboard); err != nil {
		return nil, err
	}
	return &dashboard, nil
}

// CashFlow fetches the cash flow report for a date range. Empty strings
// fall back to the server default of the current month.
func (g *Gateway) CashFlow(ctx context.Context, from, to string) (*CashFlow, error) {
	var report CashFlow
	if _, err := g.doJSON(ctx, http.MethodGet, "/reports/cash-flow"+periodQuery(from, to), nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// IncomeBySource fetches the income breakdown for a date range
func (g *Gateway) IncomeBySource(ctx context.Context, from, to string) (*IncomeBySource, error) {
	var report IncomeBySource
	if _, err := g.doJSON(ctx, http.MethodGet, "/reports/income-by-source"+periodQuery(from, to), nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func periodQuery(from, to string) string {
	values := url.Values{}
	if from != "" {
		values.Set("from", from)
	}
	if to != "" {
		values.Set("to", to)
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}
