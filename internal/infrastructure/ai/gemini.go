// Package ai provides Gemini-backed receipt analysis and payment
// categorization, plus stub implementations for running without an API key.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	paymentapp "github.com/backoffice/backend/internal/application/payment"
	"github.com/backoffice/backend/internal/domain/payment"
	infraconfig "github.com/backoffice/backend/internal/infrastructure/config"
	"github.com/google/generative-ai-go/genai"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Ensure GeminiService implements both AI ports
var (
	_ paymentapp.ReceiptAnalyzer = (*GeminiService)(nil)
	_ paymentapp.Categorizer     = (*GeminiService)(nil)
)

// GeminiService analyzes receipt documents and suggests payment
// categories using the Gemini API
type GeminiService struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *zap.Logger
}

// NewGeminiService creates a GeminiService from configuration
func NewGeminiService(ctx context.Context, cfg *infraconfig.AIConfig, logger *zap.Logger) (*GeminiService, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}

	return &GeminiService{
		client: client,
		model:  client.GenerativeModel(model),
		logger: logger,
	}, nil
}

// Close releases the underlying API client
func (s *GeminiService) Close() error {
	return s.client.Close()
}

const receiptPrompt = `Analyze this bank transfer receipt document.

Extract the actual values printed on the receipt. Bank transfer fees are
normal and must be reported separately from the transfer amount.

Respond with ONLY a JSON object in this exact shape:
{
  "recipient_name": "recipient as printed on the receipt",
  "recipient_iban": "IBAN as printed on the receipt",
  "amount": 4000.00,
  "total_fees": 5.90,
  "currency": "TRY",
  "transfer_date": "2024-01-15",
  "summary": "one sentence describing the transfer",
  "confidence": 0.95
}

Rules:
- "amount" is the transfer amount EXCLUDING fees
- "total_fees" is the sum of all fees and commissions, 0 if none are shown
- "confidence" is between 0 and 1
- Use null for values you cannot read`

// AnalyzeReceipt extracts structured transfer data from a receipt file
func (s *GeminiService) AnalyzeReceipt(ctx context.Context, file paymentapp.FileUpload) (*paymentapp.ReceiptAnalysis, error) {
	if len(file.Data) == 0 {
		return nil, errors.New("receipt file is empty")
	}

	resp, err := s.model.GenerateContent(ctx,
		genai.Text(receiptPrompt),
		genai.Blob{MIMEType: file.ContentType, Data: file.Data},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	analysis, err := parseReceiptAnalysis(text)
	if err != nil {
		s.logger.Warn("unparseable receipt analysis response",
			zap.String("response", truncate(text, 200)),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("receipt analyzed",
		zap.String("recipient", analysis.RecipientName),
		zap.String("amount", analysis.Amount.String()),
		zap.String("fees", analysis.TotalFees.String()),
		zap.Float64("confidence", analysis.Confidence))

	return analysis, nil
}

// SuggestCategory asks Gemini to pick a category for free-form payment text.
// The suggestion is advisory; callers never let it override a user's choice.
func (s *GeminiService) SuggestCategory(ctx context.Context, text string) (payment.Category, string, error) {
	if strings.TrimSpace(text) == "" {
		return payment.CategoryOther, "", errors.New("text to categorize is empty")
	}

	prompt := fmt.Sprintf(`Categorize this payment description:

%s

Assign exactly one of these categories:
office_supplies, utilities, salary, rent, insurance, tax, loan, supplier, service, other

Respond with ONLY a JSON object:
{"category": "selected_category", "description": "cleaned up, professional version of the description"}`, text)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return payment.CategoryOther, "", fmt.Errorf("gemini API error: %w", err)
	}

	raw, err := responseText(resp)
	if err != nil {
		return payment.CategoryOther, "", err
	}

	var parsed struct {
		Category    string `json:"category"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &parsed); err != nil {
		return payment.CategoryOther, "", fmt.Errorf("failed to parse category response: %w", err)
	}

	category := payment.Category(parsed.Category)
	if !category.IsValid() {
		category = payment.CategoryOther
	}
	return category, parsed.Description, nil
}

// receiptPayload mirrors the JSON the model is asked to produce. The
// transfer date arrives as a plain date string.
type receiptPayload struct {
	RecipientName string          `json:"recipient_name"`
	RecipientIBAN string          `json:"recipient_iban"`
	Amount        decimal.Decimal `json:"amount"`
	TotalFees     decimal.Decimal `json:"total_fees"`
	Currency      string          `json:"currency"`
	TransferDate  string          `json:"transfer_date"`
	Summary       string          `json:"summary"`
	Confidence    float64         `json:"confidence"`
}

func parseReceiptAnalysis(text string) (*paymentapp.ReceiptAnalysis, error) {
	var payload receiptPayload
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse receipt analysis: %w", err)
	}
	if !payload.Amount.IsPositive() {
		return nil, errors.New("receipt analysis reported no transfer amount")
	}
	if payload.TotalFees.IsNegative() {
		return nil, errors.New("receipt analysis reported negative fees")
	}

	analysis := &paymentapp.ReceiptAnalysis{
		RecipientName: payload.RecipientName,
		RecipientIBAN: strings.ToUpper(strings.ReplaceAll(payload.RecipientIBAN, " ", "")),
		Amount:        payload.Amount,
		TotalFees:     payload.TotalFees,
		Currency:      strings.ToUpper(payload.Currency),
		Summary:       payload.Summary,
		Confidence:    payload.Confidence,
	}
	if payload.TransferDate != "" {
		if date, err := time.Parse("2006-01-02", payload.TransferDate); err == nil {
			analysis.TransferDate = &date
		}
	}
	return analysis, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response from Gemini API")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("no text in Gemini API response")
	}
	return sb.String(), nil
}

// stripCodeFences unwraps a JSON body the model wrapped in markdown fences
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if idx := strings.Index(trimmed, "```json"); idx >= 0 {
		trimmed = trimmed[idx+len("```json"):]
	} else if idx := strings.Index(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[idx+3:]
	}
	if idx := strings.Index(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
