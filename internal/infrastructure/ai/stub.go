package ai

import (
	"context"
	"strings"

	paymentapp "github.com/backoffice/backend/internal/application/payment"
	"github.com/backoffice/backend/internal/domain/payment"
	"github.com/backoffice/backend/internal/domain/shared"
)

// Ensure stubs implement the AI ports
var (
	_ paymentapp.ReceiptAnalyzer = (*StubAnalyzer)(nil)
	_ paymentapp.Categorizer     = (*StubCategorizer)(nil)
)

// StubAnalyzer rejects all analysis requests. Used when no AI provider is
// configured so that receipt-verified completion fails loudly instead of
// settling on fabricated values.
type StubAnalyzer struct{}

// NewStubAnalyzer creates a StubAnalyzer
func NewStubAnalyzer() *StubAnalyzer { return &StubAnalyzer{} }

// AnalyzeReceipt always fails with a configuration error
func (a *StubAnalyzer) AnalyzeReceipt(ctx context.Context, file paymentapp.FileUpload) (*paymentapp.ReceiptAnalysis, error) {
	return nil, shared.NewDomainError("AI_DISABLED", "Receipt analysis requires a configured AI provider")
}

// StubCategorizer suggests a category by keyword matching. A crude stand-in
// for the Gemini categorizer in development setups.
type StubCategorizer struct{}

// NewStubCategorizer creates a StubCategorizer
func NewStubCategorizer() *StubCategorizer { return &StubCategorizer{} }

var keywordCategories = []struct {
	category payment.Category
	keywords []string
}{
	{payment.CategoryRent, []string{"rent", "kira", "lease"}},
	{payment.CategoryUtilities, []string{"electric", "water", "gas", "internet", "phone", "fatura"}},
	{payment.CategorySalary, []string{"salary", "wage", "maas", "payroll"}},
	{payment.CategoryInsurance, []string{"insurance", "sigorta", "policy"}},
	{payment.CategoryTax, []string{"tax", "vergi", "vat", "kdv"}},
	{payment.CategoryLoan, []string{"loan", "credit", "kredi", "installment"}},
	{payment.CategoryOfficeSupplies, []string{"office", "supplies", "stationery", "kirtasiye"}},
	{payment.CategorySupplier, []string{"supplier", "tedarik", "wholesale", "invoice"}},
	{payment.CategoryService, []string{"service", "maintenance", "consulting", "hizmet"}},
}

// SuggestCategory matches keywords against the known categories
func (c *StubCategorizer) SuggestCategory(ctx context.Context, text string) (payment.Category, string, error) {
	lowered := strings.ToLower(text)
	for _, kc := range keywordCategories {
		for _, keyword := range kc.keywords {
			if strings.Contains(lowered, keyword) {
				return kc.category, text, nil
			}
		}
	}
	return payment.CategoryOther, text, nil
}
