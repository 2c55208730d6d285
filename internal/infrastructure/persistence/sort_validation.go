package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed
// fields. Returns the defaultField if the input is empty or not whitelisted.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// PaymentOrderSortFields contains allowed sort fields for payment orders
var PaymentOrderSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"recipient_name": true,
	"amount":         true,
	"category":       true,
	"status":         true,
	"due_date":       true,
	"completed_at":   true,
}

// BankAccountSortFields contains allowed sort fields for bank accounts
var BankAccountSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"bank_name":  true,
	"balance":    true,
	"status":     true,
}

// TransactionSortFields contains allowed sort fields for ledger entries
var TransactionSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"occurred_on": true,
	"amount":      true,
	"type":        true,
}

// CheckSortFields contains allowed sort fields for checks
var CheckSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"check_number": true,
	"counterparty": true,
	"amount":       true,
	"status":       true,
	"due_date":     true,
	"issue_date":   true,
}

// DebtSortFields contains allowed sort fields for debts
var DebtSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"creditor_name": true,
	"total_amount":  true,
	"paid_amount":   true,
	"status":        true,
	"due_date":      true,
}

// IncomeRecordSortFields contains allowed sort fields for income records
var IncomeRecordSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"payer_name":  true,
	"amount":      true,
	"source":      true,
	"received_on": true,
}

// UserSortFields contains allowed sort fields for users
var UserSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"username":      true,
	"email":         true,
	"status":        true,
	"last_login_at": true,
}
