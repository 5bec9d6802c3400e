package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultHourlyWage is the wage used to express spending as working hours.
const DefaultHourlyWage = 200

// ValidationError reports user input that was rejected before it could reach
// the ledger.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ParseAmount parses a user-entered amount. Empty, non-numeric and negative
// input is rejected. Thousands separators are tolerated.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Decimal{}, &ValidationError{Field: "amount", Message: "amount is required"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, &ValidationError{Field: "amount", Message: fmt.Sprintf("%q is not a number", s)}
	}
	if d.IsNegative() {
		return decimal.Decimal{}, &ValidationError{Field: "amount", Message: "amount must not be negative"}
	}
	return d, nil
}

// ParseType validates a transaction type.
func ParseType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeIncome:
		return TypeIncome, nil
	case TypeExpense:
		return TypeExpense, nil
	}
	return "", &ValidationError{Field: "type", Message: fmt.Sprintf("%q is neither income nor expense", s)}
}

// ParseAccountType validates an account kind.
func ParseAccountType(s string) (AccountType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, at := range AccountTypes {
		if string(at) == s {
			return at, nil
		}
	}
	return "", &ValidationError{Field: "account type", Message: fmt.Sprintf("unknown account type %q", s)}
}

// LaborHours expresses amount as hours of work at the given hourly wage,
// rounded to one decimal place. A non-positive wage falls back to
// DefaultHourlyWage.
func LaborHours(amount decimal.Decimal, hourlyWage decimal.Decimal) decimal.Decimal {
	if !hourlyWage.IsPositive() {
		hourlyWage = decimal.NewFromInt(DefaultHourlyWage)
	}
	return amount.Div(hourlyWage).Round(1)
}
