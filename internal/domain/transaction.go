package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a transaction.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Transaction is one ledger entry. Amount is always a non-negative magnitude;
// the sign applied to the account balance is derived from Type.
type Transaction struct {
	ID          string          `json:"id"`
	Date        civil.Date      `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Type        TransactionType `json:"type"`
	AccountID   string          `json:"accountId"`
	Mood        string          `json:"mood,omitempty"`
	Merchant    string          `json:"merchant,omitempty"`
}

// SignedAmount returns the balance effect of the transaction:
// +Amount for income, -Amount for expense.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TypeIncome {
		return t.Amount
	}
	return t.Amount.Neg()
}

// NewTransaction carries the fields of a transaction that has not been
// recorded yet. The ledger assigns the ID.
type NewTransaction struct {
	Date        civil.Date      `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Type        TransactionType `json:"type"`
	AccountID   string          `json:"accountId"`
	Mood        string          `json:"mood,omitempty"`
	Merchant    string          `json:"merchant,omitempty"`
}

// WithID promotes the pending record into a full Transaction.
func (n NewTransaction) WithID(id string) Transaction {
	return Transaction{
		ID:          id,
		Date:        n.Date,
		Amount:      n.Amount,
		Category:    n.Category,
		Description: n.Description,
		Type:        n.Type,
		AccountID:   n.AccountID,
		Mood:        n.Mood,
		Merchant:    n.Merchant,
	}
}

// Draft is a partial transaction as returned by the AI gateway. Every field
// is optional; the model may omit any of them.
type Draft struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Category    string           `json:"category,omitempty"`
	Description string           `json:"description,omitempty"`
	Type        TransactionType  `json:"type,omitempty"`
	Merchant    string           `json:"merchant,omitempty"`
	Date        string           `json:"date,omitempty"`
}

// HasAmount reports whether the model supplied an amount.
func (d Draft) HasAmount() bool {
	return d.Amount != nil
}

// DraftDefaults fills in what a draft leaves out when it is turned into a
// NewTransaction.
type DraftDefaults struct {
	Category    string
	Description string
	Type        TransactionType
	AccountID   string
	Date        civil.Date
}

// ToNewTransaction merges the draft over the defaults. A missing amount
// becomes zero; callers gate on HasAmount where that matters. Dates that do
// not parse fall back to the default date.
func (d Draft) ToNewTransaction(def DraftDefaults) NewTransaction {
	nt := NewTransaction{
		Date:        def.Date,
		Category:    def.Category,
		Description: def.Description,
		Type:        def.Type,
		AccountID:   def.AccountID,
		Merchant:    d.Merchant,
	}
	if d.Amount != nil {
		nt.Amount = d.Amount.Abs()
	}
	if d.Category != "" {
		nt.Category = d.Category
	}
	if d.Description != "" {
		nt.Description = d.Description
	}
	if d.Type != "" {
		nt.Type = d.Type
	}
	if d.Date != "" {
		if parsed, err := civil.ParseDate(d.Date); err == nil {
			nt.Date = parsed
		}
	}
	return nt
}
