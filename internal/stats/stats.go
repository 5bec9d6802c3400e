// Package stats derives dashboard figures from ledger state. Everything here
// is a pure function of its inputs.
package stats

import (
	"sort"
	"sync"

	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/shopspring/decimal"
)

// Compute returns the headline totals for the given state.
func Compute(txs []domain.Transaction, accounts []domain.Account) domain.SummaryStats {
	income := decimal.Zero
	expense := decimal.Zero
	for _, tx := range txs {
		switch tx.Type {
		case domain.TypeIncome:
			income = income.Add(tx.Amount)
		case domain.TypeExpense:
			expense = expense.Add(tx.Amount)
		}
	}

	netWorth := decimal.Zero
	for _, acc := range accounts {
		netWorth = netWorth.Add(acc.Balance)
	}

	return domain.SummaryStats{
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      income.Sub(expense),
		NetWorth:     netWorth,
	}
}

// CategoryTotal is one slice of the expense breakdown.
type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// ExpenseByCategory sums expense amounts per category, largest first.
// Ties are broken by category name so the order is stable.
func ExpenseByCategory(txs []domain.Transaction) []CategoryTotal {
	totals := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Type != domain.TypeExpense {
			continue
		}
		totals[tx.Category] = totals[tx.Category].Add(tx.Amount)
	}

	out := make([]CategoryTotal, 0, len(totals))
	for cat, amt := range totals {
		out = append(out, CategoryTotal{Category: cat, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// BudgetLine is one bar of the budget chart.
type BudgetLine struct {
	Category string          `json:"category"`
	Limit    decimal.Decimal `json:"limit"`
	Spent    decimal.Decimal `json:"spent"`
	// Ratio is Spent/Limit, or zero when the limit is not positive.
	Ratio decimal.Decimal `json:"ratio"`
	Over  bool            `json:"over"`
}

// BudgetProgress turns budgets into chart lines in input order.
func BudgetProgress(budgets []domain.Budget) []BudgetLine {
	out := make([]BudgetLine, 0, len(budgets))
	for _, b := range budgets {
		line := BudgetLine{Category: b.Category, Limit: b.Limit, Spent: b.Spent, Ratio: decimal.Zero}
		if b.Limit.IsPositive() {
			line.Ratio = b.Spent.Div(b.Limit).Round(4)
			line.Over = b.Spent.GreaterThan(b.Limit)
		}
		out = append(out, line)
	}
	return out
}

// NetWorthByType sums balances per account kind, in domain.AccountTypes order.
// Kinds with no accounts are omitted.
func NetWorthByType(accounts []domain.Account) []TypeTotal {
	sums := make(map[domain.AccountType]decimal.Decimal)
	seen := make(map[domain.AccountType]bool)
	for _, acc := range accounts {
		sums[acc.Type] = sums[acc.Type].Add(acc.Balance)
		seen[acc.Type] = true
	}

	var out []TypeTotal
	for _, at := range domain.AccountTypes {
		if seen[at] {
			out = append(out, TypeTotal{Type: at, Balance: sums[at]})
		}
	}
	return out
}

// TypeTotal is the combined balance of one account kind.
type TypeTotal struct {
	Type    domain.AccountType `json:"type"`
	Balance decimal.Decimal    `json:"balance"`
}

// Memo caches the last Compute result against a revision number supplied by
// the caller. The ledger bumps its revision on every mutation, so an
// unchanged revision means unchanged inputs.
type Memo struct {
	mu       sync.Mutex
	revision uint64
	valid    bool
	value    domain.SummaryStats
}

// Get returns the cached stats for revision, computing them with load when
// the revision differs from the cached one.
func (m *Memo) Get(revision uint64, load func() ([]domain.Transaction, []domain.Account)) domain.SummaryStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.revision == revision {
		return m.value
	}
	txs, accounts := load()
	m.value = Compute(txs, accounts)
	m.revision = revision
	m.valid = true
	return m.value
}
