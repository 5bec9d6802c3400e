package bqexport

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/shopspring/decimal"
)

// TransactionRow is one ledger transaction in an export snapshot.
type TransactionRow struct {
	ExportID      string `bigquery:"export_id"`      // REQUIRED
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	AccountID     string `bigquery:"account_id"`

	TransactionDate civil.Date `bigquery:"transaction_date"`

	Amount       *big.Rat `bigquery:"amount"`        // NUMERIC, always >= 0
	SignedAmount *big.Rat `bigquery:"signed_amount"` // NUMERIC, negative for expenses

	Type         string              `bigquery:"type"`
	CategoryName string              `bigquery:"category_name"`
	Description  bigquery.NullString `bigquery:"description"`
	Merchant     bigquery.NullString `bigquery:"merchant"`
	Mood         bigquery.NullString `bigquery:"mood"`

	ExportedTS time.Time `bigquery:"exported_ts"`
}

// AccountRow is one account balance in an export snapshot.
type AccountRow struct {
	ExportID    string   `bigquery:"export_id"`
	AccountID   string   `bigquery:"account_id"`
	AccountName string   `bigquery:"account_name"`
	AccountType string   `bigquery:"account_type"`
	Balance     *big.Rat `bigquery:"balance"`

	ExportedTS time.Time `bigquery:"exported_ts"`
}

// CategoryTotalRow is one line of the per-category expense summary read
// back from BigQuery.
type CategoryTotalRow struct {
	CategoryName string   `bigquery:"category_name"`
	Total        *big.Rat `bigquery:"total"`
	Count        int64    `bigquery:"tx_count"`
}

// TotalDecimal converts Total for display.
func (r CategoryTotalRow) TotalDecimal() decimal.Decimal {
	if r.Total == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigRat(r.Total, 2)
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// ToTransactionRows maps ledger transactions to snapshot rows.
func ToTransactionRows(exportID string, txs []domain.Transaction, now time.Time) []*TransactionRow {
	rows := make([]*TransactionRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, &TransactionRow{
			ExportID:        exportID,
			TransactionID:   tx.ID,
			AccountID:       tx.AccountID,
			TransactionDate: tx.Date,
			Amount:          tx.Amount.Rat(),
			SignedAmount:    tx.SignedAmount().Rat(),
			Type:            string(tx.Type),
			CategoryName:    tx.Category,
			Description:     nullString(tx.Description),
			Merchant:        nullString(tx.Merchant),
			Mood:            nullString(tx.Mood),
			ExportedTS:      now,
		})
	}
	return rows
}

// ToAccountRows maps accounts to snapshot rows.
func ToAccountRows(exportID string, accounts []domain.Account, now time.Time) []*AccountRow {
	rows := make([]*AccountRow, 0, len(accounts))
	for _, acc := range accounts {
		rows = append(rows, &AccountRow{
			ExportID:    exportID,
			AccountID:   acc.ID,
			AccountName: acc.Name,
			AccountType: string(acc.Type),
			Balance:     acc.Balance.Rat(),
			ExportedTS:  now,
		})
	}
	return rows
}
