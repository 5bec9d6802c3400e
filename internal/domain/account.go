package domain

import "github.com/shopspring/decimal"

// AccountType is the kind of an account.
type AccountType string

const (
	AccountCash       AccountType = "cash"
	AccountBank       AccountType = "bank"
	AccountEPay       AccountType = "e-pay"
	AccountCredit     AccountType = "credit"
	AccountInvestment AccountType = "investment"
)

// AccountTypes lists every account kind in display order.
var AccountTypes = []AccountType{AccountCash, AccountBank, AccountEPay, AccountCredit, AccountInvestment}

// Account holds a running balance. Credit accounts usually carry a negative
// balance.
type Account struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Type    AccountType     `json:"type"`
	Balance decimal.Decimal `json:"balance"`
}

// InitialAccounts returns the starter accounts used when nothing has been
// persisted yet. A fresh slice is returned on every call.
func InitialAccounts() []Account {
	return []Account{
		{ID: "acc1", Name: "現金", Type: AccountCash, Balance: decimal.NewFromInt(5000)},
		{ID: "acc2", Name: "中信銀行", Type: AccountBank, Balance: decimal.NewFromInt(150000)},
		{ID: "acc3", Name: "玉山信用卡", Type: AccountCredit, Balance: decimal.NewFromInt(-12000)},
		{ID: "acc4", Name: "台股投資", Type: AccountInvestment, Balance: decimal.NewFromInt(300000)},
	}
}
