package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Budget is a spending limit for one category. No flow populates budgets
// yet; the dashboard renders whatever it is given.
type Budget struct {
	Category string          `json:"category"`
	Limit    decimal.Decimal `json:"limit"`
	Spent    decimal.Decimal `json:"spent"`
}

// Frequency is how often a recurring rule fires.
type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// RecurringRule describes a repeating transaction. Rules are modelled but
// nothing schedules them.
type RecurringRule struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Frequency   Frequency       `json:"frequency"`
	NextDate    civil.Date      `json:"nextDate"`
	AccountID   string          `json:"accountId"`
}

// SimulationResult is the model's verdict on a what-if scenario.
// SafetyScore is expected in [0,100] but is not clamped.
type SimulationResult struct {
	Scenario         string  `json:"scenario"`
	ImpactOnCashFlow string  `json:"impactOnCashFlow"`
	Recommendation   string  `json:"recommendation"`
	SafetyScore      float64 `json:"safetyScore"`
}

// SummaryStats are the headline totals shown on the dashboard.
type SummaryStats struct {
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	Balance      decimal.Decimal `json:"balance"`
	NetWorth     decimal.Decimal `json:"netWorth"`
}
