package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/dvloznov/smart-finance/internal/gateway"
	"github.com/dvloznov/smart-finance/internal/logger"
	"github.com/shopspring/decimal"
)

// Insights backs the AI panel.
type Insights struct {
	ledger         Ledger
	advisor        Advisor
	monthlyExpense decimal.Decimal
}

// NewInsights uses monthlyExpense as the simulation baseline; zero means
// gateway.DefaultMonthlyExpense.
func NewInsights(l Ledger, a Advisor, monthlyExpense int) *Insights {
	if monthlyExpense <= 0 {
		monthlyExpense = gateway.DefaultMonthlyExpense
	}
	return &Insights{ledger: l, advisor: a, monthlyExpense: decimal.NewFromInt(int64(monthlyExpense))}
}

// Report is a rendered health analysis.
type Report struct {
	Text    string          `json:"text"`
	Outcome gateway.Outcome `json:"-"`
	// Fallback is true when Text is the fixed placeholder.
	Fallback bool `json:"fallback"`
}

// Analyze requests a health report for the latest transactions. Failures are
// not returned; the report carries the fallback text instead.
func (in *Insights) Analyze(ctx context.Context) Report {
	recent := in.ledger.Recent(gateway.AnalysisWindow)
	netWorth := in.ledger.Stats().NetWorth

	text, err := in.advisor.AnalyzeHealth(ctx, recent, netWorth)
	outcome := gateway.Classify(err)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("outcome", outcome.String()).Msg("Health analysis unavailable")
		return Report{Text: gateway.AnalysisFallback, Outcome: outcome, Fallback: true}
	}
	return Report{Text: text, Outcome: outcome}
}

// Simulate runs a what-if scenario against the current net worth. Errors are
// returned to the caller.
func (in *Insights) Simulate(ctx context.Context, scenario string) (domain.SimulationResult, error) {
	scenario = strings.TrimSpace(scenario)
	if scenario == "" {
		return domain.SimulationResult{}, &domain.ValidationError{Field: "scenario", Message: "scenario is required"}
	}

	res, err := in.advisor.Simulate(ctx, scenario, gateway.Status{
		NetWorth:       in.ledger.Stats().NetWorth,
		MonthlyExpense: in.monthlyExpense,
	})
	if err != nil {
		return domain.SimulationResult{}, fmt.Errorf("Insights.Simulate: %w", err)
	}
	return res, nil
}
