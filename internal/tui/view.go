package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/dvloznov/smart-finance/internal/flow"
	"github.com/dvloznov/smart-finance/internal/stats"
)

const barWidth = 20

type styles struct {
	title     lipgloss.Style
	tab       lipgloss.Style
	activeTab lipgloss.Style
	box       lipgloss.Style
	label     lipgloss.Style
	selected  lipgloss.Style
	income    lipgloss.Style
	expense   lipgloss.Style
	muted     lipgloss.Style
	err       lipgloss.Style
}

func newStyles(p domain.Palette) styles {
	primary := lipgloss.Color(p.Primary)
	return styles{
		title:     lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color(p.Text)),
		tab:       lipgloss.NewStyle().Padding(0, 1).Faint(true),
		activeTab: lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color(p.Secondary)).Background(primary),
		box:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(p.Border)).Padding(0, 1),
		label:     lipgloss.NewStyle().Foreground(primary),
		selected:  lipgloss.NewStyle().Bold(true).Foreground(primary),
		income:    lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A")),
		expense:   lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")),
		muted:     lipgloss.NewStyle().Faint(true),
		err:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#DC2626")),
	}
}

func (a *App) View() string {
	var body string
	switch a.tab {
	case tabTrans:
		body = a.renderTransactions()
	case tabAI:
		body = a.renderAI()
	case tabWealth:
		body = a.renderWealth()
	default:
		body = a.renderHome()
	}
	if a.modal != modalNone {
		body += "\n\n" + a.styles.box.Render(a.renderModal())
	}
	return a.renderTabs() + "\n\n" + body + "\n\n" + a.renderFooter()
}

func (a *App) renderTabs() string {
	parts := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		if tab(i) == a.tab {
			parts = append(parts, a.styles.activeTab.Render(name))
		} else {
			parts = append(parts, a.styles.tab.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (a *App) renderHome() string {
	s := a.ledger.Stats()
	var b strings.Builder
	b.WriteString(a.styles.title.Render("Dashboard") + "\n")
	fmt.Fprintf(&b, "Net worth  %s\n", money(s.NetWorth))
	fmt.Fprintf(&b, "Income     %s\n", a.styles.income.Render(money(s.TotalIncome)))
	fmt.Fprintf(&b, "Expense    %s\n", a.styles.expense.Render(money(s.TotalExpense)))
	fmt.Fprintf(&b, "Balance    %s\n\n", money(s.Balance))

	b.WriteString(a.styles.title.Render("Accounts") + "\n")
	for _, acc := range a.ledger.Accounts() {
		fmt.Fprintf(&b, "%s %s %s\n", pad(acc.Name, 14), pad(string(acc.Type), 12), money(acc.Balance))
	}

	totals := stats.ExpenseByCategory(a.ledger.Transactions())
	if len(totals) == 0 {
		return b.String()
	}
	b.WriteString("\n" + a.styles.title.Render("Spending by category") + "\n")
	top := totals[0].Amount
	for _, ct := range totals {
		fmt.Fprintf(&b, "%s %s %s\n", pad(ct.Category, 8), a.styles.label.Render(bar(ct.Amount, top)), money(ct.Amount))
	}
	return b.String()
}

func (a *App) renderTransactions() string {
	txs := a.ledger.Transactions()
	var b strings.Builder
	b.WriteString(a.styles.title.Render("Transactions") + "\n")
	if len(txs) == 0 {
		b.WriteString(a.styles.muted.Render("No transactions yet. Tap + to add one, hold + for quick capture."))
		return b.String()
	}
	for i, tx := range txs {
		amount := a.styles.expense.Render(money(tx.SignedAmount()))
		if tx.Type == domain.TypeIncome {
			amount = a.styles.income.Render(money(tx.SignedAmount()))
		}
		line := fmt.Sprintf("%s %s %s %s", tx.Date, pad(tx.Category, 8), pad(tx.Description, 24), amount)
		if i == a.cursor {
			b.WriteString(a.styles.selected.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	return b.String()
}

func (a *App) renderAI() string {
	var b strings.Builder
	b.WriteString(a.styles.title.Render("AI insights") + "\n")
	if a.insights == nil {
		b.WriteString(a.styles.muted.Render(errAIDisabled.Error()))
		return b.String()
	}

	switch {
	case a.analyzing:
		b.WriteString(a.styles.muted.Render("Analyzing...") + "\n")
	case a.report != nil:
		b.WriteString(a.wrap(a.report.Text) + "\n")
	default:
		b.WriteString(a.styles.muted.Render("Press r for a health report.") + "\n")
	}

	if sim := a.simulation; sim != nil {
		b.WriteString("\n" + a.styles.title.Render("Simulation") + "\n")
		fmt.Fprintf(&b, "%s %s\n", a.styles.label.Render("Scenario"), sim.Scenario)
		fmt.Fprintf(&b, "%s %s\n", a.styles.label.Render("Cash flow"), a.wrap(sim.ImpactOnCashFlow))
		fmt.Fprintf(&b, "%s %s\n", a.styles.label.Render("Advice"), a.wrap(sim.Recommendation))
		score := decimal.NewFromFloat(sim.SafetyScore)
		fmt.Fprintf(&b, "%s %s %s\n", a.styles.label.Render("Safety"), bar(score, decimal.NewFromInt(100)), score.Round(0))
	}
	return b.String()
}

func (a *App) renderWealth() string {
	var b strings.Builder
	b.WriteString(a.styles.title.Render("Net worth by type") + "\n")
	byType := stats.NetWorthByType(a.ledger.Accounts())
	top := decimal.Zero
	for _, tt := range byType {
		top = decimal.Max(top, tt.Balance.Abs())
	}
	for _, tt := range byType {
		fmt.Fprintf(&b, "%s %s %s\n", pad(string(tt.Type), 12), a.styles.label.Render(bar(tt.Balance.Abs(), top)), money(tt.Balance))
	}
	fmt.Fprintf(&b, "\nTotal %s\n", money(a.ledger.Stats().NetWorth))
	return b.String()
}

func (a *App) renderModal() string {
	var b strings.Builder
	switch a.modal {
	case modalForm:
		title := "New transaction"
		if a.form.IsEdit() {
			title = "Edit transaction"
		}
		b.WriteString(a.styles.title.Render(title) + "\n")
		in := a.form.Input()
		for i, f := range a.formFields(&in) {
			line := pad(f.label, 12) + *f.value
			if f.label == "Account" {
				if acc, ok := a.ledger.Account(*f.value); ok {
					line += a.styles.muted.Render(" " + acc.Name)
				}
			}
			if i == a.field {
				b.WriteString(a.styles.selected.Render("> "+line) + "\n")
			} else {
				b.WriteString("  " + line + "\n")
			}
		}
		if hours, ok := a.form.LaborHint(); ok {
			b.WriteString(a.styles.muted.Render(fmt.Sprintf("That is %s hours of work", hours)) + "\n")
		}
		b.WriteString(a.styles.muted.Render("[tab] next  [←/→] choose  [enter] save  [esc] cancel"))
	case modalQuick:
		b.WriteString(a.styles.title.Render("Quick capture") + "\n")
		b.WriteString(a.input + "█\n")
		b.WriteString(a.styles.muted.Render("Describe it, e.g. 午餐 拉麵 180  [enter] save  [esc] cancel"))
	case modalImport:
		b.WriteString(a.styles.title.Render("Import screenshot") + "\n")
		b.WriteString("Path: " + a.input + "█\n")
		if !a.busy {
			for _, line := range a.importer.Preview() {
				b.WriteString(a.renderPreviewLine(line) + "\n")
			}
		}
		if !a.busy && a.importer.CanConfirm() {
			b.WriteString(a.styles.muted.Render("[enter] save all  [esc] discard"))
		} else {
			b.WriteString(a.styles.muted.Render("[enter] extract  [esc] cancel"))
		}
	case modalSimulate:
		b.WriteString(a.styles.title.Render("What if...") + "\n")
		b.WriteString(a.input + "█\n")
		b.WriteString(a.styles.muted.Render("e.g. 買一台 60000 的機車  [enter] run  [esc] cancel"))
	}
	if a.busy {
		b.WriteString("\n" + a.styles.muted.Render("Working..."))
	}
	if a.modalErr != "" {
		b.WriteString("\n" + a.styles.err.Render(a.modalErr))
	}
	return b.String()
}

func (a *App) renderPreviewLine(line flow.PreviewLine) string {
	d := line.Draft
	amount := "?"
	if d.Amount != nil {
		amount = money(*d.Amount)
	}
	category := d.Category
	if !line.KnownCategory && line.Suggestion != "" {
		category += a.styles.muted.Render(" (≈" + line.Suggestion + ")")
	}
	return fmt.Sprintf("  %s %s %s %s", pad(d.Date, 10), pad(category, 8), pad(d.Description, 20), amount)
}

func (a *App) renderFooter() string {
	status := a.status
	if a.statusErr {
		status = a.styles.err.Render(status)
	}
	help := "[1-4] tabs  [+] tap: add, hold: quick  [a] add  [c] quick  [i] import  [t] theme  [q] quit"
	switch a.tab {
	case tabTrans:
		help = "[↑/↓] select  [enter] edit  " + help
	case tabAI:
		help = "[r] analyze  [s] simulate  " + help
	}
	return status + "\n" + a.styles.muted.Render(help)
}

func (a *App) wrap(s string) string {
	width := 72
	if a.width > 0 && a.width-4 < width {
		width = a.width - 4
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

// money formats an amount with its sign in front of the currency mark.
func money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Abs().Round(2).String()
	}
	return "$" + d.Round(2).String()
}

// bar draws v as a share of top.
func bar(v, top decimal.Decimal) string {
	if !top.IsPositive() || !v.IsPositive() {
		return strings.Repeat("░", barWidth)
	}
	n := int(v.Div(top).Mul(decimal.NewFromInt(barWidth)).Round(0).IntPart())
	n = min(max(n, 0), barWidth)
	return strings.Repeat("█", n) + strings.Repeat("░", barWidth-n)
}

// pad right-pads s to w terminal cells; CJK runes take two.
func pad(s string, w int) string {
	if gap := w - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}
