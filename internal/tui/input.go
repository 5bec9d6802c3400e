package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/dvloznov/smart-finance/internal/flow"
	"github.com/dvloznov/smart-finance/internal/gateway"
	"github.com/dvloznov/smart-finance/internal/gesture"
)

// Terminals report key repeats but never the release itself, so "+" counts
// as released once it has not repeated for releaseGap. The gap has to cover
// the keyboard's initial repeat delay.
const (
	releaseGap   = 600 * time.Millisecond
	pollInterval = 50 * time.Millisecond
)

func pressTick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return pressTickMsg(t)
	})
}

func (a *App) startPress(now time.Time) tea.Cmd {
	a.press.Press(now)
	a.lastPlus = now
	a.plusRepeat = false
	return pressTick()
}

func (a *App) holdPlus(now time.Time) {
	a.lastPlus = now
	a.plusRepeat = true
}

// pollPress releases the press after a gap in repeats and otherwise lets the
// long press fire once the key is known to be held.
func (a *App) pollPress(now time.Time) tea.Cmd {
	if a.press.State() == gesture.Idle {
		return nil
	}
	if now.Sub(a.lastPlus) >= releaseGap {
		a.pressAction(a.press.Release(a.lastPlus))
		return nil
	}
	if a.plusRepeat {
		a.pressAction(a.press.Poll(now))
	}
	return pressTick()
}

func (a *App) pressAction(act gesture.Action) {
	switch act {
	case gesture.ShortPress:
		a.openForm()
	case gesture.LongPress:
		a.openQuick()
	}
}

func (a *App) handleModalKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.busy {
		return a, nil
	}
	switch a.modal {
	case modalForm:
		return a.handleFormKey(m)
	case modalQuick:
		return a.handleQuickKey(m)
	case modalImport:
		return a.handleImportKey(m)
	case modalSimulate:
		return a.handleSimulateKey(m)
	}
	return a, nil
}

type formField struct {
	label   string
	value   *string
	choices []string
}

func (a *App) formFields(in *flow.FormInput) []formField {
	accounts := a.ledger.Accounts()
	accountIDs := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		accountIDs = append(accountIDs, acc.ID)
	}
	return []formField{
		{label: "Date", value: &in.Date},
		{label: "Amount", value: &in.Amount},
		{label: "Type", value: &in.Type, choices: []string{string(domain.TypeExpense), string(domain.TypeIncome)}},
		{label: "Category", value: &in.Category, choices: domain.Categories},
		{label: "Account", value: &in.AccountID, choices: accountIDs},
		{label: "Description", value: &in.Description},
		{label: "Merchant", value: &in.Merchant},
		{label: "Mood", value: &in.Mood},
	}
}

func (a *App) handleFormKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	in := a.form.Input()
	fields := a.formFields(&in)
	f := fields[a.field]

	switch m.String() {
	case "esc":
		if err := a.form.Cancel(); err != nil {
			a.setError(err)
		}
		a.closeModal()
	case "enter":
		tx, err := a.form.Submit(a.ctx)
		if err != nil {
			a.modalErr = describe(err)
			return a, nil
		}
		a.closeModal()
		a.setStatus(fmt.Sprintf("Saved %s %s", tx.Category, money(tx.SignedAmount())))
	case "tab", "down":
		a.field = (a.field + 1) % len(fields)
	case "shift+tab", "up":
		a.field = (a.field + len(fields) - 1) % len(fields)
	case "right", "left":
		if len(f.choices) == 0 {
			return a, nil
		}
		step := 1
		if m.String() == "left" {
			step = -1
		}
		*f.value = cycle(f.choices, *f.value, step)
		a.form.SetInput(in)
	default:
		if s, ok := editText(*f.value, m); ok {
			*f.value = s
			a.form.SetInput(in)
		}
	}
	return a, nil
}

func (a *App) handleQuickKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "esc":
		if err := a.quick.Cancel(); err != nil {
			a.setError(err)
		}
		a.closeModal()
	case "enter":
		a.busy = true
		a.modalErr = ""
		quick, ctx, text := a.quick, a.ctx, a.input
		return a, func() tea.Msg {
			tx, err := quick.Submit(ctx, text)
			return quickDoneMsg{tx: tx, err: err}
		}
	default:
		a.input, _ = editText(a.input, m)
	}
	return a, nil
}

// handleImportKey takes a screenshot path, then waits for confirmation once
// drafts have been extracted.
func (a *App) handleImportKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "esc":
		if err := a.importer.Cancel(); err != nil {
			a.setError(err)
		}
		a.closeModal()
		return a, nil
	case "enter":
		if a.importer.CanConfirm() {
			a.busy = true
			importer, ctx := a.importer, a.ctx
			return a, func() tea.Msg {
				saved, err := importer.Confirm(ctx)
				return confirmDoneMsg{saved: saved, err: err}
			}
		}
		img, err := gateway.ReadImageFile(expandHome(strings.TrimSpace(a.input)))
		if err != nil {
			a.modalErr = err.Error()
			return a, nil
		}
		a.busy = true
		a.modalErr = ""
		importer, ctx := a.importer, a.ctx
		return a, func() tea.Msg {
			drafts, err := importer.Extract(ctx, img)
			return extractDoneMsg{drafts: drafts, err: err}
		}
	}
	if a.importer.CanConfirm() {
		// Editing the path again discards the previous extraction.
		if _, ok := editText(a.input, m); !ok {
			return a, nil
		}
		a.importer.SetDrafts(nil)
	}
	a.input, _ = editText(a.input, m)
	return a, nil
}

func (a *App) handleSimulateKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "esc":
		a.closeModal()
	case "enter":
		a.busy = true
		a.modalErr = ""
		insights, ctx, scenario := a.insights, a.ctx, a.input
		return a, func() tea.Msg {
			res, err := insights.Simulate(ctx, scenario)
			return simulationMsg{result: res, err: err}
		}
	default:
		a.input, _ = editText(a.input, m)
	}
	return a, nil
}

// editText applies a typing key to s. ok is false for keys that do not edit.
func editText(s string, m tea.KeyMsg) (string, bool) {
	switch m.Type {
	case tea.KeyRunes:
		return s + string(m.Runes), true
	case tea.KeySpace:
		return s + " ", true
	case tea.KeyBackspace:
		r := []rune(s)
		if len(r) == 0 {
			return s, true
		}
		return string(r[:len(r)-1]), true
	case tea.KeyCtrlU:
		return "", true
	}
	return s, false
}

func cycle(choices []string, current string, step int) string {
	idx := -1
	for i, c := range choices {
		if c == current {
			idx = i
			break
		}
	}
	if idx == -1 {
		return choices[0]
	}
	return choices[(idx+step+len(choices))%len(choices)]
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
