// Package tui is the interactive terminal client: dashboard, ledger, AI
// panel and net-worth tabs, with the entry form, quick capture and
// screenshot import as modals.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/dvloznov/smart-finance/internal/flow"
	"github.com/dvloznov/smart-finance/internal/gesture"
	"github.com/dvloznov/smart-finance/internal/ledger"
	"github.com/dvloznov/smart-finance/internal/logger"
)

var errAIDisabled = errors.New("AI features are disabled; set GEMINI_API_KEY")

// AI is what the AI-backed surfaces need from the gateway.
type AI interface {
	flow.Parser
	flow.Advisor
}

// Config tunes the client. Zero values use the package defaults.
type Config struct {
	HourlyWage     int
	MonthlyExpense int
	LongPress      time.Duration
	Clock          flow.Clock
}

type tab int

const (
	tabHome tab = iota
	tabTrans
	tabAI
	tabWealth
	tabCount
)

var tabNames = [tabCount]string{"home", "trans", "ai", "wealth"}

type modalState string

const (
	modalNone     modalState = ""
	modalForm     modalState = "form"
	modalQuick    modalState = "quick"
	modalImport   modalState = "import"
	modalSimulate modalState = "simulate"
)

// App is the bubbletea model.
type App struct {
	ctx    context.Context
	ledger *ledger.Ledger
	now    func() time.Time

	form     *flow.Form
	quick    *flow.QuickCapture // nil without AI
	importer *flow.Import       // nil without AI
	insights *flow.Insights     // nil without AI

	press      *gesture.PressHold
	lastPlus   time.Time
	plusRepeat bool

	tab       tab
	modal     modalState
	busy      bool
	analyzing bool
	cursor    int
	field     int
	input     string
	modalErr  string
	status    string
	statusErr bool
	width     int

	report     *flow.Report
	simulation *domain.SimulationResult
	styles     styles
}

// New builds the client. ai may be nil, which disables quick capture,
// import and the AI panel.
func New(ctx context.Context, l *ledger.Ledger, ai AI, cfg Config) *App {
	a := &App{
		ctx:    ctx,
		ledger: l,
		now:    time.Now,
		form:   flow.NewForm(l, cfg.Clock, cfg.HourlyWage),
		press:  gesture.NewPressHold(cfg.LongPress),
		styles: newStyles(l.Theme().Palette()),
	}
	if ai != nil {
		a.quick = flow.NewQuickCapture(l, ai, cfg.Clock)
		a.importer = flow.NewImport(l, ai, cfg.Clock)
		a.insights = flow.NewInsights(l, ai, cfg.MonthlyExpense)
	}
	return a
}

func (a *App) Init() tea.Cmd {
	return tea.SetWindowTitle("smart-finance")
}

type statusMsg string

type errMsg struct{ error }

type pressTickMsg time.Time

type quickDoneMsg struct {
	tx  domain.Transaction
	err error
}

type extractDoneMsg struct {
	drafts []domain.Draft
	err    error
}

type confirmDoneMsg struct {
	saved []domain.Transaction
	err   error
}

type analysisMsg flow.Report

type simulationMsg struct {
	result domain.SimulationResult
	err    error
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = m.Width
	case tea.KeyMsg:
		if m.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.press.State() != gesture.Idle {
			if m.String() == "+" {
				a.holdPlus(a.now())
				return a, nil
			}
			a.press.Cancel()
		}
		if a.modal != modalNone {
			return a.handleModalKey(m)
		}
		return a.handleKey(m)
	case pressTickMsg:
		return a, a.pollPress(time.Time(m))
	case quickDoneMsg:
		a.busy = false
		if m.err != nil {
			a.modalErr = describe(m.err)
			return a, nil
		}
		a.closeModal()
		a.setStatus(fmt.Sprintf("Recorded %s %s", m.tx.Category, money(m.tx.SignedAmount())))
	case extractDoneMsg:
		a.busy = false
		if m.err != nil {
			a.modalErr = describe(m.err)
			return a, nil
		}
		a.modalErr = ""
		if len(m.drafts) == 0 {
			a.modalErr = "No transactions found in the screenshot"
		}
	case confirmDoneMsg:
		a.busy = false
		a.closeModal()
		if m.err != nil {
			a.setError(fmt.Errorf("imported %d, some failed: %w", len(m.saved), m.err))
			return a, nil
		}
		a.setStatus(fmt.Sprintf("Imported %d transactions", len(m.saved)))
	case analysisMsg:
		a.analyzing = false
		r := flow.Report(m)
		a.report = &r
		if r.Fallback {
			a.setError(fmt.Errorf("analysis unavailable (%s)", r.Outcome))
		} else {
			a.setStatus("Analysis updated")
		}
	case simulationMsg:
		a.busy = false
		if m.err != nil {
			a.modalErr = describe(m.err)
			return a, nil
		}
		a.closeModal()
		res := m.result
		a.simulation = &res
		a.tab = tabAI
		a.setStatus("Simulation ready")
	case statusMsg:
		a.setStatus(string(m))
	case errMsg:
		a.setError(m.error)
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q":
		return a, tea.Quit
	case "tab", "right", "l":
		a.tab = (a.tab + 1) % tabCount
	case "shift+tab", "left", "h":
		a.tab = (a.tab + tabCount - 1) % tabCount
	case "1", "2", "3", "4":
		a.tab = tab(m.String()[0] - '1')
	case "+":
		return a, a.startPress(a.now())
	case "a":
		a.openForm()
	case "c":
		a.openQuick()
	case "i":
		a.openImport()
	case "t":
		a.cycleTheme()
	case "up", "k":
		if a.tab == tabTrans && a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.tab == tabTrans && a.cursor < len(a.ledger.Transactions())-1 {
			a.cursor++
		}
	case "enter", "e":
		if a.tab == tabTrans {
			a.openEdit()
		}
	case "r":
		if a.tab == tabAI {
			return a, a.analyze()
		}
	case "s":
		if a.tab == tabAI {
			a.openSimulate()
		}
	}
	return a, nil
}

func (a *App) openForm() {
	if a.modal != modalNone {
		return
	}
	if err := a.form.OpenNew(); err != nil {
		a.setError(err)
		return
	}
	a.showModal(modalForm)
}

func (a *App) openEdit() {
	txs := a.ledger.Transactions()
	if a.cursor < 0 || a.cursor >= len(txs) {
		return
	}
	if err := a.form.OpenEdit(txs[a.cursor]); err != nil {
		a.setError(err)
		return
	}
	a.showModal(modalForm)
}

func (a *App) openQuick() {
	if a.modal != modalNone {
		return
	}
	if a.quick == nil {
		a.setError(errAIDisabled)
		return
	}
	if err := a.quick.Open(); err != nil {
		a.setError(err)
		return
	}
	a.showModal(modalQuick)
}

func (a *App) openImport() {
	if a.importer == nil {
		a.setError(errAIDisabled)
		return
	}
	if err := a.importer.Open(); err != nil {
		a.setError(err)
		return
	}
	a.showModal(modalImport)
}

func (a *App) openSimulate() {
	if a.insights == nil {
		a.setError(errAIDisabled)
		return
	}
	a.showModal(modalSimulate)
}

func (a *App) showModal(s modalState) {
	a.modal = s
	a.field = 0
	a.input = ""
	a.modalErr = ""
}

func (a *App) closeModal() {
	a.modal = modalNone
	a.input = ""
	a.modalErr = ""
}

func (a *App) cycleTheme() {
	next := a.ledger.Theme().Next()
	if err := a.ledger.SetTheme(a.ctx, next); err != nil {
		a.setError(err)
		return
	}
	a.styles = newStyles(next.Palette())
	a.setStatus("Theme: " + string(next))
}

func (a *App) analyze() tea.Cmd {
	if a.insights == nil {
		a.setError(errAIDisabled)
		return nil
	}
	if a.analyzing {
		return nil
	}
	a.analyzing = true
	a.setStatus("Analyzing...")
	insights, ctx := a.insights, a.ctx
	return func() tea.Msg {
		return analysisMsg(insights.Analyze(ctx))
	}
}

func (a *App) setStatus(s string) {
	a.status = s
	a.statusErr = false
}

func (a *App) setError(err error) {
	log := logger.FromContext(a.ctx)
	log.Warn().Err(err).Msg("TUI action failed")
	a.status = err.Error()
	a.statusErr = true
}

// describe turns flow errors into a line for a modal.
func describe(err error) string {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		return vErr.Message
	case errors.Is(err, flow.ErrNoAmount):
		return "No amount found; try rephrasing"
	}
	return err.Error()
}
