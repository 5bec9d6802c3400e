// Package flow holds the presentation-independent logic of the entry
// surfaces: the manual form, quick capture, screenshot import and the insight
// panel. The terminal UI and the HTTP API both drive these types.
package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/dvloznov/smart-finance/internal/gateway"
	"github.com/shopspring/decimal"
)

// ErrIllegalTransition is returned when a surface is driven out of order,
// for example submitting a closed dialog.
var ErrIllegalTransition = errors.New("illegal modal transition")

// ModalState is where a dialog is in its lifecycle.
type ModalState int

const (
	Closed ModalState = iota
	Open
	Submitting
)

func (s ModalState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case Submitting:
		return "submitting"
	}
	return "unknown"
}

// Modal tracks one dialog: closed → open → submitting → closed, with
// open → closed on cancel and submitting → open when a submission does not
// go through.
type Modal struct {
	name  string
	state ModalState
}

// State returns the current state.
func (m *Modal) State() ModalState { return m.state }

// IsOpen reports whether the dialog is visible, including while submitting.
func (m *Modal) IsOpen() bool { return m.state != Closed }

func (m *Modal) open() error {
	if m.state != Closed {
		return m.illegal("open")
	}
	m.state = Open
	return nil
}

func (m *Modal) cancel() error {
	if m.state != Open {
		return m.illegal("cancel")
	}
	m.state = Closed
	return nil
}

func (m *Modal) beginSubmit() error {
	if m.state != Open {
		return m.illegal("submit")
	}
	m.state = Submitting
	return nil
}

// finish ends a submission: success closes the dialog, failure reopens it.
func (m *Modal) finish(ok bool) {
	if m.state != Submitting {
		return
	}
	if ok {
		m.state = Closed
	} else {
		m.state = Open
	}
}

func (m *Modal) illegal(op string) error {
	return fmt.Errorf("%s: %s while %s: %w", m.name, op, m.state, ErrIllegalTransition)
}

// Ledger is the part of the ledger the surfaces write to.
type Ledger interface {
	Save(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)
	DefaultAccount() (domain.Account, bool)
	Recent(n int) []domain.Transaction
	Stats() domain.SummaryStats
}

// Parser turns text and screenshots into drafts.
type Parser interface {
	ParseText(ctx context.Context, text string) (domain.Draft, error)
	ParseImage(ctx context.Context, img gateway.Image) ([]domain.Draft, error)
}

// Advisor produces narrative analysis and simulations.
type Advisor interface {
	AnalyzeHealth(ctx context.Context, recent []domain.Transaction, netWorth decimal.Decimal) (string, error)
	Simulate(ctx context.Context, scenario string, status gateway.Status) (domain.SimulationResult, error)
}

// Clock supplies "today" for default dates.
type Clock func() time.Time

func (c Clock) today() civil.Date {
	if c == nil {
		return civil.DateOf(time.Now())
	}
	return civil.DateOf(c())
}

// draftDefaults are the fallbacks shared by quick capture and import.
func draftDefaults(l Ledger, clock Clock, description string) domain.DraftDefaults {
	def := domain.DraftDefaults{
		Category:    domain.DefaultCategory,
		Description: description,
		Type:        domain.TypeExpense,
		Date:        clock.today(),
	}
	if acc, ok := l.DefaultAccount(); ok {
		def.AccountID = acc.ID
	}
	return def
}

func fromNew(nt domain.NewTransaction) domain.Transaction {
	return nt.WithID("")
}
