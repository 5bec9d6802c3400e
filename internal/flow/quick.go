package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/dvloznov/smart-finance/internal/logger"
)

// ErrNoAmount means the model could not find an amount in the input, so
// nothing was recorded.
var ErrNoAmount = errors.New("no amount recognised")

// QuickCapture records a transaction from one line of free text.
type QuickCapture struct {
	Modal
	ledger Ledger
	parser Parser
	clock  Clock
}

// NewQuickCapture returns a closed quick capture dialog.
func NewQuickCapture(l Ledger, p Parser, clock Clock) *QuickCapture {
	return &QuickCapture{Modal: Modal{name: "quick capture"}, ledger: l, parser: p, clock: clock}
}

// Open shows the dialog.
func (q *QuickCapture) Open() error { return q.open() }

// Cancel hides the dialog.
func (q *QuickCapture) Cancel() error { return q.cancel() }

// Submit sends text to the parser and records the result when it carries an
// amount. Missing fields take defaults: category 其他, the input text as
// description, expense, the first account and today. On any failure the
// ledger is unchanged and the dialog stays open.
func (q *QuickCapture) Submit(ctx context.Context, text string) (domain.Transaction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Transaction{}, &domain.ValidationError{Field: "text", Message: "nothing to parse"}
	}
	if err := q.beginSubmit(); err != nil {
		return domain.Transaction{}, err
	}

	log := logger.FromContext(ctx)

	draft, err := q.parser.ParseText(ctx, text)
	if err != nil {
		q.finish(false)
		log.Warn().Err(err).Msg("Quick capture parse failed")
		return domain.Transaction{}, fmt.Errorf("QuickCapture.Submit: %w", err)
	}
	if !draft.HasAmount() {
		q.finish(false)
		log.Info().Str("text", text).Msg("Quick capture found no amount")
		return domain.Transaction{}, ErrNoAmount
	}

	nt := draft.ToNewTransaction(draftDefaults(q.ledger, q.clock, text))
	saved, err := q.ledger.Save(ctx, fromNew(nt))
	if err != nil {
		q.finish(false)
		return domain.Transaction{}, fmt.Errorf("QuickCapture.Submit: %w", err)
	}
	q.finish(true)
	return saved, nil
}
