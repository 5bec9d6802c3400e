package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/dvloznov/smart-finance/internal/gateway"
	"github.com/dvloznov/smart-finance/internal/logger"
)

// ErrNothingToConfirm is returned by Confirm when no drafts were extracted.
var ErrNothingToConfirm = errors.New("nothing to confirm")

// PreviewLine is one extracted draft as shown before confirmation.
type PreviewLine struct {
	Draft domain.Draft `json:"draft"`
	// KnownCategory is false when the model returned a label outside the
	// category set. The label is still saved as-is.
	KnownCategory bool `json:"knownCategory"`
	// Suggestion is the closest known label, set only for unknown ones.
	Suggestion string `json:"suggestion,omitempty"`
}

// Import extracts transactions from a screenshot and saves them after the
// user confirms.
type Import struct {
	Modal
	ledger Ledger
	parser Parser
	clock  Clock
	drafts []domain.Draft
}

// NewImport returns a closed import dialog.
func NewImport(l Ledger, p Parser, clock Clock) *Import {
	return &Import{Modal: Modal{name: "import"}, ledger: l, parser: p, clock: clock}
}

// Open shows the dialog with an empty result list.
func (im *Import) Open() error {
	if err := im.open(); err != nil {
		return err
	}
	im.drafts = nil
	return nil
}

// Cancel discards any extracted drafts.
func (im *Import) Cancel() error {
	if err := im.cancel(); err != nil {
		return err
	}
	im.drafts = nil
	return nil
}

// Extract replaces the result list with the drafts found in img. On failure
// the list is left empty and the error is returned for display.
func (im *Import) Extract(ctx context.Context, img gateway.Image) ([]domain.Draft, error) {
	if err := im.beginSubmit(); err != nil {
		return nil, err
	}
	// Extraction never closes the dialog; only Confirm does.
	defer im.finish(false)

	im.drafts = nil
	drafts, err := im.parser.ParseImage(ctx, img)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Screenshot extraction failed")
		return nil, fmt.Errorf("Import.Extract: %w", err)
	}
	im.drafts = drafts
	return im.Drafts(), nil
}

// SetDrafts loads drafts produced elsewhere, such as a background job.
func (im *Import) SetDrafts(drafts []domain.Draft) {
	im.drafts = append([]domain.Draft(nil), drafts...)
}

// Drafts returns a copy of the extracted drafts.
func (im *Import) Drafts() []domain.Draft {
	return append([]domain.Draft{}, im.drafts...)
}

// Preview annotates each draft with category hints.
func (im *Import) Preview() []PreviewLine {
	return Preview(im.drafts)
}

// Preview annotates drafts with category hints.
func Preview(drafts []domain.Draft) []PreviewLine {
	out := make([]PreviewLine, 0, len(drafts))
	for _, d := range drafts {
		line := PreviewLine{Draft: d, KnownCategory: domain.IsKnownCategory(d.Category)}
		if !line.KnownCategory && d.Category != "" {
			line.Suggestion, _ = domain.NearestCategory(d.Category)
		}
		out = append(out, line)
	}
	return out
}

// CanConfirm reports whether there is anything to save.
func (im *Import) CanConfirm() bool {
	return im.state == Open && len(im.drafts) > 0
}

// Confirm saves every draft to the first account and closes the dialog.
func (im *Import) Confirm(ctx context.Context) ([]domain.Transaction, error) {
	if im.state != Open {
		return nil, im.illegal("confirm")
	}
	if len(im.drafts) == 0 {
		return nil, ErrNothingToConfirm
	}
	if err := im.beginSubmit(); err != nil {
		return nil, err
	}

	saved, err := SaveDrafts(ctx, im.ledger, im.clock, im.drafts)
	im.finish(true)
	im.drafts = nil
	return saved, err
}

// SaveDrafts records drafts against the first account. Every draft is
// attempted; failures are joined into the returned error.
func SaveDrafts(ctx context.Context, l Ledger, clock Clock, drafts []domain.Draft) ([]domain.Transaction, error) {
	log := logger.FromContext(ctx)

	var saved []domain.Transaction
	var errs []error
	for i, d := range drafts {
		def := draftDefaults(l, clock, "")
		tx, err := l.Save(ctx, fromNew(d.ToNewTransaction(def)))
		if err != nil {
			errs = append(errs, fmt.Errorf("draft %d: %w", i, err))
			continue
		}
		saved = append(saved, tx)
	}

	log.Info().Int("saved", len(saved)).Int("failed", len(errs)).Msg("Imported transactions saved")
	return saved, errors.Join(errs...)
}
