package flow

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/shopspring/decimal"
)

// FormInput is the raw text of the entry form.
type FormInput struct {
	ID          string `json:"id,omitempty"`
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Type        string `json:"type"`
	AccountID   string `json:"accountId"`
	Mood        string `json:"mood,omitempty"`
	Merchant    string `json:"merchant,omitempty"`
}

// Form is the add/edit dialog. Whether it adds or edits depends only on
// whether the input carries an ID.
type Form struct {
	Modal
	ledger     Ledger
	clock      Clock
	hourlyWage decimal.Decimal
	input      FormInput
}

// NewForm returns a closed form. hourlyWage feeds the labor-time hint.
func NewForm(l Ledger, clock Clock, hourlyWage int) *Form {
	if hourlyWage <= 0 {
		hourlyWage = domain.DefaultHourlyWage
	}
	return &Form{
		Modal:      Modal{name: "form"},
		ledger:     l,
		clock:      clock,
		hourlyWage: decimal.NewFromInt(int64(hourlyWage)),
	}
}

// OpenNew opens an empty form prefilled with defaults: expense, the first
// category, today and the first account.
func (f *Form) OpenNew() error {
	if err := f.open(); err != nil {
		return err
	}
	f.input = FormInput{
		Date:     f.clock.today().String(),
		Category: domain.Categories[0],
		Type:     string(domain.TypeExpense),
	}
	if acc, ok := f.ledger.DefaultAccount(); ok {
		f.input.AccountID = acc.ID
	}
	return nil
}

// OpenEdit opens the form on an existing transaction.
func (f *Form) OpenEdit(tx domain.Transaction) error {
	if err := f.open(); err != nil {
		return err
	}
	f.input = FormInput{
		ID:          tx.ID,
		Date:        tx.Date.String(),
		Amount:      tx.Amount.String(),
		Category:    tx.Category,
		Description: tx.Description,
		Type:        string(tx.Type),
		AccountID:   tx.AccountID,
		Mood:        tx.Mood,
		Merchant:    tx.Merchant,
	}
	return nil
}

// Cancel closes the form without saving.
func (f *Form) Cancel() error {
	if err := f.cancel(); err != nil {
		return err
	}
	f.input = FormInput{}
	return nil
}

// Input returns the current field values.
func (f *Form) Input() FormInput { return f.input }

// SetInput replaces the field values. The ID is kept from the form as
// opened, so an edit cannot turn into an add or retarget another record.
func (f *Form) SetInput(in FormInput) {
	in.ID = f.input.ID
	f.input = in
}

// IsEdit reports whether submitting will update an existing transaction.
func (f *Form) IsEdit() bool { return f.input.ID != "" }

// LaborHint returns the hours of work the entered expense represents. ok is
// false for income or an amount that does not parse.
func (f *Form) LaborHint() (hours decimal.Decimal, ok bool) {
	if domain.TransactionType(f.input.Type) != domain.TypeExpense {
		return decimal.Zero, false
	}
	amt, err := domain.ParseAmount(f.input.Amount)
	if err != nil || amt.IsZero() {
		return decimal.Zero, false
	}
	return domain.LaborHours(amt, f.hourlyWage), true
}

// Validate checks the input without touching the ledger.
func (f *Form) Validate() (domain.Transaction, error) {
	return f.input.toTransaction()
}

// Submit validates the input and saves it. Invalid input returns a
// *domain.ValidationError and leaves both the ledger and the form unchanged.
func (f *Form) Submit(ctx context.Context) (domain.Transaction, error) {
	if f.state != Open {
		return domain.Transaction{}, f.illegal("submit")
	}
	tx, err := f.input.toTransaction()
	if err != nil {
		return domain.Transaction{}, err
	}

	if err := f.beginSubmit(); err != nil {
		return domain.Transaction{}, err
	}
	saved, err := f.ledger.Save(ctx, tx)
	if err != nil {
		f.finish(false)
		return domain.Transaction{}, fmt.Errorf("Form.Submit: %w", err)
	}
	f.finish(true)
	f.input = FormInput{}
	return saved, nil
}

func (in FormInput) toTransaction() (domain.Transaction, error) {
	amount, err := domain.ParseAmount(in.Amount)
	if err != nil {
		return domain.Transaction{}, err
	}
	txType, err := domain.ParseType(in.Type)
	if err != nil {
		return domain.Transaction{}, err
	}
	date, err := civil.ParseDate(strings.TrimSpace(in.Date))
	if err != nil {
		return domain.Transaction{}, &domain.ValidationError{Field: "date", Message: fmt.Sprintf("%q is not a YYYY-MM-DD date", in.Date)}
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = domain.DefaultCategory
	}

	return domain.Transaction{
		ID:          in.ID,
		Date:        date,
		Amount:      amount,
		Category:    category,
		Description: strings.TrimSpace(in.Description),
		Type:        txType,
		AccountID:   in.AccountID,
		Mood:        strings.TrimSpace(in.Mood),
		Merchant:    strings.TrimSpace(in.Merchant),
	}, nil
}
