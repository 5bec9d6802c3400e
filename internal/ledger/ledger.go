// Package ledger owns the mutable application state: the transaction list,
// the accounts with their running balances and the selected theme.
//
// Every mutation goes through a Ledger method. Each method computes the new
// state on copies and swaps it in under a single lock, so readers never see a
// balance that disagrees with the transaction list. After a successful
// mutation the full state is handed to the Persister; persistence failures are
// logged and never fail the mutation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/dvloznov/smart-finance/internal/logger"
	"github.com/dvloznov/smart-finance/internal/stats"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrTransactionNotFound is returned when an update names a transaction that
// is not in the ledger.
var ErrTransactionNotFound = errors.New("transaction not found")

// Snapshot is a detached copy of the ledger state.
type Snapshot struct {
	Transactions []domain.Transaction
	Accounts     []domain.Account
	Theme        domain.Theme
}

// Persister writes a full snapshot to durable storage.
type Persister interface {
	Save(ctx context.Context, snap Snapshot) error
}

// Ledger is the single owner of application state. It is safe for
// concurrent use.
type Ledger struct {
	mu       sync.RWMutex
	txs      []domain.Transaction // most recent first
	accounts []domain.Account
	theme    domain.Theme
	revision uint64

	memo stats.Memo

	persistMu        sync.Mutex
	persistedThrough uint64
	persister        Persister

	newID func() string
	now   func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithIDGenerator replaces the uuid generator, mainly for tests.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

// WithClock replaces time.Now, used to date transactions recorded without one.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New builds a ledger from a previously loaded snapshot. A nil persister
// disables persistence. An empty theme becomes the default theme.
func New(snap Snapshot, p Persister, opts ...Option) *Ledger {
	l := &Ledger{
		txs:       cloneTransactions(snap.Transactions),
		accounts:  cloneAccounts(snap.Accounts),
		theme:     snap.Theme,
		persister: p,
		newID:     func() string { return uuid.New().String() },
		now:       time.Now,
	}
	if l.theme == "" {
		l.theme = domain.DefaultTheme
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RecordTransaction assigns a fresh ID, prepends the transaction and applies
// its signed amount to the referenced account. A transaction that names an
// unknown account is still recorded but moves no balance. An undated
// transaction is dated today.
func (l *Ledger) RecordTransaction(ctx context.Context, in domain.NewTransaction) (domain.Transaction, error) {
	log := logger.FromContext(ctx)

	if err := checkAmount(in.Amount); err != nil {
		return domain.Transaction{}, fmt.Errorf("RecordTransaction: %w", err)
	}

	if in.Date.IsZero() {
		in.Date = l.today()
	}

	l.mu.Lock()
	tx := in.WithID(l.newID())

	accounts := cloneAccounts(l.accounts)
	if !applyEffect(accounts, tx.AccountID, tx.SignedAmount()) {
		log.Warn().
			Str("transaction_id", tx.ID).
			Str("account_id", tx.AccountID).
			Msg("Transaction references unknown account; balance unchanged")
	}

	txs := make([]domain.Transaction, 0, len(l.txs)+1)
	txs = append(txs, tx)
	txs = append(txs, l.txs...)

	l.txs = txs
	l.accounts = accounts
	rev := l.bump()
	snap := l.snapshotLocked()
	l.mu.Unlock()

	log.Info().
		Str("transaction_id", tx.ID).
		Str("account_id", tx.AccountID).
		Str("type", string(tx.Type)).
		Str("amount", tx.Amount.String()).
		Msg("Transaction recorded")

	l.persist(ctx, rev, snap)
	return tx, nil
}

// UpdateTransaction replaces the transaction with the same ID. The old
// effect is reversed on the old account and the new effect applied to the
// new account as one atomic step. An unknown ID returns
// ErrTransactionNotFound and leaves state untouched.
func (l *Ledger) UpdateTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	log := logger.FromContext(ctx)

	if err := checkAmount(tx.Amount); err != nil {
		return domain.Transaction{}, fmt.Errorf("UpdateTransaction: %w", err)
	}
	if tx.Date.IsZero() {
		tx.Date = l.today()
	}

	l.mu.Lock()
	idx := l.indexLocked(tx.ID)
	if idx < 0 {
		l.mu.Unlock()
		log.Warn().Str("transaction_id", tx.ID).Msg("Update for unknown transaction rejected")
		return domain.Transaction{}, fmt.Errorf("UpdateTransaction: %q: %w", tx.ID, ErrTransactionNotFound)
	}
	old := l.txs[idx]

	accounts := cloneAccounts(l.accounts)
	applyEffect(accounts, old.AccountID, old.SignedAmount().Neg())
	if !applyEffect(accounts, tx.AccountID, tx.SignedAmount()) {
		log.Warn().
			Str("transaction_id", tx.ID).
			Str("account_id", tx.AccountID).
			Msg("Updated transaction references unknown account")
	}

	txs := cloneTransactions(l.txs)
	txs[idx] = tx

	l.txs = txs
	l.accounts = accounts
	rev := l.bump()
	snap := l.snapshotLocked()
	l.mu.Unlock()

	log.Info().
		Str("transaction_id", tx.ID).
		Str("old_account_id", old.AccountID).
		Str("account_id", tx.AccountID).
		Msg("Transaction updated")

	l.persist(ctx, rev, snap)
	return tx, nil
}

// Save records tx when it has no ID and updates it otherwise. Forms use it
// to decide between add and edit.
func (l *Ledger) Save(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	if tx.ID == "" {
		return l.RecordTransaction(ctx, domain.NewTransaction{
			Date:        tx.Date,
			Amount:      tx.Amount,
			Category:    tx.Category,
			Description: tx.Description,
			Type:        tx.Type,
			AccountID:   tx.AccountID,
			Mood:        tx.Mood,
			Merchant:    tx.Merchant,
		})
	}
	return l.UpdateTransaction(ctx, tx)
}

// OpenAccount adds an account with the given opening balance.
func (l *Ledger) OpenAccount(ctx context.Context, name string, kind domain.AccountType, opening decimal.Decimal) (domain.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Account{}, fmt.Errorf("OpenAccount: %w", &domain.ValidationError{Field: "name", Message: "account name is required"})
	}
	if _, err := domain.ParseAccountType(string(kind)); err != nil {
		return domain.Account{}, fmt.Errorf("OpenAccount: %w", err)
	}

	l.mu.Lock()
	acc := domain.Account{ID: l.newID(), Name: name, Type: kind, Balance: opening}
	accounts := append(cloneAccounts(l.accounts), acc)
	l.accounts = accounts
	rev := l.bump()
	snap := l.snapshotLocked()
	l.mu.Unlock()

	log := logger.FromContext(ctx)
	log.Info().
		Str("account_id", acc.ID).
		Str("account_type", string(kind)).
		Msg("Account opened")

	l.persist(ctx, rev, snap)
	return acc, nil
}

// SetTheme changes the persisted theme.
func (l *Ledger) SetTheme(ctx context.Context, theme domain.Theme) error {
	if _, err := domain.ParseTheme(string(theme)); err != nil {
		return fmt.Errorf("SetTheme: %w", err)
	}

	l.mu.Lock()
	l.theme = theme
	rev := l.bump()
	snap := l.snapshotLocked()
	l.mu.Unlock()

	l.persist(ctx, rev, snap)
	return nil
}

// Transactions returns a copy of all transactions, most recent first.
func (l *Ledger) Transactions() []domain.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneTransactions(l.txs)
}

// Recent returns at most n transactions, most recent first.
func (l *Ledger) Recent(n int) []domain.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n > len(l.txs) || n < 0 {
		n = len(l.txs)
	}
	return cloneTransactions(l.txs[:n])
}

// Transaction looks up a transaction by ID.
func (l *Ledger) Transaction(id string) (domain.Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx := l.indexLocked(id); idx >= 0 {
		return l.txs[idx], true
	}
	return domain.Transaction{}, false
}

// Accounts returns a copy of all accounts in creation order.
func (l *Ledger) Accounts() []domain.Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneAccounts(l.accounts)
}

// Account looks up an account by ID.
func (l *Ledger) Account(id string) (domain.Account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, acc := range l.accounts {
		if acc.ID == id {
			return acc, true
		}
	}
	return domain.Account{}, false
}

// DefaultAccount returns the first account, which forms and AI capture use
// when the user has not chosen one.
func (l *Ledger) DefaultAccount() (domain.Account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.accounts) == 0 {
		return domain.Account{}, false
	}
	return l.accounts[0], true
}

// Theme returns the selected theme.
func (l *Ledger) Theme() domain.Theme {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.theme
}

// Revision increases by one on every successful mutation.
func (l *Ledger) Revision() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.revision
}

// Stats returns the summary for the current state. Results are cached until
// the next mutation.
func (l *Ledger) Stats() domain.SummaryStats {
	l.mu.RLock()
	rev := l.revision
	txs, accounts := l.txs, l.accounts
	l.mu.RUnlock()

	// txs and accounts are replaced, never modified in place, so reading
	// them outside the lock is safe.
	return l.memo.Get(rev, func() ([]domain.Transaction, []domain.Account) {
		return txs, accounts
	})
}

// Snapshot returns a detached copy of the whole state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

func (l *Ledger) today() civil.Date {
	return civil.DateOf(l.now())
}

func (l *Ledger) bump() uint64 {
	l.revision++
	return l.revision
}

func (l *Ledger) snapshotLocked() Snapshot {
	return Snapshot{
		Transactions: cloneTransactions(l.txs),
		Accounts:     cloneAccounts(l.accounts),
		Theme:        l.theme,
	}
}

func (l *Ledger) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, tx := range l.txs {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

// persist writes snap unless a newer revision has already been written.
func (l *Ledger) persist(ctx context.Context, rev uint64, snap Snapshot) {
	if l.persister == nil {
		return
	}

	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	if rev <= l.persistedThrough {
		return
	}
	if err := l.persister.Save(ctx, snap); err != nil {
		log := logger.FromContext(ctx)
		log.Error().
			Err(err).
			Uint64("revision", rev).
			Msg("Failed to persist ledger state")
		return
	}
	l.persistedThrough = rev
}

func applyEffect(accounts []domain.Account, accountID string, delta decimal.Decimal) bool {
	for i := range accounts {
		if accounts[i].ID == accountID {
			accounts[i].Balance = accounts[i].Balance.Add(delta)
			return true
		}
	}
	return false
}

func checkAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return &domain.ValidationError{Field: "amount", Message: "amount must not be negative"}
	}
	return nil
}

func cloneTransactions(in []domain.Transaction) []domain.Transaction {
	if in == nil {
		return []domain.Transaction{}
	}
	out := make([]domain.Transaction, len(in))
	copy(out, in)
	return out
}

func cloneAccounts(in []domain.Account) []domain.Account {
	if in == nil {
		return []domain.Account{}
	}
	out := make([]domain.Account, len(in))
	copy(out, in)
	return out
}
