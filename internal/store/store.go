// Package store persists ledger state as three independently keyed text
// blobs: the transaction list, the account list and the theme name.
//
// The blobs live in a KV backend (local files, SQLite, GCS or memory). Writes
// are not transactional across the three keys. A missing or unreadable blob
// is treated as "nothing saved" for that slice only.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/dvloznov/smart-finance/internal/ledger"
	"github.com/dvloznov/smart-finance/internal/logger"
)

// Storage keys.
const (
	KeyTransactions = "transactions"
	KeyAccounts     = "accounts"
	KeyTheme        = "appTheme"
)

// Keys lists every key the store writes.
var Keys = []string{KeyTransactions, KeyAccounts, KeyTheme}

// ErrNotFound is returned by KV implementations for an absent key.
var ErrNotFound = errors.New("key not found")

// KV is a minimal blob store.
type KV interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value for key.
	Put(ctx context.Context, key string, value []byte) error

	// Close releases backend resources.
	Close() error
}

// Store maps ledger snapshots onto a KV.
type Store struct {
	kv KV
}

// New wraps kv.
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// Load reads all three slices. Absent or corrupt slices fall back to their
// defaults: no transactions, the initial accounts and the default theme.
// Only backend read failures are returned as errors.
func (s *Store) Load(ctx context.Context) (ledger.Snapshot, error) {
	log := logger.FromContext(ctx)
	snap := ledger.Snapshot{
		Transactions: []domain.Transaction{},
		Accounts:     domain.InitialAccounts(),
		Theme:        domain.DefaultTheme,
	}

	raw, err := s.get(ctx, KeyTransactions)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	if raw != nil {
		var txs []domain.Transaction
		if err := json.Unmarshal(raw, &txs); err != nil {
			log.Warn().Err(err).Str("key", KeyTransactions).Msg("Discarding unreadable saved transactions")
		} else if txs != nil {
			snap.Transactions = txs
		}
	}

	raw, err = s.get(ctx, KeyAccounts)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	if raw != nil {
		var accs []domain.Account
		if err := json.Unmarshal(raw, &accs); err != nil {
			log.Warn().Err(err).Str("key", KeyAccounts).Msg("Discarding unreadable saved accounts")
		} else if accs != nil {
			snap.Accounts = accs
		}
	}

	raw, err = s.get(ctx, KeyTheme)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	if raw != nil {
		theme, err := domain.ParseTheme(strings.TrimSpace(string(raw)))
		if err != nil {
			log.Warn().Err(err).Str("key", KeyTheme).Msg("Ignoring saved theme")
		} else {
			snap.Theme = theme
		}
	}

	log.Debug().
		Int("transactions", len(snap.Transactions)).
		Int("accounts", len(snap.Accounts)).
		Str("theme", string(snap.Theme)).
		Msg("Ledger state loaded")

	return snap, nil
}

// Save writes all three slices. Every key is attempted even when an earlier
// write fails; the returned error joins all failures.
func (s *Store) Save(ctx context.Context, snap ledger.Snapshot) error {
	txs := snap.Transactions
	if txs == nil {
		txs = []domain.Transaction{}
	}
	accs := snap.Accounts
	if accs == nil {
		accs = []domain.Account{}
	}

	txData, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("Save: marshal transactions: %w", err)
	}
	accData, err := json.Marshal(accs)
	if err != nil {
		return fmt.Errorf("Save: marshal accounts: %w", err)
	}

	var errs []error
	if err := s.kv.Put(ctx, KeyTransactions, txData); err != nil {
		errs = append(errs, fmt.Errorf("Save: %s: %w", KeyTransactions, err))
	}
	if err := s.kv.Put(ctx, KeyAccounts, accData); err != nil {
		errs = append(errs, fmt.Errorf("Save: %s: %w", KeyAccounts, err))
	}
	if err := s.kv.Put(ctx, KeyTheme, []byte(snap.Theme)); err != nil {
		errs = append(errs, fmt.Errorf("Save: %s: %w", KeyTheme, err))
	}
	return errors.Join(errs...)
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.kv.Close()
}

// get returns nil, nil for an absent key.
func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Load: %s: %w", key, err)
	}
	return raw, nil
}

// Copy duplicates every store key from src to dst. Absent keys are skipped.
func Copy(ctx context.Context, dst, src KV) (int, error) {
	copied := 0
	for _, key := range Keys {
		raw, err := src.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return copied, fmt.Errorf("Copy: read %s: %w", key, err)
		}
		if err := dst.Put(ctx, key, raw); err != nil {
			return copied, fmt.Errorf("Copy: write %s: %w", key, err)
		}
		copied++
	}
	return copied, nil
}

var _ ledger.Persister = (*Store)(nil)
