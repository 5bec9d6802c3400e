package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/dvloznov/smart-finance/internal/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePersister struct {
	mu    sync.Mutex
	saves []Snapshot
	err   error
}

func (f *fakePersister) Save(ctx context.Context, snap Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saves = append(f.saves, snap)
	return nil
}

func (f *fakePersister) last() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves[len(f.saves)-1]
}

func sequentialIDs() Option {
	n := 0
	return WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newTestLedger(p Persister) *Ledger {
	return New(Snapshot{Accounts: domain.InitialAccounts()}, p, sequentialIDs())
}

func expense(amount int64, account string) domain.NewTransaction {
	return domain.NewTransaction{
		Date:        civil.Date{Year: 2026, Month: 1, Day: 10},
		Amount:      dec(amount),
		Category:    domain.CategoryFood,
		Description: "lunch",
		Type:        domain.TypeExpense,
		AccountID:   account,
	}
}

func income(amount int64, account string) domain.NewTransaction {
	tx := expense(amount, account)
	tx.Type = domain.TypeIncome
	tx.Category = domain.CategorySalary
	return tx
}

func balance(t *testing.T, l *Ledger, id string) decimal.Decimal {
	t.Helper()
	acc, ok := l.Account(id)
	require.True(t, ok, "account %s", id)
	return acc.Balance
}

func TestRecordTransaction(t *testing.T) {
	p := &fakePersister{}
	l := newTestLedger(p)
	ctx := context.Background()

	tx, err := l.RecordTransaction(ctx, expense(120, "acc1"))
	require.NoError(t, err)
	assert.Equal(t, "id-1", tx.ID)
	assert.True(t, balance(t, l, "acc1").Equal(dec(4880)))

	_, err = l.RecordTransaction(ctx, income(30000, "acc2"))
	require.NoError(t, err)
	assert.True(t, balance(t, l, "acc2").Equal(dec(180000)))

	txs := l.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, "id-2", txs[0].ID, "most recent first")
	assert.Equal(t, "id-1", txs[1].ID)

	require.Len(t, p.saves, 2)
	assert.Len(t, p.last().Transactions, 2)
}

func TestRecordTransaction_BalanceInvariant(t *testing.T) {
	l := newTestLedger(nil)
	ctx := context.Background()
	initial := map[string]decimal.Decimal{}
	for _, acc := range l.Accounts() {
		initial[acc.ID] = acc.Balance
	}

	inputs := []domain.NewTransaction{
		expense(100, "acc1"), income(250, "acc1"), expense(999, "acc3"),
		income(1, "acc4"), expense(37, "acc1"), expense(5000, "acc2"),
	}
	for _, in := range inputs {
		_, err := l.RecordTransaction(ctx, in)
		require.NoError(t, err)
	}

	for _, acc := range l.Accounts() {
		want := initial[acc.ID]
		for _, tx := range l.Transactions() {
			if tx.AccountID == acc.ID {
				want = want.Add(tx.SignedAmount())
			}
		}
		assert.True(t, acc.Balance.Equal(want), "account %s: got %s want %s", acc.ID, acc.Balance, want)
	}
}

func TestRecordTransaction_UnknownAccount(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf))
	l := newTestLedger(nil)
	before := l.Stats().NetWorth

	_, err := l.RecordTransaction(ctx, expense(50, "nope"))
	require.NoError(t, err)

	assert.Len(t, l.Transactions(), 1)
	assert.True(t, l.Stats().NetWorth.Equal(before))
	assert.Contains(t, buf.String(), "unknown account")
}

func TestRecordTransaction_NegativeAmount(t *testing.T) {
	l := newTestLedger(nil)
	in := expense(0, "acc1")
	in.Amount = dec(-1)

	_, err := l.RecordTransaction(context.Background(), in)
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, l.Transactions())
}

func TestUndatedTransactionsAreDatedToday(t *testing.T) {
	ctx := context.Background()
	clock := func() time.Time { return time.Date(2026, 3, 14, 22, 30, 0, 0, time.Local) }
	l := New(Snapshot{Accounts: domain.InitialAccounts()}, nil, sequentialIDs(), WithClock(clock))
	today := civil.Date{Year: 2026, Month: 3, Day: 14}

	in := expense(100, "acc1")
	in.Date = civil.Date{}
	tx, err := l.RecordTransaction(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, today, tx.Date)

	tx.Date = civil.Date{}
	tx.Amount = dec(150)
	updated, err := l.UpdateTransaction(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, today, updated.Date)

	stored, ok := l.Transaction(tx.ID)
	require.True(t, ok)
	assert.Equal(t, today, stored.Date)
}

func TestUpdateTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("same account changes net worth by the delta", func(t *testing.T) {
		l := newTestLedger(nil)
		tx, err := l.RecordTransaction(ctx, expense(100, "acc1"))
		require.NoError(t, err)
		before := l.Stats().NetWorth
		otherBefore := balance(t, l, "acc2")

		tx.Amount = dec(250)
		_, err = l.UpdateTransaction(ctx, tx)
		require.NoError(t, err)

		// old effect -100, new effect -250
		assert.True(t, l.Stats().NetWorth.Equal(before.Sub(dec(150))))
		assert.True(t, balance(t, l, "acc1").Equal(dec(4750)))
		assert.True(t, balance(t, l, "acc2").Equal(otherBefore))
	})

	t.Run("moving between accounts", func(t *testing.T) {
		l := newTestLedger(nil)
		tx, err := l.RecordTransaction(ctx, expense(100, "acc1"))
		require.NoError(t, err)

		tx.AccountID = "acc2"
		tx.Type = domain.TypeIncome
		_, err = l.UpdateTransaction(ctx, tx)
		require.NoError(t, err)

		assert.True(t, balance(t, l, "acc1").Equal(dec(5000)), "old effect reversed")
		assert.True(t, balance(t, l, "acc2").Equal(dec(150100)), "new effect applied")
		assert.Equal(t, domain.TypeIncome, l.Transactions()[0].Type)
	})

	t.Run("record position is kept", func(t *testing.T) {
		l := newTestLedger(nil)
		first, _ := l.RecordTransaction(ctx, expense(1, "acc1"))
		_, _ = l.RecordTransaction(ctx, expense(2, "acc1"))

		first.Description = "edited"
		_, err := l.UpdateTransaction(ctx, first)
		require.NoError(t, err)

		txs := l.Transactions()
		assert.Equal(t, "edited", txs[1].Description)
	})

	t.Run("missing ID is rejected without touching state", func(t *testing.T) {
		p := &fakePersister{}
		l := newTestLedger(p)
		_, _ = l.RecordTransaction(ctx, expense(10, "acc1"))
		snap := l.Snapshot()
		rev := l.Revision()

		_, err := l.UpdateTransaction(ctx, domain.Transaction{ID: "ghost", Amount: dec(5), Type: domain.TypeExpense, AccountID: "acc1"})
		assert.True(t, errors.Is(err, ErrTransactionNotFound))
		assert.Equal(t, snap, l.Snapshot())
		assert.Equal(t, rev, l.Revision())
		assert.Len(t, p.saves, 1)
	})
}

func TestSave_DispatchesOnID(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(nil)

	created, err := l.Save(ctx, domain.Transaction{Amount: dec(10), Type: domain.TypeExpense, AccountID: "acc1"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	created.Amount = dec(20)
	_, err = l.Save(ctx, created)
	require.NoError(t, err)

	assert.Len(t, l.Transactions(), 1)
	assert.True(t, balance(t, l, "acc1").Equal(dec(4980)))
}

func TestPersistenceFailureDoesNotFailMutation(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf))
	l := newTestLedger(&fakePersister{err: errors.New("disk full")})

	_, err := l.RecordTransaction(ctx, expense(10, "acc1"))
	require.NoError(t, err)
	assert.Len(t, l.Transactions(), 1)
	assert.Contains(t, buf.String(), "disk full")
}

func TestOpenAccountAndTheme(t *testing.T) {
	ctx := context.Background()
	p := &fakePersister{}
	l := newTestLedger(p)

	acc, err := l.OpenAccount(ctx, "  LINE Pay ", domain.AccountEPay, dec(300))
	require.NoError(t, err)
	assert.Equal(t, "LINE Pay", acc.Name)
	assert.Len(t, l.Accounts(), 5)

	_, err = l.OpenAccount(ctx, "", domain.AccountCash, dec(0))
	assert.Error(t, err)
	_, err = l.OpenAccount(ctx, "x", domain.AccountType("gold"), dec(0))
	assert.Error(t, err)

	assert.Equal(t, domain.ThemeClassic, l.Theme())
	require.NoError(t, l.SetTheme(ctx, domain.ThemeDragonBall))
	assert.Equal(t, domain.ThemeDragonBall, l.Theme())
	assert.Equal(t, domain.ThemeDragonBall, p.last().Theme)
	assert.Error(t, l.SetTheme(ctx, "naruto"))
}

func TestStatsFollowMutations(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(nil)
	assert.True(t, l.Stats().TotalExpense.IsZero())

	_, _ = l.RecordTransaction(ctx, expense(120, "acc1"))
	s := l.Stats()
	assert.True(t, s.TotalExpense.Equal(dec(120)))
	assert.True(t, s.NetWorth.Equal(dec(442880)))
}

func TestRecent(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(nil)
	for i := 0; i < 12; i++ {
		_, _ = l.RecordTransaction(ctx, expense(int64(i+1), "acc1"))
	}
	recent := l.Recent(10)
	require.Len(t, recent, 10)
	assert.Equal(t, "id-12", recent[0].ID)
	assert.Len(t, l.Recent(50), 12)
}

func TestSnapshotIsDetached(t *testing.T) {
	l := newTestLedger(nil)
	snap := l.Snapshot()
	snap.Accounts[0].Balance = dec(0)

	assert.True(t, balance(t, l, "acc1").Equal(dec(5000)))
}

func TestConcurrentRecords(t *testing.T) {
	ctx := context.Background()
	l := New(Snapshot{Accounts: domain.InitialAccounts()}, &fakePersister{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.RecordTransaction(ctx, expense(10, "acc1"))
			_ = l.Stats()
		}()
	}
	wg.Wait()

	assert.Len(t, l.Transactions(), 50)
	assert.True(t, balance(t, l, "acc1").Equal(dec(4500)))
}
