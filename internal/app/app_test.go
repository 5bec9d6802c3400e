package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/smart-finance/internal/config"
	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(backend string, dir string) config.Config {
	return config.Config{
		Store: config.StoreConfig{
			Backend:    backend,
			Dir:        dir,
			SQLitePath: filepath.Join(dir, "ledger.db"),
		},
		AI:  config.AIConfig{MonthlyExpense: 25000, HourlyWage: 200},
		UI:  config.UIConfig{LongPress: 500 * time.Millisecond},
		API: config.APIConfig{Port: 8080},
		Log: config.LogConfig{Level: "debug", Format: "json"},
	}
}

func TestNew_FreshStateUsesDefaults(t *testing.T) {
	var logs bytes.Buffer
	a, _, err := New(context.Background(), testConfig(config.BackendMemory, ""), WithLogOutput(&logs))
	require.NoError(t, err)
	defer a.Close()

	assert.Len(t, a.Ledger.Accounts(), 4)
	assert.Empty(t, a.Ledger.Transactions())
	assert.Equal(t, domain.DefaultTheme, a.Ledger.Theme())
	assert.Nil(t, a.Gateway)

	_, err = a.RequireGateway()
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.Contains(t, logs.String(), "AI features are disabled")
}

func TestNew_StatePersistsAcrossRestarts(t *testing.T) {
	for _, backend := range []string{config.BackendFile, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			cfg := testConfig(backend, dir)

			a, ctx, err := New(context.Background(), cfg, WithLogOutput(&bytes.Buffer{}))
			require.NoError(t, err)
			_, err = a.Ledger.RecordTransaction(ctx, domain.NewTransaction{
				Amount:    decimal.NewFromInt(250),
				Category:  domain.CategoryFood,
				Type:      domain.TypeExpense,
				AccountID: "acc1",
			})
			require.NoError(t, err)
			require.NoError(t, a.Ledger.SetTheme(ctx, domain.ThemeDragonBall))
			require.NoError(t, a.Close())

			b, _, err := New(context.Background(), cfg, WithLogOutput(&bytes.Buffer{}))
			require.NoError(t, err)
			defer b.Close()

			assert.Len(t, b.Ledger.Transactions(), 1)
			assert.Equal(t, domain.ThemeDragonBall, b.Ledger.Theme())
			acc, ok := b.Ledger.Account("acc1")
			require.True(t, ok)
			assert.True(t, decimal.NewFromInt(4750).Equal(acc.Balance))
		})
	}
}

func TestOpenKV_UnknownBackend(t *testing.T) {
	_, err := OpenKV(context.Background(), config.StoreConfig{Backend: "redis"})
	assert.Error(t, err)
}
