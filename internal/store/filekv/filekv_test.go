package filekv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dvloznov/smart-finance/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKV(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "state")

	kv, err := Open(dir)
	require.NoError(t, err)

	_, err = kv.Get(ctx, store.KeyTransactions)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, kv.Put(ctx, store.KeyTransactions, []byte(`[{"id":"1"}]`)))
	require.NoError(t, kv.Put(ctx, store.KeyTransactions, []byte(`[]`)))

	got, err := kv.Get(ctx, store.KeyTransactions)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestKV_RejectsPathKeys(t *testing.T) {
	kv, err := Open(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "..", "a/b", `a\b`} {
		assert.Error(t, kv.Put(context.Background(), key, nil), "key %q", key)
	}
}

func TestKV_WithStore(t *testing.T) {
	ctx := context.Background()
	kv, err := Open(t.TempDir())
	require.NoError(t, err)
	s := store.New(kv)

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	snap.Theme = "shinchan"
	require.NoError(t, s.Save(ctx, snap))

	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Theme, again.Theme)
	assert.Len(t, again.Accounts, 4)
}
